package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CounterStore holds fixed-window request counters shared by every instance
// that points at the same backend.
type CounterStore interface {
	// Incr bumps key and returns the new count and the time left in its window.
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RedisCounterStore keeps counters in Redis so limits hold across instances.
type RedisCounterStore struct {
	client *redis.Client
	prefix string
}

func NewRedisCounterStore(client *redis.Client, prefix string) *RedisCounterStore {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisCounterStore{client: client, prefix: prefix}
}

func (s *RedisCounterStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	redisKey := fmt.Sprintf("%s:%s", s.prefix, key)

	count, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis incr: %w", err)
	}

	// First hit opens the window
	if count == 1 {
		if err := s.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return count, window, fmt.Errorf("redis expire: %w", err)
		}
		return count, window, nil
	}

	ttl, err := s.client.TTL(ctx, redisKey).Result()
	if err != nil {
		return count, 0, fmt.Errorf("redis ttl: %w", err)
	}
	if ttl < 0 {
		// Key lost its expiry; restart the window rather than block forever.
		if err := s.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return count, window, fmt.Errorf("redis expire: %w", err)
		}
		ttl = window
	}
	return count, ttl, nil
}

type memoryCounter struct {
	count   int64
	resetAt time.Time
}

// MemoryCounterStore is a single-process CounterStore.
type MemoryCounterStore struct {
	mu       sync.Mutex
	counters map[string]*memoryCounter
	now      func() time.Time
}

func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{
		counters: make(map[string]*memoryCounter),
		now:      time.Now,
	}
}

func (s *MemoryCounterStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c, ok := s.counters[key]
	if !ok || !now.Before(c.resetAt) {
		c = &memoryCounter{resetAt: now.Add(window)}
		s.counters[key] = c
	}
	c.count++
	return c.count, c.resetAt.Sub(now), nil
}
