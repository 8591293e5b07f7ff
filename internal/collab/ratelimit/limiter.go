package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"collabcore/internal/collab/metrics"
)

type Config struct {
	RequestsPerWindow int
	Window            time.Duration
}

func DefaultConfig() Config {
	return Config{RequestsPerWindow: 300, Window: time.Minute}
}

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetIn   time.Duration
}

type Limiter struct {
	store   CounterStore
	config  Config
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewLimiter(store CounterStore, cfg Config, m *metrics.Metrics, logger *slog.Logger) *Limiter {
	if cfg.RequestsPerWindow <= 0 || cfg.Window <= 0 {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{store: store, config: cfg, metrics: m, logger: logger}
}

// Allow counts one request for key. Counter store failures fail open.
func (l *Limiter) Allow(ctx context.Context, key string) Decision {
	count, ttl, err := l.store.Incr(ctx, key, l.config.Window)
	if err != nil {
		l.logger.Warn("rate limit store unavailable, allowing request", "key", key, "error", err)
		return Decision{Allowed: true, Limit: l.config.RequestsPerWindow, Remaining: l.config.RequestsPerWindow}
	}

	remaining := l.config.RequestsPerWindow - int(count)
	if remaining < 0 {
		remaining = 0
	}
	d := Decision{
		Allowed:   count <= int64(l.config.RequestsPerWindow),
		Limit:     l.config.RequestsPerWindow,
		Remaining: remaining,
		ResetIn:   ttl,
	}
	l.metrics.ObserveRateLimit(d.Allowed)
	return d
}
