package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"collabcore/internal/collab/config"
	"collabcore/internal/collab/handler"
	"collabcore/internal/collab/metrics"
	"collabcore/internal/collab/model"
	"collabcore/internal/collab/ratelimit"
	"collabcore/internal/collab/repository"
	"collabcore/internal/collab/repository/memstore"
	"collabcore/internal/collab/router"
	"collabcore/internal/collab/service"
	"collabcore/internal/collab/util"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// backend bundles the store with the read sides the services need.
type backend struct {
	store   repository.Store
	events  repository.EventSource
	audit   repository.AuditSink
	history repository.AuditReader
	close   func(ctx context.Context) error
}

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		util.GetLogger().Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// 2. Init Logger
	util.InitLoggerWithOptions(util.LogOptions{Level: cfg.LogLevel, File: cfg.LogFile})
	logger := util.GetLogger()

	// 3. Init Store
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	be, err := openBackend(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	if err := be.store.EnsureIndexes(ctx); err != nil {
		logger.Warn("Failed to ensure indexes", "error", err)
	}

	// 4. Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(registry)

	// 5. Rate limit counters
	var counters ratelimit.CounterStore = ratelimit.NewMemoryCounterStore()
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unreachable, rate limiting fails open until it recovers", "addr", cfg.RedisAddr, "error", err)
		}
		counters = ratelimit.NewRedisCounterStore(redisClient, "collab:ratelimit")
	}
	limiter := ratelimit.NewLimiter(counters, ratelimit.Config{
		RequestsPerWindow: cfg.RateLimitRequests,
		Window:            cfg.RateLimitWindow,
	}, m, logger)

	// 6. Init Layers
	svc, err := service.NewService(service.Options{
		Store:        be.store,
		Events:       be.events,
		AuditLog:     be.audit,
		History:      be.history,
		Metrics:      m,
		Logger:       logger,
		StoreTimeout: cfg.StoreTimeout,
	})
	if err != nil {
		logger.Error("Failed to build service", "error", err)
		os.Exit(1)
	}
	h := handler.NewCollabHandler(svc)

	// 7. Init Echo & Routes
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			)
			return nil
		},
	}))

	router.RegisterRoutes(e, h, router.Deps{Metrics: m, Limiter: limiter, Gatherer: registry})

	// 8. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Info("Starting server", "port", cfg.Port, "backend", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("shutting down the server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server Shutdown Failed", "error", err)
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Failed to close redis", "error", err)
		}
	}

	if err := be.close(shutdownCtx); err != nil {
		logger.Error("Failed to disconnect DB", "error", err)
	}

	logger.Info("Server exited properly")
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	if cfg.StoreBackend == config.BackendMemory {
		store := memstore.New()
		for _, seed := range cfg.SeedUsers {
			user := &model.User{ID: seed.ID, Name: seed.ID, Role: model.GlobalRole(seed.Role), CreatedAt: time.Now().UTC()}
			if seed.Department != "" {
				dept := seed.Department
				user.Department = &dept
			}
			store.PutUser(user)
		}
		return &backend{
			store:   store,
			events:  store,
			audit:   store,
			history: store,
			close:   func(context.Context) error { return nil },
		}, nil
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, err
	}
	repo := repository.NewMongoRepository(client.Database(cfg.DBName), repository.Collections{
		Users:       cfg.UsersCollection,
		Rooms:       cfg.RoomsCollection,
		Memberships: cfg.MembershipsCollection,
		Messages:    cfg.MessagesCollection,
		Audit:       cfg.AuditCollection,
	})
	return &backend{
		store:   repo,
		events:  repo,
		audit:   repo,
		history: repo,
		close:   client.Disconnect,
	}, nil
}
