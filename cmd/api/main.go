// Package main is the entry point for the profile-service API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"profile-service/internal/app/service"
	"profile-service/internal/config"
	"profile-service/internal/domain"
	"profile-service/internal/infra/memory"
	"profile-service/internal/infra/postgres"
	"profile-service/internal/infra/postgres/migrations"
	rediscache "profile-service/internal/infra/redis"
	"profile-service/internal/infra/source/registry"
	"profile-service/internal/job"
	"profile-service/internal/logger"
	"profile-service/internal/ratelimit"
	"profile-service/internal/transport/httpserver"
	"profile-service/internal/transport/httpserver/handler"
	"profile-service/internal/transport/httpserver/middleware"
	"profile-service/internal/validator"
	"profile-service/pkg/locker"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(
		logger.Config{
			Level:  cfg.Logger.Level,
			Format: cfg.Logger.Format,
			Output: cfg.Logger.Output,
		},
		logger.SentryConfig{
			Enabled:     cfg.Sentry.Enabled,
			DSN:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			SampleRate:  cfg.Sentry.SampleRate,
			Release:     cfg.App.Name + "@" + cfg.App.Version,
		},
	)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting profile-service",
		zap.String("env", cfg.App.Env),
		zap.Int("port", cfg.App.Port),
		zap.String("version", cfg.App.Version),
	)

	var readiness []middleware.ReadinessCheck

	// Redis backs the shared cache, the distributed limiter and the warmer lock.
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Fatal("failed to connect to Redis", zap.Error(err))
		}
		defer func() { _ = redisClient.Close() }()

		log.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr()))
		readiness = append(readiness, func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	var distLocker locker.DistributedLocker
	if redisClient != nil {
		var opts []locker.Option
		if cfg.Cache.KeyPrefix != "" {
			opts = append(opts, locker.WithKeyPrefix(cfg.Cache.KeyPrefix+":lock:"))
		}
		distLocker = locker.NewRedisLocker(redisClient, log.Logger, opts...)
	}

	cache, err := newCache(cfg, redisClient, log.Logger)
	if err != nil {
		log.Fatal("failed to create cache", zap.Error(err))
	}

	var limiter domain.RateLimiter
	limiterCfg := ratelimit.Config{
		MinDelay:  cfg.RateLimit.MinDelay,
		JitterMin: cfg.RateLimit.JitterMin,
		JitterMax: cfg.RateLimit.JitterMax,
	}
	if cfg.RateLimit.Distributed {
		limiter = ratelimit.NewDistributed(limiterCfg, distLocker, cfg.RateLimit.PollInterval, log.Logger)
		log.Info("distributed rate limiter enabled", zap.Duration("min_delay", cfg.RateLimit.MinDelay))
	} else {
		limiter = ratelimit.New(limiterCfg, log.Logger)
	}

	sources, err := registry.NewSources(cfg.Sources, log.Logger)
	if err != nil {
		log.Fatal("failed to build sources", zap.Error(err))
	}

	// Snapshot store (optional)
	var snapshots domain.SnapshotRepository
	var db *gorm.DB
	if cfg.Database.Enabled {
		db, err = postgres.NewConnection(cfg.Database, cfg.App.Debug, log.Logger)
		if err != nil {
			log.Fatal("failed to connect to database", zap.Error(err))
		}
		defer func() { _ = postgres.Close(db) }()

		if err := migrations.Run(db); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
		log.Info("database migrations completed")

		snapshots = postgres.NewRepository(db)
		readiness = append(readiness, func(ctx context.Context) error {
			return postgres.Ping(ctx, db)
		})
	}

	profileSvc := service.NewProfileService(
		cache,
		limiter,
		sources,
		snapshots,
		service.Config{FallbackPause: cfg.Sources.FallbackPause},
		log.Logger,
	)

	server, err := httpserver.NewServer(
		httpserver.ServerConfig{
			BodyLimit:      1024 * 1024, // 1MB
			Debug:          cfg.App.Debug,
			RequestTimeout: cfg.App.RequestTimeout,
			Info: handler.Info{
				Version: cfg.App.Version,
				APIKeys: []string{
					cfg.Sources.Paid.Primary.APIKey,
					cfg.Sources.Paid.Secondary.APIKey,
				},
			},
		},
		profileSvc,
		validator.New(),
		log.Logger,
		readiness...,
	)
	if err != nil {
		log.Fatal("failed to create HTTP server", zap.Error(err))
	}

	var warmer *job.WarmScheduler
	if cfg.Warmer.Enabled {
		warmer = job.NewWarmScheduler(
			profileSvc,
			job.WarmConfig{
				Interval: cfg.Warmer.Interval,
				Timeout:  cfg.Warmer.Timeout,
				Handles:  cfg.Warmer.Handles,
			},
			log.Logger,
			distLocker,
		)
		warmer.Start(cfg.Warmer.OnStartup)
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("shutdown signal received")

		if warmer != nil {
			warmer.Stop()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.App.ShutdownWithContext(ctx); err != nil {
			log.Error("server shutdown error", zap.Error(err))
		}
	}()

	if err := server.Start(cfg.App.Port); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}

// newCache builds the profile cache for the configured backend.
func newCache(cfg *config.Config, client *redis.Client, log *zap.Logger) (domain.ProfileCache, error) {
	if cfg.Cache.Backend == config.CacheBackendRedis {
		log.Info("redis profile cache enabled",
			zap.Duration("ttl", cfg.Cache.TTL),
			zap.String("key_prefix", cfg.Cache.KeyPrefix),
		)

		return rediscache.NewCache(client, log, cfg.Cache.KeyPrefix, cfg.Cache.TTL), nil
	}

	log.Info("in-memory profile cache enabled",
		zap.Duration("ttl", cfg.Cache.TTL),
		zap.Int("capacity", cfg.Cache.Capacity),
	)

	return memory.NewCache(cfg.Cache.Capacity, cfg.Cache.TTL, log)
}
