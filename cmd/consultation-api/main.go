package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/consultation-dashboard/internal/api"
	"github.com/hackgods/consultation-dashboard/internal/config"
	"github.com/hackgods/consultation-dashboard/internal/db"
	"github.com/hackgods/consultation-dashboard/internal/logging"
	"github.com/hackgods/consultation-dashboard/internal/metrics"
	"github.com/hackgods/consultation-dashboard/internal/orders"
	redisclient "github.com/hackgods/consultation-dashboard/internal/redis"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := logging.New(cfg.Env, cfg.Log)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.RequirePostgres(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("consultation-api starting up",
		zap.String("http_port", cfg.HTTPPort),
		zap.Duration("lock_ttl", cfg.LockTTL),
		zap.Duration("notification_write_skew", cfg.Notify.WriteSkew))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{ApplicationName: "consultation-api"})
	if err == nil {
		err = db.EnsureSchema(pgCtx, pgPool)
	}
	cancelPg()
	if err != nil {
		logger.Fatal("postgres setup error", zap.Error(err))
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(rootCtx, redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		logger.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("error closing redis", zap.Error(err))
		}
	}()
	logger.Info("connected to Redis", zap.String("addr", cfg.RedisAddr))

	repo := orders.NewPgRepository(pgPool)
	locker := redisclient.NewRedisLocker(rdb, cfg.LockTTL)
	svc := orders.NewService(repo, locker, orders.ServiceConfig{
		WriteSkew: cfg.Notify.WriteSkew,
		Logger:    logger.Named("orders"),
	})

	router := api.NewBackendRouter(api.BackendConfig{
		Service: svc,
		Dependencies: []api.Dependency{
			{Name: "postgres", Critical: true, Ping: pgPool.Ping},
			{Name: "redis", Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
		},
		Logger:  logger.Named("http"),
		Metrics: metrics.New(),
		Env:     cfg.Env,
		Version: version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()
	logger.Info("listening", zap.String("addr", srv.Addr))

	<-rootCtx.Done()
	logger.Info("shutting down consultation-api")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}
