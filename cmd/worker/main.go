package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"weekendschool/internal/attendance"
	"weekendschool/internal/cache"
	"weekendschool/internal/config"
	"weekendschool/internal/logging"
	"weekendschool/internal/queue"
	"weekendschool/internal/store"
	"weekendschool/internal/worker"
)

// Worker consumes attendance events, invalidates cached reports and raises
// wrong-session notifications.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.QueueBackend != "redis" {
		logger.Fatal("standalone worker needs QUEUE_BACKEND=redis; the memory queue runs inside the api")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := store.NewRedis(cfg.RedisAddr)
	defer func() { _ = rdb.Close() }()
	if !rdb.Healthy(ctx) {
		logger.Warn("redis not reachable yet, consumer will keep retrying", zap.String("addr", cfg.RedisAddr))
	}

	// The catalog only enriches notifications; run without it if postgres is down.
	var catalog attendance.Catalog
	if cfg.StoreBackend == "postgres" {
		db, err := store.NewDB(ctx, cfg.DatabaseURL, 5*time.Second)
		if err != nil {
			logger.Warn("db not reachable, notifications carry ids only", zap.Error(err))
		} else {
			defer func() { _ = db.Close() }()
			catalog = attendance.NewRepository(db.Client)
		}
	}

	w := worker.New(cache.NewRedis(rdb.Client, cfg.ReportCacheTTL), catalog, logger.Named("worker"))
	if err := w.Run(ctx, queue.NewRedisQueue(rdb.Client, "")); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("worker failed", zap.Error(err))
	}
}
