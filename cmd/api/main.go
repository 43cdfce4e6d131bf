package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"weekendschool/internal/attendance"
	"weekendschool/internal/auth"
	"weekendschool/internal/cache"
	"weekendschool/internal/config"
	"weekendschool/internal/handler"
	"weekendschool/internal/httpmiddleware"
	"weekendschool/internal/logging"
	"weekendschool/internal/metrics"
	"weekendschool/internal/qr"
	"weekendschool/internal/queue"
	"weekendschool/internal/report"
	"weekendschool/internal/store"
	"weekendschool/internal/worker"
)

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

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, logger); err != nil {
		logger.Fatal("http server failed", zap.Error(err))
	}
}

func runHTTP(cfg config.App, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]handler.Check{}

	ledger, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()
	if pinger, ok := ledger.(interface{ Ping(context.Context) error }); ok {
		checks["db"] = pinger.Ping
	}

	// Redis backs the queue, the report cache and the rate limiter together;
	// the memory queue mode runs without it.
	var (
		q       queue.Queue
		reports cache.Reports = cache.Nop{}
		limiter httpmiddleware.Limiter
	)
	if cfg.QueueBackend == "redis" {
		rdb := store.NewRedis(cfg.RedisAddr)
		defer func() { _ = rdb.Close() }()
		checks["redis"] = func(ctx context.Context) error { return rdb.Client.Ping(ctx).Err() }
		q = queue.NewRedisQueue(rdb.Client, "")
		reports = cache.NewRedis(rdb.Client, cfg.ReportCacheTTL)
		limiter = httpmiddleware.NewRedisWindow(rdb.Client, cfg.RateLimitPerMin)
	} else {
		mem := queue.NewInMemory(256)
		q = mem
		limiter = httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
		w := worker.New(reports, ledger, logger.Named("worker"))
		go func() {
			if err := w.Run(ctx, mem); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("in-process worker stopped", zap.Error(err))
			}
		}()
	}

	codec, err := qr.NewCodec(cfg.QRSigningKey, cfg.JWTIssuer)
	if err != nil {
		return err
	}
	att := attendance.NewService(ledger, codec,
		attendance.WithEvents(q),
		attendance.WithLogger(logger.Named("attendance")),
		attendance.WithLocation(cfg.Location))
	h := handler.New(handler.Deps{
		Attendance: att,
		Reports:    report.NewService(ledger, cfg.Location, nil),
		Students:   ledger,
		QR:         codec,
		Cache:      reports,
		Log:        logger.Named("http"),
		Checks:     checks,
	})
	handler.RegisterValidators()

	r := gin.New()
	r.Use(handler.Recovery(logger))
	r.Use(httpmiddleware.RequestLogger(logger.Named("access"), "/healthz", "/metrics"))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition", "X-Cache"},
		AllowCredentials: false,
		MaxAge:           24 * time.Hour,
	}))
	r.Use(securityHeaders())
	r.Use(metrics.GinMiddleware())
	r.NoRoute(handler.NotFound)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", h.Healthz)

	v1 := r.Group("/v1",
		httpmiddleware.RateLimit(limiter, nil, logger.Named("ratelimit")),
		auth.Bearer(cfg.JWTSigningKey, cfg.JWTIssuer))
	h.Routes(v1)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("addr", srv.Addr),
			zap.String("store", cfg.StoreBackend),
			zap.String("queue", cfg.QueueBackend),
			zap.String("school_tz", cfg.Location.String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced shutdown", zap.Error(err))
	}
	logger.Info("server exited")
	return nil
}

// openStore returns the configured catalog and ledger with its closer.
func openStore(ctx context.Context, cfg config.App, logger *zap.Logger) (attendance.Store, func(), error) {
	if cfg.StoreBackend == "memory" {
		fx, err := attendance.LoadFixture(cfg.SeedFile)
		if err != nil {
			return nil, nil, err
		}
		mem := attendance.NewMemoryStore()
		if err := mem.Seed(fx); err != nil {
			return nil, nil, fmt.Errorf("seed %s: %w", cfg.SeedFile, err)
		}
		logger.Info("memory store seeded",
			zap.String("file", cfg.SeedFile),
			zap.Int("sessions", len(fx.Sessions)),
			zap.Int("students", len(fx.Students)))
		return mem, func() {}, nil
	}

	db, err := store.NewDB(ctx, cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		return nil, nil, fmt.Errorf("db connect: %w", err)
	}
	if err := store.Migrate(ctx, db.Client); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("db migrate: %w", err)
	}
	return attendance.NewRepository(db.Client), func() { _ = db.Close() }, nil
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
