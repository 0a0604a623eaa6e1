package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/freemirror/yamdb-final/database"
	"github.com/freemirror/yamdb-final/internal/config"
	"github.com/freemirror/yamdb-final/internal/mailer"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/middleware"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/server"
	"github.com/freemirror/yamdb-final/pkg/logger"
)

const (
	shutdownTimeout = 15 * time.Second
	mailWorkers     = 2
)

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	if err := logger.Init(cfg.LogFormat == "text", cfg.LogLevel); err != nil {
		log.Fatalf("could not init logger: %v", err)
	}
	defer logger.Sync()

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to the database
	db, err := database.OpenGorm(cfg)
	if err != nil {
		logger.Log.Fatal("Database connection failed", zap.Error(err))
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		logger.Log.Fatal("Migration failed", zap.Error(err))
	}

	limiter, closeLimiter := newLimiter(cfg)
	defer closeLimiter()

	mailQueue := mailer.NewQueue(mailer.New(cfg, logger.Log), mailWorkers, logger.Log)

	engine := server.New(server.Options{
		DB:      db,
		Config:  cfg,
		Mailer:  mailQueue,
		Limiter: limiter,
		Log:     logger.Log,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("HTTP server listening",
			zap.String("addr", srv.Addr),
			zap.Bool("tls", cfg.TLSEnabled),
			zap.String("env", cfg.GoEnv),
		)
		var err error
		if cfg.TLSEnabled {
			err = srv.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Log.Info("Shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Log.Error("HTTP server failed", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Graceful shutdown failed", zap.Error(err))
	}
	if err := mailQueue.Close(ctx); err != nil {
		logger.Log.Warn("Mail queue not drained", zap.Error(err))
	}
	logger.Log.Info("Server stopped")
}

// newLimiter prefers Redis so every instance shares one budget, and falls
// back to an in-process limiter when REDIS_URL is empty or unreachable.
func newLimiter(cfg *config.Config) (middleware.Limiter, func()) {
	limits := middleware.RateLimiterConfig{
		MaxRequests: cfg.RateLimitMaxRequests,
		Window:      cfg.RateLimitWindow,
	}
	noop := func() {}

	if cfg.RedisURL == "" {
		logger.Log.Info("REDIS_URL not set, using in-process rate limiter")
		return middleware.NewLocalLimiter(limits), noop
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Log.Warn("Invalid REDIS_URL, using in-process rate limiter", zap.Error(err))
		return middleware.NewLocalLimiter(limits), noop
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Log.Warn("Redis unreachable, using in-process rate limiter", zap.Error(err))
		_ = client.Close()
		return middleware.NewLocalLimiter(limits), noop
	}

	return middleware.NewRedisLimiter(client, limits), func() { _ = client.Close() }
}
