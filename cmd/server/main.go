// Command ringtap-server starts the RingTap core HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ringtap/ringtap/internal/catalog"
	"github.com/ringtap/ringtap/internal/config"
	"github.com/ringtap/ringtap/internal/limiter"
	"github.com/ringtap/ringtap/internal/migrate"
	"github.com/ringtap/ringtap/internal/repository/postgres"
	httpserver "github.com/ringtap/ringtap/internal/server/http"
	"github.com/ringtap/ringtap/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, runs migrations, and serves the API until a
// termination signal arrives.
func main() {
	configPath := flag.String("config", ".", "directory containing app.env")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
	)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DatabaseDSN); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	db, err := postgres.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres.New", zap.Error(err))
	}
	defer db.Close()

	// Repositories
	ringRepo := postgres.NewRingRepo(db)
	modelRepo := postgres.NewModelRepo(db)

	// Optional model catalog cache
	var kv catalog.KV
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		kv = catalog.NewRedisKV(rdb)
	}
	cat := catalog.New(modelRepo, kv, logger)

	lim := limiter.NewPGWithQuerier(db.Pool, cfg.ClaimFailWindow, cfg.ClaimFailLimit, cfg.ClaimBlockFor)

	// Services
	rings := service.NewRingService(ringRepo, cat, cfg.DeepLinkScheme, cfg.DefaultRingModel, logger)

	verifier := httpserver.NewTokenVerifier([]byte(cfg.JWTKey))
	handler := httpserver.NewRingHandler(rings, verifier, logger)
	router := httpserver.NewRouter(handler, verifier, lim, cfg.Origins(), logger)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
