package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/modulrent/site-backend/internal/config"
	"github.com/modulrent/site-backend/internal/database"
	"github.com/modulrent/site-backend/internal/handler"
	"github.com/modulrent/site-backend/internal/logger"
	"github.com/modulrent/site-backend/internal/middleware"
	"github.com/modulrent/site-backend/internal/repository"
	"github.com/modulrent/site-backend/internal/router"
	"github.com/modulrent/site-backend/internal/service"
	"github.com/modulrent/site-backend/internal/validator"
	"github.com/modulrent/site-backend/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup("site-backend", cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("env", cfg.Environment).
		Str("log_level", cfg.LogLevel).
		Msg("Starting site backend")

	// A missing secret is fatal in production. Elsewhere the server still
	// starts and every login or gated request answers 500.
	if err := cfg.Validate(); err != nil {
		if cfg.IsProduction() {
			log.Fatal().Err(err).Msg("Invalid configuration")
		}
		log.Error().Err(err).Msg("Invalid configuration, authentication will fail")
	}

	policy, err := config.LoadRoutePolicy(cfg.RoutePolicyFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load route policy")
	}

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis (optional) ───────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	adminRepo := repository.NewAdminRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authOpts := []service.AuthOption{}
	if rdb != nil {
		authOpts = append(authOpts, service.WithToucher(worker.NewTouchQueue(rdb)))
	}
	authService := service.NewAuthService(adminRepo, sessionRepo, service.AuthConfig{
		Secret:     cfg.JWTSecret,
		SessionTTL: cfg.SessionTTL,
		BcryptCost: cfg.BcryptCost,
	}, log, authOpts...)
	adminUserService := service.NewAdminUserService(adminRepo, authService, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	authHandler := handler.NewAuthHandler(authService, adminUserService, handler.CookieConfig{
		Name:   cfg.SessionCookieName,
		Domain: cfg.CookieDomain,
		Secure: cfg.IsProduction(),
	}, log)

	var redisPing handler.PingFunc
	if rdb != nil {
		redisPing = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	handlers := &router.Handlers{
		Auth:      authHandler,
		AdminUser: handler.NewAdminUserHandler(adminUserService, authHandler, log),
		Health:    handler.NewHealthHandler(pool.Ping, redisPing, log),
	}

	gate, err := middleware.NewRouteGate(authService, policy, cfg.SessionCookieName, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid route policy")
	}
	limiter := middleware.NewRateLimiter(rdb, cfg.LoginRateLimit, time.Minute, log)

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	startWorker(&workers, func() {
		worker.NewSessionPurgeWorker(sessionRepo, cfg.SessionPurgeEvery, log).Start(workerCtx)
	})
	if rdb != nil {
		startWorker(&workers, func() {
			worker.NewSessionTouchWorker(rdb, sessionRepo, log).Start(workerCtx)
		})
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(handlers, gate, limiter, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and let the touch queue drain.
	workerCancel()
	waitWorkers(&workers, cfg.ShutdownGracePeriod, log)

	log.Info().Msg("Shutdown complete")
}

func startWorker(wg *sync.WaitGroup, fn func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		fn()
	}()
}

func waitWorkers(wg *sync.WaitGroup, timeout time.Duration, log zerolog.Logger) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		log.Warn().Msg("Workers did not stop in time")
	}
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
