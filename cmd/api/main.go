package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/staydesk-support/internal/api/router"
	"github.com/wolfman30/staydesk-support/internal/app/bootstrap"
	appconfig "github.com/wolfman30/staydesk-support/internal/config"
	httpmiddleware "github.com/wolfman30/staydesk-support/internal/http/middleware"
	"github.com/wolfman30/staydesk-support/internal/intake"
	"github.com/wolfman30/staydesk-support/internal/observability/metrics"
	"github.com/wolfman30/staydesk-support/pkg/logging"
)

func main() {
	if err := appconfig.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting staydesk intake API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Backing stores; each one is optional.
	pool := bootstrap.BuildPostgresPool(ctx, cfg.DatabaseURL, logger)
	if pool != nil {
		defer pool.Close()
	}
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}
	metricsHandler, intakeMetrics := setupIntakeMetrics()

	deps := bootstrap.IntakeDeps{
		Pool:    pool,
		Redis:   redisClient,
		Metrics: intakeMetrics,
		Logger:  logger,
	}
	var natsNotifier intake.EscalationNotifier
	publisher, err := bootstrap.BuildEscalationPublisher(cfg, logger)
	if err != nil {
		logger.Error("escalation publisher disabled", "error", err)
	} else if publisher != nil {
		defer publisher.Close()
		natsNotifier = publisher
	}
	deps.Notifier, err = bootstrap.BuildEscalationNotifier(ctx, cfg, natsNotifier, logger)
	if err != nil {
		logger.Error("escalation email disabled", "error", err)
		deps.Notifier = natsNotifier
	}

	in, err := bootstrap.BuildIntake(cfg, deps)
	if err != nil {
		logger.Error("failed to build intake engine", "error", err)
		os.Exit(1)
	}

	turnLimiter := buildTurnLimiter(cfg)
	go bootstrap.RunSweeper(ctx, cfg.SessionSweepInterval, cfg.SessionIdleTTL, logger,
		in.Engine, sweepTarget(turnLimiter))

	// Setup router
	r := router.New(&router.Config{
		Logger:             logger,
		IntakeHandler:      in.Handler,
		WebChat:            in.WebChat,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		TurnLimiter:        turnLimiter,
		HealthCheck:        in.Ping,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// setupIntakeMetrics registers intake metrics on a private registry and
// returns the handler that exposes it.
func setupIntakeMetrics() (http.Handler, *metrics.IntakeMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewIntakeMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), m
}

func buildTurnLimiter(cfg *appconfig.Config) *httpmiddleware.RateLimiter {
	if cfg.TurnRateBurst <= 0 {
		return nil
	}
	return httpmiddleware.NewRateLimiter(cfg.TurnRateLimit, cfg.TurnRateBurst)
}

func sweepTarget(limiter *httpmiddleware.RateLimiter) bootstrap.Evicter {
	if limiter == nil {
		return bootstrap.EvicterFunc(func(time.Duration) int { return 0 })
	}
	return bootstrap.EvicterFunc(limiter.Sweep)
}
