package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/booking-assistant/cmd/mainconfig"
	"github.com/wolfman30/booking-assistant/internal/api/router"
	"github.com/wolfman30/booking-assistant/internal/booking"
	"github.com/wolfman30/booking-assistant/internal/bookings"
	appconfig "github.com/wolfman30/booking-assistant/internal/config"
	"github.com/wolfman30/booking-assistant/internal/conversation"
	httpmiddleware "github.com/wolfman30/booking-assistant/internal/http/middleware"
	"github.com/wolfman30/booking-assistant/internal/notify"
	"github.com/wolfman30/booking-assistant/internal/session"
	"github.com/wolfman30/booking-assistant/internal/webchat"
	"github.com/wolfman30/booking-assistant/pkg/logging"
)

func main() {
	if err := appconfig.LoadDotenv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking assistant API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"provider", cfg.ExtractionProvider,
		"bookings_store", cfg.BookingsStore,
		"session_store", cfg.SessionStore,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, cleanup, err := buildServer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize server", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildServer wires every component from cfg. cleanup releases pools and
// clients opened along the way.
func buildServer(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*http.Server, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*http.Server, func(), error) {
		cleanup()
		return nil, func() {}, err
	}

	loadAWS := mainconfig.LazyAWSLoader(cfg)
	assistantMetrics, metricsHandler := setupMetrics()
	healthChecks := make(map[string]router.HealthCheck)

	pool, err := mainconfig.ConnectPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fail(err)
	}
	if pool != nil {
		closers = append(closers, pool.Close)
		healthChecks["postgres"] = func(ctx context.Context) error { return pool.Ping(ctx) }
	}

	var redisClient *redis.Client
	if cfg.SessionStore == "redis" {
		redisClient = newRedisClient(cfg)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = redisClient.Close()
			return fail(fmt.Errorf("ping redis: %w", err))
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		healthChecks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	llm, err := mainconfig.BuildLLMClient(ctx, cfg, loadAWS, logger)
	if err != nil {
		return fail(err)
	}
	if closer, ok := llm.Client.(interface{ Close() error }); ok {
		closers = append(closers, func() { _ = closer.Close() })
	}

	bookingStore, err := mainconfig.BuildBookingStore(ctx, cfg, pool, logger)
	if err != nil {
		return fail(err)
	}

	sessionStore, err := buildSessionStore(ctx, cfg, redisClient, loadAWS)
	if err != nil {
		return fail(err)
	}

	emailSender, err := mainconfig.BuildEmailSender(ctx, cfg, loadAWS, logger)
	if err != nil {
		return fail(err)
	}
	if emailSender == nil {
		logger.Warn("email credentials not configured; bookings will save without notifications",
			"provider", cfg.EmailProvider)
	}

	orchestrator := conversation.NewOrchestrator(llm.Client, booking.NewValidator(cfg.Location()),
		conversation.WithProvider(llm.Provider, llm.Model),
		conversation.WithEngineTimeout(cfg.EngineTimeout),
		conversation.WithSlotLister(bookingStore),
		conversation.WithMetrics(assistantMetrics),
		conversation.WithLogger(logger),
	)
	notifier := notify.NewService(emailSender, notify.Config{
		BusinessName:  cfg.BusinessName,
		BusinessEmail: cfg.BusinessEmail,
	}, logger)
	finalizer := bookings.NewFinalizer(bookingStore, notifier,
		bookings.WithFinalizeMetrics(assistantMetrics),
		bookings.WithFinalizeLogger(logger),
	)
	sessions := session.NewService(sessionStore, orchestrator, finalizer, logger)

	var limiter *httpmiddleware.RateLimiter
	if cfg.ChatRatePerMinute > 0 {
		limiter = httpmiddleware.NewRateLimiter(float64(cfg.ChatRatePerMinute)/60, cfg.ChatRateBurst)
		go limiter.RunEviction(ctx)
	}

	r := router.New(&router.Config{
		Logger:             logger,
		ChatHandler:        webchat.NewHandler(sessions, logger),
		SlotsHandler:       bookings.NewSlotsHandler(bookingStore, logger),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ChatLimiter:        limiter,
		HealthChecks:       healthChecks,
	})

	// No WriteTimeout: it would cut hijacked WebSocket connections. Turn
	// routes carry their own timeout.
	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	return srv, cleanup, nil
}
