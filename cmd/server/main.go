package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dukerupert/shrimptech/internal"
	"github.com/dukerupert/shrimptech/internal/email"
	"github.com/dukerupert/shrimptech/internal/handler/api"
	"github.com/dukerupert/shrimptech/internal/middleware"
	"github.com/dukerupert/shrimptech/internal/router"
	"github.com/dukerupert/shrimptech/internal/routes"
	"github.com/dukerupert/shrimptech/internal/service"
	"github.com/dukerupert/shrimptech/internal/telemetry"
)

const (
	shutdownTimeout = 10 * time.Second
	verifyTimeout   = 15 * time.Second
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	started := time.Now()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize Sentry
	flushSentry, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:              cfg.Sentry.DSN,
		Enabled:          cfg.Sentry.Enabled,
		Environment:      cfg.Sentry.Environment,
		Release:          cfg.Sentry.Release,
		SampleRate:       cfg.Sentry.SampleRate,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
		Debug:            cfg.Sentry.Debug,
	}, logger)
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	defer flushSentry()

	telemetry.InitBusinessMetrics("shrimptech")

	// ==========================================================================
	// Email
	// ==========================================================================

	dispatcherConfig := email.DefaultDispatcherConfig(cfg.Email.Provider)
	dispatcherConfig.MaxConnections = cfg.Email.MaxConnections
	dispatcherConfig.MaxMessagesPerConn = cfg.Email.MaxMessagesPerConn
	dispatcherConfig.RateLimit = cfg.Email.RateLimit
	dispatcherConfig.SendTimeout = cfg.Email.SendTimeout

	dispatcher := email.NewDispatcher(dispatcherConfig, logger)
	defer dispatcher.Shutdown()

	logger.Info("Email provider selected",
		"provider", cfg.Email.Provider.Name,
		"host", cfg.Email.Provider.Host,
		"port", cfg.Email.Provider.Port,
	)

	// A failed check is reported by /api/health; the server still starts.
	verifyCtx, cancelVerify := context.WithTimeout(ctx, verifyTimeout)
	if err := dispatcher.Verify(verifyCtx); err != nil {
		logger.Error("SMTP connection check failed", "error", err, "kind", email.KindOf(err))
	} else {
		logger.Info("SMTP connection verified")
	}
	cancelVerify()

	go dispatcher.Monitor(ctx, cfg.Email.VerifyInterval)

	builder, err := email.NewBuilder(email.BuilderConfig{
		From:         email.Address{Name: cfg.Email.FromName, Email: cfg.Email.FromEmail},
		Admin:        email.Address{Name: cfg.Company.Name, Email: cfg.Email.AdminEmail},
		CompanyName:  cfg.Company.Name,
		Website:      cfg.Company.Website,
		Hotline:      cfg.Company.Hotline,
		SupportEmail: cfg.Company.SupportEmail,
		OfficeHours:  cfg.Company.OfficeHours,
	})
	if err != nil {
		return fmt.Errorf("failed to load email templates: %w", err)
	}

	contactService := service.NewContactService(dispatcher, builder, logger)

	// ==========================================================================
	// Initialize middleware
	// ==========================================================================

	metrics := middleware.NewMetrics("shrimptech", nil)

	store, closeStore, err := newRateLimitStore(cfg.RedisURL, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	submitLimit := middleware.SubmissionRateLimitConfig(store)
	submitLimit.Max = cfg.RateLimit.FormMax
	submitLimit.Window = cfg.RateLimit.FormWindow
	submitLimit.OnLimit = func(*http.Request) { telemetry.RecordRateLimitHit("submit") }

	apiLimit := middleware.APIRateLimitConfig(store)
	apiLimit.Max = cfg.RateLimit.APIMax
	apiLimit.Window = cfg.RateLimit.APIWindow
	apiLimit.OnLimit = func(*http.Request) { telemetry.RecordRateLimitHit("api") }

	proxies, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("failed to parse TRUSTED_PROXIES: %w", err)
	}

	// Configure security headers
	securityConfig := middleware.DefaultSecurityHeadersConfig(cfg.CORS.AllowedOrigins)
	if cfg.Env == "dev" {
		// Relax CSP in development for easier debugging
		securityConfig.ContentSecurityPolicy = ""
		securityConfig.HSTSMaxAge = 0 // Disable HSTS in development
	}

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	r := router.New()
	r.Use(
		middleware.RequestID,
		telemetry.SentryMiddleware(),
		router.Recovery(logger, telemetry.CapturePanic),
		middleware.WithClientIP(proxies),
		middleware.WithRequestLogger(logger),
		router.Logger(logger),
		metrics.Middleware,
		middleware.SecurityHeaders(securityConfig),
		middleware.CORS(middleware.DefaultCORSConfig(cfg.CORS.AllowedOrigins)),
	)

	routes.RegisterAPIRoutes(r, routes.APIDeps{
		ContactHandler: api.NewContactHandler(contactService, logger),
		HealthHandler:  api.NewHealthHandler(dispatcher, started),
		StatusHandler: api.NewStatusHandler(api.StatusInfo{
			Version:     cfg.Version,
			Environment: cfg.Env,
			Security: api.SecurityInfo{
				CORSOrigins:       cfg.CORS.AllowedOrigins,
				RateLimit:         fmt.Sprintf("%d requests per %s", apiLimit.Max, apiLimit.Window),
				SubmissionLimit:   fmt.Sprintf("%d submissions per %s", submitLimit.Max, submitLimit.Window),
				SharedRateLimiter: cfg.RedisURL != "",
				SecurityHeaders:   true,
				InputValidation:   true,
				InputSanitization: true,
			},
		}),
		APILimit:    apiLimit,
		SubmitLimit: submitLimit,
		// Two sequential sends must fit inside the request deadline.
		SubmitTimeout: 2*cfg.Email.SendTimeout + 5*time.Second,
	})

	routes.RegisterSiteRoutes(r, routes.SiteDeps{
		StaticDir:      cfg.StaticDir,
		MetricsHandler: metrics.Handler(),
	})

	// ==========================================================================
	// Start server
	// ==========================================================================

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server",
			"address", srv.Addr,
			"env", cfg.Env,
			"version", cfg.Version,
		)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("Server stopped")

	return nil
}

// newRateLimitStore returns a Redis-backed store when redisURL is set and an
// in-memory store otherwise. The returned func releases the store.
func newRateLimitStore(redisURL string, logger *slog.Logger) (middleware.Store, func(), error) {
	memory := middleware.NewMemoryStore(time.Minute)

	if redisURL == "" {
		logger.Info("Rate limiter using in-memory store")
		return memory, memory.Stop, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		memory.Stop()
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		// Keep going; the store falls back to memory until Redis answers.
		logger.Warn("Redis unreachable, rate limiter will fall back to memory", "error", err)
	} else {
		logger.Info("Rate limiter using Redis", "addr", opts.Addr)
	}

	closeStore := func() {
		memory.Stop()
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close Redis client", "error", err)
		}
	}

	return middleware.NewRedisStore(client, memory, logger), closeStore, nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
