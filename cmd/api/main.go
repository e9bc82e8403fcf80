package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/careportal/cmd/mainconfig"
	"github.com/wolfman30/careportal/internal/api/router"
	"github.com/wolfman30/careportal/internal/app/bootstrap"
	"github.com/wolfman30/careportal/internal/booking"
	appconfig "github.com/wolfman30/careportal/internal/config"
	"github.com/wolfman30/careportal/internal/directory"
	"github.com/wolfman30/careportal/internal/http/handlers"
	"github.com/wolfman30/careportal/internal/observability/metrics"
	"github.com/wolfman30/careportal/internal/portal"
	"github.com/wolfman30/careportal/pkg/logging"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger.Info("starting careportal API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	portalApp, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer portalApp.Close()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      portalApp.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

type app struct {
	handler http.Handler
	pool    *pgxpool.Pool
	redis   *redis.Client
}

func (a *app) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

// buildApp wires every dependency behind the router. ctx bounds background
// work such as the memory session sweeper.
func buildApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*app, error) {
	metricsHandler, listingMetrics, bookingMetrics := setupMetrics()

	pool, err := bootstrap.BuildPostgresPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	a := &app{pool: pool, redis: redisClient}

	// A nil *pgxpool.Pool must not reach the interface parameters below.
	var (
		dirDB    directory.DB
		bookings booking.OutboxDB
	)
	if pool != nil {
		dirDB, bookings = pool, pool
	}

	catalog, err := bootstrap.BuildDirectory(cfg, dirDB, redisClient, directory.Options{
		Logger:  logger.Component("directory"),
		Metrics: listingMetrics,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	flows, err := booking.LoadRegistry(cfg.FlowsFile)
	if err != nil {
		a.Close()
		return nil, err
	}

	store, err := bootstrap.BuildSessionStore(ctx, cfg, redisClient, logger.Component("booking"))
	if err != nil {
		a.Close()
		return nil, err
	}

	queue, err := setupBookingQueue(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	submitter, relay := bootstrap.BuildSubmitter(cfg, bookings, queue, logger)
	if relay != nil {
		go relay.Run(ctx)
		logger.Info("booking outbox relay started")
	}

	svc := booking.NewService(booking.Config{
		Flows:      flows,
		Store:      store,
		Submitter:  submitter,
		Finder:     catalog,
		References: booking.DefaultReferences(),
		Logger:     logger.Component("booking"),
		Metrics:    bookingMetrics,
	})

	access := portal.DefaultAccess()
	a.handler = router.New(&router.Config{
		Logger:             logger,
		Directory:          handlers.NewDirectoryHandler(catalog, access, logger),
		Bookings:           handlers.NewBookingHandler(svc, access, logger),
		PortalJWTSecret:    cfg.PortalJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		MetricsHandler:     metricsHandler,
		HealthChecks:       healthChecks(pool, redisClient),
	})
	if cfg.PortalJWTSecret == "" {
		logger.Warn("PORTAL_JWT_SECRET not set; trusting X-Portal-Role header")
	}
	return a, nil
}

func setupMetrics() (http.Handler, *metrics.ListingMetrics, *metrics.BookingMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	return handler, metrics.NewListingMetrics(reg), metrics.NewBookingMetrics(reg)
}

// setupBookingQueue returns nil when no queue is configured.
func setupBookingQueue(ctx context.Context, cfg *appconfig.Config) (booking.SQSSender, error) {
	if cfg.BookingQueueURL == "" {
		return nil, nil
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return mainconfig.NewBookingQueueClient(awsCfg, cfg), nil
}

func healthChecks(pool *pgxpool.Pool, redisClient *redis.Client) map[string]router.HealthCheck {
	checks := map[string]router.HealthCheck{}
	if pool != nil {
		checks["postgres"] = pool.Ping
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	return checks
}
