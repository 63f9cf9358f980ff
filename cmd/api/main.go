package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/dentalbook/cmd/mainconfig"
	"github.com/wolfman30/dentalbook/internal/api/router"
	"github.com/wolfman30/dentalbook/internal/app/bootstrap"
	"github.com/wolfman30/dentalbook/internal/appointments"
	"github.com/wolfman30/dentalbook/internal/auth"
	"github.com/wolfman30/dentalbook/internal/booking"
	"github.com/wolfman30/dentalbook/internal/calendar"
	"github.com/wolfman30/dentalbook/internal/clinic"
	appconfig "github.com/wolfman30/dentalbook/internal/config"
	"github.com/wolfman30/dentalbook/internal/dashboard"
	"github.com/wolfman30/dentalbook/internal/http/handlers"
	"github.com/wolfman30/dentalbook/internal/notify"
	"github.com/wolfman30/dentalbook/internal/observability/metrics"
	"github.com/wolfman30/dentalbook/internal/patients"
	"github.com/wolfman30/dentalbook/internal/reports"
	"github.com/wolfman30/dentalbook/pkg/logging"
)

var version = "dev"

func main() {
	if err := appconfig.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting dentalbook API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"memory_store", cfg.UseMemoryStore(),
	)

	ctx := context.Background()
	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      app.Handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
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
}

type app struct {
	Handler http.Handler
	pool    *pgxpool.Pool
	redis   *redis.Client
}

func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

// setupMetrics registers the clinic metrics on a fresh registry together with
// the Go runtime collectors.
func setupMetrics() (http.Handler, prometheus.Gatherer, *metrics.ClinicMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewClinicMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), reg, m
}

func buildApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*app, error) {
	pool, err := bootstrap.BuildPostgresPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient == nil {
		logger.Warn("redis not configured; slot locks, session revocations and clinic profile stay in process memory")
	}
	a := &app{pool: pool, redis: redisClient}

	var awsCfg *aws.Config
	if mainconfig.NeedsAWS(cfg) {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		awsCfg = &loaded
	}

	metricsHandler, gatherer, clinicMetrics := setupMetrics()
	loc := cfg.Location()

	st := bootstrap.BuildStore(pool, logger)
	profiles := bootstrap.BuildClinicStore(redisClient, cfg)
	notifier := notify.NewService(bootstrap.BuildEmailSender(cfg, awsCfg, logger), profiles, logger)

	secret := cfg.AuthJWTSecret
	if secret == "" {
		if cfg.Env == "production" {
			a.Close()
			return nil, fmt.Errorf("AUTH_JWT_SECRET is required in production")
		}
		secret = "dentalbook-dev-secret"
		logger.Warn("AUTH_JWT_SECRET not set; using development secret")
	}
	authSvc := auth.NewService(
		bootstrap.BuildAccounts(pool),
		auth.NewTokens(secret, cfg.SessionTTL),
		bootstrap.BuildRevocations(redisClient),
		clinicMetrics,
		logger,
	)
	if err := authSvc.EnsureAccount(ctx, cfg.BootstrapStaffEmail, cfg.BootstrapStaffPassword, cfg.BootstrapStaffName, auth.RoleAdmin); err != nil {
		a.Close()
		return nil, fmt.Errorf("bootstrap staff account: %w", err)
	}

	bookingSvc := booking.NewService(st, booking.Options{
		Locker:   bootstrap.BuildLocker(redisClient, cfg),
		Notifier: notifier,
		Metrics:  clinicMetrics,
		Logger:   logger,
		Location: loc,
	})

	var counter dashboard.Counter
	if pool != nil {
		counter = dashboard.NewPostgresCounter(pool)
	}

	reportSvc := reports.NewService(
		st,
		profiles,
		reports.NewExporter(nil, clinicMetrics, logger),
		bootstrap.BuildReportArchive(cfg, awsCfg, logger),
		clinicMetrics,
		logger,
	)

	var pgPinger, redisPinger handlers.Pinger
	if pool != nil {
		pgPinger = pool
	}
	if redisClient != nil {
		redisPinger = handlers.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}

	a.Handler = router.New(&router.Config{
		Logger:             logger,
		Health:             handlers.NewHealthHandler(pgPinger, redisPinger, cfg.Env, version),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.AllowOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
		Booking:            booking.NewHandler(bookingSvc, logger),
		Auth:               auth.NewHandler(authSvc, logger),
		Authenticator:      authSvc,
		Dashboard:          dashboard.NewHandler(dashboard.NewService(st, counter, gatherer, logger, loc), logger),
		Clinic:             clinic.NewHandler(profiles, logger),
		Patients:           patients.NewHandler(patients.NewService(st, logger), logger),
		Appointments:       appointments.NewHandler(appointments.NewService(st, clinicMetrics, logger, loc), logger),
		Calendar:           calendar.NewHandler(calendar.NewService(st, notifier, clinicMetrics, logger, loc), logger),
		Reports:            reports.NewHandler(reportSvc, logger),
	})
	return a, nil
}
