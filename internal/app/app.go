// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/haloline/slawatch/internal/compliance"
	compliancepostgres "github.com/haloline/slawatch/internal/compliance/postgres"
	"github.com/haloline/slawatch/internal/config"
	"github.com/haloline/slawatch/internal/escalation"
	"github.com/haloline/slawatch/internal/identity"
	identitypostgres "github.com/haloline/slawatch/internal/identity/postgres"
	"github.com/haloline/slawatch/internal/notifications"
	"github.com/haloline/slawatch/internal/notifications/email"
	notificationspostgres "github.com/haloline/slawatch/internal/notifications/postgres"
	"github.com/haloline/slawatch/internal/notifications/webhook"
	"github.com/haloline/slawatch/internal/pkg/ctxlog"
	"github.com/haloline/slawatch/internal/pkg/httputil"
	"github.com/haloline/slawatch/internal/pkg/metrics"
	"github.com/haloline/slawatch/internal/pkg/postgres"
	"github.com/haloline/slawatch/internal/policy"
	policypostgres "github.com/haloline/slawatch/internal/policy/postgres"
	"github.com/haloline/slawatch/internal/sla"
	"github.com/haloline/slawatch/internal/tickets"
	ticketspostgres "github.com/haloline/slawatch/internal/tickets/postgres"
	"github.com/haloline/slawatch/internal/version"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// App represents the application instance.
type App struct {
	config             *config.Config
	logger             *slog.Logger
	db                 *pgxpool.Pool
	server             *http.Server
	metricsServer      *http.Server
	backgroundCancel   context.CancelFunc
	scheduler          *escalation.Scheduler
	notificationWorker *notifications.Worker
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)

	if cfg.Database.MigrateOnStart {
		if err := runMigrations(cfg.Database); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	connectCtx, connectCancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
	defer connectCancel()

	db, err := postgres.Connect(connectCtx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectAttempts: cfg.Database.ConnectAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	backgroundCtx, backgroundCancel := context.WithCancel(context.Background())

	app := &App{
		config:           cfg,
		logger:           logger,
		db:               db,
		backgroundCancel: backgroundCancel,
	}

	go app.collectDBMetrics(backgroundCtx)

	router, err := app.setup(backgroundCtx)
	if err != nil {
		db.Close()
		backgroundCancel()
		return nil, fmt.Errorf("setup: %w", err)
	}

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// Run starts the HTTP servers.
func (a *App) Run() error {
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
	)

	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down")

	a.backgroundCancel()

	// Stop background workers before the servers so in-flight evaluations finish
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.notificationWorker != nil {
		a.notificationWorker.Stop()
	}

	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := a.server.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			mu.Unlock()
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			mu.Unlock()
		}
	}()

	wg.Wait()

	a.db.Close()

	return errors.Join(errs...)
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

func (a *App) setup(ctx context.Context) (*chi.Mux, error) {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	ticketRepo := ticketspostgres.NewRepository(a.db)
	detector := sla.NewDetector(ticketRepo)

	policyRepo := policypostgres.NewRepository(a.db)
	policyService := policy.NewService(policyRepo)
	policyHandler := policy.NewHandler(policyService)

	ticketService := tickets.NewService(ticketRepo, policyService, detector)
	ticketHandler := tickets.NewHandler(ticketService)

	identityRepo := identitypostgres.NewRepository(a.db)
	identityService := identity.NewService(identityRepo)
	identityHandler := identity.NewHandler(identityService)

	complianceRepo := compliancepostgres.NewRepository(a.db)
	complianceService := compliance.NewService(compliance.Config{
		Window:              a.config.SLA.ComplianceWindow,
		RiskWindow:          a.config.SLA.RiskWindow,
		RecentBreachesLimit: a.config.SLA.RecentBreachesLimit,
		OpenTicketLimit:     a.config.SLA.ScanBatchSize,
	}, complianceRepo, ticketRepo)
	complianceHandler := compliance.NewHandler(complianceService)

	notificationsRepo := notificationspostgres.NewRepository(a.db)
	notifier := notifications.NewNotifier(notificationsRepo, a.config.Notifications.Retry.MaxAttempts)

	slog.Info("notifications configured",
		"enabled", a.config.Notifications.Enabled,
		"email_enabled", a.config.Notifications.Email.Enabled,
		"webhook_enabled", a.config.Notifications.Webhook.Enabled,
	)

	if a.config.Notifications.Enabled {
		emailSender, err := email.NewSender(email.Config{
			Enabled:      a.config.Notifications.Email.Enabled,
			SMTPHost:     a.config.Notifications.Email.SMTPHost,
			SMTPPort:     a.config.Notifications.Email.SMTPPort,
			SMTPUser:     a.config.Notifications.Email.SMTPUser,
			SMTPPassword: a.config.Notifications.Email.SMTPPassword,
			FromAddress:  a.config.Notifications.Email.FromAddress,
		})
		if err != nil {
			return nil, fmt.Errorf("create email sender: %w", err)
		}

		if !a.config.Notifications.Email.Enabled {
			slog.Warn("email sender is disabled: escalation emails will not be sent")
		}

		webhookSender, err := webhook.NewSender(webhook.Config{
			Enabled:   a.config.Notifications.Webhook.Enabled,
			URL:       a.config.Notifications.Webhook.URL,
			Timeout:   a.config.Notifications.Webhook.Timeout,
			RateLimit: a.config.Notifications.Webhook.RateLimit,
		})
		if err != nil {
			return nil, fmt.Errorf("create webhook sender: %w", err)
		}

		renderer, err := notifications.NewRenderer()
		if err != nil {
			return nil, fmt.Errorf("create notification renderer: %w", err)
		}

		workerConfig := notifications.WorkerConfig{
			BatchSize:         a.config.Notifications.Worker.BatchSize,
			PollInterval:      a.config.Notifications.Worker.PollInterval,
			MaxAttempts:       a.config.Notifications.Retry.MaxAttempts,
			InitialBackoff:    a.config.Notifications.Retry.InitialBackoff,
			MaxBackoff:        a.config.Notifications.Retry.MaxBackoff,
			BackoffMultiplier: a.config.Notifications.Retry.BackoffMultiplier,
			NumWorkers:        a.config.Notifications.Worker.NumWorkers,
		}

		a.notificationWorker = notifications.NewWorker(workerConfig, notificationsRepo, identityService, renderer, emailSender, webhookSender)
		a.notificationWorker.Start(ctx)

		go a.collectQueueMetrics(ctx, notificationsRepo)
	}

	a.scheduler = escalation.NewScheduler(escalation.Config{
		ScanInterval: a.config.SLA.ScanInterval,
		RiskWindow:   a.config.SLA.RiskWindow,
		BatchSize:    a.config.SLA.ScanBatchSize,
	}, ticketRepo, detector, notifier)
	a.scheduler.Start(ctx)

	r.Route("/api/v1", func(r chi.Router) {
		policyHandler.RegisterRoutes(r)
		ticketHandler.RegisterRoutes(r)
		identityHandler.RegisterRoutes(r)
		complianceHandler.RegisterRoutes(r)
	})

	return r, nil
}

func (a *App) collectDBMetrics(ctx context.Context) {
	// Collect immediately on start
	metrics.RecordDBPoolMetrics(a.db)

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			metrics.RecordDBPoolMetrics(a.db)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) collectQueueMetrics(ctx context.Context, repo notifications.Repository) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats, err := repo.GetQueueStats(ctx)
			if err != nil {
				slog.Error("failed to get queue stats", "error", err)
				continue
			}
			notifications.RecordQueueStats(stats)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.GitCommit,
		"build_date": version.BuildDate,
	})
}

func runMigrations(cfg config.DatabaseConfig) error {
	migrator, err := migrate.New("file://"+cfg.MigrationsPath, cfg.URL)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() { _, _ = migrator.Close() }()

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
