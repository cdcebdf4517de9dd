package app

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"survdash/internal/config"
	apierrors "survdash/internal/errors"
	"survdash/internal/infrastructure"
	customMiddleware "survdash/internal/middleware"
	"survdash/internal/services"
	handlers "survdash/internal/transport/http"
	"survdash/internal/validation"
	ws "survdash/internal/websocket"
	"survdash/pkg/contracts"
)

var (
	// BuildTime is the process start, unless set at compile time
	BuildTime = contracts.BuildTime
	// BuildID is a unique identifier for this build
	BuildID = generateBuildID()
)

func generateBuildID() string {
	// Deterministic for a given version and day
	h := sha256.New()
	h.Write([]byte(contracts.Version))
	h.Write([]byte(time.Now().Format("2006-01-02")))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

// Application represents the main application container
type Application struct {
	Config           *config.Config
	Paths            *config.Paths
	Router           *chi.Mux
	Server           *http.Server
	Logger           *slog.Logger
	OTelProviders    *infrastructure.OTelProviders
	BusinessMetrics  *infrastructure.BusinessMetrics
	SystemMetrics    *infrastructure.SystemMetrics
	Store            *services.DatasetStore
	WebSocketHub     *ws.Hub
	Events           *ws.EventAdapter
	DashboardService *services.DashboardService
	HealthService    *services.HealthService
	ErrorHandler     *apierrors.ErrorHandler
}

// NewApplication loads the configuration and builds the application
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	cfg.Logging.FilePath = paths.LogFile(cfg.Logging.FilePath)

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger)
}

// New wires every component for cfg. The dataset store sweeper and the
// WebSocket hub are running when New returns; Stop releases them.
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version))

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	otelProviders, err := infrastructure.InitializeOTel(
		infrastructure.OTelConfigFrom(cfg.Telemetry, contracts.Version), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		ErrorHandler:  apierrors.NewErrorHandler(logger, cfg.Logging.Development),
	}

	if err := app.initializeServices(); err != nil {
		app.shutdownServices(context.Background())
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	metrics, err := infrastructure.CreateBusinessMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create business metrics: %w", err)
	}
	a.BusinessMetrics = metrics

	wsMetrics, err := ws.NewOTelMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create WebSocket metrics: %w", err)
	}
	hub := ws.NewHub(a.Logger, wsMetrics)
	hub.Start()
	a.WebSocketHub = hub
	a.Events = ws.NewEventAdapter(hub, a.Logger)

	a.Store = services.NewDatasetStore(services.StoreConfig{
		TTL:           a.Config.Store.TTL,
		MaxDatasets:   a.Config.Store.MaxDatasets,
		SweepSchedule: a.Config.Store.SweepSchedule,
	}, a.Logger, metrics)
	if err := a.Store.Start(); err != nil {
		return fmt.Errorf("failed to start dataset store: %w", err)
	}

	a.SystemMetrics, err = infrastructure.NewSystemMetrics(a.OTelProviders.Meter, infrastructure.GaugeSources{
		ActiveDatasets: a.Store.Len,
		StartTime:      time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to register system metrics: %w", err)
	}

	a.DashboardService = services.NewDashboardService(a.Config, a.Store, a.Events, metrics, a.Logger)

	a.HealthService = services.NewHealthService(services.BuildInfo{
		Version:   contracts.Version,
		RepoURL:   contracts.RepoURL,
		BuildTime: BuildTime,
		BuildID:   BuildID,
	}, a.Store, hub, a.Logger)

	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Middleware that does not wrap the ResponseWriter, safe for WebSocket upgrades
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.StripSlashes)

	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).
		Handle("/ws", ws.NewHandler(a.WebSocketHub, a.Config.WebSocket, a.allowedOrigins(), a.Logger))

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle(a.metricsPath(), a.OTelProviders.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		// RequestID, RealIP, StripSlashes, then OTel, Logger, Recoverer, Security, CORS, RateLimit, Timeout, Compress
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders, a.BusinessMetrics).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.ErrorHandler))
		r.Use(customMiddleware.DefaultSecureHeaders().Handler)
		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}
		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
				a.ErrorHandler,
			).Handler)
		}
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.ErrorHandler))
		r.Use(customMiddleware.Compress(5, "application/json", "text/csv", "text/plain"))

		a.setupAPIRoutes(r)
	})

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
	dashboardHandler := handlers.NewDashboardHandler(a.DashboardService, a.Config.Ingest.MaxUploadBytes, a.Logger, a.ErrorHandler)
	metricsHandler := handlers.NewMetricsHandler(a.DashboardService, a.WebSocketHub)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/ready", healthHandler.ReadinessCheck)
		r.Get("/health/live", healthHandler.LivenessCheck)
		r.Get("/version", healthHandler.Version)
		r.Mount("/stats", metricsHandler.Routes())

		r.With(customMiddleware.ContentTypeValidator(a.ErrorHandler, "multipart/form-data")).
			Post("/analyze", dashboardHandler.Analyze)
		r.Mount("/datasets", dashboardHandler.Routes())
	})
}

func (a *Application) metricsPath() string {
	if a.Config.Telemetry.MetricsPath != "" {
		return a.Config.Telemetry.MetricsPath
	}
	return "/metrics"
}

func (a *Application) allowedOrigins() []string {
	if !a.Config.Security.EnableCORS {
		return nil
	}
	return a.Config.Security.AllowedOrigins
}

// getCORSConfig returns CORS configuration from the security section
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.allowedOrigins(),
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
			"Content-Disposition",
			"Location",
		},
		MaxAge: 300,
		Logger: a.Logger,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Server.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts serving in the background. A listener failure cancels ctx
// through cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.String("address", a.Server.Addr),
		slog.String("level", a.Config.Logging.Level))

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if a.Events != nil {
		a.Events.PublishStatus(ctx, "shutting_down", map[string]interface{}{
			"active_datasets": a.Store.Len(),
		})
	}

	var serverErr error
	if a.Server != nil {
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			serverErr = fmt.Errorf("server shutdown error: %w", err)
		}
	}

	a.shutdownServices(shutdownCtx)

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return serverErr
}

// shutdownServices stops whatever initializeServices managed to start
func (a *Application) shutdownServices(ctx context.Context) {
	if a.DashboardService != nil {
		a.DashboardService.Close()
	} else if a.Store != nil {
		a.Store.Stop()
	}

	if a.WebSocketHub != nil {
		a.WebSocketHub.Stop()
	}

	if err := a.SystemMetrics.Stop(); err != nil {
		a.Logger.ErrorContext(ctx, "Error stopping system metrics", slog.String("error", err.Error()))
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(ctx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "Server stopped unexpectedly")
	}

	err := a.Stop(context.Background())
	infrastructure.CloseLogFile()
	return err
}

// performStartupHealthCheck verifies the export directory is writable
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	v := validation.NewFileValidator(a.Logger, a.Config.Ingest)
	if err := v.ValidateOutputDirectory(a.Paths.ExportsDir); err != nil {
		return fmt.Errorf("startup health check failed: %w", err)
	}

	a.Logger.DebugContext(ctx, "Startup health check passed",
		slog.String("exports_dir", a.Paths.ExportsDir))
	return nil
}
