package app

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"retailbonds/internal/catalog"
	"retailbonds/internal/config"
	"retailbonds/internal/dataprocessing"
	apierrors "retailbonds/internal/errors"
	"retailbonds/internal/infrastructure"
	customMiddleware "retailbonds/internal/middleware"
	"retailbonds/internal/services"
	handlers "retailbonds/internal/transport/http"
	"retailbonds/internal/validation"
)

const (
	AppName = "Retail Bonds Valuation Service"
	RepoURL = "https://github.com/retailbonds/retailbonds"
)

var (
	// Version and BuildTime are set at link time with -ldflags -X.
	Version   = "dev"
	BuildTime = ""
	// BuildID is a unique identifier for this build
	BuildID = generateBuildID()
)

func generateBuildID() string {
	h := sha256.New()
	h.Write([]byte(Version))
	h.Write([]byte(BuildTime))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	ErrorHandler  *apierrors.ErrorHandler
	Catalog       *catalog.Holder
	Builder       *catalog.Builder
	Watcher       *catalog.Watcher
	Services      *ServiceContainer
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Bonds  *services.BondService
	Health *services.HealthService
}

// SourceFromConfig turns the source section of the configuration into the
// extractor's source and series table.
func SourceFromConfig(sc config.SourceConfig) (dataprocessing.Source, []dataprocessing.SeriesSpec) {
	src := dataprocessing.Source{Kind: dataprocessing.SourceKind(sc.Kind), Path: sc.Path}
	return src, dataprocessing.SeriesFromMap(sc.SeriesTenors())
}

// NewApplication loads the configuration, initializes the global logger and
// builds the application around it.
func NewApplication(ctx context.Context) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, apierrors.NewConfigError("failed to load configuration", err)
	}
	if err := cfg.RequireSource(); err != nil {
		return nil, apierrors.NewConfigError("invalid configuration", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, apierrors.NewConfigError("failed to initialize logger", err)
	}
	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", Version),
		slog.String("build_id", BuildID))

	return New(ctx, cfg, logger)
}

// New wires an application from an explicit configuration. The initial
// catalog is built synchronously; a build failure aborts startup.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry, Version), logger)
	if err != nil {
		return nil, apierrors.NewConfigError("failed to initialize OpenTelemetry", err)
	}
	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		ErrorHandler:  apierrors.NewErrorHandler(logger, cfg.Telemetry.Environment == "development"),
	}

	if err := app.initializeCatalog(ctx); err != nil {
		_ = otelProviders.Shutdown(ctx)
		return nil, err
	}
	app.initializeServices()
	app.setupRouter()
	app.createServer()
	return app, nil
}

func (a *Application) initializeCatalog(ctx context.Context) error {
	src, specs := SourceFromConfig(a.Config.Source)
	a.Builder = catalog.NewBuilder(a.Logger, a.Metrics)

	src, err := validation.NewFileValidator(a.Logger).ValidateSource(src)
	var initial *catalog.Catalog
	if err == nil {
		initial, err = a.Builder.Build(ctx, src, specs)
	}
	if err != nil {
		appErr := apierrors.ClassifyBuildError(err)
		a.Logger.ErrorContext(ctx, "initial catalog build failed",
			slog.String("source", src.String()),
			slog.String("error_type", string(appErr.Type)),
			slog.Any("context", appErr.Context))
		return appErr
	}
	a.Catalog = catalog.NewHolder(initial)

	if a.Config.Source.Watch {
		a.Watcher = catalog.NewWatcher(a.Builder, a.Catalog, src, specs, a.Config.Source.WatchDebounce, a.Logger)
	}
	return nil
}

func (a *Application) initializeServices() {
	a.Services = &ServiceContainer{
		Bonds: services.NewBondService(a.Catalog, a.Metrics, a.Logger),
		Health: services.NewHealthService(services.BuildInfo{
			Version:   Version,
			RepoURL:   RepoURL,
			BuildTime: BuildTime,
			BuildID:   BuildID,
		}, a.Config.Source.Path, a.Catalog, a.Logger),
	}
}

// setupRouter configures the HTTP router with all routes. Middleware order:
// RequestID, RealIP, OTel, Logger, Recoverer, SecurityHeaders, CORS,
// RateLimiter, Timeout.
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.ErrorHandler))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
				AllowedOrigins: a.Config.Security.AllowedOrigins,
				Logger:         a.Logger,
			}))
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
		r.Use(customMiddleware.Compress(5, "application/json", "text/csv"))

		bondHandler := handlers.NewBondHandler(a.Services.Bonds, a.Logger, a.ErrorHandler)
		r.Mount("/bonds", bondHandler.Routes())
		r.Get("/catalog", bondHandler.GetCatalog)
		r.Route("/api", handlers.NewHealthHandler(a.Services.Health, a.Logger).Routes)
	})

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}
	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	a.Router = r
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Serve runs the HTTP server on ln, and the source watcher when enabled,
// until ctx is cancelled or one of them fails. It then shuts down.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfoContext(gctx, "HTTP server listening",
			slog.String("address", ln.Addr().String()),
			slog.Int("instruments", a.Catalog.Current().Len()))
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if a.Watcher != nil {
		g.Go(func() error {
			// The current catalog stays served when the source cannot be watched.
			if err := a.Watcher.Run(gctx); err != nil {
				a.Logger.ErrorContext(gctx, "catalog watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return a.Stop(context.WithoutCancel(gctx))
	})

	return g.Wait()
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run listens on the configured port and serves until SIGINT or SIGTERM.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.Server.Addr, err)
	}

	start := time.Now()
	err = a.Serve(ctx, ln)
	a.Logger.Info("Application stopped", slog.Duration("uptime", time.Since(start)))
	return err
}
