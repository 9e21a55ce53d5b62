package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"licenser/internal/config"
	"licenser/internal/infrastructure"
	"licenser/internal/license"
	"licenser/internal/middleware"
	"licenser/internal/store"
	transport "licenser/internal/transport/http"
	"licenser/pkg/contracts"
)

// AppName is the product name reported at startup.
const AppName = "Licenser"

// Application is the server's dependency container. Everything is
// wired once in NewApplication and torn down in Stop.
type Application struct {
	Config        *config.Config
	Router        chi.Router
	Server        *http.Server
	DB            *gorm.DB
	Licenses      *license.Service
	Workflow      *license.Workflow
	OTelProviders *infrastructure.OTelProviders
	Logger        *slog.Logger
}

// NewApplication creates a new application instance with dependency injection
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version))

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices opens the store and builds the domain services.
func (a *Application) initializeServices() error {
	db, err := store.Open(a.Config.Database.Path, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to open license store: %w", err)
	}
	a.DB = db

	licenses := store.NewLicenseStore(db)
	requests := store.NewActivationRequestStore(db)

	a.Licenses = license.NewService(licenses, requests, a.Logger)
	a.Workflow = license.NewWorkflow(a.Licenses, requests, a.Logger)

	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	otelMiddleware, err := middleware.NewOTelMiddleware(a.OTelProviders)
	if err != nil {
		a.Logger.Error("Failed to create OpenTelemetry middleware",
			slog.String("error", err.Error()))
	}

	deps := transport.RouterDeps{
		Config:   a.Config,
		DB:       a.DB,
		Licenses: a.Licenses,
		Workflow: a.Workflow,
		Prom:     a.OTelProviders.PrometheusHTTP,
		Logger:   a.Logger,
	}
	if otelMiddleware != nil {
		deps.OTel = otelMiddleware
		deps.Metrics = otelMiddleware.Metrics()
	}

	a.Router = transport.NewRouter(deps)
}

// createServer builds the HTTP server around the router.
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Stop gracefully shuts the application down.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				a.Logger.ErrorContext(ctx, "Error closing database",
					slog.String("error", err.Error()))
			}
		}
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry",
				slog.String("error", err.Error()))
		}
	}

	infrastructure.CloseLogFile()

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted. The server goroutine and
// the shutdown waiter are supervised together: a listener failure
// cancels the group and triggers the same graceful teardown as a
// signal.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.Logger.InfoContext(ctx, "Starting server",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("database", a.Config.Database.Path),
		slog.String("level", a.Config.Logging.Level))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return a.Stop(context.Background())
	})

	a.Logger.InfoContext(ctx, "Server started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))

	return g.Wait()
}
