package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/impensa/internal/common"
	"github.com/ternarybob/impensa/internal/handlers"
	"github.com/ternarybob/impensa/internal/interfaces"
	"github.com/ternarybob/impensa/internal/services/classifier"
	"github.com/ternarybob/impensa/internal/services/opensearch"
	"github.com/ternarybob/impensa/internal/services/reconcile"
	"github.com/ternarybob/impensa/internal/services/scheduler"
)

// App holds the API server's components and dependencies. Ingestion runs in
// its own binary; the server only reads the index and the document tree.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Services
	Index             interfaces.DocumentIndex
	ClassifierService interfaces.ClassifierService
	ReconcileService  interfaces.ReconcileService
	SchedulerService  interfaces.SchedulerService

	// HTTP handlers
	APIHandler      *handlers.APIHandler
	SearchHandler   *handlers.SearchHandler
	DocumentHandler *handlers.DocumentHandler
	FileHandler     *handlers.FileHandler
	StatsHandler    *handlers.StatsHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	app.initServices()
	app.initHandlers()

	if err := app.initScheduler(); err != nil {
		return nil, err
	}

	// The highlight analysis limit must be raised before large documents are
	// highlighted. Pushing it once here keeps it off the search request path;
	// the index may still be starting, so failure is only a warning.
	common.SafeGo(logger, "highlight-settings", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := app.Index.ApplyHighlightSettings(ctx); err != nil {
			logger.Warn().Err(err).Msg("Failed to apply highlight settings, large documents may not highlight")
		}
	})

	logger.Info().
		Str("index", cfg.Index.Name).
		Str("doc_root", cfg.Documents.Root).
		Msg("Application initialization complete")

	return app, nil
}

// initServices initializes the business services in dependency order.
func (a *App) initServices() {
	a.Index = opensearch.NewClient(
		opensearch.WithBaseURL(a.Config.Index.URL),
		opensearch.WithIndexName(a.Config.Index.Name),
		opensearch.WithMappingFile(a.Config.Index.MappingFile),
		opensearch.WithTimeouts(
			time.Duration(a.Config.Index.RequestTimeoutSeconds)*time.Second,
			time.Duration(a.Config.Index.UpsertTimeoutSeconds)*time.Second,
		),
		opensearch.WithLogger(a.Logger),
	)
	a.Logger.Debug().
		Str("url", a.Config.Index.URL).
		Str("index", a.Config.Index.Name).
		Msg("Index client initialized")

	a.ClassifierService = classifier.NewService(a.Config, a.Logger)
	a.ReconcileService = reconcile.NewService(a.ClassifierService, a.Index, a.Logger)
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler()
	a.SearchHandler = handlers.NewSearchHandler(a.Index, a.Logger)
	a.DocumentHandler = handlers.NewDocumentHandler(a.Index, a.Logger)
	a.FileHandler = handlers.NewFileHandler(a.Config.Documents.Root, a.Logger)
	a.StatsHandler = handlers.NewStatsHandler(a.ReconcileService, a.Logger)
}

// initScheduler registers the periodic reconciliation job when enabled.
func (a *App) initScheduler() error {
	if !a.Config.Reconcile.Enabled {
		a.Logger.Debug().Msg("Reconciliation schedule disabled")
		return nil
	}

	a.SchedulerService = scheduler.NewService(a.Logger)

	err := a.SchedulerService.RegisterJob("reconcile", a.Config.Reconcile.Schedule, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		report, err := a.ReconcileService.Report(ctx)
		if err != nil {
			return err
		}

		a.Logger.Info().
			Int("disk_total", report.Disk.Total).
			Int("index_total", report.Index.Total).
			Int("missing", report.Diff.TotalMissing).
			Msg("Reconciliation report")
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to register reconcile job: %w", err)
	}

	if err := a.SchedulerService.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	a.Logger.Debug().
		Str("schedule", a.Config.Reconcile.Schedule).
		Msg("Reconciliation schedule started")
	return nil
}

// Close stops background components.
func (a *App) Close() error {
	if a.SchedulerService != nil && a.SchedulerService.IsRunning() {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler service")
		}
	}
	return nil
}
