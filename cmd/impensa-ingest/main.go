package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/impensa/internal/common"
	"github.com/ternarybob/impensa/internal/interfaces"
	"github.com/ternarybob/impensa/internal/services/classifier"
	"github.com/ternarybob/impensa/internal/services/extractor"
	"github.com/ternarybob/impensa/internal/services/indexer"
	"github.com/ternarybob/impensa/internal/services/ingest"
	"github.com/ternarybob/impensa/internal/services/opensearch"
	"github.com/ternarybob/impensa/internal/services/pdf"
	"github.com/ternarybob/impensa/internal/services/reconcile"
	"github.com/ternarybob/impensa/internal/services/scheduler"
	"github.com/ternarybob/impensa/internal/storage/badger"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles configPaths // Multiple -config flags supported
	runInitial  = flag.Bool("initial", true, "Run a full ingestion pass over the document tree")
	runWatch    = flag.Bool("watch", false, "Keep watching the tree for changes after the initial pass")
	docRoot     = flag.String("root", "", "Document root (overrides config)")
	showVersion = flag.Bool("version", false, "Print version information")

	// Global state
	config *common.Config
	logger arbor.ILogger
)

func init() {
	// Register custom flag for multiple config files
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	defer common.RecoverWithCrashFile()

	flag.Parse()

	// Handle version flag
	if *showVersion {
		fmt.Printf("Impensa ingest version %s\n", common.GetVersion())
		os.Exit(0)
	}

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("impensa.toml"); err == nil {
			configFiles = append(configFiles, "impensa.toml")
		} else if _, err := os.Stat("deployments/impensa.toml"); err == nil {
			configFiles = append(configFiles, "deployments/impensa.toml")
		}
	}

	// Load configuration (default -> file1 -> file2 -> ... -> env -> CLI)
	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	// Apply command-line flag overrides (highest priority)
	if *docRoot != "" {
		config.Documents.Root = *docRoot
	}

	// Initialize logger with final configuration
	logger = common.InitLogger(config)
	common.ServiceName = "impensa-ingest"
	common.InstallCrashHandler("logs")
	common.SetCrashContext("document_root", config.Documents.Root)
	common.SetCrashContext("index", config.Index.Name)
	common.SetCrashContext("mode", fmt.Sprintf("initial=%t watch=%t", *runInitial, *runWatch))

	common.PrintBanner(common.GetVersion())

	if !*runInitial && !*runWatch {
		logger.Warn().Msg("Nothing to do: both -initial and -watch are disabled")
		return
	}

	logger.Info().
		Strs("config_files", configFiles).
		Str("doc_root", config.Documents.Root).
		Bool("initial", *runInitial).
		Bool("watch", *runWatch).
		Msg("Ingest configuration loaded")

	// Wire the ingestion pipeline: classifier -> extractor -> cache -> index.
	classifierSvc := classifier.NewService(config, logger)

	extractorClient := extractor.NewClient(
		extractor.WithBaseURL(config.Extractor.URL),
		extractor.WithTimeouts(
			time.Duration(config.Extractor.MetadataTimeoutSeconds)*time.Second,
			time.Duration(config.Extractor.TextTimeoutSeconds)*time.Second,
		),
		extractor.WithMaxExtractMB(config.Documents.MaxExtractMB),
		extractor.WithRateLimit(config.Extractor.RequestsPerSecond),
		extractor.WithLogger(logger),
	)

	index := opensearch.NewClient(
		opensearch.WithBaseURL(config.Index.URL),
		opensearch.WithIndexName(config.Index.Name),
		opensearch.WithMappingFile(config.Index.MappingFile),
		opensearch.WithTimeouts(
			time.Duration(config.Index.RequestTimeoutSeconds)*time.Second,
			time.Duration(config.Index.UpsertTimeoutSeconds)*time.Second,
		),
		opensearch.WithLogger(logger),
	)

	// The extraction cache is an optimization; a broken cache store must not
	// block ingestion.
	var cache interfaces.ExtractionCache
	if config.Cache.Enabled {
		cacheDB, err := badger.NewBadgerDB(logger, &config.Cache)
		if err != nil {
			logger.Warn().Err(err).Msg("Extraction cache unavailable, continuing without cache")
		} else {
			defer cacheDB.Close()
			cache = badger.NewExtractionCache(cacheDB, logger)
		}
	}

	indexerSvc := indexer.NewService(extractorClient, index, cache, pdf.NewService(logger), logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The index must exist with the right mapping before the first upsert.
	if err := index.EnsureIndex(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ensure index")
	}

	if *runInitial {
		ingestSvc := ingest.NewService(classifierSvc, indexerSvc, logger)
		report, err := ingestSvc.Run(ctx)
		if err != nil {
			logger.Fatal().Err(err).
				Int("indexed", report.Indexed).
				Int("failed", report.Failed).
				Msg("Ingestion pass aborted")
		}
		logger.Info().
			Int("indexed", report.Indexed).
			Int("failed", report.Failed).
			Str("duration", report.Duration.Round(time.Millisecond).String()).
			Msg("Ingestion pass finished")
	}

	if !*runWatch {
		return
	}

	watcher := ingest.NewWatcher(classifierSvc, indexerSvc, logger)
	if err := watcher.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start watcher")
	}

	// In watch mode the process is long-lived, so the periodic
	// reconciliation run lives here too: it logs per-category drift
	// between the tree and the index while the watcher keeps them in sync.
	var schedulerSvc interfaces.SchedulerService
	if config.Reconcile.Enabled {
		reconcileSvc := reconcile.NewService(classifierSvc, index, logger)
		schedulerSvc = scheduler.NewService(logger)

		err := schedulerSvc.RegisterJob("reconcile", config.Reconcile.Schedule, func() error {
			jobCtx, jobCancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer jobCancel()

			report, err := reconcileSvc.Report(jobCtx)
			if err != nil {
				return err
			}
			log := logger.WithCorrelationId(common.NewRunID())
			log.Info().
				Int("disk_total", report.Disk.Total).
				Int("index_total", report.Index.Total).
				Int("missing", report.Diff.TotalMissing).
				Msg("Reconciliation report")
			for level1, missing := range report.Diff.ByLevel1Missing {
				if missing != 0 {
					log.Info().Str("level1", level1).Int("missing", missing).Msg("Category drift")
				}
			}
			return nil
		})
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to register reconcile job")
		} else if err := schedulerSvc.Start(); err != nil {
			logger.Warn().Err(err).Msg("Failed to start scheduler")
		} else {
			logger.Info().Str("schedule", config.Reconcile.Schedule).Msg("Reconciliation schedule started")
		}
	}

	logger.Info().
		Str("doc_root", config.Documents.Root).
		Msg("Watching for document changes - Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Interrupt signal received")

	if schedulerSvc != nil && schedulerSvc.IsRunning() {
		if err := schedulerSvc.Stop(); err != nil {
			logger.Warn().Err(err).Msg("Scheduler shutdown failed")
		}
	}
	if err := watcher.Stop(); err != nil {
		logger.Error().Err(err).Msg("Watcher shutdown failed")
	}

	logger.Info().Msg("Watcher stopped")
}
