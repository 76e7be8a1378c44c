package ingest

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/impensa/internal/common"
	"github.com/ternarybob/impensa/internal/interfaces"
	"github.com/ternarybob/impensa/internal/models"
)

// Progress logging cadence: the first few files confirm the pass is
// moving, after that only periodic checkpoints.
const (
	progressHead     = 10
	progressInterval = 50
)

// Service runs batch ingestion passes over the document root.
type Service struct {
	classifier interfaces.ClassifierService
	indexer    interfaces.IndexerService
	logger     arbor.ILogger
}

// NewService creates a batch ingestion service.
func NewService(classifier interfaces.ClassifierService, indexer interfaces.IndexerService, logger arbor.ILogger) interfaces.IngestService {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &Service{
		classifier: classifier,
		indexer:    indexer,
		logger:     logger,
	}
}

// Run walks the tree and indexes every eligible file. Per-file failures
// are counted and logged but never abort the pass; the walk itself
// failing (unreadable root, cancellation) does.
func (s *Service) Run(ctx context.Context) (*models.IngestReport, error) {
	start := time.Now()
	log := s.logger.WithCorrelationId(common.NewRunID())
	log.Info().Str("root", s.classifier.Root()).Msg("Starting ingestion pass")

	report := &models.IngestReport{}
	err := s.classifier.Walk(ctx, func(ref *models.FileRef) error {
		if _, indexErr := s.indexer.IndexFile(ctx, ref); indexErr != nil {
			report.Failed++
			log.Warn().Err(indexErr).Str("path", ref.Path).Msg("Failed to index file")
			return nil
		}

		report.Indexed++
		if report.Indexed <= progressHead || report.Indexed%progressInterval == 0 {
			log.Info().
				Int("count", report.Indexed).
				Str("file", ref.FileName).
				Str("level1", ref.Level1).
				Str("level2", ref.Level2).
				Msg("Indexed document")
		}
		return nil
	})

	report.Duration = time.Since(start)
	if err != nil {
		return report, err
	}

	log.Info().
		Int("indexed", report.Indexed).
		Int("failed", report.Failed).
		Str("duration", report.Duration.Round(time.Millisecond).String()).
		Msg("Ingestion pass complete")
	return report, nil
}
