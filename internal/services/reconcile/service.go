package reconcile

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/impensa/internal/common"
	"github.com/ternarybob/impensa/internal/interfaces"
	"github.com/ternarybob/impensa/internal/models"
)

// Service builds drift reports between the document tree and the index.
// The two sides are read independently, so the diff is a point-in-time
// approximation; positive values mean under-indexed files, negative
// values mean index entries whose files are gone.
type Service struct {
	classifier interfaces.ClassifierService
	index      interfaces.DocumentIndex
	logger     arbor.ILogger
}

// NewService creates a reconciliation service.
func NewService(classifier interfaces.ClassifierService, index interfaces.DocumentIndex, logger arbor.ILogger) interfaces.ReconcileService {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &Service{
		classifier: classifier,
		index:      index,
		logger:     logger,
	}
}

// Report scans the tree, aggregates the index, and returns both with the
// per-category difference. A disk scan cannot fail (a missing root
// counts as empty); an unreachable index can and does.
func (s *Service) Report(ctx context.Context) (*models.StatsReport, error) {
	disk := s.classifier.DiskStats(ctx)

	indexStats, err := s.index.CategoryCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch index stats: %w", err)
	}

	diff := &models.StatsDiff{
		TotalMissing:    disk.Total - indexStats.Total,
		ByLevel1Missing: diffMaps(disk.ByLevel1, indexStats.ByLevel1),
		ByLevel2Missing: diffMaps(disk.ByLevel2, indexStats.ByLevel2),
	}

	s.logger.Debug().
		Int("disk_total", disk.Total).
		Int("index_total", indexStats.Total).
		Int("total_missing", diff.TotalMissing).
		Msg("Reconciliation report built")

	return &models.StatsReport{
		DocRoot: disk.Root,
		Disk:    disk,
		Index:   indexStats,
		Diff:    diff,
	}, nil
}

// diffMaps subtracts index counts from disk counts over the union of
// both key sets, so categories present on only one side still show up.
func diffMaps(disk, index map[string]int) map[string]int {
	diff := make(map[string]int, len(disk))
	for key, count := range disk {
		diff[key] = count - index[key]
	}
	for key, count := range index {
		if _, ok := disk[key]; !ok {
			diff[key] = -count
		}
	}
	return diff
}
