package interfaces

import (
	"context"

	"github.com/ternarybob/impensa/internal/models"
)

// ReconcileService compares what is on disk with what the index reports
// and quantifies the drift per category. It never mutates either side.
type ReconcileService interface {
	Report(ctx context.Context) (*models.StatsReport, error)
}
