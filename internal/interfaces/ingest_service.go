package interfaces

import (
	"context"

	"github.com/ternarybob/impensa/internal/models"
)

// IngestService runs one full pass over the document root, indexing every
// eligible file. A failing file is logged and skipped; the pass keeps going.
type IngestService interface {
	Run(ctx context.Context) (*models.IngestReport, error)
}
