package interfaces

import (
	"context"

	"github.com/ternarybob/impensa/internal/models"
)

// ExtractionCache stores successful extraction output keyed by content
// hash so re-indexing unchanged bytes can skip the extraction service.
// The cache is strictly a performance layer: it never changes what gets
// indexed, and callers degrade to direct extraction on any cache error.
type ExtractionCache interface {
	// Get returns the cached extraction for a content hash, or nil on miss.
	Get(ctx context.Context, sha256 string) (*models.Extraction, error)

	// Put stores a successful extraction under its content hash.
	Put(ctx context.Context, sha256 string, extraction *models.Extraction) error

	// Close releases the underlying store.
	Close() error
}
