package interfaces

import (
	"context"

	"github.com/ternarybob/impensa/internal/models"
)

// IndexerService is the single choke point through which both the batch
// pass and the watcher write to the index.
type IndexerService interface {
	// EnsureIndex prepares the target index before first use.
	EnsureIndex(ctx context.Context) error

	// IndexFile hashes, extracts and upserts one classified file. An
	// extraction failure degrades to a title-only record; a hash or
	// upsert failure is returned to the caller, which skips the file.
	IndexFile(ctx context.Context, ref *models.FileRef) (*models.Document, error)
}
