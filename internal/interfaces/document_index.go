package interfaces

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ternarybob/impensa/internal/models"
)

// ErrDocumentNotFound is returned when the index holds no record for the
// requested identifier.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentIndex is the external full-text index holding Document records.
// Writes are keyed by content hash, so repeated upserts of identical
// bytes converge to a single record.
type DocumentIndex interface {
	// EnsureIndex verifies the index exists and creates it from the
	// configured mapping when absent. Any unexpected status from the
	// existence check is a configuration error, not retryable.
	EnsureIndex(ctx context.Context) error

	// UpsertDocument writes the record under its content hash, retrying
	// transient failures with bounded backoff.
	UpsertDocument(ctx context.Context, doc *models.Document) error

	// GetDocument fetches the stored source of one record by id.
	// Returns ErrDocumentNotFound when the index has no such record.
	GetDocument(ctx context.Context, id string) (json.RawMessage, error)

	// Search executes a raw query body against the index and returns the
	// response verbatim.
	Search(ctx context.Context, body map[string]interface{}) (json.RawMessage, error)

	// CategoryCounts aggregates document counts per category bucket.
	CategoryCounts(ctx context.Context) (*models.IndexStats, error)

	// ApplyHighlightSettings pushes the highlight analysis limit to the
	// index. Best-effort: callers log failures and continue.
	ApplyHighlightSettings(ctx context.Context) error
}
