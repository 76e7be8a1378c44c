package interfaces

import (
	"context"

	"github.com/ternarybob/impensa/internal/models"
)

// ExtractorService converts a file's bytes into title, plain-text content
// and a media type by calling the external extraction service.
type ExtractorService interface {
	// Extract runs the metadata and text calls for the file at path.
	// Files above the configured size threshold skip the remote calls and
	// come back with a filename-derived title and empty content.
	// Remote failures are retried with bounded backoff; exhaustion returns
	// an error and the caller decides the fallback.
	Extract(ctx context.Context, path string) (*models.Extraction, error)
}
