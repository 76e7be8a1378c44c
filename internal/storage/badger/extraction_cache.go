package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/impensa/internal/interfaces"
	"github.com/ternarybob/impensa/internal/models"
)

// ExtractionCache implements the ExtractionCache interface on Badger.
// Entries are keyed by content hash, so the cache never needs
// invalidation: changed file bytes simply look up a different key.
type ExtractionCache struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewExtractionCache creates a new ExtractionCache instance
func NewExtractionCache(db *BadgerDB, logger arbor.ILogger) interfaces.ExtractionCache {
	return &ExtractionCache{
		db:     db,
		logger: logger,
	}
}

// Get returns the cached extraction for a content hash, or nil on miss.
func (c *ExtractionCache) Get(ctx context.Context, sha256 string) (*models.Extraction, error) {
	var cached models.CachedExtraction
	if err := c.db.Store().Get(sha256, &cached); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read extraction cache: %w", err)
	}
	return cached.Extraction(), nil
}

// Put stores an extraction under its content hash.
func (c *ExtractionCache) Put(ctx context.Context, sha256 string, extraction *models.Extraction) error {
	if sha256 == "" {
		return fmt.Errorf("content hash is required")
	}

	cached := &models.CachedExtraction{
		SHA256:    sha256,
		Title:     extraction.Title,
		Content:   extraction.Content,
		MediaType: extraction.MediaType,
		CachedAt:  time.Now().UTC(),
	}

	if err := c.db.Store().Upsert(sha256, cached); err != nil {
		return fmt.Errorf("failed to write extraction cache: %w", err)
	}
	return nil
}

// Close closes the underlying store.
func (c *ExtractionCache) Close() error {
	return c.db.Close()
}
