package models

import (
	"time"
)

// Extraction holds the output of the content extraction service for one
// file. All fields default to empty when extraction is skipped (oversized
// file) or fails; Title is then filled from the filename stem by the
// indexer so the record stays searchable by name.
type Extraction struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	MediaType string `json:"media_type"`

	// Skipped marks a title-only result produced without calling the
	// extraction service (file over the size threshold). Skipped results
	// must never be cached: the threshold is configuration, not a property
	// of the bytes, so raising it must make the file extractable again.
	Skipped bool `json:"-"`
}

// CachedExtraction is the persisted form of a successful extraction,
// keyed by content hash. Because the key is the digest of the file bytes,
// a cache hit can never serve stale content: changed bytes mean a new key.
type CachedExtraction struct {
	SHA256    string    `badgerhold:"key" json:"sha256"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	MediaType string    `json:"media_type"`
	CachedAt  time.Time `json:"cached_at"`
}

// Extraction converts the cached record back to extraction output.
func (c *CachedExtraction) Extraction() *Extraction {
	return &Extraction{
		Title:     c.Title,
		Content:   c.Content,
		MediaType: c.MediaType,
	}
}
