package interfaces

import (
	"context"

	"github.com/ternarybob/impensa/internal/models"
)

// ClassifierService discovers and classifies files under the document root.
// Classification is purely positional: the first two path segments below
// the root are the category labels, and anything shallower is ineligible.
type ClassifierService interface {
	// Root returns the resolved absolute document root. Path containment
	// checks elsewhere (file serving, watcher events) use this value.
	Root() string

	// Walk traverses the document root depth-first and invokes fn once per
	// eligible file. Branches excluded by the category allow-lists are
	// pruned before descent. The walk stops early when fn returns an error,
	// when the configured document cap is reached, or when ctx is done.
	Walk(ctx context.Context, fn func(ref *models.FileRef) error) error

	// Classify evaluates a single path against the eligibility rules and
	// derives its categories. Returns false for ineligible paths (wrong
	// extension, hidden or lock entries, insufficient depth, filtered
	// categories) - never an error.
	Classify(path string) (*models.FileRef, bool)

	// DiskStats counts eligible files per category across the whole tree,
	// ignoring the document cap and the category allow-lists. A missing
	// root yields empty stats.
	DiskStats(ctx context.Context) *models.DiskStats
}
