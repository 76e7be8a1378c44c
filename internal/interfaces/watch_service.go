package interfaces

import "context"

// WatchService mirrors filesystem changes under the document root into
// the index until stopped. Events are applied as they arrive, without
// debouncing: the content-hash keyed upsert makes replays harmless.
type WatchService interface {
	// Start registers watches over the whole tree and begins handling
	// events in the background. It returns once watching is active.
	Start(ctx context.Context) error

	// Stop tears the watches down and waits for in-flight event handling
	// to finish. Safe to call more than once.
	Stop() error
}
