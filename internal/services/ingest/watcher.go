package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/impensa/internal/common"
	"github.com/ternarybob/impensa/internal/interfaces"
)

// Watcher mirrors filesystem changes under the document root into the
// index. fsnotify has no recursive mode, so every directory in the tree
// gets its own watch and new directories are added as they appear.
// Events run through the same classification rules as the batch walk;
// anything the rules reject is dropped quietly.
type Watcher struct {
	classifier interfaces.ClassifierService
	indexer    interfaces.IndexerService
	logger     arbor.ILogger

	fsWatcher *fsnotify.Watcher
	stopCh    chan struct{}
	wg        sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewWatcher creates a watch service over the classifier's root.
func NewWatcher(classifier interfaces.ClassifierService, indexer interfaces.IndexerService, logger arbor.ILogger) interfaces.WatchService {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &Watcher{
		classifier: classifier,
		indexer:    indexer,
		logger:     logger,
		stopCh:     make(chan struct{}),
	}
}

// Start registers watches over the whole tree and begins handling events
// in the background. The root must exist; a tree that cannot be watched
// at startup is a configuration error.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return fmt.Errorf("watcher already started")
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}

	if err := w.addRecursive(fsWatcher, w.classifier.Root()); err != nil {
		fsWatcher.Close()
		return fmt.Errorf("failed to watch %s: %w", w.classifier.Root(), err)
	}

	w.fsWatcher = fsWatcher
	w.started = true

	w.wg.Add(1)
	common.SafeGo(w.logger, "document-watcher", func() {
		defer w.wg.Done()
		w.loop(ctx)
	})

	w.logger.Info().Str("root", w.classifier.Root()).Msg("Watching for document changes")
	return nil
}

// Stop tears the watches down and waits for in-flight event handling to
// finish.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.started || w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	close(w.stopCh)
	err := w.fsWatcher.Close()
	w.mu.Unlock()

	w.wg.Wait()
	w.logger.Info().Msg("Document watcher stopped")
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("Filesystem watcher error")
		}
	}
}

// handleEvent reacts to one filesystem event. Only creates and writes
// matter: removals and renames leave the index alone, reconciliation
// reports the drift instead.
func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		// Gone already (editors often create and remove scratch files).
		return
	}

	if info.IsDir() {
		if event.Op&fsnotify.Create != 0 && !strings.HasPrefix(filepath.Base(event.Name), ".") {
			if err := w.addRecursive(w.fsWatcher, event.Name); err != nil {
				w.logger.Warn().Err(err).Str("path", event.Name).Msg("Failed to watch new directory")
			}
		}
		return
	}

	ref, ok := w.classifier.Classify(event.Name)
	if !ok {
		w.logger.Debug().Str("path", event.Name).Msg("Ignoring ineligible file event")
		return
	}

	if _, err := w.indexer.IndexFile(ctx, ref); err != nil {
		w.logger.Warn().Err(err).Str("path", event.Name).Msg("Failed to index changed file")
		return
	}
	w.logger.Info().
		Str("file", ref.FileName).
		Str("level1", ref.Level1).
		Str("level2", ref.Level2).
		Msg("Indexed changed document")
}

// addRecursive walks root and adds a watch for every non-hidden
// directory. Unreadable subdirectories are skipped; an unreadable root
// fails the whole call.
func (w *Watcher) addRecursive(fsWatcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			w.logger.Warn().Err(walkErr).Str("path", path).Msg("Skipping unwatchable entry")
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return fsWatcher.Add(path)
	})
}
