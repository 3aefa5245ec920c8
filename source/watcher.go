package source

import (
	"context"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// eventChannelBuffer is the size of the watch event channel.
const eventChannelBuffer = 500

// WatchConfig configures directory watching.
type WatchConfig struct {
	// Debounce is how long to collect changes before emitting them.
	Debounce time.Duration

	// Include selects the files to report, relative to the watched root.
	Include []string

	// ExcludeDirs lists directory names to skip.
	ExcludeDirs []string
}

// WatchOperation indicates the type of file operation.
type WatchOperation string

// WatchOpCreate, WatchOpModify and WatchOpDelete enumerate watch operations.
const (
	WatchOpCreate WatchOperation = "create"
	WatchOpModify WatchOperation = "modify"
	WatchOpDelete WatchOperation = "delete"
)

// WatchEvent reports one changed file after debouncing.
type WatchEvent struct {
	Ref       FileRef
	Operation WatchOperation
}

// Watcher watches a directory tree for imaging file changes.
type Watcher struct {
	config   WatchConfig
	root     string
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	excludes map[string]bool

	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	// Content digests of files already reported, to drop no-op writes.
	digestMu sync.Mutex
	digests  map[string]string

	events chan WatchEvent

	droppedEvents atomic.Int64
}

// NewWatcher creates a watcher rooted at root.
func NewWatcher(config WatchConfig, root string, logger *slog.Logger) (*Watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.Debounce <= 0 {
		config.Debounce = 500 * time.Millisecond
	}
	if len(config.ExcludeDirs) == 0 {
		config.ExcludeDirs = []string{".git", "tmp"}
	}

	excludes := make(map[string]bool, len(config.ExcludeDirs))
	for _, dir := range config.ExcludeDirs {
		excludes[dir] = true
	}

	return &Watcher{
		config:   config,
		root:     absRoot,
		watcher:  fsw,
		logger:   logger,
		excludes: excludes,
		pending:  make(map[string]fsnotify.Op),
		digests:  make(map[string]string),
		events:   make(chan WatchEvent, eventChannelBuffer),
	}, nil
}

// Events returns the channel of debounced events. It is closed when the
// watcher stops.
func (w *Watcher) Events() <-chan WatchEvent {
	return w.events
}

// Dropped returns the number of events lost to a full channel.
func (w *Watcher) Dropped() int64 {
	return w.droppedEvents.Load()
}

// Start adds watches for the tree and begins processing events.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addWatchesRecursive(w.root); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("Watcher started",
		"root", w.root,
		"debounce", w.config.Debounce)
	return nil
}

// Stop closes the underlying watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// Remember records a file's digest so an unchanged rewrite is not reported.
func (w *Watcher) Remember(ref FileRef, digest string) {
	w.digestMu.Lock()
	defer w.digestMu.Unlock()
	w.digests[string(ref)] = digest
}

func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.skipDir(filepath.Base(path)) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

func (w *Watcher) skipDir(base string) bool {
	return w.excludes[base] || (strings.HasPrefix(base, ".") && base != ".")
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)
	ticker := time.NewTicker(w.config.Debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending(ctx)
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !w.skipDir(filepath.Base(path)) {
				if err := w.addWatchesRecursive(path); err != nil {
					w.logger.Warn("Failed to watch new directory", "path", path, "error", err)
				}
			}
			return
		}
	}

	rel, err := filepath.Rel(w.root, path)
	if err != nil || !MatchesInclude(rel, w.config.Include) {
		return
	}

	w.pendingMu.Lock()
	w.pending[path] = w.pending[path] | event.Op
	w.pendingMu.Unlock()
}

func (w *Watcher) flushPending(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	toProcess := maps.Clone(w.pending)
	clear(w.pending)
	w.pendingMu.Unlock()

	for path, op := range toProcess {
		if ctx.Err() != nil {
			return
		}

		ref := FileRef(path)
		if _, err := os.Stat(path); err != nil {
			w.digestMu.Lock()
			delete(w.digests, path)
			w.digestMu.Unlock()
			w.send(WatchEvent{Ref: ref, Operation: WatchOpDelete})
			continue
		}

		_, digest, err := FileDigest(path)
		if err != nil {
			w.logger.Warn("Failed to hash changed file", "path", path, "error", err)
			continue
		}

		w.digestMu.Lock()
		old, known := w.digests[path]
		w.digests[path] = digest
		w.digestMu.Unlock()

		if known && old == digest {
			continue
		}

		operation := WatchOpModify
		if op.Has(fsnotify.Create) || !known {
			operation = WatchOpCreate
		}
		w.send(WatchEvent{Ref: ref, Operation: operation})
	}
}

func (w *Watcher) send(event WatchEvent) {
	select {
	case w.events <- event:
	default:
		w.droppedEvents.Add(1)
		w.logger.Warn("Watch event dropped", "path", event.Ref, "op", event.Operation)
	}
}
