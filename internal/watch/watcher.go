package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spetr/codesplit/internal/chunking"
	"github.com/spetr/codesplit/pkg/types"
)

// Event reports the outcome of re-chunking one file.
type Event struct {
	Path    string
	Removed bool             // the file no longer exists
	Result  *chunking.Result // nil when Removed or Err is set
	Err     error
}

// Config contains watcher configuration.
type Config struct {
	Matcher  *Matcher
	Service  *chunking.Service
	Options  chunking.Options
	Debounce time.Duration // Default: 500ms
	OnEvent  func(Event)
	Logger   *slog.Logger
}

// Watcher re-chunks files under a directory when they change.
type Watcher struct {
	matcher *Matcher
	service *chunking.Service
	options chunking.Options
	onEvent func(Event)
	logger  *slog.Logger

	watcher *fsnotify.Watcher

	// Debouncing
	pendingMu    sync.Mutex
	pendingFiles map[string]time.Time
	debounceTime time.Duration

	// Last content hash per file, to skip writes that change nothing.
	hashes map[string]string
}

// New creates a new file watcher.
func New(cfg Config) (*Watcher, error) {
	if cfg.Matcher == nil || cfg.Service == nil {
		return nil, fmt.Errorf("%w: watcher requires a matcher and a chunking service", types.ErrInvalidConfig)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	debounceTime := cfg.Debounce
	if debounceTime == 0 {
		debounceTime = 500 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.OnEvent == nil {
		cfg.OnEvent = func(Event) {}
	}

	return &Watcher{
		matcher:      cfg.Matcher,
		service:      cfg.Service,
		options:      cfg.Options,
		onEvent:      cfg.OnEvent,
		logger:       cfg.Logger,
		watcher:      watcher,
		pendingFiles: make(map[string]time.Time),
		debounceTime: debounceTime,
		hashes:       make(map[string]string),
	}, nil
}

// Watch starts watching for file changes.
// It blocks until the context is cancelled.
func (w *Watcher) Watch(ctx context.Context) error {
	if err := w.addWatchDirs(w.matcher.Root()); err != nil {
		return err
	}

	w.logger.Info("watching for file changes", "dir", w.matcher.Root())

	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stopping watcher")
			return w.watcher.Close()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// addWatchDirs recursively adds directories to watch.
func (w *Watcher) addWatchDirs(root string) error {
	return walkDirs(root, w.matcher, func(path string) {
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", err)
		}
	})
}

// handleEvent processes a file system event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	path := event.Name

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !w.matcher.SkipDir(path) {
				if err := w.addWatchDirs(path); err != nil {
					w.logger.Warn("failed to watch new directory", "path", path, "error", err)
				}
			}
			return
		}
	}

	if !w.matcher.MatchFile(path) {
		return
	}

	w.pendingMu.Lock()
	w.pendingFiles[path] = time.Now()
	w.pendingMu.Unlock()

	w.logger.Debug("file changed", "path", path, "op", event.Op.String())
}

// processDebounced processes pending files after the debounce period.
func (w *Watcher) processDebounced(ctx context.Context) {
	tick := min(100*time.Millisecond, w.debounceTime)
	ticker := time.NewTicker(max(tick, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			w.processPendingFiles(ctx, now)
		}
	}
}

// processPendingFiles re-chunks files that have been stable for the
// debounce period.
func (w *Watcher) processPendingFiles(ctx context.Context, now time.Time) {
	w.pendingMu.Lock()
	var toProcess []string
	for path, changedAt := range w.pendingFiles {
		if now.Sub(changedAt) >= w.debounceTime {
			toProcess = append(toProcess, path)
			delete(w.pendingFiles, path)
		}
	}
	w.pendingMu.Unlock()

	if len(toProcess) == 0 {
		return
	}

	w.logger.Info("re-chunking changed files", "count", len(toProcess))
	for _, path := range toProcess {
		if ctx.Err() != nil {
			return
		}
		if ev, ok := w.rechunk(ctx, path); ok {
			w.onEvent(ev)
		}
	}
}

// rechunk chunks a single file. It returns ok=false when there is nothing to
// report (a directory, or content identical to the last run).
func (w *Watcher) rechunk(ctx context.Context, path string) (Event, bool) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		if _, seen := w.hashes[path]; !seen {
			return Event{}, false
		}
		delete(w.hashes, path)
		w.logger.Info("file removed", "file", path)
		return Event{Path: path, Removed: true}, true
	}
	if err != nil {
		return Event{Path: path, Err: err}, true
	}
	if info.IsDir() {
		return Event{}, false
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Event{Path: path, Err: err}, true
	}

	file := &types.SourceFile{Path: path, Content: content}
	file.Hash = file.ComputeHash()
	if w.hashes[path] == file.Hash {
		return Event{}, false
	}

	res, err := w.service.ChunkFile(ctx, file, w.options)
	if err != nil {
		w.logger.Warn("failed to chunk file", "file", path, "error", err)
		return Event{Path: path, Err: err}, true
	}
	w.hashes[path] = file.Hash

	w.logger.Info("chunked file", "file", path, "strategy", res.Strategy, "chunks", len(res.Chunks))
	return Event{Path: path, Result: res}, true
}

// Close closes the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// walkDirs calls fn for root and every directory below it the matcher does
// not skip.
func walkDirs(root string, m *Matcher, fn func(string)) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if m.SkipDir(path) {
			return filepath.SkipDir
		}
		fn(path)
		return nil
	})
}
