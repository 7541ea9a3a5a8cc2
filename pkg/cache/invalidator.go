package cache

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceInterval is how long the invalidator waits for a burst of
// file events to settle before dropping cache entries.
const DefaultDebounceInterval = 100 * time.Millisecond

// Invalidator watches a directory tree and deletes cache entries keyed by the
// path of a file that changed on disk.
type Invalidator struct {
	watcher  *fsnotify.Watcher
	cache    *ResponseCache
	root     string
	logger   *slog.Logger
	debounce *debouncer

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewInvalidator creates an invalidator for files under root. Cache keys are
// expected to be absolute file paths, as built by the static handler.
func NewInvalidator(cache *ResponseCache, root string, interval time.Duration, logger *slog.Logger) (*Invalidator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultDebounceInterval
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve static root %q: %w", root, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	iv := &Invalidator{
		watcher: watcher,
		cache:   cache,
		root:    abs,
		logger:  logger.With("component", "cache.invalidator"),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	iv.debounce = newDebouncer(interval, iv.invalidate)
	return iv, nil
}

// Start registers the watches and processes events in the background until
// ctx is cancelled or Stop is called. The tree is being watched when Start
// returns.
func (iv *Invalidator) Start(ctx context.Context) error {
	iv.mu.Lock()
	if iv.running {
		iv.mu.Unlock()
		return fmt.Errorf("invalidator already running")
	}
	iv.running = true
	iv.mu.Unlock()

	if err := iv.addDirectory(iv.root); err != nil {
		iv.mu.Lock()
		iv.running = false
		iv.mu.Unlock()
		return fmt.Errorf("failed to watch static root: %w", err)
	}

	iv.logger.Info("Static file watcher started", "root", iv.root)

	go iv.loop(ctx)
	return nil
}

// Stop stops the watcher and releases its resources.
func (iv *Invalidator) Stop() error {
	iv.mu.Lock()
	if !iv.running {
		iv.mu.Unlock()
		return iv.watcher.Close()
	}
	iv.running = false
	iv.mu.Unlock()

	close(iv.stopCh)
	<-iv.doneCh
	iv.debounce.stop()

	if err := iv.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

func (iv *Invalidator) loop(ctx context.Context) {
	defer close(iv.doneCh)

	for {
		select {
		case <-ctx.Done():
			iv.logger.Info("Static file watcher stopped (context cancelled)")
			return

		case <-iv.stopCh:
			iv.logger.Info("Static file watcher stopped")
			return

		case event, ok := <-iv.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Chmod == fsnotify.Chmod {
				continue
			}

			iv.logger.Debug("Static file event", "path", event.Name, "op", event.Op.String())

			if event.Op&fsnotify.Create == fsnotify.Create {
				if err := iv.addDirectory(event.Name); err != nil {
					iv.logger.Debug("Not a watchable directory", "path", event.Name, "error", err)
				}
			}
			iv.debounce.add(event.Name)

		case err, ok := <-iv.watcher.Errors:
			if !ok {
				return
			}
			iv.logger.Error("Static file watcher error", "error", err)
		}
	}
}

func (iv *Invalidator) invalidate(paths []string) {
	for _, p := range paths {
		if iv.cache.Delete(p) {
			iv.logger.Info("Invalidated cached file", "path", p)
		}
	}
}

// addDirectory watches dir and all of its non-hidden subdirectories.
func (iv *Invalidator) addDirectory(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			if path == dir {
				return fmt.Errorf("%s is not a directory", path)
			}
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := iv.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch directory %q: %w", path, err)
		}
		return nil
	})
}

// debouncer collects paths and flushes them together once no new path has
// arrived for interval.
type debouncer struct {
	interval time.Duration
	flush    func([]string)

	mu      sync.Mutex
	timer   *time.Timer
	pending map[string]struct{}
	stopped bool
}

func newDebouncer(interval time.Duration, flush func([]string)) *debouncer {
	return &debouncer{
		interval: interval,
		flush:    flush,
		pending:  make(map[string]struct{}),
	}
}

func (d *debouncer) add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.pending[path] = struct{}{}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, d.fire)
}

func (d *debouncer) fire() {
	d.mu.Lock()
	if d.stopped || len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(d.pending))
	for p := range d.pending {
		paths = append(paths, p)
	}
	d.pending = make(map[string]struct{})
	d.mu.Unlock()

	d.flush(paths)
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
}
