// Package watcher watches an inbox directory with fsnotify and hands each PDF that
// lands in it to a handler once writes to it have settled.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hyperjump/docqa/internal/extract"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher watches one directory, non-recursively, and invokes a callback for every
// supported file that is created or written in it.
type Watcher struct {
	dir         string
	onFile      func(path string)
	debounce    time.Duration
	watcher     *fsnotify.Watcher
	mu          sync.Mutex
	debounceMap map[string]*time.Timer
	done        chan struct{}
	started     bool
	stopOnce    sync.Once
	logger      *zap.Logger // optional; when set, logs debug events
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce sets how long a file must be quiet before onFile is called.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher for dir. onFile is called at most once per burst of
// events on a file, from its own goroutine.
func NewWatcher(dir string, onFile func(path string), opts ...WatcherOption) *Watcher {
	w := &Watcher{
		dir:         filepath.Clean(dir),
		onFile:      onFile,
		debounce:    defaultDebounce,
		debounceMap: make(map[string]*time.Timer),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Start creates the directory if needed and starts watching. It runs until ctx is
// cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(w.dir); err != nil {
		_ = watcher.Close()
		return err
	}
	w.watcher = watcher
	w.started = true
	if w.logger != nil {
		w.logger.Debug("watcher starting", zap.String("dir", w.dir), zap.Duration("debounce", w.debounce))
	}
	go w.run(ctx, watcher)
	return nil
}

func (w *Watcher) run(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if err != nil && w.logger != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if filepath.Dir(path) != w.dir {
		return
	}
	if w.logger != nil {
		w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	}
	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			return
		}
		if extract.IsSupported(path) {
			w.debounceFile(path)
		}
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.cancelDebounce(path)
	}
}

func (w *Watcher) debounceFile(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
	}
	t := time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.debounceMap, path)
		logger := w.logger
		w.mu.Unlock()
		if logger != nil {
			logger.Debug("watcher handling file (debounced)", zap.String("path", path))
		}
		if w.onFile != nil {
			w.onFile(path)
		}
	})
	w.debounceMap[path] = t
}

func (w *Watcher) cancelDebounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
		delete(w.debounceMap, path)
	}
}

// SyncExistingFiles hands every supported file already in the directory to onFile.
// Call this after Start to pick up files dropped while nothing was watching.
func (w *Watcher) SyncExistingFiles() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		if w.logger != nil {
			w.logger.Debug("watcher sync failed", zap.String("dir", w.dir), zap.Error(err))
		}
		return
	}
	for _, e := range entries {
		if e.IsDir() || !extract.IsSupported(e.Name()) {
			continue
		}
		path := filepath.Join(w.dir, e.Name())
		if w.logger != nil {
			w.logger.Debug("watcher sync handling file", zap.String("path", path))
		}
		if w.onFile != nil {
			w.onFile(path)
		}
	}
}

// Stop stops the watcher and releases resources. Pending debounced files are dropped.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	for path, t := range w.debounceMap {
		t.Stop()
		delete(w.debounceMap, path)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
