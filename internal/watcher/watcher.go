// Package watcher tracks vocabulary table directories appearing in and
// disappearing from the store root, using fsnotify with debouncing.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/deutschlab/wortwerk/internal/store"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher watches the store root and maintains a snapshot of table names.
type Watcher struct {
	root        string
	onAdd       func(table string)
	onRemove    func(table string)
	debounce    time.Duration
	watcher     *fsnotify.Watcher
	mu          sync.Mutex
	debounceMap map[string]*time.Timer
	tables      map[string]struct{}
	done        chan struct{}
	started     bool
	stopOnce    sync.Once
	logger      *zap.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for table add/remove events.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithCallbacks sets callbacks invoked when a table directory is created or
// removed. Either may be nil.
func WithCallbacks(onAdd, onRemove func(table string)) Option {
	return func(w *Watcher) {
		w.onAdd = onAdd
		w.onRemove = onRemove
	}
}

// NewWatcher creates a watcher over the store root.
func NewWatcher(root string, opts ...Option) *Watcher {
	w := &Watcher{
		root:        root,
		debounce:    defaultDebounce,
		debounceMap: make(map[string]*time.Timer),
		tables:      make(map[string]struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start snapshots the current tables and begins watching. It runs until ctx
// is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	if err := watcher.Add(w.root); err != nil {
		_ = watcher.Close()
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.started = true
	w.snapshotLocked()
	w.mu.Unlock()
	go w.run(ctx)
	return nil
}

// snapshotLocked seeds the table set from the directory contents.
func (w *Watcher) snapshotLocked() {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() && strings.HasSuffix(e.Name(), store.TableSuffix) {
			w.tables[strings.TrimSuffix(e.Name(), store.TableSuffix)] = struct{}{}
		}
	}
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil && w.logger != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

// handleEvent debounces per-path events so a burst of writes during table
// creation collapses into one update.
func (w *Watcher) handleEvent(ev fsnotify.Event) {
	name := filepath.Base(ev.Name)
	if !strings.HasSuffix(name, store.TableSuffix) {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[ev.Name]; ok {
		t.Stop()
	}
	path := ev.Name
	w.debounceMap[path] = time.AfterFunc(w.debounce, func() {
		w.settle(path)
	})
}

// settle re-checks the path after the debounce window and updates the set.
func (w *Watcher) settle(path string) {
	table := strings.TrimSuffix(filepath.Base(path), store.TableSuffix)
	info, err := os.Stat(path)
	present := err == nil && info.IsDir()

	w.mu.Lock()
	delete(w.debounceMap, path)
	_, known := w.tables[table]
	if present && !known {
		w.tables[table] = struct{}{}
	} else if !present && known {
		delete(w.tables, table)
	}
	w.mu.Unlock()

	switch {
	case present && !known:
		if w.logger != nil {
			w.logger.Info("table added", zap.String("table", table))
		}
		if w.onAdd != nil {
			w.onAdd(table)
		}
	case !present && known:
		if w.logger != nil {
			w.logger.Info("table removed", zap.String("table", table))
		}
		if w.onRemove != nil {
			w.onRemove(table)
		}
	}
}

// Tables returns the current table names, sorted.
func (w *Watcher) Tables() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	names := make([]string, 0, len(w.tables))
	for name := range w.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stop stops the watcher. Safe to call multiple times.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		if w.watcher != nil {
			_ = w.watcher.Close()
		}
		for _, t := range w.debounceMap {
			t.Stop()
		}
		w.mu.Unlock()
	})
}
