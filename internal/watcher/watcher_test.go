package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/deutschlab/wortwerk/internal/store"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestStartSnapshotsExistingTables(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "A1_MINIMAL_vocabulary"+store.TableSuffix), 0755); err != nil {
		t.Fatal(err)
	}

	w := NewWatcher(root)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	tables := w.Tables()
	if len(tables) != 1 || tables[0] != "A1_MINIMAL_vocabulary" {
		t.Errorf("Tables = %v", tables)
	}
}

func TestWatcherSeesAddAndRemove(t *testing.T) {
	root := t.TempDir()
	w := NewWatcher(root)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	dir := filepath.Join(root, "B1_MINIMAL_vocabulary"+store.TableSuffix)
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, 3*time.Second, func() bool {
		tables := w.Tables()
		return len(tables) == 1 && tables[0] == "B1_MINIMAL_vocabulary"
	}) {
		t.Fatalf("table creation not observed, Tables = %v", w.Tables())
	}

	if err := os.Remove(dir); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, 3*time.Second, func() bool {
		return len(w.Tables()) == 0
	}) {
		t.Fatalf("table removal not observed, Tables = %v", w.Tables())
	}
}

func TestWatcherIgnoresOtherDirs(t *testing.T) {
	root := t.TempDir()
	w := NewWatcher(root)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if err := os.Mkdir(filepath.Join(root, "scratch"), 0755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(600 * time.Millisecond)
	if tables := w.Tables(); len(tables) != 0 {
		t.Errorf("Tables = %v, want none", tables)
	}
}

func TestWatcherCallbacks(t *testing.T) {
	root := t.TempDir()
	added := make(chan string, 1)
	w := NewWatcher(root, WithCallbacks(func(table string) {
		added <- table
	}, nil))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if err := os.Mkdir(filepath.Join(root, "A2_MINIMAL_vocabulary"+store.TableSuffix), 0755); err != nil {
		t.Fatal(err)
	}
	select {
	case table := <-added:
		if table != "A2_MINIMAL_vocabulary" {
			t.Errorf("callback got %q", table)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("add callback never fired")
	}
}

func TestStartMissingRoot(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "nope"))
	if err := w.Start(context.Background()); err == nil {
		w.Stop()
		t.Fatal("expected error for missing root")
	}
}

func TestStopIdempotent(t *testing.T) {
	w := NewWatcher(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	w.Stop()
	w.Stop()
}
