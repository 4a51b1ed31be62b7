package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_EmitsSettledCSVDrop(t *testing.T) {
	dir, err := os.MkdirTemp("", "watch_test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	w, err := New(Config{Extensions: []string{".csv"}, Debounce: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	defer w.Stop()

	if err := w.AddDir(dir); err != nil {
		t.Fatalf("failed to add dir: %v", err)
	}

	path := filepath.Join(dir, "aggregate.csv")
	if err := os.WriteFile(path, []byte("age,count\n35,3\n"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	select {
	case ev := <-w.Events():
		if ev.Path != path {
			t.Errorf("expected event for %s, got %s", path, ev.Path)
		}
	case err := <-w.Errors():
		t.Fatalf("unexpected watcher error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for watcher event")
	}
}

func TestWatcher_IgnoresNonMatchingExtension(t *testing.T) {
	dir, err := os.MkdirTemp("", "watch_test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	w, err := New(Config{Extensions: []string{".csv"}, Debounce: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	defer w.Stop()

	if err := w.AddDir(dir); err != nil {
		t.Fatalf("failed to add dir: %v", err)
	}

	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	select {
	case ev := <-w.Events():
		t.Fatalf("expected no event for non-matching extension, got %v", ev)
	case <-time.After(300 * time.Millisecond):
	}
}
