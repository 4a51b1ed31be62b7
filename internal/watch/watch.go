// Package watch triggers a suppression run whenever a new aggregate file
// is dropped into a directory, debouncing rapid filesystem events so a
// file mid-write is not picked up half-finished.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event reports one settled file ready for processing.
type Event struct {
	Path      string
	Size      int64
	Timestamp time.Time
}

// Config controls which files a Watcher reacts to.
type Config struct {
	// Extensions limits triggering to files with one of these suffixes
	// (".csv", ".json"). Empty means every file is a candidate.
	Extensions []string

	// Debounce is how long a path must be quiet before it is considered
	// settled. Defaults to 200ms.
	Debounce time.Duration
}

// Watcher watches a set of directories for dropped aggregate files.
type Watcher struct {
	watcher *fsnotify.Watcher
	cfg     Config
	events  chan Event
	errors  chan error

	ctx    context.Context
	cancel context.CancelFunc

	debounceMu sync.Mutex
	timers     map[string]*time.Timer
}

// New creates a Watcher. Call AddDir to begin watching a directory, and
// Stop to release resources.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: creating fsnotify watcher: %w", err)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 200 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		watcher: fsw,
		cfg:     cfg,
		events:  make(chan Event, 64),
		errors:  make(chan error, 8),
		ctx:     ctx,
		cancel:  cancel,
		timers:  make(map[string]*time.Timer),
	}
	go w.loop()
	return w, nil
}

// AddDir begins watching dir non-recursively.
func (w *Watcher) AddDir(dir string) error {
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch: adding %s: %w", dir, err)
	}
	return nil
}

// Events returns the channel of settled files ready for processing.
func (w *Watcher) Events() <-chan Event { return w.events }

// Errors returns the channel of non-fatal watcher errors.
func (w *Watcher) Errors() <-chan error { return w.errors }

// Stop terminates the watcher and closes its channels.
func (w *Watcher) Stop() error {
	w.cancel()
	err := w.watcher.Close()

	w.debounceMu.Lock()
	for _, t := range w.timers {
		t.Stop()
	}
	w.debounceMu.Unlock()

	close(w.events)
	close(w.errors)
	return err
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			w.debounce(ev.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

func (w *Watcher) debounce(path string) {
	if !w.matchesExtension(path) {
		return
	}
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if t, exists := w.timers[path]; exists {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.cfg.Debounce, func() {
		w.emit(path)
		w.debounceMu.Lock()
		delete(w.timers, path)
		w.debounceMu.Unlock()
	})
}

func (w *Watcher) matchesExtension(path string) bool {
	if len(w.cfg.Extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range w.cfg.Extensions {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}

func (w *Watcher) emit(path string) {
	info, err := os.Stat(path)
	if err != nil {
		select {
		case w.errors <- fmt.Errorf("watch: stat %s: %w", path, err):
		default:
		}
		return
	}
	if info.IsDir() {
		return
	}
	select {
	case w.events <- Event{Path: path, Size: info.Size(), Timestamp: time.Now()}:
	default:
		select {
		case w.errors <- fmt.Errorf("watch: event channel full, dropped %s", path):
		default:
		}
	}
}
