// Package watcher reports changes to a single file, such as the markdown
// checklist of the file backend being edited by another program while the
// editor is open. The parent directory is watched so atomic replacements
// (write to a temp file, rename over) are seen as well as in-place writes.
package watcher

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"todoed/internal/utils"
)

// DefaultDebounceDuration is the default debounce window for batching rapid changes.
const DefaultDebounceDuration = 500 * time.Millisecond

// Config holds file watcher configuration.
type Config struct {
	Path             string        // File to watch; it need not exist yet
	DebounceDuration time.Duration // Debounce window to batch rapid changes
	OnChange         func()        // Called once per burst of changes
}

// Watcher monitors one file and calls OnChange after it is written,
// created, replaced or removed.
type Watcher struct {
	cfg     Config
	path    string
	fsw     *fsnotify.Watcher
	stopCh  chan struct{}
	started bool
	stopped bool
	mu      sync.Mutex
}

// New creates a new Watcher instance.
func New(cfg Config) (*Watcher, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("watcher: no path")
	}
	if cfg.DebounceDuration <= 0 {
		cfg.DebounceDuration = DefaultDebounceDuration
	}
	path, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		cfg:    cfg,
		path:   path,
		fsw:    fsw,
		stopCh: make(chan struct{}),
	}, nil
}

// Start begins watching. The file's directory must exist.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return fmt.Errorf("watcher has been stopped and cannot be restarted")
	}
	if w.started {
		return nil
	}

	if err := w.fsw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %q: %w", filepath.Dir(w.path), err)
	}
	w.started = true

	go w.eventLoop()
	return nil
}

// Stop stops the watcher and cleans up resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	w.stopped = true
	close(w.stopCh)
	_ = w.fsw.Close()
}

// eventLoop filters directory events down to the watched file and
// debounces them.
func (w *Watcher) eventLoop() {
	var debounceTimer *time.Timer
	// fires when the debounce window expires
	debounceCh := make(chan struct{}, 1)

	for {
		select {
		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.cfg.DebounceDuration, func() {
				select {
				case debounceCh <- struct{}{}:
				default:
				}
			})

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			utils.Warnf("watcher: %v", err)

		case <-debounceCh:
			if w.cfg.OnChange != nil {
				w.cfg.OnChange()
			}
		}
	}
}
