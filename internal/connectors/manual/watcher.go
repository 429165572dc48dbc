package manual

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/sercha-hub/internal/logger"
)

// DefaultDebounce is how long the watcher waits for the inbox to settle.
const DefaultDebounce = 500 * time.Millisecond

// ErrWatcherRunning is returned when Start is called twice.
var ErrWatcherRunning = errors.New("manual: watcher already running")

// Watcher calls onChange once the inbox has been quiet for the debounce
// period after a supported file is created, written, removed or renamed.
// fsnotify is not recursive, so subdirectories are added as they appear.
type Watcher struct {
	root     string
	debounce time.Duration
	onChange func()

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher creates a watcher for the inbox at root.
func NewWatcher(root string, debounce time.Duration, onChange func()) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{root: root, debounce: debounce, onChange: onChange}
}

// Start begins watching. It is non-blocking; events are handled on a
// background goroutine until Stop is called or ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return ErrWatcherRunning
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := addTree(fsw, w.root); err != nil {
		fsw.Close()
		return err
	}

	w.fsw = fsw
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	go w.run(ctx)
	logger.Debug("manual: watching %s", w.root)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	done, fsw := w.doneCh, w.fsw
	w.mu.Unlock()

	<-done
	if err := fsw.Close(); err != nil {
		logger.Warn("manual: close watcher: %v", err)
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.relevant(event) {
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("manual: watch %s: %v", w.root, err)
		case <-timer.C:
			w.onChange()
		}
	}
}

// relevant reports whether an event should trigger a sync. New
// directories are added to the watch list.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || isHidden(filepath.ToSlash(rel)) {
		return false
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := addTree(w.fsw, event.Name); err != nil {
				logger.Warn("manual: watch %s: %v", event.Name, err)
			}
			return true
		}
	}
	_, ok := FormatOf(event.Name)
	return ok
}

func addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && isHidden(filepath.Base(path)) {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}
