package config

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/smazurov/chameleond/internal/logging"
)

// Watcher watches the config file and notifies handlers with a freshly
// loaded snapshot on each change. The daemon registers a handler that
// re-applies logging levels at runtime.
type Watcher[T any] struct {
	path     string
	debounce time.Duration
	loader   func(path string) (T, error)
	logger   logging.Logger

	mu       sync.RWMutex
	handlers []func(T)
	watcher  *fsnotify.Watcher
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewWatcher creates a file watcher; loader is called fresh on every
// change so handlers never see stale data.
func NewWatcher[T any](path string, loader func(path string) (T, error)) *Watcher[T] {
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher[T]{
		path:     path,
		debounce: 1500 * time.Millisecond,
		loader:   loader,
		logger:   logging.GetLogger("config"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetDebounce overrides the default 1.5 s debounce. For tests.
func (w *Watcher[T]) SetDebounce(d time.Duration) {
	w.debounce = d
}

// OnReload registers a handler called after each reload.
func (w *Watcher[T]) OnReload(handler func(T)) {
	w.mu.Lock()
	w.handlers = append(w.handlers, handler)
	w.mu.Unlock()
}

// Start begins watching the file.
func (w *Watcher[T]) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(w.path); err != nil {
		watcher.Close()
		return err
	}
	w.watcher = watcher
	w.logger.Info("config watcher started", "path", w.path)
	go w.watch()
	return nil
}

// Stop stops the watcher and releases the inotify handle.
func (w *Watcher[T]) Stop() error {
	w.cancel()
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

func (w *Watcher[T]) watch() {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-w.ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			// Editors often replace the file, so watch creates too.
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			}

		case <-timerC:
			w.reload()
			timerC = nil

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)
		}
	}
}

func (w *Watcher[T]) reload() {
	snapshot, err := w.loader(w.path)
	if err != nil {
		w.logger.Warn("config reload failed", "error", err)
		return
	}
	w.mu.RLock()
	handlers := append([]func(T){}, w.handlers...)
	w.mu.RUnlock()
	for _, h := range handlers {
		h(snapshot)
	}
	w.logger.Info("config reloaded", "path", w.path)
}
