package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"htnadmin/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the config file when it changes on disk and hands the
// parsed result to a callback. Editors that save via rename are handled by
// watching the parent directory.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	path     string
	onChange func(*Config)
	debounce time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

// NewWatcher creates a watcher for path. onChange runs on the watcher goroutine.
func NewWatcher(path string, onChange func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}
	return &Watcher{
		watcher:  fw,
		path:     filepath.Clean(path),
		onChange: onChange,
		debounce: 200 * time.Millisecond, // Coalesce write bursts from editors
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching. It is non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		w.watcher.Close()
		close(w.doneCh)
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}
	logging.Boot("Config watcher: watching %s", w.path)

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for cleanup.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)
	defer w.watcher.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryBoot).Error("Config watcher error: %v", err)
		case <-fire:
			fire = nil
			cfg, err := Load(w.path)
			if err != nil {
				logging.Get(logging.CategoryBoot).Warn("Config watcher: reload failed: %v", err)
				continue
			}
			logging.Boot("Config watcher: reloaded %s", w.path)
			w.onChange(cfg)
		}
	}
}
