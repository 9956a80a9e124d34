package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/julianstephens/lightsout/internal/constants"
	"github.com/julianstephens/lightsout/internal/logger"
)

// Watcher reports changes to the configuration file. Bursts of events (an
// editor's write-rename-chmod sequence) are coalesced into one callback.
type Watcher struct {
	path     string
	onChange func()
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu       sync.Mutex
	stopOnce sync.Once
	stopChan chan struct{}
	trigger  chan struct{}
	done     sync.WaitGroup
}

// NewWatcher watches path and calls onChange after each settled change.
func NewWatcher(path string, onChange func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	return &Watcher{
		path:     abs,
		onChange: onChange,
		watcher:  fw,
		debounce: constants.ConfigWatchDelay,
		stopChan: make(chan struct{}),
		trigger:  make(chan struct{}, 1),
	}, nil
}

// Start begins watching. The directory is watched rather than the file so
// atomic replaces are seen.
func (w *Watcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch config directory %s: %w", dir, err)
	}
	logger.Debug("Watching configuration", "path", w.path)

	w.done.Add(2)
	go w.watchLoop(ctx)
	go w.debounceLoop(ctx)
	return nil
}

// Stop ends watching and waits for the loops to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
		if err := w.watcher.Close(); err != nil {
			logger.Warn("Error closing config watcher", "error", err)
		}
	})
	w.done.Wait()
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer w.done.Done()
	name := filepath.Base(w.path)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			switch {
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create), event.Has(fsnotify.Rename):
				logger.Debug("Config file change detected", "op", event.Op.String())
				w.notify()
			case event.Has(fsnotify.Remove):
				logger.Warn("Config file removed", "path", event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Error("Config watcher error", "error", err)
		}
	}
}

func (w *Watcher) notify() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

func (w *Watcher) debounceLoop(ctx context.Context) {
	defer w.done.Done()
	var timer *time.Timer
	stop := func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
	}

	for {
		select {
		case <-ctx.Done():
			stop()
			return
		case <-w.stopChan:
			stop()
			return
		case <-w.trigger:
			w.mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.fire)
			w.mu.Unlock()
		}
	}
}

func (w *Watcher) fire() {
	select {
	case <-w.stopChan:
		return
	default:
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Config change handler panicked", "panic", r)
		}
	}()
	w.onChange()
}
