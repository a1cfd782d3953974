// Package watcher re-runs the optimizer whenever the source tree changes.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"hotelimages/imageprocessor"
	"hotelimages/logging"
)

// DefaultDebounce is how long the tree must stay quiet before a rerun
const DefaultDebounce = 500 * time.Millisecond

// RunFunc performs one full pipeline run
type RunFunc func(ctx context.Context) error

// Watcher monitors a source tree recursively
type Watcher struct {
	root       string
	extensions []string
	run        RunFunc
	debounce   time.Duration
	watcher    *fsnotify.Watcher
}

// New creates a watcher on every directory below root. Only changes to files
// with one of the given extensions, and new directories, trigger a run.
func New(root string, extensions []string, run RunFunc) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		root:       root,
		extensions: extensions,
		run:        run,
		debounce:   DefaultDebounce,
		watcher:    fsWatcher,
	}
	if err := w.addRecursive(root); err != nil {
		fsWatcher.Close()
		return nil, err
	}
	return w, nil
}

// SetDebounce changes the quiet period before a rerun
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Watch blocks until ctx is cancelled, running the pipeline after each burst
// of changes. Runs never overlap; a failed run is logged and watching goes on.
func (w *Watcher) Watch(ctx context.Context) error {
	defer w.watcher.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(w.debounce)
		} else {
			timer.Reset(w.debounce)
		}
		fire = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.handleEvent(event) {
				schedule()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logging.LogWarning("Watcher error: %v", err)

		case <-fire:
			fire = nil
			logging.LogInfo("Source tree changed, re-running pipeline")
			if err := w.run(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logging.LogError("Pipeline run failed: %v", err)
			}
		}
	}
}

// handleEvent reports whether the event should trigger a rerun
func (w *Watcher) handleEvent(event fsnotify.Event) bool {
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}

	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				logging.LogWarning("Cannot watch new directory %s: %v", event.Name, err)
			}
			logging.DebugLog("Directory created: %s", event.Name)
			return true
		}
	}

	if !imageprocessor.IsSupportedImage(event.Name, w.extensions) {
		return false
	}

	switch {
	case event.Op.Has(fsnotify.Create):
		logging.DebugLog("File created: %s", event.Name)
	case event.Op.Has(fsnotify.Write):
		logging.DebugLog("File modified: %s", event.Name)
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		logging.DebugLog("File removed: %s", event.Name)
	default:
		return false
	}
	return true
}

// addRecursive watches dir and every directory below it
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path != dir {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != dir {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch folder %s: %w", path, err)
		}
		logging.DebugLog("Watching folder: %s", path)
		return nil
	})
}
