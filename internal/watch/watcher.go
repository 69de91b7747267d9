// Package watch monitors the front-end project source tree and triggers a
// rebuild callback when files change, debouncing rapid editor save bursts.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/webstage/webstage/internal/logfields"
)

// Directories never worth watching inside a front-end project.
var ignoredDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
}

// Watcher monitors a source tree and invokes a callback after changes settle.
type Watcher struct {
	sourceDir    string
	ignore       map[string]bool
	watcher      *fsnotify.Watcher
	changeChan   chan struct{}
	debounceTime time.Duration
	onChange     func()
}

// New creates a watcher over sourceDir. outputDir (the build output subdir
// name) is excluded so builds do not retrigger themselves.
func New(sourceDir, outputDir string, onChange func()) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	absPath, err := filepath.Abs(sourceDir)
	if err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to resolve source path: %w", err)
	}

	ignore := make(map[string]bool, len(ignoredDirs)+1)
	for k := range ignoredDirs {
		ignore[k] = true
	}
	if outputDir != "" {
		ignore[filepath.Base(outputDir)] = true
	}

	return &Watcher{
		sourceDir:    absPath,
		ignore:       ignore,
		watcher:      watcher,
		changeChan:   make(chan struct{}, 1),
		debounceTime: 2 * time.Second, // settle window for rapid save bursts
		onChange:     onChange,
	}, nil
}

// WithDebounce overrides the settle window (for testing).
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	if d > 0 {
		w.debounceTime = d
	}
	return w
}

// Start registers the source tree and begins monitoring until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addTree(w.sourceDir); err != nil {
		return err
	}

	slog.Info("Watching source tree", logfields.Path(w.sourceDir))
	go w.watchLoop(ctx)
	go w.debounceLoop(ctx)
	return nil
}

// Stop closes the underlying filesystem watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// addTree registers every non-ignored directory under root; fsnotify does
// not watch recursively on its own.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignore[d.Name()] && path != root {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.ignored(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// New directories must be registered so changes below them are seen.
			if event.Op&fsnotify.Create != 0 {
				if err := w.addTree(event.Name); err != nil {
					slog.Debug("Could not extend watch to new path", logfields.Path(event.Name), logfields.Error(err))
				}
			}
			slog.Debug("Source change detected", logfields.Path(event.Name))
			select {
			case w.changeChan <- struct{}{}:
			default: // a trigger is already pending
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("File watcher error", logfields.Error(err))
		}
	}
}

// debounceLoop coalesces change signals and fires the callback once the
// tree has been quiet for the settle window.
func (w *Watcher) debounceLoop(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.changeChan:
			if timer == nil {
				timer = time.NewTimer(w.debounceTime)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounceTime)
			}
		case <-timerC:
			timer = nil
			timerC = nil
			if w.onChange != nil {
				w.onChange()
			}
		}
	}
}

func (w *Watcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.sourceDir, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if w.ignore[part] {
			return true
		}
	}
	return false
}
