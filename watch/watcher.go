// Package watch rebuilds a site when files below its root change.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a burst of changes rebuilds.
const DefaultDebounce = 300 * time.Millisecond

// Builder is the build entry point driven by the watcher.
type Builder interface {
	BuildStatic(ctx context.Context) error
	OutputDir() string
}

// Watcher debounces filesystem events under root into serialized rebuilds.
type Watcher struct {
	root     string
	builder  Builder
	logger   *slog.Logger
	debounce time.Duration

	rebuild chan struct{}
	mu      sync.Mutex
	timer   *time.Timer
}

// New constructs a watcher for root.
func New(root string, builder Builder, logger *slog.Logger, debounce time.Duration) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		root:     filepath.Clean(root),
		builder:  builder,
		logger:   logger,
		debounce: debounce,
		rebuild:  make(chan struct{}, 1),
	}
}

// Run watches root until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer fw.Close()
	w.addDirs(fw, w.root)

	go w.work(ctx)

	w.logger.Info("watching", "root", w.root)
	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fw, ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch", "error", err)
		}
	}
}

// Trigger schedules a rebuild after the debounce period. Calls inside the
// period push the rebuild back.
func (w *Watcher) Trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.request)
}

func (w *Watcher) request() {
	select {
	case w.rebuild <- struct{}{}:
	default:
	}
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

// work runs one build at a time. A request arriving during a build is
// coalesced into a single follow-up build.
func (w *Watcher) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.rebuild:
			w.logger.Info("change detected, rebuilding")
			if err := w.builder.BuildStatic(ctx); err != nil {
				w.logger.Warn("rebuild", "error", err)
			}
		}
	}
}

func (w *Watcher) handleEvent(fw *fsnotify.Watcher, ev fsnotify.Event) {
	if w.ignored(ev.Name) {
		return
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.addDirs(fw, ev.Name)
		}
	}
	w.logger.Debug("change", "path", ev.Name, "op", ev.Op.String())
	w.Trigger()
}

func (w *Watcher) addDirs(fw *fsnotify.Watcher, root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(path) {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			w.logger.Warn("watch add", "dir", path, "error", err)
		}
		return nil
	})
}

// ignored reports paths that never trigger a rebuild: the build output,
// hidden files and editor swap files.
func (w *Watcher) ignored(path string) bool {
	if out := w.builder.OutputDir(); out != "" {
		if rel, err := filepath.Rel(out, path); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	if path == w.root {
		return false
	}
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "."), strings.HasPrefix(base, "#"):
		return true
	case strings.HasSuffix(base, "~"), strings.HasSuffix(base, ".swp"), strings.HasSuffix(base, ".swx"):
		return true
	}
	return false
}
