// Package watch turns filesystem activity into build requests: a recursive
// fsnotify watcher and a debouncer that coalesces change bursts.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	derrors "github.com/torn-open/docsmith/internal/errors"
	"github.com/torn-open/docsmith/internal/events"
	"github.com/torn-open/docsmith/internal/logfields"
)

// Watcher watches directory trees and publishes FileChanged and
// BuildRequested events for relevant files.
type Watcher struct {
	bus     *events.Bus
	roots   []string
	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher over the given root directories. Roots that
// do not exist are skipped with a warning; everything else is watched
// recursively.
func NewWatcher(bus *events.Bus, roots []string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CategoryDaemon, "create file watcher")
	}

	w := &Watcher{bus: bus, roots: roots, watcher: fsw}
	for _, root := range roots {
		if _, err := os.Stat(root); err != nil {
			slog.Warn("Watch root missing, skipping", logfields.Path(root))
			continue
		}
		if err := w.addRecursive(root); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) addRecursive(root string) error {
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.watcher.Add(p)
	})
	if err != nil {
		return derrors.Wrap(err, derrors.CategoryDaemon, "watch "+root)
	}
	return nil
}

// Run processes filesystem events until the context is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.watcher.Close() }()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, evt)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("File watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, evt fsnotify.Event) {
	if ignored(evt.Name) {
		return
	}

	// New directories need their own watch before events inside them fire.
	if evt.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(evt.Name); err != nil {
				slog.Warn("Failed to watch new directory", logfields.Path(evt.Name), logfields.Error(err))
			}
			return
		}
	}

	now := time.Now()
	_ = w.bus.Publish(ctx, events.FileChanged{Path: evt.Name, Op: evt.Op.String(), At: now})
	_ = w.bus.Publish(ctx, events.BuildRequested{Reason: "file_changed", Path: evt.Name, At: now})
}

// ignored filters editor noise: hidden files, backup and swap files.
func ignored(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"),
		strings.HasSuffix(base, ".swp"),
		strings.HasSuffix(base, ".tmp"):
		return true
	default:
		return false
	}
}
