// Package watch reports modifications of the active design file.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/raido/internal/checksum"
)

// DefaultDebounce is the quiet period after the last file event before
// a change is reported.
const DefaultDebounce = 200 * time.Millisecond

// ChangeCallback is called with the design path after a debounced change.
type ChangeCallback func(design string)

// Watch watches design until ctx is cancelled and calls cb once per burst
// of modifications whose content differs from the last reported one.
//
// The parent directory is watched rather than the file itself, so editors
// that save by writing a new file and renaming it over the old one keep
// being observed.
func Watch(ctx context.Context, design string, debounce time.Duration, logger *slog.Logger, cb ChangeCallback) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	target, err := filepath.Abs(design)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(target)); err != nil {
		return err
	}

	last := sum(target)
	logger.Info("watcher: started", slog.String("design", design))

	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			cur := sum(target)
			if cur == "" || cur == last {
				logger.Debug("watcher: content unchanged", slog.String("design", design))
				continue
			}
			last = cur
			logger.Debug("watcher: design changed", slog.String("design", design))
			if cb != nil {
				cb(design)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				schedule()
			}
			if ev.Op&fsnotify.Remove != 0 {
				logger.Warn("watcher: design removed", slog.String("design", design))
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// sum returns the checksum of path, or "" if it cannot be read.
func sum(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return checksum.Sum(data)
}
