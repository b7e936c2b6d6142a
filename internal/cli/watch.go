package cli

import (
	"context"
	"io/fs"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces editor save bursts (write + rename + chmod)
// into one recompose.
const watchDebounce = 200 * time.Millisecond

// watchAndRecompose blocks, recomposing on every change under root,
// until the context is cancelled or an interrupt arrives. Recompose
// errors are logged, not fatal: a half-saved fragment should not kill
// the watch loop.
func watchAndRecompose(ctx context.Context, root string, recompose func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start watcher", err)
	}
	defer watcher.Close()

	if err := addTree(watcher, root); err != nil {
		return WrapExitError(ExitCommandError, "failed to watch fragment root", err)
	}
	slog.Info("watching fragments", "root", root)

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			slog.Info("watch stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// New directories must be added explicitly; fsnotify does
			// not recurse.
			if event.Op.Has(fsnotify.Create) {
				_ = addTree(watcher, event.Name)
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			pending = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", "error", err)

		case <-pending:
			pending = nil
			slog.Debug("change detected, recomposing")
			if err := recompose(); err != nil {
				slog.Warn("recompose failed", "error", err)
			}
		}
	}
}

// addTree registers path and every directory below it. Non-directory
// paths are ignored.
func addTree(watcher *fsnotify.Watcher, path string) error {
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		return watcher.Add(p)
	})
}
