package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/riftlang/riftcheck/verify"
)

// debounceWindow coalesces the bursts of write events editors and
// compilers produce for a single save.
const debounceWindow = 200 * time.Millisecond

// watchAndVerify re-runs the pass whenever the snapshot or manifest file
// changes. It returns when ctx is done.
func watchAndVerify(ctx context.Context, snapPath, manifestPath string, opts verify.Options) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	watched := map[string]bool{filepath.Clean(snapPath): true}
	if manifestPath != "" {
		watched[filepath.Clean(manifestPath)] = true
	}
	// Watch parent directories: editors replace files on save, which
	// drops per-file watches.
	dirs := map[string]bool{}
	for path := range watched {
		dirs[filepath.Dir(path)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}

	run := func() {
		report, err := runPass(ctx, snapPath, manifestPath, opts)
		if err != nil {
			logger.Error("Verification failed", zap.Error(err))
			return
		}
		if err := emitReport(report); err != nil {
			logger.Error("Failed to write output", zap.Error(err))
		}
	}
	run()

	var debounce *time.Timer
	pending := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-pending:
			run()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !watched[filepath.Clean(event.Name)] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			logger.Info("Input changed, re-running", zap.String("file", event.Name))
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceWindow, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error", zap.Error(err))
		}
	}
}
