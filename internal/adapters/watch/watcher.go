package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mikey/llm-feed-filter/internal/core"
	"go.uber.org/zap"
)

// TriggerFunc starts a pipeline run
type TriggerFunc func(ctx context.Context) error

// FileWatcher triggers a run whenever the watched file changes. The parent
// directory is watched so editors and writers that replace the file by rename
// are seen too. A trigger rejected by the pipeline's entry guard is retried
// once after retryDelay so the latest change is never left unscanned.
type FileWatcher struct {
	path       string
	trigger    TriggerFunc
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewFileWatcher creates a new watcher for path
func NewFileWatcher(path string, trigger TriggerFunc, retryDelay time.Duration, logger *zap.Logger) *FileWatcher {
	return &FileWatcher{
		path:       filepath.Clean(path),
		trigger:    trigger,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// Run watches until ctx is done
func (w *FileWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}
	w.logger.Info("Watching feed", zap.String("path", w.path))

	retry := time.NewTimer(w.retryDelay)
	retry.Stop()
	defer retry.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			w.logger.Debug("Feed changed", zap.String("op", event.Op.String()))
			if w.fire(ctx) {
				retry.Reset(w.retryDelay)
			}
		case <-retry.C:
			if w.fire(ctx) {
				retry.Reset(w.retryDelay)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("File watcher error", zap.Error(err))
		}
	}
}

// fire runs the trigger and reports whether it should be retried
func (w *FileWatcher) fire(ctx context.Context) bool {
	err := w.trigger(ctx)
	switch {
	case err == nil:
		return false
	case errors.Is(err, core.ErrDebounced), errors.Is(err, core.ErrRunInProgress):
		w.logger.Debug("Run deferred", zap.Error(err))
		return true
	default:
		w.logger.Error("Triggered run failed", zap.Error(err))
		return false
	}
}
