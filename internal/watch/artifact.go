// Package watch notices when the chunk artifact is replaced on disk.
package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const debounce = 300 * time.Millisecond

// Artifact watches the directory holding path and calls onChange, debounced,
// whenever the file is written, created, renamed or removed. Editors and
// exporters often replace files through a rename, so the directory is
// watched instead of the file. It returns once the watch is established; the
// watch ends when ctx is cancelled.
func Artifact(ctx context.Context, path string, logger *zap.Logger, onChange func()) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return err
	}
	logger.Debug("watching chunk artifact", zap.String("path", abs))

	go func() {
		defer w.Close()
		var (
			mu    sync.Mutex
			timer *time.Timer
		)
		defer func() {
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) &&
					!ev.Op.Has(fsnotify.Rename) && !ev.Op.Has(fsnotify.Remove) {
					continue
				}
				logger.Info("chunk artifact changed", zap.String("op", ev.Op.String()), zap.String("path", ev.Name))
				mu.Lock()
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(debounce, onChange)
				mu.Unlock()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Debug("watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}
