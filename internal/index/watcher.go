package index

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jonesrussell/north-cloud/list-pages/internal/logger"
)

const reloadDebounce = 250 * time.Millisecond

// Watch reloads the registry whenever its sources file changes, until ctx is
// cancelled. The parent directory is watched so editors that replace the file
// through a rename are picked up too.
func (r *Registry) Watch(ctx context.Context) error {
	if r.path == "" {
		return fmt.Errorf("registry has no sources file")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create sources watcher: %w", err)
	}

	target := filepath.Clean(r.path)
	if addErr := watcher.Add(filepath.Dir(target)); addErr != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), addErr)
	}

	go r.watchLoop(ctx, watcher, target)
	return nil
}

func (r *Registry) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, target string) {
	defer func() { _ = watcher.Close() }()

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				pending = time.After(reloadDebounce)
			}
		case <-pending:
			pending = nil
			err := r.Reload(ctx)
			if r.onReload != nil {
				r.onReload(err)
			}
			if err != nil {
				r.log.Error("Sources reload failed, keeping previous generation",
					logger.String("path", target),
					logger.Int64("generation", int64(r.Generation())),
					logger.Error(err),
				)
			}
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return
			}
			r.log.Warn("Sources watcher error", logger.Error(watchErr))
		}
	}
}
