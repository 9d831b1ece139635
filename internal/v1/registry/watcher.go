package registry

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/secirc/secirc/internal/v1/logging"
)

// Reloader is the piece of a registry the watcher drives.
type Reloader interface {
	Reload() error
}

// Watch reloads each registered path's registry when its file changes on
// disk, so tokens issued by secircctl are honored without a server restart.
// Events are debounced because a rename flush emits several in a burst.
// Watch blocks until ctx is cancelled.
func Watch(ctx context.Context, targets map[string]Reloader) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch directories, not files: the rename flush replaces the inode.
	dirs := make(map[string]struct{})
	byName := make(map[string]Reloader, len(targets))
	for path, target := range targets {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		byName[abs] = target
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return err
		}
	}

	const debounce = 100 * time.Millisecond
	pending := make(map[string]Reloader)
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			target, watched := byName[abs]
			if !watched {
				continue
			}
			pending[abs] = target
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn(ctx, "Registry watcher error", zap.Error(err))

		case <-timer.C:
			for path, target := range pending {
				if err := target.Reload(); err != nil {
					logging.Error(ctx, "Registry reload failed", zap.String("path", path), zap.Error(err))
					continue
				}
				logging.Info(ctx, "Registry reloaded", zap.String("path", path))
			}
			pending = make(map[string]Reloader)
		}
	}
}
