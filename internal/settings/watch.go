package settings

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watch refreshes the adapter whenever another process writes the database at
// dbPath. It blocks until ctx is done.
func (a *Adapter) Watch(ctx context.Context, dbPath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create settings watcher: %w", err)
	}
	defer func() {
		if cerr := watcher.Close(); cerr != nil {
			a.logger.Debug("settings watcher close failed", "err", cerr)
		}
	}()

	dir := filepath.Dir(dbPath)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	base := filepath.Base(dbPath)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// SQLite also writes -wal and -journal siblings.
			if !strings.HasPrefix(filepath.Base(ev.Name), base) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if _, err := a.Refresh(ctx); err != nil {
				a.logger.Warn("settings refresh failed", "err", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("settings watcher error", "err", err)
		}
	}
}
