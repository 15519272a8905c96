package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/berinsbackup-web/AITradingBot/internal/logger"
)

// Watch re-reads path on every write and invokes onReload with the
// freshly parsed config. Reload errors keep the previous config in
// effect. It blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, onReload func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory: editors replace the file on save, which
	// drops a watch set on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}
	target := filepath.Clean(path)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(path)
			if err != nil {
				logger.Errorf("config: reload of %s failed, keeping previous config: %v", path, err)
				continue
			}
			logger.Infof("config: %s reloaded", path)
			onReload(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("config: watcher error: %v", err)
		}
	}
}
