package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/jonwraymond/opscore/observe"
)

// Watch reloads the file at path whenever it changes and passes the new
// Config to onChange. It runs until ctx is cancelled.
//
// A reload that fails to parse or validate is logged and skipped; the
// caller keeps its previous config.
func Watch(ctx context.Context, path string, logger observe.Logger, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// The directory is watched so atomic saves, which replace the file,
	// keep producing events.
	path = filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	field := observe.Field{Key: "path", Value: path}
	logger.Info(ctx, "watching config for changes", field)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path || (!event.Has(fsnotify.Write) && !event.Has(fsnotify.Create)) {
				continue
			}

			cfg, err := Load(path)
			if err != nil {
				logger.Error(ctx, "config reload failed, keeping previous config", field,
					observe.Field{Key: "error", Value: err.Error()})
				continue
			}
			logger.Info(ctx, "config reloaded", field)
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn(ctx, "config watcher error", observe.Field{Key: "error", Value: err.Error()})
		}
	}
}
