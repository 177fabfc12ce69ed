package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// reloadDebounce collapses the burst of events editors emit when saving.
const reloadDebounce = 500 * time.Millisecond

// Watch reloads the config file whenever it changes and passes the new
// configuration to onChange. Invalid files are logged and skipped. Watch
// blocks until ctx is cancelled.
//
// The parent directory is watched rather than the file itself so that
// atomic replacements (write to temp file, rename over) and Kubernetes
// secret symlink swaps are seen.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsWatcher.Close()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := fsWatcher.Add(filepath.Dir(absPath)); err != nil {
		return err
	}

	log.Debug().Str("path", absPath).Msg("Watching config file for changes")

	var timer *time.Timer
	reload := make(chan struct{}, 1)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			cfg, err := Load(path)
			if err != nil {
				log.Error().Err(err).Str("path", path).Msg("Failed to reload config file; keeping previous settings")
				continue
			}
			if err := cfg.Validate(); err != nil {
				log.Error().Err(err).Str("path", path).Msg("Reloaded config is invalid; keeping previous settings")
				continue
			}
			log.Info().Str("path", path).Msg("Config file reloaded")
			onChange(cfg)

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("Config watcher error")
		}
	}
}
