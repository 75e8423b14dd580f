package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/rbe1001/motorcontrol/logging"
)

// A Watcher re-reads a config file every time it is written and delivers each valid result.
// Invalid intermediate contents are logged and skipped.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	configs   chan *Config
	workers   *utils.StoppableWorkers
}

// NewWatcher starts watching the config at path. The directory is watched rather than the file
// itself so editors that replace the file on save are still seen.
func NewWatcher(path string, logger logging.Logger) (*Watcher, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "cannot create config watcher")
	}
	if err := fsWatcher.Add(filepath.Dir(path)); err != nil {
		return nil, multierr.Combine(errors.Wrapf(err, "cannot watch %s", path), fsWatcher.Close())
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		configs:   make(chan *Config),
	}
	w.workers = utils.NewBackgroundStoppableWorkers(func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-fsWatcher.Errors:
				if !ok {
					return
				}
				logger.CWarnw(ctx, "config watcher error", "error", err)
			case event, ok := <-fsWatcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != path || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := Read(path)
				if err != nil {
					logger.CWarnw(ctx, "ignoring invalid config", "path", path, "error", err)
					continue
				}
				logger.CInfow(ctx, "config changed", "path", path)
				select {
				case <-ctx.Done():
					return
				case w.configs <- cfg:
				}
			}
		}
	})
	return w, nil
}

// Configs returns the channel new configs are delivered on.
func (w *Watcher) Configs() <-chan *Config {
	return w.configs
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.workers.Stop()
	return w.fsWatcher.Close()
}
