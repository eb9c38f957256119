package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reloads the configuration file when it changes on disk. Reloads
// that fail to parse or validate are logged and dropped; the previous
// configuration stays in effect.
type Watcher struct {
	path    string
	fs      *fsnotify.Watcher
	updates chan *Config
	log     zerolog.Logger
}

// NewWatcher starts watching the configuration file at path. The parent
// directory is watched rather than the file itself so that editors that
// replace the file atomically are still observed.
func NewWatcher(path string, log zerolog.Logger) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		fs.Close()
		return nil, err
	}

	if err := fs.Add(filepath.Dir(abs)); err != nil {
		fs.Close()
		return nil, err
	}

	w := &Watcher{
		path:    abs,
		fs:      fs,
		updates: make(chan *Config, 1),
		log:     log,
	}
	go w.loop()

	return w, nil
}

// Updates returns the channel on which validated reloads are delivered. The
// channel is closed when the watcher is closed.
func (w *Watcher) Updates() <-chan *Config {
	return w.updates
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

func (w *Watcher) loop() {
	defer close(w.updates)

	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}

			cfg, err := Load(w.path)
			if err != nil {
				w.log.Warn().Err(err).Str("path", w.path).Msg("config reload rejected")
				continue
			}
			w.log.Info().Str("path", w.path).Msg("config reloaded")

			// Replace a pending update if the consumer is slow.
			select {
			case w.updates <- cfg:
			default:
				select {
				case <-w.updates:
				default:
				}
				w.updates <- cfg
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("config watcher error")
		}
	}
}
