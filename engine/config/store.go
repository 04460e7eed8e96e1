package config

import (
	"context"
	"errors"
	"log"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Store publishes the current Config to read-only consumers. Reads never block.
type Store struct {
	cfg atomic.Pointer[Config]
}

// NewStore creates a Store holding cfg.
//
// Parameters:
//   - cfg: the initial configuration
//
// Returns:
//   - *Store: the store
func NewStore(cfg Config) *Store {
	s := &Store{}
	s.Set(cfg)
	return s
}

// Get returns the current configuration.
func (s *Store) Get() Config {
	return *s.cfg.Load()
}

// Set replaces the current configuration.
func (s *Store) Set(cfg Config) {
	s.cfg.Store(&cfg)
}

// Watch reloads path into store whenever the file is written or replaced, until ctx is done.
// A file that fails to load is logged and the previous configuration is kept. onChange, if not nil,
// is called with every configuration that was stored.
//
// The directory is watched rather than the file so editors that save by rename keep being seen.
//
// Parameters:
//   - ctx: stops the watch when done
//   - path: the config file
//   - store: the store to update
//   - onChange: optional callback
//
// Returns:
//   - error: an error if the watch could not be started
func Watch(ctx context.Context, path string, store *Store, onChange func(Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return err
	}

	target := filepath.Clean(path)
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
					continue
				}
				cfg, err := Load(path)
				if err != nil {
					log.Printf("[Config] reload %s: %v", path, err)
					continue
				}
				store.Set(cfg)
				log.Printf("[Config] reloaded %s", path)
				if onChange != nil {
					onChange(cfg)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				if !errors.Is(err, fsnotify.ErrEventOverflow) {
					log.Printf("[Config] watch %s: %v", path, err)
				}
			}
		}
	}()
	return nil
}
