package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Store holds the current configuration snapshot and supports atomic
// reload. Readers always see a complete, validated snapshot; a failed
// reload keeps the previous one in place.
type Store struct {
	paths   Paths
	current atomic.Pointer[Snapshot]
	log     *slog.Logger
}

// NewStore loads the initial snapshot from paths.
func NewStore(paths Paths, log *slog.Logger) (*Store, error) {
	snap, err := Load(paths)
	if err != nil {
		return nil, err
	}

	s := &Store{paths: paths, log: log}
	s.current.Store(snap)
	return s, nil
}

// Snapshot returns the current immutable configuration.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Reload re-reads all documents and swaps in the new snapshot if they
// validate. On failure the previous snapshot stays active.
func (s *Store) Reload() error {
	snap, err := Load(s.paths)
	if err != nil {
		return fmt.Errorf("reload rejected: %w", err)
	}
	s.current.Store(snap)
	s.log.Info("configuration reloaded",
		"endpoints", len(snap.Endpoints),
		"auth_methods", len(snap.Auth.Methods),
	)
	return nil
}

// Watch reloads the configuration when any of the document files change.
// It blocks until ctx is cancelled. Reload failures are logged, never
// fatal: requests in flight keep the snapshot they started with.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch directories, not files: editors replace files on save and a
	// file-level watch would be lost after the first rename.
	dirs := make(map[string]bool)
	watched := map[string]bool{
		filepath.Clean(s.paths.API):       true,
		filepath.Clean(s.paths.Auth):      true,
		filepath.Clean(s.paths.Endpoints): true,
	}
	for p := range watched {
		dirs[filepath.Dir(p)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	// Debounce bursts of events from a single save.
	var pending *time.Timer
	trigger := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !watched[filepath.Clean(event.Name)] {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(250*time.Millisecond, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})

		case <-trigger:
			if err := s.Reload(); err != nil {
				s.log.Error("configuration reload failed", "error", err)
			}

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("config watcher error", "error", watchErr)
		}
	}
}
