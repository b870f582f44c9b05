// Package store persists the alarm settings across restarts.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// State is the one persisted record.
type State struct {
	WakeOffsetMinutes int  `json:"wake_offset_minutes"`
	Enabled           bool `json:"enabled"`
}

// Store reads and writes the state file. A missing or corrupt file is never
// fatal; the daemon falls back to defaults and keeps running.
type Store struct {
	path string
	log  *slog.Logger
}

// New creates a store at the given path.
func New(path string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{path: path, log: log}
}

// Path returns the state file location.
func (s *Store) Path() string { return s.path }

// Load returns the persisted state, or fallback when the file is missing or
// unreadable.
func (s *Store) Load(fallback State) State {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Debug("no saved state, using defaults", "path", s.path)
		} else {
			s.log.Warn("saved state unreadable, using defaults", "path", s.path, "error", err)
		}
		return fallback
	}

	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		s.log.Warn("saved state corrupt, using defaults", "path", s.path, "error", err)
		return fallback
	}
	if st.WakeOffsetMinutes < 0 || st.WakeOffsetMinutes >= 24*60 {
		s.log.Warn("saved wake offset out of range, using defaults",
			"path", s.path, "wake_offset_minutes", st.WakeOffsetMinutes)
		return fallback
	}
	return st
}

// Save writes the state atomically: a temp file in the same directory, then
// a rename over the old file. A crash mid-save leaves the previous state
// intact.
func (s *Store) Save(st State) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	b = append(b, '\n')

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("commit state: %w", err)
	}
	return nil
}
