// Package snapshot persists the set of running shares so the supervisor can
// relaunch them after a restart. The snapshot is a JSON array of {id, path}
// pairs; path is the share's originating config file.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Entry is one persisted share: its node id and the config path that
// produced it.
type Entry struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// WriteError reports a failed snapshot write, wrapping the I/O reason.
type WriteError struct{ Err error }

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write snapshot: %v", e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ReadError reports an unreadable snapshot file.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read snapshot at %s", e.Path)
}

func (e *ReadError) Unwrap() error { return e.Err }

// ParseError reports a snapshot file that is not valid JSON.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse snapshot at %s", e.Path)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Save writes entries to path as an indented JSON array, human-diffable.
// The file is held under an advisory lock while written so two supervisor
// instances cannot interleave snapshots.
func Save(path string, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return &WriteError{Err: err}
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return &WriteError{Err: err}
	}
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return &WriteError{Err: err}
	}
	defer func() { _ = lock.Unlock() }()

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return &WriteError{Err: err}
	}
	return nil
}

// StartFunc relaunches one share from its config path.
type StartFunc func(ctx context.Context, configPath string) error

// Load reads the snapshot at path and invokes start once per entry.
// Relaunch failures do not abort the remaining entries: each failure is
// logged and the collected errors are returned joined, so a partially
// damaged snapshot still restores every share it can.
func Load(ctx context.Context, path string, log *slog.Logger, start StartFunc) error {
	lock := flock.New(path + ".lock")
	if err := lock.RLock(); err != nil {
		return &ReadError{Path: path, Err: err}
	}
	data, readErr := os.ReadFile(path)
	_ = lock.Unlock()
	if readErr != nil {
		return &ReadError{Path: path, Err: readErr}
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return &ParseError{Path: path, Err: err}
	}

	var failures []error
	for _, e := range entries {
		if err := start(ctx, e.Path); err != nil {
			if log != nil {
				log.Warn("failed to relaunch share from snapshot",
					"id", e.ID, "path", e.Path, "error", err)
			}
			failures = append(failures, fmt.Errorf("share %s: %w", e.ID, err))
		}
	}
	return errors.Join(failures...)
}
