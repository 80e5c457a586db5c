// Package progress persists extraction job state for resume.
//
// State is written with an atomic temp-file-and-rename pattern so a crash
// at any point leaves either the previous checkpoint or the new one on
// disk, never a torn file. Each job gets its own directory keyed by the
// job identity hash, so distinct extractions never share state.
package progress

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Store persists and loads JobStates from an on-disk directory.
//
// Directory layout:
//
//	<root>/<job_id>/state.json
type Store struct {
	root string
}

// NewStore creates a store rooted at the given directory.
func NewStore(root string) *Store {
	return &Store{root: strings.TrimSpace(root)}
}

// RootDir returns the store's root directory.
func (s *Store) RootDir() string {
	return s.root
}

// StatePath returns the path of a job's state file.
func (s *Store) StatePath(jobID string) string {
	return filepath.Join(s.root, jobID, "state.json")
}

func (s *Store) ensureRoot() error {
	if strings.TrimSpace(s.root) == "" {
		return fmt.Errorf("progress store root dir is empty")
	}
	return os.MkdirAll(s.root, 0755)
}

// Write persists the state atomically: full content to a temp file in the
// job directory, then rename over state.json.
func (s *Store) Write(state *JobState) error {
	if state == nil {
		return fmt.Errorf("job state is nil")
	}
	jobID := strings.TrimSpace(state.JobID)
	if jobID == "" {
		return fmt.Errorf("job_id is required")
	}
	if err := s.ensureRoot(); err != nil {
		return err
	}

	jobDir := filepath.Join(s.root, jobID)
	if err := os.MkdirAll(jobDir, 0755); err != nil {
		return fmt.Errorf("create job dir: %w", err)
	}

	state.UpdatedAt = time.Now().UTC()

	b, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal job state: %w", err)
	}
	b = append(b, '\n')

	tmp, err := os.CreateTemp(jobDir, "state.json.tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tmpName, s.StatePath(jobID)); err != nil {
		return fmt.Errorf("rename state file: %w", err)
	}
	return nil
}

// Load reads a job's state. Returns (nil, nil) when no state exists yet.
func (s *Store) Load(jobID string) (*JobState, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, fmt.Errorf("job_id is required")
	}
	b, err := os.ReadFile(s.StatePath(jobID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	trimmed := strings.TrimSpace(string(b))
	if trimmed == "" {
		return nil, fmt.Errorf("state.json is empty")
	}

	var state JobState
	if err := json.Unmarshal([]byte(trimmed), &state); err != nil {
		return nil, fmt.Errorf("parse state.json: %w", err)
	}
	return &state, nil
}

// List returns all persisted job states, most recently updated first.
func (s *Store) List() ([]JobState, error) {
	if err := s.ensureRoot(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read progress root: %w", err)
	}

	out := make([]JobState, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		state, err := s.Load(entry.Name())
		if err != nil || state == nil {
			continue
		}
		out = append(out, *state)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Wipe removes a job's persisted state so a later run restarts from
// scratch. Operator-initiated only; state is never deleted automatically.
func (s *Store) Wipe(jobID string) error {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return fmt.Errorf("job_id is required")
	}
	return os.RemoveAll(filepath.Join(s.root, jobID))
}

// Tracker couples a JobState with its Store so every mutation is
// checkpointed before the caller proceeds.
type Tracker struct {
	store *Store
	state *JobState
}

// NewTracker loads existing state for the job identity or creates a fresh
// one. The boolean result reports whether a prior state was resumed.
func NewTracker(store *Store, fresh JobState) (*Tracker, bool, error) {
	existing, err := store.Load(fresh.JobID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return &Tracker{store: store, state: existing}, true, nil
	}

	now := time.Now().UTC()
	fresh.Status = JobStatusRunning
	fresh.CurrentWindow = -1
	fresh.CreatedAt = now
	if err := store.Write(&fresh); err != nil {
		return nil, false, err
	}
	return &Tracker{store: store, state: &fresh}, false, nil
}

// State returns the current job state. Callers must not mutate it.
func (t *Tracker) State() *JobState {
	return t.state
}

// MarkWindowStarted records that the window at index is being enumerated.
// The cursor resets unless the same window is being resumed.
func (t *Tracker) MarkWindowStarted(index int) error {
	if t.state.CurrentWindow != index {
		t.state.CurrentWindow = index
		t.state.Cursor = nil
	}
	t.state.Status = JobStatusRunning
	return t.store.Write(t.state)
}

// AdvanceCursor saves the window's resume position. Cursors only move
// toward the window's older boundary; a stale advance is rejected.
func (t *Tracker) AdvanceCursor(c Cursor) error {
	if t.state.Cursor != nil && c.Before.After(t.state.Cursor.Before) {
		return fmt.Errorf("cursor moved backward: %s after %s",
			c.Before.Format(time.RFC3339), t.state.Cursor.Before.Format(time.RFC3339))
	}
	t.state.Cursor = &c
	return t.store.Write(t.state)
}

// AddRecords bumps the exported record count.
func (t *Tracker) AddRecords(delta int64) error {
	t.state.RecordsExported += delta
	return t.store.Write(t.state)
}

// ReconcileRecords resets the exported record count to the export store's
// actual row count. A crash between an export append and the count update
// leaves the checkpoint behind the store; the store is the authority.
func (t *Tracker) ReconcileRecords(count int64) error {
	if t.state.RecordsExported == count {
		return nil
	}
	t.state.RecordsExported = count
	return t.store.Write(t.state)
}

// MarkWindowComplete marks the window at index complete and clears the
// cursor. Completed windows are never re-entered.
func (t *Tracker) MarkWindowComplete(index int) error {
	if !t.state.WindowComplete(index) {
		t.state.CompletedWindows = append(t.state.CompletedWindows, index)
		sort.Ints(t.state.CompletedWindows)
	}
	t.state.Cursor = nil
	return t.store.Write(t.state)
}

// MarkFinished records successful completion of all windows.
func (t *Tracker) MarkFinished() error {
	now := time.Now().UTC()
	t.state.Status = JobStatusFinished
	t.state.EndedAt = &now
	return t.store.Write(t.state)
}

// MarkFailed records a terminal failure, preserving the last checkpoint so
// a subsequent run resumes the in-progress window from its cursor.
func (t *Tracker) MarkFailed(cause error) error {
	now := time.Now().UTC()
	t.state.Status = JobStatusFailed
	t.state.EndedAt = &now
	if cause != nil {
		t.state.LastError = cause.Error()
	}
	return t.store.Write(t.state)
}
