package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/gofrs/flock"
)

// Dir is the per-project directory holding gitembed's bookkeeping.
const Dir = ".gitembed"

// ErrLockTimeout is returned when another process holds the state lock for
// longer than the lock timeout.
var ErrLockTimeout = errors.New("timed out waiting for state lock")

// Record describes one installed dependency.
type Record struct {
	Path        string    `json:"path"`
	URL         string    `json:"url"`
	Revision    string    `json:"revision,omitempty"` // requested revision
	Commit      string    `json:"commit,omitempty"`   // resolved commit, when known
	InstalledAt time.Time `json:"installed_at"`
}

// State maps manifest entry names to their install records.
type State struct {
	Installs map[string]Record `json:"installs"`
}

// FilePath returns the state file for a project.
func FilePath(projectDir string) string {
	return filepath.Join(projectDir, Dir, "state.json")
}

// LockPath returns the lock file guarding a project's state.
func LockPath(projectDir string) string {
	return filepath.Join(projectDir, Dir, "state.lock")
}

// Load reads the project's state. A missing file yields an empty state.
func Load(projectDir string) (*State, error) {
	data, err := os.ReadFile(FilePath(projectDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &State{Installs: map[string]Record{}}, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse state %s: %w", FilePath(projectDir), err)
	}
	if s.Installs == nil {
		s.Installs = map[string]Record{}
	}
	return &s, nil
}

// Save writes the state atomically via a temp file and rename.
func Save(projectDir string, s *State) error {
	path := FilePath(projectDir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// Update loads the state under an exclusive file lock, applies fn and saves
// the result. Nothing is written when fn returns an error. Waiting for the
// lock is bounded by timeout and by ctx.
func Update(ctx context.Context, projectDir string, timeout time.Duration, fn func(*State) error) error {
	if err := os.MkdirAll(filepath.Join(projectDir, Dir), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	lock := flock.New(LockPath(projectDir))
	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	locked, err := lock.TryLockContext(lockCtx, 50*time.Millisecond)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", ErrLockTimeout, timeout)
		}
		return fmt.Errorf("failed to acquire state lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("%w after %s", ErrLockTimeout, timeout)
	}
	defer func() { _ = lock.Unlock() }()

	s, err := Load(projectDir)
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		return err
	}
	return Save(projectDir, s)
}

// Set records an install under name.
func (s *State) Set(name string, r Record) {
	s.Installs[name] = r
}

// Get returns the record for name.
func (s *State) Get(name string) (Record, bool) {
	r, ok := s.Installs[name]
	return r, ok
}

// Delete forgets name.
func (s *State) Delete(name string) {
	delete(s.Installs, name)
}

// Names returns the recorded names, sorted.
func (s *State) Names() []string {
	names := make([]string, 0, len(s.Installs))
	for name := range s.Installs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Stale returns the names whose recorded path no longer exists.
func (s *State) Stale() []string {
	var stale []string
	for _, name := range s.Names() {
		if _, err := os.Lstat(s.Installs[name].Path); errors.Is(err, os.ErrNotExist) {
			stale = append(stale, name)
		}
	}
	return stale
}
