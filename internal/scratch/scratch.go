// Package scratch allocates and reaps the disposable workspaces installs are
// staged in.
//
// Every install gets its own workspace, named <root>/gitembed-<uuid>, so
// concurrent invocations never share one. Allocation is lazy: [Factory.New]
// only picks the path, and nothing touches disk until [Workspace.Ensure].
package scratch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Prefix starts the name of every workspace directory.
const Prefix = "gitembed-"

// ErrIncomplete is returned by Reap when the workspace survives the retry.
var ErrIncomplete = errors.New("scratch workspace could not be fully removed")

// removeAll is swapped in tests to simulate undeletable entries.
var removeAll = os.RemoveAll

// Factory hands out workspaces under Root.
type Factory struct {
	Root string
}

// New allocates a uniquely named workspace without creating it.
func (f Factory) New() *Workspace {
	id := uuid.NewString()
	return &Workspace{
		id:   id,
		path: filepath.Join(f.Root, Prefix+id),
	}
}

// Workspace is a scratch directory owned by exactly one install.
type Workspace struct {
	id   string
	path string
}

// ID returns the unique run identifier embedded in the workspace name.
func (w *Workspace) ID() string {
	return w.id
}

// Path returns the workspace directory.
func (w *Workspace) Path() string {
	return w.path
}

// Ensure creates the workspace (and its parent) if missing.
func (w *Workspace) Ensure() error {
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("create scratch root: %w", err)
	}
	if err := os.Mkdir(w.path, 0o700); err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("create scratch workspace: %w", err)
	}
	return nil
}

// Exists reports whether the workspace directory is on disk.
func (w *Workspace) Exists() bool {
	_, err := os.Lstat(w.path)
	return err == nil
}

// Reap removes the workspace. See [Reap].
func (w *Workspace) Reap() error {
	return Reap(w.path)
}

// Reap recursively deletes path. If the first attempt fails (typically on
// read-only objects written by the VCS tool) every entry is made writable
// and deletion is retried once. A path that does not exist is not an error.
func Reap(path string) error {
	if _, err := os.Lstat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err := removeAll(path); err == nil {
		return nil
	}

	makeWritable(path)

	if err := removeAll(path); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrIncomplete, path, err)
	}
	return nil
}

// makeWritable clears read-only bits on path and everything below it.
// Directories are fixed before they are read so locked subtrees can be entered.
func makeWritable(path string) {
	_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if d == nil {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if d.IsDir() {
			_ = os.Chmod(p, 0o700)
			return nil
		}
		if info, statErr := d.Info(); statErr == nil {
			_ = os.Chmod(p, info.Mode().Perm()|0o600)
		}
		return nil
	})
}
