package install

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"

	"github.com/raphi011/gitembed/internal/log"
)

// rename is swapped in tests to simulate cross-device moves.
var rename = os.Rename

// Relocate moves join(staged, subpath) to join(destinationRoot, Leaf(subpath)),
// creating parent directories as needed. A sidecar "<source>.<sidecarExt>"
// travels to "<final>.<sidecarExt>" when present. An existing target is
// replaced together with its sidecar, which is removed when the new source
// has none. If anything fails the destination is restored to its prior state.
func Relocate(ctx context.Context, staged, subpath, destinationRoot, sidecarExt string) (string, error) {
	l := log.FromContext(ctx)

	src := staged
	if subpath != "" {
		src = filepath.Join(staged, filepath.FromSlash(subpath))
	}
	if _, err := os.Stat(src); err != nil {
		return "", fmt.Errorf("%w: %s", ErrRelocationSourceMissing, subpath)
	}

	final := filepath.Join(destinationRoot, Leaf(subpath))
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return "", fmt.Errorf("%w: create destination: %v", ErrRelocationFailed, err)
	}

	tx := &transaction{id: uuid.NewString()[:8], l: l}
	tx.add(src, final)
	if sidecarExt != "" {
		meta := src + "." + sidecarExt
		finalMeta := final + "." + sidecarExt
		if info, err := os.Lstat(meta); err == nil && info.Mode().IsRegular() {
			tx.add(meta, finalMeta)
		} else if exists(final) && exists(finalMeta) {
			// The replaced install's sidecar must not outlive it
			tx.discard(finalMeta)
		}
	}

	if err := tx.commit(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRelocationFailed, err)
	}

	l.Debug("relocated", "from", src, "to", final)
	return final, nil
}

// move is one source -> destination rename inside a transaction. A move
// without src only clears dst.
type move struct {
	src, dst string
	backup   string // set once an existing dst was moved aside
	done     bool
}

// transaction moves a primary entry and its sidecar so that the destination
// either ends up with all of them or is left as it was.
type transaction struct {
	id    string
	l     *log.Logger
	moves []*move
}

func (t *transaction) add(src, dst string) {
	t.moves = append(t.moves, &move{src: src, dst: dst})
}

// discard removes dst on commit and restores it on rollback.
func (t *transaction) discard(dst string) {
	t.moves = append(t.moves, &move{dst: dst})
}

func (t *transaction) commit() error {
	for _, m := range t.moves {
		if exists(m.dst) {
			backup := m.dst + ".gitembed-old-" + t.id
			if err := rename(m.dst, backup); err != nil {
				t.rollback()
				return fmt.Errorf("move aside %s: %w", m.dst, err)
			}
			m.backup = backup
		}
		if m.src == "" {
			continue
		}

		if err := moveEntry(m.src, m.dst, t.id, t.l); err != nil {
			t.rollback()
			return fmt.Errorf("move %s to %s: %w", m.src, m.dst, err)
		}
		m.done = true
	}

	for _, m := range t.moves {
		if m.backup == "" {
			continue
		}
		if err := os.RemoveAll(m.backup); err != nil {
			t.l.Printf("Warning: failed to remove previous install %s: %v\n", m.backup, err)
		}
	}
	return nil
}

// rollback undoes completed moves in reverse order and restores backups.
func (t *transaction) rollback() {
	for i := len(t.moves) - 1; i >= 0; i-- {
		m := t.moves[i]
		if m.done {
			if err := rename(m.dst, m.src); err != nil {
				_ = os.RemoveAll(m.dst)
			}
			m.done = false
		}
		if m.backup != "" {
			if err := rename(m.backup, m.dst); err != nil {
				t.l.Printf("Warning: failed to restore %s from %s: %v\n", m.dst, m.backup, err)
				continue
			}
			m.backup = ""
		}
	}
}

// moveEntry renames src to dst. Across filesystems it copies into a
// temporary sibling of dst and renames that into place, so dst only ever
// appears complete.
func moveEntry(src, dst, id string, l *log.Logger) error {
	err := rename(src, dst)
	if err == nil || !isCrossDevice(err) {
		return err
	}

	l.Debug("cross-device move, copying", "from", src, "to", dst)

	tmp := dst + ".gitembed-tmp-" + id
	if err := copyTree(src, tmp); err != nil {
		_ = os.RemoveAll(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.RemoveAll(tmp)
		return err
	}
	if err := os.RemoveAll(src); err != nil {
		l.Debug("failed to remove copied source", "path", src, "error", err)
	}
	return nil
}

func isCrossDevice(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}
