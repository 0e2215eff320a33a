package install

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// copyTree copies src (a file, symlink or directory) to dst, preserving
// permission bits and symlinks. dst must not exist.
func copyTree(src, dst string) error {
	// Directories are created owner-writable and get their real mode once
	// their contents are in place.
	type dirMode struct {
		path string
		perm fs.FileMode
	}
	var dirs []dirMode

	err := filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case info.Mode()&fs.ModeSymlink != 0:
			link, err := os.Readlink(p)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case info.IsDir():
			if err := os.Mkdir(target, info.Mode().Perm()|0o700); err != nil {
				return err
			}
			dirs = append(dirs, dirMode{target, info.Mode().Perm()})
			return nil
		case info.Mode().IsRegular():
			return copyFile(p, target, info.Mode().Perm())
		default:
			return fmt.Errorf("cannot copy %s: unsupported file type %s", p, info.Mode().Type())
		}
	})
	if err != nil {
		return err
	}

	// Deepest first, so a read-only parent never blocks its children
	for i := len(dirs) - 1; i >= 0; i-- {
		if err := os.Chmod(dirs[i].path, dirs[i].perm); err != nil {
			return err
		}
	}
	return nil
}

// copyFile copies src to dst with the given permissions.
// Uses O_CREATE|O_EXCL so an existing dst is never overwritten.
func copyFile(src, dst string, perm fs.FileMode) error {
	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("refusing to overwrite %s", dst)
		}
		return err
	}

	srcFile, err := os.Open(src)
	if err != nil {
		dstFile.Close()
		os.Remove(dst) // clean up empty dst
		return err
	}
	defer srcFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		os.Remove(dst) // clean up partial dst
		return err
	}
	return dstFile.Close()
}
