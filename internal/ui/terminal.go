package ui

import (
	"os"

	"github.com/mattn/go-isatty"
)

// IsTerminal reports whether f is attached to a terminal (including Cygwin
// and MSYS ptys).
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Interactive reports whether both stdin and stderr are terminals, i.e.
// whether prompts and progress displays can be shown.
func Interactive() bool {
	return IsTerminal(os.Stdin) && IsTerminal(os.Stderr)
}
