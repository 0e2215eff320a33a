package vcs

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/raphi011/gitembed/internal/cmd"
	"github.com/raphi011/gitembed/internal/config"
)

// ErrToolNotFound indicates the VCS executable is not installed or not in PATH
var ErrToolNotFound = errors.New("vcs executable not found")

// Runner executes a VCS command with dir as working directory.
// Implementations must honour ctx cancellation and return ctx.Err() when
// the command was interrupted by it.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) error
}

// HeadResolver is implemented by runners that can report the commit checked
// out in a working tree.
type HeadResolver interface {
	Head(ctx context.Context, dir string) (string, error)
}

// New returns the Runner for the configured backend.
func New(backend, binary string) (Runner, error) {
	switch backend {
	case "", config.BackendExec:
		if binary == "" {
			binary = config.DefaultVCSBinary
		}
		return &Exec{Binary: binary}, nil
	case config.BackendGoGit:
		return &GoGit{}, nil
	default:
		return nil, fmt.Errorf("unknown vcs backend %q", backend)
	}
}

// Exec runs commands through an external VCS executable.
type Exec struct {
	Binary string
}

// Run executes Binary with args in dir. Output is captured, never streamed.
func (e *Exec) Run(ctx context.Context, dir string, args ...string) error {
	err := cmd.RunContext(ctx, dir, e.Binary, args...)
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrToolNotFound, e.Binary)
	}
	return err
}

// Head returns the commit hash checked out in dir.
func (e *Exec) Head(ctx context.Context, dir string) (string, error) {
	out, err := cmd.OutputContext(ctx, dir, e.Binary, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// CheckTool verifies that binary is available in PATH
func CheckTool(binary string) error {
	if _, err := exec.LookPath(binary); err != nil {
		return fmt.Errorf("%w: %s (please install git: https://git-scm.com)", ErrToolNotFound, binary)
	}
	return nil
}

// RepoNameFromURL derives the checkout directory name from a repository URL:
// the last path segment with everything from its first "." removed.
//
//	https://github.com/org/lib.git   -> lib
//	git@github.com:org/lib.v2.git    -> lib
//	file:///srv/repos/lib/           -> lib
func RepoNameFromURL(url string) string {
	url = strings.TrimRight(url, "/")
	if i := strings.LastIndexAny(url, "/:"); i >= 0 {
		url = url[i+1:]
	}
	if i := strings.Index(url, "."); i >= 0 {
		url = url[:i]
	}
	return url
}
