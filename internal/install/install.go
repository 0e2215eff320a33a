package install

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/raphi011/gitembed/internal/config"
	"github.com/raphi011/gitembed/internal/log"
	"github.com/raphi011/gitembed/internal/scratch"
	"github.com/raphi011/gitembed/internal/vcs"
)

// Options tunes an Installer. Zero timeouts disable the bound.
type Options struct {
	ScratchRoot     string // parent of per-install workspaces; empty = os.TempDir()
	CloneTimeout    time.Duration
	CheckoutTimeout time.Duration
	SidecarExt      string // empty disables sidecar relocation
}

// Installer places git-hosted source trees into project directories.
// It holds no per-install state; every Install call gets its own scratch
// workspace, so one Installer may serve concurrent calls for distinct
// destinations.
type Installer struct {
	runner  vcs.Runner
	scratch scratch.Factory
	opts    Options
}

// Result describes a finished install.
type Result struct {
	Path       string // the installed (or already present) target
	Skipped    bool   // target existed and Force was not set
	Revision   string // commit that was installed, when the backend can tell
	RunID      string // identifies the scratch workspace used
	CleanupErr error  // non-nil when the scratch workspace could not be removed
}

// New creates an Installer that issues VCS commands through runner.
func New(runner vcs.Runner, opts Options) *Installer {
	root := opts.ScratchRoot
	if root == "" {
		root = os.TempDir()
	}
	return &Installer{
		runner:  runner,
		scratch: scratch.Factory{Root: root},
		opts:    opts,
	}
}

// FromConfig creates an Installer for the configured backend.
func FromConfig(cfg *config.Config) (*Installer, error) {
	runner, err := vcs.New(cfg.Backend, cfg.VCSBinary)
	if err != nil {
		return nil, err
	}
	return New(runner, Options{
		ScratchRoot:     cfg.EffectiveScratchDir(),
		CloneTimeout:    cfg.Timeouts.Clone,
		CheckoutTimeout: cfg.Timeouts.Checkout,
		SidecarExt:      cfg.SidecarExt,
	}), nil
}

// Install runs Resolve, Fetch, Pin and Relocate in order. Once a scratch
// workspace has been allocated it is reaped before Install returns, whatever
// the outcome. A cleanup failure is reported on Result.CleanupErr and never
// changes the returned error.
//
// On error no partial artifact is left at the destination.
func (i *Installer) Install(ctx context.Context, req Request) (res Result, err error) {
	l := log.FromContext(ctx)

	resolved, err := Resolve(req)
	if err != nil {
		return Result{}, &StepError{Step: StepResolve, Err: err}
	}
	if !resolved.Proceed {
		l.Debug("already installed", "path", resolved.Target)
		return Result{Path: resolved.Target, Skipped: true}, nil
	}

	ws := i.scratch.New()
	res.RunID = ws.ID()

	defer func() {
		if cerr := ws.Reap(); cerr != nil {
			res.CleanupErr = cerr
			l.Printf("Warning: %v\n", cerr)
		}
	}()

	staged, err := i.fetch(ctx, ws, req.Repository.URL, resolved.RepoName)
	if err != nil {
		return res, &StepError{Step: StepFetch, Err: err}
	}

	if err := i.pin(ctx, staged, req.Repository.Revision); err != nil {
		return res, &StepError{Step: StepPin, Err: err}
	}

	res.Revision = i.head(ctx, staged)

	final, err := Relocate(ctx, staged, resolved.Subpath, req.DestinationRoot, i.opts.SidecarExt)
	if err != nil {
		return res, &StepError{Step: StepRelocate, Err: err}
	}

	res.Path = final
	return res, nil
}

// InstallRepository is the coarse-grained entry point: it dispatches only
// git repositories and reports success as a bool. Failures are logged.
func (i *Installer) InstallRepository(ctx context.Context, destinationRoot string, repo Repository, force bool) bool {
	if repo.Kind != KindGit {
		return false
	}

	_, err := i.Install(ctx, Request{
		DestinationRoot: destinationRoot,
		Repository:      repo,
		Force:           force,
	})
	if err != nil {
		log.FromContext(ctx).Printf("Error: install %s: %v\n", repo.URL, err)
		return false
	}
	return true
}

// fetch clones url into the workspace as <workspace>/<name>. Only the
// presence of that directory counts as success; the tool's exit status is
// logged but not trusted.
func (i *Installer) fetch(ctx context.Context, ws *scratch.Workspace, url, name string) (string, error) {
	l := log.FromContext(ctx)

	if err := ws.Ensure(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCloneFailed, err)
	}

	cctx, cancel := withTimeout(ctx, i.opts.CloneTimeout)
	defer cancel()

	l.Debug("clone", "url", url, "scratch", ws.Path())
	runErr := i.runner.Run(cctx, ws.Path(), "clone", url, name)

	if timedOut(ctx, cctx) {
		return "", fmt.Errorf("%w after %s: %s", ErrFetchTimedOut, i.opts.CloneTimeout, url)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	staged := filepath.Join(ws.Path(), name)
	if info, err := os.Stat(staged); err != nil || !info.IsDir() {
		if runErr != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrCloneFailed, url, runErr)
		}
		return "", fmt.Errorf("%w: %s: no checkout produced", ErrCloneFailed, url)
	}
	if runErr != nil {
		l.Debug("clone reported an error but produced a checkout", "error", runErr)
	}

	return staged, nil
}

// pin checks out revision in the staged checkout. An empty revision is a no-op.
func (i *Installer) pin(ctx context.Context, staged, revision string) error {
	if revision == "" {
		return nil
	}

	pctx, cancel := withTimeout(ctx, i.opts.CheckoutTimeout)
	defer cancel()

	log.FromContext(ctx).Debug("checkout", "revision", revision)
	err := i.runner.Run(pctx, staged, "checkout", revision)

	if timedOut(ctx, pctx) {
		return fmt.Errorf("%w after %s: %s", ErrPinTimedOut, i.opts.CheckoutTimeout, revision)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPinFailed, revision, err)
	}
	return nil
}

// head reports the checked-out commit when the runner supports it.
func (i *Installer) head(ctx context.Context, staged string) string {
	hr, ok := i.runner.(HeadResolver)
	if !ok {
		return ""
	}
	rev, err := hr.Head(ctx, staged)
	if err != nil {
		log.FromContext(ctx).Debug("could not resolve installed revision", "error", err)
		return ""
	}
	return rev
}

// HeadResolver is re-exported so callers need not import vcs.
type HeadResolver = vcs.HeadResolver

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// timedOut reports whether child hit its own deadline while parent is still live.
func timedOut(parent, child context.Context) bool {
	return parent.Err() == nil && errors.Is(child.Err(), context.DeadlineExceeded)
}
