package vcs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/raphi011/gitembed/internal/log"
)

// GoGit implements Runner with go-git, for hosts without a git binary.
type GoGit struct{}

// Run interprets "clone <url> <name>" and "checkout <revision>".
func (g *GoGit) Run(ctx context.Context, dir string, args ...string) error {
	if len(args) == 0 {
		return errors.New("go-git: no command given")
	}

	l := log.FromContext(ctx)
	l.Debug("go-git", "dir", dir, "args", args)

	var err error
	switch {
	case args[0] == "clone" && len(args) == 3:
		err = g.clone(ctx, args[1], filepath.Join(dir, args[2]))
	case args[0] == "checkout" && len(args) == 2:
		err = g.checkout(dir, args[1])
	default:
		return fmt.Errorf("go-git: unsupported command %q", args)
	}

	// Match Exec: an interrupted command reports the context error
	if ctxErr := ctx.Err(); err != nil && ctxErr != nil {
		return ctxErr
	}
	return err
}

func (*GoGit) clone(ctx context.Context, url, path string) error {
	_, err := git.PlainCloneContext(ctx, path, false, &git.CloneOptions{URL: url})
	if err != nil {
		return fmt.Errorf("failed to clone repository: %w", err)
	}
	return nil
}

func (*GoGit) checkout(dir, revision string) error {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return fmt.Errorf("failed to open repository: %w", err)
	}

	hash, err := resolveRevision(repo, revision)
	if err != nil {
		return err
	}

	workTree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	if err := workTree.Checkout(&git.CheckoutOptions{Hash: *hash}); err != nil {
		return fmt.Errorf("failed to checkout %s: %w", revision, err)
	}
	return nil
}

// resolveRevision resolves revision like "git checkout" would for a fresh
// clone: tags, hashes and local refs first, then remote-tracking branches.
func resolveRevision(repo *git.Repository, revision string) (*plumbing.Hash, error) {
	hash, err := repo.ResolveRevision(plumbing.Revision(revision))
	if err == nil {
		return hash, nil
	}

	remote, remoteErr := repo.ResolveRevision(plumbing.Revision("refs/remotes/origin/" + revision))
	if remoteErr == nil {
		return remote, nil
	}

	return nil, fmt.Errorf("failed to resolve revision %s: %w", revision, err)
}

// Head returns the commit hash checked out in dir.
func (*GoGit) Head(_ context.Context, dir string) (string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", fmt.Errorf("failed to open repository: %w", err)
	}
	ref, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD reference: %w", err)
	}
	return ref.Hash().String(), nil
}
