package install

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/raphi011/gitembed/internal/vcs"
)

// KindGit is the only supported repository kind.
const KindGit = "git"

// Repository describes where content comes from.
type Repository struct {
	Kind     string // must be KindGit
	URL      string
	Revision string // optional; empty keeps the clone's default branch
	Subpath  string // optional, slash separated; empty installs the whole checkout
}

// Request is one desired dependency placement.
type Request struct {
	DestinationRoot string // absolute
	Repository      Repository
	Force           bool // replace an existing target instead of short-circuiting
}

// Resolution is the outcome of resolving a request.
type Resolution struct {
	Proceed  bool   // false when the target already exists and Force is unset
	Target   string // DestinationRoot joined with Leaf
	Leaf     string // last segment of the subpath, "" for whole-checkout installs
	Subpath  string // cleaned subpath
	RepoName string // directory name the clone is staged under
}

// Resolve validates req and decides whether an install is needed.
// The kind check happens before anything else so unsupported requests never
// touch the filesystem.
func Resolve(req Request) (Resolution, error) {
	repo := req.Repository
	if repo.Kind != KindGit {
		return Resolution{}, fmt.Errorf("%w: %q", ErrUnsupportedKind, repo.Kind)
	}
	if strings.TrimSpace(repo.URL) == "" {
		return Resolution{}, fmt.Errorf("%w: repository url is empty", ErrInvalidRequest)
	}
	if req.DestinationRoot == "" || !filepath.IsAbs(req.DestinationRoot) {
		return Resolution{}, fmt.Errorf("%w: destination must be an absolute path, got %q", ErrInvalidRequest, req.DestinationRoot)
	}

	subpath, err := cleanSubpath(repo.Subpath)
	if err != nil {
		return Resolution{}, err
	}

	name := vcs.RepoNameFromURL(repo.URL)
	if name == "" {
		return Resolution{}, fmt.Errorf("%w: cannot derive repository name from %q", ErrInvalidRequest, repo.URL)
	}

	res := Resolution{
		Proceed:  true,
		Leaf:     Leaf(subpath),
		Subpath:  subpath,
		RepoName: name,
	}
	res.Target = filepath.Join(req.DestinationRoot, res.Leaf)

	if !req.Force && Installed(res.Target) {
		res.Proceed = false
	}
	return res, nil
}

// Installed reports whether target holds an install. Only a directory
// counts; a stray file at the target path does not.
func Installed(target string) bool {
	info, err := os.Stat(target)
	return err == nil && info.IsDir()
}

// Leaf returns the final segment of a slash-separated subpath, or "" when
// subpath is empty.
func Leaf(subpath string) string {
	subpath = strings.Trim(subpath, "/")
	if subpath == "" {
		return ""
	}
	return path.Base(subpath)
}

// cleanSubpath normalises a subpath and rejects ones that escape the checkout.
func cleanSubpath(subpath string) (string, error) {
	subpath = filepath.ToSlash(strings.TrimSpace(subpath))
	if subpath == "" {
		return "", nil
	}
	if path.IsAbs(subpath) {
		return "", fmt.Errorf("%w: subpath %q must be relative", ErrInvalidRequest, subpath)
	}
	cleaned := path.Clean(subpath)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: subpath %q escapes the repository", ErrInvalidRequest, subpath)
	}
	if cleaned == "." {
		return "", nil
	}
	return cleaned, nil
}

func exists(p string) bool {
	_, err := os.Lstat(p)
	return err == nil
}
