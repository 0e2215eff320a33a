package install

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/raphi011/gitembed/internal/cmd"
	"github.com/raphi011/gitembed/internal/vcs"
)

// fakeRunner stands in for a VCS tool. A clone materialises files under
// <dir>/<name>; checkout only records the call.
type fakeRunner struct {
	files       map[string]string // relative path -> content written by clone
	skipClone   bool              // clone produces no directory
	cloneErr    error
	checkoutErr error
	block       string // "clone" or "checkout": wait for ctx instead of finishing

	mu    sync.Mutex
	calls [][]string
}

func (f *fakeRunner) Run(ctx context.Context, dir string, args ...string) error {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{}, args...))
	f.mu.Unlock()

	if f.block == args[0] {
		<-ctx.Done()
		return ctx.Err()
	}

	switch args[0] {
	case "clone":
		if !f.skipClone {
			root := filepath.Join(dir, args[2])
			if err := os.MkdirAll(root, 0o755); err != nil {
				return err
			}
			for rel, content := range f.files {
				p := filepath.Join(root, filepath.FromSlash(rel))
				if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
					return err
				}
				if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
					return err
				}
			}
		}
		return f.cloneErr
	case "checkout":
		return f.checkoutErr
	}
	return fmt.Errorf("unexpected command %v", args)
}

func (f *fakeRunner) commands() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string{}, f.calls...)
}

type fixture struct {
	dest    string
	scratch string
	runner  *fakeRunner
	inst    *Installer
}

func newFixture(t *testing.T, runner *fakeRunner, opts Options) *fixture {
	t.Helper()
	tmp := t.TempDir()
	fx := &fixture{
		dest:    filepath.Join(tmp, "project", "deps"),
		scratch: filepath.Join(tmp, "scratch"),
		runner:  runner,
	}
	if err := os.MkdirAll(fx.dest, 0o755); err != nil {
		t.Fatal(err)
	}
	opts.ScratchRoot = fx.scratch
	if opts.SidecarExt == "" {
		opts.SidecarExt = "meta"
	}
	fx.inst = New(runner, opts)
	return fx
}

func (fx *fixture) request(subpath, revision string, force bool) Request {
	return Request{
		DestinationRoot: fx.dest,
		Repository: Repository{
			Kind:     KindGit,
			URL:      "https://example.com/org/lib.git",
			Revision: revision,
			Subpath:  subpath,
		},
		Force: force,
	}
}

func assertScratchEmpty(t *testing.T, root string) {
	t.Helper()
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return
	}
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("scratch root %s not empty: %v", root, entries)
	}
}

func assertDirEntries(t *testing.T, dir string, want ...string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	got := []string{}
	for _, e := range entries {
		got = append(got, e.Name())
	}
	if want == nil {
		want = []string{}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entries of %s mismatch (-want +got):\n%s", dir, diff)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestLeaf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		subpath string
		want    string
	}{
		{"", ""},
		{"util", "util"},
		{"pkg/util", "util"},
		{"pkg/util/", "util"},
		{"/", ""},
	}

	for _, tt := range tests {
		if got := Leaf(tt.subpath); got != tt.want {
			t.Errorf("Leaf(%q) = %q, want %q", tt.subpath, got, tt.want)
		}
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	dest := t.TempDir()
	if err := os.Mkdir(filepath.Join(dest, "util"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dest, "notes"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	repo := func(kind, url, subpath string) Repository {
		return Repository{Kind: kind, URL: url, Subpath: subpath}
	}

	tests := []struct {
		name    string
		req     Request
		wantErr error
		want    Resolution
	}{
		{
			name:    "unsupported kind",
			req:     Request{DestinationRoot: dest, Repository: repo("svn", "https://x/lib", "")},
			wantErr: ErrUnsupportedKind,
		},
		{
			name:    "unsupported kind checked before url",
			req:     Request{DestinationRoot: "relative", Repository: repo("hg", "", "")},
			wantErr: ErrUnsupportedKind,
		},
		{
			name:    "empty url",
			req:     Request{DestinationRoot: dest, Repository: repo(KindGit, " ", "")},
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "relative destination",
			req:     Request{DestinationRoot: "deps", Repository: repo(KindGit, "https://x/lib.git", "")},
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "absolute subpath",
			req:     Request{DestinationRoot: dest, Repository: repo(KindGit, "https://x/lib.git", "/etc")},
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "escaping subpath",
			req:     Request{DestinationRoot: dest, Repository: repo(KindGit, "https://x/lib.git", "pkg/../../x")},
			wantErr: ErrInvalidRequest,
		},
		{
			name: "fresh target",
			req:  Request{DestinationRoot: dest, Repository: repo(KindGit, "https://x/lib.git", "pkg/json")},
			want: Resolution{
				Proceed:  true,
				Target:   filepath.Join(dest, "json"),
				Leaf:     "json",
				Subpath:  "pkg/json",
				RepoName: "lib",
			},
		},
		{
			name: "existing target short circuits",
			req:  Request{DestinationRoot: dest, Repository: repo(KindGit, "https://x/lib.git", "pkg/util")},
			want: Resolution{
				Proceed:  false,
				Target:   filepath.Join(dest, "util"),
				Leaf:     "util",
				Subpath:  "pkg/util",
				RepoName: "lib",
			},
		},
		{
			name: "file at target is not an install",
			req:  Request{DestinationRoot: dest, Repository: repo(KindGit, "https://x/lib.git", "docs/notes")},
			want: Resolution{
				Proceed:  true,
				Target:   filepath.Join(dest, "notes"),
				Leaf:     "notes",
				Subpath:  "docs/notes",
				RepoName: "lib",
			},
		},
		{
			name: "existing target with force",
			req:  Request{DestinationRoot: dest, Repository: repo(KindGit, "https://x/lib.git", "./pkg/util/"), Force: true},
			want: Resolution{
				Proceed:  true,
				Target:   filepath.Join(dest, "util"),
				Leaf:     "util",
				Subpath:  "pkg/util",
				RepoName: "lib",
			},
		},
		{
			name: "dot subpath means whole checkout",
			req:  Request{DestinationRoot: filepath.Join(dest, "new"), Repository: repo(KindGit, "git@x:org/lib.git", ".")},
			want: Resolution{
				Proceed:  true,
				Target:   filepath.Join(dest, "new"),
				RepoName: "lib",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Resolve(tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Resolve() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInstalled(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dir := filepath.Join(root, "util")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(root, "notes")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		target string
		want   bool
	}{
		{"directory", dir, true},
		{"regular file", file, false},
		{"missing", filepath.Join(root, "missing"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Installed(tt.target); got != tt.want {
				t.Errorf("Installed(%s) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestInstall_RoundTrip(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{files: map[string]string{
		"pkg/util/marker.txt": "hello",
		"pkg/util.meta":       "guid: 1",
		"README.md":           "top level",
	}}
	fx := newFixture(t, runner, Options{})

	res, err := fx.inst.Install(context.Background(), fx.request("pkg/util", "v1", false))
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	wantPath := filepath.Join(fx.dest, "util")
	if res.Path != wantPath {
		t.Errorf("Path = %q, want %q", res.Path, wantPath)
	}
	if res.Skipped {
		t.Error("Skipped should be false for a fresh install")
	}
	if res.RunID == "" {
		t.Error("RunID should identify the scratch workspace")
	}
	if res.CleanupErr != nil {
		t.Errorf("CleanupErr = %v", res.CleanupErr)
	}

	if got := readFile(t, filepath.Join(wantPath, "marker.txt")); got != "hello" {
		t.Errorf("marker.txt = %q, want %q", got, "hello")
	}
	if got := readFile(t, wantPath+".meta"); got != "guid: 1" {
		t.Errorf("sidecar = %q, want %q", got, "guid: 1")
	}
	assertDirEntries(t, fx.dest, "util", "util.meta")
	assertScratchEmpty(t, fx.scratch)

	want := [][]string{
		{"clone", "https://example.com/org/lib.git", "lib"},
		{"checkout", "v1"},
	}
	if diff := cmp.Diff(want, runner.commands()); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
}

func TestInstall_Idempotent(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{files: map[string]string{"pkg/util/marker.txt": "hello"}}
	fx := newFixture(t, runner, Options{})
	req := fx.request("pkg/util", "", false)

	if _, err := fx.inst.Install(context.Background(), req); err != nil {
		t.Fatalf("first Install() error = %v", err)
	}
	first := len(runner.commands())

	res, err := fx.inst.Install(context.Background(), req)
	if err != nil {
		t.Fatalf("second Install() error = %v", err)
	}
	if !res.Skipped {
		t.Error("second install should be skipped")
	}
	if res.Path != filepath.Join(fx.dest, "util") {
		t.Errorf("Path = %q", res.Path)
	}
	if got := len(runner.commands()); got != first {
		t.Errorf("second install issued %d commands", got-first)
	}
	if got := readFile(t, filepath.Join(fx.dest, "util", "marker.txt")); got != "hello" {
		t.Errorf("marker.txt = %q", got)
	}
}

func TestInstall_ShortCircuitTouchesNothing(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	fx := newFixture(t, runner, Options{})
	if err := os.Mkdir(filepath.Join(fx.dest, "util"), 0o755); err != nil {
		t.Fatal(err)
	}

	res, err := fx.inst.Install(context.Background(), fx.request("pkg/util", "v1", false))
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if !res.Skipped || res.RunID != "" {
		t.Errorf("Install() = %+v, want skipped without a run", res)
	}
	if len(runner.commands()) != 0 {
		t.Errorf("commands issued: %v", runner.commands())
	}
	if _, err := os.Stat(fx.scratch); !os.IsNotExist(err) {
		t.Error("scratch root should not have been created")
	}
}

func TestInstall_UnsupportedKind(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	fx := newFixture(t, runner, Options{})
	req := fx.request("pkg/util", "", true)
	req.Repository.Kind = "svn"

	_, err := fx.inst.Install(context.Background(), req)
	if !errors.Is(err, ErrUnsupportedKind) {
		t.Fatalf("Install() error = %v, want ErrUnsupportedKind", err)
	}
	if step := FailedStep(err); step != StepResolve {
		t.Errorf("FailedStep() = %q, want %q", step, StepResolve)
	}
	if len(runner.commands()) != 0 {
		t.Errorf("commands issued: %v", runner.commands())
	}
	assertDirEntries(t, fx.dest)
	if _, err := os.Stat(fx.scratch); !os.IsNotExist(err) {
		t.Error("scratch root should not have been created")
	}
}

func TestInstall_ForceReplaces(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		files     map[string]string
		wantMeta  string // "" when no sidecar should remain
		wantEntry []string
	}{
		{
			name:      "new sidecar replaces old",
			files:     map[string]string{"pkg/util/new.txt": "new", "pkg/util.meta": "new meta"},
			wantMeta:  "new meta",
			wantEntry: []string{"util", "util.meta"},
		},
		{
			name:      "old sidecar removed when source has none",
			files:     map[string]string{"pkg/util/new.txt": "new"},
			wantEntry: []string{"util"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fx := newFixture(t, &fakeRunner{files: tt.files}, Options{})

			old := filepath.Join(fx.dest, "util")
			if err := os.MkdirAll(old, 0o755); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(filepath.Join(old, "old.txt"), []byte("old"), 0o644); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(old+".meta", []byte("old meta"), 0o644); err != nil {
				t.Fatal(err)
			}

			if _, err := fx.inst.Install(context.Background(), fx.request("pkg/util", "", true)); err != nil {
				t.Fatalf("Install() error = %v", err)
			}

			assertDirEntries(t, old, "new.txt")
			if tt.wantMeta != "" {
				if got := readFile(t, old+".meta"); got != tt.wantMeta {
					t.Errorf("sidecar = %q, want %q", got, tt.wantMeta)
				}
			}
			assertDirEntries(t, fx.dest, tt.wantEntry...)
			assertScratchEmpty(t, fx.scratch)
		})
	}
}

func TestInstall_WholeCheckout(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{files: map[string]string{"a.txt": "a", "sub/b.txt": "b"}}
	fx := newFixture(t, runner, Options{})
	req := fx.request("", "", false)
	req.DestinationRoot = filepath.Join(fx.dest, "vendor", "lib")

	res, err := fx.inst.Install(context.Background(), req)
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if res.Path != req.DestinationRoot {
		t.Errorf("Path = %q, want %q", res.Path, req.DestinationRoot)
	}
	if got := readFile(t, filepath.Join(res.Path, "sub", "b.txt")); got != "b" {
		t.Errorf("sub/b.txt = %q", got)
	}
	assertScratchEmpty(t, fx.scratch)
}

func TestInstall_NoSidecar(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{files: map[string]string{"pkg/util/marker.txt": "x"}}
	fx := newFixture(t, runner, Options{})

	if _, err := fx.inst.Install(context.Background(), fx.request("pkg/util", "", false)); err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	assertDirEntries(t, fx.dest, "util")
}

func TestInstall_Failures(t *testing.T) {
	t.Parallel()

	toolMissing := fmt.Errorf("%w: git", vcs.ErrToolNotFound)

	tests := []struct {
		name     string
		runner   *fakeRunner
		subpath  string
		revision string
		opts     Options
		wantErrs []error
		wantStep Step
	}{
		{
			name:     "clone produces nothing",
			runner:   &fakeRunner{skipClone: true, cloneErr: errors.New("repository not found")},
			wantErrs: []error{ErrCloneFailed},
			wantStep: StepFetch,
		},
		{
			name:     "clone exits cleanly without a checkout",
			runner:   &fakeRunner{skipClone: true},
			wantErrs: []error{ErrCloneFailed},
			wantStep: StepFetch,
		},
		{
			name:     "tool not found",
			runner:   &fakeRunner{skipClone: true, cloneErr: toolMissing},
			wantErrs: []error{ErrCloneFailed, ErrToolNotFound},
			wantStep: StepFetch,
		},
		{
			name:     "clone timeout",
			runner:   &fakeRunner{block: "clone"},
			opts:     Options{CloneTimeout: 50 * time.Millisecond},
			wantErrs: []error{ErrFetchTimedOut},
			wantStep: StepFetch,
		},
		{
			name:     "checkout fails",
			runner:   &fakeRunner{files: map[string]string{"pkg/util/x": "x"}, checkoutErr: errors.New("pathspec 'nope' did not match")},
			revision: "nope",
			wantErrs: []error{ErrPinFailed},
			wantStep: StepPin,
		},
		{
			name:     "checkout timeout",
			runner:   &fakeRunner{files: map[string]string{"pkg/util/x": "x"}, block: "checkout"},
			revision: "v1",
			opts:     Options{CheckoutTimeout: 50 * time.Millisecond},
			wantErrs: []error{ErrPinTimedOut},
			wantStep: StepPin,
		},
		{
			name:     "missing subpath",
			runner:   &fakeRunner{files: map[string]string{"other/x": "x"}},
			wantErrs: []error{ErrRelocationSourceMissing},
			wantStep: StepRelocate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fx := newFixture(t, tt.runner, tt.opts)
			res, err := fx.inst.Install(context.Background(), fx.request("pkg/util", tt.revision, false))
			if err == nil {
				t.Fatal("Install() expected error")
			}
			for _, want := range tt.wantErrs {
				if !errors.Is(err, want) {
					t.Errorf("Install() error = %v, want %v", err, want)
				}
			}
			if step := FailedStep(err); step != tt.wantStep {
				t.Errorf("FailedStep() = %q, want %q", step, tt.wantStep)
			}
			if res.RunID == "" {
				t.Error("RunID should be set once a workspace was allocated")
			}
			assertDirEntries(t, fx.dest)
			assertScratchEmpty(t, fx.scratch)
		})
	}
}

func TestInstall_CloneErrorWithCheckoutSucceeds(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{
		files:    map[string]string{"pkg/util/x": "x"},
		cloneErr: errors.New("warning: remote HEAD refers to nonexistent ref"),
	}
	fx := newFixture(t, runner, Options{})

	if _, err := fx.inst.Install(context.Background(), fx.request("pkg/util", "", false)); err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	assertDirEntries(t, fx.dest, "util")
}

func TestInstall_Canceled(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{block: "clone"}
	fx := newFixture(t, runner, Options{CloneTimeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fx.inst.Install(ctx, fx.request("pkg/util", "", false))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Install() error = %v, want context.Canceled", err)
	}
	if errors.Is(err, ErrFetchTimedOut) {
		t.Error("cancellation must not be reported as a timeout")
	}
	assertScratchEmpty(t, fx.scratch)
}

func TestInstall_ConcurrentDistinctDestinations(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{files: map[string]string{"pkg/util/marker.txt": "hello"}}
	fx := newFixture(t, runner, Options{})

	const n = 4
	var wg sync.WaitGroup
	results := make([]Result, n)
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := fx.request("pkg/util", "", false)
			req.DestinationRoot = filepath.Join(fx.dest, fmt.Sprintf("p%d", i))
			results[i], errs[i] = fx.inst.Install(context.Background(), req)
		}()
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := range n {
		if errs[i] != nil {
			t.Fatalf("install %d: %v", i, errs[i])
		}
		if seen[results[i].RunID] {
			t.Errorf("RunID %s reused", results[i].RunID)
		}
		seen[results[i].RunID] = true
	}
	assertScratchEmpty(t, fx.scratch)
}

func TestInstallRepository(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, &fakeRunner{files: map[string]string{"pkg/util/x": "x"}}, Options{})
	ctx := context.Background()

	if fx.inst.InstallRepository(ctx, fx.dest, Repository{Kind: "svn", URL: "https://x/lib"}, false) {
		t.Error("unsupported kind should report false")
	}
	repo := Repository{Kind: KindGit, URL: "https://x/lib.git", Subpath: "pkg/util"}
	if !fx.inst.InstallRepository(ctx, fx.dest, repo, false) {
		t.Error("install should report true")
	}
	if !fx.inst.InstallRepository(ctx, fx.dest, repo, false) {
		t.Error("already installed should report true")
	}
	if fx.inst.InstallRepository(ctx, fx.dest, Repository{Kind: KindGit, URL: "https://x/lib.git", Subpath: "missing"}, true) {
		t.Error("missing subpath should report false")
	}
}

// Tests below swap the package-level rename and must not run in parallel.

func TestInstall_CrossDeviceFallback(t *testing.T) {
	runner := &fakeRunner{files: map[string]string{
		"pkg/util/marker.txt":     "hello",
		"pkg/util/nested/deep.go": "package deep",
		"pkg/util.meta":           "meta",
	}}
	fx := newFixture(t, runner, Options{})

	orig := rename
	t.Cleanup(func() { rename = orig })
	rename = func(oldpath, newpath string) error {
		if strings.HasPrefix(oldpath, fx.scratch) {
			return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EXDEV}
		}
		return os.Rename(oldpath, newpath)
	}

	res, err := fx.inst.Install(context.Background(), fx.request("pkg/util", "", false))
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if got := readFile(t, filepath.Join(res.Path, "nested", "deep.go")); got != "package deep" {
		t.Errorf("deep.go = %q", got)
	}
	if got := readFile(t, res.Path+".meta"); got != "meta" {
		t.Errorf("sidecar = %q", got)
	}
	assertDirEntries(t, fx.dest, "util", "util.meta")
	assertScratchEmpty(t, fx.scratch)
}

func TestInstall_RelocationRollsBack(t *testing.T) {
	runner := &fakeRunner{files: map[string]string{
		"pkg/util/new.txt": "new",
		"pkg/util.meta":    "new meta",
	}}
	fx := newFixture(t, runner, Options{})

	old := filepath.Join(fx.dest, "util")
	if err := os.MkdirAll(old, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(old, "old.txt"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(old+".meta", []byte("old meta"), 0o644); err != nil {
		t.Fatal(err)
	}

	orig := rename
	t.Cleanup(func() { rename = orig })
	rename = func(oldpath, newpath string) error {
		if strings.HasPrefix(oldpath, fx.scratch) && strings.HasSuffix(oldpath, ".meta") {
			return errors.New("disk full")
		}
		return os.Rename(oldpath, newpath)
	}

	_, err := fx.inst.Install(context.Background(), fx.request("pkg/util", "", true))
	if !errors.Is(err, ErrRelocationFailed) {
		t.Fatalf("Install() error = %v, want ErrRelocationFailed", err)
	}

	assertDirEntries(t, old, "old.txt")
	if got := readFile(t, old+".meta"); got != "old meta" {
		t.Errorf("sidecar = %q, want restored %q", got, "old meta")
	}
	assertDirEntries(t, fx.dest, "util", "util.meta")
	assertScratchEmpty(t, fx.scratch)
}

func TestInstall_RelocationRollsBackStaleSidecar(t *testing.T) {
	runner := &fakeRunner{files: map[string]string{"pkg/util/new.txt": "new"}}
	fx := newFixture(t, runner, Options{})

	old := filepath.Join(fx.dest, "util")
	if err := os.MkdirAll(old, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(old, "old.txt"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(old+".meta", []byte("old meta"), 0o644); err != nil {
		t.Fatal(err)
	}

	orig := rename
	t.Cleanup(func() { rename = orig })
	rename = func(oldpath, newpath string) error {
		if oldpath == old+".meta" {
			return errors.New("permission denied")
		}
		return os.Rename(oldpath, newpath)
	}

	_, err := fx.inst.Install(context.Background(), fx.request("pkg/util", "", true))
	if !errors.Is(err, ErrRelocationFailed) {
		t.Fatalf("Install() error = %v, want ErrRelocationFailed", err)
	}

	assertDirEntries(t, old, "old.txt")
	if got := readFile(t, old+".meta"); got != "old meta" {
		t.Errorf("sidecar = %q, want %q", got, "old meta")
	}
	assertDirEntries(t, fx.dest, "util", "util.meta")
	assertScratchEmpty(t, fx.scratch)
}

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := cmd.OutputContext(context.Background(), dir, "git", args...)
	if err != nil {
		t.Fatalf("git %v: %v", args, err)
	}
	return strings.TrimSpace(string(out))
}

func TestInstall_RealRepository(t *testing.T) {
	t.Parallel()

	tmp, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(tmp, "lib.git")
	runGit(t, "", "init", "-b", "main", src)
	runGit(t, src, "config", "user.email", "test@test.com")
	runGit(t, src, "config", "user.name", "Test User")
	runGit(t, src, "config", "commit.gpgsign", "false")

	marker := filepath.Join(src, "pkg", "util", "marker.txt")
	if err := os.MkdirAll(filepath.Dir(marker), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(marker, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}
	runGit(t, src, "add", ".")
	runGit(t, src, "commit", "-m", "v1")
	runGit(t, src, "tag", "v1")
	v1 := runGit(t, src, "rev-parse", "HEAD")

	if err := os.WriteFile(marker, []byte("v2"), 0o644); err != nil {
		t.Fatal(err)
	}
	runGit(t, src, "commit", "-am", "v2")

	runners := map[string]vcs.Runner{
		"exec":   &vcs.Exec{Binary: "git"},
		"go-git": &vcs.GoGit{},
	}

	for name, runner := range runners {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			dest := filepath.Join(tmp, name, "deps")
			inst := New(runner, Options{
				ScratchRoot:     filepath.Join(tmp, name, "scratch"),
				CloneTimeout:    time.Minute,
				CheckoutTimeout: time.Minute,
				SidecarExt:      "meta",
			})

			res, err := inst.Install(context.Background(), Request{
				DestinationRoot: dest,
				Repository: Repository{
					Kind:     KindGit,
					URL:      src,
					Revision: "v1",
					Subpath:  "pkg/util",
				},
			})
			if err != nil {
				t.Fatalf("Install() error = %v", err)
			}
			if got := readFile(t, filepath.Join(dest, "util", "marker.txt")); got != "v1" {
				t.Errorf("marker.txt = %q, want %q", got, "v1")
			}
			if res.Revision != v1 {
				t.Errorf("Revision = %q, want %q", res.Revision, v1)
			}
			assertScratchEmpty(t, filepath.Join(tmp, name, "scratch"))
		})
	}
}
