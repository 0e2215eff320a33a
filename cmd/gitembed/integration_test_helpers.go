//go:build integration

package main

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/raphi011/gitembed/internal/ui/prompt"
)

// resolvePath resolves symlinks in a path.
// This is needed on macOS where /var is a symlink to /private/var.
func resolvePath(t *testing.T, path string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		t.Fatalf("failed to resolve path %s: %v", path, err)
	}
	return resolved
}

// runGit runs git in dir and fails the test on error.
func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v failed: %v\n%s", args, err, out)
	}
	return strings.TrimSpace(string(out))
}

// setupSourceRepo creates a git repo at dir/name with files committed on
// the default branch, tagged v1. Returns its file:// URL.
func setupSourceRepo(t *testing.T, dir, name string, files map[string]string) string {
	t.Helper()

	repoPath := filepath.Join(resolvePath(t, dir), name)
	if err := os.MkdirAll(repoPath, 0755); err != nil {
		t.Fatalf("failed to create repo dir: %v", err)
	}

	runGit(t, repoPath, "init")
	runGit(t, repoPath, "config", "user.email", "test@test.com")
	runGit(t, repoPath, "config", "user.name", "Test User")
	runGit(t, repoPath, "config", "commit.gpgsign", "false")

	writeFiles(t, repoPath, files)
	runGit(t, repoPath, "add", "-A")
	runGit(t, repoPath, "commit", "-m", "Initial commit")
	runGit(t, repoPath, "tag", "v1")

	return "file://" + repoPath
}

// commitFiles adds a commit with files to the repo behind url.
func commitFiles(t *testing.T, url string, files map[string]string) {
	t.Helper()
	repoPath := strings.TrimPrefix(url, "file://")
	writeFiles(t, repoPath, files)
	runGit(t, repoPath, "add", "-A")
	runGit(t, repoPath, "commit", "-m", "Update")
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
}

// testEnv is an isolated project with its own global config and scratch dir.
type testEnv struct {
	root       string
	projectDir string
	scratchDir string
	configPath string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := resolvePath(t, t.TempDir())
	env := &testEnv{
		root:       root,
		projectDir: filepath.Join(root, "project"),
		scratchDir: filepath.Join(root, "scratch"),
		configPath: filepath.Join(root, "config.toml"),
	}
	if err := os.MkdirAll(env.projectDir, 0755); err != nil {
		t.Fatalf("failed to create project dir: %v", err)
	}
	cfg := "scratch_dir = \"" + env.scratchDir + "\"\n"
	if err := os.WriteFile(env.configPath, []byte(cfg), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return env
}

// writeManifest writes gitembed.toml into the project.
func (e *testEnv) writeManifest(t *testing.T, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(e.projectDir, "gitembed.toml"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
}

// assertScratchEmpty fails if any workspace survived in the scratch dir.
func (e *testEnv) assertScratchEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(e.scratchDir)
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("failed to read scratch dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("scratch dir not empty: %v", entries)
	}
}

// cmdResult captures the output of one command run.
type cmdResult struct {
	stdout string
	stderr string
	err    error
}

// run executes gitembed with args inside the project directory. The
// terminal is treated as non-interactive unless confirm is set.
func (e *testEnv) run(t *testing.T, confirm func(string) (prompt.ConfirmResult, error), args ...string) cmdResult {
	t.Helper()

	a := newApp()
	a.interactive = func() bool { return confirm != nil }
	if confirm != nil {
		a.confirm = confirm
	}

	var stdout, stderr bytes.Buffer
	root := newRootCmd(a)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	global := []string{"--config", e.configPath, "-C", e.projectDir}
	if confirm != nil {
		// Verbose keeps the spinner off the captured stderr
		global = append(global, "--verbose")
	}
	root.SetArgs(append(global, args...))

	err := root.ExecuteContext(context.Background())
	return cmdResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}
