package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/raphi011/gitembed/internal/config"
	"github.com/raphi011/gitembed/internal/install"
	"github.com/raphi011/gitembed/internal/manifest"
)

// project is a loaded manifest together with the config that applies to it.
type project struct {
	Dir      string
	Manifest *manifest.Manifest
	Config   *config.Config
}

// loadProject finds the manifest from the working directory upwards and
// merges the project's .gitembed.toml over the global config.
func (a *app) loadProject() (*project, error) {
	path, err := manifest.Find(a.dir)
	if err != nil {
		return nil, err
	}
	m, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	cfg, err := config.ForProject(a.cfg, m.Dir())
	if err != nil {
		return nil, err
	}
	return &project{Dir: m.Dir(), Manifest: m, Config: cfg}, nil
}

// effectiveConfig returns the project config when a manifest is found and
// the global config otherwise.
func (a *app) effectiveConfig() (*config.Config, string, error) {
	path, err := manifest.Find(a.dir)
	if err != nil {
		return a.cfg, "", nil
	}
	projectDir := filepath.Dir(path)
	cfg, err := config.ForProject(a.cfg, projectDir)
	if err != nil {
		return nil, "", err
	}
	return cfg, projectDir, nil
}

// installer creates an installer for the given config.
func installerFor(cfg *config.Config) (*install.Installer, error) {
	inst, err := install.FromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return inst, nil
}

// rel returns p relative to base for display, or p itself if that fails.
func rel(base, p string) string {
	r, err := filepath.Rel(base, p)
	if err != nil {
		return p
	}
	return r
}

// absFrom resolves p against dir unless it is already absolute.
func absFrom(dir, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(dir, p)
}

func exists(p string) bool {
	_, err := os.Lstat(p)
	return err == nil
}
