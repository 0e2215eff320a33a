package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// LocalConfigFileName is the per-project override file at the project root.
const LocalConfigFileName = ".gitembed.toml"

// LocalConfig holds per-project overrides from .gitembed.toml.
// Empty strings mean "not set" (inherit from global).
type LocalConfig struct {
	raw  rawConfig
	path string
}

// LoadLocal reads a per-project .gitembed.toml from projectDir.
// Returns nil (no error) if the file doesn't exist.
// Returns an error only on parse or validation failure.
func LoadLocal(projectDir string) (*LocalConfig, error) {
	configFile := filepath.Join(projectDir, LocalConfigFileName)

	data, err := os.ReadFile(configFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read local config %s: %w", configFile, err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse local config %s: %w", configFile, err)
	}

	// Validate eagerly so errors name the local file rather than surfacing on merge
	probe := Default()
	if err := apply(&probe, raw); err != nil {
		return nil, fmt.Errorf("%s: %w", configFile, err)
	}

	return &LocalConfig{raw: raw, path: configFile}, nil
}

// MergeLocal merges a local per-project config into a global config,
// returning a new Config without mutating the global.
// Returns global unchanged if local is nil.
func MergeLocal(global *Config, local *LocalConfig) (*Config, error) {
	if local == nil {
		return global, nil
	}

	merged := *global
	if err := apply(&merged, local.raw); err != nil {
		return nil, fmt.Errorf("%s: %w", local.path, err)
	}
	return &merged, nil
}

// ForProject loads the project's .gitembed.toml (if any) and merges it over global.
func ForProject(global *Config, projectDir string) (*Config, error) {
	local, err := LoadLocal(projectDir)
	if err != nil {
		return nil, err
	}
	return MergeLocal(global, local)
}

// DefaultConfigTemplate is written by "gitembed config init".
const DefaultConfigTemplate = `# gitembed config
# Global settings live in ~/.config/gitembed/config.toml.
# A project may override any of them in .gitembed.toml at its root.

# VCS backend: "exec" shells out to vcs_binary, "go-git" needs no binary
# backend = "exec"
# vcs_binary = "git"

# Parent directory for per-install scratch workspaces (absolute or ~)
# scratch_dir = "~/.cache/gitembed"

# Extension of sidecar metadata files relocated with their directory
# sidecar_ext = "meta"

# [timeouts]
# clone = "5m"
# checkout = "1m"
# lock = "5s"
`
