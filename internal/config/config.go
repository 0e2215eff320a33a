package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Backend names accepted by the backend setting.
const (
	BackendExec  = "exec"
	BackendGoGit = "go-git"
)

// Default values for unset settings.
const (
	DefaultVCSBinary       = "git"
	DefaultSidecarExt      = "meta"
	DefaultCloneTimeout    = 5 * time.Minute
	DefaultCheckoutTimeout = time.Minute
	DefaultLockTimeout     = 5 * time.Second
)

// Timeouts bounds every blocking operation the installer performs.
type Timeouts struct {
	Clone    time.Duration
	Checkout time.Duration
	Lock     time.Duration
}

// Config holds the gitembed configuration
type Config struct {
	Backend    string
	VCSBinary  string
	ScratchDir string // parent of per-install scratch workspaces; empty = os.TempDir()
	SidecarExt string
	Timeouts   Timeouts
}

// Default returns the default configuration
func Default() Config {
	return Config{
		Backend:    BackendExec,
		VCSBinary:  DefaultVCSBinary,
		SidecarExt: DefaultSidecarExt,
		Timeouts: Timeouts{
			Clone:    DefaultCloneTimeout,
			Checkout: DefaultCheckoutTimeout,
			Lock:     DefaultLockTimeout,
		},
	}
}

// EffectiveScratchDir returns ScratchDir, or the OS temp dir when unset.
func (c *Config) EffectiveScratchDir() string {
	if c.ScratchDir != "" {
		return c.ScratchDir
	}
	return os.TempDir()
}

// rawTimeouts holds durations as written in TOML ("90s", "5m").
type rawTimeouts struct {
	Clone    string `toml:"clone"`
	Checkout string `toml:"checkout"`
	Lock     string `toml:"lock"`
}

// rawConfig is used for initial TOML parsing before durations and paths are processed
type rawConfig struct {
	Backend    string      `toml:"backend"`
	VCSBinary  string      `toml:"vcs_binary"`
	ScratchDir string      `toml:"scratch_dir"`
	SidecarExt string      `toml:"sidecar_ext"`
	Timeouts   rawTimeouts `toml:"timeouts"`
}

// Path returns the path to the global config file
func Path() (string, error) {
	if p := os.Getenv("GITEMBED_CONFIG"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "gitembed", "config.toml"), nil
}

// Load reads config from ~/.config/gitembed/config.toml and applies
// environment overrides.
// Returns Default() if file doesn't exist (no error).
// Returns error only if file exists but is invalid.
func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		return ApplyEnv(Default())
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		return Default(), err
	}
	return ApplyEnv(cfg)
}

// LoadFrom reads the config file at path.
func LoadFrom(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Default(), fmt.Errorf("failed to read config file: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (Config, error) {
	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return Default(), fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := Default()
	if err := apply(&cfg, raw); err != nil {
		return Default(), err
	}
	return cfg, nil
}

// apply overlays non-empty raw values onto cfg, validating each one.
func apply(cfg *Config, raw rawConfig) error {
	if err := validateEnum(raw.Backend, "backend", ValidBackends); err != nil {
		return err
	}
	if raw.Backend != "" {
		cfg.Backend = raw.Backend
	}
	if raw.VCSBinary != "" {
		cfg.VCSBinary = raw.VCSBinary
	}
	if raw.SidecarExt != "" {
		if err := validateSidecarExt(raw.SidecarExt); err != nil {
			return err
		}
		cfg.SidecarExt = raw.SidecarExt
	}

	if raw.ScratchDir != "" {
		if err := ValidatePath(raw.ScratchDir, "scratch_dir"); err != nil {
			return err
		}
		expanded, err := expandPath(raw.ScratchDir)
		if err != nil {
			return fmt.Errorf("expand scratch_dir: %w", err)
		}
		cfg.ScratchDir = expanded
	}

	durations := []struct {
		value string
		field string
		dst   *time.Duration
	}{
		{raw.Timeouts.Clone, "timeouts.clone", &cfg.Timeouts.Clone},
		{raw.Timeouts.Checkout, "timeouts.checkout", &cfg.Timeouts.Checkout},
		{raw.Timeouts.Lock, "timeouts.lock", &cfg.Timeouts.Lock},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := parseTimeout(d.value, d.field)
		if err != nil {
			return err
		}
		*d.dst = parsed
	}

	return nil
}

// ApplyEnv applies GITEMBED_* environment overrides (highest priority).
func ApplyEnv(cfg Config) (Config, error) {
	if dir := os.Getenv("GITEMBED_SCRATCH_DIR"); dir != "" {
		if err := ValidatePath(dir, "GITEMBED_SCRATCH_DIR"); err != nil {
			return cfg, err
		}
		expanded, err := expandPath(dir)
		if err != nil {
			return cfg, fmt.Errorf("expand GITEMBED_SCRATCH_DIR: %w", err)
		}
		cfg.ScratchDir = expanded
	}
	if bin := os.Getenv("GITEMBED_VCS_BINARY"); bin != "" {
		cfg.VCSBinary = bin
	}
	return cfg, nil
}

// ValidatePath checks that the path is absolute or starts with ~
// Returns error if path is relative (like "." or "..")
func ValidatePath(path, fieldName string) error {
	if path == "" {
		return nil
	}
	if path[0] == '~' {
		return nil
	}
	if !filepath.IsAbs(path) {
		return fmt.Errorf("%s must be absolute or start with ~, got: %q", fieldName, path)
	}
	return nil
}

// expandPath expands ~ to the user's home directory
func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand ~: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	if path == "~" {
		return os.UserHomeDir()
	}
	return path, nil
}
