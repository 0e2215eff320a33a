// Package config handles loading and validation of gitembed configuration.
//
// Configuration is read from ~/.config/gitembed/config.toml (or the file named
// by GITEMBED_CONFIG), optionally overridden per project by .gitembed.toml at
// the project root, with environment variable overrides on top.
//
// # Configuration Sources (highest priority first)
//
//   - GITEMBED_SCRATCH_DIR, GITEMBED_VCS_BINARY env vars
//   - Project .gitembed.toml
//   - Global config file
//   - Default values
//
// # Key Settings
//
//   - backend: "exec" (shell out to vcs_binary) or "go-git" (pure Go)
//   - vcs_binary: executable used by the exec backend (default: "git")
//   - scratch_dir: parent of per-install scratch workspaces (must be absolute or ~/...)
//   - sidecar_ext: extension of metadata files that travel with their directory (default: "meta")
//   - [timeouts] clone, checkout, lock: Go durations bounding blocking operations
//
// # Path Validation
//
// Directory paths must be absolute or start with ~ (no relative paths like "."
// or "..") to avoid confusion about the working directory.
package config
