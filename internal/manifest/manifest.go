package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/sahilm/fuzzy"
	"gopkg.in/yaml.v3"

	"github.com/raphi011/gitembed/internal/install"
)

// FileNames are the manifest names looked up by Find, in priority order.
var FileNames = []string{"gitembed.toml", "gitembed.yaml", "gitembed.yml"}

var (
	// ErrNotFound is returned by Find when no manifest exists in the tree.
	ErrNotFound = errors.New("no gitembed manifest found")
	// ErrUnknownEntry is returned by Lookup for names not in the manifest.
	ErrUnknownEntry = errors.New("unknown dependency")
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Repository says where an entry's content comes from.
type Repository struct {
	Type     string `toml:"type" yaml:"type" json:"type"`
	URL      string `toml:"url" yaml:"url" json:"url"`
	Revision string `toml:"revision" yaml:"revision" json:"revision,omitempty"`
	Path     string `toml:"path" yaml:"path" json:"path,omitempty"` // subpath inside the repository
}

// Entry is one dependency to install.
type Entry struct {
	Name        string     `toml:"name" yaml:"name" json:"name"`
	Path        string     `toml:"path" yaml:"path" json:"path"` // destination root, relative to the project
	AutoInstall bool       `toml:"auto_install" yaml:"auto_install" json:"auto_install"`
	Repository  Repository `toml:"repository" yaml:"repository" json:"repository"`
}

// Manifest is a parsed gitembed manifest.
type Manifest struct {
	Path    string  `toml:"-" yaml:"-" json:"-"` // file the manifest was read from
	Entries []Entry `toml:"dependencies" yaml:"dependencies" json:"dependencies"`
}

// Dir returns the project directory, the one containing the manifest file.
func (m *Manifest) Dir() string {
	return filepath.Dir(m.Path)
}

// Find looks for a manifest in dir and its parents and returns its path.
func Find(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dir, err)
	}

	for {
		for _, name := range FileNames {
			p := filepath.Join(abs, name)
			if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
				return p, nil
			}
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("%w in %s or any parent directory", ErrNotFound, dir)
		}
		abs = parent
	}
}

// Load reads and validates the manifest at path. The format follows the
// file extension: .toml, .yaml or .yml.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		md, err := toml.Decode(string(data), &m)
		if err != nil {
			return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported manifest format %q (want .toml, .yaml or .yml)", ext)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	m.Path = abs

	for i := range m.Entries {
		if m.Entries[i].Repository.Type == "" {
			m.Entries[i].Repository.Type = install.KindGit
		}
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

// Validate checks entry names, uniqueness and required fields. Repository
// types are not restricted here; the installer rejects unsupported ones.
func (m *Manifest) Validate() error {
	seen := make(map[string]bool, len(m.Entries))
	for i, e := range m.Entries {
		if e.Name == "" {
			return fmt.Errorf("dependency #%d has no name", i+1)
		}
		if !namePattern.MatchString(e.Name) {
			return fmt.Errorf("invalid dependency name %q (letters, digits, '.', '_' and '-' only)", e.Name)
		}
		if seen[e.Name] {
			return fmt.Errorf("duplicate dependency name %q", e.Name)
		}
		seen[e.Name] = true

		if strings.TrimSpace(e.Repository.URL) == "" {
			return fmt.Errorf("dependency %q: repository.url is required", e.Name)
		}
		if filepath.IsAbs(e.Path) {
			return fmt.Errorf("dependency %q: path must be relative to the project, got %q", e.Name, e.Path)
		}
		if escapes(e.Path) {
			return fmt.Errorf("dependency %q: path %q escapes the project", e.Name, e.Path)
		}
		if e.Path == "" && e.Repository.Path == "" {
			return fmt.Errorf("dependency %q: path is required when installing a whole repository", e.Name)
		}
	}
	return nil
}

// Names returns entry names in manifest order.
func (m *Manifest) Names() []string {
	names := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		names[i] = e.Name
	}
	return names
}

// Lookup returns the entry called name. Unknown names produce an error
// listing the closest matches.
func (m *Manifest) Lookup(name string) (*Entry, error) {
	for i := range m.Entries {
		if m.Entries[i].Name == name {
			return &m.Entries[i], nil
		}
	}

	if suggestions := m.Suggest(name, 3); len(suggestions) > 0 {
		return nil, fmt.Errorf("%w %q (did you mean: %s?)", ErrUnknownEntry, name, strings.Join(suggestions, ", "))
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownEntry, name)
}

// Suggest returns up to limit entry names that fuzzy-match name, best first.
func (m *Manifest) Suggest(name string, limit int) []string {
	matches := fuzzy.Find(name, m.Names())
	var out []string
	for _, match := range matches {
		if len(out) == limit {
			break
		}
		out = append(out, match.Str)
	}
	return out
}

// AutoInstall returns the entries flagged auto_install.
func (m *Manifest) AutoInstall() []Entry {
	var out []Entry
	for _, e := range m.Entries {
		if e.AutoInstall {
			out = append(out, e)
		}
	}
	return out
}

// DestinationRoot returns the absolute directory the entry installs into.
func (e Entry) DestinationRoot(projectDir string) string {
	return filepath.Join(projectDir, filepath.FromSlash(e.Path))
}

// Target returns the absolute path the entry ends up at once installed.
func (e Entry) Target(projectDir string) string {
	return filepath.Join(e.DestinationRoot(projectDir), install.Leaf(e.Repository.Path))
}

// Request converts the entry into an install request rooted at projectDir.
func (e Entry) Request(projectDir string, force bool) install.Request {
	return install.Request{
		DestinationRoot: e.DestinationRoot(projectDir),
		Repository: install.Repository{
			Kind:     e.Repository.Type,
			URL:      e.Repository.URL,
			Revision: e.Repository.Revision,
			Subpath:  e.Repository.Path,
		},
		Force: force,
	}
}

func escapes(p string) bool {
	cleaned := filepath.ToSlash(filepath.Clean(filepath.FromSlash(p)))
	return cleaned == ".." || strings.HasPrefix(cleaned, "../")
}
