// Package config loads .zhdoc.yaml, the optional per-project settings file
// placed at the root of the directory being translated.
//
// Every field is optional. Command-line flags and environment variables
// override what the file says.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/minios-linux/zhdoc/translate"
)

// FileName is the project config file name.
const FileName = ".zhdoc.yaml"

// DefaultExtensions are the file suffixes scanned when none are configured.
var DefaultExtensions = []string{".py"}

// DefaultExclude are directory names never descended into.
var DefaultExclude = []string{
	".git", ".hg", ".svn", ".idea", ".vscode",
	"venv", ".venv", "env", "__pycache__", ".tox", ".mypy_cache",
	"build", "dist", "node_modules", "site-packages",
}

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// File is the .zhdoc.yaml structure.
type File struct {
	// Provider is the backend provider ID (default custom-openai).
	Provider string `yaml:"provider,omitempty"`
	// Model is the model identifier.
	Model string `yaml:"model,omitempty"`
	// BaseURL is the backend endpoint.
	BaseURL string `yaml:"base_url,omitempty"`
	// APIKey is accepted for local servers; prefer `zhdoc auth login`.
	APIKey string `yaml:"api_key,omitempty"`
	// Proxy is an HTTP/HTTPS proxy URL.
	Proxy string `yaml:"proxy,omitempty"`
	// Timeout is the per-request timeout, e.g. "90s".
	Timeout string `yaml:"timeout,omitempty"`
	// Language is the target language code (default zh-CN).
	Language string `yaml:"language,omitempty"`

	// Exclude lists extra directory names to skip.
	Exclude []string `yaml:"exclude,omitempty"`
	// Extensions replaces the scanned file suffixes.
	Extensions []string `yaml:"extensions,omitempty"`
	// Memory toggles the translation memory (default on).
	Memory *bool `yaml:"memory,omitempty"`

	// Prompts overrides the request templates for this project.
	Prompts translate.Prompts `yaml:"prompts,omitempty"`

	path    string        `yaml:"-"`
	timeout time.Duration `yaml:"-"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads .zhdoc.yaml from rootDir. A missing file yields the defaults.
func Load(rootDir string) (*File, error) {
	path := filepath.Join(rootDir, FileName)
	f := &File{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	f.path = path

	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

func (f *File) validate() error {
	if f.Timeout != "" {
		d, err := time.ParseDuration(f.Timeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid timeout %q", f.Timeout)
		}
		f.timeout = d
	}

	for i, ext := range f.Extensions {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			return fmt.Errorf("extensions[%d] is empty", i)
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		f.Extensions[i] = ext
	}

	for i, dir := range f.Exclude {
		if strings.ContainsAny(dir, `/\`) {
			return fmt.Errorf("exclude[%d] %q must be a directory name, not a path", i, dir)
		}
	}
	return nil
}

// Path returns the file the settings came from, or "" when none existed.
func (f *File) Path() string {
	return f.path
}

// Found reports whether a .zhdoc.yaml was read.
func (f *File) Found() bool {
	return f.path != ""
}

// ---------------------------------------------------------------------------
// Effective values
// ---------------------------------------------------------------------------

// TimeoutDuration returns the parsed timeout, or 0 when unset.
func (f *File) TimeoutDuration() time.Duration {
	return f.timeout
}

// MemoryEnabled reports whether the translation memory should be used.
func (f *File) MemoryEnabled() bool {
	return f.Memory == nil || *f.Memory
}

// EffectiveExtensions returns the configured suffixes or the defaults.
func (f *File) EffectiveExtensions() []string {
	if len(f.Extensions) > 0 {
		return f.Extensions
	}
	return DefaultExtensions
}

// EffectiveExclude returns the default excluded names plus the configured
// ones and extra, without duplicates.
func (f *File) EffectiveExclude(extra ...string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range [][]string{DefaultExclude, f.Exclude, extra} {
		for _, name := range list {
			name = strings.TrimSpace(name)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}
