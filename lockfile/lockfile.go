// Package lockfile implements .zhdoc.lock, a lock file that records the
// BLAKE3 checksum of every source file as it was left by the last pass.
// A file whose checksum still matches has nothing new to translate, so
// incremental runs skip it without scanning or calling the backend.
//
// The lock file is stored at the root of the translated directory.
package lockfile

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

// LockFileName is the default lock file name.
const LockFileName = ".zhdoc.lock"

// Version is the lock file format version.
const Version = 1

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// LockFile represents the .zhdoc.lock file structure.
type LockFile struct {
	Version int               `yaml:"version"`
	Model   string            `yaml:"model,omitempty"`
	Files   map[string]string `yaml:"files"` // relative path -> blake3

	mu   sync.Mutex `yaml:"-"`
	path string     `yaml:"-"`
}

// New returns an empty lock file that will be saved under dir.
func New(dir string) *LockFile {
	return &LockFile{
		Version: Version,
		Files:   make(map[string]string),
		path:    filepath.Join(dir, LockFileName),
	}
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads a lock file from the given directory.
// Returns an empty lock file if the file doesn't exist.
func Load(dir string) (*LockFile, error) {
	lf := New(dir)

	data, err := os.ReadFile(lf.path)
	if err != nil {
		if os.IsNotExist(err) {
			return lf, nil
		}
		return nil, fmt.Errorf("reading %s: %w", lf.path, err)
	}

	if err := yaml.Unmarshal(data, lf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", lf.path, err)
	}
	if lf.Version > Version {
		return nil, fmt.Errorf("%s: unsupported lock file version %d", lf.path, lf.Version)
	}
	if lf.Files == nil {
		lf.Files = make(map[string]string)
	}

	return lf, nil
}

// Save writes the lock file to disk.
func (lf *LockFile) Save() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.path == "" {
		return fmt.Errorf("lock file path not set")
	}

	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling lock file: %w", err)
	}

	if err := os.WriteFile(lf.path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", lf.path, err)
	}

	return nil
}

// Path returns the lock file path.
func (lf *LockFile) Path() string {
	return lf.path
}

// ---------------------------------------------------------------------------
// Checksum operations
// ---------------------------------------------------------------------------

// Hash computes the BLAKE3-256 hex digest of data.
func Hash(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Key normalizes a relative file path into a lock file key.
func Key(relPath string) string {
	return filepath.ToSlash(filepath.Clean(relPath))
}

// IsChanged reports whether content differs from what the last pass left
// at relPath. Files never recorded are changed.
func (lf *LockFile) IsChanged(relPath string, content []byte) bool {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	old, ok := lf.Files[Key(relPath)]
	if !ok {
		return true
	}
	return old != Hash(content)
}

// Update records content as the processed state of relPath.
func (lf *LockFile) Update(relPath string, content []byte) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	lf.Files[Key(relPath)] = Hash(content)
}

// Remove forgets relPath.
func (lf *LockFile) Remove(relPath string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	delete(lf.Files, Key(relPath))
}

// Clean removes entries for files that are no longer present in the current
// set of paths.
func (lf *LockFile) Clean(current []string) int {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	valid := make(map[string]bool, len(current))
	for _, p := range current {
		valid[Key(p)] = true
	}

	removed := 0
	for k := range lf.Files {
		if !valid[k] {
			delete(lf.Files, k)
			removed++
		}
	}
	return removed
}

// Reset drops every entry when the model changed, since earlier output of a
// different model is no reason to skip a file. Returns true if it did.
func (lf *LockFile) Reset(model string) bool {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.Model == model {
		return false
	}
	reset := lf.Model != "" && len(lf.Files) > 0
	if reset {
		lf.Files = make(map[string]string)
	}
	lf.Model = model
	return reset
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// Len returns the number of recorded files.
func (lf *LockFile) Len() int {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	return len(lf.Files)
}

// Paths returns the sorted list of recorded files.
func (lf *LockFile) Paths() []string {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	paths := make([]string, 0, len(lf.Files))
	for p := range lf.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Summary returns a human-readable summary string.
func (lf *LockFile) Summary() string {
	paths := lf.Paths()
	if len(paths) == 0 {
		return "empty"
	}

	dirs := make(map[string]int)
	for _, p := range paths {
		dir := "."
		if i := strings.LastIndexByte(p, '/'); i >= 0 {
			dir = p[:i]
		}
		dirs[dir]++
	}
	names := make([]string, 0, len(dirs))
	for d := range dirs {
		names = append(names, d)
	}
	sort.Strings(names)

	var parts []string
	for _, d := range names {
		parts = append(parts, fmt.Sprintf("%s: %d", d, dirs[d]))
	}
	return fmt.Sprintf("%d files (%s)", len(paths), strings.Join(parts, ", "))
}
