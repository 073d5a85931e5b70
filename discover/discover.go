// Package discover finds the Python sources under a directory.
//
// A file qualifies when its extension is in the configured list, or when it
// has no extension and starts with a python shebang (installed scripts like
// bin/manage). Directories whose name is excluded are not descended into.
package discover

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Options controls the walk.
type Options struct {
	// Extensions are the accepted file suffixes, with the leading dot.
	Extensions []string
	// Exclude are directory names to skip at any depth.
	Exclude []string
	// NoShebang disables detection of extension-less python scripts.
	NoShebang bool
}

// Find walks root and returns matching files in lexical order.
func Find(root string, opts Options) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	exts := make(map[string]bool, len(opts.Extensions))
	for _, e := range opts.Extensions {
		exts[strings.ToLower(e)] = true
	}
	skip := make(map[string]bool, len(opts.Exclude))
	for _, d := range opts.Exclude {
		skip[d] = true
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if d.IsDir() {
			if path != root && skip[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		ext := filepath.Ext(d.Name())
		switch {
		case exts[strings.ToLower(ext)]:
			files = append(files, path)
		case ext == "" && !opts.NoShebang && IsPythonScript(path):
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

// IsPythonScript reports whether the file's first line is a shebang naming a
// python interpreter.
func IsPythonScript(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	return isPythonShebang(line)
}

func isPythonShebang(line string) bool {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "#!") {
		return false
	}

	fields := strings.Fields(strings.TrimSpace(line[2:]))
	if len(fields) == 0 {
		return false
	}
	interp := filepath.Base(fields[0])
	if interp == "env" {
		interp = ""
		for _, f := range fields[1:] {
			if !strings.HasPrefix(f, "-") {
				interp = f
				break
			}
		}
	}
	return strings.HasPrefix(interp, "python")
}

// Rel returns path relative to root in slash form, or path itself when it
// is not under root.
func Rel(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
