package source

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultInclude matches DICOM files at any depth.
var DefaultInclude = []string{"**/*.dcm", "**/*.DCM", "**/*.dicom"}

// Discover expands include patterns under root into file references in
// lexicographic order. A root that names a regular file is returned as is.
func Discover(root string, include []string) ([]FileRef, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return []FileRef{FileRef(absRoot)}, nil
	}

	if len(include) == 0 {
		include = DefaultInclude
	}

	fsys := os.DirFS(absRoot)
	seen := make(map[string]bool)
	var refs []FileRef

	for _, pattern := range include {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid include pattern %q", pattern)
		}
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			if seen[m] || hiddenPath(m) {
				continue
			}
			seen[m] = true
			refs = append(refs, FileRef(filepath.Join(absRoot, filepath.FromSlash(m))))
		}
	}

	slices.Sort(refs)
	return refs, nil
}

// MatchesInclude reports whether a path relative to the watch root is
// selected by the include patterns.
func MatchesInclude(rel string, include []string) bool {
	if len(include) == 0 {
		include = DefaultInclude
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range include {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// hiddenPath reports whether any element of a slash path starts with a dot.
func hiddenPath(p string) bool {
	for _, part := range strings.Split(p, "/") {
		if len(part) > 1 && part[0] == '.' {
			return true
		}
	}
	return false
}
