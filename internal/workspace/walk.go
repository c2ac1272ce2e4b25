// Package workspace walks and watches the source trees being compared.
package workspace

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// defaultSkipDirs holds version-control metadata and virtualenvs, which never
// contain project sources. Everything else is left to exclude globs.
var defaultSkipDirs = map[string]struct{}{
	".git":  {},
	".hg":   {},
	".svn":  {},
	".venv": {},
	"venv":  {},
}

// SkipDir reports whether a directory with the given base name is never walked
func SkipDir(name string) bool {
	_, skip := defaultSkipDirs[name]
	return skip
}

// WalkSourceFiles calls fn for every regular file under root whose extension
// is in exts (all files when exts is empty). Directories in the default skip
// set are not entered. exclude holds doublestar patterns matched against the
// slash-separated path relative to root. Unreadable entries below root are
// logged and skipped.
func WalkSourceFiles(root string, exts []string, exclude []string, fn func(path string) error) error {
	for _, pattern := range exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}

	wanted := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		wanted[strings.ToLower(ext)] = struct{}{}
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			slog.Warn("skipping unreadable path", "path", path, "error", err)
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path != root && SkipDir(d.Name()) {
				return filepath.SkipDir
			}
			if path != root && excluded(exclude, rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}
		if len(wanted) > 0 {
			if _, ok := wanted[strings.ToLower(filepath.Ext(path))]; !ok {
				return nil
			}
		}
		if excluded(exclude, rel) {
			return nil
		}
		return fn(path)
	})
}

func excluded(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}
