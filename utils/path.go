package utils

import (
	"path/filepath"
	"strings"
)

// IsPathWithin returns true if the given path is within any of the roots.
// Symlinks are resolved on both sides when possible.
func IsPathWithin(path string, roots []string) bool {
	absPath, ok := resolve(path)
	if !ok {
		return false
	}
	for _, root := range roots {
		absRoot, ok := resolve(root)
		if !ok {
			continue
		}
		if absPath == absRoot {
			return true
		}
		if _, ok := RelSlash(absRoot, absPath); ok {
			return true
		}
	}
	return false
}

// RelSlash returns target relative to root using forward slashes only, so the
// result looks the same on every host. Backslashes are rewritten as well.
// ok is false when target is not below root.
func RelSlash(root, target string) (string, bool) {
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return strings.ReplaceAll(filepath.ToSlash(rel), `\`, "/"), true
}

func resolve(path string) (string, bool) {
	if strings.TrimSpace(path) == "" {
		return "", false
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		resolved = path
	}
	abs, err := filepath.Abs(resolved)
	if err != nil {
		return "", false
	}
	return abs, true
}
