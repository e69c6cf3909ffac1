// Package store persists the viewer's small pieces of user state: the recent
// paths list and the display configuration. Every type here is a plain value
// over a file path; nothing is cached between calls.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// tempPath returns the sibling file a write is staged in: the extension, if
// any, is replaced with ".tmp".
func tempPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".tmp"
}

// rename is swapped out in tests to simulate hosts that refuse to replace
// an existing destination.
var rename = os.Rename

// WriteFileAtomic writes data to a sibling temp file and renames it over path,
// so readers never see a partial file. If the rename fails the destination is
// removed and the rename retried once.
//
// A concurrent writer recreating path between the remove and the retry can
// still make the retry fail; that window is accepted.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	tmp := tempPath(path)
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}

	if err := rename(tmp, path); err != nil {
		_ = os.Remove(path)
		if err := rename(tmp, path); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("replace %s: %w", path, err)
		}
	}
	return nil
}
