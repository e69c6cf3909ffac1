package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"docview/logger"
)

// DefaultRecentLimit bounds the recent list when no explicit limit is given.
const DefaultRecentLimit = 20

// RecentFile is the newline delimited list of recently opened paths, most
// recent first.
type RecentFile struct {
	Path string
	// Max bounds the persisted list; zero or less means DefaultRecentLimit.
	Max int
}

func (r RecentFile) max() int {
	if r.Max <= 0 {
		return DefaultRecentLimit
	}
	return r.Max
}

// Load returns at most limit entries (DefaultRecentLimit when limit <= 0),
// sanitized and deduplicated in first-seen order. A missing file is an empty
// list.
func (r RecentFile) Load(limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	entries, err := r.readAll()
	if err != nil {
		return nil, err
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Record moves entry to the front of the list, dropping older duplicates and
// anything past the maximum, and persists the result. A blank entry is a
// no-op. An unreadable existing list is replaced rather than reported.
func (r RecentFile) Record(entry string) error {
	value, ok := sanitizeEntry(entry)
	if !ok {
		return nil
	}

	entries, err := r.readAll()
	if err != nil {
		logger.Warnf("Discarding unreadable recent list: %v", err)
		entries = nil
	}

	updated := make([]string, 0, len(entries)+1)
	updated = append(updated, value)
	for _, existing := range entries {
		if existing != value {
			updated = append(updated, existing)
		}
	}
	if limit := r.max(); len(updated) > limit {
		updated = updated[:limit]
	}
	return r.save(updated)
}

func (r RecentFile) readAll() ([]string, error) {
	data, err := os.ReadFile(r.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read recent list %s: %w", r.Path, err)
	}

	entries := []string{}
	seen := make(map[string]struct{})
	for _, line := range strings.Split(string(data), "\n") {
		value, ok := sanitizeEntry(line)
		if !ok {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		entries = append(entries, value)
	}
	return entries, nil
}

func (r RecentFile) save(entries []string) error {
	content := ""
	if len(entries) > 0 {
		content = strings.Join(entries, "\n") + "\n"
	}
	if err := WriteFileAtomic(r.Path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("save recent list: %w", err)
	}
	return nil
}

// sanitizeEntry trims value and strips embedded line breaks; blank results are
// rejected.
func sanitizeEntry(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	value = strings.TrimSpace(strings.NewReplacer("\n", "", "\r", "").Replace(value))
	if value == "" {
		return "", false
	}
	return value, true
}
