package utils

import (
	"path"
	"regexp"
	"strings"
)

const regexPrefix = "re:"

// PatternMatcher decides which entries a scan leaves out. Plain patterns are
// globs matched against the entry's base name; patterns prefixed with "re:"
// are regular expressions matched against the slash separated path relative
// to the scan root.
type PatternMatcher struct {
	globs []string
	regex []*regexp.Regexp
}

// NewPatternMatcher returns nil when patterns holds nothing usable, so callers
// can skip matching entirely.
func NewPatternMatcher(patterns []string) *PatternMatcher {
	m := &PatternMatcher{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if expr, ok := strings.CutPrefix(p, regexPrefix); ok {
			if re, err := regexp.Compile(expr); err == nil {
				m.regex = append(m.regex, re)
			}
			continue
		}
		if _, err := path.Match(p, ""); err != nil {
			continue
		}
		m.globs = append(m.globs, p)
	}
	if len(m.globs) == 0 && len(m.regex) == 0 {
		return nil
	}
	return m
}

// Excludes reports whether relPath (slash separated) should be skipped.
func (m *PatternMatcher) Excludes(relPath string) bool {
	if m == nil || relPath == "" {
		return false
	}
	base := path.Base(relPath)
	for _, pattern := range m.globs {
		if matched, _ := path.Match(pattern, base); matched {
			return true
		}
	}
	for _, re := range m.regex {
		if re.MatchString(relPath) {
			return true
		}
	}
	return false
}

// ValidatePattern reports why p would be ignored by NewPatternMatcher.
func ValidatePattern(p string) error {
	p = strings.TrimSpace(p)
	if expr, ok := strings.CutPrefix(p, regexPrefix); ok {
		_, err := regexp.Compile(expr)
		return err
	}
	_, err := path.Match(p, "")
	return err
}
