// Package viewer implements the operations the desktop shell invokes: opening
// a path or a dialog pick, reading and saving preferences, listing recent
// locations and describing a single document.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"docview/classify"
	"docview/logger"
	"docview/metadata"
	"docview/pathnorm"
	"docview/scanner"
	"docview/store"
	"docview/tracing"
	"docview/utils"
)

// AppName prefixes every window title.
const AppName = "docview"

var (
	// ErrUnsupportedFile is returned when a file has no viewer category.
	ErrUnsupportedFile = errors.New("unsupported file type (only previewable extensions can be opened)")
	// ErrNotFileOrFolder is returned for sockets, devices and the like.
	ErrNotFileOrFolder = errors.New("path is not a file or folder")
	// ErrNotFolder is returned when a folder pick resolves to something else.
	ErrNotFolder = errors.New("selected path is not a folder")
	// ErrOutsideRecent guards Describe against arbitrary reads.
	ErrOutsideRecent = errors.New("path is not inside a recently opened location")
)

// ScanResult is what the front end renders after opening a path.
type ScanResult struct {
	Root  string              `json:"root"`
	Label string              `json:"label"`
	Files []scanner.FileEntry `json:"files"`
}

// Service carries the persisted state and scan settings shared by all
// operations. Every method is safe to call from concurrent goroutines; the
// persisted files are last-writer-wins.
type Service struct {
	Recent store.RecentFile
	Config store.ConfigFile
	// Emitter receives scan progress; nil discards it.
	Emitter scanner.Emitter
	// Interval overrides scanner.DefaultInterval when positive.
	Interval time.Duration
	Exclude  *utils.PatternMatcher
	// HashAlgorithms are computed by Describe.
	HashAlgorithms []string
}

// New returns a Service persisting under paths.
func New(paths store.Paths) *Service {
	return &Service{
		Recent: store.RecentFile{Path: paths.Recent, Max: store.DefaultRecentLimit},
		Config: store.ConfigFile{Path: paths.Config},
	}
}

// ScanPath opens raw, which may be a plain path or a file:// URL. A blank
// input returns a nil result and no error.
func (s *Service) ScanPath(ctx context.Context, raw, scanID string) (*ScanResult, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	ctx, end := tracing.StartTask(ctx, "scan_path")
	defer end()

	input := pathnorm.Normalize(raw)
	abs, err := canonicalize(input)
	if err != nil {
		return nil, fmt.Errorf("path does not exist or cannot be accessed: %s: %w", input, err)
	}
	tracing.Log(ctx, "path", abs)
	return s.open(ctx, abs, scanID)
}

// ScanPickedFolder opens the outcome of a folder dialog. An empty pick means
// the dialog was cancelled.
func (s *Service) ScanPickedFolder(ctx context.Context, picked, scanID string) (*ScanResult, error) {
	if picked == "" {
		return nil, nil
	}
	ctx, end := tracing.StartTask(ctx, "scan_picked_folder")
	defer end()

	info, err := os.Stat(picked)
	if err != nil || !info.IsDir() {
		return nil, ErrNotFolder
	}
	root, err := canonicalize(picked)
	if err != nil {
		root = picked
	}
	return s.scanFolder(ctx, root, scanID), nil
}

// ScanPickedFile opens the outcome of a file dialog. An empty pick means the
// dialog was cancelled.
func (s *Service) ScanPickedFile(ctx context.Context, picked, scanID string) (*ScanResult, error) {
	if picked == "" {
		return nil, nil
	}
	ctx, end := tracing.StartTask(ctx, "scan_picked_file")
	defer end()

	abs, err := canonicalize(picked)
	if err != nil {
		abs = picked
	}
	return s.open(ctx, abs, scanID)
}

func (s *Service) open(ctx context.Context, abs, scanID string) (*ScanResult, error) {
	info, err := os.Stat(abs)
	if err != nil {
		return nil, ErrNotFileOrFolder
	}
	switch {
	case info.IsDir():
		return s.scanFolder(ctx, abs, scanID), nil
	case info.Mode().IsRegular():
		category := classify.Classify(abs)
		if !category.Supported() {
			return nil, ErrUnsupportedFile
		}
		s.recordRecent(abs)
		name := label(abs)
		return &ScanResult{
			Root:  abs,
			Label: name,
			Files: []scanner.FileEntry{{
				VirtualPath:  name,
				AbsolutePath: abs,
				Category:     category,
			}},
		}, nil
	default:
		return nil, ErrNotFileOrFolder
	}
}

func (s *Service) scanFolder(ctx context.Context, root, scanID string) *ScanResult {
	s.recordRecent(root)
	defer tracing.StartRegion(ctx, "walk")()
	files := scanner.Scan(root, scanner.Options{
		ScanID:   scanID,
		Interval: s.Interval,
		Emitter:  s.Emitter,
		Exclude:  s.Exclude,
	})
	return &ScanResult{Root: root, Label: label(root), Files: files}
}

// recordRecent is best effort; a failure never fails the open.
func (s *Service) recordRecent(path string) {
	if err := s.Recent.Record(path); err != nil {
		logger.Warnf("Failed to record recent path %s: %v", path, err)
	}
}

// LoadConfig returns the persisted preferences.
func (s *Service) LoadConfig() (store.AppConfig, error) {
	return s.Config.Load()
}

// SaveConfig merges the set fields of partial into the persisted preferences.
func (s *Service) SaveConfig(partial store.AppConfig) error {
	return s.Config.Save(partial)
}

// RecentPaths returns up to limit recent locations, most recent first. A
// zero or negative limit uses the default. Read errors yield an empty list.
func (s *Service) RecentPaths(limit int) []string {
	if limit <= 0 {
		limit = store.DefaultRecentLimit
	}
	entries, err := s.Recent.Load(limit)
	if err != nil {
		logger.Warnf("Failed to load recent paths: %v", err)
		return []string{}
	}
	return entries
}

// WindowTitle builds the shell's title bar text for siteName.
func WindowTitle(siteName string) string {
	site := strings.TrimSpace(siteName)
	prefix := AppName + " - "
	if len(site) >= len(prefix) && strings.EqualFold(site[:len(prefix)], prefix) {
		site = strings.TrimSpace(site[len(prefix):])
	}
	if site == "" {
		return AppName
	}
	return prefix + site
}

// Describe returns the properties of a file below one of the recent
// locations.
func (s *Service) Describe(ctx context.Context, path string) (*metadata.Properties, error) {
	_, end := tracing.StartTask(ctx, "describe")
	defer end()

	abs, err := s.DescribablePath(path)
	if err != nil {
		return nil, err
	}
	return metadata.Describe(abs, s.HashAlgorithms)
}

// DescribablePath canonicalizes path and checks that it lies inside a
// recently opened location.
func (s *Service) DescribablePath(path string) (string, error) {
	abs, err := canonicalize(pathnorm.Normalize(strings.TrimSpace(path)))
	if err != nil {
		return "", fmt.Errorf("path does not exist or cannot be accessed: %s: %w", path, err)
	}
	roots, err := s.Recent.Load(0)
	if err != nil {
		return "", err
	}
	if !utils.IsPathWithin(abs, roots) {
		return "", fmt.Errorf("%s: %w", abs, ErrOutsideRecent)
	}
	return abs, nil
}

func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// label is the final path element, or the whole path when there is none.
func label(path string) string {
	base := filepath.Base(path)
	if base == "" || base == "." || base == string(filepath.Separator) {
		return path
	}
	return base
}
