// Package scanner walks a directory tree, keeps the files the viewer can
// open and reports paced progress while it goes.
package scanner

import (
	"io/fs"
	"sort"
	"time"

	"docview/classify"
	"docview/logger"
	"docview/utils"

	"golang.org/x/time/rate"
)

// DefaultInterval is the minimum spacing between two progress events.
const DefaultInterval = 120 * time.Millisecond

// Options tune a single scan. The zero value is usable.
type Options struct {
	// ScanID is echoed in every progress event.
	ScanID string
	// Interval overrides DefaultInterval when positive.
	Interval time.Duration
	// Emitter receives progress; nil discards it.
	Emitter Emitter
	// Exclude, when set, prunes matching entries before they are counted.
	Exclude *utils.PatternMatcher
}

type counters struct {
	dirs    uint64
	files   uint64
	matched uint64
}

// Scan walks root and returns its supported files ordered by virtual path.
// Exactly one start and one done event are emitted, with progress events in
// between no more often than the configured interval. Entries that cannot be
// read are skipped; Scan itself never fails.
func Scan(root string, opts Options) []FileEntry {
	emitter := opts.Emitter
	if emitter == nil {
		emitter = Discard
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	var c counters
	send := func(stage Stage, current string) {
		emitter.Emit(ProgressEvent, Progress{
			ScanID:       opts.ScanID,
			Stage:        stage,
			ScannedDirs:  c.dirs,
			ScannedFiles: c.files,
			MatchedFiles: c.matched,
			CurrentPath:  current,
		})
	}

	// Sometimes measures elapsed time with the monotonic clock. Its first run
	// is the start event, so progress waits a full interval after it.
	pacer := &rate.Sometimes{Interval: interval}
	pacer.Do(func() { send(StageStart, root) })
	checkpoint := func(current string) {
		pacer.Do(func() { send(StageProgress, current) })
	}

	files := make([]FileEntry, 0)
	walk(root, visitor{
		prune: func(path string, _ fs.DirEntry) bool {
			if opts.Exclude == nil {
				return false
			}
			rel, ok := utils.RelSlash(root, path)
			return ok && opts.Exclude.Excludes(rel)
		},
		dir: func(path string) {
			c.dirs++
			checkpoint(path)
		},
		subdir: checkpoint,
		file: func(path string, _ fs.DirEntry) {
			c.files++
			category := classify.Classify(path)
			if !category.Supported() {
				checkpoint(path)
				return
			}
			c.matched++
			rel, ok := utils.RelSlash(root, path)
			if !ok {
				return
			}
			files = append(files, FileEntry{
				VirtualPath:  rel,
				AbsolutePath: path,
				Category:     category,
			})
			checkpoint(path)
		},
		skip: func(path string, err error) {
			logger.Debugf("Skipping %s: %v", path, err)
			checkpoint(path)
		},
	})

	send(StageDone, root)

	sort.Slice(files, func(i, j int) bool {
		return files[i].VirtualPath < files[j].VirtualPath
	})
	logger.Debugf("Scanned %s: %d dirs, %d files, %d matched", root, c.dirs, c.files, c.matched)
	return files
}
