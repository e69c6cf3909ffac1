package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
)

// visitor receives the walk's checkpoints. Any hook may be nil.
type visitor struct {
	// prune drops an entry before it is counted or descended into.
	prune func(path string, d fs.DirEntry) bool
	// dir is called when a directory is popped, before it is listed.
	dir func(path string)
	// subdir is called when a directory is discovered and queued.
	subdir func(path string)
	// file is called for every regular file.
	file func(path string, d fs.DirEntry)
	// skip is called for entries the walk could not read or classify by type.
	skip func(path string, err error)
}

// walk visits root depth first using an explicit stack, so deep trees do not
// grow the goroutine stack. Listing failures are reported to skip and the
// walk carries on with the rest of the tree.
func walk(root string, v visitor) {
	stack := []string{root}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if v.dir != nil {
			v.dir(current)
		}

		// ReadDir returns what it managed to read alongside the error.
		entries, err := os.ReadDir(current)
		if err != nil && v.skip != nil {
			v.skip(current, err)
		}
		for _, child := range entries {
			path := filepath.Join(current, child.Name())
			if v.prune != nil && v.prune(path, child) {
				continue
			}
			mode := child.Type()
			switch {
			case mode.IsDir():
				if v.subdir != nil {
					v.subdir(path)
				}
				stack = append(stack, path)
			case mode.IsRegular():
				if v.file != nil {
					v.file(path, child)
				}
			case mode&fs.ModeIrregular != 0:
				if v.skip != nil {
					v.skip(path, fs.ErrInvalid)
				}
			}
		}
	}
}
