package store

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

// AppDirName is the per-user directory, under the home directory, holding the
// config and recent files.
const AppDirName = ".docview"

// Paths locates the persisted files.
type Paths struct {
	Dir    string
	Config string
	Recent string
}

// PathsIn lays the files out under dir.
func PathsIn(dir string) Paths {
	return Paths{
		Dir:    dir,
		Config: filepath.Join(dir, "config"),
		Recent: filepath.Join(dir, "recent"),
	}
}

// DefaultPaths places the files under the user's home directory.
func DefaultPaths() (Paths, error) {
	home := strings.TrimSpace(xdg.Home)
	if home == "" {
		return Paths{}, errors.New("cannot determine the user's home directory")
	}
	return PathsIn(filepath.Join(home, AppDirName)), nil
}
