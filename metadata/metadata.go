// Package metadata gathers the file properties shown in the viewer's
// document info panel.
package metadata

import (
	"fmt"
	"path/filepath"
	"time"

	"docview/classify"
	"docview/hasher"
)

// Properties describes a single document on disk.
type Properties struct {
	Path         string            `json:"path"`
	Name         string            `json:"name"`
	Size         int64             `json:"size"`
	ModTime      string            `json:"modTime"`
	CreationTime string            `json:"creationTime,omitempty"`
	AccessTime   string            `json:"accessTime,omitempty"`
	ChangeTime   string            `json:"changeTime,omitempty"`
	MimeType     string            `json:"mimeType"`
	Category     classify.Category `json:"category"`
	Hashes       map[string]string `json:"hashes,omitempty"`
}

// Describe stats path and collects its properties. Fingerprints are computed
// only when algorithms is non-empty.
func Describe(path string, algorithms []string) (*Properties, error) {
	info, err := stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a folder, not a file", path)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", path)
	}

	props := &Properties{
		Path:     path,
		Name:     filepath.Base(path),
		Size:     info.Size(),
		ModTime:  info.ModTime().Format(time.RFC3339),
		Category: classify.Classify(path),
	}

	if ft, err := fileTimes(path); err == nil {
		props.CreationTime = ft.CreationTime
		props.AccessTime = ft.AccessTime
		props.ChangeTime = ft.ChangeTime
	}

	mime, err := sniffMimeType(path)
	if err != nil {
		return nil, err
	}
	props.MimeType = mime

	if len(algorithms) > 0 {
		hashes, err := hasher.ComputeHashes(path, algorithms)
		if err != nil {
			return nil, err
		}
		props.Hashes = hashes
	}
	return props, nil
}
