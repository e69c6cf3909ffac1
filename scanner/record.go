package scanner

import "docview/classify"

// FileEntry is one supported file discovered by a scan.
type FileEntry struct {
	// VirtualPath is relative to the scan root and always uses '/'.
	VirtualPath  string            `json:"virtualPath"`
	AbsolutePath string            `json:"absPath"`
	Category     classify.Category `json:"category"`
}
