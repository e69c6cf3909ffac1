// Package classify maps file names to the viewer categories that drive
// rendering on the front end.
package classify

import (
	"path/filepath"
	"strings"
)

// Category is the semantic type of a file.
type Category string

const (
	None     Category = ""
	Mindmap  Category = "mindmap"
	Marpit   Category = "marpit"
	Images   Category = "images"
	Video    Category = "video"
	Audio    Category = "audio"
	Markdown Category = "markdown"
	Drawio   Category = "drawio"
	PDF      Category = "pdf"
	Word     Category = "word"
	Excel    Category = "excel"
	Text     Category = "text"
	Slides   Category = "slides"
)

// Compound suffixes win over the plain extension table.
var suffixes = []struct {
	suffix   string
	category Category
}{
	{".mm.md", Mindmap},
	{".ppt.md", Marpit},
}

var extensions = map[string]Category{
	"png":      Images,
	"jpg":      Images,
	"jpeg":     Images,
	"gif":      Images,
	"webp":     Images,
	"mp4":      Video,
	"webm":     Video,
	"ogv":      Video,
	"m4v":      Video,
	"mp3":      Audio,
	"wav":      Audio,
	"m4a":      Audio,
	"ogg":      Audio,
	"oga":      Audio,
	"flac":     Audio,
	"aac":      Audio,
	"md":       Markdown,
	"markdown": Markdown,
	"drawio":   Drawio,
	"pdf":      PDF,
	"docx":     Word,
	"xlsx":     Excel,
	"txt":      Text,
	"pptx":     Slides,
}

// Supported reports whether c is a real category.
func (c Category) Supported() bool {
	return c != None
}

func (c Category) String() string {
	if c == None {
		return "none"
	}
	return string(c)
}

// Classify returns the category for the final element of path, or None.
// It never touches the filesystem.
func Classify(path string) Category {
	name := strings.ToLower(filepath.Base(path))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return None
	}
	for _, s := range suffixes {
		if strings.HasSuffix(name, s.suffix) {
			return s.category
		}
	}
	ext := filepath.Ext(name)
	// ".md" alone is a dotfile without an extension.
	if len(ext) < 2 || len(ext) == len(name) {
		return None
	}
	return extensions[ext[1:]]
}

// Extensions returns the plain extensions (without dot) that map to c.
func Extensions(c Category) []string {
	var out []string
	for ext, cat := range extensions {
		if cat == c {
			out = append(out, ext)
		}
	}
	return out
}
