// Package pathnorm turns user supplied locations, including file:// URIs
// handed over by drag and drop, into plain filesystem paths.
package pathnorm

import "strings"

const (
	fileScheme    = "file://"
	localhostHost = "localhost/"
)

// Normalize strips a file:// scheme and an optional localhost host from raw.
// A drive-letter path such as /C:/x loses its leading slash; POSIX paths keep
// theirs. Anything that is not a file URI is returned unchanged. No
// percent-decoding is performed.
func Normalize(raw string) string {
	rest, ok := strings.CutPrefix(raw, fileScheme)
	if !ok {
		return raw
	}
	rest = strings.TrimPrefix(rest, localhostHost)
	if isDrivePath(rest) {
		return rest[1:]
	}
	return rest
}

// isDrivePath reports whether p looks like "/X:..." with X an ASCII letter.
func isDrivePath(p string) bool {
	if len(p) < 3 || p[0] != '/' || p[2] != ':' {
		return false
	}
	c := p[1]
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
