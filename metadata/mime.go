package metadata

import (
	"fmt"
	"io"
	"os"

	"github.com/h2non/filetype"
)

// headerSize is the number of bytes filetype needs to match every known type.
const headerSize = 261

// UnknownMime is reported when the header matches no known signature.
const UnknownMime = "unknown"

func sniffMimeType(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("cannot access %s: %w", path, err)
	}
	defer file.Close()

	buf := make([]byte, headerSize)
	n, err := io.ReadFull(file, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	kind, err := filetype.Match(buf[:n])
	if err != nil || kind == filetype.Unknown || kind.MIME.Value == "" {
		return UnknownMime, nil
	}
	return kind.MIME.Value, nil
}
