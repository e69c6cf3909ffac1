// Package hasher computes content fingerprints the front end uses to tell
// whether a document changed since it was last rendered.
package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"sync"

	"docview/logger"

	"github.com/cespare/xxhash/v2"
	"lukechampine.com/blake3"
)

const (
	hashBufferSmallSize      = 32 * 1024
	hashBufferLargeSize      = 128 * 1024
	hashLargeBufferThreshold = 256 * 1024
)

// DefaultAlgorithms is used when the caller asks for none.
var DefaultAlgorithms = []string{"xxhash"}

var hashBufferSmallPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, hashBufferSmallSize)
		return &buf
	},
}

var hashBufferLargePool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, hashBufferLargeSize)
		return &buf
	},
}

func newHash(algo string) (hash.Hash, bool) {
	switch algo {
	case "xxhash":
		return xxhash.New(), true
	case "blake3":
		return blake3.New(32, nil), true
	case "sha256":
		return sha256.New(), true
	default:
		return nil, false
	}
}

// Supported reports whether algo is a known algorithm name.
func Supported(algo string) bool {
	_, ok := newHash(algo)
	return ok
}

// ComputeHashes reads path once and feeds every requested algorithm. Unknown
// algorithms are logged and left out of the result.
func ComputeHashes(path string, algorithms []string) (map[string]string, error) {
	if len(algorithms) == 0 {
		algorithms = DefaultAlgorithms
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s for hashing: %w", path, err)
	}
	defer file.Close()

	type hasherEntry struct {
		name string
		h    hash.Hash
	}
	hashers := make([]hasherEntry, 0, len(algorithms))
	seen := make(map[string]struct{}, len(algorithms))
	for _, algo := range algorithms {
		if _, ok := seen[algo]; ok {
			continue
		}
		h, ok := newHash(algo)
		if !ok {
			logger.Warnf("Unsupported hash algorithm: %s", algo)
			continue
		}
		seen[algo] = struct{}{}
		hashers = append(hashers, hasherEntry{name: algo, h: h})
	}

	hashes := make(map[string]string, len(hashers))
	if len(hashers) == 0 {
		return hashes, nil
	}

	bufferPool := &hashBufferSmallPool
	if info, statErr := file.Stat(); statErr == nil && info.Size() >= hashLargeBufferThreshold {
		bufferPool = &hashBufferLargePool
	}
	bufferPtr := bufferPool.Get().(*[]byte)
	defer bufferPool.Put(bufferPtr)
	buffer := *bufferPtr

	for {
		n, readErr := file.Read(buffer)
		if n > 0 {
			chunk := buffer[:n]
			for i := range hashers {
				// hash.Hash writes never fail.
				_, _ = hashers[i].h.Write(chunk)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("hash %s: %w", path, readErr)
		}
	}

	for i := range hashers {
		hashes[hashers[i].name] = hex.EncodeToString(hashers[i].h.Sum(nil))
	}
	return hashes, nil
}
