package chunker

import (
	"fmt"
	"strings"
)

// Default window parameters, mirrored by the config package.
const (
	DefaultChunkSize = 1200
	DefaultOverlap   = 200
)

// Chunk splits document text into overlapping windows.
//
// The text is trimmed first; empty text yields no chunks and text no
// longer than chunkSize yields exactly one chunk. Otherwise a window of
// width chunkSize advances by chunkSize-overlap, each slice is trimmed,
// and slices that trim to nothing are dropped. The loop stops the moment
// a window reaches the end of the text, so trailing content is never
// lost to a truncated final window.
//
// Chunk is pure and deterministic: identical input and parameters always
// produce identical boundaries, which keeps derived chunk ids stable
// across runs.
func Chunk(text string, chunkSize, overlap int) ([]string, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be > 0, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("overlap must be in [0, chunk size), got %d", overlap)
	}

	t := strings.TrimSpace(text)
	if t == "" {
		return nil, nil
	}
	if len(t) <= chunkSize {
		return []string{t}, nil
	}

	var chunks []string
	start := 0
	for start < len(t) {
		end := start + chunkSize
		if end > len(t) {
			end = len(t)
		}
		if c := strings.TrimSpace(t[start:end]); c != "" {
			chunks = append(chunks, c)
		}
		if end == len(t) {
			break
		}
		start = end - overlap
	}
	return chunks, nil
}
