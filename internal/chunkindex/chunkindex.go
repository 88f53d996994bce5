package chunkindex

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mbarberony/localrag/pkg/types"
)

// scanBufSize bounds a single index line; chunks are far smaller.
const scanBufSize = 4 * 1024 * 1024

// Append writes chunk records to the end of the flat index. Records are
// written one JSON object per line, in order.
func Append(path string, chunks []types.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open index for append: %w", err)
	}
	defer func() { _ = f.Close() }()

	w := bufio.NewWriter(f)
	for _, c := range chunks {
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshal chunk %s: %w", c.ChunkID, err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("append chunk %s: %w", c.ChunkID, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush index: %w", err)
	}
	return nil
}

// ReadAll loads every chunk record from the flat index. A missing file
// yields an empty slice; malformed lines are skipped.
func ReadAll(path string) ([]types.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open index: %w", err)
	}
	defer func() { _ = f.Close() }()

	var out []types.Chunk
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), scanBufSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var c types.Chunk
		if err := json.Unmarshal(line, &c); err != nil {
			continue
		}
		if c.ChunkID == "" {
			continue
		}
		out = append(out, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan index: %w", err)
	}
	return out, nil
}

// RewriteExcluding rewrites the index with every record for docID
// removed. The new index is written to tmpPath first and swapped into
// place with an atomic rename, so readers never observe a partial index.
// A missing index is a no-op.
func RewriteExcluding(path, tmpPath, docID string) error {
	chunks, err := ReadAll(path)
	if err != nil {
		return err
	}
	if chunks == nil {
		return nil
	}

	kept := make([]types.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if c.DocID != docID {
			kept = append(kept, c)
		}
	}

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open temp index: %w", err)
	}
	w := bufio.NewWriter(f)
	for _, c := range kept {
		data, err := json.Marshal(c)
		if err != nil {
			_ = f.Close()
			return fmt.Errorf("marshal chunk %s: %w", c.ChunkID, err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			_ = f.Close()
			return fmt.Errorf("write temp index: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush temp index: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp index: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("swap index: %w", err)
	}
	return nil
}
