package manifest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Entry is one line of the per-corpus manifest.jsonl ledger. One entry per
// source file, keyed by absolute path; (mtime, size) decide whether a file
// needs reprocessing.
type Entry struct {
	Path           string `json:"path"`
	MTime          int64  `json:"mtime"`
	Size           int64  `json:"size"`
	ExtractedChars int    `json:"extracted_chars"`
	Chunks         int    `json:"chunks"`
}

// Manifest is the last-entry-wins reduction of the append-only ledger.
type Manifest map[string]Entry

// Load reads manifest.jsonl into a map keyed by absolute path. Newer
// entries overwrite older ones; malformed lines are skipped, not fatal.
func Load(path string) (Manifest, error) {
	out := Manifest{}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			continue // corrupt line, keep going
		}
		if e.Path == "" {
			continue
		}
		out[e.Path] = e
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan manifest: %w", err)
	}
	return out, nil
}

// Record appends an entry to the ledger. Entries are never rewritten or
// deleted; Load reduces the log with last-entry-wins semantics.
func Record(path string, e Entry) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open manifest for append: %w", err)
	}
	defer func() { _ = f.Close() }()

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal manifest entry: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append manifest entry: %w", err)
	}
	return nil
}

// Stat resolves the absolute path and current (mtime, size) for a file.
// MTime keeps nanosecond precision; integer-second truncation would mask
// rapid successive edits.
func Stat(path string) (absPath string, mtime int64, size int64, err error) {
	absPath, err = filepath.Abs(path)
	if err != nil {
		return "", 0, 0, fmt.Errorf("resolve path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return "", 0, 0, err
	}
	return absPath, info.ModTime().UnixNano(), info.Size(), nil
}

// ShouldSkip reports whether a file appears unchanged since its last
// successful processing. It returns true only when force is false, an
// entry exists for the resolved absolute path, and both the recorded
// mtime and size match the file's current stat values.
//
// A stat failure is returned to the caller rather than treated as a skip:
// a vanished file must surface as a failure, never pass silently over
// stale data.
func ShouldSkip(path string, m Manifest, force bool) (bool, error) {
	if force {
		return false, nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("resolve path: %w", err)
	}
	prev, ok := m[absPath]
	if !ok {
		return false, nil
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return false, err
	}
	return prev.MTime == info.ModTime().UnixNano() && prev.Size == info.Size(), nil
}
