// Package corpus defines the on-disk layout of per-corpus artifacts.
//
// Each corpus is an isolated unit of ingestion state rooted at
// <dataDir>/corpora/<name>/. Corpora never share files.
package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// Artifact file names within a corpus directory.
const (
	IndexFile    = "index.jsonl"
	TmpIndexFile = "index.tmp.jsonl"
	ManifestFile = "manifest.jsonl"
	FailuresFile = "ingest_failures.jsonl"
	DocMapFile   = "doc_chunk_map.json"
	VectorsDir   = "vectors"
)

// Paths holds the artifact locations for one corpus.
type Paths struct {
	Base     string
	Index    string
	TmpIndex string
	Manifest string
	Failures string
	DocMap   string
	Vectors  string
}

var nameRe = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// PathsFor resolves the artifact paths for a named corpus, creating the
// base directory if needed. Corpus names are restricted so they cannot
// escape the data directory.
func PathsFor(dataDir, name string) (Paths, error) {
	if !nameRe.MatchString(name) {
		return Paths{}, fmt.Errorf("invalid corpus name %q", name)
	}
	base := filepath.Join(dataDir, "corpora", name)
	if err := os.MkdirAll(base, 0o755); err != nil {
		return Paths{}, fmt.Errorf("create corpus dir: %w", err)
	}
	return Paths{
		Base:     base,
		Index:    filepath.Join(base, IndexFile),
		TmpIndex: filepath.Join(base, TmpIndexFile),
		Manifest: filepath.Join(base, ManifestFile),
		Failures: filepath.Join(base, FailuresFile),
		DocMap:   filepath.Join(base, DocMapFile),
		Vectors:  filepath.Join(base, VectorsDir),
	}, nil
}

// Reset deletes the JSONL artifacts for a from-scratch run. When
// wipeVectors is set the vector store's persisted directory is removed
// as well.
func Reset(p Paths, wipeVectors bool) error {
	for _, f := range []string{p.Index, p.TmpIndex, p.Manifest, p.Failures, p.DocMap} {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("reset %s: %w", f, err)
		}
	}
	if wipeVectors {
		if err := os.RemoveAll(p.Vectors); err != nil {
			return fmt.Errorf("reset vectors: %w", err)
		}
	}
	return nil
}

// List returns the names of all corpora under dataDir, sorted by the
// directory listing order (lexicographic).
func List(dataDir string) ([]string, error) {
	base := filepath.Join(dataDir, "corpora")
	entries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list corpora: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
