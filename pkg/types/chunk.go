package types

import "fmt"

// Chunk is one overlapping slice of a source document. Chunks are the unit
// of both the flat JSONL index and the vector store.
type Chunk struct {
	ChunkID    string `json:"chunk_id"`
	DocID      string `json:"doc_id"`
	SourcePath string `json:"source_path"`
	Text       string `json:"text"`
}

// ChunkID derives the identifier for the chunk at the given position within
// a document. Ids are deterministic: re-chunking unchanged content yields
// the same ids, which is what makes incremental re-ingestion idempotent.
func ChunkID(docID string, index int) string {
	return fmt.Sprintf("%s::chunk-%d", docID, index)
}

// Validate checks that the chunk carries the fields both stores require.
func (c *Chunk) Validate() error {
	if c.ChunkID == "" {
		return ErrEmptyChunkID
	}
	if c.DocID == "" {
		return ErrEmptyDocID
	}
	if c.Text == "" {
		return ErrEmptyText
	}
	return nil
}

// ExtractResult is the outcome of the text extraction capability. It never
// carries a Go error: extraction failures are data, reported through Reason
// with a short machine-readable label such as "empty", "missing_dep:pdf" or
// "read_error:ENOENT".
type ExtractResult struct {
	OK     bool
	Text   string
	Reason string
}

// Failure is one line of the per-corpus ingest_failures.jsonl artifact.
type Failure struct {
	Path   string `json:"path"`
	Ext    string `json:"ext"`
	Reason string `json:"reason"`
}
