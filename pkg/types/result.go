package types

import "time"

// RetrievedChunk is a ranked chunk returned by retrieval.
//
// Score semantics depend on the mode that produced the result: semantic
// retrieval reports a distance (lower is better) while the lexical fallback
// reports a token-overlap count (higher is better). The two scales are not
// comparable and results from both paths must never be merged into one
// ranked list.
type RetrievedChunk struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
}

// RetrievalMode identifies which path produced a set of results.
type RetrievalMode string

const (
	ModeSemantic RetrievalMode = "semantic"
	ModeLexical  RetrievalMode = "lexical"
)

// IngestResult summarizes one ingestion run. It is returned to the caller
// and reported, never persisted.
type IngestResult struct {
	RunID string `json:"run_id"`

	FilesDiscovered       int `json:"files_discovered"`
	FilesSupported        int `json:"files_supported"`
	FilesProcessed        int `json:"files_processed"`
	FilesSkippedUnchanged int `json:"files_skipped_unchanged"`
	FilesFailed           int `json:"files_failed"`

	ChunksWritten int `json:"chunks_written"`
	VectorUpserts int `json:"vector_upserts"`
	VectorDeletes int `json:"vector_deletes"`

	Duration time.Duration `json:"duration_ns"`
}
