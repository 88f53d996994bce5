// Package chunkindex maintains the flat JSONL chunk index and the
// doc-to-chunks map for a corpus.
//
// The flat index is the durable source of truth for chunk text: one JSON
// record per line, append-only during ingestion, rewritten via temp file
// plus atomic rename when a document's old records must be removed. The
// doc map tracks which chunk ids each document last produced so the
// vector store can be purged of stale ids before reprocessing.
package chunkindex
