// Package types provides shared type definitions for localrag.
//
// This package defines the domain types used across components: chunks,
// extraction results, retrieval results, and ingestion summaries.
//
// Chunk is the unit of indexing. Its id is derived from the source
// document's absolute path and the chunk's position, so re-ingesting
// unchanged content always produces the same ids:
//
//	id := types.ChunkID("/docs/notes.md", 0) // "/docs/notes.md::chunk-0"
//
// RetrievedChunk carries a mode-dependent score: a distance for semantic
// hits (lower is better) and a token-overlap count for lexical hits
// (higher is better). The two are never comparable.
package types
