// Package chunker splits extracted document text into overlapping
// fixed-width windows for embedding and retrieval.
//
// # Basic Usage
//
//	chunks, err := chunker.Chunk(text, 1200, 200)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Windowing
//
// Text is trimmed before splitting. Short documents (at most one window
// wide) become a single chunk. Longer documents are cut into windows of
// chunkSize characters that advance by chunkSize-overlap, so adjacent
// chunks share overlap characters of context. The final window is the
// remainder of the text rather than a fixed-width slice.
//
// Chunking is deterministic: the same text and parameters always produce
// the same chunk boundaries. Chunk identifiers derived from positional
// indexes therefore stay stable across repeated ingestion runs.
package chunker
