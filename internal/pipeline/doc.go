// Package pipeline implements the incremental ingestion run for one
// corpus.
//
// A run executes four strictly ordered phases: discover supported files,
// process each changed file (purge stale state, extract, chunk, record
// the manifest entry), persist the buffered JSONL artifacts, then embed
// and upsert the new chunks into the vector store. Each phase depends on
// the complete output of the previous one.
//
// Per-file problems are failures in the result counters, not errors:
// a run always completes with a summary unless the root directory is
// invalid, the context is cancelled, or the stores themselves fail
// structurally.
package pipeline
