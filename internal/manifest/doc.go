// Package manifest implements the per-file change-tracking ledger used to
// decide which files need (re)processing during ingestion.
//
// The ledger is an append-only JSONL file; the in-memory view is the
// last-entry-wins reduction of that log. Entries are only ever appended,
// so a crash mid-run leaves at worst a trailing partial line, which Load
// skips. The manifest never removes entries for files that disappear:
// absence from discovery is what surfaces deletions.
package manifest
