// Package vectorstore persists chunk embeddings in a per-corpus SQLite
// database and serves nearest-neighbor queries.
//
// Vectors are stored as little-endian float32 blobs; queries run a
// Go-side cosine scan over all rows, which is fast enough for the corpus
// sizes this system targets (tens of thousands of chunks). Rows whose
// dimension no longer matches the active embedding model are skipped
// during queries rather than failing them.
//
// Two SQLite drivers are selectable at build time: the default pure Go
// driver needs no C toolchain, and a cgo_sqlite build tag switches to
// the C driver for faster I/O. See build_purego.go and build_cgo.go.
package vectorstore
