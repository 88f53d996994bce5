// Package retrieval ranks corpus chunks for a query and generates
// grounded answers.
//
// Two retrieval paths exist: semantic nearest-neighbor search over the
// vector store and a lexical token-overlap scan over the flat JSONL
// index. The lexical path is the availability guarantee; it fires
// whenever the semantic path is disabled, empty, or filtered to nothing.
package retrieval
