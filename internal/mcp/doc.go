// Package mcp exposes the retrieval system to AI assistants over the
// Model Context Protocol.
//
// Four tools are registered:
//   - ingest_corpus: incrementally ingest a directory into a named corpus
//   - retrieve_chunks: ranked retrieval with lexical fallback
//   - ask: answer a question grounded in retrieved corpus context
//   - corpus_stats: per-corpus document, chunk, and failure counts
//
// The server speaks JSON-RPC 2.0 over stdio via
// github.com/mark3labs/mcp-go; stdout is reserved for the protocol, so
// all logging goes to stderr.
//
// # MCP Client Configuration
//
//	{
//	  "mcpServers": {
//	    "localrag": {
//	      "command": "/usr/local/bin/localrag",
//	      "args": ["mcp"]
//	    }
//	  }
//	}
//
// # Error Handling
//
// Tool failures are returned as JSON-RPC errors:
//   - -32602: invalid params (missing/invalid arguments)
//   - -32603: internal error (ingestion, stores, generation)
//   - -32004: empty query or question
package mcp
