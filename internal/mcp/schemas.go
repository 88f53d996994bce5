package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// ingestCorpusTool returns the tool definition for ingest_corpus
func ingestCorpusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ingest_corpus",
		Description: "Ingest a directory of documents into a named corpus, incrementally",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"root": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the directory of documents to ingest",
				},
				"corpus": map[string]interface{}{
					"type":        "string",
					"description": "Corpus name (letters, digits, dot, dash, underscore)",
					"default":     DefaultCorpus,
				},
				"force": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, reprocess every file regardless of change detection",
					"default":     false,
				},
				"reset": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, wipe the corpus artifacts first for a from-scratch run",
					"default":     false,
				},
				"max_files": map[string]interface{}{
					"type":        "integer",
					"description": "Cap on supported files processed this run (0 = no cap)",
					"default":     0,
					"minimum":     0,
				},
			},
			Required: []string{"root"},
		},
	}
}

// retrieveChunksTool returns the tool definition for retrieve_chunks
func retrieveChunksTool() mcp.Tool {
	return mcp.Tool{
		Name:        "retrieve_chunks",
		Description: "Retrieve the ranked chunks for a query, with lexical fallback",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query",
				},
				"corpus": map[string]interface{}{
					"type":        "string",
					"description": "Corpus name",
					"default":     DefaultCorpus,
				},
				"top_k": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of chunks to return (1-50)",
					"default":     5,
					"minimum":     1,
					"maximum":     50,
				},
			},
			Required: []string{"query"},
		},
	}
}

// askTool returns the tool definition for ask
func askTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using retrieved corpus context",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "Question to answer from corpus context",
				},
				"corpus": map[string]interface{}{
					"type":        "string",
					"description": "Corpus name",
					"default":     DefaultCorpus,
				},
				"top_k": map[string]interface{}{
					"type":        "integer",
					"description": "Number of context chunks to retrieve (1-50)",
					"default":     5,
					"minimum":     1,
					"maximum":     50,
				},
			},
			Required: []string{"question"},
		},
	}
}

// corpusStatsTool returns the tool definition for corpus_stats
func corpusStatsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "corpus_stats",
		Description: "Report per-corpus document, chunk, and failure counts",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"corpus": map[string]interface{}{
					"type":        "string",
					"description": "Corpus name; omit for stats across all corpora",
				},
			},
		},
	}
}
