package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mbarberony/localrag/internal/corpus"
	"github.com/mbarberony/localrag/internal/pipeline"
	"github.com/mbarberony/localrag/internal/retrieval"
	"github.com/mbarberony/localrag/internal/stats"
	"github.com/mbarberony/localrag/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeEmptyQuery    = -32004 // Query parameter is empty
)

// handleIngestCorpus handles the ingest_corpus tool invocation
func (s *Server) handleIngestCorpus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	root, ok := args["root"].(string)
	if !ok || root == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "root parameter is required", map[string]interface{}{
			"param":  "root",
			"reason": "missing or empty",
		})
	}

	name := getStringDefault(args, "corpus", DefaultCorpus)
	paths, err := corpus.PathsFor(s.cfg.DataDir, name)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid corpus name", map[string]interface{}{
			"param": "corpus",
			"value": name,
		})
	}

	store, err := s.openStore(paths)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "open vector store", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	p := pipeline.New(s.cfg, paths, store, pipeline.Observer{})
	result, err := p.Run(ctx, root, pipeline.Options{
		Force:    getBoolDefault(args, "force", false),
		Reset:    getBoolDefault(args, "reset", false),
		MaxFiles: getIntDefault(args, "max_files", 0),
	})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "ingestion failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"run_id":                  result.RunID,
		"corpus":                  name,
		"files_discovered":        result.FilesDiscovered,
		"files_supported":         result.FilesSupported,
		"files_processed":         result.FilesProcessed,
		"files_skipped_unchanged": result.FilesSkippedUnchanged,
		"files_failed":            result.FilesFailed,
		"chunks_written":          result.ChunksWritten,
		"vector_upserts":          result.VectorUpserts,
		"vector_deletes":          result.VectorDeletes,
		"duration_ms":             result.Duration.Milliseconds(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleRetrieveChunks handles the retrieve_chunks tool invocation
func (s *Server) handleRetrieveChunks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	name := getStringDefault(args, "corpus", DefaultCorpus)
	topK := getIntDefault(args, "top_k", s.cfg.RAG.TopK)

	hits, mode, closeFn, err := s.retrieve(ctx, name, query, topK)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	response := map[string]interface{}{
		"mode":    string(mode),
		"results": hitSummaries(hits),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleAsk handles the ask tool invocation
func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	question, ok := args["question"].(string)
	if !ok || question == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "question parameter is required and cannot be empty", map[string]interface{}{
			"param":  "question",
			"reason": "missing or empty",
		})
	}

	name := getStringDefault(args, "corpus", DefaultCorpus)
	topK := getIntDefault(args, "top_k", s.cfg.RAG.TopK)

	svc, closeFn, err := s.serviceFor(name)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	answer, hits, mode, err := svc.Answer(ctx, question, topK)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "answer generation failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"answer":  answer,
		"mode":    string(mode),
		"sources": hitSummaries(hits),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleCorpusStats handles the corpus_stats tool invocation
func (s *Server) handleCorpusStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	name := getStringDefault(args, "corpus", "")

	if name != "" {
		paths, err := corpus.PathsFor(s.cfg.DataDir, name)
		if err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid corpus name", map[string]interface{}{
				"param": "corpus",
				"value": name,
			})
		}
		st, err := stats.Compute(paths, name)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "stats failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return mcp.NewToolResultText(formatJSONValue(st)), nil
	}

	all, err := stats.ComputeAll(ctx, s.cfg.DataDir)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "stats failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return mcp.NewToolResultText(formatJSONValue(map[string]interface{}{"corpora": all})), nil
}

// retrieve builds a per-call service, runs retrieval, and hands back the
// store close func.
func (s *Server) retrieve(ctx context.Context, name, query string, topK int) ([]types.RetrievedChunk, types.RetrievalMode, func(), error) {
	svc, closeFn, err := s.serviceFor(name)
	if err != nil {
		return nil, "", nil, err
	}
	hits, mode, err := svc.Retrieve(ctx, query, topK)
	if err != nil {
		closeFn()
		return nil, "", nil, newMCPError(ErrorCodeInternalError, "retrieval failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return hits, mode, closeFn, nil
}

func (s *Server) serviceFor(name string) (*retrieval.Service, func(), error) {
	paths, err := corpus.PathsFor(s.cfg.DataDir, name)
	if err != nil {
		return nil, nil, newMCPError(ErrorCodeInvalidParams, "invalid corpus name", map[string]interface{}{
			"param": "corpus",
			"value": name,
		})
	}
	store, err := s.openStore(paths)
	if err != nil {
		return nil, nil, newMCPError(ErrorCodeInternalError, "open vector store", map[string]interface{}{
			"error": err.Error(),
		})
	}
	closeFn := func() {}
	var searcher retrieval.VectorSearcher
	if store != nil {
		searcher = store
		closeFn = func() { _ = store.Close() }
	}
	return retrieval.New(s.cfg, paths, searcher, s.gen), closeFn, nil
}

func hitSummaries(hits []types.RetrievedChunk) []map[string]interface{} {
	out := make([]map[string]interface{}, len(hits))
	for i, h := range hits {
		preview := h.Content
		if len(preview) > 240 {
			preview = preview[:240]
		}
		out[i] = map[string]interface{}{
			"id":      h.ID,
			"source":  h.Source,
			"score":   h.Score,
			"preview": preview,
		}
	}
	return out
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	return formatJSONValue(data)
}

func formatJSONValue(v interface{}) string {
	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
