package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mbarberony/localrag/internal/config"
	"github.com/mbarberony/localrag/internal/corpus"
	"github.com/mbarberony/localrag/internal/embedder"
	"github.com/mbarberony/localrag/internal/llm"
	"github.com/mbarberony/localrag/internal/vectorstore"
)

const (
	// ServerName is the MCP server name
	ServerName = "localrag"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultCorpus is used when a tool call omits the corpus name
	DefaultCorpus = "default"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp *server.MCPServer
	cfg *config.Config
	gen llm.Generator
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, gen llm.Generator) (*Server, error) {
	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp: mcpServer,
		cfg: cfg,
		gen: gen,
	}
	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(ingestCorpusTool(), s.handleIngestCorpus)
	s.mcp.AddTool(retrieveChunksTool(), s.handleRetrieveChunks)
	s.mcp.AddTool(askTool(), s.handleAsk)
	s.mcp.AddTool(corpusStatsTool(), s.handleCorpusStats)
}

// openStore opens the vector store for a corpus. Callers must close it.
// Returns nil when vector mode is disabled.
func (s *Server) openStore(paths corpus.Paths) (*vectorstore.Store, error) {
	if !s.cfg.RAG.UseVectors {
		return nil, nil
	}
	emb, err := embedder.New(embedder.Config{
		Provider:  s.cfg.RAG.EmbedProvider,
		BaseURL:   s.cfg.Ollama.BaseURL,
		Model:     s.cfg.RAG.EmbedModel,
		Timeout:   time.Duration(s.cfg.Ollama.TimeoutSecs) * time.Second,
		CacheSize: 1024,
	})
	if err != nil {
		return nil, err
	}
	return vectorstore.Open(paths.Vectors, emb, vectorstore.Options{
		BatchSize: s.cfg.Ingest.EmbedBatchSize,
		Include:   s.cfg.RAG.QueryInclude,
	})
}
