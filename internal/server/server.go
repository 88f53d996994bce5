// Package server exposes the retrieval API over HTTP.
package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/mbarberony/localrag/internal/config"
	"github.com/mbarberony/localrag/internal/corpus"
	"github.com/mbarberony/localrag/internal/embedder"
	"github.com/mbarberony/localrag/internal/llm"
	"github.com/mbarberony/localrag/internal/retrieval"
	"github.com/mbarberony/localrag/internal/stats"
	"github.com/mbarberony/localrag/internal/vectorstore"
	"github.com/mbarberony/localrag/pkg/types"
)

// DefaultCorpus is used when a request omits the corpus name.
const DefaultCorpus = "default"

// previewLen bounds chunk text in debug responses.
const previewLen = 240

// Server serves retrieval and debug endpoints. Vector stores are opened
// lazily per corpus and cached for the server's lifetime.
type Server struct {
	cfg    *config.Config
	gen    llm.Generator
	logger *log.Logger

	mu     sync.Mutex
	stores map[string]*vectorstore.Store
}

// New creates a server. gen may be nil; /ask then reports an error while
// the retrieval endpoints keep working.
func New(cfg *config.Config, gen llm.Generator) *Server {
	return &Server{
		cfg:    cfg,
		gen:    gen,
		logger: log.New(os.Stderr, "", log.LstdFlags),
		stores: map[string]*vectorstore.Store{},
	}
}

// Close releases all cached vector stores.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for name, store := range s.stores {
		if err := store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.stores, name)
	}
	return firstErr
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /ask", s.handleAsk)
	mux.HandleFunc("POST /debug/retrieve", s.handleRetrieve)
	mux.HandleFunc("GET /debug/stats", s.handleStats)
	mux.HandleFunc("GET /debug/corpora", s.handleCorpora)
	return mux
}

// ListenAndServe serves on the configured address until the listener
// fails.
func (s *Server) ListenAndServe() error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Printf("http server listening on %s", s.cfg.Server.Addr)
	return srv.ListenAndServe()
}

// serviceFor builds a retrieval service for the named corpus, reusing a
// cached vector store when vector mode is on.
func (s *Server) serviceFor(name string) (*retrieval.Service, error) {
	if name == "" {
		name = DefaultCorpus
	}
	paths, err := corpus.PathsFor(s.cfg.DataDir, name)
	if err != nil {
		return nil, err
	}

	var searcher retrieval.VectorSearcher
	if s.cfg.RAG.UseVectors {
		store, err := s.storeFor(name, paths)
		if err != nil {
			return nil, err
		}
		searcher = store
	}
	return retrieval.New(s.cfg, paths, searcher, s.gen), nil
}

func (s *Server) storeFor(name string, paths corpus.Paths) (*vectorstore.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if store, ok := s.stores[name]; ok {
		return store, nil
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
	store, err := vectorstore.Open(paths.Vectors, emb, vectorstore.Options{
		BatchSize: s.cfg.Ingest.EmbedBatchSize,
		Include:   s.cfg.RAG.QueryInclude,
	})
	if err != nil {
		return nil, err
	}
	s.stores[name] = store
	return store, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type askRequest struct {
	Question string `json:"question"`
	Corpus   string `json:"corpus"`
	TopK     int    `json:"top_k"`
}

type askResponse struct {
	Answer string              `json:"answer"`
	Mode   types.RetrievalMode `json:"mode"`
	Chunks []chunkPreview      `json:"chunks"`
}

type chunkPreview struct {
	ID      string  `json:"id"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
	Preview string  `json:"preview"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("question is required"))
		return
	}

	svc, err := s.serviceFor(req.Corpus)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	answer, hits, mode, err := svc.Answer(r.Context(), req.Question, req.TopK)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, askResponse{
		Answer: answer,
		Mode:   mode,
		Chunks: previews(hits),
	})
}

type retrieveRequest struct {
	Query  string `json:"query"`
	Corpus string `json:"corpus"`
	TopK   int    `json:"top_k"`
}

type retrieveResponse struct {
	Mode    types.RetrievalMode `json:"mode"`
	Results []chunkPreview      `json:"results"`
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("query is required"))
		return
	}

	svc, err := s.serviceFor(req.Corpus)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	hits, mode, err := svc.Retrieve(r.Context(), req.Query, req.TopK)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, retrieveResponse{Mode: mode, Results: previews(hits)})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	all, err := stats.ComputeAll(r.Context(), s.cfg.DataDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"corpora": all})
}

func (s *Server) handleCorpora(w http.ResponseWriter, r *http.Request) {
	names, err := corpus.List(s.cfg.DataDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"corpora": names})
}

func previews(hits []types.RetrievedChunk) []chunkPreview {
	out := make([]chunkPreview, len(hits))
	for i, h := range hits {
		preview := h.Content
		if len(preview) > previewLen {
			preview = preview[:previewLen]
		}
		out[i] = chunkPreview{ID: h.ID, Source: h.Source, Score: h.Score, Preview: preview}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
