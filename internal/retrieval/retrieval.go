package retrieval

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/mbarberony/localrag/internal/chunkindex"
	"github.com/mbarberony/localrag/internal/config"
	"github.com/mbarberony/localrag/internal/corpus"
	"github.com/mbarberony/localrag/internal/llm"
	"github.com/mbarberony/localrag/pkg/types"
)

// VectorSearcher is the slice of the vector store retrieval needs.
type VectorSearcher interface {
	Query(ctx context.Context, query string, topK int) ([]types.RetrievedChunk, error)
}

// Service answers retrieval and question-answering requests for one
// corpus. It is safe for concurrent use; all its state is read-only.
type Service struct {
	cfg   *config.Config
	paths corpus.Paths
	store VectorSearcher // nil disables semantic retrieval
	gen   llm.Generator  // nil disables Answer
}

// New creates a retrieval service.
func New(cfg *config.Config, paths corpus.Paths, store VectorSearcher, gen llm.Generator) *Service {
	return &Service{cfg: cfg, paths: paths, store: store, gen: gen}
}

// Retrieve returns the topK ranked chunks for the query and the mode
// that produced them.
//
// Semantic retrieval runs when vector mode is enabled and a store is
// available; hits beyond the configured maximum distance are dropped.
// Whenever the semantic path is disabled or yields zero hits after
// filtering, the lexical fallback scans the flat index, so retrieval
// never returns empty merely because the vector index is sparse or
// over-filtered. Scores are mode-specific: distance (lower is better)
// for semantic, distinct-token-overlap count (higher is better) for
// lexical.
func (s *Service) Retrieve(ctx context.Context, query string, topK int) ([]types.RetrievedChunk, types.RetrievalMode, error) {
	if topK <= 0 {
		topK = s.cfg.RAG.TopK
	}

	if s.cfg.RAG.UseVectors && s.store != nil {
		hits, err := s.store.Query(ctx, query, topK)
		if err != nil {
			return nil, "", fmt.Errorf("semantic retrieval: %w", err)
		}
		if max := s.cfg.RAG.MaxDistance; max > 0 {
			filtered := hits[:0]
			for _, h := range hits {
				if h.Score <= max {
					filtered = append(filtered, h)
				}
			}
			hits = filtered
		}
		if len(hits) > 0 {
			return hits, types.ModeSemantic, nil
		}
	}

	hits, err := s.lexical(query, topK)
	if err != nil {
		return nil, "", err
	}
	return hits, types.ModeLexical, nil
}

var tokenRe = regexp.MustCompile(`[a-z0-9]+`)

// tokenize lowercases the query and keeps distinct alphanumeric tokens
// of length >= 3.
func tokenize(query string) []string {
	seen := map[string]bool{}
	var tokens []string
	for _, tok := range tokenRe.FindAllString(strings.ToLower(query), -1) {
		if len(tok) < 3 || seen[tok] {
			continue
		}
		seen[tok] = true
		tokens = append(tokens, tok)
	}
	return tokens
}

// lexical scores every chunk in the flat index by the count of distinct
// query tokens it contains, keeps positive scores, and returns the topK
// sorted by score descending with chunk id as the tiebreaker.
func (s *Service) lexical(query string, topK int) ([]types.RetrievedChunk, error) {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	chunks, err := chunkindex.ReadAll(s.paths.Index)
	if err != nil {
		return nil, fmt.Errorf("lexical retrieval: %w", err)
	}

	var hits []types.RetrievedChunk
	for _, c := range chunks {
		text := strings.ToLower(c.Text)
		score := 0
		for _, tok := range tokens {
			if strings.Contains(text, tok) {
				score++
			}
		}
		if score == 0 {
			continue
		}
		hits = append(hits, types.RetrievedChunk{
			ID:      c.ChunkID,
			Content: c.Text,
			Source:  c.SourcePath,
			Score:   float64(score),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

const answerSystem = "You are a concise assistant. Use the provided context. " +
	"If the context is insufficient, say you do not know."

// Answer retrieves context for the question and asks the generator for
// an answer grounded in it. The retrieved chunks and the mode are
// returned alongside the answer so callers can show provenance.
func (s *Service) Answer(ctx context.Context, question string, topK int) (string, []types.RetrievedChunk, types.RetrievalMode, error) {
	if s.gen == nil {
		return "", nil, "", fmt.Errorf("no generation backend configured")
	}

	hits, mode, err := s.Retrieve(ctx, question, topK)
	if err != nil {
		return "", nil, "", err
	}

	contextBlock := "None"
	if len(hits) > 0 {
		parts := make([]string, len(hits))
		for i, h := range hits {
			parts[i] = fmt.Sprintf("[%s] %s", h.Source, h.Content)
		}
		contextBlock = strings.Join(parts, "\n\n")
	}

	prompt := fmt.Sprintf("Question:\n%s\n\nContext:\n%s\n\nAnswer:", question, contextBlock)
	answer, err := s.gen.Generate(ctx, s.cfg.RAG.Model, prompt, answerSystem)
	if err != nil {
		return "", nil, "", err
	}
	return answer, hits, mode, nil
}
