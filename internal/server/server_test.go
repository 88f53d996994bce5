package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbarberony/localrag/internal/chunkindex"
	"github.com/mbarberony/localrag/internal/config"
	"github.com/mbarberony/localrag/internal/corpus"
	"github.com/mbarberony/localrag/internal/llm"
	"github.com/mbarberony/localrag/pkg/types"
)

type stubGen struct {
	out string
	err error
}

func (s *stubGen) Generate(ctx context.Context, model, prompt, system string) (string, error) {
	return s.out, s.err
}

func newTestServer(t *testing.T, gen llm.Generator) (*Server, *config.Config) {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.RAG.UseVectors = false
	cfg.RAG.EmbedProvider = "local"

	srv := New(cfg, gen)
	t.Cleanup(func() { _ = srv.Close() })
	return srv, cfg
}

func seed(t *testing.T, cfg *config.Config, name string, chunks []types.Chunk) {
	t.Helper()
	paths, err := corpus.PathsFor(cfg.DataDir, name)
	require.NoError(t, err)
	require.NoError(t, chunkindex.Append(paths.Index, chunks))
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := do(t, srv.Handler(), "GET", "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRetrieve(t *testing.T) {
	srv, cfg := newTestServer(t, nil)
	seed(t, cfg, "default", []types.Chunk{
		{ChunkID: "/a::chunk-0", DocID: "/a", SourcePath: "/a", Text: "kubernetes deployment guide"},
	})

	rec := do(t, srv.Handler(), "POST", "/debug/retrieve", `{"query":"kubernetes"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Mode    string `json:"mode"`
		Results []struct {
			ID      string `json:"id"`
			Preview string `json:"preview"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "lexical", resp.Mode)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "/a::chunk-0", resp.Results[0].ID)
}

func TestRetrieve_PreviewTruncated(t *testing.T) {
	srv, cfg := newTestServer(t, nil)
	long := strings.Repeat("verylongword ", 40) // well over the preview cap
	seed(t, cfg, "default", []types.Chunk{
		{ChunkID: "/a::chunk-0", DocID: "/a", SourcePath: "/a", Text: long},
	})

	rec := do(t, srv.Handler(), "POST", "/debug/retrieve", `{"query":"verylongword"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Results []struct {
			Preview string `json:"preview"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Len(t, resp.Results[0].Preview, previewLen)
}

func TestRetrieve_BadRequest(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := do(t, srv.Handler(), "POST", "/debug/retrieve", `{"query":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv.Handler(), "POST", "/debug/retrieve", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAsk(t *testing.T) {
	srv, cfg := newTestServer(t, &stubGen{out: "Use kubectl apply."})
	seed(t, cfg, "default", []types.Chunk{
		{ChunkID: "/a::chunk-0", DocID: "/a", SourcePath: "/a", Text: "kubectl apply deploys manifests"},
	})

	rec := do(t, srv.Handler(), "POST", "/ask", `{"question":"how to deploy with kubectl?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp askResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Use kubectl apply.", resp.Answer)
	assert.Equal(t, types.ModeLexical, resp.Mode)
	require.Len(t, resp.Chunks, 1)
}

func TestAsk_MissingQuestion(t *testing.T) {
	srv, _ := newTestServer(t, &stubGen{out: "x"})
	rec := do(t, srv.Handler(), "POST", "/ask", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAsk_NoGenerator(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := do(t, srv.Handler(), "POST", "/ask", `{"question":"anything"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestStats(t *testing.T) {
	srv, cfg := newTestServer(t, nil)
	seed(t, cfg, "docs", []types.Chunk{
		{ChunkID: "/a::chunk-0", DocID: "/a", SourcePath: "/a", Text: "hello"},
	})

	rec := do(t, srv.Handler(), "GET", "/debug/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Corpora []struct {
			Corpus string `json:"corpus"`
			Chunks int    `json:"chunks"`
		} `json:"corpora"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Corpora, 1)
	assert.Equal(t, "docs", resp.Corpora[0].Corpus)
	assert.Equal(t, 1, resp.Corpora[0].Chunks)
}

func TestCorpora(t *testing.T) {
	srv, cfg := newTestServer(t, nil)
	seed(t, cfg, "alpha", nil)
	seed(t, cfg, "beta", nil)

	rec := do(t, srv.Handler(), "GET", "/debug/corpora", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"corpora":["alpha","beta"]}`, rec.Body.String())
}

func TestCorpora_Empty(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := do(t, srv.Handler(), "GET", "/debug/corpora", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"corpora":[]}`, rec.Body.String())
}
