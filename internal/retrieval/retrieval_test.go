package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbarberony/localrag/internal/chunkindex"
	"github.com/mbarberony/localrag/internal/config"
	"github.com/mbarberony/localrag/internal/corpus"
	"github.com/mbarberony/localrag/pkg/types"
)

type fakeStore struct {
	hits []types.RetrievedChunk
	err  error
}

func (f *fakeStore) Query(ctx context.Context, query string, topK int) ([]types.RetrievedChunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.hits) > topK {
		return f.hits[:topK], nil
	}
	return f.hits, nil
}

type fakeGen struct {
	prompt string
	system string
	out    string
}

func (f *fakeGen) Generate(ctx context.Context, model, prompt, system string) (string, error) {
	f.prompt, f.system = prompt, system
	return f.out, nil
}

func setup(t *testing.T, chunks []types.Chunk) (*config.Config, corpus.Paths) {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	paths, err := corpus.PathsFor(cfg.DataDir, "test")
	require.NoError(t, err)
	require.NoError(t, chunkindex.Append(paths.Index, chunks))
	return cfg, paths
}

func indexedChunk(doc string, i int, text string) types.Chunk {
	return types.Chunk{
		ChunkID:    types.ChunkID(doc, i),
		DocID:      doc,
		SourcePath: doc,
		Text:       text,
	}
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"bridgewater", "fund", "2023"}, tokenize("Bridgewater's fund, 2023!"))
	assert.Empty(t, tokenize("a an to"))
	assert.Equal(t, []string{"dup"}, tokenize("dup DUP dup"))
}

func TestRetrieve_SemanticPath(t *testing.T) {
	cfg, paths := setup(t, nil)
	cfg.RAG.UseVectors = true

	store := &fakeStore{hits: []types.RetrievedChunk{
		{ID: "a::chunk-0", Content: "hit", Score: 0.1},
	}}
	svc := New(cfg, paths, store, nil)

	hits, mode, err := svc.Retrieve(context.Background(), "query", 5)
	require.NoError(t, err)
	assert.Equal(t, types.ModeSemantic, mode)
	require.Len(t, hits, 1)
	assert.Equal(t, "a::chunk-0", hits[0].ID)
}

func TestRetrieve_DistanceFilter(t *testing.T) {
	cfg, paths := setup(t, nil)
	cfg.RAG.UseVectors = true
	cfg.RAG.MaxDistance = 0.5

	store := &fakeStore{hits: []types.RetrievedChunk{
		{ID: "near", Score: 0.2},
		{ID: "far", Score: 0.9},
	}}
	svc := New(cfg, paths, store, nil)

	hits, mode, err := svc.Retrieve(context.Background(), "nomatch", 5)
	require.NoError(t, err)
	assert.Equal(t, types.ModeSemantic, mode)
	require.Len(t, hits, 1)
	assert.Equal(t, "near", hits[0].ID)
}

func TestRetrieve_FallbackWhenOverFiltered(t *testing.T) {
	// One indexed chunk containing "Bridgewater"; the vector backend
	// returns only a hit at distance 999 against a threshold of 0.01.
	// The lexical fallback must still surface the indexed chunk.
	cfg, paths := setup(t, []types.Chunk{
		indexedChunk("/fund.txt", 0, "Bridgewater is the largest hedge fund."),
	})
	cfg.RAG.UseVectors = true
	cfg.RAG.MaxDistance = 0.01

	store := &fakeStore{hits: []types.RetrievedChunk{
		{ID: "irrelevant", Score: 999},
	}}
	svc := New(cfg, paths, store, nil)

	hits, mode, err := svc.Retrieve(context.Background(), "Bridgewater", 5)
	require.NoError(t, err)
	assert.Equal(t, types.ModeLexical, mode)
	require.Len(t, hits, 1)
	assert.Equal(t, "/fund.txt::chunk-0", hits[0].ID)
	assert.Equal(t, 1.0, hits[0].Score)
}

func TestRetrieve_LexicalOnly(t *testing.T) {
	cfg, paths := setup(t, []types.Chunk{
		indexedChunk("/a.txt", 0, "golang concurrency patterns with channels"),
		indexedChunk("/b.txt", 0, "python asyncio event loops"),
		indexedChunk("/c.txt", 0, "golang channels and goroutines in depth"),
	})
	cfg.RAG.UseVectors = false

	svc := New(cfg, paths, nil, nil)
	hits, mode, err := svc.Retrieve(context.Background(), "golang channels", 5)
	require.NoError(t, err)
	assert.Equal(t, types.ModeLexical, mode)
	require.Len(t, hits, 2)
	// Both score 2; ties break by chunk id.
	assert.Equal(t, "/a.txt::chunk-0", hits[0].ID)
	assert.Equal(t, "/c.txt::chunk-0", hits[1].ID)
	assert.Equal(t, 2.0, hits[0].Score)
}

func TestRetrieve_LexicalTopK(t *testing.T) {
	chunks := []types.Chunk{
		indexedChunk("/a.txt", 0, "database indexes"),
		indexedChunk("/b.txt", 0, "database tuning"),
		indexedChunk("/c.txt", 0, "database backups"),
	}
	cfg, paths := setup(t, chunks)

	svc := New(cfg, paths, nil, nil)
	hits, _, err := svc.Retrieve(context.Background(), "database", 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestRetrieve_NoTokens(t *testing.T) {
	cfg, paths := setup(t, []types.Chunk{indexedChunk("/a.txt", 0, "content")})
	svc := New(cfg, paths, nil, nil)

	hits, mode, err := svc.Retrieve(context.Background(), "a to of", 5)
	require.NoError(t, err)
	assert.Equal(t, types.ModeLexical, mode)
	assert.Empty(t, hits)
}

func TestAnswer_BuildsPrompt(t *testing.T) {
	cfg, paths := setup(t, []types.Chunk{
		indexedChunk("/notes.txt", 0, "The meeting is on Thursday."),
	})
	gen := &fakeGen{out: "Thursday."}

	svc := New(cfg, paths, nil, gen)
	answer, hits, mode, err := svc.Answer(context.Background(), "When is the meeting?", 3)
	require.NoError(t, err)
	assert.Equal(t, "Thursday.", answer)
	assert.Equal(t, types.ModeLexical, mode)
	require.Len(t, hits, 1)

	assert.Contains(t, gen.prompt, "Question:\nWhen is the meeting?")
	assert.Contains(t, gen.prompt, "[/notes.txt] The meeting is on Thursday.")
	assert.Contains(t, gen.system, "concise assistant")
}

func TestAnswer_NoContext(t *testing.T) {
	cfg, paths := setup(t, nil)
	gen := &fakeGen{out: "I do not know."}

	svc := New(cfg, paths, nil, gen)
	answer, hits, _, err := svc.Answer(context.Background(), "anything relevant?", 3)
	require.NoError(t, err)
	assert.Equal(t, "I do not know.", answer)
	assert.Empty(t, hits)
	assert.Contains(t, gen.prompt, "Context:\nNone")
}

func TestAnswer_NoGenerator(t *testing.T) {
	cfg, paths := setup(t, nil)
	svc := New(cfg, paths, nil, nil)
	_, _, _, err := svc.Answer(context.Background(), "q", 3)
	assert.Error(t, err)
}
