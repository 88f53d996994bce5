package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalProvider_Deterministic(t *testing.T) {
	l := NewLocalProvider(nil)
	defer func() { _ = l.Close() }()

	ctx := context.Background()
	a, err := l.GenerateEmbedding(ctx, EmbeddingRequest{Text: "hello"})
	require.NoError(t, err)
	b, err := l.GenerateEmbedding(ctx, EmbeddingRequest{Text: "hello"})
	require.NoError(t, err)

	assert.Equal(t, a.Vector, b.Vector)
	assert.Equal(t, LocalDimension, a.Dimension)
	assert.Equal(t, ProviderLocal, a.Provider)

	c, err := l.GenerateEmbedding(ctx, EmbeddingRequest{Text: "different"})
	require.NoError(t, err)
	assert.NotEqual(t, a.Vector, c.Vector)
}

func TestLocalProvider_Batch(t *testing.T) {
	l := NewLocalProvider(NewCache(100))
	ctx := context.Background()

	resp, err := l.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"one", "two", "three"}})
	require.NoError(t, err)
	require.Len(t, resp.Embeddings, 3)
	for _, emb := range resp.Embeddings {
		assert.Len(t, emb.Vector, LocalDimension)
	}
}

func TestLocalProvider_EmptyText(t *testing.T) {
	l := NewLocalProvider(nil)
	_, err := l.GenerateEmbedding(context.Background(), EmbeddingRequest{})
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestOllamaProvider_GenerateEmbedding(t *testing.T) {
	var gotModel, gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embeddings", r.URL.Path)
		var body struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotModel, gotPrompt = body.Model, body.Prompt
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embedding": []float32{0.1, 0.2, 0.3},
		})
	}))
	defer srv.Close()

	o := NewOllamaProvider(srv.URL, "nomic-embed-text", 5*time.Second, nil)
	defer func() { _ = o.Close() }()

	emb, err := o.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, emb.Vector)
	assert.Equal(t, 3, emb.Dimension)
	assert.Equal(t, "nomic-embed-text", gotModel)
	assert.Equal(t, "hello", gotPrompt)
}

func TestOllamaProvider_BatchOrderAndShape(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Prompt string `json:"prompt"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		calls++
		// Vector encodes the prompt length so order is observable.
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embedding": []float32{float32(len(body.Prompt))},
		})
	}))
	defer srv.Close()

	o := NewOllamaProvider(srv.URL, "m", 5*time.Second, nil)
	resp, err := o.GenerateBatch(context.Background(), BatchEmbeddingRequest{
		Texts: []string{"a", "bb", "ccc"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Embeddings, 3)
	assert.Equal(t, float32(1), resp.Embeddings[0].Vector[0])
	assert.Equal(t, float32(2), resp.Embeddings[1].Vector[0])
	assert.Equal(t, float32(3), resp.Embeddings[2].Vector[0])
	assert.Equal(t, 3, calls)
}

func TestOllamaProvider_CacheHit(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": []float32{1}})
	}))
	defer srv.Close()

	o := NewOllamaProvider(srv.URL, "m", 5*time.Second, NewCache(10))
	ctx := context.Background()

	_, err := o.GenerateEmbedding(ctx, EmbeddingRequest{Text: "same"})
	require.NoError(t, err)
	_, err = o.GenerateEmbedding(ctx, EmbeddingRequest{Text: "same"})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestOllamaProvider_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	o := NewOllamaProvider(srv.URL, "m", 5*time.Second, nil)
	_, err := o.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "x"})
	assert.ErrorIs(t, err, ErrProviderFailed)
}

func TestRetryWithBackoff_EventualSuccess(t *testing.T) {
	attempts := 0
	cfg := RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}

	got, err := retryWithBackoff(context.Background(), cfg, func() (int, error) {
		attempts++
		if attempts < 3 {
			return 0, assert.AnError
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
	_, err := retryWithBackoff(ctx, cfg, func() (int, error) {
		return 0, assert.AnError
	})
	assert.ErrorIs(t, err, context.Canceled)
}
