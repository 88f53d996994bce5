// Package embedder generates vector embeddings for document chunks.
//
// Two providers are supported: an Ollama-backed provider for real
// semantic vectors and a local provider that derives deterministic
// vectors from content hashes for offline use and tests.
//
// # Basic Usage
//
//	emb, err := embedder.New(embedder.Config{
//	    Provider: "ollama",
//	    BaseURL:  "http://localhost:11434",
//	    Model:    "nomic-embed-text",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emb.Close()
//
//	result, err := emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{
//	    Text: chunk.Text,
//	})
//
// # Batching
//
// GenerateBatch returns exactly one embedding per input text, in input
// order. Ollama's embeddings endpoint accepts a single prompt per call,
// so the batch is issued sequentially; the batching contract still gives
// the ingestion pipeline bounded, observable units of work.
//
// # Caching
//
// An optional LRU cache keyed by the SHA-256 of the text avoids
// re-embedding unchanged chunks across documents and runs within one
// process.
//
// # Error Handling
//
// Backend calls retry with exponential backoff; after the retry budget
// is exhausted the error wraps ErrProviderFailed. Context cancellation
// cuts retries short.
package embedder
