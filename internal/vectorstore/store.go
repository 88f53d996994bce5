package vectorstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mbarberony/localrag/internal/embedder"
	"github.com/mbarberony/localrag/pkg/types"
)

// Common errors
var (
	ErrInvalidChunk   = errors.New("invalid chunk")
	ErrEmbeddingShape = errors.New("embedding batch shape mismatch")
	ErrStoreClosed    = errors.New("vector store is closed")
)

// DBFileName is the store's file inside its directory.
const DBFileName = "vectors.db"

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	chunk_id    TEXT PRIMARY KEY,
	doc_id      TEXT NOT NULL,
	source_path TEXT NOT NULL,
	text        TEXT NOT NULL,
	vector      BLOB NOT NULL,
	dimension   INTEGER NOT NULL,
	model       TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_doc_id ON chunks(doc_id);
`

// Options configures a Store.
type Options struct {
	// BatchSize bounds how many chunks are embedded per upsert batch.
	BatchSize int

	// Include lists the hit fields Query populates: "documents",
	// "metadatas", "distances". An "ids" entry is stripped; chunk ids are
	// always returned.
	Include []string
}

// Store persists chunk vectors in a per-corpus SQLite database and
// serves nearest-neighbor queries with a Go-side cosine scan.
type Store struct {
	db      *sql.DB
	emb     embedder.Embedder
	batch   int
	include map[string]bool
}

// Open opens (or creates) the vector store under dir.
func Open(dir string, emb embedder.Embedder, opts Options) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create vector dir: %w", err)
	}

	dbPath := filepath.Join(dir, DBFileName)
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("open vector db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	batch := opts.BatchSize
	if batch <= 0 {
		batch = 32
	}

	include := make(map[string]bool, len(opts.Include))
	for _, f := range opts.Include {
		if f == "ids" {
			continue // ids are returned out-of-band, never a valid include
		}
		include[f] = true
	}
	if len(include) == 0 {
		include = map[string]bool{"documents": true, "metadatas": true, "distances": true}
	}

	return &Store{db: db, emb: emb, batch: batch, include: include}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Upsert embeds the chunks in batches and writes them, replacing any
// prior row with the same chunk id. onBatch, when non-nil, is called
// after each batch with cumulative progress. Returns the number of
// chunks written.
//
// An embedding response whose length differs from the batch aborts the
// whole upsert: continuing would pair vectors with the wrong chunks.
func (s *Store) Upsert(ctx context.Context, chunks []types.Chunk, onBatch func(done, total int)) (int, error) {
	if s.db == nil {
		return 0, ErrStoreClosed
	}
	for i := range chunks {
		if err := chunks[i].Validate(); err != nil {
			return 0, fmt.Errorf("%w: index %d: %v", ErrInvalidChunk, i, err)
		}
	}

	total := len(chunks)
	written := 0
	for start := 0; start < total; start += s.batch {
		end := start + s.batch
		if end > total {
			end = total
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		resp, err := s.emb.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: texts})
		if err != nil {
			return written, fmt.Errorf("embed batch: %w", err)
		}
		if len(resp.Embeddings) != len(batch) {
			return written, fmt.Errorf("%w: got %d embeddings for %d texts",
				ErrEmbeddingShape, len(resp.Embeddings), len(batch))
		}

		if err := s.writeBatch(ctx, batch, resp); err != nil {
			return written, err
		}
		written += len(batch)
		if onBatch != nil {
			onBatch(written, total)
		}
	}
	return written, nil
}

func (s *Store) writeBatch(ctx context.Context, batch []types.Chunk, resp *embedder.BatchEmbeddingResponse) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO chunks
			(chunk_id, doc_id, source_path, text, vector, dimension, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC()
	for i, c := range batch {
		emb := resp.Embeddings[i]
		_, err := stmt.ExecContext(ctx,
			c.ChunkID, c.DocID, c.SourcePath, c.Text,
			serializeVector(emb.Vector), emb.Dimension, emb.Model, now)
		if err != nil {
			return fmt.Errorf("upsert chunk %s: %w", c.ChunkID, err)
		}
	}
	return tx.Commit()
}

// Delete removes the rows for the given chunk ids. Missing ids are
// ignored; deleting is idempotent. Returns the number of rows removed.
func (s *Store) Delete(ctx context.Context, ids []string) (int, error) {
	if s.db == nil {
		return 0, ErrStoreClosed
	}
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, "DELETE FROM chunks WHERE chunk_id = ?")
	if err != nil {
		return 0, fmt.Errorf("prepare delete: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	deleted := 0
	for _, id := range ids {
		res, err := stmt.ExecContext(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("delete chunk %s: %w", id, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			deleted += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return deleted, nil
}

// Query embeds the query text and returns the topK nearest chunks by
// cosine distance (1 - similarity, lower is better), ties broken by
// chunk id. The configured include set controls which hit fields beyond
// the id are populated.
func (s *Store) Query(ctx context.Context, query string, topK int) ([]types.RetrievedChunk, error) {
	if s.db == nil {
		return nil, ErrStoreClosed
	}
	if topK <= 0 {
		return nil, nil
	}

	qemb, err := s.emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT chunk_id, source_path, text, vector FROM chunks")
	if err != nil {
		return nil, fmt.Errorf("scan vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	type candidate struct {
		id       string
		source   string
		text     string
		distance float64
	}
	var candidates []candidate

	for rows.Next() {
		var c candidate
		var blob []byte
		if err := rows.Scan(&c.id, &c.source, &c.text, &blob); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		vector := deserializeVector(blob)
		if len(vector) != len(qemb.Vector) {
			continue // stale row from a different embedding model
		}
		c.distance = 1 - cosineSimilarity(qemb.Vector, vector)
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].id < candidates[j].id
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	out := make([]types.RetrievedChunk, len(candidates))
	for i, c := range candidates {
		rc := types.RetrievedChunk{ID: c.id}
		if s.include["documents"] {
			rc.Content = c.text
		}
		if s.include["metadatas"] {
			rc.Source = c.source
		}
		if s.include["distances"] {
			rc.Score = c.distance
		}
		out[i] = rc
	}
	return out, nil
}

// Clear removes every stored chunk. Used by corpus resets so the store
// can be wiped without closing and deleting the database file.
func (s *Store) Clear(ctx context.Context) error {
	if s.db == nil {
		return ErrStoreClosed
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}
	return nil
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	if s.db == nil {
		return 0, ErrStoreClosed
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}
