package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbarberony/localrag/internal/chunkindex"
	"github.com/mbarberony/localrag/internal/config"
	"github.com/mbarberony/localrag/internal/corpus"
	"github.com/mbarberony/localrag/internal/embedder"
	"github.com/mbarberony/localrag/internal/vectorstore"
	"github.com/mbarberony/localrag/pkg/types"
)

type harness struct {
	cfg   *config.Config
	paths corpus.Paths
	store *vectorstore.Store
	root  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	dataDir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = dataDir
	cfg.Chunking.Size = 50
	cfg.Chunking.Overlap = 10
	cfg.RAG.UseVectors = true

	paths, err := corpus.PathsFor(dataDir, "test")
	require.NoError(t, err)

	store, err := vectorstore.Open(paths.Vectors, embedder.NewLocalProvider(nil), vectorstore.Options{BatchSize: 4})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return &harness{cfg: cfg, paths: paths, store: store, root: t.TempDir()}
}

func (h *harness) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(h.root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (h *harness) run(t *testing.T, opts Options) *types.IngestResult {
	t.Helper()
	p := New(h.cfg, h.paths, h.store, Observer{})
	res, err := p.Run(context.Background(), h.root, opts)
	require.NoError(t, err)
	return res
}

func TestRun_BasicIngest(t *testing.T) {
	h := newHarness(t)
	h.write(t, "a.txt", "short document")
	h.write(t, "sub/b.md", strings.Repeat("longer document text ", 10))
	h.write(t, "ignored.go", "package main")

	res := h.run(t, Options{})

	assert.Equal(t, 3, res.FilesDiscovered)
	assert.Equal(t, 2, res.FilesSupported)
	assert.Equal(t, 2, res.FilesProcessed)
	assert.Zero(t, res.FilesFailed)
	assert.Greater(t, res.ChunksWritten, 2)
	assert.Equal(t, res.ChunksWritten, res.VectorUpserts)

	chunks, err := chunkindex.ReadAll(h.paths.Index)
	require.NoError(t, err)
	assert.Len(t, chunks, res.ChunksWritten)

	count, err := h.store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, res.ChunksWritten, count)
}

func TestRun_Idempotent(t *testing.T) {
	h := newHarness(t)
	h.write(t, "a.txt", "stable content")
	h.write(t, "b.txt", "more stable content")

	first := h.run(t, Options{})
	assert.Equal(t, 2, first.FilesProcessed)

	second := h.run(t, Options{})
	assert.Equal(t, 2, second.FilesSkippedUnchanged)
	assert.Zero(t, second.FilesProcessed)
	assert.Zero(t, second.ChunksWritten)

	// Index is unchanged.
	chunks, err := chunkindex.ReadAll(h.paths.Index)
	require.NoError(t, err)
	assert.Len(t, chunks, first.ChunksWritten)
}

func TestRun_Force(t *testing.T) {
	h := newHarness(t)
	h.write(t, "a.txt", "content")

	h.run(t, Options{})
	res := h.run(t, Options{Force: true})
	assert.Equal(t, 1, res.FilesProcessed)
	assert.Zero(t, res.FilesSkippedUnchanged)

	// Reprocessing must not duplicate chunks.
	chunks, err := chunkindex.ReadAll(h.paths.Index)
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
}

func TestRun_StaleChunksEliminated(t *testing.T) {
	h := newHarness(t)
	path := h.write(t, "doc.txt", strings.Repeat("original text that spans several windows ", 5))

	first := h.run(t, Options{})
	require.Greater(t, first.ChunksWritten, 1)

	// Shrink the document so it produces a single chunk.
	h.write(t, "doc.txt", "tiny now")
	bumpMTime(t, path)

	second := h.run(t, Options{})
	assert.Equal(t, 1, second.FilesProcessed)
	assert.Equal(t, 1, second.ChunksWritten)
	assert.Equal(t, first.ChunksWritten, second.VectorDeletes)

	chunks, err := chunkindex.ReadAll(h.paths.Index)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "tiny now", chunks[0].Text)

	count, err := h.store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	m := chunkindex.LoadDocMap(h.paths.DocMap)
	abs, _ := filepath.Abs(path)
	assert.Len(t, m[abs], 1)
}

func TestRun_EmptyFileRecordedOnce(t *testing.T) {
	h := newHarness(t)
	h.write(t, "blank.txt", "   \n\t  ")

	first := h.run(t, Options{})
	assert.Equal(t, 1, first.FilesFailed)
	assert.Zero(t, first.ChunksWritten)

	// The manifest entry keeps the file from being re-extracted.
	second := h.run(t, Options{})
	assert.Equal(t, 1, second.FilesSkippedUnchanged)
	assert.Zero(t, second.FilesFailed)

	data, err := os.ReadFile(h.paths.Failures)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"empty"`)
}

func TestRun_UnavailableFormatFails(t *testing.T) {
	h := newHarness(t)
	h.write(t, "slides.pptx", "binary-ish")

	first := h.run(t, Options{})
	assert.Equal(t, 1, first.FilesFailed)

	data, err := os.ReadFile(h.paths.Failures)
	require.NoError(t, err)
	assert.Contains(t, string(data), "missing_dep:pptx")

	// No manifest entry was written, so the file is retried next run.
	second := h.run(t, Options{})
	assert.Equal(t, 1, second.FilesFailed)
}

func TestRun_StatFailureRecorded(t *testing.T) {
	h := newHarness(t)
	h.write(t, "real.txt", "present content")
	// A dangling symlink survives discovery but fails the stat step.
	require.NoError(t, os.Symlink(filepath.Join(h.root, "missing.txt"), filepath.Join(h.root, "ghost.txt")))

	res := h.run(t, Options{})
	assert.Equal(t, 1, res.FilesProcessed)
	assert.Equal(t, 1, res.FilesFailed)

	data, err := os.ReadFile(h.paths.Failures)
	require.NoError(t, err)
	assert.Contains(t, string(data), "stat_error:not_found")
}

func TestRun_SkipRules(t *testing.T) {
	h := newHarness(t)
	h.write(t, "~$lock.txt", "lock file")
	h.write(t, ".DS_Store", "metadata")
	h.write(t, "real.txt", "actual content")

	res := h.run(t, Options{})
	assert.Equal(t, 3, res.FilesDiscovered)
	assert.Equal(t, 1, res.FilesSupported)
	assert.Equal(t, 1, res.FilesProcessed)
}

func TestRun_ExcludePatterns(t *testing.T) {
	h := newHarness(t)
	h.cfg.Ingest.ExcludePatterns = []string{"draft-*"}
	h.write(t, "draft-notes.txt", "work in progress")
	h.write(t, "final.txt", "done")

	res := h.run(t, Options{})
	assert.Equal(t, 1, res.FilesSupported)
	assert.Equal(t, 1, res.FilesProcessed)
}

func TestRun_MaxFiles(t *testing.T) {
	h := newHarness(t)
	h.write(t, "a.txt", "one")
	h.write(t, "b.txt", "two")
	h.write(t, "c.txt", "three")

	res := h.run(t, Options{MaxFiles: 2})
	assert.Equal(t, 2, res.FilesSupported)
	assert.Equal(t, 2, res.FilesProcessed)
}

func TestRun_Reset(t *testing.T) {
	h := newHarness(t)
	h.write(t, "a.txt", "content")

	h.run(t, Options{})
	res := h.run(t, Options{Reset: true})

	// From-scratch run: nothing skipped, everything reprocessed.
	assert.Equal(t, 1, res.FilesProcessed)
	assert.Zero(t, res.FilesSkippedUnchanged)

	chunks, err := chunkindex.ReadAll(h.paths.Index)
	require.NoError(t, err)
	assert.Len(t, chunks, 1)

	count, err := h.store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRun_InvalidRoot(t *testing.T) {
	h := newHarness(t)
	p := New(h.cfg, h.paths, h.store, Observer{})

	_, err := p.Run(context.Background(), filepath.Join(h.root, "missing"), Options{})
	assert.Error(t, err)
}

func TestRun_NilStore(t *testing.T) {
	h := newHarness(t)
	h.write(t, "a.txt", "lexical only")

	p := New(h.cfg, h.paths, nil, Observer{})
	res, err := p.Run(context.Background(), h.root, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.FilesProcessed)
	assert.Zero(t, res.VectorUpserts)

	chunks, err := chunkindex.ReadAll(h.paths.Index)
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
}

func TestRun_ObserverCallbacks(t *testing.T) {
	h := newHarness(t)
	h.write(t, "a.txt", "content")

	var statuses []string
	var batches int
	p := New(h.cfg, h.paths, h.store, Observer{
		OnFile:       func(path, status string) { statuses = append(statuses, status) },
		OnEmbedBatch: func(done, total int) { batches++ },
	})
	_, err := p.Run(context.Background(), h.root, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"processed"}, statuses)
	assert.Equal(t, 1, batches)
}

// bumpMTime nudges a file's mtime forward so change detection fires even
// on filesystems with coarse timestamp resolution.
func bumpMTime(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(path, info.ModTime().Add(2e9), info.ModTime().Add(2e9)))
}
