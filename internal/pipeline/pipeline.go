package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mbarberony/localrag/internal/chunker"
	"github.com/mbarberony/localrag/internal/chunkindex"
	"github.com/mbarberony/localrag/internal/config"
	"github.com/mbarberony/localrag/internal/corpus"
	"github.com/mbarberony/localrag/internal/extract"
	"github.com/mbarberony/localrag/internal/manifest"
	"github.com/mbarberony/localrag/internal/vectorstore"
	"github.com/mbarberony/localrag/pkg/types"
)

// Options controls a single ingestion run.
type Options struct {
	// Force reprocesses every file regardless of manifest state.
	Force bool

	// Reset wipes the corpus's JSONL artifacts and vector rows before
	// discovery, producing a from-scratch run.
	Reset bool

	// MaxFiles caps how many supported files are taken per run. Zero
	// means no cap.
	MaxFiles int
}

// Observer receives progress callbacks during a run. Nil fields are
// skipped.
type Observer struct {
	OnFile       func(path, status string)
	OnEmbedBatch func(done, total int)
}

// Pipeline runs incremental ingestion for one corpus. It is not safe for
// concurrent use; one run per corpus at a time is an operational
// requirement, not an enforced one.
type Pipeline struct {
	cfg      *config.Config
	paths    corpus.Paths
	registry extract.Registry
	store    *vectorstore.Store // nil disables the vector path
	obs      Observer
	logger   *log.Logger
}

// New creates a pipeline for the corpus at paths. A nil store disables
// vector deletes and upserts; the JSONL artifacts are still maintained.
func New(cfg *config.Config, paths corpus.Paths, store *vectorstore.Store, obs Observer) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		paths:    paths,
		registry: extract.NewRegistry(),
		store:    store,
		obs:      obs,
		logger:   log.New(os.Stderr, "", log.LstdFlags),
	}
}

// Run ingests the directory tree rooted at root. Per-file failures are
// recorded and counted, never fatal; only an invalid root or a
// structural store failure aborts the run.
func (p *Pipeline) Run(ctx context.Context, root string, opts Options) (*types.IngestResult, error) {
	started := time.Now()
	result := &types.IngestResult{RunID: uuid.NewString()}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("ingest root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("ingest root %s is not a directory", root)
	}

	if opts.Reset {
		if err := corpus.Reset(p.paths, false); err != nil {
			return nil, err
		}
		if p.store != nil {
			if err := p.store.Clear(ctx); err != nil {
				return nil, err
			}
		}
		p.logger.Printf("corpus reset: %s", p.paths.Base)
	}

	m, err := manifest.Load(p.paths.Manifest)
	if err != nil {
		return nil, err
	}
	docMap := chunkindex.LoadDocMap(p.paths.DocMap)

	maxFiles := opts.MaxFiles
	if maxFiles == 0 {
		maxFiles = p.cfg.Ingest.MaxFiles
	}
	files, discovered, err := p.discover(root, maxFiles)
	if err != nil {
		return nil, err
	}
	result.FilesDiscovered = discovered
	result.FilesSupported = len(files)

	var (
		pending   []types.Chunk
		failures  []types.Failure
		newDocMap = chunkindex.DocMap{}
	)

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		skip, err := manifest.ShouldSkip(path, m, opts.Force)
		if err != nil {
			failures = append(failures, types.Failure{
				Path: path, Ext: filepath.Ext(path), Reason: statReason(err),
			})
			result.FilesFailed++
			p.notifyFile(path, "failed")
			continue
		}
		if skip {
			result.FilesSkippedUnchanged++
			p.notifyFile(path, "skipped")
			continue
		}

		docID, mtime, size, err := manifest.Stat(path)
		if err != nil {
			failures = append(failures, types.Failure{
				Path: path, Ext: filepath.Ext(path), Reason: statReason(err),
			})
			result.FilesFailed++
			p.notifyFile(path, "failed")
			continue
		}

		// Purge prior state for this document before writing anything
		// new, so stale chunks can never coexist with fresh ones.
		if prior := docMap[docID]; len(prior) > 0 || m[docID].Chunks > 0 {
			if err := chunkindex.RewriteExcluding(p.paths.Index, p.paths.TmpIndex, docID); err != nil {
				return nil, err
			}
			if p.store != nil && len(prior) > 0 {
				deleted, err := p.store.Delete(ctx, prior)
				if err != nil {
					return nil, fmt.Errorf("delete stale vectors for %s: %w", docID, err)
				}
				result.VectorDeletes += deleted
			}
		}

		ext, res := p.extractFile(path)
		if !res.OK {
			failures = append(failures, types.Failure{Path: docID, Ext: ext, Reason: res.Reason})
			result.FilesFailed++
			p.notifyFile(path, "failed")
			continue
		}
		if res.Text == "" {
			// Extraction worked but the document holds no text. Record
			// the manifest entry so the file is not re-extracted every
			// run, and surface it in the failure log.
			failures = append(failures, types.Failure{Path: docID, Ext: ext, Reason: "empty"})
			if err := manifest.Record(p.paths.Manifest, manifest.Entry{
				Path: docID, MTime: mtime, Size: size,
			}); err != nil {
				return nil, err
			}
			result.FilesFailed++
			newDocMap[docID] = []string{}
			p.notifyFile(path, "empty")
			continue
		}

		slices, err := chunker.Chunk(res.Text, p.cfg.Chunking.Size, p.cfg.Chunking.Overlap)
		if err != nil {
			return nil, err
		}

		ids := make([]string, len(slices))
		for i, text := range slices {
			c := types.Chunk{
				ChunkID:    types.ChunkID(docID, i),
				DocID:      docID,
				SourcePath: docID,
				Text:       text,
			}
			pending = append(pending, c)
			ids[i] = c.ChunkID
		}
		newDocMap[docID] = ids

		if err := manifest.Record(p.paths.Manifest, manifest.Entry{
			Path:           docID,
			MTime:          mtime,
			Size:           size,
			ExtractedChars: len(res.Text),
			Chunks:         len(slices),
		}); err != nil {
			return nil, err
		}

		result.FilesProcessed++
		result.ChunksWritten += len(slices)
		p.notifyFile(path, "processed")
	}

	// Persist phase: flush buffered records before any embedding work so
	// the flat index is durable even if the vector backend is down.
	if err := chunkindex.Append(p.paths.Index, pending); err != nil {
		return nil, err
	}
	if err := appendFailures(p.paths.Failures, failures); err != nil {
		return nil, err
	}
	for docID, ids := range newDocMap {
		docMap[docID] = ids
	}
	if err := chunkindex.SaveDocMap(p.paths.DocMap, docMap); err != nil {
		return nil, err
	}

	if p.store != nil && len(pending) > 0 {
		upserts, err := p.store.Upsert(ctx, pending, p.obs.OnEmbedBatch)
		if err != nil {
			return nil, fmt.Errorf("vector upsert: %w", err)
		}
		result.VectorUpserts = upserts
	}

	result.Duration = time.Since(started)
	p.logger.Printf("ingest run %s: %d processed, %d skipped, %d failed, %d chunks",
		result.RunID, result.FilesProcessed, result.FilesSkippedUnchanged,
		result.FilesFailed, result.ChunksWritten)
	return result, nil
}

// discover walks root and returns the supported files in walk order,
// along with the total count of regular files seen.
func (p *Pipeline) discover(root string, maxFiles int) ([]string, int, error) {
	var supported []string
	discovered := 0

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		discovered++
		name := d.Name()
		if extract.ShouldSkipFilename(name) {
			return nil
		}
		if p.excluded(path, name) {
			return nil
		}
		if !p.registry.Supported(path) {
			return nil
		}
		if maxFiles > 0 && len(supported) >= maxFiles {
			return nil
		}
		supported = append(supported, path)
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("discover files: %w", err)
	}
	return supported, discovered, nil
}

func (p *Pipeline) excluded(path, name string) bool {
	for _, pattern := range p.cfg.Ingest.ExcludePatterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, path); ok {
			return true
		}
	}
	return false
}

func (p *Pipeline) extractFile(path string) (string, types.ExtractResult) {
	ext := strings.ToLower(filepath.Ext(path))
	e, ok := p.registry.For(path)
	if !ok {
		return ext, types.ExtractResult{OK: false, Reason: "unsupported_ext"}
	}
	return ext, e.Extract(path)
}

// statReason labels a stat failure for the failures log.
func statReason(err error) string {
	switch {
	case os.IsNotExist(err):
		return "stat_error:not_found"
	case os.IsPermission(err):
		return "stat_error:permission"
	default:
		return "stat_error:other"
	}
}

func (p *Pipeline) notifyFile(path, status string) {
	if p.obs.OnFile != nil {
		p.obs.OnFile(path, status)
	}
}

func appendFailures(path string, failures []types.Failure) error {
	if len(failures) == 0 {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open failures log: %w", err)
	}
	defer func() { _ = f.Close() }()

	for _, failure := range failures {
		data, err := json.Marshal(failure)
		if err != nil {
			return fmt.Errorf("marshal failure: %w", err)
		}
		if _, err := f.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("append failure: %w", err)
		}
	}
	return nil
}
