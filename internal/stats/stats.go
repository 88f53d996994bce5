// Package stats computes corpus summaries from the persisted artifacts.
package stats

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mbarberony/localrag/internal/chunkindex"
	"github.com/mbarberony/localrag/internal/corpus"
	"github.com/mbarberony/localrag/internal/manifest"
	"github.com/mbarberony/localrag/pkg/types"
)

// SourceCount pairs a source document with its chunk count.
type SourceCount struct {
	Source string `json:"source"`
	Chunks int    `json:"chunks"`
}

// CorpusStats summarizes one corpus's persisted state.
type CorpusStats struct {
	Corpus        string        `json:"corpus"`
	Documents     int           `json:"documents"`
	Chunks        int           `json:"chunks"`
	TextBytes     int           `json:"text_bytes"`
	Failures      int           `json:"failures"`
	ManifestFiles int           `json:"manifest_files"`
	TopSources    []SourceCount `json:"top_sources"`
}

// topSourcesN bounds the per-corpus source ranking.
const topSourcesN = 10

// Compute builds stats for a single corpus from its flat index,
// manifest, and failure log.
func Compute(paths corpus.Paths, name string) (*CorpusStats, error) {
	chunks, err := chunkindex.ReadAll(paths.Index)
	if err != nil {
		return nil, err
	}
	m, err := manifest.Load(paths.Manifest)
	if err != nil {
		return nil, err
	}

	st := &CorpusStats{Corpus: name, ManifestFiles: len(m)}
	perSource := map[string]int{}
	for _, c := range chunks {
		st.Chunks++
		st.TextBytes += len(c.Text)
		perSource[c.SourcePath]++
	}
	st.Documents = len(perSource)
	st.Failures = countFailures(paths.Failures)

	for source, n := range perSource {
		st.TopSources = append(st.TopSources, SourceCount{Source: source, Chunks: n})
	}
	sort.Slice(st.TopSources, func(i, j int) bool {
		if st.TopSources[i].Chunks != st.TopSources[j].Chunks {
			return st.TopSources[i].Chunks > st.TopSources[j].Chunks
		}
		return st.TopSources[i].Source < st.TopSources[j].Source
	})
	if len(st.TopSources) > topSourcesN {
		st.TopSources = st.TopSources[:topSourcesN]
	}
	return st, nil
}

// ComputeAll builds stats for every corpus under dataDir, scanning the
// corpora concurrently. Results are sorted by corpus name.
func ComputeAll(ctx context.Context, dataDir string) ([]*CorpusStats, error) {
	names, err := corpus.List(dataDir)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	out := make([]*CorpusStats, 0, len(names))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, name := range names {
		name := name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			paths, err := corpus.PathsFor(dataDir, name)
			if err != nil {
				return err
			}
			st, err := Compute(paths, name)
			if err != nil {
				return err
			}
			mu.Lock()
			out = append(out, st)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Corpus < out[j].Corpus })
	return out, nil
}

// countFailures counts well-formed lines in the failure log. A missing
// log means zero failures.
func countFailures(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer func() { _ = f.Close() }()

	n := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var failure types.Failure
		if err := json.Unmarshal(line, &failure); err != nil {
			continue
		}
		n++
	}
	return n
}
