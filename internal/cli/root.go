// Package cli wires the command-line interface.
package cli

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mbarberony/localrag/internal/config"
	"github.com/mbarberony/localrag/internal/corpus"
	"github.com/mbarberony/localrag/internal/embedder"
	"github.com/mbarberony/localrag/internal/llm"
	"github.com/mbarberony/localrag/internal/vectorstore"
)

// DefaultCorpus is used when no --corpus flag is given.
const DefaultCorpus = "default"

var (
	cfgPath string
	cfg     *config.Config
)

// NewRootCmd builds the localrag command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "localrag",
		Short: "Local RAG over your documents",
		Long: `localrag ingests directories of documents into named corpora and
answers questions over them using a local Ollama backend, with a
lexical fallback that works without any vector index.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env is optional; real environment always wins.
			_ = godotenv.Load()

			var err error
			cfg, err = config.Load(cfgPath)
			if err != nil {
				return err
			}
			return cfg.Validate()
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "localrag.yaml", "path to config file")

	root.AddCommand(newIngestCmd())
	root.AddCommand(newAskCmd())
	root.AddCommand(newSearchCmd())
	root.AddCommand(newStatsCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newMCPCmd())
	return root
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// openStore opens the vector store for a corpus when vector mode is on.
func openStore(paths corpus.Paths) (*vectorstore.Store, error) {
	if !cfg.RAG.UseVectors {
		return nil, nil
	}
	emb, err := embedder.New(embedder.Config{
		Provider:  cfg.RAG.EmbedProvider,
		BaseURL:   cfg.Ollama.BaseURL,
		Model:     cfg.RAG.EmbedModel,
		Timeout:   time.Duration(cfg.Ollama.TimeoutSecs) * time.Second,
		CacheSize: 4096,
	})
	if err != nil {
		return nil, err
	}
	return vectorstore.Open(paths.Vectors, emb, vectorstore.Options{
		BatchSize: cfg.Ingest.EmbedBatchSize,
		Include:   cfg.RAG.QueryInclude,
	})
}

func newGenerator() llm.Generator {
	return llm.NewOllamaClient(cfg.Ollama.BaseURL, time.Duration(cfg.Ollama.TimeoutSecs)*time.Second)
}

func corpusPaths(name string) (corpus.Paths, error) {
	paths, err := corpus.PathsFor(cfg.DataDir, name)
	if err != nil {
		return corpus.Paths{}, fmt.Errorf("corpus %q: %w", name, err)
	}
	return paths, nil
}
