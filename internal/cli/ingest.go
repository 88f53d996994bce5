package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mbarberony/localrag/internal/pipeline"
)

func newIngestCmd() *cobra.Command {
	var (
		corpusName string
		force      bool
		reset      bool
		maxFiles   int
	)

	cmd := &cobra.Command{
		Use:   "ingest <root>",
		Short: "Ingest a directory of documents into a corpus",
		Long: `Walks the given directory, extracts text from supported files, and
writes chunks to the corpus index. Unchanged files are skipped unless
--force is given. --reset wipes the corpus first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := corpusPaths(corpusName)
			if err != nil {
				return err
			}

			store, err := openStore(paths)
			if err != nil {
				return err
			}
			if store != nil {
				defer func() { _ = store.Close() }()
			}

			obs := pipeline.Observer{
				OnFile: func(path, status string) {
					fmt.Fprintf(cmd.OutOrStdout(), "  %-10s %s\n", status, path)
				},
				OnEmbedBatch: func(done, total int) {
					fmt.Fprintf(cmd.OutOrStdout(), "  embedded %d/%d chunks\n", done, total)
				},
			}

			p := pipeline.New(cfg, paths, store, obs)
			result, err := p.Run(cmd.Context(), args[0], pipeline.Options{
				Force:    force,
				Reset:    reset,
				MaxFiles: maxFiles,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run %s (%s)\n", result.RunID, result.Duration.Round(time.Millisecond))
			fmt.Fprintf(out, "  discovered: %d  supported: %d  processed: %d\n",
				result.FilesDiscovered, result.FilesSupported, result.FilesProcessed)
			fmt.Fprintf(out, "  unchanged:  %d  failed: %d\n",
				result.FilesSkippedUnchanged, result.FilesFailed)
			fmt.Fprintf(out, "  chunks written: %d  vector upserts: %d  vector deletes: %d\n",
				result.ChunksWritten, result.VectorUpserts, result.VectorDeletes)
			return nil
		},
	}

	cmd.Flags().StringVar(&corpusName, "corpus", DefaultCorpus, "corpus name")
	cmd.Flags().BoolVar(&force, "force", false, "reprocess every file regardless of change detection")
	cmd.Flags().BoolVar(&reset, "reset", false, "wipe the corpus before ingesting")
	cmd.Flags().IntVar(&maxFiles, "max-files", 0, "cap on supported files processed (0 = no cap)")
	return cmd
}
