package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mbarberony/localrag/internal/retrieval"
)

func newSearchCmd() *cobra.Command {
	var (
		corpusName string
		topK       int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Retrieve ranked chunks without answer generation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			paths, err := corpusPaths(corpusName)
			if err != nil {
				return err
			}
			store, err := openStore(paths)
			if err != nil {
				return err
			}
			var searcher retrieval.VectorSearcher
			if store != nil {
				searcher = store
				defer func() { _ = store.Close() }()
			}

			svc := retrieval.New(cfg, paths, searcher, nil)
			hits, mode, err := svc.Retrieve(cmd.Context(), query, topK)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d results (%s)\n", len(hits), mode)
			for _, h := range hits {
				preview := h.Content
				if len(preview) > 120 {
					preview = preview[:120]
				}
				preview = strings.ReplaceAll(preview, "\n", " ")
				fmt.Fprintf(out, "  %.4f  %s\n          %s\n", h.Score, h.ID, preview)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&corpusName, "corpus", DefaultCorpus, "corpus name")
	cmd.Flags().IntVar(&topK, "top-k", 0, "results to return (0 = config default)")
	return cmd
}
