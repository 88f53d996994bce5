package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mbarberony/localrag/internal/retrieval"
)

func newAskCmd() *cobra.Command {
	var (
		corpusName string
		topK       int
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from corpus context",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")

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

			svc := retrieval.New(cfg, paths, searcher, newGenerator())
			answer, hits, mode, err := svc.Answer(cmd.Context(), question, topK)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, answer)
			if len(hits) > 0 {
				fmt.Fprintf(out, "\nSources (%s):\n", mode)
				for _, h := range hits {
					fmt.Fprintf(out, "  %s (score %.4f)\n", h.ID, h.Score)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&corpusName, "corpus", DefaultCorpus, "corpus name")
	cmd.Flags().IntVar(&topK, "top-k", 0, "context chunks to retrieve (0 = config default)")
	return cmd
}
