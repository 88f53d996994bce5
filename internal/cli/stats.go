package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mbarberony/localrag/internal/stats"
)

func newStatsCmd() *cobra.Command {
	var (
		corpusName string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Report corpus statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var all []*stats.CorpusStats
			if corpusName != "" {
				paths, err := corpusPaths(corpusName)
				if err != nil {
					return err
				}
				st, err := stats.Compute(paths, corpusName)
				if err != nil {
					return err
				}
				all = []*stats.CorpusStats{st}
			} else {
				var err error
				all, err = stats.ComputeAll(cmd.Context(), cfg.DataDir)
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(all)
			}

			if len(all) == 0 {
				fmt.Fprintln(out, "no corpora")
				return nil
			}
			for _, st := range all {
				fmt.Fprintf(out, "%s: %d documents, %d chunks, %d text bytes, %d failures\n",
					st.Corpus, st.Documents, st.Chunks, st.TextBytes, st.Failures)
				for _, src := range st.TopSources {
					fmt.Fprintf(out, "    %4d  %s\n", src.Chunks, src.Source)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&corpusName, "corpus", "", "corpus name (empty = all corpora)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON")
	return cmd
}
