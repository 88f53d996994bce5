package cli

import (
	"github.com/spf13/cobra"

	"github.com/mbarberony/localrag/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the Model Context Protocol interface on stdio",
		Long: `Runs an MCP server over stdio for AI assistant clients. stdout is
reserved for the protocol; diagnostics go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, err := mcp.NewServer(cfg, newGenerator())
			if err != nil {
				return err
			}
			return srv.Serve(cmd.Context())
		},
	}
}
