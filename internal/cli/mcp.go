package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	procmcp "github.com/valter-silva-au/procmod/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the procmod MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the procmod MCP server on stdio",
	Long: `Start the procmod MCP server on stdio transport.

The server exposes the session as MCP tools that AI assistants can call:
list_history, recall_history, get_activities, move_activity, get_metrics,
get_alerts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}

		srv := procmcp.NewServer(Session, MetricsCalc, AlertEngine, appVersion)

		ctx, stop := commandContext(cmd)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}
		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
