package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-hub/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so automation agents can
search hub resources, trigger syncs and stage edits for review.

Staged edits are never committed over MCP; use 'sercha-hub staged commit'.

By default the server communicates over stdio using JSON-RPC. Use --port
to serve streamable HTTP instead.

Examples:
  # Stdio mode (default)
  sercha-hub mcp serve --tenant acme

  # HTTP mode (MCP Inspector, remote agents)
  sercha-hub mcp serve --tenant acme --port 8080`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	ports := &mcp.Ports{
		Resources: resourceService,
		Sync:      syncOrchestrator,
		Pushback:  pushbackService,
		Sites:     siteService,
	}

	server, err := mcp.NewServer(tenantID, ports)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		cmd.Printf("MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
