package main

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/ArnabNath1/ArnabUniGuide/internal/api"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the signed-in workspace to MCP clients over stdio",
	Long: `Serve the signed-in workspace to MCP clients over stdio. Configure your
MCP client to launch:

  uniguide mcp`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		s := api.NewMCPServer(api.MCPDeps{Workspace: a.ws, Version: version})
		return server.ServeStdio(s)
	},
}
