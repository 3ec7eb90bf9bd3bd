package cli

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	mcpadapter "github.com/iacscan/iacscan/internal/adapters/inbound/mcp"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "MCP server commands",
		Long:  "Commands for running the iacscan MCP (Model Context Protocol) server.",
	}
	cmd.AddCommand(newMCPServeCmd())
	return cmd
}

func newMCPServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start iacscan MCP server (stdio)",
		Long:  "Start the iacscan MCP server using stdio transport. This lets AI coding assistants scan archives, list checks and read stored results.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			s := mcpadapter.NewServer(version, mcpadapter.Services{
				Scans:    a.Scans,
				Checks:   a.Checks,
				Results:  a.Results,
				Renderer: a.Renderer,
			})
			return server.ServeStdio(s)
		},
	}
}
