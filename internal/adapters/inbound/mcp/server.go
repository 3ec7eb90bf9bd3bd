package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/iacscan/iacscan/internal/adapters/outbound/report"
	"github.com/iacscan/iacscan/internal/application"
)

// Services are the application services exposed over MCP. Results may be nil
// when persistence is disabled.
type Services struct {
	Scans    *application.ScanService
	Checks   *application.CheckService
	Results  *application.ResultService
	Renderer *report.Renderer
}

// NewServer creates an MCP server with the iacscan tools and resources
// registered.
func NewServer(version string, svc Services) *server.MCPServer {
	s := server.NewMCPServer(
		"iacscan",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	registerTools(s, svc)
	registerResources(s, svc)

	return s
}
