package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/iacscan/iacscan/internal/application"
	"github.com/iacscan/iacscan/internal/domain"
)

func registerTools(s *server.MCPServer, svc Services) {
	// 1. iacscan_scan
	s.AddTool(
		mcplib.NewTool("iacscan_scan",
			mcplib.WithDescription("Scan a local zip or tar archive with the enabled checks and return the classified result as JSON"),
			mcplib.WithString("archive",
				mcplib.Required(),
				mcplib.Description("Path to the archive to scan"),
			),
			mcplib.WithString("checks", mcplib.Description("Comma-separated checks to run (default: every enabled check)")),
			mcplib.WithString("project_id", mcplib.Description("Project the scan belongs to")),
		),
		handleScan(svc),
	)

	// 2. iacscan_list_checks
	s.AddTool(
		mcplib.NewTool("iacscan_list_checks",
			mcplib.WithDescription("List the checks with their enabled and configured state"),
			mcplib.WithString("keyword", mcplib.Description("Match name or description")),
			mcplib.WithBoolean("enabled_only", mcplib.Description("Only enabled checks")),
		),
		handleListChecks(svc),
	)

	// 3. iacscan_get_result
	s.AddTool(
		mcplib.NewTool("iacscan_get_result",
			mcplib.WithDescription("Return a stored scan result by its uuid"),
			mcplib.WithString("uuid",
				mcplib.Required(),
				mcplib.Description("Scan uuid"),
			),
			mcplib.WithString("project_id", mcplib.Description("Project the result belongs to")),
		),
		handleGetResult(svc),
	)
}

func handleScan(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		archivePath, err := request.RequireString("archive")
		if err != nil {
			return errorResult(err.Error()), nil
		}
		checks, _ := request.GetArguments()["checks"].(string)
		projectID, _ := request.GetArguments()["project_id"].(string)

		result, err := svc.Scans.Scan(ctx, application.ScanRequest{
			ArchivePath: archivePath,
			ArchiveName: filepath.Base(archivePath),
			Checks:      splitCSV(checks),
			ProjectID:   projectID,
		})
		if err != nil {
			return errorResult(fmt.Sprintf("scan failed: %v", err)), nil
		}
		return reportResult(svc, result)
	}
}

func handleListChecks(svc Services) server.ToolHandlerFunc {
	return func(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		filter := domain.CheckFilter{}
		filter.Keyword, _ = request.GetArguments()["keyword"].(string)
		if enabledOnly, _ := request.GetArguments()["enabled_only"].(bool); enabledOnly {
			filter.Enabled = &enabledOnly
		}
		return jsonResult(svc.Checks.List(filter))
	}
}

func handleGetResult(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		id, err := request.RequireString("uuid")
		if err != nil {
			return errorResult(err.Error()), nil
		}
		if svc.Results == nil {
			return errorResult("persistence is disabled, scan results are not stored"), nil
		}
		projectID, _ := request.GetArguments()["project_id"].(string)

		result, err := svc.Results.Get(ctx, id, projectID)
		if err != nil {
			return errorResult(err.Error()), nil
		}
		return reportResult(svc, result)
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// reportResult returns the flat JSON document of a scan result.
func reportResult(svc Services, result *domain.ScanResult) (*mcplib.CallToolResult, error) {
	data, err := svc.Renderer.Render(result, domain.ReportJSON)
	if err != nil {
		return nil, fmt.Errorf("rendering result: %w", err)
	}
	return textResult(string(data)), nil
}

// jsonResult marshals v to JSON and returns it as a text content result.
func jsonResult(v interface{}) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(string(data))},
	}, nil
}

// textResult returns a plain text content result.
func textResult(text string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(text)},
	}
}

// errorResult returns a tool result that indicates an error occurred.
func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(msg)},
		IsError: true,
	}
}
