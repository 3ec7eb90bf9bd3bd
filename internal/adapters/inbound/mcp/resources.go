package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/iacscan/iacscan/internal/domain"
)

const resultsPrefix = "iacscan://results/"

func registerResources(s *server.MCPServer, svc Services) {
	// 1. iacscan://checks - check catalogue
	s.AddResource(
		mcplib.NewResource(
			"iacscan://checks",
			"Checks",
			mcplib.WithResourceDescription("Known checks with their enabled and configured state"),
			mcplib.WithMIMEType("application/json"),
		),
		handleChecksResource(svc),
	)

	// 2. iacscan://results/{uuid} - stored scan result (resource template)
	s.AddResourceTemplate(
		mcplib.NewResourceTemplate(
			resultsPrefix+"{uuid}",
			"Scan Result",
			mcplib.WithTemplateDescription("Classified result of a stored scan"),
			mcplib.WithTemplateMIMEType("application/json"),
		),
		handleResultResource(svc),
	)
}

func handleChecksResource(svc Services) server.ResourceHandlerFunc {
	return func(_ context.Context, _ mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
		data, err := json.MarshalIndent(svc.Checks.List(domain.CheckFilter{}), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling checks: %w", err)
		}

		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      "iacscan://checks",
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	}
}

func handleResultResource(svc Services) server.ResourceTemplateHandlerFunc {
	return func(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
		if svc.Results == nil {
			return nil, fmt.Errorf("persistence is disabled, scan results are not stored")
		}
		id := strings.TrimPrefix(request.Params.URI, resultsPrefix)
		if id == "" || id == request.Params.URI {
			return nil, fmt.Errorf("scan uuid is required")
		}

		result, err := svc.Results.Get(ctx, id, "")
		if err != nil {
			return nil, err
		}
		data, err := svc.Renderer.Render(result, domain.ReportJSON)
		if err != nil {
			return nil, fmt.Errorf("rendering result: %w", err)
		}

		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      request.Params.URI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	}
}
