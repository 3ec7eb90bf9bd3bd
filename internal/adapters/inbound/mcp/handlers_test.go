package mcp

import (
	"archive/zip"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iacscan/iacscan/internal/adapters/outbound/archive"
	"github.com/iacscan/iacscan/internal/adapters/outbound/artifacts"
	"github.com/iacscan/iacscan/internal/adapters/outbound/classifier"
	"github.com/iacscan/iacscan/internal/adapters/outbound/report"
	"github.com/iacscan/iacscan/internal/adapters/outbound/store"
	"github.com/iacscan/iacscan/internal/application"
	"github.com/iacscan/iacscan/internal/domain"
	"github.com/iacscan/iacscan/internal/domain/check"
	"github.com/iacscan/iacscan/internal/domain/outcome"
)

type cannedInvoker map[string]string

func (c cannedInvoker) Run(_ context.Context, def domain.CheckDefinition, _ string) domain.CheckOutput {
	return domain.CheckOutput{Output: c[def.Name]}
}

func (cannedInvoker) Authenticate(context.Context, domain.CheckDefinition, string) domain.CheckOutput {
	return domain.CheckOutput{}
}

func newTestServices(t *testing.T, persist bool) Services {
	t.Helper()
	log, _ := logtest.NewNullLogger()
	root := t.TempDir()

	registry := check.NewDefaultRegistry()
	inv := cannedInvoker{"tflint": "", "tfsec": "\x1b[31mCRITICAL\x1b[0m open bucket"}
	arts := artifacts.New(filepath.Join(root, "outputs"))
	renderer := report.New()

	ports := application.ScanPorts{
		Extractor:  archive.New(),
		Classifier: classifier.New(domain.DefaultCompatibility()),
		Invoker:    inv,
		Outcomes:   outcome.NewDefaultClassifier(),
		Artifacts:  arts,
		Renderer:   renderer,
	}
	svc := Services{Renderer: renderer}
	if persist {
		fs := store.NewFileStore(filepath.Join(root, "results"))
		ports.Results = fs
		svc.Results = application.NewResultService(log, fs, arts)
	}
	svc.Scans = application.NewScanService(log, domain.ScanConfig{
		WorkDir:      filepath.Join(root, "work"),
		OutputsDir:   filepath.Join(root, "outputs"),
		Workers:      2,
		CheckTimeout: time.Minute,
	}, registry, ports)
	svc.Checks = application.NewCheckService(log, registry, inv, nil, filepath.Join(root, "config"), false)
	return svc
}

func writeArchive(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "infra.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("main.tf")
	require.NoError(t, err)
	_, err = io.WriteString(w, `resource "aws_s3_bucket" "b" {}`)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func call(t *testing.T, h func(context.Context, mcplib.CallToolRequest) (*mcplib.CallToolResult, error), args map[string]any) (*mcplib.CallToolResult, string) {
	t.Helper()
	req := mcplib.CallToolRequest{}
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcplib.TextContent)
	require.True(t, ok)
	return res, text.Text
}

func TestScanTool_ReturnsClassifiedDocument(t *testing.T) {
	svc := newTestServices(t, true)

	res, text := call(t, handleScan(svc), map[string]any{
		"archive": writeArchive(t),
		"checks":  "tflint, tfsec",
	})
	require.False(t, res.IsError, text)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &doc))
	assert.Equal(t, "Problems", doc["verdict"])
	assert.Equal(t, "infra.zip", doc["archive"])
	assert.Equal(t, "Passed", doc["tflint"].(map[string]any)["status"])
	assert.Equal(t, "Problems", doc["tfsec"].(map[string]any)["status"])

	id := doc["uuid"].(string)
	res, text = call(t, handleGetResult(svc), map[string]any{"uuid": id})
	require.False(t, res.IsError, text)
	assert.Contains(t, text, id)
}

func TestScanTool_Errors(t *testing.T) {
	svc := newTestServices(t, false)

	res, _ := call(t, handleScan(svc), map[string]any{})
	assert.True(t, res.IsError, "archive is required")

	res, text := call(t, handleScan(svc), map[string]any{"archive": writeArchive(t), "checks": "snyk"})
	assert.True(t, res.IsError)
	assert.Contains(t, text, "snyk")
}

func TestListChecksTool(t *testing.T) {
	svc := newTestServices(t, false)

	res, text := call(t, handleListChecks(svc), map[string]any{"keyword": "tflint"})
	require.False(t, res.IsError)
	var defs []domain.CheckDefinition
	require.NoError(t, json.Unmarshal([]byte(text), &defs))
	require.Len(t, defs, 1)
	assert.Equal(t, "tflint", defs[0].Name)

	_, text = call(t, handleListChecks(svc), map[string]any{"enabled_only": true})
	require.NoError(t, json.Unmarshal([]byte(text), &defs))
	for _, d := range defs {
		assert.True(t, d.Enabled, d.Name)
	}
}

func TestGetResultTool_PersistenceDisabled(t *testing.T) {
	svc := newTestServices(t, false)

	res, text := call(t, handleGetResult(svc), map[string]any{"uuid": "x"})
	assert.True(t, res.IsError)
	assert.Contains(t, text, "persistence is disabled")
}

func TestResultResource(t *testing.T) {
	svc := newTestServices(t, true)
	_, text := call(t, handleScan(svc), map[string]any{"archive": writeArchive(t), "checks": "tflint"})
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &doc))

	req := mcplib.ReadResourceRequest{}
	req.Params.URI = resultsPrefix + doc["uuid"].(string)
	contents, err := handleResultResource(svc)(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, contents, 1)
	assert.Equal(t, req.Params.URI, contents[0].(mcplib.TextResourceContents).URI)

	req.Params.URI = resultsPrefix + "missing"
	_, err = handleResultResource(svc)(context.Background(), req)
	assert.Error(t, err)
}
