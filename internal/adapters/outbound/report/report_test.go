package report_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/iacscan/iacscan/internal/adapters/outbound/report"
	"github.com/iacscan/iacscan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *domain.ScanResult {
	return &domain.ScanResult{
		UUID:              "9f1c",
		Archive:           "iac.zip",
		Time:              "03/20/2026, 12:00:00",
		ExecutionDuration: "2.5",
		Verdict:           domain.StatusProblems,
		Outcomes: map[string]domain.CheckOutcome{
			"tflint":   {Status: domain.StatusPassed, Files: "['main.tf']"},
			"hadolint": {Status: domain.StatusNoFiles},
			"cloc":     {Status: domain.StatusInfo, Log: "1 text file"},
			"tfsec":    {Status: domain.StatusProblems, Log: "<script>alert(1)</script>", Files: "['main.tf']"},
			"gixy":     {Status: domain.StatusUnsupported, Log: "raw"},
		},
	}
}

func TestRender_JSONIsFlatDocument(t *testing.T) {
	data, err := report.New().Render(sampleResult(), domain.ReportJSON)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "9f1c", doc["uuid"])
	assert.Equal(t, "Problems", doc["verdict"])
	assert.Equal(t, "2.5", doc["execution-duration"])
	tfsec, ok := doc["tfsec"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Problems", tfsec["status"])
	assert.NotContains(t, doc, "project_id")
}

func TestRender_HTMLGroupsByPriority(t *testing.T) {
	data, err := report.New().Render(sampleResult(), domain.ReportHTML)
	require.NoError(t, err)
	html := string(data)

	assert.Contains(t, html, "Issues found")
	iProblems := strings.Index(html, "<td>tfsec</td>")
	iInfo := strings.Index(html, "<td>cloc</td>")
	iNoFiles := strings.Index(html, "<td>hadolint</td>")
	iPassed := strings.Index(html, "<td>tflint</td>")
	iUnsupported := strings.Index(html, "<td>gixy</td>")
	require.True(t, iProblems > 0 && iInfo > 0 && iNoFiles > 0 && iPassed > 0 && iUnsupported > 0)
	assert.Less(t, iProblems, iInfo)
	assert.Less(t, iInfo, iNoFiles)
	assert.Less(t, iNoFiles, iPassed, "same priority sorts by name")
	assert.Less(t, iPassed, iUnsupported)
}

func TestRender_HTMLEscapesLogs(t *testing.T) {
	data, err := report.New().Render(sampleResult(), domain.ReportHTML)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "<script>alert(1)</script>")
	assert.Contains(t, string(data), "&lt;script&gt;")
}

func TestRender_HTMLPassedVerdict(t *testing.T) {
	r := sampleResult()
	r.Verdict = domain.StatusPassed
	data, err := report.New().Render(r, domain.ReportHTML)
	require.NoError(t, err)
	assert.Contains(t, string(data), "No issues found")
}

func TestRender_UnknownFormat(t *testing.T) {
	_, err := report.New().Render(sampleResult(), domain.ReportFormat("pdf"))
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}
