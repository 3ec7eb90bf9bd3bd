package artifacts_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iacscan/iacscan/internal/adapters/outbound/artifacts"
	"github.com/iacscan/iacscan/internal/domain"
)

func TestStore_WriteLog(t *testing.T) {
	root := t.TempDir()
	s := artifacts.New(root)

	require.NoError(t, s.WriteLog("u1", "tflint", "2 issue(s) found"))

	data, err := os.ReadFile(filepath.Join(root, "logs", "scan_run_u1", "tflint.txt"))
	require.NoError(t, err)
	assert.Equal(t, "2 issue(s) found", string(data))
}

func TestStore_WriteReport(t *testing.T) {
	root := t.TempDir()
	s := artifacts.New(root)

	require.NoError(t, s.WriteReport("u1", domain.ReportJSON, []byte(`{"uuid":"u1"}`)))
	require.NoError(t, s.WriteReport("u1", domain.ReportHTML, []byte("<html></html>")))

	assert.FileExists(t, filepath.Join(root, "json_dumps", "u1.json"))
	assert.FileExists(t, filepath.Join(root, "generated_html", "u1.html"))
}

func TestStore_UnknownFormat(t *testing.T) {
	s := artifacts.New(t.TempDir())
	assert.Error(t, s.WriteReport("u1", domain.ReportFormat("pdf"), nil))
}

func TestStore_RemoveScan(t *testing.T) {
	root := t.TempDir()
	s := artifacts.New(root)
	require.NoError(t, s.WriteLog("u1", "cloc", "x"))
	require.NoError(t, s.WriteReport("u1", domain.ReportJSON, []byte("{}")))

	require.NoError(t, s.RemoveScan("u1"))
	assert.NoDirExists(t, filepath.Join(root, "logs", "scan_run_u1"))
	assert.NoFileExists(t, filepath.Join(root, "json_dumps", "u1.json"))

	require.NoError(t, s.RemoveScan("never-existed"))
}
