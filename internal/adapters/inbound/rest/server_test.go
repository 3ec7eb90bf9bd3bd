package rest_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iacscan/iacscan/internal/adapters/inbound/rest"
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

type stubInvoker struct {
	outputs map[string]string
}

func (s stubInvoker) Run(_ context.Context, def domain.CheckDefinition, _ string) domain.CheckOutput {
	return domain.CheckOutput{Output: s.outputs[def.Name]}
}

func (stubInvoker) Authenticate(context.Context, domain.CheckDefinition, string) domain.CheckOutput {
	return domain.CheckOutput{}
}

func newTestServer(t *testing.T, usersEnabled bool) *echo.Echo {
	t.Helper()
	log, _ := logtest.NewNullLogger()
	root := t.TempDir()

	registry := check.NewDefaultRegistry()
	inv := stubInvoker{outputs: map[string]string{"tfsec": "No problems detected!"}}
	fs := store.NewFileStore(filepath.Join(root, "results"))
	arts := artifacts.New(filepath.Join(root, "outputs"))
	renderer := report.New()

	scanCfg := domain.ScanConfig{
		WorkDir:      filepath.Join(root, "work"),
		OutputsDir:   filepath.Join(root, "outputs"),
		Workers:      2,
		CheckTimeout: time.Minute,
		UsersEnabled: usersEnabled,
	}
	svc := rest.Services{
		Scans: application.NewScanService(log, scanCfg, registry, application.ScanPorts{
			Extractor:  archive.New(),
			Classifier: classifier.New(domain.DefaultCompatibility()),
			Invoker:    inv,
			Outcomes:   outcome.NewDefaultClassifier(),
			Artifacts:  arts,
			Renderer:   renderer,
			Results:    fs,
			Projects:   fs,
		}),
		Checks:   application.NewCheckService(log, registry, inv, fs, filepath.Join(root, "config"), usersEnabled),
		Results:  application.NewResultService(log, fs, arts),
		Renderer: renderer,
	}
	if usersEnabled {
		svc.Projects = application.NewProjectService(log, fs, registry)
	}

	cfg := domain.DefaultConfig().Server
	cfg.RateLimit = 0
	return rest.NewServer(log, cfg, filepath.Join(root, "uploads"), svc).Handler()
}

func do(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(w, body)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, files map[string][]byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for field, data := range files {
		fw, err := mw.CreateFormFile(field, field+".zip")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, target, &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	e := newTestServer(t, true)
	rec := do(e, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ok")
}

func TestListChecks(t *testing.T) {
	e := newTestServer(t, true)

	rec := do(e, httptest.NewRequest(http.MethodGet, "/checks?enabled=false", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	defs := decode[[]map[string]any](t, rec)
	var names []string
	for _, d := range defs {
		names = append(names, d["name"].(string))
	}
	assert.ElementsMatch(t, []string{"steampunk-scanner", "steampunk-spotter", "snyk", "sonar-scanner"}, names)

	rec = do(e, httptest.NewRequest(http.MethodGet, "/checks?enabled=maybe", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEnableDisableCheck(t *testing.T) {
	e := newTestServer(t, true)

	rec := do(e, httptest.NewRequest(http.MethodPut, "/checks/snyk/enable", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "snyk is now enabled")

	rec = do(e, httptest.NewRequest(http.MethodPut, "/checks/snyk/enable", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already enabled")

	rec = do(e, httptest.NewRequest(http.MethodPut, "/checks/nope/disable", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConfigureCheck(t *testing.T) {
	e := newTestServer(t, true)

	req := multipartRequest(t, http.MethodPut, "/checks/tflint/configure", nil, map[string][]byte{"config_file": []byte("rule {}")})
	rec := do(e, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "configured successfully")

	req = multipartRequest(t, http.MethodPut, "/checks/tflint/configure", map[string]string{"secret": "x"}, nil)
	rec = do(e, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "tflint requires a configuration file")
}

func TestScan_JSON(t *testing.T) {
	e := newTestServer(t, true)
	req := multipartRequest(t, http.MethodPost, "/scan",
		map[string]string{"checks": "tfsec"},
		map[string][]byte{"iac": zipBytes(t, map[string]string{"main.tf": "{}"})},
	)
	rec := do(e, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	doc := decode[map[string]any](t, rec)
	assert.Equal(t, "Passed", doc["verdict"])
	assert.Equal(t, "iac.zip", doc["archive"])
	tfsec := doc["tfsec"].(map[string]any)
	assert.Equal(t, "Passed", tfsec["status"])

	id := doc["uuid"].(string)
	rec = do(e, httptest.NewRequest(http.MethodGet, "/results?uuid="+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, decode[map[string]any](t, rec)["uuid"])

	rec = do(e, httptest.NewRequest(http.MethodGet, "/results", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	rec = do(e, httptest.NewRequest(http.MethodDelete, "/results/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(e, httptest.NewRequest(http.MethodGet, "/results?uuid="+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScan_HTML(t *testing.T) {
	e := newTestServer(t, true)
	req := multipartRequest(t, http.MethodPost, "/scan",
		map[string]string{"checks": "tfsec", "scan_response_type": "html"},
		map[string][]byte{"iac": zipBytes(t, map[string]string{"main.tf": "{}"})},
	)
	rec := do(e, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMETextHTML))
	assert.Contains(t, rec.Body.String(), "No issues found")
}

func TestScan_RejectsDisabledCheck(t *testing.T) {
	e := newTestServer(t, true)
	req := multipartRequest(t, http.MethodPost, "/scan",
		map[string]string{"checks": "tfsec,snyk"},
		map[string][]byte{"iac": zipBytes(t, map[string]string{"main.tf": "{}"})},
	)
	rec := do(e, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, []any{"snyk"}, body["names"])
	assert.Contains(t, body["message"], "nonexistent, disabled or un-configured checks")
}

func TestScan_BadRequests(t *testing.T) {
	e := newTestServer(t, true)

	rec := do(e, multipartRequest(t, http.MethodPost, "/scan", map[string]string{"checks": "tfsec"}, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing archive")

	rec = do(e, multipartRequest(t, http.MethodPost, "/scan",
		map[string]string{"scan_response_type": "pdf"},
		map[string][]byte{"iac": zipBytes(t, nil)},
	))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown response type")

	rec = do(e, multipartRequest(t, http.MethodPost, "/scan", nil, map[string][]byte{"iac": []byte("plain text")}))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "not an archive")
}

func TestProjects(t *testing.T) {
	e := newTestServer(t, true)

	rec := do(e, httptest.NewRequest(http.MethodPost, "/projects?creator_id=alice&checklist=tflint,cloc", nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	project := decode[domain.Project](t, rec)
	assert.Equal(t, []string{"tflint", "cloc"}, project.Checklist)

	rec = do(e, httptest.NewRequest(http.MethodPost, "/projects/configuration?creator_id=alice", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	cfg := decode[domain.ProjectConfiguration](t, rec)

	req := httptest.NewRequest(http.MethodPost, "/projects/configuration/parameters?config_id="+cfg.ConfigID,
		strings.NewReader(`{"severity":"high"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = do(e, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Config modified: "+cfg.ConfigID)

	rec = do(e, httptest.NewRequest(http.MethodPost,
		"/projects/configuration/bind?project_id="+project.ProjectID+"&config_id="+cfg.ConfigID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "New config assigned to project: "+project.ProjectID)

	rec = do(e, httptest.NewRequest(http.MethodGet, "/projects?creator_id=alice", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	projects := decode[[]domain.Project](t, rec)
	require.Len(t, projects, 1)
	assert.Equal(t, cfg.ConfigID, projects[0].ActiveConfig)

	rec = do(e, httptest.NewRequest(http.MethodGet, "/projects?creator_id=bob", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = do(e, httptest.NewRequest(http.MethodDelete, "/projects/"+project.ProjectID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(e, httptest.NewRequest(http.MethodGet, "/projects/"+project.ProjectID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProjects_UsersDisabled(t *testing.T) {
	e := newTestServer(t, false)
	rec := do(e, httptest.NewRequest(http.MethodPost, "/projects?creator_id=alice", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
