package application_test

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
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

// fakeInvoker returns canned outputs per check and records what ran.
type fakeInvoker struct {
	mu      sync.Mutex
	outputs map[string]domain.CheckOutput
	ran     []string
	authRC  int
	authed  []string
	block   chan struct{}
}

func newFakeInvoker() *fakeInvoker {
	return &fakeInvoker{outputs: map[string]domain.CheckOutput{}}
}

func (f *fakeInvoker) Run(ctx context.Context, def domain.CheckDefinition, dir string) domain.CheckOutput {
	f.mu.Lock()
	f.ran = append(f.ran, def.Name)
	out := f.outputs[def.Name]
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return domain.CheckOutput{Output: "check cancelled", ReturnCode: -1}
		}
	}
	return out
}

func (f *fakeInvoker) Authenticate(_ context.Context, def domain.CheckDefinition, _ string) domain.CheckOutput {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authed = append(f.authed, def.Name)
	if f.authRC != 0 {
		return domain.CheckOutput{Output: "invalid token", ReturnCode: f.authRC}
	}
	return domain.CheckOutput{}
}

func (f *fakeInvoker) Ran() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ran := append([]string(nil), f.ran...)
	sort.Strings(ran)
	return ran
}

// recordingObserver counts observer callbacks.
type recordingObserver struct {
	mu     sync.Mutex
	scans  int
	checks map[string]domain.Status
	swept  int
}

func (o *recordingObserver) ScanFinished(*domain.ScanResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.scans++
}

func (o *recordingObserver) CheckFinished(check string, status domain.Status, _ domain.CheckOutput) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.checks == nil {
		o.checks = map[string]domain.Status{}
	}
	o.checks[check] = status
}

func (o *recordingObserver) ResultsSwept(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.swept += n
}

type harness struct {
	cfg       domain.ScanConfig
	registry  *check.Registry
	invoker   *fakeInvoker
	store     *store.FileStore
	artifacts *artifacts.Store
	observer  *recordingObserver
	svc       *application.ScanService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()
	cfg := domain.ScanConfig{
		WorkDir:      filepath.Join(root, "work"),
		OutputsDir:   filepath.Join(root, "outputs"),
		Workers:      3,
		CheckTimeout: time.Minute,
		UsersEnabled: true,
	}
	h := &harness{
		cfg:       cfg,
		registry:  check.NewDefaultRegistry(),
		invoker:   newFakeInvoker(),
		store:     store.NewFileStore(filepath.Join(root, "results")),
		artifacts: artifacts.New(cfg.OutputsDir),
		observer:  &recordingObserver{},
	}
	h.svc = application.NewScanService(nullLogger(), cfg, h.registry, application.ScanPorts{
		Extractor:  archive.New(),
		Classifier: classifier.New(domain.DefaultCompatibility()),
		Invoker:    h.invoker,
		Outcomes:   outcome.NewDefaultClassifier(),
		Artifacts:  h.artifacts,
		Renderer:   report.New(),
		Results:    h.store,
		Projects:   h.store,
		Observer:   h.observer,
	})
	return h
}

func nullLogger() logrus.FieldLogger {
	log, _ := logtest.NewNullLogger()
	return log
}

// writeZip creates a zip archive in a temp dir and returns its path.
func writeZip(t *testing.T, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "iac.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(w, body)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func workDirEntries(t *testing.T, dir string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	return entries
}
