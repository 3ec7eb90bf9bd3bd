package invoker_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iacscan/iacscan/internal/adapters/outbound/invoker"
	"github.com/iacscan/iacscan/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInvoker(t *testing.T, tools domain.ToolsConfig, timeout time.Duration) *invoker.Invoker {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.DebugLevel)
	return invoker.New(log, tools, timeout)
}

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("x"), 0644))
	}
}

func TestRun_MergesStderrAndKeepsExitCode(t *testing.T) {
	inv := newInvoker(t, domain.ToolsConfig{}, 5*time.Second)
	def := domain.CheckDefinition{
		Name:    "noisy",
		Binary:  "sh",
		Command: `{bin} -c 'echo out; echo err 1>&2; exit 3'`,
	}

	out := inv.Run(context.Background(), def, t.TempDir())
	assert.Equal(t, 3, out.ReturnCode)
	assert.Contains(t, out.Output, "out")
	assert.Contains(t, out.Output, "err")
	assert.False(t, out.TimedOut)
}

func TestRun_RunsInsideScannedDirectory(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "main.tf")
	inv := newInvoker(t, domain.ToolsConfig{}, 5*time.Second)

	out := inv.Run(context.Background(), domain.CheckDefinition{Name: "ls", Binary: "ls", Command: "{bin}"}, dir)
	assert.Equal(t, 0, out.ReturnCode)
	assert.Contains(t, out.Output, "main.tf")
}

func TestRun_Timeout(t *testing.T) {
	inv := newInvoker(t, domain.ToolsConfig{}, 100*time.Millisecond)
	def := domain.CheckDefinition{Name: "slow", Binary: "sh", Command: `{bin} -c 'exec sleep 5'`}

	out := inv.Run(context.Background(), def, t.TempDir())
	assert.True(t, out.TimedOut)
	assert.Equal(t, -1, out.ReturnCode)
	assert.Contains(t, out.Output, "timed out")
	assert.Less(t, out.Duration, 4*time.Second)
}

func TestRun_MissingBinary(t *testing.T) {
	inv := newInvoker(t, domain.ToolsConfig{}, time.Second)
	def := domain.CheckDefinition{Name: "ghost", Binary: "/nonexistent/ghost-tool", Command: "{bin} ."}

	out := inv.Run(context.Background(), def, t.TempDir())
	assert.Equal(t, 127, out.ReturnCode)
	assert.NotEmpty(t, out.Output)
}

func TestRun_NoRequiredFilesSkipsTool(t *testing.T) {
	inv := newInvoker(t, domain.ToolsConfig{}, time.Second)
	def := domain.CheckDefinition{
		Name:           "pylint",
		Binary:         "/nonexistent/pylint",
		Command:        "{bin} {files}",
		RequireFiles:   []string{"*.py"},
		NoFilesMessage: "There are no Python files to check.",
	}

	out := inv.Run(context.Background(), def, t.TempDir())
	assert.Equal(t, 0, out.ReturnCode)
	assert.Equal(t, "There are no Python files to check.", out.Output)
}

func TestRun_FilesExpandToArguments(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "b.py", "a.py", "notes.txt")
	inv := newInvoker(t, domain.ToolsConfig{}, 5*time.Second)
	def := domain.CheckDefinition{
		Name:         "lister",
		Binary:       "echo",
		Command:      "{bin} {files}",
		RequireFiles: []string{"*.py"},
	}

	out := inv.Run(context.Background(), def, dir)
	assert.Equal(t, 0, out.ReturnCode)
	assert.Equal(t, "a.py b.py\n", out.Output)
}

func TestRun_FilePlaceholderRunsPerFile(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "A.java", "B.java")
	inv := newInvoker(t, domain.ToolsConfig{}, 5*time.Second)
	def := domain.CheckDefinition{
		Name:         "per-file",
		Binary:       "echo",
		Command:      "{bin} checking {file}",
		RequireFiles: []string{"*.java"},
	}

	out := inv.Run(context.Background(), def, dir)
	assert.Equal(t, "checking A.java\nchecking B.java\n", out.Output)
}

func TestRun_ConfiguredCommandUsesConfigDir(t *testing.T) {
	cfgDir := t.TempDir()
	inv := newInvoker(t, domain.ToolsConfig{ConfigDir: cfgDir}, 5*time.Second)
	def := domain.CheckDefinition{
		Name:              "tflint",
		Binary:            "echo",
		Command:           "{bin} default",
		ConfiguredCommand: "{bin} -c {config}",
		ConfigFile:        "abc123-tflint.hcl",
	}

	out := inv.Run(context.Background(), def, t.TempDir())
	assert.Equal(t, "-c "+filepath.Join(cfgDir, "abc123-tflint.hcl")+"\n", out.Output)
}

func TestRun_ToolPathOverride(t *testing.T) {
	inv := newInvoker(t, domain.ToolsConfig{Paths: map[string]string{"cloc": "echo"}}, 5*time.Second)
	def := domain.CheckDefinition{Name: "cloc", Binary: "/nonexistent/cloc", Command: "{bin} counted"}

	out := inv.Run(context.Background(), def, t.TempDir())
	assert.Equal(t, 0, out.ReturnCode)
	assert.Equal(t, "counted\n", out.Output)
}

func TestAuthenticate(t *testing.T) {
	inv := newInvoker(t, domain.ToolsConfig{}, 5*time.Second)

	out := inv.Authenticate(context.Background(), domain.CheckDefinition{
		Name:        "snyk",
		Binary:      "echo",
		AuthCommand: "{bin} auth {secret}",
	}, "s3cr3t value")
	assert.Equal(t, 0, out.ReturnCode)
	assert.Equal(t, "auth s3cr3t value\n", out.Output)

	out = inv.Authenticate(context.Background(), domain.CheckDefinition{Name: "tflint"}, "ignored")
	assert.Equal(t, 0, out.ReturnCode)
	assert.Empty(t, out.Output)
}

func TestAuthenticate_FailureReported(t *testing.T) {
	inv := newInvoker(t, domain.ToolsConfig{}, 5*time.Second)
	out := inv.Authenticate(context.Background(), domain.CheckDefinition{
		Name:        "snyk",
		Binary:      "sh",
		AuthCommand: `{bin} -c 'echo bad token; exit 2'`,
	}, "nope")
	assert.Equal(t, 2, out.ReturnCode)
	assert.Contains(t, out.Output, "bad token")
}

func TestAuthenticate_SecretIsNotReexpanded(t *testing.T) {
	inv := newInvoker(t, domain.ToolsConfig{ConfigDir: t.TempDir()}, 5*time.Second)
	def := domain.CheckDefinition{
		Name:        "snyk",
		Binary:      "echo",
		ConfigFile:  "abc123-snyk.json",
		AuthCommand: "{bin} auth {secret}",
	}

	// Placeholder lookups used to range over a map; repeat to catch ordering.
	for range 20 {
		out := inv.Authenticate(context.Background(), def, "tok{config}{bin}{file}")
		require.Equal(t, 0, out.ReturnCode)
		assert.Equal(t, "auth tok{config}{bin}{file}\n", out.Output)
	}
}
