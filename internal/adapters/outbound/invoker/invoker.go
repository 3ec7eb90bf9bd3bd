package invoker

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/iacscan/iacscan/internal/domain"
	"github.com/mattn/go-shellwords"
	"github.com/sirupsen/logrus"
)

const (
	// rcSpawnFailed mirrors the shell's "command not found" code.
	rcSpawnFailed = 127
	rcAborted     = -1

	waitDelay = time.Second
)

// Invoker implements domain.CheckInvoker by spawning the tool behind a check
// inside the scanned directory. stderr is merged into stdout.
type Invoker struct {
	log     logrus.FieldLogger
	tools   domain.ToolsConfig
	timeout time.Duration
}

func New(log logrus.FieldLogger, tools domain.ToolsConfig, timeout time.Duration) *Invoker {
	if timeout <= 0 {
		timeout = domain.DefaultConfig().Scan.CheckTimeout
	}
	return &Invoker{
		log:     log.WithField("component", "invoker"),
		tools:   tools,
		timeout: timeout,
	}
}

// Run executes the check's command template in dir. A tool that exits
// non-zero, cannot be spawned or times out is still reported through
// CheckOutput.
func (i *Invoker) Run(ctx context.Context, def domain.CheckDefinition, dir string) domain.CheckOutput {
	start := time.Now()
	log := i.log.WithField("check", def.Name)

	var files []string
	if len(def.RequireFiles) > 0 {
		files = matchTopLevel(dir, def.RequireFiles)
		if len(files) == 0 {
			log.Debug("no matching input files, tool not started")
			return domain.CheckOutput{Output: def.NoFilesMessage, ReturnCode: 0}
		}
	}

	tmpl := def.CommandTemplate()
	args, err := shellwords.Parse(tmpl)
	if err != nil || len(args) == 0 {
		return domain.CheckOutput{
			Output:     fmt.Sprintf("invalid command template for %s: %q", def.Name, tmpl),
			ReturnCode: rcSpawnFailed,
		}
	}

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	vars := i.vars(def)
	var out domain.CheckOutput
	if slices.Contains(args, domain.PlaceholderFile) {
		// One invocation per file; outputs are concatenated.
		var sb strings.Builder
		for _, f := range files {
			res := i.exec(ctx, dir, expand(args, vars, f, nil))
			sb.WriteString(res.Output)
			out.ReturnCode += res.ReturnCode
			if res.TimedOut || res.ReturnCode == rcSpawnFailed {
				out.TimedOut = res.TimedOut
				out.ReturnCode = res.ReturnCode
				break
			}
		}
		out.Output = sb.String()
	} else {
		out = i.exec(ctx, dir, expand(args, vars, "", files))
	}

	out.Duration = time.Since(start)
	log.WithFields(logrus.Fields{
		"rc":       out.ReturnCode,
		"duration": out.Duration.Round(time.Millisecond),
	}).Debug("check finished")
	return out
}

// Authenticate runs the check's login command with secret. Checks without
// one succeed immediately.
func (i *Invoker) Authenticate(ctx context.Context, def domain.CheckDefinition, secret string) domain.CheckOutput {
	if def.AuthCommand == "" {
		return domain.CheckOutput{}
	}
	args, err := shellwords.Parse(def.AuthCommand)
	if err != nil || len(args) == 0 {
		return domain.CheckOutput{
			Output:     fmt.Sprintf("invalid auth command for %s", def.Name),
			ReturnCode: rcSpawnFailed,
		}
	}

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	vars := i.vars(def)
	vars[domain.PlaceholderSecret] = secret
	start := time.Now()
	out := i.exec(ctx, "", expand(args, vars, "", nil))
	out.Duration = time.Since(start)
	return out
}

func (i *Invoker) vars(def domain.CheckDefinition) map[string]string {
	vars := map[string]string{
		domain.PlaceholderBin:    i.tools.BinaryFor(def),
		domain.PlaceholderSecret: def.Secret,
	}
	if def.ConfigFile != "" {
		cfg := filepath.Join(i.tools.ConfigDir, def.ConfigFile)
		if abs, err := filepath.Abs(cfg); err == nil {
			cfg = abs
		}
		vars[domain.PlaceholderConfig] = cfg
	}
	return vars
}

func (i *Invoker) exec(ctx context.Context, dir string, argv []string) domain.CheckOutput {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.WaitDelay = waitDelay

	output, err := cmd.CombinedOutput()
	out := domain.CheckOutput{Output: string(output)}
	if err == nil {
		return out
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		out.TimedOut = true
		out.ReturnCode = rcAborted
		out.Output += fmt.Sprintf("check timed out after %s", i.timeout)
		return out
	}
	if ctx.Err() != nil {
		out.ReturnCode = rcAborted
		out.Output += "check cancelled"
		return out
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ReturnCode = exitErr.ExitCode()
		return out
	}

	out.ReturnCode = rcSpawnFailed
	out.Output += err.Error()
	return out
}

// expand substitutes placeholders inside each argument in a single pass, so
// a value containing a placeholder is never expanded again. A standalone
// {files} argument becomes one argument per file.
func expand(args []string, vars map[string]string, file string, files []string) []string {
	keys := slices.Sorted(maps.Keys(vars))
	pairs := make([]string, 0, 2*len(keys)+2)
	for _, k := range keys {
		pairs = append(pairs, k, vars[k])
	}
	pairs = append(pairs, domain.PlaceholderFile, file)
	r := strings.NewReplacer(pairs...)

	out := make([]string, 0, len(args)+len(files))
	for _, a := range args {
		if a == domain.PlaceholderFiles {
			out = append(out, files...)
			continue
		}
		out = append(out, r.Replace(a))
	}
	return out
}

// matchTopLevel returns the base names of top-level entries of dir matching
// any of patterns, without duplicates.
func matchTopLevel(dir string, patterns []string) []string {
	var names []string
	for _, p := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, p))
		if err != nil {
			continue
		}
		for _, m := range matches {
			name := filepath.Base(m)
			if !slices.Contains(names, name) {
				names = append(names, name)
			}
		}
	}
	return names
}
