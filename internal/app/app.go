package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iacscan/iacscan/internal/adapters/inbound/rest"
	"github.com/iacscan/iacscan/internal/adapters/outbound/archive"
	"github.com/iacscan/iacscan/internal/adapters/outbound/artifacts"
	"github.com/iacscan/iacscan/internal/adapters/outbound/classifier"
	"github.com/iacscan/iacscan/internal/adapters/outbound/gitinfo"
	"github.com/iacscan/iacscan/internal/adapters/outbound/invoker"
	"github.com/iacscan/iacscan/internal/adapters/outbound/metrics"
	"github.com/iacscan/iacscan/internal/adapters/outbound/report"
	"github.com/iacscan/iacscan/internal/adapters/outbound/store"
	"github.com/iacscan/iacscan/internal/application"
	"github.com/iacscan/iacscan/internal/domain"
	"github.com/iacscan/iacscan/internal/domain/check"
	"github.com/iacscan/iacscan/internal/domain/outcome"
)

type fullStore interface {
	domain.ResultStore
	domain.ProjectStore
}

// App wires every adapter and service from one configuration.
type App struct {
	Config   domain.Config
	Log      logrus.FieldLogger
	Registry *check.Registry
	Renderer *report.Renderer

	Scans     *application.ScanService
	Checks    *application.CheckService
	Projects  *application.ProjectService // nil unless users and persistence are enabled
	Results   *application.ResultService  // nil unless persistence is enabled
	Retention *application.RetentionService

	closers []func() error
}

// New builds the application. Close releases the store connection.
func New(ctx context.Context, log logrus.FieldLogger, cfg domain.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &App{
		Config:   cfg,
		Log:      log,
		Registry: check.NewDefaultRegistry(),
		Renderer: report.New(),
	}

	// 1. Persistence
	st, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	// 2. Shared adapters
	observer := metrics.NewObserver()
	arts := artifacts.New(cfg.Scan.OutputsDir)
	inv := invoker.New(log, cfg.Tools, cfg.Scan.CheckTimeout)

	ports := application.ScanPorts{
		Extractor:  archive.New(),
		Classifier: classifier.New(a.Registry.Matrix()),
		Invoker:    inv,
		Outcomes:   outcome.NewClassifier(outcome.DefaultRules(), a.Registry.Matrix()),
		Artifacts:  arts,
		Renderer:   a.Renderer,
		Commits:    gitinfo.New(),
		Observer:   observer,
	}

	// 3. Services
	var projects domain.ProjectStore
	if st != nil {
		ports.Results = st
		a.Results = application.NewResultService(log, st, arts)
		a.Retention = application.NewRetentionService(log, cfg.Retention, st, a.Results, observer)
		if cfg.Scan.UsersEnabled {
			projects = st
			ports.Projects = st
			a.Projects = application.NewProjectService(log, st, a.Registry)
		}
	} else if cfg.Scan.UsersEnabled {
		log.Warn("users are enabled but persistence is disabled, projects are unavailable")
	}

	a.Scans = application.NewScanService(log, cfg.Scan, a.Registry, ports)
	a.Checks = application.NewCheckService(log, a.Registry, inv, projects, cfg.Tools.ConfigDir, cfg.Scan.UsersEnabled)
	return a, nil
}

func (a *App) openStore(ctx context.Context) (fullStore, error) {
	p := a.Config.Persistence
	if !p.Enabled {
		return nil, nil
	}
	switch p.Backend {
	case domain.BackendRedis:
		rs, err := store.NewRedisStore(ctx, a.Log, p.Redis)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rs.Close)
		return rs, nil
	default:
		return store.NewFileStore(p.Dir).WithLogger(a.Log), nil
	}
}

// Server returns the HTTP API bound to this application.
func (a *App) Server() *rest.Server {
	return rest.NewServer(a.Log, a.Config.Server, filepath.Join(a.Config.Scan.WorkDir, "uploads"), rest.Services{
		Scans:    a.Scans,
		Checks:   a.Checks,
		Projects: a.Projects,
		Results:  a.Results,
		Renderer: a.Renderer,
	})
}

// Run serves the HTTP API and runs the retention sweeper until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	errg, ctx := errgroup.WithContext(ctx)
	errg.Go(func() error {
		return a.Server().Run(ctx)
	})
	if a.Retention != nil {
		errg.Go(func() error {
			return a.Retention.Run(ctx)
		})
	}
	return errg.Wait()
}

func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
