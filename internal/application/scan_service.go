package application

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/iacscan/iacscan/internal/domain"
	"github.com/iacscan/iacscan/internal/domain/check"
	"github.com/iacscan/iacscan/internal/domain/outcome"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// NoFilesLog is written to the log of a check that had nothing to scan.
const NoFilesLog = "No files to scan"

// ScanRequest describes one scan.
type ScanRequest struct {
	// ArchivePath is the uploaded zip or tar archive on local disk.
	ArchivePath string
	// ArchiveName is recorded on the result; defaults to the base name of ArchivePath.
	ArchiveName string
	// Checks is the explicit selection; empty means checklist or all enabled.
	Checks    []string
	ProjectID string
}

// ScanPorts groups the collaborators of ScanService. Results, Projects,
// Commits and Observer may be nil.
type ScanPorts struct {
	Extractor  domain.ArchiveExtractor
	Classifier domain.ArchiveClassifier
	Invoker    domain.CheckInvoker
	Outcomes   *outcome.Classifier
	Artifacts  domain.ArtifactWriter
	Renderer   domain.ReportRenderer
	Results    domain.ResultStore
	Projects   domain.ProjectStore
	Commits    domain.CommitReader
	Observer   domain.ScanObserver
}

// ScanService orchestrates the scan pipeline:
// validate → unpack → classify → resolve checks → run → aggregate → persist → clean up.
type ScanService struct {
	log      logrus.FieldLogger
	cfg      domain.ScanConfig
	registry *check.Registry
	ports    ScanPorts
	now      func() time.Time
}

func NewScanService(log logrus.FieldLogger, cfg domain.ScanConfig, registry *check.Registry, ports ScanPorts) *ScanService {
	if ports.Observer == nil {
		ports.Observer = noopObserver{}
	}
	return &ScanService{
		log:      log.WithField("component", "scan"),
		cfg:      cfg,
		registry: registry,
		ports:    ports,
		now:      time.Now,
	}
}

type scanState string

const (
	stateIdle       scanState = "idle"
	statePrepared   scanState = "directory_prepared"
	stateRunning    scanState = "running"
	stateAggregated scanState = "aggregated"
	statePersisted  scanState = "persisted"
	stateCleanedUp  scanState = "cleaned_up"
	stateFailed     scanState = "failed"
)

// scanRun holds the per-invocation state of one scan.
type scanRun struct {
	id      string
	log     logrus.FieldLogger
	state   scanState
	workDir string
	started time.Time
	project *domain.Project
	params  map[string]any
}

func (r *scanRun) transition(s scanState) {
	r.log.WithField("from", r.state).Debugf("scan %s", s)
	r.state = s
}

// Scan runs req to completion. Per-check failures are part of the returned
// result; only validation, archive and cancellation problems are errors.
func (s *ScanService) Scan(ctx context.Context, req ScanRequest) (*domain.ScanResult, error) {
	id := uuid.NewString()
	run := &scanRun{
		id:      id,
		log:     s.log.WithField("scan", id),
		state:   stateIdle,
		started: s.now(),
	}

	// 0. Pre-flight: snapshot the registry once and reject bad explicit selections.
	snapshot := s.registry.Snapshot()
	if bad := snapshot.Unrunnable(req.Checks); len(bad) > 0 {
		return nil, domain.NewError(domain.KindValidation, "scan", "nonexistent, disabled or un-configured checks", bad...)
	}
	if err := s.loadProject(ctx, run, req.ProjectID); err != nil {
		return nil, err
	}

	// 1. Unpack into a fresh working directory
	run.workDir = filepath.Join(s.cfg.WorkDir, "scan_"+id)
	defer s.cleanup(run)

	if err := s.ports.Extractor.Extract(ctx, req.ArchivePath, run.workDir); err != nil {
		run.transition(stateFailed)
		return nil, err
	}
	run.transition(statePrepared)

	// 2. Classify files and resolve the effective check set
	fileTypes, err := s.ports.Classifier.Classify(run.workDir)
	if err != nil {
		run.transition(stateFailed)
		return nil, err
	}
	candidates := resolveChecks(snapshot, req.Checks, run.project)
	applicable := s.registry.ApplicableChecks(fileTypes.Tags)
	run.log.WithFields(logrus.Fields{
		"tags":   fileTypes.Tags,
		"checks": len(candidates),
	}).Info("scan started")

	// 3. Run compatible checks through the worker pool
	run.transition(stateRunning)
	summary := outcome.NewSummary(s.ports.Outcomes)
	g := new(errgroup.Group)
	g.SetLimit(max(1, s.cfg.Workers))
	for _, def := range candidates {
		if !slices.Contains(applicable, def.Name) {
			s.writeLog(run, def.Name, NoFilesLog)
			summary.MarkNoFiles(def.Name)
			s.ports.Observer.CheckFinished(def.Name, domain.StatusNoFiles, domain.CheckOutput{})
			continue
		}
		g.Go(func() error {
			s.runCheck(ctx, run, def, fileTypes.Files, summary)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		run.transition(stateFailed)
		return nil, fmt.Errorf("scan %s cancelled: %w", id, err)
	}

	// 4. Aggregate
	result := &domain.ScanResult{
		UUID:              id,
		Archive:           archiveName(req),
		Time:              run.started.Format(domain.TimeLayout),
		ExecutionDuration: domain.FormatDuration(s.now().Sub(run.started)),
		Outcomes:          summary.Outcomes(),
		Parameters:        run.params,
	}
	if run.project != nil {
		result.ProjectID = run.project.ProjectID
	}
	if s.ports.Commits != nil {
		hash, err := s.ports.Commits.HeadCommit(run.workDir)
		if err != nil {
			run.log.Warnf("reading commit hash: %v", err)
		}
		result.CommitHash = hash
	}
	result.Verdict = domain.ComputeVerdict(result.Outcomes)
	run.transition(stateAggregated)

	// 5. Persist and write reports, both best effort
	if s.ports.Results != nil {
		if err := s.ports.Results.Insert(ctx, result); err != nil {
			run.log.Errorf("persisting scan result: %v", err)
		}
	}
	s.writeReports(run, result)
	run.transition(statePersisted)

	s.ports.Observer.ScanFinished(result)
	run.log.WithFields(logrus.Fields{
		"verdict":  result.Verdict,
		"duration": result.ExecutionDuration,
	}).Info("scan finished")
	return result, nil
}

func (s *ScanService) runCheck(ctx context.Context, run *scanRun, def domain.CheckDefinition, index domain.ScannedFileIndex, summary *outcome.Summary) {
	out := s.ports.Invoker.Run(ctx, def, run.workDir)
	s.writeLog(run, def.Name, out.Output)

	var status domain.Status
	if out.TimedOut {
		summary.MarkProblems(def.Name, out.Output, index)
		status = domain.StatusProblems
	} else {
		status = summary.SummarizeOutcome(def.Name, out.Output, index)
	}

	run.log.WithFields(logrus.Fields{
		"check":  def.Name,
		"rc":     out.ReturnCode,
		"status": status,
	}).Debug("check classified")
	s.ports.Observer.CheckFinished(def.Name, status, out)
}

// loadProject attaches the project and the parameters of its active
// configuration to run. Projects are only consulted when users are enabled.
func (s *ScanService) loadProject(ctx context.Context, run *scanRun, projectID string) error {
	if projectID == "" || !s.cfg.UsersEnabled || s.ports.Projects == nil {
		return nil
	}
	p, err := s.ports.Projects.FindProject(ctx, projectID)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return domain.NewError(domain.KindValidation, "scan", "nonexistent project", projectID)
		}
		return err
	}
	run.project = p

	if p.ActiveConfig != "" {
		cfg, err := s.ports.Projects.FindConfiguration(ctx, p.ActiveConfig)
		if err != nil {
			run.log.Warnf("loading configuration %s of project %s: %v", p.ActiveConfig, p.ProjectID, err)
			return nil
		}
		run.params = cfg.Parameters
	}
	return nil
}

func (s *ScanService) writeLog(run *scanRun, check, text string) {
	if s.ports.Artifacts == nil {
		return
	}
	if err := s.ports.Artifacts.WriteLog(run.id, check, text); err != nil {
		run.log.Warnf("writing log of %s: %v", check, err)
	}
}

func (s *ScanService) writeReports(run *scanRun, result *domain.ScanResult) {
	if s.ports.Artifacts == nil || s.ports.Renderer == nil {
		return
	}
	for _, format := range []domain.ReportFormat{domain.ReportJSON, domain.ReportHTML} {
		data, err := s.ports.Renderer.Render(result, format)
		if err == nil {
			err = s.ports.Artifacts.WriteReport(run.id, format, data)
		}
		if err != nil {
			run.log.Warnf("writing %s report: %v", format, err)
		}
	}
}

func (s *ScanService) cleanup(run *scanRun) {
	if run.workDir == "" {
		return
	}
	if err := os.RemoveAll(run.workDir); err != nil {
		run.log.Errorf("removing working directory %s: %v", run.workDir, err)
		return
	}
	if run.state != stateFailed {
		run.transition(stateCleanedUp)
	}
}

// resolveChecks picks the checks of a scan in registry order. An explicit
// selection wins over the project checklist, which wins over all enabled
// checks. When both a selection and a checklist exist, selected checks must
// also be on the checklist. Disabled checks never run.
func resolveChecks(snapshot check.Snapshot, selected []string, project *domain.Project) []domain.CheckDefinition {
	var keep func(name string) bool
	switch {
	case len(selected) > 0 && project.HasChecklist():
		keep = func(name string) bool {
			return slices.Contains(selected, name) && slices.Contains(project.Checklist, name)
		}
	case len(selected) > 0:
		keep = func(name string) bool { return slices.Contains(selected, name) }
	case project.HasChecklist():
		keep = func(name string) bool { return slices.Contains(project.Checklist, name) }
	default:
		keep = func(string) bool { return true }
	}

	var out []domain.CheckDefinition
	for _, def := range snapshot {
		if def.Enabled && keep(def.Name) {
			out = append(out, def)
		}
	}
	return out
}

func archiveName(req ScanRequest) string {
	if req.ArchiveName != "" {
		return req.ArchiveName
	}
	return filepath.Base(req.ArchivePath)
}

type noopObserver struct{}

func (noopObserver) ScanFinished(*domain.ScanResult)                         {}
func (noopObserver) CheckFinished(string, domain.Status, domain.CheckOutput) {}
func (noopObserver) ResultsSwept(int)                                        {}
