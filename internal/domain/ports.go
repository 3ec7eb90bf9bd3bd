package domain

import "context"

// ArchiveClassifier buckets the files of an unpacked archive by type.
type ArchiveClassifier interface {
	Classify(dir string) (*FileTypes, error)
}

// ArchiveExtractor unpacks a zip or tar archive into dest.
type ArchiveExtractor interface {
	Extract(ctx context.Context, archivePath, dest string) error
}

// CheckInvoker runs the external tool behind a check. Failures of the tool
// are reported through CheckOutput, never as errors.
type CheckInvoker interface {
	Run(ctx context.Context, def CheckDefinition, dir string) CheckOutput
	Authenticate(ctx context.Context, def CheckDefinition, secret string) CheckOutput
}

// ResultStore persists scan results keyed by uuid.
type ResultStore interface {
	Insert(ctx context.Context, result *ScanResult) error
	FindByID(ctx context.Context, id string) (*ScanResult, error)
	FindByProjectAndID(ctx context.Context, projectID, id string) (*ScanResult, error)
	// Delete is a no-op for unknown ids.
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*ScanResult, error)
	AgeInDays(ctx context.Context, id string) (int, error)
}

// ProjectStore persists projects and project configurations.
type ProjectStore interface {
	SaveProject(ctx context.Context, p *Project) error
	FindProject(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context, creatorID string) ([]*Project, error)
	DeleteProject(ctx context.Context, id string) error
	SaveConfiguration(ctx context.Context, c *ProjectConfiguration) error
	FindConfiguration(ctx context.Context, id string) (*ProjectConfiguration, error)
}

// ArtifactWriter keeps per-scan side artifacts: tool logs and rendered reports.
type ArtifactWriter interface {
	WriteLog(scanID, check, text string) error
	WriteReport(scanID string, format ReportFormat, data []byte) error
}

// ReportFormat names a rendered report representation.
type ReportFormat string

const (
	ReportJSON ReportFormat = "json"
	ReportHTML ReportFormat = "html"
)

// ReportRenderer turns a scan result into a report document.
type ReportRenderer interface {
	Render(result *ScanResult, format ReportFormat) ([]byte, error)
}

// CommitReader reads the HEAD commit of a directory that is a git repository.
type CommitReader interface {
	HeadCommit(dir string) (string, error)
}

// ScanObserver receives scan telemetry.
type ScanObserver interface {
	ScanFinished(result *ScanResult)
	CheckFinished(check string, status Status, out CheckOutput)
	ResultsSwept(n int)
}
