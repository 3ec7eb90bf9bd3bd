package report

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/iacscan/iacscan/internal/domain"
)

//go:embed templates/*.html
var templates embed.FS

var reportTmpl = template.Must(template.ParseFS(templates, "templates/report.html"))

// Renderer implements domain.ReportRenderer.
type Renderer struct{}

func New() *Renderer { return &Renderer{} }

func (r *Renderer) Render(result *domain.ScanResult, format domain.ReportFormat) ([]byte, error) {
	switch format {
	case domain.ReportJSON:
		return json.MarshalIndent(result, "", "  ")
	case domain.ReportHTML:
		return renderHTML(result)
	default:
		return nil, domain.NewError(domain.KindValidation, "render report", fmt.Sprintf("unknown report format %q", format))
	}
}

type row struct {
	Check  string
	Status domain.Status
	Class  string
	Files  string
	Log    string
}

type page struct {
	UUID       string
	Archive    string
	Time       string
	Duration   string
	ProjectID  string
	CommitHash string
	Verdict    string
	Problems   bool
	Counts     map[domain.Status]int
	Rows       []row
}

func renderHTML(result *domain.ScanResult) ([]byte, error) {
	p := page{
		UUID:       result.UUID,
		Archive:    result.Archive,
		Time:       result.Time,
		Duration:   result.ExecutionDuration,
		ProjectID:  result.ProjectID,
		CommitHash: result.CommitHash,
		Problems:   result.Verdict == domain.StatusProblems,
		Counts:     domain.CountByStatus(result.Outcomes),
	}
	p.Verdict = "No issues found"
	if p.Problems {
		p.Verdict = "Issues found"
	}
	for _, o := range domain.PrioritizedOutcomes(result.Outcomes) {
		p.Rows = append(p.Rows, row{
			Check:  o.Check,
			Status: o.Status,
			Class:  statusClass(o.Status),
			Files:  o.Files,
			Log:    o.Log,
		})
	}

	var buf bytes.Buffer
	if err := reportTmpl.Execute(&buf, p); err != nil {
		return nil, fmt.Errorf("rendering html report: %w", err)
	}
	return buf.Bytes(), nil
}

func statusClass(s domain.Status) string {
	switch s {
	case domain.StatusProblems:
		return "problems"
	case domain.StatusInfo:
		return "info"
	case domain.StatusPassed:
		return "passed"
	case domain.StatusNoFiles:
		return "nofiles"
	default:
		return "unsupported"
	}
}
