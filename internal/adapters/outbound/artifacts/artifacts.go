package artifacts

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/iacscan/iacscan/internal/domain"
)

// Store is a file-based implementation of domain.ArtifactWriter.
//
// Layout under the outputs directory:
//
//	logs/scan_run_<uuid>/<check>.txt
//	json_dumps/<uuid>.json
//	generated_html/<uuid>.html
type Store struct {
	root string
}

// New creates an artifact store rooted at outputsDir.
func New(outputsDir string) *Store {
	return &Store{root: outputsDir}
}

func (s *Store) WriteLog(scanID, check, text string) error {
	return writeFile(s.LogPath(scanID, check), []byte(text))
}

func (s *Store) WriteReport(scanID string, format domain.ReportFormat, data []byte) error {
	path, err := s.ReportPath(scanID, format)
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

// LogPath is where the raw output of check is kept for scanID.
func (s *Store) LogPath(scanID, check string) string {
	return filepath.Join(s.root, "logs", "scan_run_"+scanID, check+".txt")
}

// ReportPath is where the rendered report of scanID is kept.
func (s *Store) ReportPath(scanID string, format domain.ReportFormat) (string, error) {
	switch format {
	case domain.ReportJSON:
		return filepath.Join(s.root, "json_dumps", scanID+".json"), nil
	case domain.ReportHTML:
		return filepath.Join(s.root, "generated_html", scanID+".html"), nil
	default:
		return "", fmt.Errorf("unknown report format %q", format)
	}
}

// RemoveScan deletes every artifact of scanID. Missing files are ignored.
func (s *Store) RemoveScan(scanID string) error {
	if err := os.RemoveAll(filepath.Join(s.root, "logs", "scan_run_"+scanID)); err != nil {
		return err
	}
	for _, f := range []domain.ReportFormat{domain.ReportJSON, domain.ReportHTML} {
		path, _ := s.ReportPath(scanID, f)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
