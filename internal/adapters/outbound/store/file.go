package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iacscan/iacscan/internal/domain"
)

const (
	scansDir    = "scans"
	projectsDir = "projects"
	configsDir  = "configs"
)

// FileStore implements domain.ResultStore and domain.ProjectStore with one
// JSON document per record under a base directory.
type FileStore struct {
	dir string
	mu  sync.RWMutex
	now func() time.Time
	log logrus.FieldLogger
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir, now: time.Now, log: logrus.StandardLogger()}
}

// WithLogger sets the logger that reports skipped records.
func (s *FileStore) WithLogger(log logrus.FieldLogger) *FileStore {
	s.log = log.WithField("component", "file_store")
	return s
}

// WithClock replaces the clock used by AgeInDays.
func (s *FileStore) WithClock(now func() time.Time) *FileStore {
	s.now = now
	return s
}

func (s *FileStore) Insert(_ context.Context, result *domain.ScanResult) error {
	const op = "insert scan result"
	if err := checkID(op, result.UUID); err != nil {
		return err
	}
	return s.write(op, scansDir, result.UUID, result)
}

func (s *FileStore) FindByID(_ context.Context, id string) (*domain.ScanResult, error) {
	const op = "find scan result"
	if err := checkID(op, id); err != nil {
		return nil, err
	}
	var r domain.ScanResult
	if err := s.read(op, scansDir, id, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *FileStore) FindByProjectAndID(ctx context.Context, projectID, id string) (*domain.ScanResult, error) {
	r, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.ProjectID != projectID {
		return nil, domain.NewError(domain.KindNotFound, "find scan result", "no scan result for project "+projectID, id)
	}
	return r, nil
}

func (s *FileStore) Delete(_ context.Context, id string) error {
	const op = "delete scan result"
	if err := checkID(op, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(scansDir, id)); err != nil && !os.IsNotExist(err) {
		return domain.WrapError(domain.KindPersistence, op, err)
	}
	return nil
}

// List returns every stored result, newest first.
func (s *FileStore) List(_ context.Context) ([]*domain.ScanResult, error) {
	var results []*domain.ScanResult
	err := s.each("list scan results", scansDir, func(data []byte) error {
		var r domain.ScanResult
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		results = append(results, &r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	SortNewestFirst(results)
	return results, nil
}

func (s *FileStore) AgeInDays(ctx context.Context, id string) (int, error) {
	r, err := s.FindByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return r.AgeInDays(s.now())
}

func (s *FileStore) SaveProject(_ context.Context, p *domain.Project) error {
	const op = "save project"
	if err := checkID(op, p.ProjectID); err != nil {
		return err
	}
	return s.write(op, projectsDir, p.ProjectID, p)
}

func (s *FileStore) FindProject(_ context.Context, id string) (*domain.Project, error) {
	const op = "find project"
	if err := checkID(op, id); err != nil {
		return nil, err
	}
	var p domain.Project
	if err := s.read(op, projectsDir, id, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProjects returns the projects of creatorID, or all projects when it is empty.
func (s *FileStore) ListProjects(_ context.Context, creatorID string) ([]*domain.Project, error) {
	var projects []*domain.Project
	err := s.each("list projects", projectsDir, func(data []byte) error {
		var p domain.Project
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		if creatorID == "" || p.CreatorID == creatorID {
			projects = append(projects, &p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].ProjectID < projects[j].ProjectID })
	return projects, nil
}

func (s *FileStore) DeleteProject(_ context.Context, id string) error {
	const op = "delete project"
	if err := checkID(op, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(projectsDir, id)); err != nil && !os.IsNotExist(err) {
		return domain.WrapError(domain.KindPersistence, op, err)
	}
	return nil
}

func (s *FileStore) SaveConfiguration(_ context.Context, c *domain.ProjectConfiguration) error {
	const op = "save configuration"
	if err := checkID(op, c.ConfigID); err != nil {
		return err
	}
	return s.write(op, configsDir, c.ConfigID, c)
}

func (s *FileStore) FindConfiguration(_ context.Context, id string) (*domain.ProjectConfiguration, error) {
	const op = "find configuration"
	if err := checkID(op, id); err != nil {
		return nil, err
	}
	var c domain.ProjectConfiguration
	if err := s.read(op, configsDir, id, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *FileStore) path(kind, id string) string {
	return filepath.Join(s.dir, kind, id+".json")
}

// write stores v atomically: the document is written to a temporary file
// and renamed into place.
func (s *FileStore) write(op, kind, id string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return domain.WrapError(domain.KindPersistence, op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fp := s.path(kind, id)
	if err := os.MkdirAll(filepath.Dir(fp), 0755); err != nil {
		return domain.WrapError(domain.KindPersistence, op, err)
	}
	tmp := fp + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return domain.WrapError(domain.KindPersistence, op, err)
	}
	if err := os.Rename(tmp, fp); err != nil {
		_ = os.Remove(tmp)
		return domain.WrapError(domain.KindPersistence, op, err)
	}
	return nil
}

func (s *FileStore) read(op, kind, id string, v any) error {
	s.mu.RLock()
	data, err := os.ReadFile(s.path(kind, id))
	s.mu.RUnlock()
	if err != nil {
		if os.IsNotExist(err) {
			return domain.NewError(domain.KindNotFound, op, "not found", id)
		}
		return domain.WrapError(domain.KindPersistence, op, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return domain.WrapError(domain.KindPersistence, op, err)
	}
	return nil
}

func (s *FileStore) each(op, kind string, fn func(data []byte) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(s.dir, kind))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return domain.WrapError(domain.KindPersistence, op, err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, kind, e.Name()))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return domain.WrapError(domain.KindPersistence, op, err)
		}
		// Undecodable records are skipped so one bad file cannot block listing.
		if err := fn(data); err != nil {
			s.log.WithFields(logrus.Fields{"kind": kind, "file": e.Name()}).Warnf("%s: skipping unreadable record: %v", op, err)
		}
	}
	return nil
}

// checkID rejects ids that are empty or would leave the store directory.
func checkID(op, id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return domain.NewError(domain.KindValidation, op, "invalid id", id)
	}
	return nil
}

// SortNewestFirst orders results by start time, newest first. Results with
// an unreadable time sort last, by uuid.
func SortNewestFirst(results []*domain.ScanResult) {
	sort.SliceStable(results, func(i, j int) bool {
		ti, erri := results[i].StartedAt()
		tj, errj := results[j].StartedAt()
		switch {
		case erri == nil && errj == nil && !ti.Equal(tj):
			return ti.After(tj)
		case erri == nil && errj != nil:
			return true
		case erri != nil && errj == nil:
			return false
		}
		return results[i].UUID < results[j].UUID
	})
}
