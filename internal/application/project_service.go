package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/iacscan/iacscan/internal/domain"
	"github.com/iacscan/iacscan/internal/domain/check"
	"github.com/sirupsen/logrus"
)

// ProjectService manages projects and project configurations.
type ProjectService struct {
	log      logrus.FieldLogger
	store    domain.ProjectStore
	registry *check.Registry
	now      func() time.Time
}

func NewProjectService(log logrus.FieldLogger, store domain.ProjectStore, registry *check.Registry) *ProjectService {
	return &ProjectService{
		log:      log.WithField("component", "projects"),
		store:    store,
		registry: registry,
		now:      time.Now,
	}
}

// CreateProject stores a new project. A non-empty activeConfig must exist and
// every checklist entry must name a known check.
func (s *ProjectService) CreateProject(ctx context.Context, creatorID, activeConfig string, checklist []string) (*domain.Project, error) {
	const op = "create project"

	if creatorID == "" {
		return nil, domain.NewError(domain.KindValidation, op, "creator id is required")
	}
	if unknown := s.unknownChecks(checklist); len(unknown) > 0 {
		return nil, domain.NewError(domain.KindValidation, op, "nonexistent checks", unknown...)
	}
	if activeConfig != "" {
		if _, err := s.store.FindConfiguration(ctx, activeConfig); err != nil {
			return nil, err
		}
	}

	p := &domain.Project{
		ProjectID:    uuid.NewString(),
		CreatorID:    creatorID,
		Time:         s.now().Format(domain.TimeLayout),
		ActiveConfig: activeConfig,
	}
	for _, c := range checklist {
		p.AddCheck(c)
	}
	if err := s.store.SaveProject(ctx, p); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"project": p.ProjectID, "creator": creatorID}).Info("project created")
	return p, nil
}

func (s *ProjectService) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	return s.store.FindProject(ctx, id)
}

// ListProjects returns the projects of creatorID, or all projects when empty.
func (s *ProjectService) ListProjects(ctx context.Context, creatorID string) ([]*domain.Project, error) {
	return s.store.ListProjects(ctx, creatorID)
}

func (s *ProjectService) DeleteProject(ctx context.Context, id string) error {
	if _, err := s.store.FindProject(ctx, id); err != nil {
		return err
	}
	return s.store.DeleteProject(ctx, id)
}

// CreateConfiguration stores an empty parameter bag owned by creatorID.
func (s *ProjectService) CreateConfiguration(ctx context.Context, creatorID string) (*domain.ProjectConfiguration, error) {
	if creatorID == "" {
		return nil, domain.NewError(domain.KindValidation, "create configuration", "creator id is required")
	}
	c := &domain.ProjectConfiguration{
		ConfigID:   uuid.NewString(),
		CreatorID:  creatorID,
		Time:       s.now().Format(domain.TimeLayout),
		Parameters: map[string]any{},
	}
	if err := s.store.SaveConfiguration(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// SetParameters replaces the parameter bag of a configuration.
func (s *ProjectService) SetParameters(ctx context.Context, configID string, params map[string]any) (string, error) {
	c, err := s.store.FindConfiguration(ctx, configID)
	if err != nil {
		return "", err
	}
	if params == nil {
		params = map[string]any{}
	}
	c.Parameters = params
	if err := s.store.SaveConfiguration(ctx, c); err != nil {
		return "", err
	}
	return fmt.Sprintf("Config modified: %s", configID), nil
}

// BindConfiguration makes configID the active configuration of projectID.
func (s *ProjectService) BindConfiguration(ctx context.Context, projectID, configID string) (string, error) {
	p, err := s.store.FindProject(ctx, projectID)
	if err != nil {
		return "", err
	}
	if _, err := s.store.FindConfiguration(ctx, configID); err != nil {
		return "", err
	}
	p.ActiveConfig = configID
	if err := s.store.SaveProject(ctx, p); err != nil {
		return "", err
	}
	s.log.WithFields(logrus.Fields{"project": projectID, "config": configID}).Info("configuration bound")
	return fmt.Sprintf("New config assigned to project: %s", projectID), nil
}

func (s *ProjectService) unknownChecks(names []string) []string {
	var unknown []string
	for _, n := range names {
		if _, err := s.registry.Lookup(n); err != nil {
			unknown = append(unknown, n)
		}
	}
	return unknown
}
