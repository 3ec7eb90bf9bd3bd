package application

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/iacscan/iacscan/internal/domain"
	"github.com/iacscan/iacscan/internal/domain/check"
	"github.com/sirupsen/logrus"
)

// ConfigUpload is a check configuration file sent by a client.
type ConfigUpload struct {
	Name string
	Body io.Reader
}

// CheckService manages the check registry: listing, enabling, disabling and
// configuring checks, optionally scoped to a project.
type CheckService struct {
	log          logrus.FieldLogger
	registry     *check.Registry
	invoker      domain.CheckInvoker
	projects     domain.ProjectStore
	configDir    string
	usersEnabled bool
}

// NewCheckService wires a CheckService. projects may be nil when users are disabled.
func NewCheckService(
	log logrus.FieldLogger,
	registry *check.Registry,
	invoker domain.CheckInvoker,
	projects domain.ProjectStore,
	configDir string,
	usersEnabled bool,
) *CheckService {
	return &CheckService{
		log:          log.WithField("component", "checks"),
		registry:     registry,
		invoker:      invoker,
		projects:     projects,
		configDir:    configDir,
		usersEnabled: usersEnabled,
	}
}

func (s *CheckService) List(filter domain.CheckFilter) []domain.CheckDefinition {
	return s.registry.List(filter)
}

func (s *CheckService) Get(name string) (domain.CheckDefinition, error) {
	return s.registry.Lookup(name)
}

// Enable turns a check on. With a project id (and users enabled) the check is
// also added to the project checklist, and enabling an enabled check is fine.
func (s *CheckService) Enable(ctx context.Context, name, projectID string) (string, error) {
	if !s.projectScoped(projectID) {
		return s.registry.Enable(name)
	}
	if err := s.updateChecklist(ctx, name, projectID, (*domain.Project).AddCheck); err != nil {
		return "", err
	}
	if err := s.registry.ForceEnabled(name, true); err != nil {
		return "", err
	}
	s.log.WithFields(logrus.Fields{"check": name, "project": projectID}).Info("check enabled for project")
	return fmt.Sprintf("Check: %s is now enabled and available to use.", name), nil
}

// Disable mirrors Enable.
func (s *CheckService) Disable(ctx context.Context, name, projectID string) (string, error) {
	if !s.projectScoped(projectID) {
		return s.registry.Disable(name)
	}
	if err := s.updateChecklist(ctx, name, projectID, (*domain.Project).RemoveCheck); err != nil {
		return "", err
	}
	if err := s.registry.ForceEnabled(name, false); err != nil {
		return "", err
	}
	s.log.WithFields(logrus.Fields{"check": name, "project": projectID}).Info("check disabled for project")
	return fmt.Sprintf("Check: %s is now disabled and cannot be used.", name), nil
}

func (s *CheckService) projectScoped(projectID string) bool {
	return projectID != "" && s.usersEnabled && s.projects != nil
}

func (s *CheckService) updateChecklist(ctx context.Context, name, projectID string, apply func(*domain.Project, string)) error {
	if _, err := s.registry.Lookup(name); err != nil {
		return err
	}
	p, err := s.projects.FindProject(ctx, projectID)
	if err != nil {
		return err
	}
	apply(p, name)
	return s.projects.SaveProject(ctx, p)
}

// Configure stores the uploaded configuration file (if any), validates the
// secret against the tool (if the check authenticates) and marks the check
// configured. On failure the stored file is removed again.
func (s *CheckService) Configure(ctx context.Context, name string, upload *ConfigUpload, secret string) (string, error) {
	const op = "configure check"

	// 1. The check must exist and be enabled
	def, err := s.registry.Lookup(name)
	if err != nil {
		return "", err
	}
	if !def.Enabled {
		return "", domain.NewError(domain.KindValidation, op, fmt.Sprintf("check %s is disabled, you need to enable it first", name))
	}

	// 2. Save the configuration file
	var saved string
	if upload != nil {
		saved, err = s.saveConfigFile(upload)
		if err != nil {
			return "", err
		}
	}
	discard := func() {
		if saved == "" {
			return
		}
		if err := os.Remove(filepath.Join(s.configDir, saved)); err != nil {
			s.log.Warnf("removing config file %s: %v", saved, err)
		}
	}

	// 3. Validate the secret with the tool
	if secret != "" && def.AuthCommand != "" {
		out := s.invoker.Authenticate(ctx, def, secret)
		if out.ReturnCode != 0 {
			discard()
			return "", domain.NewError(domain.KindToolInvocation, op,
				fmt.Sprintf("authentication of %s failed: %s", name, strings.TrimSpace(out.Output)))
		}
	}

	// 4. Record the configuration
	msg, err := s.registry.Configure(name, saved, secret)
	if err != nil {
		discard()
		return "", err
	}
	s.log.WithFields(logrus.Fields{"check": name, "config_file": saved}).Info("check configured")
	return msg, nil
}

func (s *CheckService) saveConfigFile(upload *ConfigUpload) (string, error) {
	const op = "save config file"

	base := filepath.Base(upload.Name)
	if base == "." || base == ".." || base == string(filepath.Separator) {
		return "", domain.NewError(domain.KindValidation, op, "invalid config file name", upload.Name)
	}
	name := uuid.NewString()[:6] + "-" + base

	if err := os.MkdirAll(s.configDir, 0o755); err != nil {
		return "", domain.WrapError(domain.KindPersistence, op, err)
	}
	f, err := os.Create(filepath.Join(s.configDir, name))
	if err != nil {
		return "", domain.WrapError(domain.KindPersistence, op, err)
	}
	if _, err := io.Copy(f, upload.Body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", domain.WrapError(domain.KindPersistence, op, err)
	}
	if err := f.Close(); err != nil {
		return "", domain.WrapError(domain.KindPersistence, op, err)
	}
	return name, nil
}
