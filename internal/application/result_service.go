package application

import (
	"context"

	"github.com/iacscan/iacscan/internal/domain"
	"github.com/sirupsen/logrus"
)

// ArtifactRemover drops the logs and reports kept for a scan.
type ArtifactRemover interface {
	RemoveScan(scanID string) error
}

// ResultService reads and deletes persisted scan results.
type ResultService struct {
	log       logrus.FieldLogger
	store     domain.ResultStore
	artifacts ArtifactRemover
}

// NewResultService wires a ResultService. artifacts may be nil.
func NewResultService(log logrus.FieldLogger, store domain.ResultStore, artifacts ArtifactRemover) *ResultService {
	return &ResultService{
		log:       log.WithField("component", "results"),
		store:     store,
		artifacts: artifacts,
	}
}

// Get returns one result. With a project id the result must belong to it.
func (s *ResultService) Get(ctx context.Context, id, projectID string) (*domain.ScanResult, error) {
	if projectID != "" {
		return s.store.FindByProjectAndID(ctx, projectID, id)
	}
	return s.store.FindByID(ctx, id)
}

// List returns stored results, newest first, optionally restricted to a project.
func (s *ResultService) List(ctx context.Context, projectID string) ([]*domain.ScanResult, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if projectID == "" {
		return all, nil
	}
	var out []*domain.ScanResult
	for _, r := range all {
		if r.ProjectID == projectID {
			out = append(out, r)
		}
	}
	return out, nil
}

// Delete removes a result and its artifacts. Unknown ids are not an error.
func (s *ResultService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if s.artifacts != nil {
		if err := s.artifacts.RemoveScan(id); err != nil {
			s.log.Warnf("removing artifacts of %s: %v", id, err)
		}
	}
	return nil
}
