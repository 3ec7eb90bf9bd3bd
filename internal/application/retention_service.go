package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iacscan/iacscan/internal/domain"
	"github.com/sirupsen/logrus"
)

// RetentionService deletes scan results older than the configured age.
type RetentionService struct {
	log      logrus.FieldLogger
	cfg      domain.RetentionConfig
	results  *ResultService
	store    domain.ResultStore
	observer domain.ScanObserver
}

func NewRetentionService(log logrus.FieldLogger, cfg domain.RetentionConfig, store domain.ResultStore, results *ResultService, observer domain.ScanObserver) *RetentionService {
	if cfg.Interval == 0 {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.MaxAgeDays == 0 {
		cfg.MaxAgeDays = 14
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &RetentionService{
		log:      log.WithField("component", "retention"),
		cfg:      cfg,
		results:  results,
		store:    store,
		observer: observer,
	}
}

// Run sweeps once on start and then every Interval until ctx is cancelled.
func (s *RetentionService) Run(ctx context.Context) error {
	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.cfg.Interval):
			s.sweep(ctx)
		}
	}
}

func (s *RetentionService) sweep(ctx context.Context) {
	if _, err := s.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Errorf("results sweep: %v", err)
	}
}

// Sweep deletes every result older than MaxAgeDays and returns how many were
// removed. A result whose age cannot be computed is logged and kept.
func (s *RetentionService) Sweep(ctx context.Context) (int, error) {
	results, err := s.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing results: %w", err)
	}

	deleted := 0
	for _, r := range results {
		age, err := s.store.AgeInDays(ctx, r.UUID)
		if err != nil {
			s.log.Warnf("age of result %s: %v", r.UUID, err)
			continue
		}
		if age <= s.cfg.MaxAgeDays {
			continue
		}
		if err := s.results.Delete(ctx, r.UUID); err != nil {
			return deleted, fmt.Errorf("deleting result %s: %w", r.UUID, err)
		}
		s.log.WithField("age_days", age).Infof("deleted result %s", r.UUID)
		deleted++
	}

	s.observer.ResultsSwept(deleted)
	return deleted, nil
}
