package services

import (
	"context"
	"fmt"
	"time"

	"food-dispatch/internal/assignment-service/core/domain/model"
	"food-dispatch/internal/assignment-service/core/ports"
	"food-dispatch/internal/mylogger"
)

type OverviewService struct {
	repo  ports.IOverviewRepo
	conns ports.IConnectionCounter
	now   Clock
	log   mylogger.Logger
}

var _ ports.IOverviewService = (*OverviewService)(nil)

func NewOverviewService(repo ports.IOverviewRepo, conns ports.IConnectionCounter, now Clock, log mylogger.Logger) *OverviewService {
	if now == nil {
		now = time.Now
	}
	return &OverviewService{repo: repo, conns: conns, now: now, log: log}
}

// Overview summarises the ledger since midnight UTC.
func (s *OverviewService) Overview(ctx context.Context) (model.Overview, error) {
	now := s.now().UTC()
	since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	o, err := s.repo.Overview(ctx, since)
	if err != nil {
		return model.Overview{}, fmt.Errorf("load overview: %w", err)
	}
	o.Timestamp = now
	o.Since = since
	if s.conns != nil {
		o.ConnectedDrivers = s.conns.ConnectedCount()
	}
	return o, nil
}
