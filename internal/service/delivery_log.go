package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/webhookd/webhookd/internal/repository"
)

// DeliveryLogService exposes read access to delivery history and records
// the single terminal-state row a worker produces for each dispatched task.
type DeliveryLogService struct {
	repo repository.DeliveryLogRepository
}

// NewDeliveryLogService constructs a DeliveryLogService.
func NewDeliveryLogService(repo repository.DeliveryLogRepository) *DeliveryLogService {
	return &DeliveryLogService{repo: repo}
}

// Record persists the full attempt history of a finished task. It is called
// exactly once per task, after the worker reaches a terminal outcome -
// there is no pending row written at ingest time.
func (s *DeliveryLogService) Record(ctx context.Context, log repository.DeliveryLog) (repository.DeliveryLog, error) {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	return s.repo.Create(ctx, log)
}

// Get returns a single delivery log by ID.
func (s *DeliveryLogService) Get(ctx context.Context, id string) (repository.DeliveryLog, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns delivery logs matching filter, most-recent-first.
func (s *DeliveryLogService) List(ctx context.Context, filter repository.DeliveryLogFilter) ([]repository.DeliveryLog, error) {
	return s.repo.List(ctx, filter)
}
