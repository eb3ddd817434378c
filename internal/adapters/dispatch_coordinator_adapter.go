package adapters

import (
	"context"
	"time"

	"serrupro_backend/internal/assignments/service"

	"github.com/google/uuid"
)

// DispatchCoordinatorAdapter narrows the assignments service to what the
// dispatch orchestrator needs.
type DispatchCoordinatorAdapter struct {
	service *service.Service
}

func NewDispatchCoordinatorAdapter(s *service.Service) *DispatchCoordinatorAdapter {
	return &DispatchCoordinatorAdapter{service: s}
}

func (a *DispatchCoordinatorAdapter) Propose(ctx context.Context, interventionID uuid.UUID, artisanIDs []uuid.UUID, ttl time.Duration) (int, error) {
	created, err := a.service.Propose(ctx, interventionID, artisanIDs, ttl)
	if err != nil {
		return 0, err
	}
	return len(created), nil
}

func (a *DispatchCoordinatorAdapter) DeclinedArtisanIDs(ctx context.Context, interventionID uuid.UUID) ([]uuid.UUID, error) {
	return a.service.DeclinedArtisanIDs(ctx, interventionID)
}

func (a *DispatchCoordinatorAdapter) OutstandingProposals(ctx context.Context, interventionID uuid.UUID) (int, error) {
	return a.service.OutstandingProposals(ctx, interventionID)
}
