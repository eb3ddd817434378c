package adapters

import (
	"context"

	"serrupro_backend/internal/assignments/service"

	"github.com/google/uuid"
)

// AssignmentGuardAdapter lets the intervention lifecycle consult and revoke
// assignments without importing the assignments module directly.
type AssignmentGuardAdapter struct {
	service *service.Service
}

func NewAssignmentGuardAdapter(s *service.Service) *AssignmentGuardAdapter {
	return &AssignmentGuardAdapter{service: s}
}

func (a *AssignmentGuardAdapter) HoldsAccepted(ctx context.Context, artisanID, interventionID uuid.UUID) (bool, error) {
	return a.service.HoldsAccepted(ctx, artisanID, interventionID)
}

func (a *AssignmentGuardAdapter) RevokeActive(ctx context.Context, interventionID uuid.UUID) error {
	return a.service.RevokeActive(ctx, interventionID)
}
