package adapters

import (
	"context"

	"serrupro_backend/internal/interventions/domain"
	"serrupro_backend/internal/interventions/service"

	"github.com/google/uuid"
)

// InterventionDriverAdapter exposes the lifecycle transitions the assignment
// coordinator needs, performed as the system actor.
type InterventionDriverAdapter struct {
	service *service.Service
}

func NewInterventionDriverAdapter(s *service.Service) *InterventionDriverAdapter {
	return &InterventionDriverAdapter{service: s}
}

func (a *InterventionDriverAdapter) Assign(ctx context.Context, interventionID uuid.UUID) error {
	return a.service.Transition(ctx, interventionID, domain.StatusAssigned, domain.ActorSystem, uuid.Nil)
}

func (a *InterventionDriverAdapter) RevertToSearching(ctx context.Context, interventionID uuid.UUID) error {
	return a.service.RevertToSearching(ctx, interventionID)
}
