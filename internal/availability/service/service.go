package service

import (
	"context"
	"time"

	"serrupro_backend/internal/availability/repository"
	"serrupro_backend/internal/events"
	"serrupro_backend/platform/apperr"
	"serrupro_backend/platform/logger"

	"github.com/google/uuid"
)

// Service maintains the availability register. Writes are last-write-wins
// and idempotent: setting the same flag twice publishes nothing.
type Service struct {
	repo     repository.AvailabilityRepository
	eventBus events.Bus
	log      *logger.Logger
}

func New(repo repository.AvailabilityRepository, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, eventBus: eventBus, log: log}
}

// SetParams is a full availability declaration from the artisan's device.
type SetParams struct {
	Available bool
	Latitude  float64
	Longitude float64
	RadiusKm  float64
}

// Set records the artisan's current availability. The position must be a
// plausible coordinate and the working radius strictly positive.
func (s *Service) Set(ctx context.Context, artisanID uuid.UUID, params SetParams) error {
	if params.Latitude < -90 || params.Latitude > 90 || params.Longitude < -180 || params.Longitude > 180 {
		return apperr.Validation("position is not a valid coordinate")
	}
	if params.RadiusKm <= 0 {
		return apperr.Validation("working radius must be positive")
	}

	changed, err := s.repo.Upsert(ctx, repository.ArtisanAvailability{
		ArtisanID: artisanID,
		Available: params.Available,
		Latitude:  params.Latitude,
		Longitude: params.Longitude,
		RadiusKm:  params.RadiusKm,
	})
	if err != nil {
		return err
	}

	if changed {
		s.eventBus.Publish(ctx, events.AvailabilityChanged{
			BaseEvent: events.NewBaseEvent(),
			ArtisanID: artisanID,
			Available: params.Available,
		})
	}
	return nil
}

// Get returns the artisan's current record.
func (s *Service) Get(ctx context.Context, artisanID uuid.UUID) (*repository.ArtisanAvailability, error) {
	return s.repo.Get(ctx, artisanID)
}

// TouchLastAssigned records an assignment win for fairness ordering.
func (s *Service) TouchLastAssigned(ctx context.Context, artisanID uuid.UUID, at time.Time) error {
	return s.repo.TouchLastAssigned(ctx, artisanID, at)
}
