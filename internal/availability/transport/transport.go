// Package transport defines the HTTP DTOs for the availability module.
package transport

import (
	"time"

	"serrupro_backend/internal/availability/repository"
)

// SetAvailabilityRequest is the artisan's full availability declaration.
// Position and radius are always sent; stale partial updates are not a
// concern because the whole record is replaced.
type SetAvailabilityRequest struct {
	Available bool    `json:"available"`
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
	RadiusKm  float64 `json:"radiusKm" validate:"required,gt=0,max=500"`
}

// AvailabilityResponse mirrors the stored record.
type AvailabilityResponse struct {
	Available      bool       `json:"available"`
	Latitude       float64    `json:"latitude"`
	Longitude      float64    `json:"longitude"`
	RadiusKm       float64    `json:"radiusKm"`
	LastAssignedAt *time.Time `json:"lastAssignedAt,omitempty"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func FromRecord(a repository.ArtisanAvailability) AvailabilityResponse {
	return AvailabilityResponse{
		Available:      a.Available,
		Latitude:       a.Latitude,
		Longitude:      a.Longitude,
		RadiusKm:       a.RadiusKm,
		LastAssignedAt: a.LastAssignedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}
