// Package transport defines the HTTP DTOs for the interventions module.
package transport

import (
	"time"

	"serrupro_backend/internal/interventions/repository"

	"github.com/google/uuid"
)

// CreateInterventionRequest is a complete client submission. Draft state
// lives on the frontend; by the time it reaches the API the request is
// final.
type CreateInterventionRequest struct {
	Kind           string     `json:"kind" validate:"required,oneof=urgence rdv"`
	Situation      string     `json:"situation" validate:"required,max=2000"`
	Street         string     `json:"street" validate:"max=300"`
	PostalCode     string     `json:"postalCode" validate:"required,len=5"`
	City           string     `json:"city" validate:"required,max=150"`
	ScheduledStart *time.Time `json:"scheduledStart,omitempty"`
	ScheduledEnd   *time.Time `json:"scheduledEnd,omitempty"`
	PriceMinCents  *int64     `json:"priceMinCents,omitempty" validate:"omitempty,min=0"`
	PriceMaxCents  *int64     `json:"priceMaxCents,omitempty" validate:"omitempty,min=0"`
	ClientEmail    string     `json:"clientEmail" validate:"omitempty,email"`
	ClientPhone    string     `json:"clientPhone" validate:"required"`
}

// TransitionRequest asks for one move along the status graph.
type TransitionRequest struct {
	Status string `json:"status" validate:"required"`
}

// CancelRequest carries the optional cancellation reason.
type CancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// PublicCancelRequest cancels through the tracking surface. The email is the
// anonymous client's proof of ownership.
type PublicCancelRequest struct {
	Email  string `json:"email" validate:"required,email"`
	Reason string `json:"reason" validate:"max=500"`
}

// ResolveLocationRequest supplies coordinates for a request whose address
// could not be geocoded.
type ResolveLocationRequest struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
}

// InterventionResponse is the full operator/artisan view.
type InterventionResponse struct {
	ID             uuid.UUID  `json:"id"`
	TrackingCode   string     `json:"trackingCode"`
	Kind           string     `json:"kind"`
	Situation      string     `json:"situation"`
	Status         string     `json:"status"`
	Street         string     `json:"street,omitempty"`
	PostalCode     string     `json:"postalCode"`
	City           string     `json:"city"`
	Latitude       *float64   `json:"latitude,omitempty"`
	Longitude      *float64   `json:"longitude,omitempty"`
	ScheduledStart *time.Time `json:"scheduledStart,omitempty"`
	ScheduledEnd   *time.Time `json:"scheduledEnd,omitempty"`
	PriceMinCents  *int64     `json:"priceMinCents,omitempty"`
	PriceMaxCents  *int64     `json:"priceMaxCents,omitempty"`
	CancelReason   *string    `json:"cancelReason,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// TrackingResponse is the public client view: coarse status only, no
// artisan identity, no internal detail.
type TrackingResponse struct {
	TrackingCode string    `json:"trackingCode"`
	Kind         string    `json:"kind"`
	StatusLabel  string    `json:"statusLabel"`
	City         string    `json:"city"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func FromIntervention(iv repository.Intervention) InterventionResponse {
	return InterventionResponse{
		ID:             iv.ID,
		TrackingCode:   iv.TrackingCode,
		Kind:           string(iv.Kind),
		Situation:      iv.Situation,
		Status:         string(iv.Status),
		Street:         iv.Street,
		PostalCode:     iv.PostalCode,
		City:           iv.City,
		Latitude:       iv.Latitude,
		Longitude:      iv.Longitude,
		ScheduledStart: iv.ScheduledStart,
		ScheduledEnd:   iv.ScheduledEnd,
		PriceMinCents:  iv.PriceMinCents,
		PriceMaxCents:  iv.PriceMaxCents,
		CancelReason:   iv.CancelReason,
		CreatedAt:      iv.CreatedAt,
		UpdatedAt:      iv.UpdatedAt,
	}
}

func FromInterventionPublic(iv repository.Intervention) TrackingResponse {
	return TrackingResponse{
		TrackingCode: iv.TrackingCode,
		Kind:         string(iv.Kind),
		StatusLabel:  iv.Status.ClientLabel(),
		City:         iv.City,
		CreatedAt:    iv.CreatedAt,
		UpdatedAt:    iv.UpdatedAt,
	}
}
