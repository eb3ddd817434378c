// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"serrupro_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Intervention Domain Events
// =============================================================================

// InterventionCreated is published when a client submits a new request.
type InterventionCreated struct {
	BaseEvent
	InterventionID uuid.UUID `json:"interventionId"`
	TrackingCode   string    `json:"trackingCode"`
	Kind           string    `json:"kind"`
	Situation      string    `json:"situation"`
	PostalCode     string    `json:"postalCode"`
	City           string    `json:"city"`
	ClientEmail    string    `json:"clientEmail,omitempty"`
}

func (e InterventionCreated) EventName() string { return "interventions.created" }

// InterventionStatusChanged is published on every state machine transition.
// Downstream consumers (realtime UI sync, notification relay, the dispatch
// orchestrator) subscribe to this; the core never delivers notifications
// itself.
type InterventionStatusChanged struct {
	BaseEvent
	InterventionID uuid.UUID `json:"interventionId"`
	TrackingCode   string    `json:"trackingCode"`
	OldStatus      string    `json:"oldStatus"`
	NewStatus      string    `json:"newStatus"`
	Actor          string    `json:"actor"`
	Reason         string    `json:"reason,omitempty"`
	ClientEmail    string    `json:"clientEmail,omitempty"`
}

func (e InterventionStatusChanged) EventName() string { return "interventions.status_changed" }

// InterventionLocationUnresolved is published when geocoding fails at
// creation; the request is held in pending until resolved.
type InterventionLocationUnresolved struct {
	BaseEvent
	InterventionID uuid.UUID `json:"interventionId"`
	PostalCode     string    `json:"postalCode"`
	City           string    `json:"city"`
}

func (e InterventionLocationUnresolved) EventName() string {
	return "interventions.location_unresolved"
}

// =============================================================================
// Assignment Domain Events
// =============================================================================

// AssignmentProposed is published when a request is offered to an artisan.
type AssignmentProposed struct {
	BaseEvent
	AssignmentID   uuid.UUID `json:"assignmentId"`
	InterventionID uuid.UUID `json:"interventionId"`
	ArtisanID      uuid.UUID `json:"artisanId"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

func (e AssignmentProposed) EventName() string { return "assignments.proposed" }

// AssignmentAccepted is published when an artisan wins a proposal.
type AssignmentAccepted struct {
	BaseEvent
	AssignmentID   uuid.UUID `json:"assignmentId"`
	InterventionID uuid.UUID `json:"interventionId"`
	ArtisanID      uuid.UUID `json:"artisanId"`
}

func (e AssignmentAccepted) EventName() string { return "assignments.accepted" }

// AssignmentRefused is published when an artisan declines. Withdrawal is
// true when an already-accepted assignment was given up, which sends the
// request back to searching.
type AssignmentRefused struct {
	BaseEvent
	AssignmentID   uuid.UUID `json:"assignmentId"`
	InterventionID uuid.UUID `json:"interventionId"`
	ArtisanID      uuid.UUID `json:"artisanId"`
	Withdrawal     bool      `json:"withdrawal"`
}

func (e AssignmentRefused) EventName() string { return "assignments.refused" }

// AssignmentExpired is published by the expiry sweep when an artisan never
// responded within the proposal window.
type AssignmentExpired struct {
	BaseEvent
	AssignmentID   uuid.UUID `json:"assignmentId"`
	InterventionID uuid.UUID `json:"interventionId"`
	ArtisanID      uuid.UUID `json:"artisanId"`
}

func (e AssignmentExpired) EventName() string { return "assignments.expired" }

// AssignmentRevoked is published when a sibling proposal is withdrawn
// because another artisan accepted, or the request was cancelled.
type AssignmentRevoked struct {
	BaseEvent
	AssignmentID   uuid.UUID `json:"assignmentId"`
	InterventionID uuid.UUID `json:"interventionId"`
	ArtisanID      uuid.UUID `json:"artisanId"`
}

func (e AssignmentRevoked) EventName() string { return "assignments.revoked" }

// =============================================================================
// Dispatch Domain Events
// =============================================================================

// DispatchNoCandidates is published when a dispatch cycle finds no eligible
// artisan. This is a retry signal, not an error.
type DispatchNoCandidates struct {
	BaseEvent
	InterventionID uuid.UUID `json:"interventionId"`
	Attempt        int       `json:"attempt"`
}

func (e DispatchNoCandidates) EventName() string { return "dispatch.no_candidates_found" }

// DispatchExhausted is published after the retry budget is spent with no
// artisan found. The request stays in searching; a human decides next.
type DispatchExhausted struct {
	BaseEvent
	InterventionID uuid.UUID `json:"interventionId"`
	TrackingCode   string    `json:"trackingCode"`
	Attempts       int       `json:"attempts"`
	ClientEmail    string    `json:"clientEmail,omitempty"`
}

func (e DispatchExhausted) EventName() string { return "dispatch.exhausted" }

// =============================================================================
// Availability Domain Events
// =============================================================================

// AvailabilityChanged is published when an artisan actually flips their
// on/off duty flag (idempotent writes with an unchanged value emit nothing).
type AvailabilityChanged struct {
	BaseEvent
	ArtisanID uuid.UUID `json:"artisanId"`
	Available bool      `json:"available"`
}

func (e AvailabilityChanged) EventName() string { return "availability.changed" }
