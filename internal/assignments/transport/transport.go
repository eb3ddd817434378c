// Package transport defines the HTTP DTOs for the assignments module.
package transport

import (
	"time"

	"serrupro_backend/internal/assignments/repository"

	"github.com/google/uuid"
)

// RespondRequest carries an artisan's answer to a proposal.
type RespondRequest struct {
	Decision string `json:"decision" validate:"required,oneof=accept refuse"`
}

// AssignmentResponse is the artisan-facing view of one assignment.
type AssignmentResponse struct {
	ID             uuid.UUID  `json:"id"`
	InterventionID uuid.UUID  `json:"interventionId"`
	Status         string     `json:"status"`
	ProposedAt     time.Time  `json:"proposedAt"`
	RespondedAt    *time.Time `json:"respondedAt,omitempty"`
	ExpiresAt      time.Time  `json:"expiresAt"`
}

// FromAssignment maps a persistence row to the response DTO.
func FromAssignment(a repository.ArtisanAssignment) AssignmentResponse {
	return AssignmentResponse{
		ID:             a.ID,
		InterventionID: a.InterventionID,
		Status:         string(a.Status),
		ProposedAt:     a.ProposedAt,
		RespondedAt:    a.RespondedAt,
		ExpiresAt:      a.ExpiresAt,
	}
}

// FromAssignments maps a slice of rows.
func FromAssignments(rows []repository.ArtisanAssignment) []AssignmentResponse {
	out := make([]AssignmentResponse, 0, len(rows))
	for _, a := range rows {
		out = append(out, FromAssignment(a))
	}
	return out
}
