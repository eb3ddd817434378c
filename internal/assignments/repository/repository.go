package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"serrupro_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Status is the lifecycle state of one proposal to one artisan.
type Status string

const (
	StatusProposed Status = "proposed"
	StatusAccepted Status = "accepted"
	StatusRefused  Status = "refused"
	StatusExpired  Status = "expired"
	StatusRevoked  Status = "revoked"
)

// ArtisanAssignment links one artisan to one intervention request. Rows are
// never deleted; terminal statuses form the audit trail.
type ArtisanAssignment struct {
	ID             uuid.UUID
	InterventionID uuid.UUID
	ArtisanID      uuid.UUID
	Status         Status
	ProposedAt     time.Time
	RespondedAt    *time.Time
	ExpiresAt      time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AssignmentsRepository is the persistence port for the coordinator. Accept
// is the race-resolution primitive: a conditional write backed by a partial
// unique index that admits at most one accepted row per intervention.
type AssignmentsRepository interface {
	CreateBatch(ctx context.Context, assignments []ArtisanAssignment) ([]ArtisanAssignment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*ArtisanAssignment, error)
	Accept(ctx context.Context, id uuid.UUID, now time.Time) error
	MarkResponded(ctx context.Context, id uuid.UUID, from, to Status) (bool, error)
	RevokeProposedSiblings(ctx context.Context, interventionID, winnerID uuid.UUID) ([]ArtisanAssignment, error)
	RevokeActive(ctx context.Context, interventionID uuid.UUID) ([]ArtisanAssignment, error)
	ExpireOverdue(ctx context.Context, now time.Time) ([]ArtisanAssignment, error)
	HasAccepted(ctx context.Context, interventionID uuid.UUID) (bool, error)
	HoldsAccepted(ctx context.Context, artisanID, interventionID uuid.UUID) (bool, error)
	CountProposed(ctx context.Context, interventionID uuid.UUID) (int, error)
	DeclinedArtisanIDs(ctx context.Context, interventionID uuid.UUID) ([]uuid.UUID, error)
	ListByArtisan(ctx context.Context, artisanID uuid.UUID, statuses []Status) ([]ArtisanAssignment, error)
	ListByIntervention(ctx context.Context, interventionID uuid.UUID) ([]ArtisanAssignment, error)
}

// exclusiveAcceptanceIndex is the partial unique index guaranteeing the
// single-winner invariant at the database level.
const exclusiveAcceptanceIndex = "idx_assignments_exclusive_acceptance"

// Repository is the pgx-backed implementation.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates an assignments repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const assignmentColumns = `id, intervention_id, artisan_id, status,
	proposed_at, responded_at, expires_at, created_at, updated_at`

func scanAssignment(row pgx.Row) (*ArtisanAssignment, error) {
	var a ArtisanAssignment
	err := row.Scan(
		&a.ID, &a.InterventionID, &a.ArtisanID, &a.Status,
		&a.ProposedAt, &a.RespondedAt, &a.ExpiresAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("assignment not found")
		}
		return nil, fmt.Errorf("scan assignment: %w", err)
	}
	return &a, nil
}

func collectAssignments(rows pgx.Rows) ([]ArtisanAssignment, error) {
	defer rows.Close()
	var out []ArtisanAssignment
	for rows.Next() {
		var a ArtisanAssignment
		if err := rows.Scan(
			&a.ID, &a.InterventionID, &a.ArtisanID, &a.Status,
			&a.ProposedAt, &a.RespondedAt, &a.ExpiresAt, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan assignment row: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}
	return out, nil
}

// CreateBatch inserts proposals. An artisan already holding a live proposal
// for the same intervention is skipped (ON CONFLICT DO NOTHING against the
// live-proposal index), so re-dispatch never duplicates an open offer.
func (r *Repository) CreateBatch(ctx context.Context, assignments []ArtisanAssignment) ([]ArtisanAssignment, error) {
	query := `
		INSERT INTO artisan_assignments
			(id, intervention_id, artisan_id, status, proposed_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT DO NOTHING
		RETURNING ` + assignmentColumns

	created := make([]ArtisanAssignment, 0, len(assignments))
	for _, a := range assignments {
		row := r.pool.QueryRow(ctx, query,
			a.ID, a.InterventionID, a.ArtisanID, a.Status, a.ProposedAt, a.ExpiresAt)
		saved, err := scanAssignment(row)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				continue // conflict: live proposal already exists for this artisan
			}
			return nil, fmt.Errorf("create assignment: %w", err)
		}
		created = append(created, *saved)
	}
	return created, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*ArtisanAssignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM artisan_assignments WHERE id = $1`
	return scanAssignment(r.pool.QueryRow(ctx, query, id))
}

// Accept atomically marks the assignment accepted. The partial unique index
// rejects a second acceptance for the same intervention; that race surfaces
// as a gone error ("job already taken").
func (r *Repository) Accept(ctx context.Context, id uuid.UUID, now time.Time) error {
	query := `
		UPDATE artisan_assignments
		SET status = $2, responded_at = $3, updated_at = now()
		WHERE id = $1 AND status = $4 AND expires_at > $3`

	tag, err := r.pool.Exec(ctx, query, id, StatusAccepted, now, StatusProposed)
	if err != nil {
		if strings.Contains(err.Error(), exclusiveAcceptanceIndex) {
			return apperr.Gone("this job was already taken by another artisan")
		}
		return fmt.Errorf("accept assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("assignment is not in a valid state to be accepted")
	}
	return nil
}

// MarkResponded performs a conditional status move and reports whether the
// row was in the expected state.
func (r *Repository) MarkResponded(ctx context.Context, id uuid.UUID, from, to Status) (bool, error) {
	query := `
		UPDATE artisan_assignments
		SET status = $3, responded_at = now(), updated_at = now()
		WHERE id = $1 AND status = $2`

	tag, err := r.pool.Exec(ctx, query, id, from, to)
	if err != nil {
		return false, fmt.Errorf("mark assignment %s: %w", to, err)
	}
	return tag.RowsAffected() > 0, nil
}

// RevokeProposedSiblings revokes every still-proposed sibling once a winner
// accepted. Returns the revoked rows for event publishing.
func (r *Repository) RevokeProposedSiblings(ctx context.Context, interventionID, winnerID uuid.UUID) ([]ArtisanAssignment, error) {
	query := `
		UPDATE artisan_assignments
		SET status = $3, updated_at = now()
		WHERE intervention_id = $1 AND id != $2 AND status = $4
		RETURNING ` + assignmentColumns

	rows, err := r.pool.Query(ctx, query, interventionID, winnerID, StatusRevoked, StatusProposed)
	if err != nil {
		return nil, fmt.Errorf("revoke sibling assignments: %w", err)
	}
	return collectAssignments(rows)
}

// RevokeActive revokes every live assignment (proposed or accepted) for an
// intervention. Used when a cancellation lands.
func (r *Repository) RevokeActive(ctx context.Context, interventionID uuid.UUID) ([]ArtisanAssignment, error) {
	query := `
		UPDATE artisan_assignments
		SET status = $2, updated_at = now()
		WHERE intervention_id = $1 AND status IN ($3, $4)
		RETURNING ` + assignmentColumns

	rows, err := r.pool.Query(ctx, query, interventionID, StatusRevoked, StatusProposed, StatusAccepted)
	if err != nil {
		return nil, fmt.Errorf("revoke active assignments: %w", err)
	}
	return collectAssignments(rows)
}

// ExpireOverdue marks all proposals past their response window as expired.
// Returns the expired rows for event publishing.
func (r *Repository) ExpireOverdue(ctx context.Context, now time.Time) ([]ArtisanAssignment, error) {
	query := `
		UPDATE artisan_assignments
		SET status = $2, updated_at = now()
		WHERE status = $3 AND expires_at < $1
		RETURNING ` + assignmentColumns

	rows, err := r.pool.Query(ctx, query, now, StatusExpired, StatusProposed)
	if err != nil {
		return nil, fmt.Errorf("expire assignments: %w", err)
	}
	return collectAssignments(rows)
}

func (r *Repository) HasAccepted(ctx context.Context, interventionID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM artisan_assignments WHERE intervention_id = $1 AND status = $2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, interventionID, StatusAccepted).Scan(&exists); err != nil {
		return false, fmt.Errorf("check accepted assignment: %w", err)
	}
	return exists, nil
}

func (r *Repository) HoldsAccepted(ctx context.Context, artisanID, interventionID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM artisan_assignments
		WHERE intervention_id = $1 AND artisan_id = $2 AND status = $3)`

	var holds bool
	if err := r.pool.QueryRow(ctx, query, interventionID, artisanID, StatusAccepted).Scan(&holds); err != nil {
		return false, fmt.Errorf("check assignment holder: %w", err)
	}
	return holds, nil
}

func (r *Repository) CountProposed(ctx context.Context, interventionID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM artisan_assignments WHERE intervention_id = $1 AND status = $2`

	var count int
	if err := r.pool.QueryRow(ctx, query, interventionID, StatusProposed).Scan(&count); err != nil {
		return 0, fmt.Errorf("count proposed assignments: %w", err)
	}
	return count, nil
}

// DeclinedArtisanIDs returns artisans who already refused or let this
// request expire; the orchestrator excludes them from re-dispatch.
func (r *Repository) DeclinedArtisanIDs(ctx context.Context, interventionID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT artisan_id FROM artisan_assignments
		WHERE intervention_id = $1 AND status IN ($2, $3)`

	rows, err := r.pool.Query(ctx, query, interventionID, StatusRefused, StatusExpired)
	if err != nil {
		return nil, fmt.Errorf("list declined artisans: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan declined artisan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate declined artisans: %w", err)
	}
	return ids, nil
}

func (r *Repository) ListByArtisan(ctx context.Context, artisanID uuid.UUID, statuses []Status) ([]ArtisanAssignment, error) {
	query := `SELECT ` + assignmentColumns + `
		FROM artisan_assignments
		WHERE artisan_id = $1 AND (CARDINALITY($2::text[]) = 0 OR status = ANY($2::text[]))
		ORDER BY proposed_at DESC`

	statusStrings := make([]string, 0, len(statuses))
	for _, s := range statuses {
		statusStrings = append(statusStrings, string(s))
	}

	rows, err := r.pool.Query(ctx, query, artisanID, statusStrings)
	if err != nil {
		return nil, fmt.Errorf("list artisan assignments: %w", err)
	}
	return collectAssignments(rows)
}

func (r *Repository) ListByIntervention(ctx context.Context, interventionID uuid.UUID) ([]ArtisanAssignment, error) {
	query := `SELECT ` + assignmentColumns + `
		FROM artisan_assignments WHERE intervention_id = $1 ORDER BY proposed_at`

	rows, err := r.pool.Query(ctx, query, interventionID)
	if err != nil {
		return nil, fmt.Errorf("list intervention assignments: %w", err)
	}
	return collectAssignments(rows)
}
