package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"serrupro_backend/internal/interventions/domain"
	"serrupro_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Intervention is the aggregate root for one client's service need.
// Rows are never hard-deleted; the retention sweep anonymizes terminal rows
// once their RGPD window has elapsed.
type Intervention struct {
	ID             uuid.UUID
	TrackingCode   string
	Kind           domain.Kind
	Situation      string
	Status         domain.Status
	Street         string
	PostalCode     string
	City           string
	Latitude       *float64
	Longitude      *float64
	ScheduledStart *time.Time
	ScheduledEnd   *time.Time
	PriceMinCents  *int64
	PriceMaxCents  *int64
	ClientUserID   *uuid.UUID
	ClientEmail    *string
	ClientPhone    string
	CancelReason   *string
	RetentionUntil time.Time
	AnonymizedAt   *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// InterventionsRepository is the persistence port for the state machine.
// UpdateStatusIf is the per-request serialization primitive: a conditional
// write that only succeeds when the row still holds the expected status.
type InterventionsRepository interface {
	Create(ctx context.Context, iv Intervention) (*Intervention, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Intervention, error)
	GetByTrackingCode(ctx context.Context, code string) (*Intervention, error)
	UpdateStatusIf(ctx context.Context, id uuid.UUID, expected, next domain.Status, reason *string) (bool, error)
	CancelIfActive(ctx context.Context, id uuid.UUID, reason string) (bool, error)
	SetCoordinates(ctx context.Context, id uuid.UUID, lat, lon float64) error
	ListDueScheduled(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
	AnonymizeExpired(ctx context.Context, now time.Time) (int, error)
}

// Repository is the pgx-backed implementation.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates an interventions repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const interventionColumns = `id, tracking_code, kind, situation, status,
	street, postal_code, city, latitude, longitude,
	scheduled_start, scheduled_end, price_min_cents, price_max_cents,
	client_user_id, client_email, client_phone, cancel_reason,
	retention_until, anonymized_at, created_at, updated_at`

func scanIntervention(row pgx.Row) (*Intervention, error) {
	var iv Intervention
	err := row.Scan(
		&iv.ID, &iv.TrackingCode, &iv.Kind, &iv.Situation, &iv.Status,
		&iv.Street, &iv.PostalCode, &iv.City, &iv.Latitude, &iv.Longitude,
		&iv.ScheduledStart, &iv.ScheduledEnd, &iv.PriceMinCents, &iv.PriceMaxCents,
		&iv.ClientUserID, &iv.ClientEmail, &iv.ClientPhone, &iv.CancelReason,
		&iv.RetentionUntil, &iv.AnonymizedAt, &iv.CreatedAt, &iv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("intervention not found")
		}
		return nil, fmt.Errorf("scan intervention: %w", err)
	}
	return &iv, nil
}

func (r *Repository) Create(ctx context.Context, iv Intervention) (*Intervention, error) {
	query := `
		INSERT INTO interventions
			(id, tracking_code, kind, situation, status,
			 street, postal_code, city, latitude, longitude,
			 scheduled_start, scheduled_end, price_min_cents, price_max_cents,
			 client_user_id, client_email, client_phone, retention_until)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			 $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING ` + interventionColumns

	row := r.pool.QueryRow(ctx, query,
		iv.ID, iv.TrackingCode, iv.Kind, iv.Situation, iv.Status,
		iv.Street, iv.PostalCode, iv.City, iv.Latitude, iv.Longitude,
		iv.ScheduledStart, iv.ScheduledEnd, iv.PriceMinCents, iv.PriceMaxCents,
		iv.ClientUserID, iv.ClientEmail, iv.ClientPhone, iv.RetentionUntil,
	)
	saved, err := scanIntervention(row)
	if err != nil {
		return nil, fmt.Errorf("create intervention: %w", err)
	}
	return saved, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Intervention, error) {
	query := `SELECT ` + interventionColumns + ` FROM interventions WHERE id = $1`
	return scanIntervention(r.pool.QueryRow(ctx, query, id))
}

func (r *Repository) GetByTrackingCode(ctx context.Context, code string) (*Intervention, error) {
	query := `SELECT ` + interventionColumns + ` FROM interventions WHERE tracking_code = $1`
	return scanIntervention(r.pool.QueryRow(ctx, query, code))
}

// UpdateStatusIf performs the conditional status write. It returns false
// (without error) when the row no longer holds the expected status, which
// tells the service a concurrent writer won.
func (r *Repository) UpdateStatusIf(ctx context.Context, id uuid.UUID, expected, next domain.Status, reason *string) (bool, error) {
	query := `
		UPDATE interventions
		SET status = $3,
		    cancel_reason = COALESCE($4, cancel_reason),
		    updated_at = now()
		WHERE id = $1 AND status = $2`

	tag, err := r.pool.Exec(ctx, query, id, expected, next, reason)
	if err != nil {
		return false, fmt.Errorf("update intervention status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CancelIfActive moves the request to cancelled from any non-terminal state.
func (r *Repository) CancelIfActive(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	query := `
		UPDATE interventions
		SET status = $2, cancel_reason = $3, updated_at = now()
		WHERE id = $1 AND status NOT IN ($4, $5)`

	tag, err := r.pool.Exec(ctx, query, id, domain.StatusCancelled, reason,
		domain.StatusCompleted, domain.StatusCancelled)
	if err != nil {
		return false, fmt.Errorf("cancel intervention: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) SetCoordinates(ctx context.Context, id uuid.UUID, lat, lon float64) error {
	query := `UPDATE interventions SET latitude = $2, longitude = $3, updated_at = now() WHERE id = $1`
	if _, err := r.pool.Exec(ctx, query, id, lat, lon); err != nil {
		return fmt.Errorf("set intervention coordinates: %w", err)
	}
	return nil
}

// ListDueScheduled returns pending scheduled requests whose window opens at
// or before the cutoff. Rows without coordinates are skipped; those stay in
// pending until their location is resolved.
func (r *Repository) ListDueScheduled(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM interventions
		WHERE status = $1
		  AND kind = $2
		  AND scheduled_start <= $3
		  AND latitude IS NOT NULL
		  AND longitude IS NOT NULL
		ORDER BY scheduled_start`

	rows, err := r.pool.Query(ctx, query, domain.StatusPending, domain.KindScheduled, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list due scheduled interventions: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan due scheduled intervention: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list due scheduled interventions: %w", err)
	}
	return ids, nil
}

// AnonymizeExpired blanks client identity on terminal rows past their RGPD
// retention window. Rows stay for audit; only personal data is removed.
func (r *Repository) AnonymizeExpired(ctx context.Context, now time.Time) (int, error) {
	query := `
		UPDATE interventions
		SET client_email = NULL,
		    client_phone = '',
		    street = '',
		    anonymized_at = now(),
		    updated_at = now()
		WHERE anonymized_at IS NULL
		  AND retention_until < $1
		  AND status IN ($2, $3)`

	tag, err := r.pool.Exec(ctx, query, now, domain.StatusCompleted, domain.StatusCancelled)
	if err != nil {
		return 0, fmt.Errorf("anonymize interventions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
