package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"serrupro_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ArtisanAvailability is an artisan's dispatchability record: the on/off
// duty flag, their base position and how far they are willing to travel.
type ArtisanAvailability struct {
	ArtisanID      uuid.UUID
	Available      bool
	Latitude       float64
	Longitude      float64
	RadiusKm       float64
	LastAssignedAt *time.Time
	UpdatedAt      time.Time
}

// AvailabilityRepository is the persistence port for the register.
type AvailabilityRepository interface {
	Upsert(ctx context.Context, a ArtisanAvailability) (changed bool, err error)
	Get(ctx context.Context, artisanID uuid.UUID) (*ArtisanAvailability, error)
	TouchLastAssigned(ctx context.Context, artisanID uuid.UUID, at time.Time) error
}

// Repository is the pgx-backed implementation.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert writes the full record, last write wins. Reports whether the
// available flag actually flipped so callers can suppress no-op events.
// The previous value is read back in the same statement via a CTE.
func (r *Repository) Upsert(ctx context.Context, a ArtisanAvailability) (bool, error) {
	query := `
		WITH prev AS (
			SELECT available FROM artisan_availability WHERE artisan_id = $1
		), upserted AS (
			INSERT INTO artisan_availability
				(artisan_id, available, latitude, longitude, radius_km, updated_at)
			VALUES ($1, $2, $3, $4, $5, now())
			ON CONFLICT (artisan_id) DO UPDATE SET
				available = EXCLUDED.available,
				latitude = EXCLUDED.latitude,
				longitude = EXCLUDED.longitude,
				radius_km = EXCLUDED.radius_km,
				updated_at = now()
		)
		SELECT COALESCE((SELECT available FROM prev) IS DISTINCT FROM $2::boolean, true)`

	var changed bool
	err := r.pool.QueryRow(ctx, query,
		a.ArtisanID, a.Available, a.Latitude, a.Longitude, a.RadiusKm,
	).Scan(&changed)
	if err != nil {
		return false, fmt.Errorf("upsert availability: %w", err)
	}
	return changed, nil
}

func (r *Repository) Get(ctx context.Context, artisanID uuid.UUID) (*ArtisanAvailability, error) {
	query := `
		SELECT artisan_id, available, latitude, longitude, radius_km,
			last_assigned_at, updated_at
		FROM artisan_availability WHERE artisan_id = $1`

	var a ArtisanAvailability
	err := r.pool.QueryRow(ctx, query, artisanID).Scan(
		&a.ArtisanID, &a.Available, &a.Latitude, &a.Longitude, &a.RadiusKm,
		&a.LastAssignedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("availability record not found")
		}
		return nil, fmt.Errorf("get availability: %w", err)
	}
	return &a, nil
}

// TouchLastAssigned records the moment an artisan won an assignment, used
// for the longest-idle fairness ordering.
func (r *Repository) TouchLastAssigned(ctx context.Context, artisanID uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE artisan_availability SET last_assigned_at = $2, updated_at = now()
		WHERE artisan_id = $1`, artisanID, at)
	if err != nil {
		return fmt.Errorf("touch last assigned: %w", err)
	}
	return nil
}
