// Package repository reads matching candidates from the availability
// register. Distance math stays in Go; the query only filters on the flag.
package repository

import (
	"context"
	"fmt"

	"serrupro_backend/internal/matching"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) ListAvailable(ctx context.Context) ([]matching.Candidate, error) {
	query := `
		SELECT artisan_id, latitude, longitude, radius_km, last_assigned_at
		FROM artisan_availability
		WHERE available = true`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list available artisans: %w", err)
	}
	defer rows.Close()

	var out []matching.Candidate
	for rows.Next() {
		var c matching.Candidate
		if err := rows.Scan(&c.ArtisanID, &c.Latitude, &c.Longitude, &c.RadiusKm, &c.LastAssignedAt); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return out, nil
}

var _ matching.CandidateSource = (*Repository)(nil)
