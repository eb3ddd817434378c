// Package matching ranks available artisans for a request position. The
// ranking is pure computation; candidate rows come in through a repository
// port so it runs identically against Postgres or an in-memory fixture.
package matching

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Candidate is one available artisan as the register knows them.
type Candidate struct {
	ArtisanID      uuid.UUID
	Latitude       float64
	Longitude      float64
	RadiusKm       float64
	LastAssignedAt *time.Time
}

// RankedCandidate is a candidate that passed the radius filter, annotated
// with their distance to the request.
type RankedCandidate struct {
	Candidate
	DistanceKm float64
}

// CandidateSource lists artisans currently flagged available.
type CandidateSource interface {
	ListAvailable(ctx context.Context) ([]Candidate, error)
}

// Matcher filters and ranks candidates for a request position.
type Matcher struct {
	source CandidateSource
}

func NewMatcher(source CandidateSource) *Matcher {
	return &Matcher{source: source}
}

// Match returns the eligible artisans for a request at (lat, lon), nearest
// first. Eligibility is per artisan: the request must fall inside that
// artisan's own working radius. Excluded artisans (already declined, or
// holding a live proposal) are dropped. Equidistant artisans are ordered by
// longest idle, never-assigned first.
func (m *Matcher) Match(ctx context.Context, lat, lon float64, exclude []uuid.UUID) ([]RankedCandidate, error) {
	candidates, err := m.source.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}
	return Rank(lat, lon, candidates, exclude), nil
}

// Rank is the pure core of Match.
func Rank(lat, lon float64, candidates []Candidate, exclude []uuid.UUID) []RankedCandidate {
	excluded := make(map[uuid.UUID]struct{}, len(exclude))
	for _, id := range exclude {
		excluded[id] = struct{}{}
	}

	ranked := make([]RankedCandidate, 0, len(candidates))
	for _, c := range candidates {
		if _, skip := excluded[c.ArtisanID]; skip {
			continue
		}
		d := HaversineKm(lat, lon, c.Latitude, c.Longitude)
		if d > c.RadiusKm {
			continue
		}
		ranked = append(ranked, RankedCandidate{Candidate: c, DistanceKm: d})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].DistanceKm != ranked[j].DistanceKm {
			return ranked[i].DistanceKm < ranked[j].DistanceKm
		}
		return idleSince(ranked[i].LastAssignedAt).Before(idleSince(ranked[j].LastAssignedAt))
	})
	return ranked
}

// idleSince maps a last-assignment time to a sortable value where nil
// (never assigned) sorts before everything.
func idleSince(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
