package scheduler

import (
	"context"
	"time"

	"serrupro_backend/platform/logger"
)

const (
	defaultScheduledReleaseInterval = time.Minute
	defaultScheduledReleaseLead     = 2 * time.Hour
)

// ScheduledReleaser moves due scheduled requests into dispatch. Implemented
// by the interventions service.
type ScheduledReleaser interface {
	ReleaseDueScheduled(ctx context.Context, lead time.Duration) (int, error)
}

// ScheduledReleaseSweeper periodically releases scheduled requests whose
// window opens within the lead duration, so candidate search starts ahead of
// the appointment instead of at it.
type ScheduledReleaseSweeper struct {
	releaser ScheduledReleaser
	log      *logger.Logger
	interval time.Duration
	lead     time.Duration
}

func NewScheduledReleaseSweeper(releaser ScheduledReleaser, log *logger.Logger, interval, lead time.Duration) *ScheduledReleaseSweeper {
	if interval <= 0 {
		interval = defaultScheduledReleaseInterval
	}
	if lead <= 0 {
		lead = defaultScheduledReleaseLead
	}
	return &ScheduledReleaseSweeper{releaser: releaser, log: log, interval: interval, lead: lead}
}

func (s *ScheduledReleaseSweeper) Run(ctx context.Context) {
	if s == nil || s.releaser == nil {
		return
	}

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *ScheduledReleaseSweeper) sweep(ctx context.Context) {
	released, err := s.releaser.ReleaseDueScheduled(ctx, s.lead)
	if err != nil {
		s.log.Warn("scheduled release sweep failed", "error", err)
		return
	}
	if released > 0 {
		s.log.Info("released scheduled interventions into dispatch", "count", released)
	}
}
