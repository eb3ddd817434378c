package scheduler

import (
	"context"
	"time"

	"serrupro_backend/platform/logger"
)

const defaultExpirySweepInterval = 10 * time.Second

// ProposalExpirer closes overdue proposals. Implemented by the assignments
// service.
type ProposalExpirer interface {
	ExpireOverdue(ctx context.Context) (int, error)
}

// ExpirySweeper periodically expires proposals whose response window has
// passed. The interval bounds how late an expiry can fire relative to the
// proposal deadline.
type ExpirySweeper struct {
	expirer  ProposalExpirer
	log      *logger.Logger
	interval time.Duration
}

func NewExpirySweeper(expirer ProposalExpirer, log *logger.Logger, interval time.Duration) *ExpirySweeper {
	if interval <= 0 {
		interval = defaultExpirySweepInterval
	}
	return &ExpirySweeper{expirer: expirer, log: log, interval: interval}
}

func (s *ExpirySweeper) Run(ctx context.Context) {
	if s == nil || s.expirer == nil {
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

func (s *ExpirySweeper) sweep(ctx context.Context) {
	expired, err := s.expirer.ExpireOverdue(ctx)
	if err != nil {
		s.log.Warn("proposal expiry sweep failed", "error", err)
		return
	}
	if expired > 0 {
		s.log.Info("expired overdue proposals", "count", expired)
	}
}
