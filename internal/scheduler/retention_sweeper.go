package scheduler

import (
	"context"
	"time"

	"serrupro_backend/platform/logger"
)

const defaultRetentionSweepInterval = time.Hour

// Anonymizer blanks personal data on requests past their retention date.
// Implemented by the interventions service.
type Anonymizer interface {
	AnonymizeExpired(ctx context.Context) (int, error)
}

// RetentionSweeper enforces the RGPD retention policy: terminal requests
// keep their operational fields but lose client-identifying data once the
// retention period has elapsed.
type RetentionSweeper struct {
	anonymizer Anonymizer
	log        *logger.Logger
	interval   time.Duration
}

func NewRetentionSweeper(anonymizer Anonymizer, log *logger.Logger, interval time.Duration) *RetentionSweeper {
	if interval <= 0 {
		interval = defaultRetentionSweepInterval
	}
	return &RetentionSweeper{anonymizer: anonymizer, log: log, interval: interval}
}

func (s *RetentionSweeper) Run(ctx context.Context) {
	if s == nil || s.anonymizer == nil {
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

func (s *RetentionSweeper) sweep(ctx context.Context) {
	anonymized, err := s.anonymizer.AnonymizeExpired(ctx)
	if err != nil {
		s.log.Warn("retention sweep failed", "error", err)
		return
	}
	if anonymized > 0 {
		s.log.Info("anonymized requests past retention", "count", anonymized)
	}
}
