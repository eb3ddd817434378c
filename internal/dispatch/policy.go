package dispatch

import (
	"time"

	"serrupro_backend/internal/interventions/domain"
	"serrupro_backend/platform/config"
)

// Policy holds the tunables of the hunt: fan-out width, proposal response
// windows per request kind, and the retry backoff curve.
type Policy struct {
	MaxAttempts  int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	FanOut       int
	TTLImmediate time.Duration
	TTLScheduled time.Duration
}

func PolicyFromConfig(cfg config.DispatchConfig) Policy {
	return Policy{
		MaxAttempts:  cfg.GetDispatchMaxAttempts(),
		BaseDelay:    cfg.GetDispatchBaseDelay(),
		MaxDelay:     cfg.GetDispatchMaxDelay(),
		FanOut:       cfg.GetDispatchFanOut(),
		TTLImmediate: cfg.GetProposalTTLImmediate(),
		TTLScheduled: cfg.GetProposalTTLScheduled(),
	}
}

// Backoff returns the delay before retry number attempt (1-based): the base
// delay doubled per attempt, capped at the maximum.
func (p Policy) Backoff(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// ProposalTTL returns the response window for a request kind. Immediate
// call-outs expect an answer in seconds; scheduled jobs can wait.
func (p Policy) ProposalTTL(kind domain.Kind) time.Duration {
	if kind == domain.KindImmediate {
		return p.TTLImmediate
	}
	return p.TTLScheduled
}
