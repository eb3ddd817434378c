// Package dispatch runs the artisan hunt: it reacts to lifecycle events,
// asks the matcher for candidates, fans proposals out through the assignment
// coordinator and retries with backoff until someone accepts or the budget
// is spent.
package dispatch

import (
	"context"
	"sync"
	"time"

	"serrupro_backend/internal/events"
	"serrupro_backend/internal/interventions/domain"
	ivrepo "serrupro_backend/internal/interventions/repository"
	"serrupro_backend/internal/matching"
	"serrupro_backend/platform/apperr"
	"serrupro_backend/platform/logger"

	"github.com/google/uuid"
)

// InterventionSource reads request state. The orchestrator never writes the
// lifecycle directly; acceptance drives it through the coordinator.
type InterventionSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*ivrepo.Intervention, error)
}

// Coordinator is the port into the assignments module.
type Coordinator interface {
	Propose(ctx context.Context, interventionID uuid.UUID, artisanIDs []uuid.UUID, ttl time.Duration) (created int, err error)
	DeclinedArtisanIDs(ctx context.Context, interventionID uuid.UUID) ([]uuid.UUID, error)
	OutstandingProposals(ctx context.Context, interventionID uuid.UUID) (int, error)
}

// CandidateMatcher ranks eligible artisans for a position.
type CandidateMatcher interface {
	Match(ctx context.Context, lat, lon float64, exclude []uuid.UUID) ([]matching.RankedCandidate, error)
}

// RetryScheduler enqueues a delayed dispatch cycle. Backed by asynq so
// retries survive process restarts.
type RetryScheduler interface {
	ScheduleDispatch(ctx context.Context, interventionID uuid.UUID, attempt int, delay time.Duration) error
}

// Orchestrator drives dispatch for all searching requests. Attempt counts
// are tracked in memory per request and reset every time a request
// (re)enters searching; the asynq payload carries the attempt too so a
// scheduled retry survives a restart.
type Orchestrator struct {
	interventions InterventionSource
	coordinator   Coordinator
	matcher       CandidateMatcher
	retries       RetryScheduler
	eventBus      events.Bus
	policy        Policy
	log           *logger.Logger

	mu       sync.Mutex
	attempts map[uuid.UUID]int
}

func NewOrchestrator(
	interventions InterventionSource,
	coordinator Coordinator,
	matcher CandidateMatcher,
	retries RetryScheduler,
	eventBus events.Bus,
	policy Policy,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		interventions: interventions,
		coordinator:   coordinator,
		matcher:       matcher,
		retries:       retries,
		eventBus:      eventBus,
		policy:        policy,
		log:           log,
		attempts:      make(map[uuid.UUID]int),
	}
}

// Start subscribes the orchestrator to the lifecycle and assignment events
// that trigger dispatch activity.
func (o *Orchestrator) Start() {
	o.eventBus.Subscribe(events.InterventionStatusChanged{}.EventName(),
		events.HandlerFunc(o.onStatusChanged))
	o.eventBus.Subscribe(events.AssignmentRefused{}.EventName(),
		events.HandlerFunc(o.onAssignmentClosed))
	o.eventBus.Subscribe(events.AssignmentExpired{}.EventName(),
		events.HandlerFunc(o.onAssignmentClosed))
}

func (o *Orchestrator) onStatusChanged(ctx context.Context, event events.Event) error {
	e, ok := event.(events.InterventionStatusChanged)
	if !ok {
		return nil
	}

	switch domain.Status(e.NewStatus) {
	case domain.StatusSearching:
		// Fresh hunt: either a new request or a rollback after a
		// withdrawal. The attempt budget starts over.
		o.resetAttempts(e.InterventionID)
		return o.RunCycle(ctx, e.InterventionID, 1)
	case domain.StatusAssigned, domain.StatusCancelled, domain.StatusCompleted:
		o.forget(e.InterventionID)
	}
	return nil
}

// onAssignmentClosed fires when a proposal dies without a winner. Once the
// whole wave is dead and the request still searches, the next cycle is
// scheduled with backoff.
func (o *Orchestrator) onAssignmentClosed(ctx context.Context, event events.Event) error {
	var interventionID uuid.UUID
	switch e := event.(type) {
	case events.AssignmentRefused:
		if e.Withdrawal {
			return nil // rollback to searching re-triggers dispatch itself
		}
		interventionID = e.InterventionID
	case events.AssignmentExpired:
		interventionID = e.InterventionID
	default:
		return nil
	}

	outstanding, err := o.coordinator.OutstandingProposals(ctx, interventionID)
	if err != nil {
		return err
	}
	if outstanding > 0 {
		return nil // siblings still pending an answer
	}

	iv, err := o.interventions.GetByID(ctx, interventionID)
	if err != nil {
		return err
	}
	if iv.Status != domain.StatusSearching {
		return nil
	}

	attempt := o.nextAttempt(interventionID)
	if attempt > o.policy.MaxAttempts {
		o.exhaust(ctx, iv)
		return nil
	}
	return o.retries.ScheduleDispatch(ctx, interventionID, attempt, o.policy.Backoff(attempt))
}

// RunCycle executes one dispatch cycle. Safe to call with stale triggers:
// anything but a searching request with known coordinates is a no-op.
func (o *Orchestrator) RunCycle(ctx context.Context, interventionID uuid.UUID, attempt int) error {
	iv, err := o.interventions.GetByID(ctx, interventionID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil
		}
		return err
	}
	if iv.Status != domain.StatusSearching {
		o.log.Info("skipping dispatch cycle, request no longer searching",
			"interventionId", interventionID, "status", iv.Status)
		return nil
	}
	if iv.Latitude == nil || iv.Longitude == nil {
		o.log.Warn("skipping dispatch cycle, location unresolved",
			"interventionId", interventionID)
		return nil
	}

	o.recordAttempt(interventionID, attempt)

	exclude, err := o.coordinator.DeclinedArtisanIDs(ctx, interventionID)
	if err != nil {
		return err
	}

	ranked, err := o.matcher.Match(ctx, *iv.Latitude, *iv.Longitude, exclude)
	if err != nil {
		return err
	}
	if len(ranked) > o.policy.FanOut {
		ranked = ranked[:o.policy.FanOut]
	}

	if len(ranked) == 0 {
		o.eventBus.Publish(ctx, events.DispatchNoCandidates{
			BaseEvent:      events.NewBaseEvent(),
			InterventionID: interventionID,
			Attempt:        attempt,
		})
		if attempt >= o.policy.MaxAttempts {
			o.exhaust(ctx, iv)
			return nil
		}
		o.log.DispatchCycle(interventionID.String(), attempt, 0, 0)
		return o.retries.ScheduleDispatch(ctx, interventionID, attempt+1, o.policy.Backoff(attempt))
	}

	artisanIDs := make([]uuid.UUID, 0, len(ranked))
	for _, c := range ranked {
		artisanIDs = append(artisanIDs, c.ArtisanID)
	}

	created, err := o.coordinator.Propose(ctx, interventionID, artisanIDs, o.policy.ProposalTTL(iv.Kind))
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return nil // winner appeared while we were matching
		}
		return err
	}

	o.log.DispatchCycle(interventionID.String(), attempt, len(ranked), created)
	return nil
}

func (o *Orchestrator) exhaust(ctx context.Context, iv *ivrepo.Intervention) {
	attempts := o.currentAttempt(iv.ID)
	o.forget(iv.ID)

	o.log.Warn("dispatch budget exhausted, request stays in searching",
		"interventionId", iv.ID, "attempts", attempts)
	o.eventBus.Publish(ctx, events.DispatchExhausted{
		BaseEvent:      events.NewBaseEvent(),
		InterventionID: iv.ID,
		TrackingCode:   iv.TrackingCode,
		Attempts:       attempts,
		ClientEmail:    clientEmail(iv),
	})
}

func clientEmail(iv *ivrepo.Intervention) string {
	if iv.ClientEmail == nil {
		return ""
	}
	return *iv.ClientEmail
}

func (o *Orchestrator) recordAttempt(id uuid.UUID, attempt int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if attempt > o.attempts[id] {
		o.attempts[id] = attempt
	}
}

func (o *Orchestrator) nextAttempt(id uuid.UUID) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.attempts[id] + 1
}

func (o *Orchestrator) currentAttempt(id uuid.UUID) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	if n, ok := o.attempts[id]; ok {
		return n
	}
	return o.policy.MaxAttempts
}

func (o *Orchestrator) resetAttempts(id uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attempts[id] = 0
}

func (o *Orchestrator) forget(id uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.attempts, id)
}
