package service

import (
	"context"
	"time"

	"serrupro_backend/internal/assignments/repository"
	"serrupro_backend/internal/events"
	"serrupro_backend/platform/apperr"
	"serrupro_backend/platform/logger"

	"github.com/google/uuid"
)

// InterventionDriver is the port back into the interventions module. Assign
// performs the searching to assigned transition as the system actor; it
// fails with a conflict when the request left searching in the meantime
// (cancellation wins that race).
type InterventionDriver interface {
	Assign(ctx context.Context, interventionID uuid.UUID) error
	RevertToSearching(ctx context.Context, interventionID uuid.UUID) error
}

// LastAssignedRecorder records the moment an artisan won an assignment, which
// feeds the longest-idle fairness ordering in the matcher.
type LastAssignedRecorder interface {
	TouchLastAssigned(ctx context.Context, artisanID uuid.UUID, at time.Time) error
}

// Decision is an artisan's answer to a proposal.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionRefuse Decision = "refuse"
)

// Service coordinates the offer lifecycle: fan-out proposals, resolve the
// acceptance race to exactly one winner, and keep the intervention status in
// agreement with the surviving assignment.
type Service struct {
	repo          repository.AssignmentsRepository
	interventions InterventionDriver
	availability  LastAssignedRecorder
	eventBus      events.Bus
	log           *logger.Logger
	now           func() time.Time
}

// New creates the assignment coordinator. The interventions driver is wired
// later via SetInterventionDriver because the two modules reference each
// other.
func New(repo repository.AssignmentsRepository, availability LastAssignedRecorder, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:         repo,
		availability: availability,
		eventBus:     eventBus,
		log:          log,
		now:          time.Now,
	}
}

// SetInterventionDriver wires the interventions module after construction.
func (s *Service) SetInterventionDriver(driver InterventionDriver) {
	s.interventions = driver
}

// SetNowFunc overrides the time source. Test hook.
func (s *Service) SetNowFunc(now func() time.Time) {
	s.now = now
}

// Propose fans a request out to the given artisans with a response deadline.
// Refuses to add proposals once a winner exists. Artisans who already hold a
// live proposal for this request are silently skipped.
func (s *Service) Propose(ctx context.Context, interventionID uuid.UUID, artisanIDs []uuid.UUID, ttl time.Duration) ([]repository.ArtisanAssignment, error) {
	if len(artisanIDs) == 0 {
		return nil, nil
	}

	accepted, err := s.repo.HasAccepted(ctx, interventionID)
	if err != nil {
		return nil, err
	}
	if accepted {
		return nil, apperr.Conflict("request already has an accepted assignment")
	}

	now := s.now()
	batch := make([]repository.ArtisanAssignment, 0, len(artisanIDs))
	for _, artisanID := range artisanIDs {
		batch = append(batch, repository.ArtisanAssignment{
			ID:             uuid.New(),
			InterventionID: interventionID,
			ArtisanID:      artisanID,
			Status:         repository.StatusProposed,
			ProposedAt:     now,
			ExpiresAt:      now.Add(ttl),
		})
	}

	created, err := s.repo.CreateBatch(ctx, batch)
	if err != nil {
		return nil, err
	}

	for _, a := range created {
		s.eventBus.Publish(ctx, events.AssignmentProposed{
			BaseEvent:      events.NewBaseEvent(),
			AssignmentID:   a.ID,
			InterventionID: a.InterventionID,
			ArtisanID:      a.ArtisanID,
			ExpiresAt:      a.ExpiresAt,
		})
	}
	return created, nil
}

// Respond applies an artisan's decision to their proposal. Acceptance is the
// race-sensitive path: the database resolves concurrent accepts to a single
// winner, then the intervention is moved to assigned. If that move fails the
// request was cancelled underneath us and the acceptance is rolled back.
func (s *Service) Respond(ctx context.Context, assignmentID, artisanID uuid.UUID, decision Decision) (*repository.ArtisanAssignment, error) {
	a, err := s.repo.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if a.ArtisanID != artisanID {
		return nil, apperr.Forbidden("this proposal belongs to another artisan")
	}

	switch decision {
	case DecisionAccept:
		return s.accept(ctx, a)
	case DecisionRefuse:
		return s.refuse(ctx, a)
	default:
		return nil, apperr.Validation("decision must be accept or refuse")
	}
}

func (s *Service) accept(ctx context.Context, a *repository.ArtisanAssignment) (*repository.ArtisanAssignment, error) {
	switch a.Status {
	case repository.StatusAccepted:
		return a, nil // already won, idempotent
	case repository.StatusRefused, repository.StatusExpired, repository.StatusRevoked:
		return nil, apperr.Gone("this proposal is no longer open")
	}

	now := s.now()
	if err := s.repo.Accept(ctx, a.ID, now); err != nil {
		return nil, err
	}
	a.Status = repository.StatusAccepted
	a.RespondedAt = &now

	revoked, err := s.repo.RevokeProposedSiblings(ctx, a.InterventionID, a.ID)
	if err != nil {
		s.log.Error("failed to revoke sibling proposals",
			"interventionId", a.InterventionID, "error", err)
	}
	for _, sibling := range revoked {
		s.eventBus.Publish(ctx, events.AssignmentRevoked{
			BaseEvent:      events.NewBaseEvent(),
			AssignmentID:   sibling.ID,
			InterventionID: sibling.InterventionID,
			ArtisanID:      sibling.ArtisanID,
		})
	}

	if err := s.interventions.Assign(ctx, a.InterventionID); err != nil {
		// The request left searching, almost always a cancellation.
		// Cancellation takes precedence: undo the acceptance.
		if _, rbErr := s.repo.MarkResponded(ctx, a.ID, repository.StatusAccepted, repository.StatusRevoked); rbErr != nil {
			s.log.Error("failed to roll back acceptance after lost assign race",
				"assignmentId", a.ID, "error", rbErr)
		}
		return nil, apperr.Gone("this request was cancelled before your acceptance completed")
	}

	if err := s.availability.TouchLastAssigned(ctx, a.ArtisanID, now); err != nil {
		s.log.Error("failed to record assignment time",
			"artisanId", a.ArtisanID, "error", err)
	}

	s.eventBus.Publish(ctx, events.AssignmentAccepted{
		BaseEvent:      events.NewBaseEvent(),
		AssignmentID:   a.ID,
		InterventionID: a.InterventionID,
		ArtisanID:      a.ArtisanID,
	})
	return a, nil
}

func (s *Service) refuse(ctx context.Context, a *repository.ArtisanAssignment) (*repository.ArtisanAssignment, error) {
	switch a.Status {
	case repository.StatusProposed:
		moved, err := s.repo.MarkResponded(ctx, a.ID, repository.StatusProposed, repository.StatusRefused)
		if err != nil {
			return nil, err
		}
		if !moved {
			return nil, apperr.Gone("this proposal is no longer open")
		}
		a.Status = repository.StatusRefused

		s.eventBus.Publish(ctx, events.AssignmentRefused{
			BaseEvent:      events.NewBaseEvent(),
			AssignmentID:   a.ID,
			InterventionID: a.InterventionID,
			ArtisanID:      a.ArtisanID,
			Withdrawal:     false,
		})
		return a, nil

	case repository.StatusAccepted:
		return s.withdraw(ctx, a)

	default:
		return nil, apperr.Gone("this proposal is no longer open")
	}
}

// withdraw lets an artisan give up an assignment they already won. The
// request goes back to searching and the orchestrator restarts the hunt.
func (s *Service) withdraw(ctx context.Context, a *repository.ArtisanAssignment) (*repository.ArtisanAssignment, error) {
	moved, err := s.repo.MarkResponded(ctx, a.ID, repository.StatusAccepted, repository.StatusRefused)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, apperr.Gone("this assignment is no longer held")
	}
	a.Status = repository.StatusRefused

	if err := s.interventions.RevertToSearching(ctx, a.InterventionID); err != nil {
		// The request already moved past assigned or was cancelled; the
		// withdrawal itself stands either way.
		s.log.Error("failed to revert request after withdrawal",
			"interventionId", a.InterventionID, "error", err)
	}

	s.eventBus.Publish(ctx, events.AssignmentRefused{
		BaseEvent:      events.NewBaseEvent(),
		AssignmentID:   a.ID,
		InterventionID: a.InterventionID,
		ArtisanID:      a.ArtisanID,
		Withdrawal:     true,
	})
	return a, nil
}

// ExpireOverdue sweeps all proposals past their response deadline and
// publishes an expiry event per row. Returns the number expired.
func (s *Service) ExpireOverdue(ctx context.Context) (int, error) {
	expired, err := s.repo.ExpireOverdue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	for _, a := range expired {
		s.eventBus.Publish(ctx, events.AssignmentExpired{
			BaseEvent:      events.NewBaseEvent(),
			AssignmentID:   a.ID,
			InterventionID: a.InterventionID,
			ArtisanID:      a.ArtisanID,
		})
	}
	return len(expired), nil
}

// RevokeActive revokes every live assignment for a cancelled request and
// publishes a revocation event per row.
func (s *Service) RevokeActive(ctx context.Context, interventionID uuid.UUID) error {
	revoked, err := s.repo.RevokeActive(ctx, interventionID)
	if err != nil {
		return err
	}
	for _, a := range revoked {
		s.eventBus.Publish(ctx, events.AssignmentRevoked{
			BaseEvent:      events.NewBaseEvent(),
			AssignmentID:   a.ID,
			InterventionID: a.InterventionID,
			ArtisanID:      a.ArtisanID,
		})
	}
	return nil
}

// HoldsAccepted reports whether the artisan holds the accepted assignment
// for the intervention.
func (s *Service) HoldsAccepted(ctx context.Context, artisanID, interventionID uuid.UUID) (bool, error) {
	return s.repo.HoldsAccepted(ctx, artisanID, interventionID)
}

// OutstandingProposals counts still-open proposals for a request. The
// orchestrator uses this to decide whether a retry cycle should wait.
func (s *Service) OutstandingProposals(ctx context.Context, interventionID uuid.UUID) (int, error) {
	return s.repo.CountProposed(ctx, interventionID)
}

// DeclinedArtisanIDs lists artisans excluded from re-dispatch because they
// refused or timed out on this request.
func (s *Service) DeclinedArtisanIDs(ctx context.Context, interventionID uuid.UUID) ([]uuid.UUID, error) {
	return s.repo.DeclinedArtisanIDs(ctx, interventionID)
}

// ListForArtisan returns an artisan's assignments, optionally filtered by
// status.
func (s *Service) ListForArtisan(ctx context.Context, artisanID uuid.UUID, statuses []repository.Status) ([]repository.ArtisanAssignment, error) {
	return s.repo.ListByArtisan(ctx, artisanID, statuses)
}

// ListForIntervention returns the full assignment history of a request.
func (s *Service) ListForIntervention(ctx context.Context, interventionID uuid.UUID) ([]repository.ArtisanAssignment, error) {
	return s.repo.ListByIntervention(ctx, interventionID)
}

// GetByID loads one assignment.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*repository.ArtisanAssignment, error) {
	return s.repo.GetByID(ctx, id)
}
