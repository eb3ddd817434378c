// Package service implements the intervention state machine operations.
// All mutations go through here; the repository's conditional writes
// serialize concurrent transitions per request.
package service

import (
	"context"
	"crypto/rand"
	"strings"
	"time"

	"serrupro_backend/internal/events"
	"serrupro_backend/internal/interventions/domain"
	"serrupro_backend/internal/interventions/repository"
	"serrupro_backend/platform/apperr"
	"serrupro_backend/platform/logger"
	"serrupro_backend/platform/phone"

	"github.com/google/uuid"
)

// Geocoder resolves a postal address to coordinates. Implemented by the
// geocoding module; treated as a pure external function that may fail with
// a not-found kind when the address cannot be resolved.
type Geocoder interface {
	Resolve(ctx context.Context, street, postalCode, city string) (lat, lon float64, err error)
}

// AssignmentGuard is the port into the assignments module used for actor
// authorization and for cancellation precedence.
type AssignmentGuard interface {
	// HoldsAccepted reports whether the artisan holds the accepted
	// assignment for the intervention.
	HoldsAccepted(ctx context.Context, artisanID, interventionID uuid.UUID) (bool, error)
	// RevokeActive revokes every live (proposed or accepted) assignment for
	// the intervention. Called after a cancellation lands so a racing
	// acceptance never stays active.
	RevokeActive(ctx context.Context, interventionID uuid.UUID) error
}

// Service drives the intervention lifecycle.
type Service struct {
	repo        repository.InterventionsRepository
	geocoder    Geocoder
	assignments AssignmentGuard
	eventBus    events.Bus
	log         *logger.Logger

	retentionPeriod time.Duration
	now             func() time.Time
}

// New creates the interventions service. The assignments guard is injected
// later via SetAssignmentGuard because the two modules reference each other.
func New(repo repository.InterventionsRepository, geocoder Geocoder, eventBus events.Bus, retentionPeriod time.Duration, log *logger.Logger) *Service {
	return &Service{
		repo:            repo,
		geocoder:        geocoder,
		eventBus:        eventBus,
		log:             log,
		retentionPeriod: retentionPeriod,
		now:             time.Now,
	}
}

// SetAssignmentGuard wires the assignments module after construction.
func (s *Service) SetAssignmentGuard(guard AssignmentGuard) {
	s.assignments = guard
}

// SetNowFunc overrides the time source. Test hook.
func (s *Service) SetNowFunc(now func() time.Time) {
	s.now = now
}

// CreateParams carries a fully-formed client submission. Draft autosave and
// multi-step form state live outside the core; by the time this is called
// the request is final.
type CreateParams struct {
	Kind           domain.Kind
	Situation      string
	Street         string
	PostalCode     string
	City           string
	ScheduledStart *time.Time
	ScheduledEnd   *time.Time
	PriceMinCents  *int64
	PriceMaxCents  *int64
	ClientUserID   *uuid.UUID
	ClientEmail    string
	ClientPhone    string
}

// Create validates and persists a new request. Immediate call-outs advance
// straight to searching; scheduled jobs and requests with an unresolved
// location stay in pending.
func (s *Service) Create(ctx context.Context, params CreateParams) (*repository.Intervention, error) {
	if err := s.validateCreate(params); err != nil {
		return nil, err
	}

	iv := repository.Intervention{
		ID:             uuid.New(),
		TrackingCode:   newTrackingCode(),
		Kind:           params.Kind,
		Situation:      strings.TrimSpace(params.Situation),
		Status:         domain.StatusPending,
		Street:         strings.TrimSpace(params.Street),
		PostalCode:     strings.TrimSpace(params.PostalCode),
		City:           strings.TrimSpace(params.City),
		ScheduledStart: params.ScheduledStart,
		ScheduledEnd:   params.ScheduledEnd,
		PriceMinCents:  params.PriceMinCents,
		PriceMaxCents:  params.PriceMaxCents,
		ClientUserID:   params.ClientUserID,
		ClientPhone:    phone.NormalizeE164(params.ClientPhone),
		RetentionUntil: s.now().Add(s.retentionPeriod),
	}
	if email := strings.TrimSpace(params.ClientEmail); email != "" {
		iv.ClientEmail = &email
	}

	lat, lon, geoErr := s.geocoder.Resolve(ctx, iv.Street, iv.PostalCode, iv.City)
	if geoErr == nil {
		iv.Latitude = &lat
		iv.Longitude = &lon
	}

	saved, err := s.repo.Create(ctx, iv)
	if err != nil {
		return nil, err
	}

	s.eventBus.Publish(ctx, events.InterventionCreated{
		BaseEvent:      events.NewBaseEvent(),
		InterventionID: saved.ID,
		TrackingCode:   saved.TrackingCode,
		Kind:           string(saved.Kind),
		Situation:      saved.Situation,
		PostalCode:     saved.PostalCode,
		City:           saved.City,
		ClientEmail:    derefString(saved.ClientEmail),
	})

	if geoErr != nil {
		// Held in pending until the location is resolved or an operator
		// steps in; dispatch never runs without coordinates.
		s.log.Warn("geocoding failed, holding intervention in pending",
			"interventionId", saved.ID, "error", geoErr)
		s.eventBus.Publish(ctx, events.InterventionLocationUnresolved{
			BaseEvent:      events.NewBaseEvent(),
			InterventionID: saved.ID,
			PostalCode:     saved.PostalCode,
			City:           saved.City,
		})
		return saved, nil
	}

	if domain.InitialStatus(saved.Kind) == domain.StatusSearching {
		if err := s.Transition(ctx, saved.ID, domain.StatusSearching, domain.ActorSystem, uuid.Nil); err != nil {
			return nil, err
		}
		saved.Status = domain.StatusSearching
	}

	return saved, nil
}

func (s *Service) validateCreate(params CreateParams) error {
	if strings.TrimSpace(params.PostalCode) == "" || strings.TrimSpace(params.City) == "" {
		return apperr.Validation("location (postal code and city) is required")
	}
	if params.ClientUserID == nil && strings.TrimSpace(params.ClientEmail) == "" {
		return apperr.Validation("contact (account or email) is required")
	}
	if strings.TrimSpace(params.ClientPhone) == "" {
		return apperr.Validation("contact phone is required")
	}
	if !phone.IsValid(params.ClientPhone) {
		return apperr.Validation("contact phone is not a valid number")
	}
	if params.Kind != domain.KindImmediate && params.Kind != domain.KindScheduled {
		return apperr.Validation("kind must be urgence or rdv")
	}
	if params.Kind == domain.KindScheduled && params.ScheduledStart == nil {
		return apperr.Validation("scheduled requests need a date")
	}
	if params.PriceMinCents != nil && params.PriceMaxCents != nil && *params.PriceMinCents > *params.PriceMaxCents {
		return apperr.Validation("price estimate range is inverted")
	}
	return nil
}

// GetByID loads a request.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*repository.Intervention, error) {
	return s.repo.GetByID(ctx, id)
}

// Track loads a request by its public tracking code (unauthenticated client
// lookup).
func (s *Service) Track(ctx context.Context, code string) (*repository.Intervention, error) {
	return s.repo.GetByTrackingCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
}

// Transition moves the request along one edge of the status graph. The
// conditional write serializes concurrent attempts: the loser observes a
// conflict, never corrupted state.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, target domain.Status, actor domain.Actor, actorID uuid.UUID) error {
	if !target.IsValid() {
		return apperr.Validation("unknown target status")
	}

	iv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !domain.IsSuccessor(iv.Status, target) {
		return domain.ErrIllegalTransition(iv.Status, target)
	}
	if !domain.CanTransition(iv.Status, target, actor) {
		return domain.ErrUnauthorizedTransition(iv.Status, target, actor)
	}
	if actor == domain.ActorArtisan {
		holds, err := s.assignments.HoldsAccepted(ctx, actorID, id)
		if err != nil {
			return err
		}
		if !holds {
			return apperr.Forbidden("artisan does not hold the accepted assignment for this request")
		}
	}
	if actor == domain.ActorClient && !ownedBy(iv, actorID) {
		return apperr.Forbidden("this request belongs to another client")
	}

	updated, err := s.repo.UpdateStatusIf(ctx, id, iv.Status, target, nil)
	if err != nil {
		return err
	}
	if !updated {
		// A concurrent writer moved the request first.
		current, loadErr := s.repo.GetByID(ctx, id)
		if loadErr != nil {
			return loadErr
		}
		return domain.ErrIllegalTransition(current.Status, target)
	}

	s.log.StatusTransition(id.String(), string(iv.Status), string(target), string(actor))
	s.publishStatusChanged(ctx, iv, iv.Status, target, actor, "")
	return nil
}

// Cancel withdraws the request from any non-terminal state. Cancelling an
// already-cancelled request is a no-op success. Once the cancellation lands,
// every live assignment is revoked so a racing acceptance cannot survive.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string, actor domain.Actor, actorID uuid.UUID) error {
	if actor == domain.ActorArtisan {
		return apperr.Forbidden("artisans cannot cancel a request")
	}

	iv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if actor == domain.ActorClient && !ownedBy(iv, actorID) {
		return apperr.Forbidden("this request belongs to another client")
	}
	return s.cancel(ctx, iv, reason, actor)
}

// CancelByTracking cancels through the public tracking surface. The caller
// proves ownership by submitting the email the request was created with.
func (s *Service) CancelByTracking(ctx context.Context, code, email, reason string) error {
	iv, err := s.repo.GetByTrackingCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return err
	}
	if iv.ClientEmail == nil || !strings.EqualFold(strings.TrimSpace(email), *iv.ClientEmail) {
		return apperr.Forbidden("email does not match this request")
	}
	return s.cancel(ctx, iv, reason, domain.ActorClient)
}

func (s *Service) cancel(ctx context.Context, iv *repository.Intervention, reason string, actor domain.Actor) error {
	if iv.Status == domain.StatusCancelled {
		return nil
	}
	if iv.Status == domain.StatusCompleted {
		return domain.ErrIllegalTransition(iv.Status, domain.StatusCancelled)
	}

	cancelled, err := s.repo.CancelIfActive(ctx, iv.ID, reason)
	if err != nil {
		return err
	}
	if !cancelled {
		current, loadErr := s.repo.GetByID(ctx, iv.ID)
		if loadErr != nil {
			return loadErr
		}
		if current.Status == domain.StatusCancelled {
			return nil
		}
		return domain.ErrIllegalTransition(current.Status, domain.StatusCancelled)
	}

	// Cancellation wins over acceptance: anything still live is revoked.
	if s.assignments != nil {
		if err := s.assignments.RevokeActive(ctx, iv.ID); err != nil {
			s.log.Error("failed to revoke assignments after cancellation",
				"interventionId", iv.ID, "error", err)
		}
	}

	s.log.StatusTransition(iv.ID.String(), string(iv.Status), string(domain.StatusCancelled), string(actor))
	s.publishStatusChanged(ctx, iv, iv.Status, domain.StatusCancelled, actor, reason)
	return nil
}

// RevertToSearching rolls an assigned request back to searching after the
// held assignment was refused or expired. Only legal from assigned.
func (s *Service) RevertToSearching(ctx context.Context, id uuid.UUID) error {
	iv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if iv.Status != domain.StatusAssigned {
		return domain.ErrIllegalTransition(iv.Status, domain.StatusSearching)
	}

	updated, err := s.repo.UpdateStatusIf(ctx, id, domain.StatusAssigned, domain.StatusSearching, nil)
	if err != nil {
		return err
	}
	if !updated {
		current, loadErr := s.repo.GetByID(ctx, id)
		if loadErr != nil {
			return loadErr
		}
		return domain.ErrIllegalTransition(current.Status, domain.StatusSearching)
	}

	s.log.StatusTransition(id.String(), string(domain.StatusAssigned), string(domain.StatusSearching), string(domain.ActorSystem))
	s.publishStatusChanged(ctx, iv, domain.StatusAssigned, domain.StatusSearching, domain.ActorSystem, "")
	return nil
}

// ResolveLocation records coordinates for a request held in pending and,
// for immediate call-outs, releases it into searching.
func (s *Service) ResolveLocation(ctx context.Context, id uuid.UUID, lat, lon float64) error {
	iv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.SetCoordinates(ctx, id, lat, lon); err != nil {
		return err
	}
	if iv.Status == domain.StatusPending && iv.Kind == domain.KindImmediate {
		return s.Transition(ctx, id, domain.StatusSearching, domain.ActorSystem, uuid.Nil)
	}
	return nil
}

// ReleaseDueScheduled moves scheduled requests whose window opens within the
// lead duration from pending into searching, so dispatch starts ahead of the
// appointment. Returns how many were released.
func (s *Service) ReleaseDueScheduled(ctx context.Context, lead time.Duration) (int, error) {
	ids, err := s.repo.ListDueScheduled(ctx, s.now().Add(lead))
	if err != nil {
		return 0, err
	}

	released := 0
	for _, id := range ids {
		if err := s.Transition(ctx, id, domain.StatusSearching, domain.ActorSystem, uuid.Nil); err != nil {
			s.log.Warn("failed to release scheduled intervention",
				"interventionId", id, "error", err)
			continue
		}
		released++
	}
	return released, nil
}

// AnonymizeExpired runs the RGPD retention sweep.
func (s *Service) AnonymizeExpired(ctx context.Context) (int, error) {
	return s.repo.AnonymizeExpired(ctx, s.now())
}

func (s *Service) publishStatusChanged(ctx context.Context, iv *repository.Intervention, from, to domain.Status, actor domain.Actor, reason string) {
	s.eventBus.Publish(ctx, events.InterventionStatusChanged{
		BaseEvent:      events.NewBaseEvent(),
		InterventionID: iv.ID,
		TrackingCode:   iv.TrackingCode,
		OldStatus:      string(from),
		NewStatus:      string(to),
		Actor:          string(actor),
		Reason:         reason,
		ClientEmail:    derefString(iv.ClientEmail),
	})
}

// trackingAlphabet avoids ambiguous characters (0/O, 1/I) so codes survive
// being read over the phone.
const trackingAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

func newTrackingCode() string {
	buf := make([]byte, 6)
	_, _ = rand.Read(buf)
	code := make([]byte, 6)
	for i, b := range buf {
		code[i] = trackingAlphabet[int(b)%len(trackingAlphabet)]
	}
	return "SP-" + string(code)
}

// ownedBy reports whether the authenticated client created the request.
// Anonymous submissions carry no client user and cannot be acted on through
// the authenticated surface.
func ownedBy(iv *repository.Intervention, clientID uuid.UUID) bool {
	return iv.ClientUserID != nil && *iv.ClientUserID == clientID
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
