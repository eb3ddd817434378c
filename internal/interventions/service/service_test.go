package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"serrupro_backend/internal/events"
	"serrupro_backend/internal/interventions/domain"
	"serrupro_backend/internal/interventions/repository"
	"serrupro_backend/platform/apperr"
	"serrupro_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*repository.Intervention
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{items: make(map[uuid.UUID]*repository.Intervention)}
}

func (r *fakeRepo) Create(_ context.Context, iv repository.Intervention) (*repository.Intervention, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	iv.CreatedAt = time.Now()
	iv.UpdatedAt = iv.CreatedAt
	stored := iv
	r.items[iv.ID] = &stored
	out := iv
	return &out, nil
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*repository.Intervention, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	iv, ok := r.items[id]
	if !ok {
		return nil, apperr.NotFound("intervention not found")
	}
	out := *iv
	return &out, nil
}

func (r *fakeRepo) GetByTrackingCode(_ context.Context, code string) (*repository.Intervention, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, iv := range r.items {
		if iv.TrackingCode == code {
			out := *iv
			return &out, nil
		}
	}
	return nil, apperr.NotFound("intervention not found")
}

func (r *fakeRepo) UpdateStatusIf(_ context.Context, id uuid.UUID, expected, next domain.Status, reason *string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	iv, ok := r.items[id]
	if !ok {
		return false, apperr.NotFound("intervention not found")
	}
	if iv.Status != expected {
		return false, nil
	}
	iv.Status = next
	iv.CancelReason = reason
	iv.UpdatedAt = time.Now()
	return true, nil
}

func (r *fakeRepo) CancelIfActive(_ context.Context, id uuid.UUID, reason string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	iv, ok := r.items[id]
	if !ok {
		return false, apperr.NotFound("intervention not found")
	}
	if iv.Status == domain.StatusCompleted || iv.Status == domain.StatusCancelled {
		return false, nil
	}
	iv.Status = domain.StatusCancelled
	iv.CancelReason = &reason
	return true, nil
}

func (r *fakeRepo) SetCoordinates(_ context.Context, id uuid.UUID, lat, lon float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	iv, ok := r.items[id]
	if !ok {
		return apperr.NotFound("intervention not found")
	}
	iv.Latitude = &lat
	iv.Longitude = &lon
	return nil
}

func (r *fakeRepo) ListDueScheduled(_ context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uuid.UUID
	for _, iv := range r.items {
		if iv.Status != domain.StatusPending || iv.Kind != domain.KindScheduled {
			continue
		}
		if iv.ScheduledStart == nil || iv.ScheduledStart.After(cutoff) {
			continue
		}
		if iv.Latitude == nil || iv.Longitude == nil {
			continue
		}
		ids = append(ids, iv.ID)
	}
	return ids, nil
}

func (r *fakeRepo) AnonymizeExpired(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, iv := range r.items {
		if iv.AnonymizedAt == nil && iv.RetentionUntil.Before(now) {
			at := now
			iv.AnonymizedAt = &at
			count++
		}
	}
	return count, nil
}

func (r *fakeRepo) setStatus(id uuid.UUID, status domain.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[id].Status = status
}

type stubGeocoder struct {
	fail bool
}

func (g *stubGeocoder) Resolve(context.Context, string, string, string) (float64, float64, error) {
	if g.fail {
		return 0, 0, apperr.NotFound("address could not be resolved")
	}
	return 48.8566, 2.3522, nil
}

type stubGuard struct {
	mu           sync.Mutex
	holds        bool
	revokedCalls []uuid.UUID
}

func (g *stubGuard) HoldsAccepted(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.holds, nil
}

func (g *stubGuard) RevokeActive(_ context.Context, interventionID uuid.UUID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.revokedCalls = append(g.revokedCalls, interventionID)
	return nil
}

// recordingBus captures published events synchronously so tests can assert
// on them without races.
type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) byName(name string) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.Event
	for _, e := range b.events {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

func newTestService() (*Service, *fakeRepo, *stubGeocoder, *stubGuard, *recordingBus) {
	repo := newFakeRepo()
	geo := &stubGeocoder{}
	guard := &stubGuard{}
	bus := &recordingBus{}
	svc := New(repo, geo, bus, 365*24*time.Hour, logger.New("development"))
	svc.SetAssignmentGuard(guard)
	return svc, repo, geo, guard, bus
}

func validParams(kind domain.Kind) CreateParams {
	params := CreateParams{
		Kind:        kind,
		Situation:   "porte claquée",
		Street:      "12 rue de la Paix",
		PostalCode:  "75002",
		City:        "Paris",
		ClientEmail: "client@example.com",
		ClientPhone: "+33612345678",
	}
	if kind == domain.KindScheduled {
		start := time.Now().Add(48 * time.Hour)
		params.ScheduledStart = &start
	}
	return params
}

func TestCreateImmediateAdvancesToSearching(t *testing.T) {
	svc, repo, _, _, bus := newTestService()

	iv, err := svc.Create(context.Background(), validParams(domain.KindImmediate))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if iv.Status != domain.StatusSearching {
		t.Fatalf("expected status searching, got %s", iv.Status)
	}
	if iv.Latitude == nil || iv.Longitude == nil {
		t.Fatal("expected coordinates to be set")
	}

	stored, err := repo.GetByID(context.Background(), iv.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Status != domain.StatusSearching {
		t.Fatalf("expected stored status searching, got %s", stored.Status)
	}

	if got := len(bus.byName("interventions.created")); got != 1 {
		t.Fatalf("expected 1 created event, got %d", got)
	}
	changed := bus.byName("interventions.status_changed")
	if len(changed) != 1 {
		t.Fatalf("expected 1 status_changed event, got %d", len(changed))
	}
	sc := changed[0].(events.InterventionStatusChanged)
	if sc.OldStatus != "pending" || sc.NewStatus != "searching" {
		t.Fatalf("expected pending->searching, got %s->%s", sc.OldStatus, sc.NewStatus)
	}
}

func TestCreateScheduledStaysPending(t *testing.T) {
	svc, _, _, _, bus := newTestService()

	iv, err := svc.Create(context.Background(), validParams(domain.KindScheduled))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if iv.Status != domain.StatusPending {
		t.Fatalf("expected status pending, got %s", iv.Status)
	}
	if got := len(bus.byName("interventions.status_changed")); got != 0 {
		t.Fatalf("expected no status_changed events, got %d", got)
	}
}

func TestCreateGeocodingFailureHoldsPending(t *testing.T) {
	svc, _, geo, _, bus := newTestService()
	geo.fail = true

	iv, err := svc.Create(context.Background(), validParams(domain.KindImmediate))
	if err != nil {
		t.Fatalf("create should succeed despite geocoding failure: %v", err)
	}
	if iv.Status != domain.StatusPending {
		t.Fatalf("expected status pending, got %s", iv.Status)
	}
	if iv.Latitude != nil {
		t.Fatal("expected no coordinates")
	}
	if got := len(bus.byName("interventions.location_unresolved")); got != 1 {
		t.Fatalf("expected 1 location_unresolved event, got %d", got)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _, _, _, _ := newTestService()

	cases := []struct {
		name   string
		mutate func(*CreateParams)
	}{
		{"missing city", func(p *CreateParams) { p.City = "" }},
		{"missing contact", func(p *CreateParams) { p.ClientEmail = ""; p.ClientUserID = nil }},
		{"missing phone", func(p *CreateParams) { p.ClientPhone = "" }},
		{"invalid phone", func(p *CreateParams) { p.ClientPhone = "not-a-number" }},
		{"unknown kind", func(p *CreateParams) { p.Kind = "express" }},
		{"scheduled without date", func(p *CreateParams) {
			p.Kind = domain.KindScheduled
			p.ScheduledStart = nil
		}},
		{"inverted price range", func(p *CreateParams) {
			lo, hi := int64(20000), int64(8000)
			p.PriceMinCents = &lo
			p.PriceMaxCents = &hi
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := validParams(domain.KindImmediate)
			tc.mutate(&params)
			_, err := svc.Create(context.Background(), params)
			if !apperr.Is(err, apperr.KindValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateTrackingCodeShape(t *testing.T) {
	svc, _, _, _, _ := newTestService()

	iv, err := svc.Create(context.Background(), validParams(domain.KindImmediate))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if len(iv.TrackingCode) != 9 || iv.TrackingCode[:3] != "SP-" {
		t.Fatalf("unexpected tracking code %q", iv.TrackingCode)
	}
}

func TestTransitionArtisanRequiresAcceptedAssignment(t *testing.T) {
	svc, repo, _, guard, _ := newTestService()
	artisanID := uuid.New()

	iv, err := svc.Create(context.Background(), validParams(domain.KindImmediate))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	repo.setStatus(iv.ID, domain.StatusAssigned)

	err = svc.Transition(context.Background(), iv.ID, domain.StatusEnRoute, domain.ActorArtisan, artisanID)
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for artisan without accepted assignment, got %v", err)
	}

	guard.holds = true
	if err := svc.Transition(context.Background(), iv.ID, domain.StatusEnRoute, domain.ActorArtisan, artisanID); err != nil {
		t.Fatalf("transition failed: %v", err)
	}

	got, _ := repo.GetByID(context.Background(), iv.ID)
	if got.Status != domain.StatusEnRoute {
		t.Fatalf("expected en_route, got %s", got.Status)
	}
}

func TestTransitionRejectsUnauthorizedActor(t *testing.T) {
	svc, repo, _, _, _ := newTestService()

	iv, err := svc.Create(context.Background(), validParams(domain.KindImmediate))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	repo.setStatus(iv.ID, domain.StatusQuoteSent)

	err = svc.Transition(context.Background(), iv.ID, domain.StatusQuoteAccepted, domain.ActorOperator, uuid.Nil)
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for operator on quote acceptance, got %v", err)
	}
}

func TestTransitionRejectsIllegalEdge(t *testing.T) {
	svc, _, _, _, _ := newTestService()

	iv, err := svc.Create(context.Background(), validParams(domain.KindImmediate))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// searching -> completed skips the whole job lifecycle.
	err = svc.Transition(context.Background(), iv.ID, domain.StatusCompleted, domain.ActorSystem, uuid.Nil)
	if !domain.IsIllegalTransition(err) {
		t.Fatalf("expected illegal transition conflict, got %v", err)
	}
}

func TestTransitionLostRace(t *testing.T) {
	svc, repo, _, _, _ := newTestService()

	iv, err := svc.Create(context.Background(), validParams(domain.KindImmediate))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Another writer moves the row between the read and the conditional
	// write. The losing transition must surface a conflict.
	raced := false
	racingRepo := &hookedRepo{InterventionsRepository: repo, beforeUpdate: func() {
		if !raced {
			raced = true
			repo.setStatus(iv.ID, domain.StatusCancelled)
		}
	}}
	svc.repo = racingRepo

	err = svc.Transition(context.Background(), iv.ID, domain.StatusAssigned, domain.ActorSystem, uuid.Nil)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict after lost race, got %v", err)
	}
}

type hookedRepo struct {
	repository.InterventionsRepository
	beforeUpdate func()
}

func (r *hookedRepo) UpdateStatusIf(ctx context.Context, id uuid.UUID, expected, next domain.Status, reason *string) (bool, error) {
	r.beforeUpdate()
	return r.InterventionsRepository.UpdateStatusIf(ctx, id, expected, next, reason)
}

func TestCancelRevokesActiveAssignments(t *testing.T) {
	svc, repo, _, guard, bus := newTestService()
	owner := uuid.New()

	params := validParams(domain.KindImmediate)
	params.ClientUserID = &owner
	iv, err := svc.Create(context.Background(), params)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := svc.Cancel(context.Background(), iv.ID, "client changed their mind", domain.ActorClient, owner); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	got, _ := repo.GetByID(context.Background(), iv.ID)
	if got.Status != domain.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", got.Status)
	}
	if got.CancelReason == nil || *got.CancelReason != "client changed their mind" {
		t.Fatalf("expected cancel reason to be stored, got %v", got.CancelReason)
	}
	if len(guard.revokedCalls) != 1 || guard.revokedCalls[0] != iv.ID {
		t.Fatalf("expected RevokeActive for %s, got %v", iv.ID, guard.revokedCalls)
	}

	changed := bus.byName("interventions.status_changed")
	last := changed[len(changed)-1].(events.InterventionStatusChanged)
	if last.NewStatus != "cancelled" || last.Reason != "client changed their mind" {
		t.Fatalf("unexpected status_changed event: %+v", last)
	}
}

func TestCancelIdempotentWhenAlreadyCancelled(t *testing.T) {
	svc, _, _, guard, _ := newTestService()
	owner := uuid.New()

	params := validParams(domain.KindImmediate)
	params.ClientUserID = &owner
	iv, err := svc.Create(context.Background(), params)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := svc.Cancel(context.Background(), iv.ID, "", domain.ActorClient, owner); err != nil {
		t.Fatalf("first cancel failed: %v", err)
	}
	if err := svc.Cancel(context.Background(), iv.ID, "", domain.ActorClient, owner); err != nil {
		t.Fatalf("second cancel should be a no-op, got %v", err)
	}
	if len(guard.revokedCalls) != 1 {
		t.Fatalf("expected a single RevokeActive, got %d", len(guard.revokedCalls))
	}
}

func TestCancelRejectedOnCompleted(t *testing.T) {
	svc, repo, _, _, _ := newTestService()

	iv, err := svc.Create(context.Background(), validParams(domain.KindImmediate))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	repo.setStatus(iv.ID, domain.StatusCompleted)

	err = svc.Cancel(context.Background(), iv.ID, "", domain.ActorOperator, uuid.Nil)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict cancelling a completed request, got %v", err)
	}
}

func TestCancelForbiddenForArtisan(t *testing.T) {
	svc, _, _, _, _ := newTestService()

	iv, err := svc.Create(context.Background(), validParams(domain.KindImmediate))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	err = svc.Cancel(context.Background(), iv.ID, "", domain.ActorArtisan, uuid.New())
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for artisan cancel, got %v", err)
	}
}

func TestCancelForbiddenForOtherClient(t *testing.T) {
	svc, repo, _, guard, _ := newTestService()
	owner := uuid.New()

	params := validParams(domain.KindImmediate)
	params.ClientUserID = &owner
	iv, err := svc.Create(context.Background(), params)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	err = svc.Cancel(context.Background(), iv.ID, "", domain.ActorClient, uuid.New())
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for another client, got %v", err)
	}
	got, _ := repo.GetByID(context.Background(), iv.ID)
	if got.Status == domain.StatusCancelled {
		t.Fatal("request must not be cancelled by another client")
	}
	if len(guard.revokedCalls) != 0 {
		t.Fatalf("expected no revocations, got %d", len(guard.revokedCalls))
	}
}

func TestTransitionForbiddenForOtherClient(t *testing.T) {
	svc, repo, _, _, _ := newTestService()
	owner := uuid.New()

	params := validParams(domain.KindImmediate)
	params.ClientUserID = &owner
	iv, err := svc.Create(context.Background(), params)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	repo.setStatus(iv.ID, domain.StatusQuoteSent)

	err = svc.Transition(context.Background(), iv.ID, domain.StatusQuoteAccepted, domain.ActorClient, uuid.New())
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for another client, got %v", err)
	}

	if err := svc.Transition(context.Background(), iv.ID, domain.StatusQuoteAccepted, domain.ActorClient, owner); err != nil {
		t.Fatalf("owner transition failed: %v", err)
	}
	got, _ := repo.GetByID(context.Background(), iv.ID)
	if got.Status != domain.StatusQuoteAccepted {
		t.Fatalf("expected quote_accepted, got %s", got.Status)
	}
}

func TestCancelByTracking(t *testing.T) {
	svc, repo, _, guard, _ := newTestService()

	iv, err := svc.Create(context.Background(), validParams(domain.KindImmediate))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := svc.CancelByTracking(context.Background(), iv.TrackingCode, "Client@Example.COM", "changed plans"); err != nil {
		t.Fatalf("cancel by tracking failed: %v", err)
	}
	got, _ := repo.GetByID(context.Background(), iv.ID)
	if got.Status != domain.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", got.Status)
	}
	if len(guard.revokedCalls) != 1 {
		t.Fatalf("expected RevokeActive, got %d calls", len(guard.revokedCalls))
	}
}

func TestCancelByTrackingRejectsWrongEmail(t *testing.T) {
	svc, repo, _, _, _ := newTestService()

	iv, err := svc.Create(context.Background(), validParams(domain.KindImmediate))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	err = svc.CancelByTracking(context.Background(), iv.TrackingCode, "someone.else@example.com", "")
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for wrong email, got %v", err)
	}
	got, _ := repo.GetByID(context.Background(), iv.ID)
	if got.Status == domain.StatusCancelled {
		t.Fatal("request must not be cancelled with a wrong email")
	}
}

func TestCancelByTrackingUnknownCode(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	err := svc.CancelByTracking(context.Background(), "SP-ZZZZZZ", "client@example.com", "")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRevertToSearching(t *testing.T) {
	svc, repo, _, _, bus := newTestService()

	iv, err := svc.Create(context.Background(), validParams(domain.KindImmediate))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	repo.setStatus(iv.ID, domain.StatusAssigned)

	if err := svc.RevertToSearching(context.Background(), iv.ID); err != nil {
		t.Fatalf("revert failed: %v", err)
	}
	got, _ := repo.GetByID(context.Background(), iv.ID)
	if got.Status != domain.StatusSearching {
		t.Fatalf("expected searching, got %s", got.Status)
	}

	changed := bus.byName("interventions.status_changed")
	last := changed[len(changed)-1].(events.InterventionStatusChanged)
	if last.OldStatus != "assigned" || last.NewStatus != "searching" {
		t.Fatalf("expected assigned->searching event, got %s->%s", last.OldStatus, last.NewStatus)
	}
}

func TestRevertToSearchingOnlyFromAssigned(t *testing.T) {
	svc, repo, _, _, _ := newTestService()

	iv, err := svc.Create(context.Background(), validParams(domain.KindImmediate))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	repo.setStatus(iv.ID, domain.StatusEnRoute)

	err = svc.RevertToSearching(context.Background(), iv.ID)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict reverting from en_route, got %v", err)
	}
}

func TestResolveLocationReleasesImmediateRequest(t *testing.T) {
	svc, repo, geo, _, _ := newTestService()
	geo.fail = true

	iv, err := svc.Create(context.Background(), validParams(domain.KindImmediate))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if iv.Status != domain.StatusPending {
		t.Fatalf("expected pending, got %s", iv.Status)
	}

	if err := svc.ResolveLocation(context.Background(), iv.ID, 45.764, 4.8357); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	got, _ := repo.GetByID(context.Background(), iv.ID)
	if got.Status != domain.StatusSearching {
		t.Fatalf("expected searching after resolution, got %s", got.Status)
	}
	if got.Latitude == nil || *got.Latitude != 45.764 {
		t.Fatalf("expected coordinates persisted, got %v", got.Latitude)
	}
}

func TestResolveLocationKeepsScheduledPending(t *testing.T) {
	svc, repo, geo, _, _ := newTestService()
	geo.fail = true

	iv, err := svc.Create(context.Background(), validParams(domain.KindScheduled))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := svc.ResolveLocation(context.Background(), iv.ID, 45.764, 4.8357); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	got, _ := repo.GetByID(context.Background(), iv.ID)
	if got.Status != domain.StatusPending {
		t.Fatalf("expected scheduled request to stay pending, got %s", got.Status)
	}
}

func TestReleaseDueScheduled(t *testing.T) {
	svc, repo, _, _, bus := newTestService()

	due := validParams(domain.KindScheduled)
	start := time.Now().Add(30 * time.Minute)
	due.ScheduledStart = &start
	dueIv, err := svc.Create(context.Background(), due)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	later := validParams(domain.KindScheduled)
	laterStart := time.Now().Add(72 * time.Hour)
	later.ScheduledStart = &laterStart
	laterIv, err := svc.Create(context.Background(), later)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	released, err := svc.ReleaseDueScheduled(context.Background(), 2*time.Hour)
	if err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if released != 1 {
		t.Fatalf("expected 1 released, got %d", released)
	}

	got, _ := repo.GetByID(context.Background(), dueIv.ID)
	if got.Status != domain.StatusSearching {
		t.Fatalf("expected due request in searching, got %s", got.Status)
	}
	got, _ = repo.GetByID(context.Background(), laterIv.ID)
	if got.Status != domain.StatusPending {
		t.Fatalf("expected later request to stay pending, got %s", got.Status)
	}

	changed := bus.byName("interventions.status_changed")
	if len(changed) != 1 {
		t.Fatalf("expected 1 status_changed event, got %d", len(changed))
	}
	sc := changed[0].(events.InterventionStatusChanged)
	if sc.InterventionID != dueIv.ID || sc.Actor != "system" {
		t.Fatalf("unexpected status_changed event: %+v", sc)
	}
}

func TestReleaseDueScheduledSkipsUnresolvedLocation(t *testing.T) {
	svc, repo, geo, _, _ := newTestService()
	geo.fail = true

	params := validParams(domain.KindScheduled)
	start := time.Now().Add(30 * time.Minute)
	params.ScheduledStart = &start
	iv, err := svc.Create(context.Background(), params)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	released, err := svc.ReleaseDueScheduled(context.Background(), 2*time.Hour)
	if err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if released != 0 {
		t.Fatalf("expected 0 released, got %d", released)
	}
	got, _ := repo.GetByID(context.Background(), iv.ID)
	if got.Status != domain.StatusPending {
		t.Fatalf("expected pending without coordinates, got %s", got.Status)
	}
}

func TestAnonymizeExpired(t *testing.T) {
	svc, repo, _, _, _ := newTestService()
	svc.SetNowFunc(func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) })

	iv, err := svc.Create(context.Background(), validParams(domain.KindImmediate))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	svc.SetNowFunc(func() time.Time { return time.Date(2028, 1, 1, 0, 0, 0, 0, time.UTC) })
	count, err := svc.AnonymizeExpired(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 anonymized row, got %d", count)
	}
	got, _ := repo.GetByID(context.Background(), iv.ID)
	if got.AnonymizedAt == nil {
		t.Fatal("expected anonymized_at to be set")
	}
}

func TestGetByIDNotFound(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	_, err := svc.GetByID(context.Background(), uuid.New())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperr.Error, got %T", err)
	}
}
