package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"serrupro_backend/internal/assignments/repository"
	"serrupro_backend/internal/events"
	"serrupro_backend/platform/apperr"
	"serrupro_backend/platform/logger"

	"github.com/google/uuid"
)

// fakeRepo mirrors the database semantics the coordinator relies on: Accept
// enforces a single accepted row per intervention and rejects stale or
// expired proposals, CreateBatch skips artisans who already hold a live
// proposal.
type fakeRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*repository.ArtisanAssignment
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{items: make(map[uuid.UUID]*repository.ArtisanAssignment)}
}

func (r *fakeRepo) CreateBatch(_ context.Context, assignments []repository.ArtisanAssignment) ([]repository.ArtisanAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var created []repository.ArtisanAssignment
next:
	for _, a := range assignments {
		for _, existing := range r.items {
			if existing.InterventionID == a.InterventionID &&
				existing.ArtisanID == a.ArtisanID &&
				existing.Status == repository.StatusProposed {
				continue next
			}
		}
		stored := a
		r.items[a.ID] = &stored
		created = append(created, a)
	}
	return created, nil
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*repository.ArtisanAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return nil, apperr.NotFound("assignment not found")
	}
	out := *a
	return &out, nil
}

func (r *fakeRepo) Accept(_ context.Context, id uuid.UUID, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return apperr.NotFound("assignment not found")
	}
	for _, existing := range r.items {
		if existing.InterventionID == a.InterventionID && existing.Status == repository.StatusAccepted {
			return apperr.Gone("this job was already taken by another artisan")
		}
	}
	if a.Status != repository.StatusProposed || !a.ExpiresAt.After(now) {
		return apperr.Conflict("proposal is no longer open")
	}
	a.Status = repository.StatusAccepted
	a.RespondedAt = &now
	return nil
}

func (r *fakeRepo) MarkResponded(_ context.Context, id uuid.UUID, from, to repository.Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok || a.Status != from {
		return false, nil
	}
	a.Status = to
	return true, nil
}

func (r *fakeRepo) RevokeProposedSiblings(_ context.Context, interventionID, winnerID uuid.UUID) ([]repository.ArtisanAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var revoked []repository.ArtisanAssignment
	for _, a := range r.items {
		if a.InterventionID == interventionID && a.ID != winnerID && a.Status == repository.StatusProposed {
			a.Status = repository.StatusRevoked
			revoked = append(revoked, *a)
		}
	}
	return revoked, nil
}

func (r *fakeRepo) RevokeActive(_ context.Context, interventionID uuid.UUID) ([]repository.ArtisanAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var revoked []repository.ArtisanAssignment
	for _, a := range r.items {
		if a.InterventionID == interventionID &&
			(a.Status == repository.StatusProposed || a.Status == repository.StatusAccepted) {
			a.Status = repository.StatusRevoked
			revoked = append(revoked, *a)
		}
	}
	return revoked, nil
}

func (r *fakeRepo) ExpireOverdue(_ context.Context, now time.Time) ([]repository.ArtisanAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var expired []repository.ArtisanAssignment
	for _, a := range r.items {
		if a.Status == repository.StatusProposed && !a.ExpiresAt.After(now) {
			a.Status = repository.StatusExpired
			expired = append(expired, *a)
		}
	}
	return expired, nil
}

func (r *fakeRepo) HasAccepted(_ context.Context, interventionID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.items {
		if a.InterventionID == interventionID && a.Status == repository.StatusAccepted {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) HoldsAccepted(_ context.Context, artisanID, interventionID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.items {
		if a.InterventionID == interventionID && a.ArtisanID == artisanID && a.Status == repository.StatusAccepted {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) CountProposed(_ context.Context, interventionID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, a := range r.items {
		if a.InterventionID == interventionID && a.Status == repository.StatusProposed {
			count++
		}
	}
	return count, nil
}

func (r *fakeRepo) DeclinedArtisanIDs(_ context.Context, interventionID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, a := range r.items {
		if a.InterventionID == interventionID &&
			(a.Status == repository.StatusRefused || a.Status == repository.StatusExpired) &&
			!seen[a.ArtisanID] {
			seen[a.ArtisanID] = true
			ids = append(ids, a.ArtisanID)
		}
	}
	return ids, nil
}

func (r *fakeRepo) ListByArtisan(_ context.Context, artisanID uuid.UUID, statuses []repository.Status) ([]repository.ArtisanAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.ArtisanAssignment
	for _, a := range r.items {
		if a.ArtisanID != artisanID {
			continue
		}
		if len(statuses) > 0 {
			match := false
			for _, s := range statuses {
				if a.Status == s {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, *a)
	}
	return out, nil
}

func (r *fakeRepo) ListByIntervention(_ context.Context, interventionID uuid.UUID) ([]repository.ArtisanAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.ArtisanAssignment
	for _, a := range r.items {
		if a.InterventionID == interventionID {
			out = append(out, *a)
		}
	}
	return out, nil
}

type stubDriver struct {
	mu        sync.Mutex
	assignErr error
	assigned  []uuid.UUID
	reverted  []uuid.UUID
}

func (d *stubDriver) Assign(_ context.Context, interventionID uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.assignErr != nil {
		return d.assignErr
	}
	d.assigned = append(d.assigned, interventionID)
	return nil
}

func (d *stubDriver) RevertToSearching(_ context.Context, interventionID uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reverted = append(d.reverted, interventionID)
	return nil
}

type stubRecorder struct {
	mu      sync.Mutex
	touched []uuid.UUID
}

func (r *stubRecorder) TouchLastAssigned(_ context.Context, artisanID uuid.UUID, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touched = append(r.touched, artisanID)
	return nil
}

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

func newTestService() (*Service, *fakeRepo, *stubDriver, *stubRecorder, *recordingBus) {
	repo := newFakeRepo()
	driver := &stubDriver{}
	recorder := &stubRecorder{}
	bus := &recordingBus{}
	svc := New(repo, recorder, bus, logger.New("development"))
	svc.SetInterventionDriver(driver)
	return svc, repo, driver, recorder, bus
}

func TestProposeFansOut(t *testing.T) {
	svc, _, _, _, bus := newTestService()
	interventionID := uuid.New()
	artisans := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	created, err := svc.Propose(context.Background(), interventionID, artisans, 90*time.Second)
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("expected 3 proposals, got %d", len(created))
	}
	for _, a := range created {
		if a.Status != repository.StatusProposed {
			t.Fatalf("expected proposed status, got %s", a.Status)
		}
		if !a.ExpiresAt.After(a.ProposedAt) {
			t.Fatal("expected a future response deadline")
		}
	}
	if got := len(bus.byName("assignments.proposed")); got != 3 {
		t.Fatalf("expected 3 proposed events, got %d", got)
	}
}

func TestProposeSkipsArtisansWithLiveProposal(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	interventionID := uuid.New()
	artisan := uuid.New()

	first, err := svc.Propose(context.Background(), interventionID, []uuid.UUID{artisan}, time.Minute)
	if err != nil || len(first) != 1 {
		t.Fatalf("first propose: %v (%d rows)", err, len(first))
	}
	second, err := svc.Propose(context.Background(), interventionID, []uuid.UUID{artisan}, time.Minute)
	if err != nil {
		t.Fatalf("second propose failed: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("expected duplicate proposal to be skipped, got %d rows", len(second))
	}
}

func TestProposeBlockedAfterAcceptance(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	interventionID := uuid.New()
	winner := uuid.New()

	created, err := svc.Propose(context.Background(), interventionID, []uuid.UUID{winner}, time.Minute)
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}
	if _, err := svc.Respond(context.Background(), created[0].ID, winner, DecisionAccept); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	_, err = svc.Propose(context.Background(), interventionID, []uuid.UUID{uuid.New()}, time.Minute)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict proposing after acceptance, got %v", err)
	}
}

func TestProposeEmptyListIsNoop(t *testing.T) {
	svc, _, _, _, bus := newTestService()
	created, err := svc.Propose(context.Background(), uuid.New(), nil, time.Minute)
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}
	if created != nil {
		t.Fatalf("expected nil, got %v", created)
	}
	if len(bus.byName("assignments.proposed")) != 0 {
		t.Fatal("expected no events")
	}
}

func TestAcceptWinsAndRevokesSiblings(t *testing.T) {
	svc, repo, driver, recorder, bus := newTestService()
	interventionID := uuid.New()
	winner, loser := uuid.New(), uuid.New()

	created, err := svc.Propose(context.Background(), interventionID, []uuid.UUID{winner, loser}, time.Minute)
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}
	var winnerAssignment, loserAssignment repository.ArtisanAssignment
	for _, a := range created {
		if a.ArtisanID == winner {
			winnerAssignment = a
		} else {
			loserAssignment = a
		}
	}

	got, err := svc.Respond(context.Background(), winnerAssignment.ID, winner, DecisionAccept)
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if got.Status != repository.StatusAccepted {
		t.Fatalf("expected accepted, got %s", got.Status)
	}

	sibling, _ := repo.GetByID(context.Background(), loserAssignment.ID)
	if sibling.Status != repository.StatusRevoked {
		t.Fatalf("expected sibling revoked, got %s", sibling.Status)
	}
	if len(driver.assigned) != 1 || driver.assigned[0] != interventionID {
		t.Fatalf("expected Assign(%s), got %v", interventionID, driver.assigned)
	}
	if len(recorder.touched) != 1 || recorder.touched[0] != winner {
		t.Fatalf("expected TouchLastAssigned for winner, got %v", recorder.touched)
	}
	if got := len(bus.byName("assignments.accepted")); got != 1 {
		t.Fatalf("expected 1 accepted event, got %d", got)
	}
	if got := len(bus.byName("assignments.revoked")); got != 1 {
		t.Fatalf("expected 1 revoked event, got %d", got)
	}
}

func TestAcceptIdempotentForWinner(t *testing.T) {
	svc, _, driver, _, _ := newTestService()
	interventionID := uuid.New()
	winner := uuid.New()

	created, _ := svc.Propose(context.Background(), interventionID, []uuid.UUID{winner}, time.Minute)
	if _, err := svc.Respond(context.Background(), created[0].ID, winner, DecisionAccept); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	got, err := svc.Respond(context.Background(), created[0].ID, winner, DecisionAccept)
	if err != nil {
		t.Fatalf("repeat accept should be idempotent, got %v", err)
	}
	if got.Status != repository.StatusAccepted {
		t.Fatalf("expected accepted, got %s", got.Status)
	}
	if len(driver.assigned) != 1 {
		t.Fatalf("expected a single Assign call, got %d", len(driver.assigned))
	}
}

func TestAcceptLosesToRevokedProposal(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	interventionID := uuid.New()
	winner, loser := uuid.New(), uuid.New()

	created, _ := svc.Propose(context.Background(), interventionID, []uuid.UUID{winner, loser}, time.Minute)
	var winnerAssignment, loserAssignment repository.ArtisanAssignment
	for _, a := range created {
		if a.ArtisanID == winner {
			winnerAssignment = a
		} else {
			loserAssignment = a
		}
	}

	if _, err := svc.Respond(context.Background(), winnerAssignment.ID, winner, DecisionAccept); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	// The revoked loser tries to accept afterwards.
	_, err := svc.Respond(context.Background(), loserAssignment.ID, loser, DecisionAccept)
	if !apperr.Is(err, apperr.KindGone) {
		t.Fatalf("expected gone for losing artisan, got %v", err)
	}
}

func TestConcurrentAcceptsSingleWinner(t *testing.T) {
	svc, repo, driver, _, _ := newTestService()
	interventionID := uuid.New()
	first, second := uuid.New(), uuid.New()

	created, err := svc.Propose(context.Background(), interventionID, []uuid.UUID{first, second}, time.Minute)
	if err != nil || len(created) != 2 {
		t.Fatalf("propose: %v (%d rows)", err, len(created))
	}

	// Both artisans accept at the same moment. Exactly one may win.
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, a := range created {
		wg.Add(1)
		go func(i int, id, artisanID uuid.UUID) {
			defer wg.Done()
			_, errs[i] = svc.Respond(context.Background(), id, artisanID, DecisionAccept)
		}(i, a.ID, a.ArtisanID)
	}
	wg.Wait()

	wins, losses := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case apperr.Is(err, apperr.KindGone):
			losses++
		default:
			t.Fatalf("unexpected accept error: %v", err)
		}
	}
	if wins != 1 || losses != 1 {
		t.Fatalf("expected exactly one winner and one gone loser, got %d wins, %d losses", wins, losses)
	}

	accepted := 0
	for _, a := range created {
		got, _ := repo.GetByID(context.Background(), a.ID)
		if got.Status == repository.StatusAccepted {
			accepted++
		}
	}
	if accepted != 1 {
		t.Fatalf("expected a single accepted row, got %d", accepted)
	}
	if len(driver.assigned) != 1 || driver.assigned[0] != interventionID {
		t.Fatalf("expected a single Assign(%s), got %v", interventionID, driver.assigned)
	}
}

func TestAcceptRolledBackWhenAssignFails(t *testing.T) {
	svc, repo, driver, recorder, bus := newTestService()
	driver.assignErr = apperr.Conflict("transition searching → assigned is not permitted")
	interventionID := uuid.New()
	artisan := uuid.New()

	created, _ := svc.Propose(context.Background(), interventionID, []uuid.UUID{artisan}, time.Minute)
	_, err := svc.Respond(context.Background(), created[0].ID, artisan, DecisionAccept)
	if !apperr.Is(err, apperr.KindGone) {
		t.Fatalf("expected gone when the request was cancelled underneath, got %v", err)
	}

	got, _ := repo.GetByID(context.Background(), created[0].ID)
	if got.Status != repository.StatusRevoked {
		t.Fatalf("expected acceptance rolled back to revoked, got %s", got.Status)
	}
	if len(recorder.touched) != 0 {
		t.Fatalf("expected no TouchLastAssigned after rollback, got %v", recorder.touched)
	}
	if len(bus.byName("assignments.accepted")) != 0 {
		t.Fatal("expected no accepted event after rollback")
	}
}

func TestRespondForbiddenForOtherArtisan(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	created, _ := svc.Propose(context.Background(), uuid.New(), []uuid.UUID{uuid.New()}, time.Minute)

	_, err := svc.Respond(context.Background(), created[0].ID, uuid.New(), DecisionAccept)
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestRespondRejectsUnknownDecision(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	artisan := uuid.New()
	created, _ := svc.Propose(context.Background(), uuid.New(), []uuid.UUID{artisan}, time.Minute)

	_, err := svc.Respond(context.Background(), created[0].ID, artisan, Decision("maybe"))
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRefuseProposal(t *testing.T) {
	svc, _, driver, _, bus := newTestService()
	interventionID := uuid.New()
	artisan := uuid.New()

	created, _ := svc.Propose(context.Background(), interventionID, []uuid.UUID{artisan}, time.Minute)
	got, err := svc.Respond(context.Background(), created[0].ID, artisan, DecisionRefuse)
	if err != nil {
		t.Fatalf("refuse failed: %v", err)
	}
	if got.Status != repository.StatusRefused {
		t.Fatalf("expected refused, got %s", got.Status)
	}
	if len(driver.reverted) != 0 {
		t.Fatal("refusing an open proposal must not revert the request")
	}

	refused := bus.byName("assignments.refused")
	if len(refused) != 1 {
		t.Fatalf("expected 1 refused event, got %d", len(refused))
	}
	if refused[0].(events.AssignmentRefused).Withdrawal {
		t.Fatal("expected Withdrawal=false for a plain refusal")
	}

	declined, err := svc.DeclinedArtisanIDs(context.Background(), interventionID)
	if err != nil {
		t.Fatalf("declined list failed: %v", err)
	}
	if len(declined) != 1 || declined[0] != artisan {
		t.Fatalf("expected artisan in declined list, got %v", declined)
	}
}

func TestWithdrawAcceptedAssignment(t *testing.T) {
	svc, repo, driver, _, bus := newTestService()
	interventionID := uuid.New()
	artisan := uuid.New()

	created, _ := svc.Propose(context.Background(), interventionID, []uuid.UUID{artisan}, time.Minute)
	if _, err := svc.Respond(context.Background(), created[0].ID, artisan, DecisionAccept); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	got, err := svc.Respond(context.Background(), created[0].ID, artisan, DecisionRefuse)
	if err != nil {
		t.Fatalf("withdrawal failed: %v", err)
	}
	if got.Status != repository.StatusRefused {
		t.Fatalf("expected refused after withdrawal, got %s", got.Status)
	}
	if len(driver.reverted) != 1 || driver.reverted[0] != interventionID {
		t.Fatalf("expected RevertToSearching(%s), got %v", interventionID, driver.reverted)
	}

	refused := bus.byName("assignments.refused")
	if len(refused) != 1 {
		t.Fatalf("expected 1 refused event, got %d", len(refused))
	}
	if !refused[0].(events.AssignmentRefused).Withdrawal {
		t.Fatal("expected Withdrawal=true after giving up an accepted assignment")
	}

	stored, _ := repo.GetByID(context.Background(), created[0].ID)
	if stored.Status != repository.StatusRefused {
		t.Fatalf("expected stored status refused, got %s", stored.Status)
	}
}

func TestExpireOverdueSweep(t *testing.T) {
	svc, _, _, _, bus := newTestService()
	interventionID := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.SetNowFunc(func() time.Time { return base })

	if _, err := svc.Propose(context.Background(), interventionID, []uuid.UUID{uuid.New(), uuid.New()}, 90*time.Second); err != nil {
		t.Fatalf("propose failed: %v", err)
	}

	// Nothing is overdue yet.
	count, err := svc.ExpireOverdue(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 expired, got %d", count)
	}

	svc.SetNowFunc(func() time.Time { return base.Add(2 * time.Minute) })
	count, err = svc.ExpireOverdue(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 expired, got %d", count)
	}
	if got := len(bus.byName("assignments.expired")); got != 2 {
		t.Fatalf("expected 2 expired events, got %d", got)
	}

	outstanding, _ := svc.OutstandingProposals(context.Background(), interventionID)
	if outstanding != 0 {
		t.Fatalf("expected no outstanding proposals, got %d", outstanding)
	}
}

func TestAcceptExpiredProposalIsGone(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	interventionID := uuid.New()
	artisan := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.SetNowFunc(func() time.Time { return base })

	created, _ := svc.Propose(context.Background(), interventionID, []uuid.UUID{artisan}, 90*time.Second)

	svc.SetNowFunc(func() time.Time { return base.Add(2 * time.Minute) })
	if _, err := svc.ExpireOverdue(context.Background()); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	_, err := svc.Respond(context.Background(), created[0].ID, artisan, DecisionAccept)
	if !apperr.Is(err, apperr.KindGone) {
		t.Fatalf("expected gone for an expired proposal, got %v", err)
	}
}

func TestRevokeActiveOnCancellation(t *testing.T) {
	svc, repo, _, _, bus := newTestService()
	interventionID := uuid.New()

	created, _ := svc.Propose(context.Background(), interventionID, []uuid.UUID{uuid.New(), uuid.New()}, time.Minute)
	if err := svc.RevokeActive(context.Background(), interventionID); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	for _, a := range created {
		got, _ := repo.GetByID(context.Background(), a.ID)
		if got.Status != repository.StatusRevoked {
			t.Fatalf("expected revoked, got %s", got.Status)
		}
	}
	if got := len(bus.byName("assignments.revoked")); got != 2 {
		t.Fatalf("expected 2 revoked events, got %d", got)
	}
}

func TestHoldsAccepted(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	interventionID := uuid.New()
	artisan := uuid.New()

	created, _ := svc.Propose(context.Background(), interventionID, []uuid.UUID{artisan}, time.Minute)

	holds, err := svc.HoldsAccepted(context.Background(), artisan, interventionID)
	if err != nil {
		t.Fatalf("holds check failed: %v", err)
	}
	if holds {
		t.Fatal("a proposal is not a held assignment")
	}

	if _, err := svc.Respond(context.Background(), created[0].ID, artisan, DecisionAccept); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	holds, _ = svc.HoldsAccepted(context.Background(), artisan, interventionID)
	if !holds {
		t.Fatal("expected winner to hold the accepted assignment")
	}
}
