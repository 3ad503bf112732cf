package tripgen

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"voyago/credits"
	"voyago/models"
)

// --- fakes ---

type fakeLedger struct {
	mu     sync.Mutex
	spends int
	err    error
}

func (f *fakeLedger) Spend(ctx context.Context, userID, tripID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.spends++
	return nil
}

func (f *fakeLedger) spendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.spends
}

type fakeStore struct {
	mu       sync.Mutex
	trip     *models.Trip
	fetchErr error
	saveErr  error
	fetches  int
	statuses []string
	saved    []models.TripDay
}

func (f *fakeStore) Fetch(ctx context.Context, tripID string) (*models.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	cp := *f.trip
	cp.Days = append([]models.TripDay(nil), f.saved...)
	if len(f.statuses) > 0 {
		cp.Status = f.statuses[len(f.statuses)-1]
	}
	return &cp, nil
}

func (f *fakeStore) UpdateStatus(ctx context.Context, tripID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeStore) SaveDays(ctx context.Context, tripID string, days []models.TripDay) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append([]models.TripDay(nil), days...)
	return nil
}

func (f *fakeStore) statusLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.statuses...)
}

func (f *fakeStore) savedDays() []models.TripDay {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.TripDay(nil), f.saved...)
}

func (f *fakeStore) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

type fakeWeather struct {
	forecasts []models.Forecast
	err       error
}

func (f *fakeWeather) Forecast(ctx context.Context, city string, dayCount int) ([]models.Forecast, error) {
	return f.forecasts, f.err
}

type fakeEventSearch struct {
	events []models.LiveEvent
	err    error
}

func (f *fakeEventSearch) Search(ctx context.Context, cities []string, startDate string, nights int) ([]models.LiveEvent, error) {
	return f.events, f.err
}

type fakePlanner struct {
	mu    sync.Mutex
	days  []models.TripDay
	err   error
	calls int
	got   []models.LiveEvent
}

func (f *fakePlanner) Synthesize(ctx context.Context, trip *models.Trip, events []models.LiveEvent) ([]models.TripDay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.got = append([]models.LiveEvent(nil), events...)
	if f.err != nil {
		return nil, f.err
	}
	return f.days, nil
}

func (f *fakePlanner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakePlanner) gotEvents() []models.LiveEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.LiveEvent(nil), f.got...)
}

// --- helpers ---

func testTrip() *models.Trip {
	return &models.Trip{
		TripID:       "T1",
		UserID:       "u1",
		Name:         "Paris long weekend",
		Destinations: []string{"Paris"},
		StartDate:    "2026-09-04",
		Nights:       3,
		Status:       models.TripStatusDraft,
	}
}

func testDays(n int) []models.TripDay {
	days := make([]models.TripDay, n)
	for i := range days {
		days[i] = models.TripDay{Date: "2026-09-0" + string(rune('4'+i)), Title: "Day"}
	}
	return days
}

func twoEvents() []models.LiveEvent {
	return []models.LiveEvent{
		{EventID: "e1", Title: "Jazz Night", City: "Paris"},
		{EventID: "e2", Title: "Open-Air Cinema", City: "Paris"},
	}
}

func newTestOrchestrator(ledger *fakeLedger, store *fakeStore, events *fakeEventSearch, planner *fakePlanner) *Orchestrator {
	o := NewOrchestrator(ledger, store, &fakeWeather{}, events, planner)
	o.revealDelay = 0
	return o
}

// waitSnap consumes snapshots until cond matches or the deadline hits.
func waitSnap(t *testing.T, ch <-chan models.GenerationSnapshot, cond func(models.GenerationSnapshot) bool) models.GenerationSnapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				t.Fatal("snapshot stream closed before condition was met")
			}
			if cond(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("timeout waiting for snapshot")
		}
	}
}

// drainUntilClosed reads the stream to the end and returns the last snapshot.
func drainUntilClosed(t *testing.T, ch <-chan models.GenerationSnapshot) models.GenerationSnapshot {
	t.Helper()
	var last models.GenerationSnapshot
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				return last
			}
			last = snap
		case <-deadline:
			t.Fatal("timeout waiting for stream to close")
		}
	}
}

// --- tests ---

func TestInsufficientCreditNeverStartsPipeline(t *testing.T) {
	ledger := &fakeLedger{err: credits.ErrInsufficientCredit}
	store := &fakeStore{trip: testTrip()}
	planner := &fakePlanner{days: testDays(4)}
	o := newTestOrchestrator(ledger, store, &fakeEventSearch{}, planner)

	_, err := o.Start(context.Background(), "u1", "T1")
	if !errors.Is(err, credits.ErrInsufficientCredit) {
		t.Fatalf("expected ErrInsufficientCredit, got %v", err)
	}

	if store.fetchCount() != 0 {
		t.Error("trip was fetched despite refused credit")
	}
	if len(store.statusLog()) != 0 {
		t.Errorf("trip status changed despite refused credit: %v", store.statusLog())
	}
	if len(store.savedDays()) != 0 {
		t.Error("days persisted despite refused credit")
	}
	if _, err := o.Snapshot("T1"); !errors.Is(err, ErrNoSession) {
		t.Error("session left behind after refused credit")
	}
}

func TestNoEventsRunsStraightThrough(t *testing.T) {
	ledger := &fakeLedger{}
	store := &fakeStore{trip: testTrip()}
	planner := &fakePlanner{days: testDays(4)}
	o := newTestOrchestrator(ledger, store, &fakeEventSearch{}, planner)

	s, err := o.Start(context.Background(), "u1", "T1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	ch, unsub := s.Subscribe()
	defer unsub()
	snap := waitSnap(t, ch, func(s models.GenerationSnapshot) bool { return s.IsComplete })

	if snap.Progress != 1 {
		t.Errorf("completed run progress = %v, want 1", snap.Progress)
	}
	if len(snap.GeneratedDays) != 4 {
		t.Errorf("revealed %d days, want 4", len(snap.GeneratedDays))
	}
	if snap.CompletedTrip == nil || snap.CompletedTrip.Status != models.TripStatusCompleted {
		t.Error("completed snapshot missing authoritative trip record")
	}
	if got := planner.gotEvents(); len(got) != 0 {
		t.Errorf("planner called with %d events, want 0", len(got))
	}
	if len(store.savedDays()) != 4 {
		t.Errorf("persisted %d days, want 4", len(store.savedDays()))
	}

	statuses := store.statusLog()
	if len(statuses) != 2 || statuses[0] != models.TripStatusGenerating || statuses[1] != models.TripStatusCompleted {
		t.Errorf("status sequence = %v, want [generating completed]", statuses)
	}
	if ledger.spendCount() != 1 {
		t.Errorf("spent %d credits, want 1", ledger.spendCount())
	}
}

func TestCheckpointPrecedesSynthesis(t *testing.T) {
	ledger := &fakeLedger{}
	store := &fakeStore{trip: testTrip()}
	planner := &fakePlanner{days: testDays(4)}
	o := newTestOrchestrator(ledger, store, &fakeEventSearch{events: twoEvents()}, planner)

	s, err := o.Start(context.Background(), "u1", "T1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	ch, unsub := s.Subscribe()
	defer unsub()
	snap := waitSnap(t, ch, func(s models.GenerationSnapshot) bool { return s.IsWaitingForEvents })

	if snap.IsGenerating {
		t.Error("session still generating while parked at checkpoint")
	}
	if len(snap.FoundEvents) != 2 {
		t.Errorf("found %d events, want 2", len(snap.FoundEvents))
	}
	// selection defaults to every found event
	if len(snap.SelectedEventIDs) != 2 {
		t.Errorf("default selection = %v, want both ids", snap.SelectedEventIDs)
	}
	if planner.callCount() != 0 {
		t.Fatal("synthesis invoked before the selection was confirmed")
	}

	if err := o.ContinueWithSelectedEvents("T1", []string{"e1"}); err != nil {
		t.Fatalf("ContinueWithSelectedEvents: %v", err)
	}

	waitSnap(t, ch, func(s models.GenerationSnapshot) bool { return s.IsComplete })

	got := planner.gotEvents()
	if len(got) != 1 || got[0].EventID != "e1" {
		t.Errorf("planner events = %v, want exactly e1", got)
	}
}

func TestSkipEventsInvokesSynthesisWithEmptySet(t *testing.T) {
	store := &fakeStore{trip: testTrip()}
	planner := &fakePlanner{days: testDays(4)}
	o := newTestOrchestrator(&fakeLedger{}, store, &fakeEventSearch{events: twoEvents()}, planner)

	s, err := o.Start(context.Background(), "u1", "T1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	ch, unsub := s.Subscribe()
	defer unsub()
	waitSnap(t, ch, func(s models.GenerationSnapshot) bool { return s.IsWaitingForEvents })

	if err := o.SkipEvents("T1"); err != nil {
		t.Fatalf("SkipEvents: %v", err)
	}
	waitSnap(t, ch, func(s models.GenerationSnapshot) bool { return s.IsComplete })

	if got := planner.gotEvents(); len(got) != 0 {
		t.Errorf("planner events = %v, want none after skip", got)
	}
}

func TestSelectionDropsUnknownIDs(t *testing.T) {
	store := &fakeStore{trip: testTrip()}
	planner := &fakePlanner{days: testDays(4)}
	o := newTestOrchestrator(&fakeLedger{}, store, &fakeEventSearch{events: twoEvents()}, planner)

	s, _ := o.Start(context.Background(), "u1", "T1")
	ch, unsub := s.Subscribe()
	defer unsub()
	waitSnap(t, ch, func(s models.GenerationSnapshot) bool { return s.IsWaitingForEvents })

	if err := o.ContinueWithSelectedEvents("T1", []string{"e2", "bogus"}); err != nil {
		t.Fatalf("ContinueWithSelectedEvents: %v", err)
	}
	waitSnap(t, ch, func(s models.GenerationSnapshot) bool { return s.IsComplete })

	got := planner.gotEvents()
	if len(got) != 1 || got[0].EventID != "e2" {
		t.Errorf("planner events = %v, want exactly e2", got)
	}
}

func TestSoftFetchFailuresDoNotFailRun(t *testing.T) {
	store := &fakeStore{trip: testTrip()}
	planner := &fakePlanner{days: testDays(4)}
	o := NewOrchestrator(
		&fakeLedger{},
		store,
		&fakeWeather{err: errors.New("forecast service down")},
		&fakeEventSearch{err: errors.New("event search down")},
		planner,
	)
	o.revealDelay = 0

	s, err := o.Start(context.Background(), "u1", "T1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	ch, unsub := s.Subscribe()
	defer unsub()
	snap := waitSnap(t, ch, func(s models.GenerationSnapshot) bool { return s.IsComplete })

	if len(snap.FoundEvents) != 0 {
		t.Errorf("found events = %v, want none", snap.FoundEvents)
	}
	if snap.HasFailed {
		t.Error("soft failures escalated to a hard failure")
	}
}

func TestSynthesisFailureFailsRun(t *testing.T) {
	store := &fakeStore{trip: testTrip()}
	planner := &fakePlanner{err: errors.New("model overloaded")}
	o := newTestOrchestrator(&fakeLedger{}, store, &fakeEventSearch{}, planner)

	s, _ := o.Start(context.Background(), "u1", "T1")
	ch, unsub := s.Subscribe()
	defer unsub()
	snap := waitSnap(t, ch, func(s models.GenerationSnapshot) bool { return s.HasFailed })

	if snap.IsComplete {
		t.Error("failed run reported complete")
	}
	if snap.ErrorMessage == "" {
		t.Error("failed run has no error message")
	}

	statuses := store.statusLog()
	if len(statuses) == 0 || statuses[len(statuses)-1] != models.TripStatusFailed {
		t.Errorf("status sequence = %v, want trailing failed", statuses)
	}
}

func TestPersistenceFailureFailsRunButKeepsDaysInSession(t *testing.T) {
	store := &fakeStore{trip: testTrip(), saveErr: errors.New("write refused")}
	planner := &fakePlanner{days: testDays(4)}
	o := newTestOrchestrator(&fakeLedger{}, store, &fakeEventSearch{}, planner)

	s, _ := o.Start(context.Background(), "u1", "T1")
	ch, unsub := s.Subscribe()
	defer unsub()
	snap := waitSnap(t, ch, func(s models.GenerationSnapshot) bool { return s.HasFailed })

	// synthesis succeeded, so the content stays visible in the session
	if len(snap.GeneratedDays) != 4 {
		t.Errorf("session kept %d days, want 4", len(snap.GeneratedDays))
	}
	if snap.IsComplete {
		t.Error("failed run reported complete")
	}
}

func TestCancelAtCheckpointNeverCallsSynthesis(t *testing.T) {
	store := &fakeStore{trip: testTrip()}
	planner := &fakePlanner{days: testDays(4)}
	o := newTestOrchestrator(&fakeLedger{}, store, &fakeEventSearch{events: twoEvents()}, planner)

	s, _ := o.Start(context.Background(), "u1", "T1")
	ch, unsub := s.Subscribe()
	defer unsub()
	waitSnap(t, ch, func(s models.GenerationSnapshot) bool { return s.IsWaitingForEvents })

	if err := o.Cancel("T1"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	last := drainUntilClosed(t, ch)
	if last.IsGenerating || last.IsWaitingForEvents || last.IsComplete || last.HasFailed {
		t.Errorf("cancelled session has a live status flag: %+v", last)
	}
	if planner.callCount() != 0 {
		t.Error("synthesis ran after cancellation")
	}
	// stored status is intentionally left as "generating"
	statuses := store.statusLog()
	if len(statuses) != 1 || statuses[0] != models.TripStatusGenerating {
		t.Errorf("status sequence = %v, want [generating]", statuses)
	}
	if _, err := o.Snapshot("T1"); !errors.Is(err, ErrNoSession) {
		t.Error("cancelled session was not discarded")
	}
}

func TestDuplicateStartRejected(t *testing.T) {
	ledger := &fakeLedger{}
	store := &fakeStore{trip: testTrip()}
	planner := &fakePlanner{days: testDays(4)}
	o := newTestOrchestrator(ledger, store, &fakeEventSearch{events: twoEvents()}, planner)

	s, _ := o.Start(context.Background(), "u1", "T1")
	ch, unsub := s.Subscribe()
	defer unsub()
	waitSnap(t, ch, func(s models.GenerationSnapshot) bool { return s.IsWaitingForEvents })

	if _, err := o.Start(context.Background(), "u1", "T1"); !errors.Is(err, ErrAlreadyGenerating) {
		t.Fatalf("expected ErrAlreadyGenerating, got %v", err)
	}
	if ledger.spendCount() != 1 {
		t.Errorf("double start spent %d credits, want 1", ledger.spendCount())
	}
}

func TestRetryResetsSessionAndRedebits(t *testing.T) {
	ledger := &fakeLedger{}
	store := &fakeStore{trip: testTrip()}
	planner := &fakePlanner{err: errors.New("model overloaded")}
	o := newTestOrchestrator(ledger, store, &fakeEventSearch{events: twoEvents()}, planner)

	s, _ := o.Start(context.Background(), "u1", "T1")
	ch, unsub := s.Subscribe()
	defer unsub()
	waitSnap(t, ch, func(s models.GenerationSnapshot) bool { return s.IsWaitingForEvents })
	if err := o.SkipEvents("T1"); err != nil {
		t.Fatalf("SkipEvents: %v", err)
	}
	waitSnap(t, ch, func(s models.GenerationSnapshot) bool { return s.HasFailed })

	// heal the planner and retry
	planner.mu.Lock()
	planner.err = nil
	planner.days = testDays(4)
	planner.mu.Unlock()

	if _, err := o.Retry(context.Background(), "T1"); err != nil {
		t.Fatalf("Retry: %v", err)
	}

	// the reset snapshot wipes the failed run
	waitSnap(t, ch, func(s models.GenerationSnapshot) bool {
		return !s.HasFailed && s.ErrorMessage == "" && s.Progress == 0
	})

	// fresh run parks at the checkpoint again
	waitSnap(t, ch, func(s models.GenerationSnapshot) bool { return s.IsWaitingForEvents })
	if err := o.ContinueWithSelectedEvents("T1", []string{"e1", "e2"}); err != nil {
		t.Fatalf("ContinueWithSelectedEvents: %v", err)
	}
	snap := waitSnap(t, ch, func(s models.GenerationSnapshot) bool { return s.IsComplete })

	if snap.Progress != 1 {
		t.Errorf("retried run progress = %v, want 1", snap.Progress)
	}
	if ledger.spendCount() != 2 {
		t.Errorf("spent %d credits across retry, want 2", ledger.spendCount())
	}
}

func TestProgressNeverDecreasesWithinARun(t *testing.T) {
	store := &fakeStore{trip: testTrip()}
	planner := &fakePlanner{days: testDays(4)}
	o := newTestOrchestrator(&fakeLedger{}, store, &fakeEventSearch{events: twoEvents()}, planner)

	s, _ := o.Start(context.Background(), "u1", "T1")
	ch, unsub := s.Subscribe()
	defer unsub()

	var seen []float64
	deadline := time.After(2 * time.Second)
	for {
		var done bool
		select {
		case snap, ok := <-ch:
			if !ok {
				t.Fatal("stream closed early")
			}
			seen = append(seen, snap.Progress)
			if snap.IsWaitingForEvents {
				if err := o.SkipEvents("T1"); err != nil && !errors.Is(err, ErrNotWaiting) {
					t.Fatalf("SkipEvents: %v", err)
				}
			}
			done = snap.IsComplete
		case <-deadline:
			t.Fatal("timeout waiting for completion")
		}
		if done {
			break
		}
	}

	for i := 1; i < len(seen); i++ {
		if seen[i] < seen[i-1] {
			t.Fatalf("progress regressed at %d: %v", i, seen)
		}
	}
	if seen[len(seen)-1] != 1 {
		t.Errorf("final progress = %v, want 1", seen[len(seen)-1])
	}
}

func TestResumeWithoutCheckpointIsRejected(t *testing.T) {
	store := &fakeStore{trip: testTrip()}
	planner := &fakePlanner{days: testDays(4)}
	o := newTestOrchestrator(&fakeLedger{}, store, &fakeEventSearch{}, planner)

	if err := o.ContinueWithSelectedEvents("nope", []string{"e1"}); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession, got %v", err)
	}

	s, _ := o.Start(context.Background(), "u1", "T1")
	ch, unsub := s.Subscribe()
	defer unsub()
	waitSnap(t, ch, func(s models.GenerationSnapshot) bool { return s.IsComplete })

	if err := o.SkipEvents("T1"); !errors.Is(err, ErrNotWaiting) {
		t.Errorf("expected ErrNotWaiting on a completed session, got %v", err)
	}
}
