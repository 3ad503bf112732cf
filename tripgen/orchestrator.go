// Package tripgen runs the trip-generation pipeline: credit gate, trip
// fetch, ancillary content fetches, an indefinite checkpoint for live
// event selection, itinerary synthesis, and persistence. Progress is
// reported to any number of observers along the way.
package tripgen

import (
	"context"
	"log"
	"sync"
	"time"

	"voyago/models"
	"voyago/mq"
)

// Collaborator contracts. The concrete implementations live in the
// credits, trips, weather, eventsearch and planner packages; tests
// substitute fakes.

type Ledger interface {
	Spend(ctx context.Context, userID, tripID string) error
}

type TripStore interface {
	Fetch(ctx context.Context, tripID string) (*models.Trip, error)
	UpdateStatus(ctx context.Context, tripID, status string) error
	SaveDays(ctx context.Context, tripID string, days []models.TripDay) error
}

type WeatherService interface {
	Forecast(ctx context.Context, city string, dayCount int) ([]models.Forecast, error)
}

type EventSearch interface {
	Search(ctx context.Context, cities []string, startDate string, nights int) ([]models.LiveEvent, error)
}

type Planner interface {
	Synthesize(ctx context.Context, trip *models.Trip, events []models.LiveEvent) ([]models.TripDay, error)
}

// Orchestrator owns every generation session and sequences each run.
type Orchestrator struct {
	ledger   Ledger
	store    TripStore
	weather  WeatherService
	events   EventSearch
	planner  Planner
	registry *Registry

	// pacing between incremental day reveals; zero in tests
	revealDelay time.Duration
}

func NewOrchestrator(ledger Ledger, store TripStore, weather WeatherService, events EventSearch, planner Planner) *Orchestrator {
	return &Orchestrator{
		ledger:      ledger,
		store:       store,
		weather:     weather,
		events:      events,
		planner:     planner,
		registry:    NewRegistry(),
		revealDelay: 150 * time.Millisecond,
	}
}

// Start gates on credit and launches the pipeline for tripID. The
// credit debit happens before any pipeline work; on
// credits.ErrInsufficientCredit the session never starts and nothing
// else runs. Returns the live session on success.
func (o *Orchestrator) Start(ctx context.Context, userID, tripID string) (*Session, error) {
	s, err := o.registry.acquire(userID, tripID)
	if err != nil {
		return nil, err
	}

	if err := o.ledger.Spend(ctx, userID, tripID); err != nil {
		o.registry.remove(tripID)
		return nil, err
	}

	go o.run(s)
	return s, nil
}

// ContinueWithSelectedEvents resumes a checkpointed session with the
// caller's confirmed event ids. Valid only while the session waits.
func (o *Orchestrator) ContinueWithSelectedEvents(tripID string, ids []string) error {
	s := o.registry.get(tripID)
	if s == nil {
		return ErrNoSession
	}
	return s.resume(ids)
}

// SkipEvents resumes a checkpointed session with no events at all.
func (o *Orchestrator) SkipEvents(tripID string) error {
	s := o.registry.get(tripID)
	if s == nil {
		return ErrNoSession
	}
	return s.resume([]string{})
}

// Cancel requests the run stop at its next suspension point. Committed
// writes and the credit debit stay as they are; the stored trip status
// is left untouched.
func (o *Orchestrator) Cancel(tripID string) error {
	s := o.registry.get(tripID)
	if s == nil {
		return ErrNoSession
	}
	s.cancelFn()
	return nil
}

// Retry re-runs a failed session from scratch. Every field except the
// trip id is reset and a fresh credit is debited.
func (o *Orchestrator) Retry(ctx context.Context, tripID string) (*Session, error) {
	s := o.registry.get(tripID)
	if s == nil {
		return nil, ErrNoSession
	}
	if !s.isFailed() {
		return nil, ErrNotFailed
	}

	s.reset()
	if err := o.ledger.Spend(ctx, s.UserID, tripID); err != nil {
		s.finishFailed("credit debit failed")
		return nil, err
	}

	go o.run(s)
	return s, nil
}

// Snapshot returns the current state of the trip's session, if any.
func (o *Orchestrator) Snapshot(tripID string) (models.GenerationSnapshot, error) {
	s := o.registry.get(tripID)
	if s == nil {
		return models.GenerationSnapshot{}, ErrNoSession
	}
	return s.Snapshot(), nil
}

// Session exposes the live session for the observer surface.
func (o *Orchestrator) Session(tripID string) *Session {
	return o.registry.get(tripID)
}

// run drives one generation attempt end to end. It is the session's
// single writer; cancellation is checked at every suspension boundary.
func (o *Orchestrator) run(s *Session) {
	ctx := s.ctx

	s.advance(models.StepAnalyzing, 0.05)
	mq.EmitGeneration(ctx, models.GenerationEvent{
		Name: mq.EvGenerationStarted, TripID: s.TripID, UserID: s.UserID, Step: models.StepAnalyzing,
	})

	// Trip fetch is a hard dependency.
	trip, err := o.store.Fetch(ctx, s.TripID)
	if err != nil {
		if s.cancelled() {
			o.finishCancelled(s)
			return
		}
		o.fail(s, "could not load trip: "+err.Error())
		return
	}

	if err := o.store.UpdateStatus(ctx, s.TripID, models.TripStatusGenerating); err != nil {
		log.Printf("tripgen: mark %s generating: %v", s.TripID, err)
	}

	if s.cancelled() {
		o.finishCancelled(s)
		return
	}

	// Weather and event search run concurrently; both are soft
	// dependencies, so a failure just means empty data.
	s.advance(models.StepWeather, 0.15)

	var (
		wg        sync.WaitGroup
		forecasts []models.Forecast
		found     []models.LiveEvent
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		f, err := o.weather.Forecast(ctx, trip.PrimaryCity(), trip.DayCount())
		if err != nil {
			log.Printf("tripgen: weather fetch for %s failed (continuing): %v", s.TripID, err)
			return
		}
		forecasts = f
	}()
	go func() {
		defer wg.Done()
		evs, err := o.events.Search(ctx, trip.Destinations, trip.StartDate, trip.Nights)
		if err != nil {
			log.Printf("tripgen: event search for %s failed (continuing): %v", s.TripID, err)
			return
		}
		found = evs
	}()
	wg.Wait()

	if s.cancelled() {
		o.finishCancelled(s)
		return
	}

	s.setForecasts(forecasts)
	s.advance(models.StepEvents, 0.3)
	s.setFoundEvents(found)

	confirmed := found
	if len(found) > 0 {
		// Checkpoint: park indefinitely until the caller confirms a
		// selection, skips, or cancels. Synthesis never runs with an
		// unconfirmed event set.
		s.enterCheckpoint()
		mq.EmitGeneration(ctx, models.GenerationEvent{
			Name: mq.EvWaitingForSelection, TripID: s.TripID, Step: models.StepEvents,
			Detail: "awaiting event selection",
		})

		select {
		case ids := <-s.resumeCh:
			confirmed = filterEvents(found, ids)
		case <-ctx.Done():
			o.finishCancelled(s)
			return
		}
	}

	s.advance(models.StepPlanning, 0.45)

	// Synthesis is the hard dependency: its failure fails the run.
	days, err := o.planner.Synthesize(ctx, trip, confirmed)
	if err != nil {
		if s.cancelled() {
			o.finishCancelled(s)
			return
		}
		o.fail(s, "itinerary synthesis failed: "+err.Error())
		return
	}

	// Reveal the generated days one at a time, progress advancing
	// proportionally from Detailing into Finalizing.
	s.advance(models.StepDetailing, 0.55)
	for i, day := range days {
		if s.cancelled() {
			o.finishCancelled(s)
			return
		}
		frac := 0.55 + 0.35*float64(i+1)/float64(len(days))
		s.appendDay(day, frac)
		mq.EmitGeneration(ctx, models.GenerationEvent{
			Name: mq.EvDayRevealed, TripID: s.TripID, Step: models.StepDetailing,
			Progress: frac, Detail: day.Date,
		})
		if o.revealDelay > 0 {
			time.Sleep(o.revealDelay)
		}
	}

	s.advance(models.StepFinalizing, 0.9)

	if s.cancelled() {
		o.finishCancelled(s)
		return
	}

	// Persistence is hard: without it the generated content is lost.
	if err := o.store.SaveDays(ctx, s.TripID, days); err != nil {
		o.fail(s, "could not save itinerary: "+err.Error())
		return
	}

	if err := o.store.UpdateStatus(ctx, s.TripID, models.TripStatusCompleted); err != nil {
		log.Printf("tripgen: mark %s completed: %v", s.TripID, err)
	}

	// Re-fetch so the snapshot observers get is the authoritative
	// stored record. If the re-fetch fails the run still completed;
	// fall back to the in-memory copy.
	final, err := o.store.Fetch(ctx, s.TripID)
	if err != nil {
		log.Printf("tripgen: re-fetch %s after completion: %v", s.TripID, err)
		trip.Days = days
		trip.Status = models.TripStatusCompleted
		final = trip
	}

	s.finishComplete(final)
	mq.EmitGeneration(ctx, models.GenerationEvent{
		Name: mq.EvGenerationCompleted, TripID: s.TripID, Progress: 1,
	})
}

// fail marks the session failed and best-effort records the outcome on
// the stored trip. Credits spent on the attempt are consumed.
func (o *Orchestrator) fail(s *Session, msg string) {
	s.finishFailed(msg)

	// The run context may already be dead; use a short independent one.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.store.UpdateStatus(ctx, s.TripID, models.TripStatusFailed); err != nil {
		log.Printf("tripgen: mark %s failed: %v", s.TripID, err)
	}

	mq.EmitGeneration(ctx, models.GenerationEvent{
		Name: mq.EvGenerationFailed, TripID: s.TripID, Detail: msg,
	})
}

// finishCancelled ends the run without touching the stored trip status
// and discards the session.
func (o *Orchestrator) finishCancelled(s *Session) {
	s.finishCancelled()
	mq.EmitGeneration(context.Background(), models.GenerationEvent{
		Name: mq.EvGenerationCancelled, TripID: s.TripID,
	})
	o.registry.remove(s.TripID)
}

func filterEvents(found []models.LiveEvent, ids []string) []models.LiveEvent {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make([]models.LiveEvent, 0, len(ids))
	for _, ev := range found {
		if want[ev.EventID] {
			out = append(out, ev)
		}
	}
	return out
}
