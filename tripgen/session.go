package tripgen

import (
	"context"
	"errors"
	"sync"

	"voyago/models"
)

var (
	ErrNoSession         = errors.New("no generation session for trip")
	ErrAlreadyGenerating = errors.New("trip is already generating")
	ErrNotWaiting        = errors.New("session is not waiting for event selection")
	ErrNotFailed         = errors.New("session has not failed")
)

// subscriberBuffer is the per-subscriber snapshot channel depth. A slow
// subscriber loses intermediate snapshots instead of blocking the run.
const subscriberBuffer = 16

// Session is the live state of one generation run. The run goroutine is
// the only writer after Start; everyone else reads snapshots. The mutex
// guards the copy-out, not any cross-goroutine write contention on the
// pipeline path.
type Session struct {
	TripID string
	UserID string

	mu            sync.RWMutex
	step          string
	progress      float64
	generating    bool
	waiting       bool
	complete      bool
	failed        bool
	errMsg        string
	days          []models.TripDay
	foundEvents   []models.LiveEvent
	selectedIDs   []string
	forecasts     []models.Forecast
	completedTrip *models.Trip

	subs map[chan models.GenerationSnapshot]struct{}

	// resumeCh carries the confirmed event ids out of the checkpoint.
	// Buffered so the resume caller never blocks; the waiting flag
	// guarantees at most one send per park.
	resumeCh chan []string

	ctx      context.Context
	cancelFn context.CancelFunc
}

func newSession(userID, tripID string) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		TripID:   tripID,
		UserID:   userID,
		subs:     make(map[chan models.GenerationSnapshot]struct{}),
		resumeCh: make(chan []string, 1),
		ctx:      ctx,
		cancelFn: cancel,
	}
}

// Snapshot returns a read-only copy of the session state.
func (s *Session) Snapshot() models.GenerationSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() models.GenerationSnapshot {
	snap := models.GenerationSnapshot{
		TripID:             s.TripID,
		Step:               s.step,
		Progress:           s.progress,
		IsGenerating:       s.generating,
		IsWaitingForEvents: s.waiting,
		IsComplete:         s.complete,
		HasFailed:          s.failed,
		ErrorMessage:       s.errMsg,
		GeneratedDays:      append([]models.TripDay(nil), s.days...),
		Forecasts:          append([]models.Forecast(nil), s.forecasts...),
		FoundEvents:        append([]models.LiveEvent(nil), s.foundEvents...),
		SelectedEventIDs:   append([]string(nil), s.selectedIDs...),
		CompletedTrip:      s.completedTrip,
	}
	return snap
}

// Subscribe registers an observer. The returned function unsubscribes;
// the channel is closed when the session is discarded.
func (s *Session) Subscribe() (<-chan models.GenerationSnapshot, func()) {
	ch := make(chan models.GenerationSnapshot, subscriberBuffer)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
}

// notifyLocked fans the current snapshot out to every subscriber.
// Never blocks: full subscriber channels drop the update.
func (s *Session) notifyLocked() {
	snap := s.snapshotLocked()
	for ch := range s.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

// closeSubs disconnects every observer; called when the session is discarded.
func (s *Session) closeSubs() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		delete(s.subs, ch)
		close(ch)
	}
}

// --- state transitions, called from the run goroutine ---

// advance moves the pipeline to a step and raises progress. Progress is
// monotone within a run: a lower value is ignored.
func (s *Session) advance(step string, progress float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.step = step
	s.generating = true
	if progress > s.progress {
		s.progress = progress
	}
	s.notifyLocked()
}

func (s *Session) setForecasts(f []models.Forecast) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forecasts = f
	s.notifyLocked()
}

func (s *Session) setFoundEvents(events []models.LiveEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.foundEvents = events
	s.notifyLocked()
}

// enterCheckpoint parks the session awaiting an explicit selection. The
// selection defaults to every found event.
func (s *Session) enterCheckpoint() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generating = false
	s.waiting = true
	ids := make([]string, 0, len(s.foundEvents))
	for _, ev := range s.foundEvents {
		ids = append(ids, ev.EventID)
	}
	s.selectedIDs = ids
	s.notifyLocked()
}

// resume hands the confirmed selection to the parked run goroutine.
// Unknown ids are dropped so selectedIDs stays a subset of foundEvents.
func (s *Session) resume(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.waiting {
		return ErrNotWaiting
	}

	known := make(map[string]bool, len(s.foundEvents))
	for _, ev := range s.foundEvents {
		known[ev.EventID] = true
	}
	confirmed := make([]string, 0, len(ids))
	for _, id := range ids {
		if known[id] {
			confirmed = append(confirmed, id)
		}
	}

	s.waiting = false
	s.generating = true
	s.selectedIDs = confirmed
	s.notifyLocked()
	s.resumeCh <- confirmed
	return nil
}

func (s *Session) appendDay(day models.TripDay, progress float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.days = append(s.days, day)
	if progress > s.progress {
		s.progress = progress
	}
	s.notifyLocked()
}

func (s *Session) finishComplete(trip *models.Trip) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generating = false
	s.waiting = false
	s.complete = true
	s.progress = 1
	s.completedTrip = trip
	s.notifyLocked()
}

func (s *Session) finishFailed(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generating = false
	s.waiting = false
	s.failed = true
	s.errMsg = msg
	s.notifyLocked()
}

func (s *Session) finishCancelled() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generating = false
	s.waiting = false
	s.notifyLocked()
}

// reset wipes everything except identity and subscribers, for a fresh
// run after a failure.
func (s *Session) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.step = ""
	s.progress = 0
	s.generating = false
	s.waiting = false
	s.complete = false
	s.failed = false
	s.errMsg = ""
	s.days = nil
	s.foundEvents = nil
	s.selectedIDs = nil
	s.forecasts = nil
	s.completedTrip = nil
	ctx, cancel := context.WithCancel(context.Background())
	s.ctx = ctx
	s.cancelFn = cancel
	s.resumeCh = make(chan []string, 1)
	s.notifyLocked()
}

func (s *Session) isLive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generating || s.waiting
}

func (s *Session) isFailed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failed
}

func (s *Session) cancelled() bool {
	return s.ctx.Err() != nil
}
