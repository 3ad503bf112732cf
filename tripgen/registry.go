package tripgen

import "sync"

// Registry holds at most one session per trip id. A second Start for a
// trip with a live session is refused, which keeps a double-tap from
// double-debiting credits or racing on persistence.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// acquire creates a fresh session for the trip, replacing a terminal
// one. Returns ErrAlreadyGenerating while a live session exists.
func (r *Registry) acquire(userID, tripID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[tripID]; ok {
		if existing.isLive() {
			return nil, ErrAlreadyGenerating
		}
		// terminal leftover; disconnect its observers before replacing
		existing.closeSubs()
	}

	s := newSession(userID, tripID)
	r.sessions[tripID] = s
	return s, nil
}

func (r *Registry) get(tripID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[tripID]
}

// remove discards the trip's session and disconnects its observers.
func (r *Registry) remove(tripID string) {
	r.mu.Lock()
	s := r.sessions[tripID]
	delete(r.sessions, tripID)
	r.mu.Unlock()

	if s != nil {
		s.closeSubs()
	}
}
