package detector

import (
	"sync"
	"time"
)

// Registry hands out one Detector per active session and evicts
// sessions idle past the TTL. Each detector is still single-threaded:
// the consumer dispatches all of a session's events from one goroutine.
type Registry struct {
	capacity       int
	minOccurrences int
	idleTTL        time.Duration

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	detector   *Detector
	lastActive time.Time
}

func NewRegistry(capacity, minOccurrences int, idleTTL time.Duration) *Registry {
	return &Registry{
		capacity:       capacity,
		minOccurrences: minOccurrences,
		idleTTL:        idleTTL,
		sessions:       make(map[string]*sessionEntry),
	}
}

// Get returns the detector for a session, creating it on first use.
func (r *Registry) Get(sessionID string) *Detector {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[sessionID]
	if !ok {
		entry = &sessionEntry{detector: New(r.capacity, r.minOccurrences)}
		r.sessions[sessionID] = entry
	}
	entry.lastActive = time.Now()
	return entry.detector
}

// End discards a session's detector immediately.
func (r *Registry) End(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}

// EvictIdle drops sessions with no activity within the TTL and returns
// how many were removed.
func (r *Registry) EvictIdle() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-r.idleTTL)
	evicted := 0
	for id, entry := range r.sessions {
		if entry.lastActive.Before(cutoff) {
			delete(r.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Active reports the number of live sessions.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
