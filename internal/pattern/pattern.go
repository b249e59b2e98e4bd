package pattern

import (
	"time"

	"github.com/google/uuid"

	"github.com/habitlens/habitlens/internal/event"
)

// Step is the persisted summary of one event inside a mined pattern's
// representative sequence.
type Step struct {
	EventID   string     `json:"event_id"`
	Type      event.Type `json:"type"`
	URL       string     `json:"url"`
	DOMPath   string     `json:"dom_path,omitempty"`
	Text      string     `json:"text,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	DwellMs   int64      `json:"dwell_ms,omitempty"`
	Back      bool       `json:"back,omitempty"`
}

// Domain returns the hostname of the step URL, or "" when unparsable.
func (s Step) Domain() string {
	return event.DomainOf(s.URL)
}

// Pattern is a recurring behavioral sequence mined from a user's events.
// Upserts are keyed by (UserID, Signature); Support never decreases
// across re-mining runs.
type Pattern struct {
	ID         uuid.UUID
	UserID     string
	Signature  string
	Sequence   []Step
	Support    int
	Confidence float64
	FirstSeen  time.Time
	LastSeen   time.Time

	// Populated by the goal-inference collaborator, never computed here.
	InferredGoal        string
	GoalCategory        string
	GoalConfidence      float64
	AutomationPotential float64

	// Attached transiently after semantic enrichment; not persisted.
	Enriched []event.Event
}

// Domains lists the distinct domains visited across the sequence, in
// first-appearance order. Steps with unparsable URLs are skipped.
func (p Pattern) Domains() []string {
	seen := make(map[string]bool)
	var domains []string
	for _, s := range p.Sequence {
		d := s.Domain()
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		domains = append(domains, d)
	}
	return domains
}

// EventIDs lists the sequence's event ids, skipping empty ones.
func (p Pattern) EventIDs() []string {
	var ids []string
	for _, s := range p.Sequence {
		if s.EventID != "" {
			ids = append(ids, s.EventID)
		}
	}
	return ids
}
