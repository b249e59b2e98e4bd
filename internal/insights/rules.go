package insights

import (
	"time"

	"github.com/google/uuid"

	"github.com/habitlens/habitlens/internal/event"
	"github.com/habitlens/habitlens/internal/pattern"
)

// detection is the material a detector works from: the pattern, its
// semantically-enriched events when enrichment succeeded, and any
// externally-computed friction scores for its event ids. When events is
// empty the detector falls back to the raw sequence.
type detection struct {
	pattern  pattern.Pattern
	events   []event.Event
	friction []event.FrictionScore
}

func (d detection) enriched() bool {
	return len(d.events) > 0
}

// rule pairs a predicate with a builder. Detectors evaluate their rules
// in priority order and keep only the first match, which keeps the
// one-insight-per-detector contract explicit.
type rule struct {
	name  string
	match func(detection) bool
	build func(detection) *Insight
}

func firstMatch(rules []rule, d detection) *Insight {
	for _, r := range rules {
		if r.match(d) {
			return r.build(d)
		}
	}
	return nil
}

// newInsight fills the fields every detector sets the same way.
func newInsight(d detection, insightType string) *Insight {
	p := d.pattern
	return &Insight{
		ID:          uuid.New(),
		PatternID:   p.ID,
		UserID:      p.UserID,
		Type:        insightType,
		ImpactLevel: ImpactLevelFor(p.Support, len(p.Sequence)),
		ImpactScore: impactScore(p.Support, len(p.Sequence)),
		Status:      StatusNew,
		CreatedAt:   time.Now(),
	}
}

func impactScore(support, sequenceLen int) float64 {
	score := 0.05*float64(support) + 0.1*float64(sequenceLen)
	if score > 1 {
		score = 1
	}
	return score
}

// Semantic accessors shared across detectors. All degrade to zero when
// enrichment is absent.

func countEvents(d detection, match func(event.Event) bool) int {
	n := 0
	for _, e := range d.events {
		if match(e) {
			n++
		}
	}
	return n
}

func quickBounce(e event.Event) bool {
	s := e.Semantic
	return s != nil && s.SessionDuration < 10 && s.ScrollDepth < 20 && s.InteractionDepth < 3
}

func formAbandonment(e event.Event) bool {
	s := e.Semantic
	return s != nil && s.InteractionDepth > 3 && s.SessionDuration < 30 &&
		s.ElementPurpose != "form_submission"
}

func shoppingSignal(e event.Event) bool {
	s := e.Semantic
	if s == nil {
		return false
	}
	switch s.PageType {
	case "product", "pricing", "comparison":
		return true
	}
	return s.PageCategory == "shopping"
}

func checkoutPage(e event.Event) bool {
	s := e.Semantic
	return s != nil && (s.PageType == "checkout" || s.ElementPurpose == "checkout")
}

func infoSeeking(e event.Event) bool {
	s := e.Semantic
	return s != nil && s.ElementPurpose == "information_seeking"
}

// mobileShare is the fraction of enriched events captured on a mobile
// device. Zero when enrichment is absent or devices went unrecorded.
func mobileShare(d detection) float64 {
	if !d.enriched() {
		return 0
	}
	n := countEvents(d, func(e event.Event) bool {
		return e.Semantic != nil && e.Semantic.Device == "mobile"
	})
	return float64(n) / float64(len(d.events))
}

func backNavCount(d detection) int {
	if d.enriched() {
		return countEvents(d, func(e event.Event) bool {
			return e.Type == event.TypeNav && e.IsBack()
		})
	}
	n := 0
	for _, s := range d.pattern.Sequence {
		if s.Type == event.TypeNav && s.Back {
			n++
		}
	}
	return n
}

// domainVisits tallies visits per domain across the working sequence.
func domainVisits(d detection) map[string]int {
	visits := make(map[string]int)
	if d.enriched() {
		for _, e := range d.events {
			if dom := e.Domain(); dom != "" {
				visits[dom]++
			}
		}
		return visits
	}
	for _, s := range d.pattern.Sequence {
		if dom := s.Domain(); dom != "" {
			visits[dom]++
		}
	}
	return visits
}
