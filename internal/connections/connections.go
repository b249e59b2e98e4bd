// Package connections infers relationships between a user's mined
// patterns: sequential (one tends to follow the other), trigger (one
// reliably kicks off the other), and parallel (alternative routes to
// the same inferred goal). A pair may carry several relationship types
// at once.
package connections

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/habitlens/habitlens/internal/pattern"
)

const (
	TypeSequential = "sequential"
	TypeTrigger    = "trigger"
	TypeParallel   = "parallel"

	sequentialMaxGap   = 300 * time.Second
	minCoOccurrences   = 3
	overlapFactor      = 0.7
	triggerMinRatio    = 0.6
	alwaysInOrderRatio = 0.8
)

// Evidence quantifies why a connection was inferred.
type Evidence struct {
	CoOccurrences int     `json:"co_occurrences"`
	AvgGapSeconds float64 `json:"avg_gap_seconds"`
}

// Connection relates two patterns. Computed on demand, not persisted.
type Connection struct {
	FromID       uuid.UUID `json:"from_pattern_id"`
	ToID         uuid.UUID `json:"to_pattern_id"`
	Type         string    `json:"type"`
	Confidence   float64   `json:"confidence"`
	Relationship string    `json:"relationship"`
	Evidence     Evidence  `json:"evidence"`
}

// Detect compares all pairs of the given patterns (callers pass
// support >= 3, capped at 100, most recent first) and groups them by
// inferred goal for parallel detection.
func Detect(patterns []pattern.Pattern) []Connection {
	var connections []Connection

	for i := 0; i < len(patterns); i++ {
		for j := i + 1; j < len(patterns); j++ {
			connections = append(connections, comparePair(patterns[i], patterns[j])...)
		}
	}

	connections = append(connections, parallelByGoal(patterns)...)
	return connections
}

// comparePair orients the pair so the earlier-finishing pattern leads,
// then checks the sequential and trigger criteria.
func comparePair(a, b pattern.Pattern) []Connection {
	if a.LastSeen.After(b.LastSeen) {
		a, b = b, a
	}

	gap := b.FirstSeen.Sub(a.LastSeen)
	estimated := int(math.Floor(float64(min(a.Support, b.Support)) * overlapFactor))

	var connections []Connection

	if gap >= 0 && gap < sequentialMaxGap && estimated >= minCoOccurrences {
		alwaysInOrder := float64(estimated) >= alwaysInOrderRatio*float64(a.Support)
		confidence := clamp01(float64(estimated) / float64(a.Support))
		relationship := fmt.Sprintf("%q is usually followed by %q within %.0f seconds",
			describe(a), describe(b), gap.Seconds())
		if alwaysInOrder {
			relationship = fmt.Sprintf("%q is always followed by %q", describe(a), describe(b))
		}
		connections = append(connections, Connection{
			FromID:       a.ID,
			ToID:         b.ID,
			Type:         TypeSequential,
			Confidence:   confidence,
			Relationship: relationship,
			Evidence: Evidence{
				CoOccurrences: estimated,
				AvgGapSeconds: gap.Seconds(),
			},
		})
	}

	if ratio := float64(estimated) / float64(a.Support); ratio >= triggerMinRatio && estimated >= minCoOccurrences {
		connections = append(connections, Connection{
			FromID:       a.ID,
			ToID:         b.ID,
			Type:         TypeTrigger,
			Confidence:   clamp01(ratio),
			Relationship: fmt.Sprintf("%q triggers %q with probability %.2f", describe(a), describe(b), clamp01(ratio)),
			Evidence: Evidence{
				CoOccurrences: estimated,
				AvgGapSeconds: gap.Seconds(),
			},
		})
	}

	return connections
}

// parallelByGoal links patterns sharing an inferred goal: the strongest
// (confidence x support) becomes the preferred route, connected to each
// alternative.
func parallelByGoal(patterns []pattern.Pattern) []Connection {
	groups := make(map[string][]pattern.Pattern)
	var goalOrder []string
	for _, p := range patterns {
		if p.InferredGoal == "" {
			continue
		}
		if _, ok := groups[p.InferredGoal]; !ok {
			goalOrder = append(goalOrder, p.InferredGoal)
		}
		groups[p.InferredGoal] = append(groups[p.InferredGoal], p)
	}

	var connections []Connection
	for _, goal := range goalOrder {
		group := groups[goal]
		if len(group) < 2 {
			continue
		}

		preferred := group[0]
		for _, p := range group[1:] {
			if p.Confidence*float64(p.Support) > preferred.Confidence*float64(preferred.Support) {
				preferred = p
			}
		}

		for _, p := range group {
			if p.ID == preferred.ID {
				continue
			}
			connections = append(connections, Connection{
				FromID:       preferred.ID,
				ToID:         p.ID,
				Type:         TypeParallel,
				Confidence:   clamp01(preferred.Confidence),
				Relationship: fmt.Sprintf("alternative routes to %q; %q is the stronger habit", goal, describe(preferred)),
				Evidence: Evidence{
					CoOccurrences: min(preferred.Support, p.Support),
				},
			})
		}
	}
	return connections
}

func describe(p pattern.Pattern) string {
	if p.InferredGoal != "" {
		return p.InferredGoal
	}
	domains := p.Domains()
	if len(domains) > 0 {
		return fmt.Sprintf("%d-step workflow on %s", len(p.Sequence), domains[0])
	}
	return fmt.Sprintf("%d-step workflow", len(p.Sequence))
}

func clamp01(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}
