package miner

import (
	"time"

	"github.com/habitlens/habitlens/internal/event"
)

const (
	minWindowLen = 3
	maxWindowLen = 5
)

// Sequence is a contiguous window of events from one domain where every
// consecutive pair is at most maxGap apart. Ephemeral: built during
// extraction, never persisted directly.
type Sequence struct {
	Domain string
	Events []event.Event
}

// Extract slices a user's ordered event stream into all candidate
// sequences of length 3-5, grouped by domain, under the max-gap
// constraint. Events whose URLs do not parse are dropped from grouping.
// Fewer than 3 events yields no sequences.
func Extract(events []event.Event, maxGap time.Duration) []Sequence {
	if len(events) < minWindowLen {
		return nil
	}

	byDomain := make(map[string][]event.Event)
	var order []string
	for _, e := range events {
		d := e.Domain()
		if d == "" {
			continue
		}
		if _, ok := byDomain[d]; !ok {
			order = append(order, d)
		}
		byDomain[d] = append(byDomain[d], e)
	}

	var sequences []Sequence
	for _, domain := range order {
		list := byDomain[domain]
		for length := minWindowLen; length <= maxWindowLen; length++ {
			for start := 0; start+length <= len(list); start++ {
				window := list[start : start+length]
				if withinGap(window, maxGap) {
					sequences = append(sequences, Sequence{Domain: domain, Events: window})
				}
			}
		}
	}
	return sequences
}

func withinGap(window []event.Event, maxGap time.Duration) bool {
	for i := 1; i < len(window); i++ {
		if window[i].Timestamp.Sub(window[i-1].Timestamp) > maxGap {
			return false
		}
	}
	return true
}
