package insights

import (
	"fmt"
	"strings"
)

const frictionThreshold = 0.6

// Friction subtypes recognized by the capture pipeline's scorer.
var frictionSubtypes = []string{
	"rapid_scrolling",
	"back_button",
	"form_abandonment",
	"error_state",
	"slow_loading",
	"rage_clicks",
}

// detectFriction joins the pattern's event ids against externally-scored
// friction. A mean score at or above the threshold yields one insight
// naming the dominant subtype by count.
func detectFriction(d detection) *Insight {
	if len(d.friction) == 0 {
		return nil
	}

	sum := 0.0
	counts := make(map[string]int)
	for _, f := range d.friction {
		sum += f.Score
		if f.Subtype != "" {
			counts[f.Subtype]++
		}
	}
	mean := sum / float64(len(d.friction))
	if mean < frictionThreshold {
		return nil
	}

	dominant := dominantSubtype(counts)

	in := newInsight(d, TypeFrictionPoint)
	in.Title = "Friction in a recurring workflow"
	in.Description = fmt.Sprintf(
		"This workflow shows a mean friction score of %.2f across %d scored events, driven mostly by %s.",
		mean, len(d.friction), describeSubtype(dominant))
	in.Recommendation = recommendForSubtype(dominant)
	in.Confidence = mean
	in.Evidence = Evidence{
		Occurrences:    d.pattern.Support,
		FrictionEvents: len(d.friction),
		EventIDs:       frictionEventIDs(d),
		Details:        "dominant friction subtype: " + dominant,
	}
	return in
}

func dominantSubtype(counts map[string]int) string {
	best := "unknown"
	bestCount := 0
	// Fixed iteration order keeps ties deterministic.
	for _, sub := range frictionSubtypes {
		if counts[sub] > bestCount {
			best = sub
			bestCount = counts[sub]
		}
	}
	return best
}

func describeSubtype(sub string) string {
	return strings.ReplaceAll(sub, "_", " ")
}

func recommendForSubtype(sub string) string {
	switch sub {
	case "rage_clicks":
		return "Something on this page is not responding to clicks; try an alternate control or report the broken element."
	case "slow_loading":
		return "These pages load slowly; open them first and switch tasks while they load, or look for a lighter alternative."
	case "form_abandonment":
		return "The forms in this workflow keep stalling; an autofill profile could carry you past the sticking point."
	case "back_button":
		return "You frequently backtrack here; open links in new tabs to keep your place."
	case "error_state":
		return "Errors recur in this workflow; note the failing step and check for a status page or alternative route."
	case "rapid_scrolling":
		return "You scan these pages rapidly; an in-page search or a summarizing tool may find what you need faster."
	default:
		return "Review this workflow for the step that keeps causing struggle."
	}
}

func frictionEventIDs(d detection) []string {
	ids := make([]string, 0, len(d.friction))
	for _, f := range d.friction {
		ids = append(ids, f.EventID)
	}
	return ids
}
