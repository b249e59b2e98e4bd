package insights

import (
	"fmt"
)

// inefficiencyRules fire in priority order; only the first matching rule
// produces an insight for a pattern in a given run. Each rule carries a
// typed wasted-actions/wasted-time estimate and an explanation.
var inefficiencyRules = []rule{
	{
		name: "quick_bounces",
		match: func(d detection) bool {
			return countEvents(d, quickBounce) >= 3
		},
		build: func(d detection) *Insight {
			n := countEvents(d, quickBounce)
			in := newInsight(d, TypeInefficientNavigation)
			in.Title = "Rapid page bouncing"
			in.Description = fmt.Sprintf(
				"You opened %d pages and left each within 10 seconds with almost no scrolling or interaction.", n)
			in.Recommendation = "Refine your starting point (a better search query or a saved link) so the first page you open is the right one."
			in.Confidence = 0.75
			in.Evidence = Evidence{
				Occurrences:   d.pattern.Support,
				WastedActions: n,
				WastedTimeSec: float64(n) * 8,
				EventIDs:      d.pattern.EventIDs(),
				Details:       "quick bounces: short visits with <20% scroll and <3 interactions",
			}
			in.TimeSavedSec = float64(n) * 8 * float64(d.pattern.Support)
			return in
		},
	},
	{
		name: "form_abandonment",
		match: func(d detection) bool {
			return countEvents(d, formAbandonment) >= 2
		},
		build: func(d detection) *Insight {
			n := countEvents(d, formAbandonment)
			in := newInsight(d, TypeInefficientNavigation)
			in.Title = "Forms started but not finished"
			in.Description = fmt.Sprintf(
				"%d forms were interacted with heavily but abandoned before submission.", n)
			in.Recommendation = "Consider an autofill tool or saving drafts so partially-entered data is not lost."
			in.Confidence = 0.7
			in.Evidence = Evidence{
				Occurrences:   d.pattern.Support,
				WastedActions: n,
				WastedTimeSec: float64(n) * 25,
				EventIDs:      d.pattern.EventIDs(),
				Details:       "form abandonment: deep interaction, short session, no submission",
			}
			in.TimeSavedSec = float64(n) * 25
			return in
		},
	},
	{
		name: "shopping_without_checkout",
		match: func(d detection) bool {
			return countEvents(d, shoppingSignal) >= 3 && countEvents(d, checkoutPage) == 0
		},
		build: func(d detection) *Insight {
			n := countEvents(d, shoppingSignal)
			in := newInsight(d, TypeInefficientNavigation)
			in.Title = "Browsing products without deciding"
			in.Description = fmt.Sprintf(
				"You viewed %d product or pricing pages without ever reaching a checkout.", n)
			in.Recommendation = "Track the items you are comparing in one place instead of revisiting each product page."
			in.Confidence = 0.65
			in.Evidence = Evidence{
				Occurrences:   d.pattern.Support,
				WastedActions: n,
				WastedTimeSec: float64(n) * 30,
				EventIDs:      d.pattern.EventIDs(),
				Details:       "shopping signals with zero checkout pages",
			}
			return in
		},
	},
	{
		name: "back_navigation",
		match: func(d detection) bool {
			return backNavCount(d) >= 3
		},
		build: func(d detection) *Insight {
			n := backNavCount(d)
			in := newInsight(d, TypeInefficientNavigation)
			in.Title = "Heavy back-button use"
			in.Description = fmt.Sprintf(
				"This workflow includes %d back navigations, suggesting pages are not leading where you expect.", n)
			in.Recommendation = "Open candidate links in new tabs so you can compare without retracing your steps."
			in.Confidence = 0.7
			in.Evidence = Evidence{
				Occurrences:   d.pattern.Support,
				WastedActions: n,
				WastedTimeSec: float64(n) * 3,
				EventIDs:      d.pattern.EventIDs(),
				Details:       "back navigations within the sequence",
			}
			in.TimeSavedSec = float64(n) * 3 * float64(d.pattern.Support)
			return in
		},
	},
	{
		name: "information_seeking",
		match: func(d detection) bool {
			return countEvents(d, infoSeeking) >= 4
		},
		build: func(d detection) *Insight {
			n := countEvents(d, infoSeeking)
			in := newInsight(d, TypeInefficientNavigation)
			in.Title = "Repeatedly hunting for the same information"
			in.Description = fmt.Sprintf(
				"%d steps in this workflow are spent looking information up rather than acting on it.", n)
			in.Recommendation = "Keep a note or bookmark of the answers you look up most often."
			in.Confidence = 0.6
			in.Evidence = Evidence{
				Occurrences:   d.pattern.Support,
				WastedActions: n,
				WastedTimeSec: float64(n) * 20,
				EventIDs:      d.pattern.EventIDs(),
				Details:       "information-seeking element purposes",
			}
			return in
		},
	},
	{
		name: "redundant_revisits",
		match: func(d detection) bool {
			total, unique := visitTotals(d)
			if total <= 5 || unique <= 3 || total <= 2*unique {
				return false
			}
			// Alternating between 2-3 sites is usually intentional
			// comparison, not waste.
			return unique > 3
		},
		build: func(d detection) *Insight {
			total, unique := visitTotals(d)
			in := newInsight(d, TypeInefficientNavigation)
			in.Title = "Circling the same sites"
			in.Description = fmt.Sprintf(
				"You made %d visits across %d sites, returning to the same places over and over.", total, unique)
			in.Recommendation = "Pin the tabs you keep returning to, or gather what you need from each site in a single pass."
			in.Confidence = 0.6
			in.Evidence = Evidence{
				Occurrences:   d.pattern.Support,
				WastedActions: total - unique,
				WastedTimeSec: float64(total-unique) * 10,
				EventIDs:      d.pattern.EventIDs(),
				Details:       "domain revisits beyond twice the unique-site count",
			}
			return in
		},
	},
}

func visitTotals(d detection) (total, unique int) {
	visits := domainVisits(d)
	for _, n := range visits {
		total += n
	}
	return total, len(visits)
}

// detectInefficiency runs the inefficiency cascade.
func detectInefficiency(d detection) *Insight {
	return firstMatch(inefficiencyRules, d)
}
