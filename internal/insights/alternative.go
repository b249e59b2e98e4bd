package insights

import (
	"fmt"
	"strings"

	"github.com/habitlens/habitlens/internal/event"
)

// alternativeRules suggest a better method for something the user
// already does. Confidence is fixed per rule; first match wins.
var alternativeRules = []rule{
	{
		name: "deep_reading",
		match: func(d detection) bool {
			return countEvents(d, deepReading) >= 2
		},
		build: func(d detection) *Insight {
			in := newInsight(d, TypeBetterAlternative)
			in.Title = "Long reads happening in the moment"
			in.Description = "You regularly settle into long articles or documentation mid-workflow."
			in.Recommendation = buildAlternative(
				"reading long pages as you find them",
				"a read-later queue (save now, read in a planned block)",
				"queued reading keeps your current task moving and gives the long read proper attention later",
			)
			in.Confidence = 0.75
			in.Evidence = Evidence{
				Occurrences: d.pattern.Support,
				EventIDs:    d.pattern.EventIDs(),
				Details:     "deep-reading sessions: >60% scroll, >120s, article/documentation pages",
			}
			return in
		},
	},
	{
		name: "comparison_shopping",
		match: func(d detection) bool {
			return countEvents(d, comparisonPage) >= 3
		},
		build: func(d detection) *Insight {
			in := newInsight(d, TypeBetterAlternative)
			in.Title = "Manual price comparison"
			in.Description = "This workflow is a hand-rolled comparison across pricing and product pages."
			in.Recommendation = buildAlternative(
				"opening each product and pricing page yourself",
				"a price tracker that watches the items and alerts on changes",
				"a tracker checks continuously and removes the repeated visits entirely",
			)
			in.Confidence = 0.8
			in.Evidence = Evidence{
				Occurrences: d.pattern.Support,
				EventIDs:    d.pattern.EventIDs(),
				Details:     "pricing/comparison/product page visits",
			}
			return in
		},
	},
	{
		name: "after_hours_work",
		match: func(d detection) bool {
			return afterHoursProfessional(d) >= 3
		},
		build: func(d detection) *Insight {
			n := afterHoursProfessional(d)
			in := newInsight(d, TypeBetterAlternative)
			in.Title = "Work activity outside work hours"
			in.Description = fmt.Sprintf(
				"%d professional or development steps in this pattern happen outside typical work hours.", n)
			in.Recommendation = buildAlternative(
				"handling work tasks whenever they surface",
				"a time-boxed slot for off-hours items",
				"batching protects your evenings and the tasks still get done",
			)
			in.Confidence = 0.7
			in.Evidence = Evidence{
				Occurrences: d.pattern.Support,
				EventIDs:    d.pattern.EventIDs(),
				Details:     "professional/development pages outside 08:00-18:00",
			}
			return in
		},
	},
	{
		name: "research_tooling",
		match: func(d detection) bool {
			return isResearchGoal(d.pattern.GoalCategory, d.pattern.InferredGoal) &&
				countEvents(d, infoSeeking) >= 4
		},
		build: func(d detection) *Insight {
			in := newInsight(d, TypeBetterAlternative)
			in.Title = "Research scattered across tabs"
			in.Description = "You are running a recurring research workflow through ad-hoc browsing."
			in.Recommendation = buildAlternative(
				"collecting findings across open tabs and memory",
				"a dedicated research tool that captures sources and notes as you go",
				"captured sources are searchable later and nothing gets lost between sessions",
			)
			in.Confidence = 0.7
			in.Evidence = Evidence{
				Occurrences: d.pattern.Support,
				EventIDs:    d.pattern.EventIDs(),
				Details:     "research goal with repeated information-seeking steps",
			}
			return in
		},
	},
	{
		name: "form_autofill",
		match: func(d detection) bool {
			return d.pattern.Support >= 2 && formPageCount(d) >= 2
		},
		build: func(d detection) *Insight {
			in := newInsight(d, TypeBetterAlternative)
			in.Title = "Retyping the same form data"
			in.Description = "This recurring workflow fills the same kinds of forms by hand each time."
			in.Recommendation = buildAlternative(
				"typing form fields manually on every visit",
				"a password manager or autofill profile",
				"saved profiles fill whole forms in one action and avoid typos",
			)
			// Mostly-mobile form filling is worse than desktop typing;
			// point at the mobile autofill path specifically.
			if mobileShare(d) >= 0.5 {
				in.Recommendation = buildAlternative(
					"typing form fields on a phone keyboard every visit",
					"a password manager with mobile autofill enabled",
					"mobile autofill skips the phone keyboard entirely",
				)
			}
			in.Confidence = 0.85
			in.Evidence = Evidence{
				Occurrences: d.pattern.Support,
				EventIDs:    d.pattern.EventIDs(),
				Details:     "repeated form pages across a supported pattern",
			}
			return in
		},
	},
}

func buildAlternative(current, better, why string) string {
	return fmt.Sprintf("Current method: %s. Better method: %s. Why: %s.", current, better, why)
}

func deepReading(e event.Event) bool {
	s := e.Semantic
	if s == nil {
		return false
	}
	return s.ScrollDepth > 60 && s.SessionDuration > 120 &&
		(s.PageType == "article" || s.PageType == "documentation")
}

func comparisonPage(e event.Event) bool {
	s := e.Semantic
	if s == nil {
		return false
	}
	switch s.PageType {
	case "pricing", "comparison", "product":
		return true
	}
	return false
}

func afterHoursProfessional(d detection) int {
	return countEvents(d, func(e event.Event) bool {
		s := e.Semantic
		if s == nil {
			return false
		}
		if s.PageCategory != "professional" && s.PageCategory != "development" {
			return false
		}
		hour := e.Timestamp.Hour()
		return hour < 8 || hour >= 18
	})
}

func isResearchGoal(category, goal string) bool {
	if category == "research" || category == "learning" {
		return true
	}
	g := strings.ToLower(goal)
	return strings.Contains(g, "research") || strings.Contains(g, "learn")
}

func formPageCount(d detection) int {
	if d.enriched() {
		return countEvents(d, func(e event.Event) bool {
			if e.Type == event.TypeForm {
				return true
			}
			return e.Semantic != nil && e.Semantic.PageType == "form"
		})
	}
	n := 0
	for _, s := range d.pattern.Sequence {
		if s.Type == event.TypeForm {
			n++
		}
	}
	return n
}

// detectAlternative runs the better-method cascade.
func detectAlternative(d detection) *Insight {
	return firstMatch(alternativeRules, d)
}
