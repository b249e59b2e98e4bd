package insights

import (
	"fmt"
	"strings"
)

// detectProductivity emits an informational insight for well-supported
// patterns with an inferred goal: here is a workflow you clearly repeat,
// and here is how to make it cheaper to start.
func detectProductivity(d detection) *Insight {
	p := d.pattern
	if p.Support < 5 || p.InferredGoal == "" {
		return nil
	}

	domains := p.Domains()
	steps := make([]string, 0, 3)
	for i, s := range p.Sequence {
		if i == 3 {
			break
		}
		steps = append(steps, fmt.Sprintf("%d. %s on %s", i+1, s.Type, orUnknown(s.Domain())))
	}

	in := newInsight(d, TypeWorkflowImprovement)
	in.Title = fmt.Sprintf("A workflow you repeat: %s", p.InferredGoal)
	in.Description = fmt.Sprintf(
		"You have run this %d times across %s. It starts: %s.",
		p.Support, strings.Join(domains, ", "), strings.Join(steps, "; "))
	in.Recommendation = productivityRecommendation(p.Support)
	in.Confidence = p.Confidence
	in.Evidence = Evidence{
		Occurrences: p.Support,
		EventIDs:    p.EventIDs(),
		Details:     "recurring goal-directed workflow",
	}
	return in
}

// Recommendations scale with how entrenched the workflow is.
func productivityRecommendation(support int) string {
	if support >= 10 {
		return "This is a core workflow: set up a dedicated workspace or keyboard shortcuts for each step to shave seconds off every run."
	}
	return "Bookmark the entry point of this workflow so each run starts in one click."
}

func orUnknown(domain string) string {
	if domain == "" {
		return "an unknown site"
	}
	return domain
}
