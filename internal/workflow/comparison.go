// Package workflow converts a mined pattern into a step-by-step
// "current vs optimized" comparison with time, step, and friction
// deltas.
package workflow

import (
	"fmt"
	"strings"

	"github.com/habitlens/habitlens/internal/event"
	"github.com/habitlens/habitlens/internal/miner"
	"github.com/habitlens/habitlens/internal/pattern"
)

// Per-event-type time heuristics, in seconds.
const (
	clickTime     = 2.0
	searchTime    = 30.0
	dwellDefault  = 15.0
	scrollTime    = 5.0
	formFieldTime = 10.0
	backNavTime   = 3.0
	navTime       = 5.0

	mergedSearchFactor = 0.7
	autofillFactor     = 0.3
)

// Step is one described action in a workflow.
type Step struct {
	Index     int     `json:"index"`
	Action    string  `json:"action"`
	Domain    string  `json:"domain,omitempty"`
	Type      string  `json:"type"`
	TimeSec   float64 `json:"time_sec"`
	Redundant bool    `json:"redundant,omitempty"`
	Friction  bool    `json:"friction,omitempty"`
}

// Comparison reports the current workflow against its optimized form.
type Comparison struct {
	Current          []Step  `json:"current"`
	Optimized        []Step  `json:"optimized"`
	CurrentTimeSec   float64 `json:"current_time_sec"`
	OptimizedTimeSec float64 `json:"optimized_time_sec"`
	StepsSaved       int     `json:"steps_saved"`
	TimeSavedSec     float64 `json:"time_saved_sec"`
	FrictionRemoved  int     `json:"friction_removed"`
	Explanation      string  `json:"explanation"`
}

// Compare builds the current steps from the pattern's sequence and
// derives the optimized variant: redundant steps dropped, consecutive
// searches merged, back navigations removed, and repeated form fills
// collapsed into one autofill step.
func Compare(p pattern.Pattern) Comparison {
	current := describeSteps(p)
	optimized, applied := optimize(current)

	currentTime := totalTime(current)
	optimizedTime := totalTime(optimized)

	return Comparison{
		Current:          current,
		Optimized:        optimized,
		CurrentTimeSec:   currentTime,
		OptimizedTimeSec: optimizedTime,
		StepsSaved:       len(current) - len(optimized),
		TimeSavedSec:     currentTime - optimizedTime,
		FrictionRemoved:  frictionCount(current) - frictionCount(optimized),
		Explanation:      explain(applied, len(current)-len(optimized), currentTime-optimizedTime),
	}
}

func describeSteps(p pattern.Pattern) []Step {
	seen := make(map[string]bool)
	steps := make([]Step, 0, len(p.Sequence))
	for i, s := range p.Sequence {
		step := Step{
			Index:    i + 1,
			Domain:   s.Domain(),
			Type:     string(s.Type),
			Action:   describeAction(s),
			TimeSec:  timeEstimate(s),
			Friction: s.Type == event.TypeFriction || s.Type == event.TypeError,
		}

		// A step repeating an earlier type+locator+domain is redundant.
		key := miner.StepKey(s.Type, s.DOMPath) + "@" + step.Domain
		if seen[key] {
			step.Redundant = true
		}
		seen[key] = true

		steps = append(steps, step)
	}
	return steps
}

func describeAction(s pattern.Step) string {
	domain := s.Domain()
	if domain == "" {
		domain = "the page"
	}
	switch s.Type {
	case event.TypeClick:
		if s.Text != "" {
			return fmt.Sprintf("Click %q on %s", s.Text, domain)
		}
		return "Click on " + domain
	case event.TypeSearch:
		if s.Text != "" {
			return fmt.Sprintf("Search for %q", s.Text)
		}
		return "Search on " + domain
	case event.TypeForm:
		return "Fill a form field on " + domain
	case event.TypeNav:
		if s.Back {
			return "Go back to the previous page"
		}
		return "Navigate to " + domain
	case event.TypeScroll:
		return "Scroll through " + domain
	case event.TypeIdle:
		return "Pause on " + domain
	case event.TypeError, event.TypeFriction:
		return "Struggle with " + domain
	default:
		return fmt.Sprintf("%s on %s", s.Type, domain)
	}
}

func timeEstimate(s pattern.Step) float64 {
	switch s.Type {
	case event.TypeClick:
		return clickTime
	case event.TypeSearch:
		return searchTime
	case event.TypeScroll:
		return scrollTime
	case event.TypeForm:
		return formFieldTime
	case event.TypeNav:
		if s.Back {
			return backNavTime
		}
		if s.DwellMs > 0 {
			return float64(s.DwellMs) / 1000
		}
		return navTime
	case event.TypeIdle:
		if s.DwellMs > 0 {
			return float64(s.DwellMs) / 1000
		}
		return dwellDefault
	default:
		return navTime
	}
}

type optimization struct {
	droppedRedundant int
	mergedSearches   int
	droppedBackNav   int
	collapsedForms   int
}

func optimize(current []Step) ([]Step, optimization) {
	var applied optimization
	var kept []Step

	formTime := 0.0
	formCount := 0
	formDomain := ""

	flushForms := func() {
		if formCount == 0 {
			return
		}
		if formCount >= 2 {
			kept = append(kept, Step{
				Action:  "Autofill the form on " + orPage(formDomain),
				Domain:  formDomain,
				Type:    string(event.TypeForm),
				TimeSec: formTime * autofillFactor,
			})
			applied.collapsedForms += formCount
		} else {
			kept = append(kept, Step{
				Action:  "Fill a form field on " + orPage(formDomain),
				Domain:  formDomain,
				Type:    string(event.TypeForm),
				TimeSec: formTime,
			})
		}
		formTime, formCount, formDomain = 0, 0, ""
	}

	for i := 0; i < len(current); i++ {
		step := current[i]

		if step.Redundant {
			applied.droppedRedundant++
			continue
		}
		if step.Type == string(event.TypeNav) && strings.HasPrefix(step.Action, "Go back") {
			applied.droppedBackNav++
			continue
		}

		if step.Type == string(event.TypeForm) {
			formTime += step.TimeSec
			formCount++
			formDomain = step.Domain
			continue
		}
		flushForms()

		if step.Type == string(event.TypeSearch) {
			merged := step
			mergedTime := step.TimeSec
			count := 1
			for i+1 < len(current) && current[i+1].Type == string(event.TypeSearch) && !current[i+1].Redundant {
				i++
				mergedTime += current[i].TimeSec
				count++
			}
			if count > 1 {
				merged.Action = "Run one refined search on " + orPage(step.Domain)
				merged.TimeSec = mergedTime * mergedSearchFactor
				applied.mergedSearches += count
			}
			kept = append(kept, merged)
			continue
		}

		kept = append(kept, step)
	}
	flushForms()

	for i := range kept {
		kept[i].Index = i + 1
	}
	return kept, applied
}

func explain(applied optimization, stepsSaved int, timeSaved float64) string {
	var parts []string
	if applied.droppedRedundant > 0 {
		parts = append(parts, fmt.Sprintf("removed %d redundant steps", applied.droppedRedundant))
	}
	if applied.mergedSearches > 0 {
		parts = append(parts, fmt.Sprintf("merged %d searches into one refined query", applied.mergedSearches))
	}
	if applied.droppedBackNav > 0 {
		parts = append(parts, fmt.Sprintf("dropped %d back navigations", applied.droppedBackNav))
	}
	if applied.collapsedForms > 0 {
		parts = append(parts, fmt.Sprintf("collapsed %d form fills into a single autofill", applied.collapsedForms))
	}
	if len(parts) == 0 {
		return "This workflow is already lean; no reductions applied."
	}
	return fmt.Sprintf("Optimized by %s, saving %d steps and about %.0f seconds per run.",
		strings.Join(parts, ", "), stepsSaved, timeSaved)
}

func totalTime(steps []Step) float64 {
	sum := 0.0
	for _, s := range steps {
		sum += s.TimeSec
	}
	return sum
}

func frictionCount(steps []Step) int {
	n := 0
	for _, s := range steps {
		if s.Friction {
			n++
		}
	}
	return n
}

func orPage(domain string) string {
	if domain == "" {
		return "the page"
	}
	return domain
}
