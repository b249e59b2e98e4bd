package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitlens/habitlens/internal/event"
	"github.com/habitlens/habitlens/internal/pattern"
)

func TestCompareOptimizesSearchesBackNavAndForms(t *testing.T) {
	p := pattern.Pattern{
		Sequence: []pattern.Step{
			{Type: event.TypeSearch, URL: "https://search.example.com", DOMPath: "form/input[1]", Text: "cheap flights"},
			{Type: event.TypeSearch, URL: "https://search.example.com", DOMPath: "form/input[1]/suggest", Text: "cheap flights paris"},
			{Type: event.TypeNav, URL: "https://search.example.com", Back: true},
			{Type: event.TypeForm, URL: "https://booking.example.com", DOMPath: "form/div/input"},
			{Type: event.TypeForm, URL: "https://booking.example.com", DOMPath: "form/div/textarea"},
			{Type: event.TypeClick, URL: "https://booking.example.com", DOMPath: "button#submit", Text: "Book"},
		},
	}

	c := Compare(p)

	require.Len(t, c.Current, 6)
	// Merged search, autofill, click.
	require.Len(t, c.Optimized, 3)
	assert.Equal(t, 3, c.StepsSaved)

	// Current: 30+30+3+10+10+2 = 85.
	assert.InDelta(t, 85, c.CurrentTimeSec, 1e-9)
	// Optimized: 60*0.7 + 20*0.3 + 2 = 50.
	assert.InDelta(t, 50, c.OptimizedTimeSec, 1e-9)
	assert.InDelta(t, 35, c.TimeSavedSec, 1e-9)

	assert.Contains(t, c.Explanation, "merged 2 searches")
	assert.Contains(t, c.Explanation, "dropped 1 back navigations")
	assert.Contains(t, c.Explanation, "collapsed 2 form fills")

	// Optimized steps are renumbered from one.
	for i, step := range c.Optimized {
		assert.Equal(t, i+1, step.Index)
	}
	assert.Contains(t, c.Optimized[0].Action, "refined search")
	assert.Contains(t, c.Optimized[1].Action, "Autofill")
}

func TestCompareDropsRedundantSteps(t *testing.T) {
	click := pattern.Step{Type: event.TypeClick, URL: "https://app.example.com", DOMPath: "nav/a#home"}
	p := pattern.Pattern{
		Sequence: []pattern.Step{
			{Type: event.TypeNav, URL: "https://app.example.com"},
			click,
			{Type: event.TypeScroll, URL: "https://app.example.com", DOMPath: "main"},
			click,
		},
	}

	c := Compare(p)

	require.Len(t, c.Current, 4)
	assert.True(t, c.Current[3].Redundant)
	assert.Len(t, c.Optimized, 3)
	assert.Contains(t, c.Explanation, "removed 1 redundant steps")
}

func TestCompareLeanWorkflow(t *testing.T) {
	p := pattern.Pattern{
		Sequence: []pattern.Step{
			{Type: event.TypeNav, URL: "https://app.example.com"},
			{Type: event.TypeClick, URL: "https://app.example.com", DOMPath: "a#report"},
			{Type: event.TypeScroll, URL: "https://app.example.com", DOMPath: "main"},
		},
	}

	c := Compare(p)

	assert.Zero(t, c.StepsSaved)
	assert.Zero(t, c.TimeSavedSec)
	assert.Equal(t, "This workflow is already lean; no reductions applied.", c.Explanation)
}

func TestCompareMarksFriction(t *testing.T) {
	p := pattern.Pattern{
		Sequence: []pattern.Step{
			{Type: event.TypeNav, URL: "https://app.example.com"},
			{Type: event.TypeFriction, URL: "https://app.example.com"},
			{Type: event.TypeClick, URL: "https://app.example.com", DOMPath: "a"},
		},
	}

	c := Compare(p)

	require.Len(t, c.Current, 3)
	assert.True(t, c.Current[1].Friction)
}
