package insights

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitlens/habitlens/internal/event"
	"github.com/habitlens/habitlens/internal/pattern"
)

func TestDetectAlternativeDeepReading(t *testing.T) {
	read := event.Context{ScrollDepth: 80, SessionDuration: 200, PageType: "article"}
	d := detection{
		pattern: testPattern(3),
		events: []event.Event{
			semanticEvent(read),
			semanticEvent(read),
		},
	}

	in := detectAlternative(d)
	require.NotNil(t, in)
	assert.Equal(t, TypeBetterAlternative, in.Type)
	assert.Equal(t, "Long reads happening in the moment", in.Title)
	assert.Contains(t, in.Recommendation, "Current method:")
	assert.Contains(t, in.Recommendation, "Better method:")
	assert.Equal(t, 0.75, in.Confidence)
}

func TestDetectAlternativeComparisonShopping(t *testing.T) {
	d := detection{
		pattern: testPattern(4),
		events: []event.Event{
			semanticEvent(event.Context{PageType: "pricing"}),
			semanticEvent(event.Context{PageType: "product"}),
			semanticEvent(event.Context{PageType: "comparison"}),
		},
	}

	in := detectAlternative(d)
	require.NotNil(t, in)
	assert.Equal(t, "Manual price comparison", in.Title)
	assert.Equal(t, 0.8, in.Confidence)
}

func TestDetectAlternativeAfterHours(t *testing.T) {
	late := time.Date(2026, 3, 10, 22, 30, 0, 0, time.UTC)
	work := event.Event{
		Type:      event.TypeNav,
		URL:       "https://docs.example.com",
		Timestamp: late,
		Semantic:  &event.Context{PageCategory: "development"},
	}
	d := detection{
		pattern: testPattern(3),
		events:  []event.Event{work, work, work},
	}

	in := detectAlternative(d)
	require.NotNil(t, in)
	assert.Equal(t, "Work activity outside work hours", in.Title)
}

func TestDetectAlternativeFormAutofillFromRawSteps(t *testing.T) {
	steps := []pattern.Step{
		{Type: event.TypeForm, URL: "https://portal.example.com/apply"},
		{Type: event.TypeForm, URL: "https://portal.example.com/apply"},
		{Type: event.TypeClick, URL: "https://portal.example.com/apply"},
	}
	d := detection{pattern: testPattern(2, steps...)}

	in := detectAlternative(d)
	require.NotNil(t, in)
	assert.Equal(t, "Retyping the same form data", in.Title)
	assert.Equal(t, 0.85, in.Confidence)
}

func TestDetectAlternativeFormAutofillOnMobile(t *testing.T) {
	formFill := event.Event{
		Type:     event.TypeForm,
		URL:      "https://portal.example.com/apply",
		Semantic: &event.Context{Device: "mobile"},
	}
	d := detection{
		pattern: testPattern(3),
		events:  []event.Event{formFill, formFill},
	}

	in := detectAlternative(d)
	require.NotNil(t, in)
	assert.Equal(t, "Retyping the same form data", in.Title)
	assert.Contains(t, in.Recommendation, "mobile autofill")
}

func TestDetectAlternativeNoMatch(t *testing.T) {
	assert.Nil(t, detectAlternative(detection{pattern: testPattern(3)}))
}
