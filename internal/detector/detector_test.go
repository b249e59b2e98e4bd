package detector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitlens/habitlens/internal/event"
	"github.com/habitlens/habitlens/internal/miner"
)

func streamEvent(id string, t event.Type, offset time.Duration) event.Event {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	return event.Event{
		ID:        id,
		Type:      t,
		URL:       "https://app.example.com",
		Timestamp: base.Add(offset),
	}
}

// feedRoutine pushes n repetitions of nav-click-scroll and returns all
// non-nil detections in order.
func feedRoutine(d *Detector, n int) []*Detection {
	var detections []*Detection
	offset := time.Duration(0)
	for run := 0; run < n; run++ {
		for _, typ := range []event.Type{event.TypeNav, event.TypeClick, event.TypeScroll} {
			offset += 5 * time.Second
			if det := d.Observe(streamEvent("e", typ, offset)); det != nil {
				detections = append(detections, det)
			}
		}
	}
	return detections
}

func TestObserveThreshold(t *testing.T) {
	d := New(50, 3)

	// Two repetitions: no window signature reaches three occurrences.
	assert.Empty(t, feedRoutine(d, 2))

	// Third repetition crosses the threshold exactly once, as new.
	detections := feedRoutine(d, 1)
	require.Len(t, detections, 1)
	det := detections[0]
	assert.True(t, det.New)
	assert.Equal(t, 3, det.Occurrences)
	assert.Len(t, det.Window, 3)
	assert.False(t, det.LastSeen.Before(det.FirstSeen))
}

func TestObserveUpdatesExistingDetection(t *testing.T) {
	d := New(50, 3)

	detections := feedRoutine(d, 4)
	require.NotEmpty(t, detections)

	newBySig := map[string]int{}
	seen := map[string]bool{}
	for _, det := range detections {
		if det.New {
			newBySig[det.Signature]++
		}
		seen[det.Signature] = true
	}

	// Each distinct signature announces itself as new exactly once;
	// later hits report New false with refreshed counts.
	require.Len(t, newBySig, len(seen))
	for sig, n := range newBySig {
		assert.Equal(t, 1, n, sig)
	}
	last := detections[len(detections)-1]
	assert.False(t, last.New)
	assert.Equal(t, 4, last.Occurrences)
}

func TestObserveEmissionsAreDetached(t *testing.T) {
	d := New(50, 3)

	// Capture the announcement made on the third repetition.
	detections := feedRoutine(d, 3)
	require.Len(t, detections, 1)
	announced := detections[0]
	require.True(t, announced.New)
	require.Equal(t, 3, announced.Occurrences)

	// A fourth repetition updates the tracked signature, but the
	// detection already handed out must not be rewritten under the
	// caller.
	feedRoutine(d, 1)
	assert.True(t, announced.New)
	assert.Equal(t, 3, announced.Occurrences)
}

func TestObserveConfidenceFormula(t *testing.T) {
	d := New(50, 3)

	detections := feedRoutine(d, 3)
	require.Len(t, detections, 1)

	// 3 occurrences of a 3-event window in a 9-event buffer:
	// 0.7*(3/10) + 0.3*(3*3/9).
	assert.InDelta(t, 0.51, detections[0].Confidence, 1e-9)
}

func TestObserveBufferCap(t *testing.T) {
	d := New(6, 3)

	feedRoutine(d, 5)
	assert.Equal(t, 6, d.BufferLen())
}

func TestObserveBelowWindowLen(t *testing.T) {
	d := New(50, 3)

	assert.Nil(t, d.Observe(streamEvent("1", event.TypeNav, 0)))
	assert.Nil(t, d.Observe(streamEvent("2", event.TypeClick, time.Second)))
	assert.Equal(t, 2, d.BufferLen())
}

func TestWindowSignatureMatchesBatchHasher(t *testing.T) {
	events := []event.Event{
		{Type: event.TypeNav, DOMPath: "", URL: "https://app.example.com"},
		{Type: event.TypeClick, DOMPath: "ul[3]/li[1]/a", URL: "https://app.example.com"},
		{Type: event.TypeScroll, DOMPath: "main", URL: "https://app.example.com"},
	}

	d := New(50, 1)
	var det *Detection
	for _, e := range events {
		det = d.Observe(e)
	}

	require.NotNil(t, det)
	assert.Equal(t, miner.Signature(events), det.Signature)
}

func TestReset(t *testing.T) {
	d := New(50, 3)

	require.NotEmpty(t, feedRoutine(d, 3))
	d.Reset()
	assert.Zero(t, d.BufferLen())

	// After a reset the same routine must re-announce as new.
	detections := feedRoutine(d, 3)
	require.Len(t, detections, 1)
	assert.True(t, detections[0].New)
}
