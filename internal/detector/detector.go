package detector

import (
	"strings"
	"time"

	"github.com/habitlens/habitlens/internal/event"
	"github.com/habitlens/habitlens/internal/miner"
)

const windowLen = 3

// Summary is the slim per-event record kept in the session buffer.
type Summary struct {
	ID        string     `json:"event_id"`
	Type      event.Type `json:"type"`
	URL       string     `json:"url"`
	DOMPath   string     `json:"dom_path,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// Detection is emitted when a window reaches the occurrence threshold
// within the session buffer. New is true only the first time a
// signature crosses the threshold; later matches carry New false and
// refreshed counts. Each emission is detached: holding on to one never
// observes later updates.
type Detection struct {
	Signature   string    `json:"signature"`
	Window      []Summary `json:"window"`
	Occurrences int       `json:"occurrences"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
	Confidence  float64   `json:"confidence"`
	New         bool      `json:"new"`
}

// Detector is the real-time sliding-window pattern detector for one
// session. It is owned by its caller and must only be used from a
// single goroutine; all state is in memory and discarded on Reset.
type Detector struct {
	capacity       int
	minOccurrences int
	buffer         []Summary
	reported       map[string]*Detection
}

func New(capacity, minOccurrences int) *Detector {
	return &Detector{
		capacity:       capacity,
		minOccurrences: minOccurrences,
		buffer:         make([]Summary, 0, capacity),
		reported:       make(map[string]*Detection),
	}
}

// Observe appends the event to the buffer and re-checks the newest
// window against every same-length window currently buffered, using the
// same canonicalization rule as the batch miner. Returns nil until the
// newest window's signature has at least minOccurrences matches.
func (d *Detector) Observe(e event.Event) *Detection {
	d.buffer = append(d.buffer, Summary{
		ID:        e.ID,
		Type:      e.Type,
		URL:       e.URL,
		DOMPath:   e.DOMPath,
		Timestamp: e.Timestamp,
	})
	if len(d.buffer) > d.capacity {
		d.buffer = d.buffer[len(d.buffer)-d.capacity:]
	}

	if len(d.buffer) < windowLen {
		return nil
	}

	window := d.buffer[len(d.buffer)-windowLen:]
	sig := signatureOf(window)

	occurrences := 0
	var firstSeen, lastSeen time.Time
	for start := 0; start+windowLen <= len(d.buffer); start++ {
		candidate := d.buffer[start : start+windowLen]
		if signatureOf(candidate) != sig {
			continue
		}
		occurrences++
		if firstSeen.IsZero() || candidate[0].Timestamp.Before(firstSeen) {
			firstSeen = candidate[0].Timestamp
		}
		if candidate[windowLen-1].Timestamp.After(lastSeen) {
			lastSeen = candidate[windowLen-1].Timestamp
		}
	}

	if occurrences < d.minOccurrences {
		return nil
	}

	confidence := confidenceOf(occurrences, windowLen, len(d.buffer))

	if existing, ok := d.reported[sig]; ok {
		existing.Occurrences = occurrences
		existing.Confidence = confidence
		existing.LastSeen = lastSeen
		existing.New = false
		return snapshot(existing)
	}

	det := &Detection{
		Signature:   sig,
		Window:      append([]Summary(nil), window...),
		Occurrences: occurrences,
		FirstSeen:   firstSeen,
		LastSeen:    lastSeen,
		Confidence:  confidence,
		New:         true,
	}
	d.reported[sig] = det
	return snapshot(det)
}

// snapshot detaches an emission from the tracked struct so later
// observations cannot rewrite a detection the caller already holds.
func snapshot(det *Detection) *Detection {
	out := *det
	return &out
}

// Reset discards all buffered state, ending the detection session.
func (d *Detector) Reset() {
	d.buffer = d.buffer[:0]
	d.reported = make(map[string]*Detection)
}

// BufferLen reports the current buffer fill.
func (d *Detector) BufferLen() int {
	return len(d.buffer)
}

func signatureOf(window []Summary) string {
	parts := make([]string, len(window))
	for i, s := range window {
		parts[i] = miner.StepKey(s.Type, s.DOMPath)
	}
	return strings.Join(parts, miner.SignatureSeparator)
}

func confidenceOf(occurrences, winLen, bufLen int) float64 {
	frequency := float64(occurrences) / 10
	if frequency > 1 {
		frequency = 1
	}
	coverage := float64(occurrences*winLen) / float64(bufLen)
	return 0.7*frequency + 0.3*coverage
}
