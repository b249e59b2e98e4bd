// Package stream bridges the live event feed to the per-session
// real-time detectors.
package stream

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/habitlens/habitlens/internal/detector"
	"github.com/habitlens/habitlens/internal/event"
	"github.com/habitlens/habitlens/internal/notifier"
)

// Processor routes each consumed event to its session's detector and
// publishes detections. It implements consumer.MessageProcessor.
type Processor struct {
	registry *detector.Registry
	notifier *notifier.Notifier
}

func NewProcessor(registry *detector.Registry, n *notifier.Notifier) *Processor {
	return &Processor{registry: registry, notifier: n}
}

// Process handles one raw record from the events topic. Session-end
// markers tear the session's detector down; everything else feeds it.
func (p *Processor) Process(ctx context.Context, raw map[string]interface{}) error {
	e := event.FromRecord(raw)
	if e.SessionID == "" {
		log.Debug().Str("event_id", e.ID).Msg("Event without session, skipped")
		return nil
	}

	if kind, _ := raw["kind"].(string); kind == "session_end" {
		p.registry.End(e.SessionID)
		return nil
	}

	det := p.registry.Get(e.SessionID).Observe(e)
	if det == nil {
		return nil
	}

	if det.New {
		p.notifier.PublishNew(ctx, e.UserID, e.SessionID, det)
	} else {
		log.Debug().
			Str("session_id", e.SessionID).
			Str("signature", det.Signature).
			Int("occurrences", det.Occurrences).
			Msg("Known pattern updated")
	}
	return nil
}
