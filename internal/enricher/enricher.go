package enricher

import (
	"context"

	"github.com/mssola/useragent"
	"github.com/rs/zerolog/log"

	"github.com/habitlens/habitlens/internal/event"
	"github.com/habitlens/habitlens/internal/pattern"
)

// fallbackFetchLimit caps the domain-based fallback fetch.
const fallbackFetchLimit = 100

// EventFetcher re-reads events with semantic context from the event
// store. Both methods return only semantically-annotated rows.
type EventFetcher interface {
	EventsByIDs(ctx context.Context, userID string, ids []string) ([]event.Event, error)
	SemanticEventsByDomains(ctx context.Context, userID string, domains []string, limit int) ([]event.Event, error)
}

// Enricher attaches semantic context to a mined pattern's sequence. It
// never fails a pipeline run: when neither fetch path yields data the
// pattern simply proceeds unenriched and downstream detectors fall back
// to the raw sequence.
type Enricher struct {
	store EventFetcher
}

func New(store EventFetcher) *Enricher {
	return &Enricher{store: store}
}

// Enrich fetches the pattern's own event ids first; a miss (legacy
// patterns without ids, or ids aged out of the store) falls back to
// recent semantic events for the pattern's domains.
func (e *Enricher) Enrich(ctx context.Context, p *pattern.Pattern) {
	ids := p.EventIDs()
	if len(ids) > 0 {
		events, err := e.store.EventsByIDs(ctx, p.UserID, ids)
		if err != nil {
			log.Warn().Err(err).
				Str("user_id", p.UserID).
				Str("signature", p.Signature).
				Msg("Semantic fetch by ids failed")
		} else if len(events) > 0 {
			p.Enriched = withDeviceContext(events)
			return
		}
	}

	domains := p.Domains()
	if len(domains) == 0 {
		return
	}
	events, err := e.store.SemanticEventsByDomains(ctx, p.UserID, domains, fallbackFetchLimit)
	if err != nil {
		log.Warn().Err(err).
			Str("user_id", p.UserID).
			Strs("domains", domains).
			Msg("Semantic fallback fetch failed")
		return
	}
	if len(events) == 0 {
		log.Debug().
			Str("signature", p.Signature).
			Msg("No semantic context available, pattern proceeds unenriched")
		return
	}
	p.Enriched = withDeviceContext(events)
}

// withDeviceContext fills in the device field from user-agent metadata
// when the capture layer recorded one.
func withDeviceContext(events []event.Event) []event.Event {
	for i := range events {
		if events[i].Semantic == nil || events[i].Semantic.Device != "" {
			continue
		}
		uaString, ok := events[i].Meta["user_agent"].(string)
		if !ok || uaString == "" {
			continue
		}
		ua := useragent.New(uaString)
		events[i].Semantic.Device = deviceType(ua)
	}
	return events
}

func deviceType(ua *useragent.UserAgent) string {
	if ua.Mobile() {
		return "mobile"
	}
	if ua.Bot() {
		return "bot"
	}
	return "desktop"
}
