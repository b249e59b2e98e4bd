package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/habitlens/habitlens/internal/config"
	"github.com/habitlens/habitlens/internal/event"
)

// ClickHouse is the read-side event store. The capture pipeline owns the
// write path; this service only queries.
type ClickHouse struct {
	conn          driver.Conn
	ignoreDomains map[string]bool
}

func NewClickHouse(cfg config.ClickHouseConfig, ignoreDomains []string) (*ClickHouse, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
	})
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := conn.Ping(context.Background()); err != nil {
		return nil, err
	}

	ignore := make(map[string]bool, len(ignoreDomains))
	for _, d := range ignoreDomains {
		ignore[d] = true
	}

	return &ClickHouse{conn: conn, ignoreDomains: ignore}, nil
}

const eventColumns = `
	event_id, user_id, session_id, event_type, timestamp,
	url, dom_path, text, dwell_ms, metadata,
	element_purpose, page_type, page_category,
	scroll_depth, interaction_depth, session_duration, content_signals`

// FetchEvents returns a user's events since the given time, ordered by
// timestamp, with ignore-list domains filtered out.
func (c *ClickHouse) FetchEvents(ctx context.Context, userID string, since time.Time) ([]event.Event, error) {
	rows, err := c.conn.Query(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE user_id = ? AND timestamp >= ?
		ORDER BY timestamp ASC
	`, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events, err := c.scanEvents(rows)
	if err != nil {
		return nil, err
	}

	filtered := events[:0]
	for _, e := range events {
		if c.ignoreDomains[e.Domain()] {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered, nil
}

// EventsByIDs re-fetches specific events, keeping only those carrying
// semantic context. Used by enrichment.
func (c *ClickHouse) EventsByIDs(ctx context.Context, userID string, ids []string) ([]event.Event, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := c.conn.Query(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE user_id = ? AND event_id IN (?) AND element_purpose != ''
		ORDER BY timestamp ASC
	`, userID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return c.scanEvents(rows)
}

// SemanticEventsByDomains is the enrichment fallback: recent
// semantically-annotated events for a set of domains.
func (c *ClickHouse) SemanticEventsByDomains(ctx context.Context, userID string, domains []string, limit int) ([]event.Event, error) {
	if len(domains) == 0 {
		return nil, nil
	}

	rows, err := c.conn.Query(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE user_id = ? AND domain(url) IN (?) AND element_purpose != ''
		ORDER BY timestamp DESC
		LIMIT ?
	`, userID, domains, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return c.scanEvents(rows)
}

// FrictionScores joins event ids against their externally-computed
// friction scores, skipping unscored events.
func (c *ClickHouse) FrictionScores(ctx context.Context, userID string, ids []string) ([]event.FrictionScore, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := c.conn.Query(ctx, `
		SELECT event_id, friction_score, friction_subtype
		FROM friction_scores
		WHERE user_id = ? AND event_id IN (?)
	`, userID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []event.FrictionScore
	for rows.Next() {
		var s event.FrictionScore
		if err := rows.Scan(&s.EventID, &s.Score, &s.Subtype); err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

// ActiveUsers lists users with events since the given time, for the
// periodic mining sweep.
func (c *ClickHouse) ActiveUsers(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := c.conn.Query(ctx, `
		SELECT DISTINCT user_id FROM events WHERE timestamp >= ?
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (c *ClickHouse) scanEvents(rows driver.Rows) ([]event.Event, error) {
	var events []event.Event
	for rows.Next() {
		var (
			e            event.Event
			eventType    string
			metaJSON     string
			purpose      string
			pageType     string
			pageCategory string
			scrollDepth  float64
			interDepth   int32
			sessionDur   float64
			signals      []string
		)
		err := rows.Scan(
			&e.ID, &e.UserID, &e.SessionID, &eventType, &e.Timestamp,
			&e.URL, &e.DOMPath, &e.Text, &e.DwellMs, &metaJSON,
			&purpose, &pageType, &pageCategory,
			&scrollDepth, &interDepth, &sessionDur, &signals,
		)
		if err != nil {
			return nil, err
		}

		e.Type = event.Type(eventType)
		if metaJSON != "" {
			meta := map[string]interface{}{}
			if err := json.Unmarshal([]byte(metaJSON), &meta); err == nil {
				e.Meta = meta
			}
		}
		if purpose != "" || pageType != "" || pageCategory != "" {
			e.Semantic = &event.Context{
				ElementPurpose:   purpose,
				PageType:         pageType,
				PageCategory:     pageCategory,
				ScrollDepth:      scrollDepth,
				InteractionDepth: int(interDepth),
				SessionDuration:  sessionDur,
				ContentSignals:   signals,
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (c *ClickHouse) Close() error {
	return c.conn.Close()
}
