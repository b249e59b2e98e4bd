package miner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/habitlens/habitlens/internal/config"
	"github.com/habitlens/habitlens/internal/event"
	"github.com/habitlens/habitlens/internal/pattern"
)

// EventSource supplies a user's events for a lookback window, already
// filtered to exclude the configured ignore-list domains.
type EventSource interface {
	FetchEvents(ctx context.Context, userID string, since time.Time) ([]event.Event, error)
}

// PatternStore persists mined patterns. UpsertPatterns is keyed by
// (user_id, signature) and returns the count actually stored, which may
// be partial on error.
type PatternStore interface {
	UpsertPatterns(ctx context.Context, patterns []pattern.Pattern) (int, error)
}

// Result reports a mining run.
type Result struct {
	PatternsFound  int    `json:"patterns_found"`
	PatternsStored int    `json:"patterns_stored"`
	Message        string `json:"message,omitempty"`
}

// Miner runs the batch frequent-pattern pipeline for one user at a time.
// Runs for distinct users are independent; concurrent triggers for the
// same user coalesce on a Redis lock.
type Miner struct {
	events   EventSource
	patterns PatternStore
	redis    *redis.Client
	cfg      config.MiningConfig
}

func New(events EventSource, patterns PatternStore, rdb *redis.Client, cfg config.MiningConfig) *Miner {
	return &Miner{
		events:   events,
		patterns: patterns,
		redis:    rdb,
		cfg:      cfg,
	}
}

// Mine extracts, canonicalizes, counts, and upserts a user's patterns.
// Insufficient data is not an error: the result carries a message and
// zero counts. A storage failure is returned alongside the partial
// stored count.
func (m *Miner) Mine(ctx context.Context, userID string) (Result, error) {
	release, ok := m.acquireLock(ctx, userID)
	if !ok {
		return Result{Message: "mining already in progress for this user"}, nil
	}
	defer release()

	since := time.Now().Add(-time.Duration(m.cfg.LookbackDays) * 24 * time.Hour)
	events, err := m.events.FetchEvents(ctx, userID, since)
	if err != nil {
		return Result{}, fmt.Errorf("fetch events: %w", err)
	}

	if len(events) < minWindowLen {
		return Result{Message: "not enough events to mine patterns"}, nil
	}

	sequences := Extract(events, m.cfg.MaxGap)
	patterns := m.minePatterns(userID, events, sequences)

	stored, err := m.patterns.UpsertPatterns(ctx, patterns)
	result := Result{PatternsFound: len(patterns), PatternsStored: stored}
	if err != nil {
		log.Error().Err(err).
			Str("user_id", userID).
			Int("found", len(patterns)).
			Int("stored", stored).
			Msg("Pattern upsert failed partway")
		return result, fmt.Errorf("upsert patterns: %w", err)
	}

	log.Info().
		Str("user_id", userID).
		Int("events", len(events)).
		Int("sequences", len(sequences)).
		Int("patterns", len(patterns)).
		Msg("Mining run complete")
	return result, nil
}

// minePatterns buckets sequences by signature, applies the min-support
// threshold, and computes confidence as the share of first-step
// occurrences that completed the full sequence, clamped to 1.
func (m *Miner) minePatterns(userID string, events []event.Event, sequences []Sequence) []pattern.Pattern {
	type bucket struct {
		count          int
		representative Sequence
		firstSeen      time.Time
		lastSeen       time.Time
	}

	typeCounts := make(map[event.Type]int)
	for _, e := range events {
		typeCounts[e.Type]++
	}

	buckets := make(map[string]*bucket)
	for _, seq := range sequences {
		sig := Signature(seq.Events)
		b, ok := buckets[sig]
		if !ok {
			b = &bucket{
				representative: seq,
				firstSeen:      seq.Events[0].Timestamp,
				lastSeen:       seq.Events[len(seq.Events)-1].Timestamp,
			}
			buckets[sig] = b
		}
		b.count++
		if first := seq.Events[0].Timestamp; first.Before(b.firstSeen) {
			b.firstSeen = first
		}
		if last := seq.Events[len(seq.Events)-1].Timestamp; last.After(b.lastSeen) {
			b.lastSeen = last
		}
	}

	var patterns []pattern.Pattern
	for sig, b := range buckets {
		if b.count < m.cfg.MinSupport {
			continue
		}

		firstType := b.representative.Events[0].Type
		confidence := 1.0
		if n := typeCounts[firstType]; n > 0 {
			confidence = float64(b.count) / float64(n)
			if confidence > 1 {
				confidence = 1
			}
		}

		patterns = append(patterns, pattern.Pattern{
			ID:         uuid.New(),
			UserID:     userID,
			Signature:  sig,
			Sequence:   toSteps(b.representative.Events),
			Support:    b.count,
			Confidence: confidence,
			FirstSeen:  b.firstSeen,
			LastSeen:   b.lastSeen,
		})
	}
	return patterns
}

func toSteps(events []event.Event) []pattern.Step {
	steps := make([]pattern.Step, 0, len(events))
	for _, e := range events {
		steps = append(steps, pattern.Step{
			EventID:   e.ID,
			Type:      e.Type,
			URL:       e.URL,
			DOMPath:   e.DOMPath,
			Text:      e.Text,
			Timestamp: e.Timestamp,
			DwellMs:   e.DwellMs,
			Back:      e.IsBack(),
		})
	}
	return steps
}

// acquireLock takes the per-user mining lock. Without Redis configured
// the lock degrades to a no-op and runs proceed unguarded.
func (m *Miner) acquireLock(ctx context.Context, userID string) (func(), bool) {
	if m.redis == nil {
		return func() {}, true
	}

	key := "mining:lock:" + userID
	ok, err := m.redis.SetNX(ctx, key, time.Now().UnixMilli(), m.cfg.LockTTL).Result()
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Mining lock unavailable, proceeding without it")
		return func() {}, true
	}
	if !ok {
		return nil, false
	}
	return func() {
		m.redis.Del(context.Background(), key)
	}, true
}
