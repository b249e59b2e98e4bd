package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/habitlens/habitlens/internal/insights"
	"github.com/habitlens/habitlens/internal/pattern"
)

// Postgres holds mined patterns and generated insights. Pattern upserts
// are keyed by (user_id, signature); support never decreases.
type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// UpsertPatterns stores patterns one at a time so a failure partway
// reports the count that actually made it; already-stored rows stand.
// upsertPatternSQL keys on (user_id, signature). Support and last_seen
// only ever grow across re-mining runs; first_seen only ever shrinks.
const upsertPatternSQL = `
	INSERT INTO patterns (
		id, user_id, signature, sequence, support, confidence,
		first_seen, last_seen,
		inferred_goal, goal_category, goal_confidence, automation_potential
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (user_id, signature) DO UPDATE SET
		sequence   = EXCLUDED.sequence,
		support    = GREATEST(patterns.support, EXCLUDED.support),
		confidence = EXCLUDED.confidence,
		first_seen = LEAST(patterns.first_seen, EXCLUDED.first_seen),
		last_seen  = GREATEST(patterns.last_seen, EXCLUDED.last_seen)`

func (p *Postgres) UpsertPatterns(ctx context.Context, patterns []pattern.Pattern) (int, error) {
	stored := 0
	for _, pat := range patterns {
		seq, err := json.Marshal(pat.Sequence)
		if err != nil {
			return stored, fmt.Errorf("marshal sequence for %s: %w", pat.Signature, err)
		}

		_, err = p.db.Exec(ctx, upsertPatternSQL,
			pat.ID, pat.UserID, pat.Signature, seq, pat.Support, pat.Confidence,
			pat.FirstSeen, pat.LastSeen,
			nullable(pat.InferredGoal), nullable(pat.GoalCategory),
			pat.GoalConfidence, pat.AutomationPotential,
		)
		if err != nil {
			return stored, err
		}
		stored++
	}
	return stored, nil
}

const patternColumns = `
	id, user_id, signature, sequence, support, confidence,
	first_seen, last_seen,
	COALESCE(inferred_goal, ''), COALESCE(goal_category, ''),
	goal_confidence, automation_potential`

const fetchPatternsSQL = `
	SELECT ` + patternColumns + `
	FROM patterns
	WHERE user_id = $1 AND support >= $2
	ORDER BY last_seen DESC
	LIMIT $3`

// FetchPatterns returns a user's patterns at or above minSupport, most
// recent first.
func (p *Postgres) FetchPatterns(ctx context.Context, userID string, minSupport, limit int) ([]pattern.Pattern, error) {
	rows, err := p.db.Query(ctx, fetchPatternsSQL, userID, minSupport, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patterns []pattern.Pattern
	for rows.Next() {
		var (
			pat pattern.Pattern
			seq []byte
		)
		err := rows.Scan(
			&pat.ID, &pat.UserID, &pat.Signature, &seq, &pat.Support, &pat.Confidence,
			&pat.FirstSeen, &pat.LastSeen,
			&pat.InferredGoal, &pat.GoalCategory,
			&pat.GoalConfidence, &pat.AutomationPotential,
		)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(seq, &pat.Sequence); err != nil {
			return nil, fmt.Errorf("unmarshal sequence for %s: %w", pat.Signature, err)
		}
		patterns = append(patterns, pat)
	}
	return patterns, rows.Err()
}

// FetchPattern returns a single pattern by id.
func (p *Postgres) FetchPattern(ctx context.Context, id uuid.UUID) (pattern.Pattern, error) {
	var (
		pat pattern.Pattern
		seq []byte
	)
	err := p.db.QueryRow(ctx, `
		SELECT `+patternColumns+`
		FROM patterns WHERE id = $1
	`, id).Scan(
		&pat.ID, &pat.UserID, &pat.Signature, &seq, &pat.Support, &pat.Confidence,
		&pat.FirstSeen, &pat.LastSeen,
		&pat.InferredGoal, &pat.GoalCategory,
		&pat.GoalConfidence, &pat.AutomationPotential,
	)
	if err != nil {
		return pattern.Pattern{}, err
	}
	if err := json.Unmarshal(seq, &pat.Sequence); err != nil {
		return pattern.Pattern{}, fmt.Errorf("unmarshal sequence for %s: %w", pat.Signature, err)
	}
	return pat, nil
}

// InsertInsights stores new insights and returns those stored. Partial
// success is reported the same way as pattern upserts.
func (p *Postgres) InsertInsights(ctx context.Context, list []insights.Insight) ([]insights.Insight, error) {
	var stored []insights.Insight
	for _, in := range list {
		evidence, err := json.Marshal(in.Evidence)
		if err != nil {
			return stored, fmt.Errorf("marshal evidence: %w", err)
		}

		_, err = p.db.Exec(ctx, `
			INSERT INTO workflow_insights (
				id, pattern_id, user_id, insight_type,
				title, description, recommendation,
				impact_score, impact_level, confidence, evidence,
				time_saved_sec, effort_saved, status, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		`,
			in.ID, in.PatternID, in.UserID, in.Type,
			in.Title, in.Description, in.Recommendation,
			in.ImpactScore, in.ImpactLevel, in.Confidence, evidence,
			in.TimeSavedSec, nullable(in.EffortSaved), in.Status, in.CreatedAt,
		)
		if err != nil {
			return stored, err
		}
		stored = append(stored, in)
	}
	return stored, nil
}

// UpdateInsightStatus records user feedback. The status is validated
// before any SQL runs.
func (p *Postgres) UpdateInsightStatus(ctx context.Context, id uuid.UUID, status string) error {
	if !insights.ValidStatus(status) {
		return fmt.Errorf("invalid insight status %q", status)
	}

	tag, err := p.db.Exec(ctx, `
		UPDATE workflow_insights SET status = $2, updated_at = $3 WHERE id = $1
	`, id, status, time.Now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("insight %s not found", id)
	}
	return nil
}

// LookupAPIKey resolves a hashed API key to its account id; used by the
// HTTP surface.
func (p *Postgres) LookupAPIKey(ctx context.Context, keyHash string) (string, error) {
	var id string
	err := p.db.QueryRow(ctx, `
		SELECT account_id::text FROM api_keys
		WHERE key_hash = $1 AND is_active = true
		AND (expires_at IS NULL OR expires_at > NOW())
	`, keyHash).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) Close() {
	p.db.Close()
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
