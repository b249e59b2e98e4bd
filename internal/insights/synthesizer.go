package insights

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/habitlens/habitlens/internal/event"
	"github.com/habitlens/habitlens/internal/goals"
	"github.com/habitlens/habitlens/internal/pattern"
)

// PatternSource supplies a user's mined patterns, most recent first.
type PatternSource interface {
	FetchPatterns(ctx context.Context, userID string, minSupport, limit int) ([]pattern.Pattern, error)
}

// FrictionSource supplies externally-computed friction scores for a set
// of event ids.
type FrictionSource interface {
	FrictionScores(ctx context.Context, userID string, ids []string) ([]event.FrictionScore, error)
}

// InsightStore persists generated insights.
type InsightStore interface {
	InsertInsights(ctx context.Context, list []Insight) ([]Insight, error)
}

// Enricher attaches semantic context to a pattern in place.
type Enricher interface {
	Enrich(ctx context.Context, p *pattern.Pattern)
}

// GoalInferrer supplies the inferred goal for a sequence; implementations
// fall back internally and never fail.
type GoalInferrer interface {
	Infer(ctx context.Context, steps []pattern.Step) goals.Inference
}

// Synthesizer runs the four insight detectors over a user's patterns.
// Detectors are order-insensitive relative to each other; each emits at
// most one insight per pattern per run.
type Synthesizer struct {
	patterns PatternSource
	friction FrictionSource
	store    InsightStore
	enricher Enricher
	goals    GoalInferrer

	minSupport   int
	patternLimit int
}

func NewSynthesizer(patterns PatternSource, friction FrictionSource, store InsightStore, enricher Enricher, inferrer GoalInferrer, minSupport, patternLimit int) *Synthesizer {
	return &Synthesizer{
		patterns:     patterns,
		friction:     friction,
		store:        store,
		enricher:     enricher,
		goals:        inferrer,
		minSupport:   minSupport,
		patternLimit: patternLimit,
	}
}

// Result reports an insight-generation run.
type Result struct {
	Insights []Insight `json:"insights"`
	Message  string    `json:"message,omitempty"`
}

// Generate synthesizes and stores insights for all of a user's patterns.
// No patterns is not an error: the result carries an explanatory
// message. Enrichment, friction lookup, and goal inference may each
// fail or come back empty without aborting the run.
func (s *Synthesizer) Generate(ctx context.Context, userID string) (Result, error) {
	patterns, err := s.patterns.FetchPatterns(ctx, userID, s.minSupport, s.patternLimit)
	if err != nil {
		return Result{}, fmt.Errorf("fetch patterns: %w", err)
	}
	if len(patterns) == 0 {
		return Result{Message: "no patterns mined yet; run mining first"}, nil
	}

	var generated []Insight
	for i := range patterns {
		generated = append(generated, s.forPattern(ctx, &patterns[i])...)
	}
	if len(generated) == 0 {
		return Result{Message: "no insights detected for current patterns"}, nil
	}

	stored, err := s.store.InsertInsights(ctx, generated)
	if err != nil {
		log.Error().Err(err).
			Str("user_id", userID).
			Int("generated", len(generated)).
			Int("stored", len(stored)).
			Msg("Insight insert failed partway")
		return Result{Insights: stored}, fmt.Errorf("insert insights: %w", err)
	}

	log.Info().
		Str("user_id", userID).
		Int("patterns", len(patterns)).
		Int("insights", len(stored)).
		Msg("Insight generation complete")
	return Result{Insights: stored}, nil
}

func (s *Synthesizer) forPattern(ctx context.Context, p *pattern.Pattern) []Insight {
	s.enricher.Enrich(ctx, p)

	if p.InferredGoal == "" {
		inference := s.goals.Infer(ctx, p.Sequence)
		p.InferredGoal = inference.Goal
		p.GoalCategory = inference.Category
		p.GoalConfidence = inference.Confidence
		p.AutomationPotential = inference.AutomationPotential
	}

	friction, err := s.friction.FrictionScores(ctx, p.UserID, p.EventIDs())
	if err != nil {
		log.Warn().Err(err).
			Str("signature", p.Signature).
			Msg("Friction lookup failed, detector will be skipped")
		friction = nil
	}

	d := detection{pattern: *p, events: p.Enriched, friction: friction}

	var out []Insight
	for _, detect := range []func(detection) *Insight{
		detectInefficiency,
		detectAlternative,
		detectFriction,
		detectProductivity,
	} {
		if in := detect(d); in != nil {
			out = append(out, *in)
		}
	}
	return out
}
