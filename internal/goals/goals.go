// Package goals talks to the goal-inference collaborator and supplies
// the deterministic heuristic fallback the pipeline relies on when that
// collaborator is unreachable. The core never depends on the remote
// call succeeding.
package goals

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/habitlens/habitlens/internal/config"
	"github.com/habitlens/habitlens/internal/event"
	"github.com/habitlens/habitlens/internal/pattern"
)

// Inference is the collaborator's answer: what the user was trying to
// do across the sequence, and how automatable it looks.
type Inference struct {
	Goal                string  `json:"goal"`
	Category            string  `json:"category"`
	Confidence          float64 `json:"confidence"`
	Reasoning           string  `json:"reasoning"`
	AutomationPotential float64 `json:"automation_potential"`
}

type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

func NewClient(cfg config.GoalsConfig) *Client {
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: cfg.Timeout},
	}
}

type inferRequest struct {
	Steps []stepSummary `json:"steps"`
}

type stepSummary struct {
	Type   string `json:"type"`
	Domain string `json:"domain"`
	Text   string `json:"text,omitempty"`
}

// Infer asks the collaborator for the goal behind a sequence. Any
// failure — missing credentials, timeout, malformed response — is
// logged and replaced by the heuristic fallback; it never returns an
// error to the pipeline.
func (c *Client) Infer(ctx context.Context, steps []pattern.Step) Inference {
	if c.endpoint == "" || c.apiKey == "" {
		return Heuristic(steps)
	}

	inference, err := c.call(ctx, steps)
	if err != nil {
		log.Warn().Err(err).Msg("Goal inference unavailable, using heuristic fallback")
		return Heuristic(steps)
	}
	return inference
}

func (c *Client) call(ctx context.Context, steps []pattern.Step) (Inference, error) {
	summaries := make([]stepSummary, 0, len(steps))
	for _, s := range steps {
		summaries = append(summaries, stepSummary{
			Type:   string(s.Type),
			Domain: s.Domain(),
			Text:   s.Text,
		})
	}

	body, err := json.Marshal(inferRequest{Steps: summaries})
	if err != nil {
		return Inference{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Inference{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return Inference{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Inference{}, fmt.Errorf("goal inference returned status %d", resp.StatusCode)
	}

	var inference Inference
	if err := json.NewDecoder(resp.Body).Decode(&inference); err != nil {
		return Inference{}, err
	}
	if inference.Goal == "" {
		return Inference{}, fmt.Errorf("goal inference returned an empty goal")
	}
	if inference.Confidence < 0 || inference.Confidence > 1 {
		return Inference{}, fmt.Errorf("goal inference confidence %v out of range", inference.Confidence)
	}
	return inference, nil
}

// Heuristic is the deterministic rule cascade used whenever the
// collaborator cannot answer. First matching rule wins.
func Heuristic(steps []pattern.Step) Inference {
	counts := make(map[event.Type]int)
	domains := make(map[string]bool)
	for _, s := range steps {
		counts[s.Type]++
		if d := s.Domain(); d != "" {
			domains[d] = true
		}
	}

	switch {
	case counts[event.TypeForm] >= 2:
		return Inference{
			Goal:                "complete a form-based task",
			Category:            "data_entry",
			Confidence:          0.6,
			Reasoning:           "repeated form interactions dominate the sequence",
			AutomationPotential: 0.8,
		}
	case counts[event.TypeSearch] >= 2:
		return Inference{
			Goal:                "research a topic across searches",
			Category:            "research",
			Confidence:          0.6,
			Reasoning:           "multiple search queries in one sequence",
			AutomationPotential: 0.5,
		}
	case len(domains) >= 3:
		return Inference{
			Goal:                "compare information across sites",
			Category:            "comparison",
			Confidence:          0.5,
			Reasoning:           "sequence spans three or more domains",
			AutomationPotential: 0.6,
		}
	case counts[event.TypeNav] >= 2:
		return Inference{
			Goal:                "navigate a recurring route",
			Category:            "navigation",
			Confidence:          0.5,
			Reasoning:           "navigation-heavy sequence on familiar pages",
			AutomationPotential: 0.7,
		}
	default:
		return Inference{
			Goal:                "repeat a routine interaction",
			Category:            "routine",
			Confidence:          0.4,
			Reasoning:           "no dominant signal, generic recurring sequence",
			AutomationPotential: 0.4,
		}
	}
}
