package goals

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitlens/habitlens/internal/config"
	"github.com/habitlens/habitlens/internal/event"
	"github.com/habitlens/habitlens/internal/pattern"
)

func steps(types ...event.Type) []pattern.Step {
	out := make([]pattern.Step, 0, len(types))
	for _, t := range types {
		out = append(out, pattern.Step{Type: t, URL: "https://app.example.com"})
	}
	return out
}

func TestHeuristicCascade(t *testing.T) {
	tests := []struct {
		name     string
		steps    []pattern.Step
		category string
	}{
		{"forms win", steps(event.TypeForm, event.TypeForm, event.TypeSearch, event.TypeSearch), "data_entry"},
		{"searches", steps(event.TypeSearch, event.TypeClick, event.TypeSearch), "research"},
		{"many domains", []pattern.Step{
			{Type: event.TypeNav, URL: "https://a.example.com"},
			{Type: event.TypeClick, URL: "https://b.example.com"},
			{Type: event.TypeClick, URL: "https://c.example.com"},
		}, "comparison"},
		{"navigation", steps(event.TypeNav, event.TypeNav, event.TypeClick), "navigation"},
		{"fallback", steps(event.TypeClick, event.TypeScroll, event.TypeIdle), "routine"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inf := Heuristic(tt.steps)
			assert.Equal(t, tt.category, inf.Category)
			assert.NotEmpty(t, inf.Goal)
			assert.Greater(t, inf.Confidence, 0.0)
			assert.LessOrEqual(t, inf.Confidence, 1.0)
		})
	}
}

func TestInferWithoutCredentialsUsesHeuristic(t *testing.T) {
	c := NewClient(config.GoalsConfig{Timeout: time.Second})

	inf := c.Infer(context.Background(), steps(event.TypeForm, event.TypeForm, event.TypeClick))
	assert.Equal(t, "data_entry", inf.Category)
}

func TestInferUsesCollaborator(t *testing.T) {
	want := Inference{
		Goal:                "book a recurring flight",
		Category:            "travel",
		Confidence:          0.9,
		Reasoning:           "airline search and booking form",
		AutomationPotential: 0.7,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Steps []struct {
				Type   string `json:"type"`
				Domain string `json:"domain"`
			} `json:"steps"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Steps, 3)

		json.NewEncoder(w).Encode(want)
	}))
	defer srv.Close()

	c := NewClient(config.GoalsConfig{Endpoint: srv.URL, APIKey: "test-key", Timeout: time.Second})

	inf := c.Infer(context.Background(), steps(event.TypeSearch, event.TypeClick, event.TypeForm))
	assert.Equal(t, want, inf)
}

func TestInferFallsBackOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(config.GoalsConfig{Endpoint: srv.URL, APIKey: "test-key", Timeout: time.Second})

	inf := c.Infer(context.Background(), steps(event.TypeSearch, event.TypeSearch, event.TypeClick))
	assert.Equal(t, "research", inf.Category)
}

func TestInferRejectsMalformedInference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Confidence out of range must be discarded.
		json.NewEncoder(w).Encode(Inference{Goal: "g", Confidence: 3})
	}))
	defer srv.Close()

	c := NewClient(config.GoalsConfig{Endpoint: srv.URL, APIKey: "test-key", Timeout: time.Second})

	inf := c.Infer(context.Background(), steps(event.TypeForm, event.TypeForm, event.TypeClick))
	assert.Equal(t, "data_entry", inf.Category)
}
