package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitlens/habitlens/internal/config"
	"github.com/habitlens/habitlens/internal/enricher"
	"github.com/habitlens/habitlens/internal/event"
	"github.com/habitlens/habitlens/internal/goals"
	"github.com/habitlens/habitlens/internal/insights"
	"github.com/habitlens/habitlens/internal/miner"
	"github.com/habitlens/habitlens/internal/pattern"
)

const testAPIKey = "hl_test_0123456789abcdef"

// fakeBackend stands in for the ClickHouse and Postgres stores behind
// every server dependency.
type fakeBackend struct {
	events    []event.Event
	patterns  []pattern.Pattern
	statusErr error

	updatedID     uuid.UUID
	updatedStatus string
}

func (f *fakeBackend) FetchEvents(ctx context.Context, userID string, since time.Time) ([]event.Event, error) {
	return f.events, nil
}

func (f *fakeBackend) EventsByIDs(ctx context.Context, userID string, ids []string) ([]event.Event, error) {
	return nil, nil
}

func (f *fakeBackend) SemanticEventsByDomains(ctx context.Context, userID string, domains []string, limit int) ([]event.Event, error) {
	return nil, nil
}

func (f *fakeBackend) FrictionScores(ctx context.Context, userID string, ids []string) ([]event.FrictionScore, error) {
	return nil, nil
}

func (f *fakeBackend) UpsertPatterns(ctx context.Context, patterns []pattern.Pattern) (int, error) {
	return len(patterns), nil
}

func (f *fakeBackend) FetchPatterns(ctx context.Context, userID string, minSupport, limit int) ([]pattern.Pattern, error) {
	return f.patterns, nil
}

func (f *fakeBackend) FetchPattern(ctx context.Context, id uuid.UUID) (pattern.Pattern, error) {
	for _, p := range f.patterns {
		if p.ID == id {
			return p, nil
		}
	}
	return pattern.Pattern{}, errors.New("pattern not found")
}

func (f *fakeBackend) InsertInsights(ctx context.Context, list []insights.Insight) ([]insights.Insight, error) {
	return list, nil
}

func (f *fakeBackend) UpdateInsightStatus(ctx context.Context, id uuid.UUID, status string) error {
	if f.statusErr != nil {
		return f.statusErr
	}
	f.updatedID = id
	f.updatedStatus = status
	return nil
}

func (f *fakeBackend) LookupAPIKey(ctx context.Context, keyHash string) (string, error) {
	hash := sha256.Sum256([]byte(testAPIKey))
	if keyHash == hex.EncodeToString(hash[:]) {
		return "account-1", nil
	}
	return "", errors.New("unknown key")
}

func newTestServer(backend *fakeBackend) http.Handler {
	cfg := config.MiningConfig{LookbackDays: 7, MinSupport: 3, MaxGap: 5 * time.Minute}
	m := miner.New(backend, backend, nil, cfg)
	s := insights.NewSynthesizer(backend, backend, backend, enricher.New(backend),
		goals.NewClient(config.GoalsConfig{Timeout: time.Second}), 3, 100)
	auth := NewAuthenticator(backend, nil, config.RateLimitConfig{RequestsPerSecond: 20})
	return New(m, s, backend, backend, auth, 3, 100).Router()
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("X-API-Key", testAPIKey)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRouterRequiresAPIKey(t *testing.T) {
	handler := newTestServer(&fakeBackend{})

	req := httptest.NewRequest(http.MethodPost, "/v1/users/u1/patterns/mine", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req.Header.Set("X-API-Key", "hl_wrong_0123456789abcdef")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleMineInsufficientData(t *testing.T) {
	handler := newTestServer(&fakeBackend{})

	rec := doRequest(t, handler, http.MethodPost, "/v1/users/u1/patterns/mine", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result miner.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Zero(t, result.PatternsFound)
	assert.NotEmpty(t, result.Message)
}

func TestHandleGenerateInsightsNoPatterns(t *testing.T) {
	handler := newTestServer(&fakeBackend{})

	rec := doRequest(t, handler, http.MethodPost, "/v1/users/u1/insights/generate", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result insights.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Contains(t, result.Message, "run mining first")
}

func TestHandleComparison(t *testing.T) {
	p := pattern.Pattern{
		ID: uuid.New(),
		Sequence: []pattern.Step{
			{Type: event.TypeNav, URL: "https://app.example.com"},
			{Type: event.TypeClick, URL: "https://app.example.com", DOMPath: "a"},
			{Type: event.TypeScroll, URL: "https://app.example.com", DOMPath: "main"},
		},
	}
	handler := newTestServer(&fakeBackend{patterns: []pattern.Pattern{p}})

	rec := doRequest(t, handler, http.MethodGet, "/v1/patterns/"+p.ID.String()+"/comparison", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body["current"], 3)

	rec = doRequest(t, handler, http.MethodGet, "/v1/patterns/"+uuid.NewString()+"/comparison", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, handler, http.MethodGet, "/v1/patterns/not-a-uuid/comparison", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleInsightStatus(t *testing.T) {
	backend := &fakeBackend{}
	handler := newTestServer(backend)
	id := uuid.New()

	rec := doRequest(t, handler, http.MethodPost, "/v1/insights/"+id.String()+"/status",
		[]byte(`{"status":"helpful"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, backend.updatedID)
	assert.Equal(t, "helpful", backend.updatedStatus)
}

func TestHandleInsightStatusRejectsUnknownValue(t *testing.T) {
	handler := newTestServer(&fakeBackend{})

	rec := doRequest(t, handler, http.MethodPost, "/v1/insights/"+uuid.NewString()+"/status",
		[]byte(`{"status":"archived"}`))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandleInsightStatusNotFound(t *testing.T) {
	handler := newTestServer(&fakeBackend{statusErr: errors.New("insight not found")})

	rec := doRequest(t, handler, http.MethodPost, "/v1/insights/"+uuid.NewString()+"/status",
		[]byte(`{"status":"dismissed"}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleConnections(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	a := pattern.Pattern{ID: uuid.New(), Support: 5, FirstSeen: base.Add(-10 * time.Minute), LastSeen: base}
	b := pattern.Pattern{ID: uuid.New(), Support: 5, FirstSeen: base.Add(time.Minute), LastSeen: base.Add(5 * time.Minute)}
	handler := newTestServer(&fakeBackend{patterns: []pattern.Pattern{a, b}})

	rec := doRequest(t, handler, http.MethodGet, "/v1/users/u1/connections", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Connections []map[string]interface{} `json:"connections"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Connections)
}
