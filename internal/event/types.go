package event

import (
	"net/url"
	"strings"
	"time"
)

// Type classifies a captured interaction event.
type Type string

const (
	TypeClick    Type = "click"
	TypeSearch   Type = "search"
	TypeForm     Type = "form"
	TypeNav      Type = "nav"
	TypeScroll   Type = "scroll"
	TypeFocus    Type = "focus"
	TypeBlur     Type = "blur"
	TypeIdle     Type = "idle"
	TypeError    Type = "error"
	TypeFriction Type = "friction"
)

// Event is an immutable interaction fact produced by the capture layer.
// Payload carries the typed variant for the event type; Meta holds any
// residual unstructured fields the capture layer attached.
type Event struct {
	ID        string
	UserID    string
	SessionID string
	Timestamp time.Time
	Type      Type
	URL       string
	DOMPath   string
	Text      string
	DwellMs   int64
	Payload   Payload
	Meta      map[string]interface{}
	Semantic  *Context
}

// Payload is the tagged union over event types. Legacy events may carry
// a nil payload; consumers fall back to Meta.
type Payload interface {
	payload()
}

type ClickPayload struct {
	TargetTag  string
	TargetText string
}

type SearchPayload struct {
	Query string
}

type FormPayload struct {
	Field     string
	Submitted bool
}

type NavPayload struct {
	Referrer string
	Back     bool
}

type ScrollPayload struct {
	DepthPercent float64
}

type IdlePayload struct {
	DurationMs int64
}

type ErrorPayload struct {
	Message string
}

type FrictionPayload struct {
	Signal string
}

func (ClickPayload) payload()    {}
func (SearchPayload) payload()   {}
func (FormPayload) payload()     {}
func (NavPayload) payload()      {}
func (ScrollPayload) payload()   {}
func (IdlePayload) payload()     {}
func (ErrorPayload) payload()    {}
func (FrictionPayload) payload() {}

// Context is the semantic enrichment attached to an event after the fact:
// what the element is for, what kind of page it sits on, and how deeply
// the user engaged with it.
type Context struct {
	ElementPurpose   string
	PageType         string
	PageCategory     string
	ScrollDepth      float64
	InteractionDepth int
	SessionDuration  float64
	ContentSignals   []string
	Device           string
}

// FrictionScore is the externally-computed struggle indicator (0-1)
// attached to an event by the capture pipeline.
type FrictionScore struct {
	EventID string
	Score   float64
	Subtype string
}

// IsBack reports whether the event is a back navigation.
func (e Event) IsBack() bool {
	if p, ok := e.Payload.(NavPayload); ok {
		return p.Back
	}
	if v, ok := e.Meta["nav_type"].(string); ok {
		return v == "back"
	}
	return false
}

// Domain returns the hostname of the event URL, or "" when the URL does
// not parse. Callers skip the event for domain-scoped steps in that case.
func (e Event) Domain() string {
	return DomainOf(e.URL)
}

// DomainOf extracts a lowercased hostname from a raw URL.
func DomainOf(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
