package insights

import (
	"time"

	"github.com/google/uuid"
)

// Insight categories.
const (
	TypeInefficientNavigation = "inefficient_navigation"
	TypeFrictionPoint         = "friction_point"
	TypeBetterAlternative     = "better_alternative"
	TypeWorkflowImprovement   = "workflow_improvement"
)

// Impact levels.
const (
	ImpactLow    = "low"
	ImpactMedium = "medium"
	ImpactHigh   = "high"
)

// Status values an insight moves through via user feedback. The
// synthesizer only ever creates StatusNew.
const (
	StatusNew        = "new"
	StatusAcked      = "acknowledged"
	StatusHelpful    = "helpful"
	StatusNotHelpful = "not_helpful"
	StatusDismissed  = "dismissed"
)

var validStatuses = map[string]bool{
	StatusNew:        true,
	StatusAcked:      true,
	StatusHelpful:    true,
	StatusNotHelpful: true,
	StatusDismissed:  true,
}

// ValidStatus reports whether s is an accepted feedback status.
func ValidStatus(s string) bool {
	return validStatuses[s]
}

// Evidence backs an insight with the observations that produced it.
type Evidence struct {
	Occurrences    int      `json:"occurrences"`
	WastedTimeSec  float64  `json:"wasted_time_sec,omitempty"`
	WastedActions  int      `json:"wasted_actions,omitempty"`
	FrictionEvents int      `json:"friction_events,omitempty"`
	EventIDs       []string `json:"event_ids,omitempty"`
	Details        string   `json:"details,omitempty"`
}

// Insight is a human-readable finding derived from exactly one pattern.
type Insight struct {
	ID             uuid.UUID `json:"id"`
	PatternID      uuid.UUID `json:"pattern_id"`
	UserID         string    `json:"user_id"`
	Type           string    `json:"insight_type"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Recommendation string    `json:"recommendation"`
	ImpactScore    float64   `json:"impact_score"`
	ImpactLevel    string    `json:"impact_level"`
	Confidence     float64   `json:"confidence"`
	Evidence       Evidence  `json:"evidence"`
	TimeSavedSec   float64   `json:"time_saved_sec,omitempty"`
	EffortSaved    string    `json:"effort_saved,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// ImpactLevelFor derives the shared impact tier from pattern support and
// sequence length.
func ImpactLevelFor(support, sequenceLen int) string {
	switch {
	case support >= 10 && sequenceLen >= 5:
		return ImpactHigh
	case support >= 5 || sequenceLen >= 4:
		return ImpactMedium
	default:
		return ImpactLow
	}
}
