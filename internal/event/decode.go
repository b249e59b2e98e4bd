package event

import (
	"time"

	"github.com/google/uuid"
)

// FromRecord decodes a raw JSON record from the events topic into an
// Event. Unknown fields land in Meta; the typed payload variant is built
// from the payload object when one is present.
func FromRecord(raw map[string]interface{}) Event {
	e := Event{Meta: map[string]interface{}{}}

	if v, ok := raw["event_id"].(string); ok && v != "" {
		e.ID = v
	} else {
		e.ID = uuid.New().String()
	}
	if v, ok := raw["user_id"].(string); ok {
		e.UserID = v
	}
	if v, ok := raw["session_id"].(string); ok {
		e.SessionID = v
	}
	if v, ok := raw["type"].(string); ok {
		e.Type = Type(v)
	}
	if v, ok := raw["timestamp"].(float64); ok {
		e.Timestamp = time.UnixMilli(int64(v))
	}
	if v, ok := raw["url"].(string); ok {
		e.URL = v
	}
	if v, ok := raw["dom_path"].(string); ok {
		e.DOMPath = v
	}
	if v, ok := raw["text"].(string); ok {
		e.Text = v
	}
	if v, ok := raw["dwell_ms"].(float64); ok {
		e.DwellMs = int64(v)
	}
	if meta, ok := raw["metadata"].(map[string]interface{}); ok {
		e.Meta = meta
	}

	if payload, ok := raw["payload"].(map[string]interface{}); ok {
		e.Payload = decodePayload(e.Type, payload)
	}

	return e
}

func decodePayload(t Type, p map[string]interface{}) Payload {
	switch t {
	case TypeClick:
		return ClickPayload{
			TargetTag:  getString(p, "target_tag"),
			TargetText: getString(p, "target_text"),
		}
	case TypeSearch:
		return SearchPayload{Query: getString(p, "query")}
	case TypeForm:
		submitted, _ := p["submitted"].(bool)
		return FormPayload{Field: getString(p, "field"), Submitted: submitted}
	case TypeNav:
		return NavPayload{
			Referrer: getString(p, "referrer"),
			Back:     getString(p, "nav_type") == "back",
		}
	case TypeScroll:
		return ScrollPayload{DepthPercent: getFloat(p, "depth_percent")}
	case TypeIdle:
		return IdlePayload{DurationMs: int64(getFloat(p, "duration_ms"))}
	case TypeError:
		return ErrorPayload{Message: getString(p, "message")}
	case TypeFriction:
		return FrictionPayload{Signal: getString(p, "signal")}
	}
	return nil
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func getFloat(m map[string]interface{}, key string) float64 {
	if v, ok := m[key].(float64); ok {
		return v
	}
	return 0
}
