package hook

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

// Event is a message delivered on a subscribed topic.
type Event struct {
	// Topic is the fully namespaced topic, "{collection}.{event}".
	Topic string

	// Payload is the raw JSON payload as published.
	Payload json.RawMessage

	// Data is the decoded payload with ISO 8601 date strings revived as
	// time.Time. Nil when the payload was empty or not valid JSON.
	Data any
}

// Decode unmarshals the raw event payload into the provided struct.
func (e *Event) Decode(v any) error {
	if len(e.Payload) == 0 {
		return errors.New("event has no payload")
	}
	return json.Unmarshal(e.Payload, v)
}

// EventHandler is a subscription callback. Handlers run on their own
// goroutine per event; delivery order across events is not guaranteed.
type EventHandler func(e *Event)

// generateID returns a new unique call ID.
func generateID() string {
	return uuid.New().String()
}
