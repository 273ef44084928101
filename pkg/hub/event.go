// Package hub fans session events out to dashboard websocket clients
// using the channel-based broadcast pattern.
package hub

import (
	"encoding/json"
	"time"
)

// EventKind identifies the type of session event.
type EventKind string

const (
	// KindState is a turn-state transition.
	KindState EventKind = "state"

	// KindCaption is a new caption segment.
	KindCaption EventKind = "caption"

	// KindLatency is a connection-quality update.
	KindLatency EventKind = "latency"

	// KindDevice is a device session change.
	KindDevice EventKind = "device"
)

// Event is one session event broadcast to dashboard clients.
type Event struct {
	Kind      EventKind       `json:"kind"`
	Timestamp int64           `json:"ts"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewEvent creates an event with the current timestamp.
func NewEvent(kind EventKind, data any) (Event, error) {
	var raw json.RawMessage
	if data != nil {
		var err error
		raw, err = json.Marshal(data)
		if err != nil {
			return Event{}, err
		}
	}
	return Event{
		Kind:      kind,
		Timestamp: time.Now().UnixMilli(),
		Data:      raw,
	}, nil
}

// Bytes returns the JSON-encoded event.
func (e Event) Bytes() ([]byte, error) {
	return json.Marshal(e)
}
