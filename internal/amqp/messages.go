package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"finanzas/internal/history"
)

// LoadMessage carries one load event from the dashboard to the history worker.
type LoadMessage struct {
	Event     history.LoadEvent `json:"event"`
	Timestamp time.Time         `json:"timestamp"`
}

func NewLoadMessage(e history.LoadEvent) *LoadMessage {
	return &LoadMessage{Event: e, Timestamp: time.Now()}
}

func (m *LoadMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LoadMessageFromJSON decodes a message and rejects events that could never
// be stored.
func LoadMessageFromJSON(data []byte) (*LoadMessage, error) {
	var msg LoadMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Event.Validate(); err != nil {
		return nil, fmt.Errorf("invalid load message: %w", err)
	}
	return &msg, nil
}
