package amqp

import (
	"encoding/json"
	"time"
)

// StateSavedMessage announces that the budget state was persisted. It
// carries only the operation name and timestamp; the worker fetches the
// current state from the database itself.
type StateSavedMessage struct {
	Operation string    `json:"operation"`
	SavedAt   time.Time `json:"savedAt"`
}

func NewStateSavedMessage(operation string) *StateSavedMessage {
	return &StateSavedMessage{
		Operation: operation,
		SavedAt:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *StateSavedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// StateSavedMessageFromJSON creates a message from JSON bytes
func StateSavedMessageFromJSON(data []byte) (*StateSavedMessage, error) {
	var msg StateSavedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
