package amqp

import (
	"encoding/json"
	"time"

	"sweetdiary/internal/core"
)

// EntrySavedMessage tells the history worker that one user's entry for
// one day was created or overwritten. It carries only keys; the worker
// reads the actual rows from storage when it rebuilds.
type EntrySavedMessage struct {
	User      string    `json:"user"`
	Day       string    `json:"day"` // YYYY-MM-DD
	Timestamp time.Time `json:"timestamp"`
}

func NewEntrySavedMessage(user core.UserID, day core.Day) *EntrySavedMessage {
	return &EntrySavedMessage{
		User:      string(user),
		Day:       day.Key(),
		Timestamp: time.Now(),
	}
}

// UserID returns the typed user id.
func (m *EntrySavedMessage) UserID() core.UserID {
	return core.UserID(m.User)
}

// ToJSON converts the message to JSON bytes.
func (m *EntrySavedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EntrySavedMessageFromJSON creates a message from JSON bytes.
func EntrySavedMessageFromJSON(data []byte) (*EntrySavedMessage, error) {
	var msg EntrySavedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
