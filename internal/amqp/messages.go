package amqp

import (
	"encoding/json"
	"time"
)

// MirrorMessage asks the worker to mirror one transaction to the backup
// spreadsheet. It carries only the kind and id; the worker fetches the full
// row from the database so a stale message can never overwrite fresh data.
type MirrorMessage struct {
	Kind      string    `json:"kind"` // "purchase" or "payment"
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewMirrorMessage(kind, id string) *MirrorMessage {
	return &MirrorMessage{
		Kind:      kind,
		ID:        id,
		Timestamp: time.Now(),
	}
}

func (m *MirrorMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MirrorMessageFromJSON(data []byte) (*MirrorMessage, error) {
	var msg MirrorMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
