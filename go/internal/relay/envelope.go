package relay

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Envelope is the wire format for RPC events
type Envelope struct {
	ID        string          `json:"id"`
	RoomID    string          `json:"room_id"`
	Event     string          `json:"event"`
	From      PeerID          `json:"from"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope wraps a payload for sending
func NewEnvelope(roomID string, from PeerID, event string, payload []byte) Envelope {
	env := Envelope{
		ID:        uuid.New().String(),
		RoomID:    roomID,
		Event:     event,
		From:      from,
		Timestamp: time.Now().UTC(),
	}
	if len(payload) > 0 {
		env.Payload = json.RawMessage(payload)
	}
	return env
}

// Message converts the envelope into what handlers receive
func (e Envelope) Message() Message {
	return Message{
		ID:      e.ID,
		Event:   e.Event,
		From:    e.From,
		Payload: []byte(e.Payload),
	}
}

// Encode marshals the envelope
func (e Envelope) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return data, nil
}

// DecodeEnvelope parses an envelope received from the wire
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("envelope %s has no event", env.ID)
	}
	return env, nil
}
