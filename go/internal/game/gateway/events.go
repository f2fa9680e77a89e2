package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/connectfour/go/internal/game/events"
)

// GameEvent is the envelope pushed to browser clients
type GameEvent struct {
	ID        string          `json:"id"`        // Event UUID
	RoomID    string          `json:"room_id"`   // Room the event belongs to
	Type      EventType       `json:"type"`      // Event type
	Timestamp time.Time       `json:"timestamp"` // Event creation time
	Data      json.RawMessage `json:"data,omitempty"`
}

// EventType represents the type of game event
type EventType string

const (
	EventTypePieceAdded     EventType = "PieceAdded"
	EventTypeGameStarted    EventType = "GameStarted"
	EventTypeExistingGame   EventType = "ExistingGame"
	EventTypeDesyncDetected EventType = "DesyncDetected"
	EventTypeMoveRejected   EventType = "MoveRejected"
)

// MoveRejectedPayload is sent only to the client whose move failed
type MoveRejectedPayload struct {
	Column int    `json:"column"`
	Reason string `json:"reason"`
}

// ClientMessage is what a browser sends over the socket
type ClientMessage struct {
	Type   string `json:"type"`
	Column int    `json:"column"`
}

const clientMessageMove = "move"

// NewGameEvent wraps a domain event for the wire
func NewGameEvent(roomID string, evt events.Event) (*GameEvent, error) {
	var (
		typ  EventType
		data any
	)
	switch evt.Type {
	case events.TypePieceAdded:
		typ, data = EventTypePieceAdded, evt.PieceAdded
	case events.TypeGameStarted:
		typ = EventTypeGameStarted
	case events.TypeExistingGame:
		typ, data = EventTypeExistingGame, evt.ExistingGame
	case events.TypeDesyncDetected:
		typ, data = EventTypeDesyncDetected, evt.Desync
	default:
		return nil, fmt.Errorf("unknown event type: %s", evt.Type)
	}
	return newGameEvent(roomID, typ, data)
}

func newGameEvent(roomID string, typ EventType, data any) (*GameEvent, error) {
	ge := &GameEvent{
		ID:        uuid.New().String(),
		RoomID:    roomID,
		Type:      typ,
		Timestamp: time.Now().UTC(),
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", typ, err)
		}
		ge.Data = raw
	}
	return ge, nil
}

// ParseEventPayload parses event data into the matching payload struct
func ParseEventPayload(event *GameEvent) (any, error) {
	switch event.Type {
	case EventTypePieceAdded:
		var payload events.PieceAddedData
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeExistingGame:
		var payload events.ExistingGameData
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeDesyncDetected:
		var payload events.DesyncData
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeMoveRejected:
		var payload MoveRejectedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	default:
		return nil, nil // GameStarted and unknown types carry no payload
	}
}
