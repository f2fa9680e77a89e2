// Package events holds the payloads that flow through a game session: RPC
// payloads exchanged between peers, Session Store keys, and the domain
// events a coordinator emits to the presentation layer.
package events

import "github.com/mcdev12/connectfour/go/internal/connectfour"

// Type identifies a domain event
type Type string

const (
	TypePieceAdded     Type = "piece-added"
	TypeGameStarted    Type = "game-started"
	TypeExistingGame   Type = "existing-game"
	TypeDesyncDetected Type = "desync-detected"
)

// Event is a local notification for the presentation layer. Exactly one of
// the payload fields is set, matching Type.
type Event struct {
	Type         Type              `json:"type"`
	PieceAdded   *PieceAddedData   `json:"piece_added,omitempty"`
	ExistingGame *ExistingGameData `json:"existing_game,omitempty"`
	Desync       *DesyncData       `json:"desync,omitempty"`
}

// PieceAddedData describes a disc that should be animated into place
type PieceAddedData struct {
	Coordinate connectfour.Coordinate `json:"coordinate"`
	Player     connectfour.Player     `json:"player"`
}

// ExistingGameData carries a full board so every placed disc can be drawn at once
type ExistingGameData struct {
	Board []connectfour.Cell `json:"board"`
	Moves int                `json:"moves"`
}

// DesyncData reports a local engine that diverged from the host's move log
type DesyncData struct {
	LocalMoves  int    `json:"local_moves"`
	RemoteMoves int    `json:"remote_moves"`
	Reason      string `json:"reason"`
}

// PieceAdded builds a piece-added event
func PieceAdded(coord connectfour.Coordinate, player connectfour.Player) Event {
	return Event{
		Type:       TypePieceAdded,
		PieceAdded: &PieceAddedData{Coordinate: coord, Player: player},
	}
}

// GameStarted builds a game-started event
func GameStarted() Event {
	return Event{Type: TypeGameStarted}
}

// ExistingGameEvent builds an existing-game event
func ExistingGameEvent(board []connectfour.Cell, moves int) Event {
	return Event{
		Type:         TypeExistingGame,
		ExistingGame: &ExistingGameData{Board: board, Moves: moves},
	}
}

// DesyncDetected builds a desync-detected event
func DesyncDetected(local, remote int, reason string) Event {
	return Event{
		Type:   TypeDesyncDetected,
		Desync: &DesyncData{LocalMoves: local, RemoteMoves: remote, Reason: reason},
	}
}
