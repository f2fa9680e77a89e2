package events

import (
	"github.com/mcdev12/connectfour/go/internal/connectfour"
	"github.com/mcdev12/connectfour/go/internal/relay"
)

// RPC event names exchanged between peers through the relay
const (
	PlayerConnected = "PLAYER_CONNECTED"
	NewGameStarted  = "NEW_GAME_STARTED"
	ExistingGame    = "EXISTING_GAME"
	MoveMade        = "MOVE_MADE"
	GamePieceAdded  = "GAME_PIECE_ADDED"
)

// Session Store keys
const (
	KeyGameState   = "GAME_STATE"
	KeyMovesMade   = "MOVES_MADE"
	KeyPlayerOneID = "PLAYER_ONE_ID"
	KeyPlayerTwoID = "PLAYER_TWO_ID"
)

// PlayerConnectedPayload is broadcast by a peer once its relay connection is up
type PlayerConnectedPayload struct {
	PlayerID relay.PeerID `json:"playerId"`
}

// ExistingGamePayload names the peer that should hydrate from the move log
type ExistingGamePayload struct {
	PlayerID relay.PeerID `json:"playerId"`
}

// MoveMadePayload is sent by a guest to the host
type MoveMadePayload struct {
	Column int `json:"column"`
}

// GamePieceAddedPayload is broadcast by the host after each authoritative move
type GamePieceAddedPayload struct {
	Coordinate connectfour.Coordinate `json:"coordinate"`
	Player     connectfour.Player     `json:"player"`
	Column     int                    `json:"column"`
	MoveNumber int                    `json:"moveNumber"`
}
