// Package coordinator keeps the local view of a two-player Connect Four
// session consistent with every other peer in the same room.
//
// A Service is picked when the session starts: NewLocal runs both players
// on one screen, New runs the relay-backed Coordinator. The Coordinator
// owns the local rules engine, the peer's role, the room roster and the
// join/move/reconnect protocol; the presentation layer only subscribes to
// domain events and calls RequestMove.
//
// Protocol summary:
//
//	PLAYER_CONNECTED  every peer, once connected      -> host assigns slots
//	NEW_GAME_STARTED  host, when two peers are ready  -> game-started
//	EXISTING_GAME     host, when a slot is refilled   -> named peer replays MOVES_MADE
//	MOVE_MADE         guest to host                   -> host applies authoritatively
//	GAME_PIECE_ADDED  host to all, one per move       -> guests apply, all emit piece-added
package coordinator

import (
	"context"

	"github.com/mcdev12/connectfour/go/internal/connectfour"
	"github.com/mcdev12/connectfour/go/internal/game/events"
)

// State is the lifecycle of a session
type State string

const (
	StateWaitingForPlayers State = "WAITING_FOR_PLAYERS"
	StatePlaying           State = "PLAYING"
	StateFinished          State = "FINISHED"
)

const (
	playerOneWinsText = "Player One Wins!"
	playerTwoWinsText = "Player Two Wins!"
	drawText          = "Draw"
	waitingText       = "Waiting for players"
)

// Service is what the presentation layer drives
type Service interface {
	Connect(ctx context.Context) error
	// RequestMove attempts a move for the local player. Out-of-turn requests
	// are dropped without error; illegal columns return a rules error.
	RequestMove(ctx context.Context, column int) error

	IsMyTurn() bool
	IsGameOver() bool
	CurrentPlayer() connectfour.Player
	GameState() State
	TurnStatusText() string
	ResultText() string
	Board() []connectfour.Cell

	// Subscribe registers an observer for domain events and returns a
	// function that removes it
	Subscribe(fn func(events.Event)) (unsubscribe func())

	Close() error
}

func resultText(g *connectfour.Game) string {
	if !g.IsTerminal() {
		return ""
	}
	winner, ok := g.Winner()
	if !ok {
		return drawText
	}
	if winner == connectfour.PlayerOne {
		return playerOneWinsText
	}
	return playerTwoWinsText
}
