package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mcdev12/connectfour/go/internal/game/events"
	"github.com/mcdev12/connectfour/go/internal/relay"
)

// sessionStore is a typed view over the relay's replicated key/value state.
// Missing keys read as their defaults.
type sessionStore struct {
	relay relay.Relay
}

func defaultStates() map[string][]byte {
	return map[string][]byte{
		events.KeyGameState:   mustJSON(StateWaitingForPlayers),
		events.KeyMovesMade:   mustJSON([]int{}),
		events.KeyPlayerOneID: mustJSON(""),
		events.KeyPlayerTwoID: mustJSON(""),
	}
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

func (s sessionStore) read(ctx context.Context, key string, out any) (bool, error) {
	data, err := s.relay.GetState(ctx, key)
	if errors.Is(err, relay.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s sessionStore) write(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.relay.SetState(ctx, key, data); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s sessionStore) gameState(ctx context.Context) (State, error) {
	state := StateWaitingForPlayers
	if _, err := s.read(ctx, events.KeyGameState, &state); err != nil {
		return "", err
	}
	return state, nil
}

func (s sessionStore) setGameState(ctx context.Context, state State) error {
	return s.write(ctx, events.KeyGameState, state)
}

func (s sessionStore) playerIDs(ctx context.Context) (relay.PeerID, relay.PeerID, error) {
	var one, two relay.PeerID
	if _, err := s.read(ctx, events.KeyPlayerOneID, &one); err != nil {
		return "", "", err
	}
	if _, err := s.read(ctx, events.KeyPlayerTwoID, &two); err != nil {
		return "", "", err
	}
	return one, two, nil
}

func (s sessionStore) setPlayerID(ctx context.Context, key string, id relay.PeerID) error {
	return s.write(ctx, key, id)
}

func (s sessionStore) moves(ctx context.Context) ([]int, error) {
	var moves []int
	if _, err := s.read(ctx, events.KeyMovesMade, &moves); err != nil {
		return nil, err
	}
	return moves, nil
}

func (s sessionStore) setMoves(ctx context.Context, moves []int) error {
	if moves == nil {
		moves = []int{}
	}
	return s.write(ctx, events.KeyMovesMade, moves)
}
