package coordinator

import (
	"context"
	"testing"

	"github.com/mcdev12/connectfour/go/internal/connectfour"
	"github.com/mcdev12/connectfour/go/internal/game/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalService(t *testing.T) {
	ctx := context.Background()

	t.Run("moves before connect are rejected", func(t *testing.T) {
		s := NewLocal()
		assert.ErrorIs(t, s.RequestMove(ctx, 0), ErrNotPlaying)
		assert.Equal(t, StateWaitingForPlayers, s.GameState())
	})

	t.Run("connect starts the game", func(t *testing.T) {
		s := NewLocal()
		var got []events.Event
		s.Subscribe(func(e events.Event) { got = append(got, e) })

		require.NoError(t, s.Connect(ctx))
		assert.Equal(t, StatePlaying, s.GameState())
		require.Len(t, got, 1)
		assert.Equal(t, events.TypeGameStarted, got[0].Type)
		assert.True(t, s.IsMyTurn())
		assert.Equal(t, "Player Ones turn", s.TurnStatusText())
	})

	t.Run("players alternate on one screen", func(t *testing.T) {
		s := NewLocal()
		require.NoError(t, s.Connect(ctx))

		var added []events.PieceAddedData
		s.Subscribe(func(e events.Event) {
			if e.Type == events.TypePieceAdded {
				added = append(added, *e.PieceAdded)
			}
		})

		require.NoError(t, s.RequestMove(ctx, 3))
		assert.Equal(t, "Player Twos turn", s.TurnStatusText())
		assert.Equal(t, connectfour.PlayerTwo, s.CurrentPlayer())
		assert.True(t, s.IsMyTurn())

		require.NoError(t, s.RequestMove(ctx, 3))
		require.Len(t, added, 2)
		assert.Equal(t, connectfour.Coordinate{Row: connectfour.Rows - 1, Col: 3}, added[0].Coordinate)
		assert.Equal(t, connectfour.PlayerOne, added[0].Player)
		assert.Equal(t, connectfour.Coordinate{Row: connectfour.Rows - 2, Col: 3}, added[1].Coordinate)
		assert.Equal(t, connectfour.PlayerTwo, added[1].Player)
	})

	t.Run("rules errors propagate", func(t *testing.T) {
		s := NewLocal()
		require.NoError(t, s.Connect(ctx))
		assert.ErrorIs(t, s.RequestMove(ctx, -1), connectfour.ErrInvalidColumn)
		assert.Equal(t, connectfour.PlayerOne, s.CurrentPlayer())
	})

	t.Run("win ends the game", func(t *testing.T) {
		s := NewLocal()
		require.NoError(t, s.Connect(ctx))
		for _, col := range []int{0, 1, 0, 1, 0, 1, 0} {
			require.NoError(t, s.RequestMove(ctx, col))
		}
		assert.True(t, s.IsGameOver())
		assert.Equal(t, StateFinished, s.GameState())
		assert.Equal(t, "Player One Wins!", s.ResultText())
		assert.ErrorIs(t, s.RequestMove(ctx, 2), connectfour.ErrGameOver)
	})

	t.Run("unsubscribe stops delivery", func(t *testing.T) {
		s := NewLocal()
		calls := 0
		unsubscribe := s.Subscribe(func(events.Event) { calls++ })
		unsubscribe()
		unsubscribe()

		require.NoError(t, s.Connect(ctx))
		assert.Zero(t, calls)
	})
}
