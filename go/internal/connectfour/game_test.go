package connectfour

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyMove(t *testing.T) {
	t.Run("disc lands on the bottom row", func(t *testing.T) {
		g := New()

		coord, err := g.ApplyMove(3)
		require.NoError(t, err)
		assert.Equal(t, Coordinate{Row: Rows - 1, Col: 3}, coord)
		assert.Equal(t, CellPlayerOne, g.CellAt(coord))
		assert.Equal(t, PlayerTwo, g.CurrentTurn())
	})

	t.Run("discs stack in a column", func(t *testing.T) {
		g := New()

		_, err := g.ApplyMove(0)
		require.NoError(t, err)
		coord, err := g.ApplyMove(0)
		require.NoError(t, err)

		assert.Equal(t, Coordinate{Row: Rows - 2, Col: 0}, coord)
		assert.Equal(t, CellPlayerTwo, g.CellAt(coord))
	})

	t.Run("invalid column", func(t *testing.T) {
		g := New()

		_, err := g.ApplyMove(-1)
		assert.ErrorIs(t, err, ErrInvalidColumn)
		_, err = g.ApplyMove(Cols)
		assert.ErrorIs(t, err, ErrInvalidColumn)
		assert.Equal(t, 0, g.MoveCount())
	})

	t.Run("full column", func(t *testing.T) {
		g := New()
		for i := 0; i < Rows; i++ {
			_, err := g.ApplyMove(2)
			require.NoError(t, err)
		}

		before := g.BoardSnapshot()
		_, err := g.ApplyMove(2)
		assert.ErrorIs(t, err, ErrColumnFull)
		assert.Equal(t, before, g.BoardSnapshot())
		assert.Equal(t, Rows, g.MoveCount())
	})
}

func TestWinDetection(t *testing.T) {
	tests := []struct {
		name   string
		moves  []int
		winner Player
	}{
		{
			name:   "horizontal",
			moves:  []int{0, 0, 1, 1, 2, 2, 3},
			winner: PlayerOne,
		},
		{
			name:   "vertical",
			moves:  []int{0, 1, 0, 1, 0, 1, 0},
			winner: PlayerOne,
		},
		{
			name:   "diagonal up-right",
			moves:  []int{0, 1, 1, 2, 2, 3, 2, 3, 3, 6, 3},
			winner: PlayerOne,
		},
		{
			name:   "diagonal down-right",
			moves:  []int{6, 5, 5, 4, 4, 3, 4, 3, 3, 0, 3},
			winner: PlayerOne,
		},
		{
			name:   "player two horizontal on eighth move",
			moves:  []int{0, 1, 0, 2, 0, 3, 6, 4},
			winner: PlayerTwo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Replay(tt.moves)
			require.NoError(t, err)

			assert.True(t, g.IsTerminal())
			winner, ok := g.Winner()
			require.True(t, ok)
			assert.Equal(t, tt.winner, winner)

			_, err = g.ApplyMove(5)
			assert.ErrorIs(t, err, ErrGameOver)
		})
	}
}

func TestTurnAlternation(t *testing.T) {
	g := New()
	moves := []int{0, 1, 0, 2, 0, 3, 6}

	for i, col := range moves {
		expected := PlayerOne
		if i%2 == 1 {
			expected = PlayerTwo
		}
		require.Equal(t, expected, g.CurrentTurn(), "move %d", i+1)
		_, err := g.ApplyMove(col)
		require.NoError(t, err)
	}

	assert.False(t, g.IsTerminal())
	assert.Equal(t, PlayerTwo, g.CurrentTurn())
	_, ok := g.Winner()
	assert.False(t, ok)
}

func TestDraw(t *testing.T) {
	// Column pairs filled in an order that never lines up four.
	var moves []int
	for _, pair := range [][2]int{{0, 1}, {2, 3}, {4, 5}} {
		for i := 0; i < 3; i++ {
			moves = append(moves, pair[0], pair[1])
		}
		for i := 0; i < 3; i++ {
			moves = append(moves, pair[1], pair[0])
		}
	}
	for i := 0; i < Rows; i++ {
		moves = append(moves, 6)
	}

	g, err := Replay(moves)
	require.NoError(t, err)

	assert.True(t, g.IsTerminal())
	_, ok := g.Winner()
	assert.False(t, ok)
	assert.Equal(t, Rows*Cols, g.MoveCount())
}

func TestReplay(t *testing.T) {
	moves := []int{3, 3, 4, 2, 5}

	first, err := Replay(moves)
	require.NoError(t, err)
	second, err := Replay(moves)
	require.NoError(t, err)

	assert.Equal(t, first.BoardSnapshot(), second.BoardSnapshot())
	assert.Equal(t, moves, first.MoveHistory())

	_, err = Replay([]int{0, 0, 0, 0, 0, 0, 0})
	assert.ErrorIs(t, err, ErrColumnFull)
}

func TestMoveHistoryIsCopy(t *testing.T) {
	g := New()
	_, err := g.ApplyMove(1)
	require.NoError(t, err)

	history := g.MoveHistory()
	history[0] = 6

	assert.Equal(t, []int{1}, g.MoveHistory())
}
