// Package connectfour implements the Connect Four rules engine: a
// deterministic turn-based state machine that drops discs into a 6x7 board
// and reports wins and draws.
package connectfour

import "fmt"

const (
	Rows      = 6
	Cols      = 7
	WinLength = 4
)

// Player identifies one of the two sides of a game
type Player int

const (
	PlayerOne Player = 1
	PlayerTwo Player = 2
)

func (p Player) String() string {
	switch p {
	case PlayerOne:
		return "Player One"
	case PlayerTwo:
		return "Player Two"
	default:
		return fmt.Sprintf("Player(%d)", int(p))
	}
}

// Other returns the opposing player
func (p Player) Other() Player {
	if p == PlayerOne {
		return PlayerTwo
	}
	return PlayerOne
}

// Cell is the content of one board position
type Cell int

const (
	CellEmpty     Cell = 0
	CellPlayerOne Cell = 1
	CellPlayerTwo Cell = 2
)

func cellFor(p Player) Cell {
	if p == PlayerOne {
		return CellPlayerOne
	}
	return CellPlayerTwo
}

// Coordinate is the landing position of a dropped disc. Row 0 is the top row.
type Coordinate struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Game holds the board, whose turn it is and the ordered move log
type Game struct {
	board    [Rows][Cols]Cell
	turn     Player
	moves    []int
	winner   Player
	terminal bool
}

// New creates an empty game with Player One to move
func New() *Game {
	return &Game{turn: PlayerOne}
}

// Replay builds a fresh game from a move log. It always starts from an
// empty board, so replaying the same log twice yields the same state.
func Replay(moves []int) (*Game, error) {
	g := New()
	for i, col := range moves {
		if _, err := g.ApplyMove(col); err != nil {
			return nil, fmt.Errorf("replay move %d (column %d): %w", i+1, col, err)
		}
	}
	return g, nil
}

// ValidateMove reports whether column is a legal move without mutating the game
func (g *Game) ValidateMove(column int) error {
	if g.terminal {
		return ErrGameOver
	}
	if column < 0 || column >= Cols {
		return ErrInvalidColumn
	}
	if g.board[0][column] != CellEmpty {
		return ErrColumnFull
	}
	return nil
}

// ApplyMove drops a disc for the current player into column and returns
// where it landed. The turn passes to the other player unless the move
// ended the game.
func (g *Game) ApplyMove(column int) (Coordinate, error) {
	if err := g.ValidateMove(column); err != nil {
		return Coordinate{}, err
	}

	row := g.dropDisc(column)
	g.board[row][column] = cellFor(g.turn)
	g.moves = append(g.moves, column)

	if g.connects(row, column) {
		g.winner = g.turn
		g.terminal = true
	} else if len(g.moves) == Rows*Cols {
		g.terminal = true
	} else {
		g.turn = g.turn.Other()
	}

	return Coordinate{Row: row, Col: column}, nil
}

// dropDisc returns the lowest empty row of a column that is known not to be full
func (g *Game) dropDisc(column int) int {
	for r := Rows - 1; r >= 0; r-- {
		if g.board[r][column] == CellEmpty {
			return r
		}
	}
	return -1
}

// connects checks whether the disc at (row, col) is part of a line of at
// least WinLength discs in any of the four directions.
func (g *Game) connects(row, col int) bool {
	mark := g.board[row][col]
	if mark == CellEmpty {
		return false
	}

	dirs := [][2]int{{1, 0}, {0, 1}, {1, 1}, {1, -1}}
	for _, d := range dirs {
		count := 1

		fr, fc := row+d[0], col+d[1]
		for inBounds(fr, fc) && g.board[fr][fc] == mark {
			count++
			fr += d[0]
			fc += d[1]
		}

		br, bc := row-d[0], col-d[1]
		for inBounds(br, bc) && g.board[br][bc] == mark {
			count++
			br -= d[0]
			bc -= d[1]
		}

		if count >= WinLength {
			return true
		}
	}
	return false
}

func inBounds(r, c int) bool {
	return r >= 0 && r < Rows && c >= 0 && c < Cols
}

// CurrentTurn returns the player to move. After the game ends it returns
// the player who made the last move.
func (g *Game) CurrentTurn() Player {
	return g.turn
}

// IsTerminal reports whether the game has been won or drawn
func (g *Game) IsTerminal() bool {
	return g.terminal
}

// Winner returns the winning player. ok is false while the game is running
// and for a draw.
func (g *Game) Winner() (Player, bool) {
	if g.winner == 0 {
		return 0, false
	}
	return g.winner, true
}

// MoveHistory returns a copy of the columns played so far, in order
func (g *Game) MoveHistory() []int {
	out := make([]int, len(g.moves))
	copy(out, g.moves)
	return out
}

// MoveCount returns the number of moves applied
func (g *Game) MoveCount() int {
	return len(g.moves)
}

// BoardSnapshot flattens the board row-major, top row first
func (g *Game) BoardSnapshot() []Cell {
	out := make([]Cell, 0, Rows*Cols)
	for r := 0; r < Rows; r++ {
		out = append(out, g.board[r][:]...)
	}
	return out
}

// CellAt returns the content of a board position
func (g *Game) CellAt(c Coordinate) Cell {
	if !inBounds(c.Row, c.Col) {
		return CellEmpty
	}
	return g.board[c.Row][c.Col]
}
