package connectfour

import "errors"

var (
	// ErrInvalidColumn is returned when a column index is outside the board
	ErrInvalidColumn = errors.New("invalid column")

	// ErrColumnFull is returned when a disc is dropped into a full column
	ErrColumnFull = errors.New("column full")

	// ErrGameOver is returned when a move is attempted after the game ended
	ErrGameOver = errors.New("game over")
)
