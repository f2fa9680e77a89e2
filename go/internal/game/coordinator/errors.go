package coordinator

import "errors"

var (
	// ErrDesync is returned when the local engine no longer matches the
	// host's move log in the Session Store
	ErrDesync = errors.New("local game diverged from session move log")

	// ErrNotPlaying is returned when a move is requested before the game started
	ErrNotPlaying = errors.New("game not in progress")
)
