package coordinator

import (
	"context"
	"sync"

	"github.com/mcdev12/connectfour/go/internal/connectfour"
	"github.com/mcdev12/connectfour/go/internal/game/events"
	"github.com/rs/zerolog/log"
)

// LocalService runs both players on one screen with no relay
type LocalService struct {
	mu      sync.Mutex
	game    *connectfour.Game
	state   State
	emitter *emitter
}

var _ Service = (*LocalService)(nil)

// NewLocal creates a hot-seat service
func NewLocal() *LocalService {
	return &LocalService{
		game:    connectfour.New(),
		state:   StateWaitingForPlayers,
		emitter: newEmitter(),
	}
}

// Connect starts the game immediately since both players are present
func (s *LocalService) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.state = StatePlaying
	s.mu.Unlock()

	log.Info().Msg("local game started")
	s.emitter.emit(events.GameStarted())
	return nil
}

func (s *LocalService) RequestMove(ctx context.Context, column int) error {
	s.mu.Lock()
	if s.state == StateWaitingForPlayers {
		s.mu.Unlock()
		return ErrNotPlaying
	}
	player := s.game.CurrentTurn()
	coord, err := s.game.ApplyMove(column)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if s.game.IsTerminal() {
		s.state = StateFinished
	}
	s.mu.Unlock()

	s.emitter.emit(events.PieceAdded(coord, player))
	return nil
}

// IsMyTurn is always true: whoever holds the screen plays
func (s *LocalService) IsMyTurn() bool { return true }

func (s *LocalService) IsGameOver() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.IsTerminal()
}

func (s *LocalService) CurrentPlayer() connectfour.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.CurrentTurn()
}

func (s *LocalService) GameState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *LocalService) TurnStatusText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.game.CurrentTurn() == connectfour.PlayerOne {
		return "Player Ones turn"
	}
	return "Player Twos turn"
}

func (s *LocalService) ResultText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return resultText(s.game)
}

func (s *LocalService) Board() []connectfour.Cell {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.BoardSnapshot()
}

func (s *LocalService) Subscribe(fn func(events.Event)) func() {
	return s.emitter.subscribe(fn)
}

func (s *LocalService) Close() error { return nil }
