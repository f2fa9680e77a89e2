package history

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/connectfour/go/internal/connectfour"
	"github.com/mcdev12/connectfour/go/internal/game/events"
	"github.com/mcdev12/connectfour/go/internal/relay"
	"github.com/rs/zerolog/log"
)

// Game is what the recorder reads from a running session
type Game interface {
	Subscribe(fn func(events.Event)) func()
	IsHost() bool
	IsGameOver() bool
	Moves() []int
	Winner() (connectfour.Player, bool)
	Slots(ctx context.Context) (relay.PeerID, relay.PeerID, error)
}

// Recorder saves the session's match once it finishes on the host
type Recorder struct {
	repo   Repository
	game   Game
	roomID string
	clock  clockwork.Clock

	wake chan struct{}

	mu       sync.Mutex
	recorded map[string]bool
}

// NewRecorder creates a recorder for one room. Run must be called for
// anything to be saved.
func NewRecorder(repo Repository, game Game, roomID string, clock clockwork.Clock) *Recorder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Recorder{
		repo:     repo,
		game:     game,
		roomID:   roomID,
		clock:    clock,
		wake:     make(chan struct{}, 1),
		recorded: make(map[string]bool),
	}
}

// Run watches game events until ctx is done. Observers must not block, so
// the event callback only signals and the save happens here.
func (r *Recorder) Run(ctx context.Context) {
	unsubscribe := r.game.Subscribe(r.onEvent)
	defer unsubscribe()

	// a game may already be over when the recorder starts
	r.signal()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.wake:
			r.recordIfFinished(ctx)
		}
	}
}

func (r *Recorder) onEvent(evt events.Event) {
	switch evt.Type {
	case events.TypePieceAdded, events.TypeExistingGame:
		r.signal()
	}
}

func (r *Recorder) signal() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Recorder) recordIfFinished(ctx context.Context) {
	if !r.game.IsHost() || !r.game.IsGameOver() {
		return
	}

	one, two, err := r.game.Slots(ctx)
	if err != nil {
		log.Error().Err(err).Str("room_id", r.roomID).Msg("failed to read player slots for history")
		return
	}

	moves := r.game.Moves()
	id := MatchID(r.roomID, string(one), string(two), moves)

	r.mu.Lock()
	done := r.recorded[id.String()]
	r.mu.Unlock()
	if done {
		return
	}

	winner := 0
	if p, ok := r.game.Winner(); ok {
		winner = int(p)
	}

	inserted, err := r.repo.SaveMatch(ctx, Match{
		ID:          id,
		RoomID:      r.roomID,
		PlayerOneID: string(one),
		PlayerTwoID: string(two),
		Moves:       moves,
		Winner:      winner,
		FinishedAt:  r.clock.Now().UTC(),
	})
	if err != nil {
		log.Error().Err(err).Str("room_id", r.roomID).Msg("failed to record match")
		return
	}

	r.mu.Lock()
	r.recorded[id.String()] = true
	r.mu.Unlock()

	log.Info().
		Str("room_id", r.roomID).
		Str("match_id", id.String()).
		Int("moves", len(moves)).
		Int("winner", winner).
		Bool("inserted", inserted).
		Msg("match recorded")
}
