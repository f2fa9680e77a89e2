package history

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/connectfour/go/internal/game/coordinator"
	"github.com/mcdev12/connectfour/go/internal/relay/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepository struct {
	mu      sync.Mutex
	matches map[uuid.UUID]Match
	saves   int
	failing error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{matches: make(map[uuid.UUID]Match)}
}

func (r *memoryRepository) SaveMatch(ctx context.Context, m Match) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if r.failing != nil {
		return false, r.failing
	}
	if _, ok := r.matches[m.ID]; ok {
		return false, nil
	}
	r.matches[m.ID] = m
	return true, nil
}

func (r *memoryRepository) GetMatch(ctx context.Context, id uuid.UUID) (*Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return &m, nil
}

func (r *memoryRepository) ListMatches(ctx context.Context, roomID string, limit int) ([]Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Match
	for _, m := range r.matches {
		if m.RoomID == roomID && len(out) < limit {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memoryRepository) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

type pickFirst struct{}

func (pickFirst) Intn(int) int { return 0 }

func settle(t *testing.T, h *memory.Hub) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.WaitIdle(ctx))
}

// playedRoom returns host and guest coordinators after a finished game won
// by player one in column 0
func playedRoom(t *testing.T) (*coordinator.Coordinator, *coordinator.Coordinator, *memory.Hub) {
	t.Helper()
	ctx := context.Background()
	h := memory.NewHub()

	host, err := coordinator.New(h.Client("room-1", "a"), coordinator.Options{Rand: pickFirst{}})
	require.NoError(t, err)
	guest, err := coordinator.New(h.Client("room-1", "b"), coordinator.Options{Rand: pickFirst{}})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = guest.Close()
		_ = host.Close()
	})

	require.NoError(t, host.Connect(ctx))
	settle(t, h)
	require.NoError(t, guest.Connect(ctx))
	settle(t, h)

	for i, col := range []int{0, 1, 0, 1, 0, 1, 0} {
		mover := host
		if i%2 == 1 {
			mover = guest
		}
		require.NoError(t, mover.RequestMove(ctx, col))
		settle(t, h)
	}
	require.True(t, host.IsGameOver())
	return host, guest, h
}

func TestRecorder(t *testing.T) {
	start := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)

	t.Run("host records the finished match once", func(t *testing.T) {
		host, _, _ := playedRoom(t)
		repo := newMemoryRepository()
		rec := NewRecorder(repo, host, "room-1", clockwork.NewFakeClockAt(start))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go rec.Run(ctx)

		require.Eventually(t, func() bool { return repo.saveCount() == 1 }, 2*time.Second, 5*time.Millisecond)

		id := MatchID("room-1", "a", "b", []int{0, 1, 0, 1, 0, 1, 0})
		m, err := repo.GetMatch(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "room-1", m.RoomID)
		assert.Equal(t, "a", m.PlayerOneID)
		assert.Equal(t, "b", m.PlayerTwoID)
		assert.Equal(t, []int{0, 1, 0, 1, 0, 1, 0}, m.Moves)
		assert.Equal(t, 1, m.Winner)
		assert.Equal(t, start, m.FinishedAt)

		rec.signal()
		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, 1, repo.saveCount())
	})

	t.Run("guest never records", func(t *testing.T) {
		_, guest, _ := playedRoom(t)
		repo := newMemoryRepository()
		rec := NewRecorder(repo, guest, "room-1", nil)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go rec.Run(ctx)

		time.Sleep(50 * time.Millisecond)
		assert.Zero(t, repo.saveCount())
	})

	t.Run("failed save is retried on the next event", func(t *testing.T) {
		host, _, _ := playedRoom(t)
		repo := newMemoryRepository()
		repo.failing = errors.New("database down")
		rec := NewRecorder(repo, host, "room-1", nil)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		rec.recordIfFinished(ctx)
		assert.Equal(t, 1, repo.saveCount())

		repo.mu.Lock()
		repo.failing = nil
		repo.mu.Unlock()

		rec.recordIfFinished(ctx)
		rec.recordIfFinished(ctx)
		assert.Equal(t, 2, repo.saveCount())
		list, err := repo.ListMatches(ctx, "room-1", 10)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}

func TestMatchID(t *testing.T) {
	a := MatchID("room", "p1", "p2", []int{1, 2, 3})
	assert.Equal(t, a, MatchID("room", "p1", "p2", []int{1, 2, 3}))
	assert.NotEqual(t, a, MatchID("room", "p1", "p2", []int{1, 2}))
	assert.NotEqual(t, a, MatchID("room", "p2", "p1", []int{1, 2, 3}))
	assert.NotEqual(t, MatchID("room", "p1", "p2", []int{1, 23}), MatchID("room", "p1", "p2", []int{12, 3}))
}
