package natsrelay

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/connectfour/go/internal/relay"
	"github.com/stretchr/testify/assert"
)

func TestPresenceTracker(t *testing.T) {
	base := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)

	t.Run("first heartbeat is a join", func(t *testing.T) {
		clock := clockwork.NewFakeClockAt(base)
		tr := newPresenceTracker(clock, 5*time.Second)

		assert.True(t, tr.seen("a", base))
		assert.False(t, tr.seen("a", base))
		assert.True(t, tr.contains("a"))
		assert.False(t, tr.contains("b"))
	})

	t.Run("peers are ordered by announced join time", func(t *testing.T) {
		clock := clockwork.NewFakeClockAt(base)
		tr := newPresenceTracker(clock, 5*time.Second)

		tr.seen("late", base.Add(2*time.Second))
		tr.seen("early", base)
		tr.seen("tie-b", base.Add(time.Second))
		tr.seen("tie-a", base.Add(time.Second))

		assert.Equal(t, []relay.PeerID{"early", "tie-a", "tie-b", "late"}, tr.ordered())
	})

	t.Run("silent peers expire but self never does", func(t *testing.T) {
		clock := clockwork.NewFakeClockAt(base)
		tr := newPresenceTracker(clock, 5*time.Second)

		tr.seen("self", base)
		tr.seen("a", base)
		tr.seen("b", base.Add(time.Millisecond))

		clock.Advance(3 * time.Second)
		tr.seen("b", time.Time{})
		assert.Empty(t, tr.expire("self"))

		clock.Advance(3 * time.Second)
		assert.Equal(t, []relay.PeerID{"a"}, tr.expire("self"))
		assert.Equal(t, []relay.PeerID{"self", "b"}, tr.ordered())

		clock.Advance(10 * time.Second)
		assert.Equal(t, []relay.PeerID{"b"}, tr.expire("self"))
		assert.Equal(t, []relay.PeerID{"self"}, tr.ordered())
	})

	t.Run("a zero join time keeps the announced one", func(t *testing.T) {
		clock := clockwork.NewFakeClockAt(base)
		tr := newPresenceTracker(clock, 5*time.Second)

		tr.seen("a", base.Add(time.Second))
		tr.seen("b", base.Add(2*time.Second))
		tr.seen("a", time.Time{})

		assert.Equal(t, []relay.PeerID{"a", "b"}, tr.ordered())
	})

	t.Run("leave", func(t *testing.T) {
		clock := clockwork.NewFakeClockAt(base)
		tr := newPresenceTracker(clock, 5*time.Second)

		tr.seen("a", base)
		assert.True(t, tr.leave("a"))
		assert.False(t, tr.leave("a"))
		assert.Empty(t, tr.ordered())
	})
}
