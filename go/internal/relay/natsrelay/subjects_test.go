package natsrelay

import (
	"testing"
	"time"

	"github.com/mcdev12/connectfour/go/internal/relay"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
)

func TestSubjects(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"rpc all", rpcSubject("lobby", relay.ModeAll), "connectfour.lobby.rpc.all"},
		{"rpc host", rpcSubject("lobby", relay.ModeHost), "connectfour.lobby.rpc.host"},
		{"presence", presenceSubject("lobby"), "connectfour.lobby.presence"},
		{"wildcard", wildcardSubject("lobby"), "connectfour.lobby.>"},
		{"room with separators", rpcSubject("a.b c*>", relay.ModeAll), "connectfour.a_b_c__.rpc.all"},
		{"bucket", bucketName("connectfour", "room-1"), "connectfour_room-1"},
		{"bucket with dots", bucketName("cf.prod", "x.y"), "cf_prod_x_y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	t.Run("zero config is filled in", func(t *testing.T) {
		cfg := Config{}.withDefaults()
		assert.Equal(t, nats.DefaultURL, cfg.URL)
		assert.Equal(t, "connectfour", cfg.BucketPrefix)
		assert.Equal(t, time.Second, cfg.HeartbeatInterval)
		assert.Equal(t, 5*time.Second, cfg.PeerTimeout)
		assert.Equal(t, 2*time.Second, cfg.ReconnectWait)
	})

	t.Run("timeout shorter than the heartbeat is widened", func(t *testing.T) {
		cfg := Config{HeartbeatInterval: 2 * time.Second, PeerTimeout: time.Second}.withDefaults()
		assert.Equal(t, 10*time.Second, cfg.PeerTimeout)
	})

	t.Run("explicit values are kept", func(t *testing.T) {
		cfg := Config{URL: "nats://example:4222", PeerTimeout: 30 * time.Second, MaxReconnects: 3}.withDefaults()
		assert.Equal(t, "nats://example:4222", cfg.URL)
		assert.Equal(t, 30*time.Second, cfg.PeerTimeout)
		assert.Equal(t, 3, cfg.MaxReconnects)
	})
}

func TestNewDoesNotConnect(t *testing.T) {
	r := New(Config{}, "lobby", "peer-1")
	assert.Equal(t, relay.PeerID("peer-1"), r.Self())
	assert.False(t, r.IsHost())
	assert.NoError(t, r.Close())
}
