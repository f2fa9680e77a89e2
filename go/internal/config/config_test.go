package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, ModeLocal, cfg.Mode)
		assert.Equal(t, "lobby", cfg.Room)
		assert.Equal(t, "8080", cfg.Port)
		assert.NotEmpty(t, cfg.PeerID)
		assert.Equal(t, "connectfour", cfg.Database.Database)
		assert.Equal(t, time.Second, cfg.NATS.HeartbeatInterval)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := writeFile(t, `
mode: nats
room: attic
peer_id: alice
nats:
  url: nats://relay:4222
  peer_timeout: 10s
history:
  enabled: true
database:
  host: db
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, ModeNATS, cfg.Mode)
		assert.Equal(t, "attic", cfg.Room)
		assert.Equal(t, "alice", cfg.PeerID)
		assert.Equal(t, "nats://relay:4222", cfg.NATS.URL)
		assert.Equal(t, 10*time.Second, cfg.NATS.PeerTimeout)
		assert.Equal(t, time.Second, cfg.NATS.HeartbeatInterval)
		assert.True(t, cfg.History.Enabled)
		assert.Equal(t, "db", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
	})

	t.Run("env overrides file", func(t *testing.T) {
		path := writeFile(t, "mode: nats\nroom: attic\n")
		t.Setenv("GAME_ROOM", "cellar")
		t.Setenv("NATS_HEARTBEAT_INTERVAL", "250ms")
		t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test,http://b.test")
		t.Setenv("DB_PORT", "6543")

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, ModeNATS, cfg.Mode)
		assert.Equal(t, "cellar", cfg.Room)
		assert.Equal(t, 250*time.Millisecond, cfg.NATS.HeartbeatInterval)
		assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
		assert.Equal(t, 6543, cfg.Database.Port)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorContains(t, err, "read config file")
	})

	t.Run("malformed env", func(t *testing.T) {
		t.Setenv("DB_PORT", "not-a-port")
		_, err := Load("")
		assert.ErrorContains(t, err, "parse env")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "default is valid", mutate: func(*Config) {}},
		{name: "unknown mode", mutate: func(c *Config) { c.Mode = "carrier-pigeon" }, wantErr: `unknown mode "carrier-pigeon"`},
		{name: "empty room", mutate: func(c *Config) { c.Room = "" }, wantErr: "room is required"},
		{name: "empty port", mutate: func(c *Config) { c.Port = "" }, wantErr: "port is required"},
		{name: "history outside nats", mutate: func(c *Config) { c.History.Enabled = true }, wantErr: "history requires nats mode"},
		{name: "history with nats", mutate: func(c *Config) {
			c.Mode = ModeNATS
			c.History.Enabled = true
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
