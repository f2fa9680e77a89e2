package natsrelay

import (
	"time"

	"github.com/nats-io/nats.go"
)

// Config holds connection and presence settings for a NATS-backed room
type Config struct {
	URL               string        `env:"NATS_URL" yaml:"url"`
	BucketPrefix      string        `env:"NATS_BUCKET_PREFIX" yaml:"bucket_prefix"`
	HeartbeatInterval time.Duration `env:"NATS_HEARTBEAT_INTERVAL" yaml:"heartbeat_interval"`
	PeerTimeout       time.Duration `env:"NATS_PEER_TIMEOUT" yaml:"peer_timeout"`
	MaxReconnects     int           `env:"NATS_MAX_RECONNECTS" yaml:"max_reconnects"`
	ReconnectWait     time.Duration `env:"NATS_RECONNECT_WAIT" yaml:"reconnect_wait"`
}

// DefaultConfig returns the settings used when nothing is overridden
func DefaultConfig() Config {
	return Config{
		URL:               nats.DefaultURL,
		BucketPrefix:      "connectfour",
		HeartbeatInterval: time.Second,
		PeerTimeout:       5 * time.Second,
		MaxReconnects:     -1, // Infinite
		ReconnectWait:     2 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.URL == "" {
		c.URL = d.URL
	}
	if c.BucketPrefix == "" {
		c.BucketPrefix = d.BucketPrefix
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = d.HeartbeatInterval
	}
	if c.PeerTimeout <= c.HeartbeatInterval {
		c.PeerTimeout = 5 * c.HeartbeatInterval
	}
	if c.ReconnectWait <= 0 {
		c.ReconnectWait = d.ReconnectWait
	}
	return c
}
