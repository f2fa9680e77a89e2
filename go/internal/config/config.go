// Package config loads process configuration: built-in defaults, then an
// optional YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/mcdev12/connectfour/go/internal/dbconfig"
	"github.com/mcdev12/connectfour/go/internal/relay/natsrelay"
	"gopkg.in/yaml.v3"
)

// Session modes
const (
	ModeLocal = "local"
	ModeNATS  = "nats"
)

// Config is the full process configuration
type Config struct {
	Mode           string   `env:"GAME_MODE" yaml:"mode"`
	Room           string   `env:"GAME_ROOM" yaml:"room"`
	PeerID         string   `env:"PEER_ID" yaml:"peer_id"`
	Port           string   `env:"PORT" yaml:"port"`
	LogLevel       string   `env:"LOG_LEVEL" yaml:"log_level"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," yaml:"allowed_origins"`

	NATS     natsrelay.Config `yaml:"nats"`
	History  HistoryConfig    `yaml:"history"`
	Database dbconfig.Config  `yaml:"database"`
}

// HistoryConfig controls match recording
type HistoryConfig struct {
	Enabled bool `env:"HISTORY_ENABLED" yaml:"enabled"`
}

// Default returns the configuration used when nothing is overridden
func Default() Config {
	return Config{
		Mode:     ModeLocal,
		Room:     "lobby",
		Port:     "8080",
		LogLevel: "info",
		NATS:     natsrelay.DefaultConfig(),
		Database: dbconfig.Default(),
	}
}

// Load builds the configuration. path may be empty; a missing file is an
// error only when a path was given.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.PeerID == "" {
		cfg.PeerID = uuid.New().String()
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings that cannot work together
func (c Config) Validate() error {
	var errs []error
	switch c.Mode {
	case ModeLocal, ModeNATS:
	default:
		errs = append(errs, fmt.Errorf("unknown mode %q", c.Mode))
	}
	if c.Room == "" {
		errs = append(errs, errors.New("room is required"))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.History.Enabled && c.Mode != ModeNATS {
		errs = append(errs, errors.New("history requires nats mode"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
