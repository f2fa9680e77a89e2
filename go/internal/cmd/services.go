package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/connectfour/go/internal/config"
	"github.com/mcdev12/connectfour/go/internal/game/coordinator"
	"github.com/mcdev12/connectfour/go/internal/game/gateway"
	"github.com/mcdev12/connectfour/go/internal/game/history"
	"github.com/mcdev12/connectfour/go/internal/relay"
	"github.com/mcdev12/connectfour/go/internal/relay/natsrelay"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Game     coordinator.Service
	Gateway  *gateway.Service
	Recorder *history.Recorder

	pool *pgxpool.Pool
}

func setupServices(ctx context.Context, cfg config.Config) (*Services, error) {
	s := &Services{}

	switch cfg.Mode {
	case config.ModeLocal:
		s.Game = coordinator.NewLocal()
	case config.ModeNATS:
		r := natsrelay.New(cfg.NATS, cfg.Room, relay.PeerID(cfg.PeerID))
		c, err := coordinator.New(r, coordinator.Options{})
		if err != nil {
			return nil, fmt.Errorf("failed to create coordinator: %w", err)
		}
		s.Game = c

		if cfg.History.Enabled {
			if err := s.setupHistory(ctx, cfg, c); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("unknown mode %q", cfg.Mode)
	}

	// Subscribe the gateway before connecting so the first events reach clients
	s.Gateway = gateway.NewService(gateway.DefaultConfig(), cfg.Room, s.Game)

	if err := s.Game.Connect(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to connect game session: %w", err)
	}
	return s, nil
}

func (s *Services) setupHistory(ctx context.Context, cfg config.Config, game history.Game) error {
	pool, err := setupDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	s.pool = pool

	repo := history.NewPostgresRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to prepare match history schema: %w", err)
	}

	s.Recorder = history.NewRecorder(repo, game, cfg.Room, nil)
	return nil
}

// Close leaves the game session and releases the database pool
func (s *Services) Close() {
	if s.Gateway != nil {
		if err := s.Gateway.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop game gateway")
		}
	}
	if s.Game != nil {
		if err := s.Game.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close game session")
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
}
