// Package gateway bridges a game Service to browser clients: domain events
// are pushed over WebSockets, moves come back over the same socket, and the
// current state is served over plain HTTP.
package gateway

import (
	"context"
	"net/http"
	"sync"

	"github.com/mcdev12/connectfour/go/internal/game/coordinator"
	"github.com/mcdev12/connectfour/go/internal/game/events"
	"github.com/rs/zerolog/log"
)

// Service is the game gateway for one room
type Service struct {
	roomID            string
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler

	stopOnce    sync.Once
	unsubscribe func()
}

// Config holds configuration for the game gateway
type Config struct {
	ConnectionConfig ConnectionConfig
}

// DefaultConfig returns default configuration for the game gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
	}
}

// NewService creates a gateway for game and starts forwarding its events
func NewService(config Config, roomID string, game coordinator.Service) *Service {
	connectionManager := NewConnectionManager(config.ConnectionConfig, game)

	s := &Service{
		roomID:            roomID,
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager, roomID),
		stateHandler:      NewStateHandler(game, roomID),
	}
	s.unsubscribe = game.Subscribe(s.forward)
	return s
}

func (s *Service) forward(evt events.Event) {
	gameEvent, err := NewGameEvent(s.roomID, evt)
	if err != nil {
		log.Error().Err(err).Str("room_id", s.roomID).Msg("failed to convert game event")
		return
	}
	s.connectionManager.BroadcastToRoom(s.roomID, gameEvent)
}

// Start runs the connection manager until ctx is done
func (s *Service) Start(ctx context.Context) error {
	log.Info().Str("room_id", s.roomID).Msg("starting game gateway")

	go s.connectionManager.Start(ctx)

	<-ctx.Done()

	log.Info().Msg("game gateway shutting down")
	return s.Stop()
}

// Stop detaches the gateway from the game
func (s *Service) Stop() error {
	s.stopOnce.Do(s.unsubscribe)
	log.Info().Msg("game gateway stopped")
	return nil
}

// RegisterRoutes registers the WebSocket and state HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)
	log.Info().Msg("game gateway routes registered")
}

// GetStats returns statistics about the gateway
func (s *Service) GetStats() ConnectionStats {
	return s.connectionManager.GetConnectionStats()
}
