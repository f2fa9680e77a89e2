package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles WebSocket upgrade requests for a game room
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	roomID            string
}

// NewWebSocketHandler creates a WebSocket handler serving one room
func NewWebSocketHandler(cm *ConnectionManager, roomID string) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		roomID:            roomID,
	}
}

// HandleGameConnection handles GET /ws/game
func (h *WebSocketHandler) HandleGameConnection(w http.ResponseWriter, r *http.Request) {
	if roomID := r.URL.Query().Get("room_id"); roomID != "" && roomID != h.roomID {
		http.Error(w, "unknown room_id", http.StatusNotFound)
		return
	}

	playerID := r.URL.Query().Get("player_id")
	if playerID == "" {
		playerID = "anonymous"
	}

	// The upgrader has already written an HTTP error when this fails.
	if err := h.connectionManager.UpgradeConnection(w, r, playerID, h.roomID); err != nil {
		log.Error().
			Err(err).
			Str("room_id", h.roomID).
			Str("player_id", playerID).
			Msg("failed to upgrade WebSocket connection")
	}
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.connectionManager.GetConnectionStats()); err != nil {
		log.Error().Err(err).Msg("failed to encode connection stats")
	}
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/game", h.HandleGameConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
