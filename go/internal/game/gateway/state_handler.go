package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/mcdev12/connectfour/go/internal/connectfour"
	"github.com/mcdev12/connectfour/go/internal/game/coordinator"
	"github.com/rs/zerolog/log"
)

// GameStateResponse is a snapshot of the local peer's view of the game
type GameStateResponse struct {
	RoomID        string               `json:"room_id"`
	State         coordinator.State    `json:"state"`
	CurrentPlayer connectfour.Player   `json:"current_player"`
	MyTurn        bool                 `json:"my_turn"`
	GameOver      bool                 `json:"game_over"`
	TurnText      string               `json:"turn_text"`
	ResultText    string               `json:"result_text,omitempty"`
	Board         [][]connectfour.Cell `json:"board"`
}

// StateHandler handles HTTP requests for game state
type StateHandler struct {
	game   coordinator.Service
	roomID string
}

// NewStateHandler creates a new state handler
func NewStateHandler(game coordinator.Service, roomID string) *StateHandler {
	return &StateHandler{game: game, roomID: roomID}
}

// Snapshot builds the current state response
func (h *StateHandler) Snapshot() GameStateResponse {
	return GameStateResponse{
		RoomID:        h.roomID,
		State:         h.game.GameState(),
		CurrentPlayer: h.game.CurrentPlayer(),
		MyTurn:        h.game.IsMyTurn(),
		GameOver:      h.game.IsGameOver(),
		TurnText:      h.game.TurnStatusText(),
		ResultText:    h.game.ResultText(),
		Board:         boardRows(h.game.Board()),
	}
}

// boardRows splits a row-major snapshot into rows, top row first
func boardRows(cells []connectfour.Cell) [][]connectfour.Cell {
	rows := make([][]connectfour.Cell, 0, connectfour.Rows)
	for r := 0; r+connectfour.Cols <= len(cells); r += connectfour.Cols {
		rows = append(rows, cells[r:r+connectfour.Cols])
	}
	return rows
}

// HandleGetGameState handles GET /api/game/state
func (h *StateHandler) HandleGetGameState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.Snapshot()); err != nil {
		log.Error().Err(err).Msg("failed to encode game state response")
	}
}

// RegisterStateRoutes registers state-related HTTP routes
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/game/state", h.HandleGetGameState)
}
