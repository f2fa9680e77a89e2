package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mcdev12/connectfour/go/internal/config"
	"github.com/mcdev12/connectfour/go/internal/game/coordinator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalModeServer(t *testing.T) {
	cfg := config.Default()
	cfg.Room = "kitchen"

	services, err := setupServices(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(services.Close)

	assert.Nil(t, services.Recorder)
	assert.Equal(t, coordinator.StatePlaying, services.Game.GameState())

	server := httptest.NewServer(setupServer(cfg, services).Handler)
	t.Cleanup(server.Close)

	t.Run("health", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "OK", string(body))
	})

	t.Run("state", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/game/state")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var state struct {
			RoomID   string `json:"room_id"`
			State    string `json:"state"`
			TurnText string `json:"turn_text"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
		assert.Equal(t, "kitchen", state.RoomID)
		assert.Equal(t, string(coordinator.StatePlaying), state.State)
		assert.Equal(t, "Player Ones turn", state.TurnText)
	})

	t.Run("cors preflight", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodOptions, server.URL+"/api/game/state", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://example.test")
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	})
}
