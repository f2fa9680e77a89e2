package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	broadcastQueueSize = 256
	sendQueueSize      = 64
)

// Mover applies a move requested by a browser client
type Mover interface {
	RequestMove(ctx context.Context, column int) error
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MoveTimeout     time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MoveTimeout:     5 * time.Second,
		MaxMessageSize:  512,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(*http.Request) bool { return true },
	}
}

// ConnectionManager fans game events out to the browsers watching a room
// and feeds their move commands back into the game
type ConnectionManager struct {
	mu    sync.RWMutex
	rooms map[string]map[*Connection]struct{}

	upgrader websocket.Upgrader
	config   ConnectionConfig
	mover    Mover

	outbound chan roomEvent
}

type roomEvent struct {
	roomID string
	event  *GameEvent
}

// Connection is one browser attached to a room
type Connection struct {
	ID          string
	PlayerID    string
	RoomID      string
	ConnectedAt time.Time

	ws      *websocket.Conn
	send    chan []byte
	manager *ConnectionManager
	logger  zerolog.Logger
}

// NewConnectionManager creates a WebSocket connection manager that hands
// client moves to mover
func NewConnectionManager(config ConnectionConfig, mover Mover) *ConnectionManager {
	return &ConnectionManager{
		rooms: make(map[string]map[*Connection]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:   config,
		mover:    mover,
		outbound: make(chan roomEvent, broadcastQueueSize),
	}
}

// Start delivers queued room events until ctx is done
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")
	defer log.Info().Msg("connection manager stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case re := <-cm.outbound:
			cm.deliver(re)
		}
	}
}

// UpgradeConnection upgrades an HTTP request to a WebSocket attached to roomID
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, playerID, roomID string) error {
	ws, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade connection: %w", err)
	}

	id := uuid.New().String()
	conn := &Connection{
		ID:          id,
		PlayerID:    playerID,
		RoomID:      roomID,
		ConnectedAt: time.Now(),
		ws:          ws,
		send:        make(chan []byte, sendQueueSize),
		manager:     cm,
		logger: log.With().
			Str("connection_id", id).
			Str("player_id", playerID).
			Str("room_id", roomID).
			Logger(),
	}

	size := cm.attach(conn)
	conn.logger.Info().Int("room_connections", size).Msg("websocket attached")

	go conn.writeLoop()
	go conn.readLoop()
	return nil
}

func (cm *ConnectionManager) attach(conn *Connection) int {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	room, ok := cm.rooms[conn.RoomID]
	if !ok {
		room = make(map[*Connection]struct{})
		cm.rooms[conn.RoomID] = room
	}
	room[conn] = struct{}{}
	return len(room)
}

// detach removes conn and closes its send queue. Safe to call more than once.
func (cm *ConnectionManager) detach(conn *Connection) {
	cm.mu.Lock()
	room := cm.rooms[conn.RoomID]
	_, ok := room[conn]
	if ok {
		delete(room, conn)
		close(conn.send)
		if len(room) == 0 {
			delete(cm.rooms, conn.RoomID)
		}
	}
	cm.mu.Unlock()

	if ok {
		conn.logger.Info().Msg("websocket detached")
	}
}

// BroadcastToRoom queues an event for every connection in a room. Events
// are dropped when the queue is full.
func (cm *ConnectionManager) BroadcastToRoom(roomID string, event *GameEvent) {
	select {
	case cm.outbound <- roomEvent{roomID: roomID, event: event}:
	default:
		log.Warn().
			Str("room_id", roomID).
			Str("event_type", string(event.Type)).
			Msg("broadcast queue full, dropping event")
	}
}

func (cm *ConnectionManager) deliver(re roomEvent) {
	data, err := json.Marshal(re.event)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(re.event.Type)).Msg("failed to encode event")
		return
	}

	// Enqueue under the read lock so detach cannot close a queue mid-send
	var lagging []*Connection
	cm.mu.RLock()
	for conn := range cm.rooms[re.roomID] {
		if !conn.enqueue(data) {
			lagging = append(lagging, conn)
		}
	}
	cm.mu.RUnlock()

	for _, conn := range lagging {
		conn.logger.Warn().Msg("send queue full, closing websocket")
		cm.detach(conn)
		conn.ws.Close()
	}
}

// sendTo delivers an event to one connection if it is still attached
func (cm *ConnectionManager) sendTo(conn *Connection, event *GameEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		conn.logger.Error().Err(err).Msg("failed to encode event")
		return
	}

	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if _, ok := cm.rooms[conn.RoomID][conn]; !ok {
		return
	}
	if !conn.enqueue(data) {
		conn.logger.Warn().Str("event_type", string(event.Type)).Msg("send queue full, dropping event")
	}
}

// ConnectionStats summarizes attached connections
type ConnectionStats struct {
	TotalConnections int            `json:"total_connections"`
	ActiveRooms      int            `json:"active_rooms"`
	RoomConnections  map[string]int `json:"room_connections"`
}

// GetConnectionStats returns a snapshot of attached connections per room
func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{
		ActiveRooms:     len(cm.rooms),
		RoomConnections: make(map[string]int, len(cm.rooms)),
	}
	for roomID, room := range cm.rooms {
		stats.TotalConnections += len(room)
		stats.RoomConnections[roomID] = len(room)
	}
	return stats
}

// enqueue must be called with the manager's lock held
func (c *Connection) enqueue(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Connection) write(messageType int, data []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(messageType, data)
}

func (c *Connection) writeLoop() {
	ping := time.NewTicker(c.manager.config.PingInterval)
	defer func() {
		ping.Stop()
		c.ws.Close()
		c.manager.detach(c)
	}()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				_ = c.write(websocket.CloseMessage, nil)
				return
			}
			if err := c.write(websocket.TextMessage, data); err != nil {
				c.logger.Debug().Err(err).Msg("websocket write failed")
				return
			}
		case <-ping.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.logger.Debug().Err(err).Msg("websocket ping failed")
				return
			}
		}
	}
}

func (c *Connection) readLoop() {
	defer func() {
		c.manager.detach(c)
		c.ws.Close()
	}()

	timeout := c.manager.config.ReadTimeout
	c.ws.SetReadLimit(c.manager.config.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(timeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(timeout))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn().Err(err).Msg("websocket closed unexpectedly")
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(timeout))

		c.handleClientMessage(data)
	}
}

// handleClientMessage turns a client command into a move request. Rejected
// moves are reported back to the sender only.
func (c *Connection) handleClientMessage(data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.logger.Warn().Err(err).Msg("malformed client message")
		return
	}
	if msg.Type != clientMessageMove {
		c.logger.Debug().Str("type", msg.Type).Msg("ignoring client message")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.manager.config.MoveTimeout)
	defer cancel()

	err := c.manager.mover.RequestMove(ctx, msg.Column)
	if err == nil {
		return
	}
	c.logger.Info().Err(err).Int("column", msg.Column).Msg("move rejected")

	event, err := newGameEvent(c.RoomID, EventTypeMoveRejected, MoveRejectedPayload{
		Column: msg.Column,
		Reason: err.Error(),
	})
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to build rejection event")
		return
	}
	c.manager.sendTo(c, event)
}
