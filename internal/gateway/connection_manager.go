// Package gateway fans round events out to WebSocket clients and keeps a
// per-tournament state snapshot for late joiners.
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
	"github.com/mcdev12/quizrally/internal/events"
	"github.com/rs/zerolog/log"
)

// ConnectionManager owns the WebSocket connection pools, one per tournament.
type ConnectionManager struct {
	mu          sync.RWMutex
	connections map[uuid.UUID]map[*Connection]bool

	upgrader    websocket.Upgrader
	config      ConnectionConfig
	broadcastCh chan BroadcastMessage
}

// Connection is one client's WebSocket link to a tournament.
type Connection struct {
	ID           string
	Username     string
	TournamentID uuid.UUID
	Conn         *websocket.Conn
	Send         chan []byte
	Manager      *ConnectionManager

	ConnectedAt time.Time
}

// ConnectionConfig holds WebSocket tuning knobs.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage targets every connection in one tournament's pool.
type BroadcastMessage struct {
	TournamentID uuid.UUID
	Event        events.Event
}

// DefaultConnectionConfig returns sensible defaults for quiz clients.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewConnectionManager creates a manager with empty pools.
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[uuid.UUID]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// Start drains the broadcast channel until the context is cancelled.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP request to a WebSocket and registers it
// in the tournament's pool.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, username string, tournamentID uuid.UUID) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:           uuid.New().String(),
		Username:     username,
		TournamentID: tournamentID,
		Conn:         conn,
		Send:         make(chan []byte, 256),
		Manager:      cm,
		ConnectedAt:  time.Now(),
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("username", username).
		Str("tournament_id", tournamentID.String()).
		Msg("WebSocket connection established")

	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.connections[conn.TournamentID] == nil {
		cm.connections[conn.TournamentID] = make(map[*Connection]bool)
	}
	cm.connections[conn.TournamentID][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("tournament_id", conn.TournamentID.String()).
		Int("pool_size", len(cm.connections[conn.TournamentID])).
		Msg("connection registered")
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	pool, exists := cm.connections[conn.TournamentID]
	if !exists {
		return
	}
	if _, exists := pool[conn]; !exists {
		return
	}
	delete(pool, conn)
	close(conn.Send)

	if len(pool) == 0 {
		delete(cm.connections, conn.TournamentID)
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("tournament_id", conn.TournamentID.String()).
		Msg("connection unregistered")
}

// Broadcast queues an event for every connection in the tournament's pool.
// Queuing never blocks; a full channel drops the message.
func (cm *ConnectionManager) Broadcast(tournamentID uuid.UUID, event events.Event) {
	select {
	case cm.broadcastCh <- BroadcastMessage{TournamentID: tournamentID, Event: event}:
	default:
		log.Warn().Str("tournament_id", tournamentID.String()).Msg("broadcast channel full, dropping message")
	}
}

func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	cm.mu.RLock()
	pool, exists := cm.connections[message.TournamentID]
	if !exists {
		cm.mu.RUnlock()
		return
	}
	targets := make([]*Connection, 0, len(pool))
	for conn := range pool {
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	data, err := json.Marshal(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	for _, conn := range targets {
		select {
		case conn.Send <- data:
		default:
			// Slow consumer, drop the connection rather than the round.
			log.Warn().
				Str("connection_id", conn.ID).
				Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(conn)
			conn.Conn.Close()
		}
	}

	log.Debug().
		Str("event_type", string(message.Event.Type)).
		Str("tournament_id", message.TournamentID.String()).
		Int("connections", len(targets)).
		Msg("event broadcasted")
}

// Stats summarizes the active pools.
type Stats struct {
	TotalConnections  int            `json:"total_connections"`
	ActiveTournaments int            `json:"active_tournaments"`
	PoolSizes         map[string]int `json:"pool_sizes"`
}

// ConnectionStats returns a snapshot of the active pools.
func (cm *ConnectionManager) ConnectionStats() Stats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := Stats{PoolSizes: make(map[string]int)}
	for tournamentID, pool := range cm.connections {
		stats.TotalConnections += len(pool)
		stats.PoolSizes[tournamentID.String()] = len(pool)
	}
	stats.ActiveTournaments = len(cm.connections)
	return stats
}

// writePump pushes queued messages and pings to the client.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump consumes client frames, mostly to keep the read deadline fresh.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		log.Debug().
			Str("connection_id", c.ID).
			Str("username", c.Username).
			RawJSON("message", message).
			Msg("received client message")
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
