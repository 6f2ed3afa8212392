package simserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// HubConfig holds websocket tunables for the simulator.
type HubConfig struct {
	WriteWait       time.Duration
	ReadWait        time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
}

// DefaultHubConfig mirrors the production channel settings.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		WriteWait:       10 * time.Second,
		ReadWait:        60 * time.Second,
		PingInterval:    25 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

// Hub owns the websocket connections of all simulated sessions,
// organized per session id. Slow connections are dropped rather than
// allowed to stall a broadcast.
type Hub struct {
	config   HubConfig
	upgrader websocket.Upgrader
	log      zerolog.Logger

	// onCommand receives join/answer/pong frames from participants.
	onCommand func(sessionID, participantID string, frame []byte)

	mu          sync.RWMutex
	connections map[string]map[*connection]bool
}

type connection struct {
	id            string
	sessionID     string
	participantID string // empty for the host connection
	ws            *websocket.Conn
	send          chan []byte
	hub           *Hub
}

// NewHub builds a connection hub.
func NewHub(config HubConfig, log zerolog.Logger, onCommand func(sessionID, participantID string, frame []byte)) *Hub {
	return &Hub{
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log:         log,
		onCommand:   onCommand,
		connections: make(map[string]map[*connection]bool),
	}
}

// Upgrade promotes an HTTP request to a session websocket and starts
// its pumps.
func (h *Hub) Upgrade(w http.ResponseWriter, r *http.Request, sessionID, participantID string) error {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	conn := &connection{
		id:            uuid.NewString(),
		sessionID:     sessionID,
		participantID: participantID,
		ws:            ws,
		send:          make(chan []byte, 64),
		hub:           h,
	}

	h.mu.Lock()
	if h.connections[sessionID] == nil {
		h.connections[sessionID] = make(map[*connection]bool)
	}
	h.connections[sessionID][conn] = true
	h.mu.Unlock()

	go conn.writePump()
	go conn.readPump()

	h.log.Debug().
		Str("session_id", sessionID).
		Str("participant_id", participantID).
		Msg("sim connection established")
	return nil
}

func (h *Hub) remove(conn *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.connections[conn.sessionID]; ok {
		if _, ok := conns[conn]; ok {
			delete(conns, conn)
			close(conn.send)
			if len(conns) == 0 {
				delete(h.connections, conn.sessionID)
			}
		}
	}
}

// Broadcast marshals the payload once and fans it out to every
// connection of the session.
func (h *Hub) Broadcast(sessionID string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error().Err(err).Msg("sim broadcast marshal failed")
		return
	}

	h.mu.RLock()
	targets := make([]*connection, 0, len(h.connections[sessionID]))
	for conn := range h.connections[sessionID] {
		targets = append(targets, conn)
	}
	h.mu.RUnlock()

	for _, conn := range targets {
		select {
		case conn.send <- data:
		default:
			h.log.Warn().Str("connection_id", conn.id).Msg("sim connection slow, dropping")
			h.remove(conn)
			conn.ws.Close()
		}
	}
}

// CloseSession drops every connection of a finished session.
func (h *Hub) CloseSession(sessionID string) {
	h.mu.Lock()
	conns := h.connections[sessionID]
	delete(h.connections, sessionID)
	h.mu.Unlock()

	deadline := time.Now().Add(h.config.WriteWait)
	for conn := range conns {
		conn.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"), deadline)
		close(conn.send)
		conn.ws.Close()
	}
}

func (c *connection) writePump() {
	ticker := time.NewTicker(c.hub.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	ping, _ := json.Marshal(map[string]string{"type": "ping"})
	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.hub.config.WriteWait))
			if !ok {
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			// App-level keepalive probe; clients must echo a pong.
			c.ws.SetWriteDeadline(time.Now().Add(c.hub.config.WriteWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, ping); err != nil {
				return
			}
		}
	}
}

func (c *connection) readPump() {
	defer func() {
		c.hub.remove(c)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(c.hub.config.MaxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(c.hub.config.ReadWait))

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug().Err(err).Str("connection_id", c.id).Msg("sim connection read error")
			}
			return
		}
		c.ws.SetReadDeadline(time.Now().Add(c.hub.config.ReadWait))
		c.hub.onCommand(c.sessionID, c.participantID, message)
	}
}
