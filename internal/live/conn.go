package live

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// ErrMissingCredential is returned when a channel open is attempted
// without a token. This fails fast locally; no connection is attempted.
var ErrMissingCredential = errors.New("live: missing credential")

// ErrNotConnected is returned when sending without an open channel.
var ErrNotConnected = errors.New("live: not connected")

// Credential authenticates the realtime channel at connect time. It is
// passed as a query parameter on the dial URL, never as a message, and
// the same credential is re-sent on every reconnect attempt.
type Credential struct {
	Role  Role
	Token string
}

func (c Credential) queryParam() string {
	if c.Role == RoleHost {
		return "token"
	}
	return "guest_token"
}

// ConnConfig holds tunables for the realtime channel.
type ConnConfig struct {
	// BaseURL is the REST API base; the websocket scheme mirrors its
	// transport security (https becomes wss).
	BaseURL string

	ReconnectDelay   time.Duration
	HandshakeTimeout time.Duration
	WriteWait        time.Duration
	// ReadWait must sit beyond the server ping interval so a stale link
	// is detected as a read timeout and takes the reconnect path.
	ReadWait time.Duration
}

// DefaultConnConfig returns the production channel settings.
func DefaultConnConfig(baseURL string) ConnConfig {
	return ConnConfig{
		BaseURL:          baseURL,
		ReconnectDelay:   3 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		WriteWait:        10 * time.Second,
		ReadWait:         60 * time.Second,
	}
}

// wsURL derives the channel URL for a session from the REST base.
func (c ConnConfig) wsURL(sessionID string, cred Credential) (string, error) {
	parsed, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch parsed.Scheme {
	case "https", "wss":
		parsed.Scheme = "wss"
	default:
		parsed.Scheme = "ws"
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/") + "/ws/sessions/" + sessionID
	query := url.Values{}
	query.Set(cred.queryParam(), cred.Token)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// Conn holds exactly one realtime channel per session. Inbound frames
// are handed to the frame handler; connectivity errors are recovered
// here via the bounded reconnect policy and surfaced only through the
// status callback, never as exceptions to callers.
type Conn struct {
	cfg      ConnConfig
	clock    clockwork.Clock
	log      zerolog.Logger
	onFrame  func([]byte)
	onStatus func(connected bool)
	// terminal gates reconnection: once it reports true, no attempt is
	// ever scheduled again, and a pending attempt is abandoned.
	terminal func() bool

	mu        sync.Mutex
	ws        *websocket.Conn
	sessionID string
	cred      Credential
	connected bool
	closed    bool
	retrying  bool
	gen       int
	done      chan struct{}
}

// NewConn builds an unconnected channel manager. onStatus may be nil.
func NewConn(cfg ConnConfig, clock clockwork.Clock, log zerolog.Logger, terminal func() bool, onFrame func([]byte), onStatus func(bool)) *Conn {
	if terminal == nil {
		terminal = func() bool { return false }
	}
	if onStatus == nil {
		onStatus = func(bool) {}
	}
	return &Conn{
		cfg:      cfg,
		clock:    clock,
		log:      log,
		onFrame:  onFrame,
		onStatus: onStatus,
		terminal: terminal,
		done:     make(chan struct{}),
	}
}

// Connect opens the channel for the given session. Calling it again for
// the same session while the channel is healthy is a no-op; calling it
// for a different session closes the old channel first. A missing
// credential fails fast before any network attempt.
func (c *Conn) Connect(ctx context.Context, sessionID string, cred Credential) error {
	if cred.Token == "" {
		return ErrMissingCredential
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("live: connection manager closed")
	}
	if c.connected && c.sessionID == sessionID {
		c.mu.Unlock()
		return nil
	}
	if c.ws != nil {
		c.closeSocketLocked(websocket.CloseNormalClosure)
	}
	c.sessionID = sessionID
	c.cred = cred
	c.mu.Unlock()

	return c.dial(ctx)
}

// dial opens the socket with the stored session and credential.
func (c *Conn) dial(ctx context.Context) error {
	c.mu.Lock()
	sessionID, cred := c.sessionID, c.cred
	c.mu.Unlock()

	target, err := c.cfg.wsURL(sessionID, cred)
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	ws, _, err := dialer.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("dial realtime channel: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		ws.Close()
		return errors.New("live: connection manager closed")
	}
	c.ws = ws
	c.connected = true
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	c.onStatus(true)
	c.log.Info().Str("session_id", sessionID).Str("role", string(cred.Role)).Msg("realtime channel open")

	go c.readLoop(ws, gen)
	return nil
}

// readLoop pumps inbound frames until the socket dies. The generation
// counter keeps a superseded loop from touching a newer socket.
func (c *Conn) readLoop(ws *websocket.Conn, gen int) {
	ws.SetReadDeadline(time.Now().Add(c.cfg.ReadWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(c.cfg.ReadWait))
		return nil
	})

	for {
		_, frame, err := ws.ReadMessage()
		if err != nil {
			c.handleReadError(gen, err)
			return
		}
		ws.SetReadDeadline(time.Now().Add(c.cfg.ReadWait))
		c.onFrame(frame)
	}
}

func (c *Conn) handleReadError(gen int, err error) {
	c.mu.Lock()
	if gen != c.gen || c.closed {
		c.mu.Unlock()
		return
	}
	c.connected = false
	if c.ws != nil {
		c.ws.Close()
		c.ws = nil
	}
	c.mu.Unlock()

	c.onStatus(false)

	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.log.Info().Msg("realtime channel closed")
		return
	}

	c.log.Warn().Err(err).Msg("realtime channel lost")
	c.scheduleReconnect()
}

// scheduleReconnect arms exactly one reconnect attempt after a fixed
// delay, but only while the session has not reached a terminal status.
// Attempts repeat until the channel opens or the session ends; every
// attempt re-sends the same credential.
func (c *Conn) scheduleReconnect() {
	if c.terminal() {
		c.log.Info().Msg("session terminal; not reconnecting")
		return
	}

	c.mu.Lock()
	if c.closed || c.retrying {
		c.mu.Unlock()
		return
	}
	c.retrying = true
	c.mu.Unlock()

	go func() {
		defer func() {
			c.mu.Lock()
			c.retrying = false
			c.mu.Unlock()
		}()

		for {
			select {
			case <-c.done:
				return
			case <-c.clock.After(c.cfg.ReconnectDelay):
			}

			if c.terminal() {
				c.log.Info().Msg("session terminal; abandoning scheduled reconnect")
				return
			}
			c.mu.Lock()
			if c.closed || c.connected {
				c.mu.Unlock()
				return
			}
			c.mu.Unlock()

			c.log.Info().Str("session_id", c.sessionID).Msg("reconnecting realtime channel")
			if err := c.dial(context.Background()); err == nil {
				return
			} else {
				c.log.Warn().Err(err).Msg("reconnect attempt failed")
			}
		}
	}()
}

// Send writes one command frame. Sends are fire-and-forget; they are
// not awaited for acknowledgment beyond the socket write itself.
func (c *Conn) Send(cmd Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected || c.ws == nil {
		return ErrNotConnected
	}
	c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
	return c.ws.WriteJSON(cmd)
}

// Connected reports whether the channel is currently open.
func (c *Conn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Close tears the channel down for good: the socket is closed with a
// normal close code and any scheduled reconnect is cancelled.
func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	c.closeSocketLocked(websocket.CloseNormalClosure)
	c.mu.Unlock()

	c.onStatus(false)
}

func (c *Conn) closeSocketLocked(code int) {
	if c.ws == nil {
		return
	}
	deadline := time.Now().Add(c.cfg.WriteWait)
	c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""), deadline)
	c.ws.Close()
	c.ws = nil
	c.connected = false
	c.gen++
}
