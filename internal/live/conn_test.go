package live

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// channelServer upgrades inbound requests and reports each connection's
// credential query so tests can observe dials and reconnects.
type channelServer struct {
	*httptest.Server
	upgrader websocket.Upgrader
	dials    chan string
	conns    chan *websocket.Conn
}

func newChannelServer(t *testing.T) *channelServer {
	t.Helper()
	cs := &channelServer{
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		dials:    make(chan string, 16),
		conns:    make(chan *websocket.Conn, 16),
	}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := cs.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		cs.dials <- r.URL.RawQuery
		cs.conns <- ws
	}))
	t.Cleanup(cs.Close)
	return cs
}

func (cs *channelServer) waitDial(t *testing.T) (string, *websocket.Conn) {
	t.Helper()
	select {
	case query := <-cs.dials:
		return query, <-cs.conns
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a dial")
		return "", nil
	}
}

func testConnConfig(baseURL string) ConnConfig {
	cfg := DefaultConnConfig(baseURL)
	cfg.ReconnectDelay = 10 * time.Millisecond
	return cfg
}

func TestConnectFailsFastWithoutCredential(t *testing.T) {
	conn := NewConn(testConnConfig("http://127.0.0.1:1"), clockwork.NewRealClock(), zerolog.Nop(),
		nil, func([]byte) {}, nil)

	err := conn.Connect(context.Background(), "sess-1", Credential{Role: RoleHost})
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
}

func TestConnectUsesRoleSpecificQueryParam(t *testing.T) {
	server := newChannelServer(t)

	host := NewConn(testConnConfig(server.URL), clockwork.NewRealClock(), zerolog.Nop(),
		nil, func([]byte) {}, nil)
	if err := host.Connect(context.Background(), "sess-1", Credential{Role: RoleHost, Token: "tok-h"}); err != nil {
		t.Fatalf("host connect: %v", err)
	}
	defer host.Close()
	query, _ := server.waitDial(t)
	if query != "token=tok-h" {
		t.Fatalf("host credential should ride the token param, got %q", query)
	}

	guest := NewConn(testConnConfig(server.URL), clockwork.NewRealClock(), zerolog.Nop(),
		nil, func([]byte) {}, nil)
	if err := guest.Connect(context.Background(), "sess-1", Credential{Role: RoleParticipant, Token: "tok-g"}); err != nil {
		t.Fatalf("guest connect: %v", err)
	}
	defer guest.Close()
	query, _ = server.waitDial(t)
	if query != "guest_token=tok-g" {
		t.Fatalf("guest credential should ride the guest_token param, got %q", query)
	}
}

func TestConnDeliversInboundFrames(t *testing.T) {
	server := newChannelServer(t)

	frames := make(chan []byte, 1)
	conn := NewConn(testConnConfig(server.URL), clockwork.NewRealClock(), zerolog.Nop(),
		nil, func(frame []byte) { frames <- frame }, nil)
	if err := conn.Connect(context.Background(), "sess-1", Credential{Role: RoleHost, Token: "tok"}); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Close()

	_, serverSide := server.waitDial(t)
	if err := serverSide.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("server write: %v", err)
	}

	select {
	case frame := <-frames:
		if string(frame) != `{"type":"ping"}` {
			t.Fatalf("unexpected frame %s", frame)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a frame")
	}
}

func TestConnReconnectsWithSameCredential(t *testing.T) {
	server := newChannelServer(t)

	conn := NewConn(testConnConfig(server.URL), clockwork.NewRealClock(), zerolog.Nop(),
		nil, func([]byte) {}, nil)
	if err := conn.Connect(context.Background(), "sess-1", Credential{Role: RoleParticipant, Token: "tok-g"}); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Close()

	// Abrupt close, no close frame: the client must treat it as a lost
	// link and redial.
	_, serverSide := server.waitDial(t)
	serverSide.Close()

	query, _ := server.waitDial(t)
	if query != "guest_token=tok-g" {
		t.Fatalf("reconnect must re-send the original credential, got %q", query)
	}
}

func TestConnDoesNotReconnectAfterNormalClose(t *testing.T) {
	server := newChannelServer(t)

	conn := NewConn(testConnConfig(server.URL), clockwork.NewRealClock(), zerolog.Nop(),
		nil, func([]byte) {}, nil)
	if err := conn.Connect(context.Background(), "sess-1", Credential{Role: RoleHost, Token: "tok"}); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Close()

	_, serverSide := server.waitDial(t)
	deadline := time.Now().Add(time.Second)
	serverSide.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"), deadline)
	serverSide.Close()

	select {
	case query := <-server.dials:
		t.Fatalf("normal close must not trigger a reconnect, got dial %q", query)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestConnTerminalStatusStopsReconnects(t *testing.T) {
	server := newChannelServer(t)

	var terminal atomic.Bool
	conn := NewConn(testConnConfig(server.URL), clockwork.NewRealClock(), zerolog.Nop(),
		terminal.Load, func([]byte) {}, nil)
	if err := conn.Connect(context.Background(), "sess-1", Credential{Role: RoleHost, Token: "tok"}); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Close()

	_, serverSide := server.waitDial(t)
	terminal.Store(true)
	serverSide.Close()

	select {
	case query := <-server.dials:
		t.Fatalf("terminal session must not reconnect, got dial %q", query)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestConnSendRequiresOpenChannel(t *testing.T) {
	conn := NewConn(testConnConfig("http://127.0.0.1:1"), clockwork.NewRealClock(), zerolog.Nop(),
		nil, func([]byte) {}, nil)

	if err := conn.Send(NewPongCommand()); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}
