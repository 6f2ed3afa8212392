package live

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Mhrnqaruni/ata-live-client/internal/models"
)

type stubSessionFetcher struct {
	session models.Session
	fetched chan struct{}
}

func (s *stubSessionFetcher) GetSession(ctx context.Context, sessionID string) (models.Session, error) {
	select {
	case s.fetched <- struct{}{}:
	default:
	}
	return s.session, nil
}

func newTestClient(t *testing.T, server *channelServer) (*Client, *stubSessionFetcher) {
	t.Helper()
	fetcher := &stubSessionFetcher{
		session: activeSession(),
		fetched: make(chan struct{}, 4),
	}
	client := NewClient(ClientOptions{
		SessionID:  "sess-1",
		Role:       RoleParticipant,
		Credential: Credential{Role: RoleParticipant, Token: "tok-g"},
		ConnConfig: testConnConfig(server.URL),
		API:        fetcher,
		Log:        zerolog.Nop(),
	})
	client.Seed(activeSession())
	return client, fetcher
}

func TestClientRunEndsOnTerminalPush(t *testing.T) {
	server := newChannelServer(t)
	client, _ := newTestClient(t, server)

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	done := make(chan error, 1)
	go func() { done <- client.Run(context.Background()) }()

	_, serverSide := server.waitDial(t)
	frame := `{"type":"session_ended","final_status":"completed"}`
	if err := serverSide.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("server write: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run should end cleanly on a terminal push, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not end after session_ended")
	}
	if got := client.Snapshot().Session.Status; got != models.SessionStatusCompleted {
		t.Fatalf("expected completed, got %s", got)
	}
}

func TestClientRepliesToPing(t *testing.T) {
	server := newChannelServer(t)
	client, _ := newTestClient(t, server)

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	_, serverSide := server.waitDial(t)
	if err := serverSide.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("server write: %v", err)
	}

	serverSide.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, reply, err := serverSide.ReadMessage()
	if err != nil {
		t.Fatalf("expected a pong frame, got read error %v", err)
	}
	var cmd struct {
		Type CommandType `json:"type"`
	}
	if err := json.Unmarshal(reply, &cmd); err != nil || cmd.Type != CommandPong {
		t.Fatalf("expected pong command, got %s", reply)
	}
}

func TestClientRefetchesSessionOnPresencePush(t *testing.T) {
	server := newChannelServer(t)
	client, fetcher := newTestClient(t, server)

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	_, serverSide := server.waitDial(t)
	frame := `{"type":"participant_joined","participant_id":"p2","display_name":"Ben"}`
	if err := serverSide.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("server write: %v", err)
	}

	select {
	case <-fetcher.fetched:
	case <-time.After(2 * time.Second):
		t.Fatal("presence push should trigger a session re-fetch")
	}
}

func TestClientSubmitAnswerGuards(t *testing.T) {
	server := newChannelServer(t)
	client, _ := newTestClient(t, server)

	if err := client.SubmitAnswer(AnswerInput{SelectedIndex: 1}); !errors.Is(err, ErrNoActiveQuestion) {
		t.Fatalf("expected ErrNoActiveQuestion, got %v", err)
	}

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	_, serverSide := server.waitDial(t)
	frame := `{
		"type": "question_started",
		"question": {
			"id": "q1",
			"question_type": "multiple_choice",
			"options": ["3", "4"],
			"time_limit_seconds": 30
		},
		"question_index": 0,
		"total_questions": 1
	}`
	if err := serverSide.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("server write: %v", err)
	}

	waitForQuestion(t, client, "q1")

	if err := client.SubmitAnswer(AnswerInput{SelectedIndex: 1}); err != nil {
		t.Fatalf("first answer should send, got %v", err)
	}
	if err := client.SubmitAnswer(AnswerInput{SelectedIndex: 0}); !errors.Is(err, ErrAlreadyAnswered) {
		t.Fatalf("expected ErrAlreadyAnswered, got %v", err)
	}
}

func waitForQuestion(t *testing.T, client *Client, questionID string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := client.Snapshot()
		if snap.CurrentQuestion != nil && snap.CurrentQuestion.ID == questionID {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("question %s never became live", questionID)
}
