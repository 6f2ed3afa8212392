// Package api is the REST collaborator consumed by the realtime client:
// session lifecycle commands, guest join, and the roster/leaderboard
// fetches. The authoritative state machine lives server-side; every
// mutation here is confirmed back over the realtime channel.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Mhrnqaruni/ata-live-client/internal/models"
)

// CommandError is a rejected REST command, carrying the server's
// user-displayable message. Lifecycle commands are not idempotent-safe
// (a blind retry of "next question" would skip one), so callers surface
// the message and let the user re-trigger; nothing here auto-retries.
type CommandError struct {
	Status  int
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command rejected (%d): %s", e.Status, e.Message)
}

// Client talks to the quiz backend's REST surface.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// NewClient builds a REST client. token is the host bearer token; pass
// "" for guest flows, which authenticate per-call with guest tokens.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		token:   token,
	}
}

// BaseURL returns the REST base, which the realtime channel mirrors.
func (c *Client) BaseURL() string { return c.baseURL }

// CreateSessionRequest configures a new live session for a quiz.
type CreateSessionRequest struct {
	QuizID          string `json:"quiz_id"`
	ClassID         string `json:"class_id,omitempty"`
	AutoAdvance     bool   `json:"auto_advance"`
	CooldownSeconds int    `json:"cooldown_seconds,omitempty"`
}

// CreateSession creates a session and returns its waiting snapshot.
func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (models.Session, error) {
	var session models.Session
	err := c.do(ctx, http.MethodPost, "/sessions", req, &session)
	return session, err
}

// GetSession re-fetches the session snapshot. Pushed counts are not
// incrementally trustworthy across reconnects; this is the idempotent
// recovery path.
func (c *Client) GetSession(ctx context.Context, sessionID string) (models.Session, error) {
	var session models.Session
	err := c.do(ctx, http.MethodGet, "/sessions/"+sessionID, nil, &session)
	return session, err
}

// StartSession begins the quiz (host only).
func (c *Client) StartSession(ctx context.Context, sessionID string) (models.Session, error) {
	var session models.Session
	err := c.do(ctx, http.MethodPost, "/sessions/"+sessionID+"/start", nil, &session)
	return session, err
}

// NextQuestion advances to the next question (host only).
func (c *Client) NextQuestion(ctx context.Context, sessionID string) (models.Session, error) {
	var session models.Session
	err := c.do(ctx, http.MethodPost, "/sessions/"+sessionID+"/next", nil, &session)
	return session, err
}

// EndSession completes the quiz (host only).
func (c *Client) EndSession(ctx context.Context, sessionID string) (models.Session, error) {
	var session models.Session
	err := c.do(ctx, http.MethodPost, "/sessions/"+sessionID+"/end", nil, &session)
	return session, err
}

// CancelSession aborts the quiz (host only).
func (c *Client) CancelSession(ctx context.Context, sessionID string) (models.Session, error) {
	var session models.Session
	err := c.do(ctx, http.MethodPost, "/sessions/"+sessionID+"/cancel", nil, &session)
	return session, err
}

// JoinRequest enrolls a guest participant by room code.
type JoinRequest struct {
	RoomCode    string `json:"room_code"`
	DisplayName string `json:"display_name"`
	StudentID   string `json:"student_id,omitempty"`
}

// JoinResult is the guest identity for one session: the participant id
// and an opaque session-scoped guest token for the realtime channel.
type JoinResult struct {
	Session       models.Session `json:"session"`
	ParticipantID string         `json:"participant_id"`
	GuestToken    string         `json:"guest_token"`
}

// Join enrolls a participant and returns the per-session guest token.
func (c *Client) Join(ctx context.Context, req JoinRequest) (JoinResult, error) {
	var result JoinResult
	err := c.do(ctx, http.MethodPost, "/sessions/join", req, &result)
	return result, err
}

// GetLeaderboard fetches the server-ordered leaderboard.
func (c *Client) GetLeaderboard(ctx context.Context, sessionID string) ([]models.LeaderboardEntry, error) {
	var payload struct {
		Leaderboard []models.LeaderboardEntry `json:"leaderboard"`
	}
	if err := c.do(ctx, http.MethodGet, "/sessions/"+sessionID+"/leaderboard", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Leaderboard, nil
}

// GetRoster fetches the expected roster for a class-linked session.
func (c *Client) GetRoster(ctx context.Context, sessionID string) ([]models.RosterEntry, error) {
	var payload struct {
		Roster []models.RosterEntry `json:"roster"`
	}
	if err := c.do(ctx, http.MethodGet, "/sessions/"+sessionID+"/roster", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Roster, nil
}

// GetOutsiders fetches the server-detected outsider records.
func (c *Client) GetOutsiders(ctx context.Context, sessionID string) ([]models.OutsiderRecord, error) {
	var payload struct {
		Outsiders []models.OutsiderRecord `json:"outsiders"`
	}
	if err := c.do(ctx, http.MethodGet, "/sessions/"+sessionID+"/outsiders", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Outsiders, nil
}

// SetAutoAdvance toggles auto-advance and its cooldown (host only).
func (c *Client) SetAutoAdvance(ctx context.Context, sessionID string, enabled bool, cooldownSeconds int) error {
	body := struct {
		Enabled         bool `json:"enabled"`
		CooldownSeconds int  `json:"cooldown_seconds"`
	}{enabled, cooldownSeconds}
	return c.do(ctx, http.MethodPut, "/sessions/"+sessionID+"/auto-advance", body, nil)
}

// ExportResults downloads the session results as CSV.
func (c *Client) ExportResults(ctx context.Context, sessionID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sessions/"+sessionID+"/export", nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("export results: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeError(resp)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func decodeError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Error == "" {
		payload.Error = http.StatusText(resp.StatusCode)
	}
	return &CommandError{Status: resp.StatusCode, Message: payload.Error}
}
