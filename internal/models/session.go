package models

import "time"

// SessionStatus defines the lifecycle status of a live session.
// Transitions are monotonic: waiting -> active -> completed, with
// cancelled reachable from waiting or active only.
type SessionStatus string

const (
	SessionStatusWaiting   SessionStatus = "waiting"
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// Terminal reports whether the status ends the session.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusCancelled
}

// rank orders statuses along the monotonic lifecycle so that a stale
// push can never move a session backwards.
func (s SessionStatus) rank() int {
	switch s {
	case SessionStatusWaiting:
		return 0
	case SessionStatusActive:
		return 1
	case SessionStatusCompleted, SessionStatusCancelled:
		return 2
	default:
		return -1
	}
}

// Supersedes reports whether moving from prev to s is a forward transition.
func (s SessionStatus) Supersedes(prev SessionStatus) bool {
	return s.rank() > prev.rank()
}

// Session is the client's read-mostly copy of a live quiz occurrence.
// It is owned by the server and replaced wholesale on every relevant
// push or explicit re-fetch.
type Session struct {
	ID               string        `json:"id"`
	QuizID           string        `json:"quiz_id"`
	ClassID          string        `json:"class_id,omitempty"`
	RoomCode         string        `json:"room_code"`
	Status           SessionStatus `json:"status"`
	CurrentQuestion  *int          `json:"current_question,omitempty"`
	ParticipantCount int           `json:"participant_count"`
	AutoAdvance      bool          `json:"auto_advance"`
	CooldownSeconds  int           `json:"cooldown_seconds"`
	CreatedAt        time.Time     `json:"created_at"`
	StartedAt        *time.Time    `json:"started_at,omitempty"`
	EndedAt          *time.Time    `json:"ended_at,omitempty"`
}
