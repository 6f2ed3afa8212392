package live

import (
	"encoding/json"

	"github.com/Mhrnqaruni/ata-live-client/internal/models"
)

// Event is the envelope for every inbound frame on the realtime
// channel: a discriminated union keyed by Type, with the remaining
// fields kept raw until the type is known.
type Event struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"-"`
}

// EventType tags an inbound realtime frame.
type EventType string

const (
	EventQuestionStarted     EventType = "question_started"
	EventQuestionEnded       EventType = "question_ended"
	EventCooldownStarted     EventType = "cooldown_started"
	EventLeaderboardUpdate   EventType = "leaderboard_update"
	EventParticipantAnswered EventType = "participant_answered"
	EventStatsUpdate         EventType = "stats_update"
	EventParticipantJoined   EventType = "participant_joined"
	EventParticipantLeft     EventType = "participant_left"
	EventRosterUpdated       EventType = "roster_updated"
	EventOutsiderDetected    EventType = "outsider_detected"
	EventAutoAdvanceUpdated  EventType = "auto_advance_updated"
	EventSessionEnded        EventType = "session_ended"
	EventPing                EventType = "ping"
)

// QuestionStartedPayload announces a new live question.
type QuestionStartedPayload struct {
	Question       models.Question `json:"question"`
	QuestionIndex  int             `json:"question_index"`
	TotalQuestions int             `json:"total_questions"`
}

// QuestionEndedPayload closes the current question and opens a cooldown.
type QuestionEndedPayload struct {
	QuestionID      string `json:"question_id"`
	CooldownSeconds int    `json:"cooldown_seconds"`
}

// CooldownStartedPayload carries the authoritative cooldown duration.
type CooldownStartedPayload struct {
	CooldownSeconds int `json:"cooldown_seconds"`
}

// LeaderboardUpdatePayload replaces the leaderboard wholesale.
type LeaderboardUpdatePayload struct {
	Leaderboard []models.LeaderboardEntry `json:"leaderboard"`
}

// ParticipantAnsweredPayload reports one more received answer.
type ParticipantAnsweredPayload struct {
	QuestionID  string `json:"question_id"`
	AnswerCount int    `json:"answer_count"`
}

// StatsUpdatePayload replaces the per-question answer tally.
type StatsUpdatePayload struct {
	QuestionID       string `json:"question_id"`
	AnswerCount      int    `json:"answer_count"`
	ParticipantCount int    `json:"participant_count"`
}

// ParticipantPresencePayload accompanies join/leave pushes. Counts are
// not incrementally trustworthy across reconnects, so these events only
// trigger a full session re-fetch.
type ParticipantPresencePayload struct {
	ParticipantID    string `json:"participant_id"`
	DisplayName      string `json:"display_name"`
	ParticipantCount int    `json:"participant_count"`
}

// OutsiderDetectedPayload flags a participant off the expected roster.
type OutsiderDetectedPayload struct {
	ParticipantID string                `json:"participant_id"`
	Reason        models.OutsiderReason `json:"reason"`
}

// AutoAdvanceUpdatedPayload replaces the auto-advance settings.
type AutoAdvanceUpdatedPayload struct {
	Enabled         bool `json:"enabled"`
	CooldownSeconds int  `json:"cooldown_seconds"`
}

// SessionEndedPayload carries the final session status.
type SessionEndedPayload struct {
	FinalStatus models.SessionStatus `json:"final_status"`
}

// ParseEvent decodes a raw frame into an Event, preserving the full
// frame so the payload can be decoded once the type is known.
func ParseEvent(frame []byte) (Event, error) {
	var head struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(frame, &head); err != nil {
		return Event{}, err
	}
	return Event{Type: head.Type, Data: frame}, nil
}

// ParseEventPayload decodes the type-specific payload of an event.
// Unknown types return (nil, nil); the router drops them.
func ParseEventPayload(event Event) (interface{}, error) {
	switch event.Type {
	case EventQuestionStarted:
		var payload QuestionStartedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventQuestionEnded:
		var payload QuestionEndedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventCooldownStarted:
		var payload CooldownStartedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventLeaderboardUpdate:
		var payload LeaderboardUpdatePayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventParticipantAnswered:
		var payload ParticipantAnsweredPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventStatsUpdate:
		var payload StatsUpdatePayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventParticipantJoined, EventParticipantLeft:
		var payload ParticipantPresencePayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventOutsiderDetected:
		var payload OutsiderDetectedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventAutoAdvanceUpdated:
		var payload AutoAdvanceUpdatedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventSessionEnded:
		var payload SessionEndedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventRosterUpdated, EventPing:
		return nil, nil

	default:
		return nil, nil
	}
}
