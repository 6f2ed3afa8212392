package live

import (
	"fmt"
	"strings"

	"github.com/Mhrnqaruni/ata-live-client/internal/models"
)

// Command is the envelope for every outbound frame on the realtime
// channel.
type Command struct {
	Type    CommandType `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// CommandType tags an outbound realtime frame. Session lifecycle
// commands (start/next/end/cancel/auto-advance) go over REST, not the
// channel, and are confirmed back via pushes.
type CommandType string

const (
	CommandJoin   CommandType = "join"
	CommandAnswer CommandType = "answer"
	CommandPong   CommandType = "pong"
)

// JoinPayload enrolls a participant into a session by room code.
type JoinPayload struct {
	RoomCode    string `json:"room_code"`
	DisplayName string `json:"display_name"`
	StudentID   string `json:"student_id,omitempty"`
}

// AnswerPayload submits one answer. The answer is always a one-element
// ordered list holding the shape-normalized value for the question
// type, matching the server's expected envelope.
type AnswerPayload struct {
	QuestionID  string        `json:"question_id"`
	Answer      []interface{} `json:"answer"`
	TimeTakenMs int64         `json:"time_taken_ms"`
}

// AnswerInput is the raw selection a UI hands in before normalization.
type AnswerInput struct {
	SelectedIndex int
	BoolValue     bool
	Text          string
}

// NormalizeAnswer converts a raw selection into the wire shape for the
// question type: a selected option index for multiple choice and polls,
// a boolean for true/false, a trimmed string for short answers.
func NormalizeAnswer(questionType models.QuestionType, input AnswerInput) ([]interface{}, error) {
	switch questionType {
	case models.QuestionTypeMultipleChoice, models.QuestionTypePoll:
		if input.SelectedIndex < 0 {
			return nil, fmt.Errorf("invalid option index %d", input.SelectedIndex)
		}
		return []interface{}{input.SelectedIndex}, nil

	case models.QuestionTypeTrueFalse:
		return []interface{}{input.BoolValue}, nil

	case models.QuestionTypeShortAnswer:
		text := strings.TrimSpace(input.Text)
		if text == "" {
			return nil, fmt.Errorf("short answer is empty")
		}
		return []interface{}{text}, nil

	default:
		return nil, fmt.Errorf("unknown question type %q", questionType)
	}
}

// NewJoinCommand builds the join frame.
func NewJoinCommand(roomCode, displayName, studentID string) Command {
	return Command{
		Type: CommandJoin,
		Payload: JoinPayload{
			RoomCode:    roomCode,
			DisplayName: displayName,
			StudentID:   studentID,
		},
	}
}

// NewAnswerCommand builds the answer frame for a normalized answer.
func NewAnswerCommand(questionID string, answer []interface{}, timeTakenMs int64) Command {
	return Command{
		Type: CommandAnswer,
		Payload: AnswerPayload{
			QuestionID:  questionID,
			Answer:      answer,
			TimeTakenMs: timeTakenMs,
		},
	}
}

// NewPongCommand builds the keepalive reply to a server ping.
func NewPongCommand() Command {
	return Command{Type: CommandPong}
}
