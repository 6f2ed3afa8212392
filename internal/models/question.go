package models

// QuestionType defines the answer shape a question expects.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeTrueFalse      QuestionType = "true_false"
	QuestionTypeShortAnswer    QuestionType = "short_answer"
	QuestionTypePoll           QuestionType = "poll"
)

// Question is the runtime view of a question as pushed to clients.
// The correct answer is withheld by the server while the question is
// live; the client cannot validate correctness locally.
type Question struct {
	ID               string       `json:"id"`
	OrderIndex       int          `json:"order_index"`
	QuestionText     string       `json:"question_text"`
	QuestionType     QuestionType `json:"question_type"`
	Options          []string     `json:"options,omitempty"`
	Points           int          `json:"points"`
	TimeLimitSeconds int          `json:"time_limit_seconds"`
}
