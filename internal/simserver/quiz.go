package simserver

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Mhrnqaruni/ata-live-client/internal/models"
)

// Quiz is the scripted content a simulated session runs. Loaded from a
// YAML file so client flows can be exercised without the real backend.
type Quiz struct {
	Title     string     `yaml:"title"`
	ClassID   string     `yaml:"class_id"`
	Questions []Question `yaml:"questions"`

	// Roster is the expected student list for outsider detection.
	Roster []RosterStudent `yaml:"roster"`
	// SchoolIDs lists known student ids outside the class, so a join
	// can be flagged not_in_class instead of student_not_found.
	SchoolIDs []string `yaml:"school_ids"`
}

// Question is one scripted question with its withheld answer key.
type Question struct {
	Text             string              `yaml:"text"`
	Type             models.QuestionType `yaml:"type"`
	Options          []string            `yaml:"options"`
	Points           int                 `yaml:"points"`
	TimeLimitSeconds int                 `yaml:"time_limit_seconds"`

	CorrectIndex *int   `yaml:"correct_index"`
	CorrectBool  *bool  `yaml:"correct_bool"`
	CorrectText  string `yaml:"correct_text"`
}

// RosterStudent is one expected student.
type RosterStudent struct {
	StudentID string `yaml:"student_id"`
	Name      string `yaml:"name"`
	SchoolID  string `yaml:"school_id"`
}

// LoadQuiz reads and validates a quiz script.
func LoadQuiz(path string) (Quiz, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Quiz{}, fmt.Errorf("read quiz file: %w", err)
	}
	var quiz Quiz
	if err := yaml.Unmarshal(data, &quiz); err != nil {
		return Quiz{}, fmt.Errorf("parse quiz file: %w", err)
	}
	if err := quiz.Validate(); err != nil {
		return Quiz{}, err
	}
	return quiz, nil
}

// Validate checks every question carries an answer key matching its
// type.
func (q Quiz) Validate() error {
	if len(q.Questions) == 0 {
		return fmt.Errorf("quiz has no questions")
	}
	for i, question := range q.Questions {
		switch question.Type {
		case models.QuestionTypeMultipleChoice:
			if len(question.Options) < 2 {
				return fmt.Errorf("question %d: multiple choice needs at least 2 options", i)
			}
			if question.CorrectIndex == nil || *question.CorrectIndex < 0 || *question.CorrectIndex >= len(question.Options) {
				return fmt.Errorf("question %d: correct_index out of range", i)
			}
		case models.QuestionTypeTrueFalse:
			if question.CorrectBool == nil {
				return fmt.Errorf("question %d: correct_bool is required", i)
			}
		case models.QuestionTypeShortAnswer:
			if strings.TrimSpace(question.CorrectText) == "" {
				return fmt.Errorf("question %d: correct_text is required", i)
			}
		case models.QuestionTypePoll:
			if len(question.Options) < 2 {
				return fmt.Errorf("question %d: poll needs at least 2 options", i)
			}
		default:
			return fmt.Errorf("question %d: unknown type %q", i, question.Type)
		}
	}
	return nil
}

// runtime converts a scripted question to the client-facing view; the
// answer key stays server-side.
func (q Question) runtime(id string, index int) models.Question {
	return models.Question{
		ID:               id,
		OrderIndex:       index,
		QuestionText:     q.Text,
		QuestionType:     q.Type,
		Options:          q.Options,
		Points:           q.Points,
		TimeLimitSeconds: q.TimeLimitSeconds,
	}
}

// grade checks a normalized one-element answer against the key.
func (q Question) grade(answer []interface{}) bool {
	if len(answer) != 1 {
		return false
	}
	switch q.Type {
	case models.QuestionTypeMultipleChoice:
		idx, ok := asInt(answer[0])
		return ok && q.CorrectIndex != nil && idx == *q.CorrectIndex
	case models.QuestionTypeTrueFalse:
		b, ok := answer[0].(bool)
		return ok && q.CorrectBool != nil && b == *q.CorrectBool
	case models.QuestionTypeShortAnswer:
		s, ok := answer[0].(string)
		return ok && strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(q.CorrectText))
	case models.QuestionTypePoll:
		// Polls have no wrong answers.
		_, ok := asInt(answer[0])
		return ok
	}
	return false
}

// asInt tolerates JSON numbers decoding as float64.
func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}
