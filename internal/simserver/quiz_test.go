package simserver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Mhrnqaruni/ata-live-client/internal/models"
)

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func validQuiz() Quiz {
	return Quiz{
		Title:   "Capitals",
		ClassID: "class-7b",
		Questions: []Question{
			{
				Text:             "Capital of France?",
				Type:             models.QuestionTypeMultipleChoice,
				Options:          []string{"London", "Paris"},
				Points:           100,
				TimeLimitSeconds: 20,
				CorrectIndex:     intPtr(1),
			},
			{
				Text:             "Canberra is the capital of Australia.",
				Type:             models.QuestionTypeTrueFalse,
				Points:           50,
				TimeLimitSeconds: 10,
				CorrectBool:      boolPtr(true),
			},
		},
		Roster: []RosterStudent{
			{StudentID: "stu-001", Name: "Amira", SchoolID: "sch-100"},
		},
		SchoolIDs: []string{"stu-004"},
	}
}

func TestValidateAcceptsWellFormedQuiz(t *testing.T) {
	if err := validQuiz().Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestValidateRejectsBadQuizzes(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Quiz)
	}{
		{"no questions", func(q *Quiz) { q.Questions = nil }},
		{"mc missing answer", func(q *Quiz) { q.Questions[0].CorrectIndex = nil }},
		{"mc answer out of range", func(q *Quiz) { q.Questions[0].CorrectIndex = intPtr(9) }},
		{"mc one option", func(q *Quiz) { q.Questions[0].Options = []string{"Paris"} }},
		{"tf missing answer", func(q *Quiz) { q.Questions[1].CorrectBool = nil }},
		{"unknown type", func(q *Quiz) { q.Questions[0].Type = "essay" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			quiz := validQuiz()
			tc.mutate(&quiz)
			if err := quiz.Validate(); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestLoadQuizFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quiz.yaml")
	script := `
title: "Mini Quiz"
class_id: "class-7b"
questions:
  - text: "2+2?"
    type: multiple_choice
    options: ["3", "4"]
    points: 100
    time_limit_seconds: 15
    correct_index: 1
  - text: "Name the capital of Japan."
    type: short_answer
    points: 150
    time_limit_seconds: 30
    correct_text: "Tokyo"
roster:
  - student_id: "stu-001"
    name: "Amira"
    school_id: "sch-100"
`
	if err := os.WriteFile(path, []byte(script), 0o644); err != nil {
		t.Fatalf("write quiz file: %v", err)
	}

	quiz, err := LoadQuiz(path)
	if err != nil {
		t.Fatalf("load quiz: %v", err)
	}
	if quiz.Title != "Mini Quiz" || len(quiz.Questions) != 2 {
		t.Fatalf("unexpected quiz %+v", quiz)
	}
	if quiz.Questions[0].CorrectIndex == nil || *quiz.Questions[0].CorrectIndex != 1 {
		t.Fatalf("answer key not loaded: %+v", quiz.Questions[0])
	}
	if len(quiz.Roster) != 1 || quiz.Roster[0].StudentID != "stu-001" {
		t.Fatalf("roster not loaded: %+v", quiz.Roster)
	}
}

func TestLoadQuizRejectsInvalidScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quiz.yaml")
	if err := os.WriteFile(path, []byte("title: Empty\nquestions: []\n"), 0o644); err != nil {
		t.Fatalf("write quiz file: %v", err)
	}
	if _, err := LoadQuiz(path); err == nil {
		t.Fatal("empty quiz must fail validation")
	}
}

func TestGradeByQuestionType(t *testing.T) {
	quiz := validQuiz()
	mc, tf := quiz.Questions[0], quiz.Questions[1]

	if !mc.grade([]interface{}{1}) {
		t.Fatal("correct index should grade true")
	}
	// JSON numbers decode as float64.
	if !mc.grade([]interface{}{float64(1)}) {
		t.Fatal("float64-encoded index should grade true")
	}
	if mc.grade([]interface{}{0}) {
		t.Fatal("wrong index should grade false")
	}
	if mc.grade([]interface{}{1, 1}) {
		t.Fatal("multi-element answers should grade false")
	}

	if !tf.grade([]interface{}{true}) || tf.grade([]interface{}{false}) {
		t.Fatal("true/false grading is wrong")
	}

	sa := Question{Type: models.QuestionTypeShortAnswer, CorrectText: "Tokyo"}
	if !sa.grade([]interface{}{"  tokyo "}) {
		t.Fatal("short answers should compare case-insensitively and trimmed")
	}
	if sa.grade([]interface{}{"Kyoto"}) {
		t.Fatal("wrong short answer should grade false")
	}

	poll := Question{Type: models.QuestionTypePoll, Options: []string{"a", "b"}}
	if !poll.grade([]interface{}{0}) {
		t.Fatal("polls have no wrong answers")
	}
}
