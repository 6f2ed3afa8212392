package models

import "time"

// Participant is a guest identity scoped to exactly one session.
type Participant struct {
	ID           string     `json:"id"`
	DisplayName  string     `json:"display_name"`
	StudentID    string     `json:"student_id,omitempty"`
	GuestToken   string     `json:"guest_token,omitempty"`
	Score        int        `json:"score"`
	CorrectCount int        `json:"correct_count"`
	TotalTimeMs  int64      `json:"total_time_ms"`
	JoinedAt     *time.Time `json:"joined_at,omitempty"`
}

// LeaderboardEntry is one row of the server-ordered leaderboard. The
// order the server returns is authoritative; clients never re-sort.
type LeaderboardEntry struct {
	ParticipantID string `json:"participant_id"`
	DisplayName   string `json:"display_name"`
	Score         int    `json:"score"`
	CorrectCount  int    `json:"correct_count"`
	Rank          int    `json:"rank"`
}

// AnswerStats is the authoritative per-question answer tally. Local
// increments are provisional display only and are superseded wholesale
// by the next stats push.
type AnswerStats struct {
	QuestionID       string `json:"question_id"`
	AnswerCount      int    `json:"answer_count"`
	ParticipantCount int    `json:"participant_count"`
}
