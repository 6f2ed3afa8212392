package simserver

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/Mhrnqaruni/ata-live-client/internal/models"
)

type hostSignal int

const (
	sigNext hostSignal = iota
	sigEnd
	sigCancel
)

type participantState struct {
	models.Participant
	answeredCurrent bool
}

// session is one simulated live session: scripted questions, joined
// participants, scores and the scheduler goroutine that emits the same
// pushes the production backend does.
type session struct {
	quiz      Quiz
	hub       *Hub
	clock     clockwork.Clock
	log       zerolog.Logger
	hostToken string

	mu           sync.Mutex
	model        models.Session
	participants map[string]*participantState
	roster       []models.RosterEntry
	outsiders    []models.OutsiderRecord
	questionIDs  []string
	currentIdx   int
	answerCount  int

	signals     chan hostSignal
	allAnswered chan struct{}
	started     bool
}

func newSession(quiz Quiz, hub *Hub, clock clockwork.Clock, log zerolog.Logger, autoAdvance bool, cooldownSeconds int) *session {
	id := uuid.NewString()
	roster := make([]models.RosterEntry, 0, len(quiz.Roster))
	for _, student := range quiz.Roster {
		roster = append(roster, models.RosterEntry{
			StudentID:   student.StudentID,
			DisplayName: student.Name,
			SchoolID:    student.SchoolID,
		})
	}
	questionIDs := make([]string, len(quiz.Questions))
	for i := range quiz.Questions {
		questionIDs[i] = fmt.Sprintf("%s-q%d", id[:8], i)
	}
	if cooldownSeconds <= 0 {
		cooldownSeconds = 10
	}

	return &session{
		quiz:      quiz,
		hub:       hub,
		clock:     clock,
		log:       log,
		hostToken: uuid.NewString(),
		model: models.Session{
			ID:              id,
			QuizID:          quiz.Title,
			ClassID:         quiz.ClassID,
			RoomCode:        roomCode(id),
			Status:          models.SessionStatusWaiting,
			AutoAdvance:     autoAdvance,
			CooldownSeconds: cooldownSeconds,
			CreatedAt:       clock.Now(),
		},
		participants: make(map[string]*participantState),
		roster:       roster,
		questionIDs:  questionIDs,
		currentIdx:   -1,
		signals:      make(chan hostSignal, 4),
		allAnswered:  make(chan struct{}, 1),
	}
}

// roomCode derives a short human-enterable token from the session id.
func roomCode(id string) string {
	return strings.ToUpper(strings.ReplaceAll(id, "-", ""))[:6]
}

func (s *session) snapshot() models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	model := s.model
	model.ParticipantCount = len(s.participants)
	return model
}

// join enrolls a guest participant and runs outsider detection against
// the configured roster. Detection never blocks the join.
func (s *session) join(displayName, studentID string) (models.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.model.Status.Terminal() {
		return models.Participant{}, fmt.Errorf("session has ended")
	}

	now := s.clock.Now()
	participant := models.Participant{
		ID:          uuid.NewString(),
		DisplayName: displayName,
		StudentID:   studentID,
		GuestToken:  uuid.NewString(),
		JoinedAt:    &now,
	}
	s.participants[participant.ID] = &participantState{Participant: participant}

	s.detectOutsiderLocked(participant, now)
	s.markRosterJoinedLocked(studentID, now)

	count := len(s.participants)
	go s.hub.Broadcast(s.model.ID, map[string]interface{}{
		"type":              "participant_joined",
		"participant_id":    participant.ID,
		"display_name":      participant.DisplayName,
		"participant_count": count,
	})

	return participant, nil
}

func (s *session) detectOutsiderLocked(p models.Participant, now time.Time) {
	if s.model.ClassID == "" {
		if p.StudentID != "" {
			s.recordOutsiderLocked(p, models.OutsiderReasonNoClassSet, now)
		}
		return
	}
	if p.StudentID == "" {
		return
	}
	for _, entry := range s.roster {
		if entry.StudentID == p.StudentID {
			return
		}
	}
	reason := models.OutsiderReasonStudentNotFound
	for _, schoolID := range s.quiz.SchoolIDs {
		if schoolID == p.StudentID {
			reason = models.OutsiderReasonNotInClass
			break
		}
	}
	s.recordOutsiderLocked(p, reason, now)
}

func (s *session) recordOutsiderLocked(p models.Participant, reason models.OutsiderReason, now time.Time) {
	s.outsiders = append(s.outsiders, models.OutsiderRecord{
		ParticipantID: p.ID,
		DisplayName:   p.DisplayName,
		StudentID:     p.StudentID,
		Reason:        reason,
		DetectedAt:    now,
	})
	go s.hub.Broadcast(s.model.ID, map[string]interface{}{
		"type":           "outsider_detected",
		"participant_id": p.ID,
		"reason":         reason,
	})
}

func (s *session) markRosterJoinedLocked(studentID string, now time.Time) {
	if studentID == "" {
		return
	}
	for i := range s.roster {
		if s.roster[i].StudentID == studentID {
			s.roster[i].Joined = true
			joined := now
			s.roster[i].JoinedAt = &joined
		}
	}
}

// start kicks off the scheduler. Idempotent: a second start is an
// error, matching the monotonic status contract.
func (s *session) start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("session already started")
	}
	if s.model.Status != models.SessionStatusWaiting {
		return fmt.Errorf("session is %s", s.model.Status)
	}
	s.started = true
	s.model.Status = models.SessionStatusActive
	now := s.clock.Now()
	s.model.StartedAt = &now

	go s.run()
	return nil
}

func (s *session) signal(sig hostSignal) error {
	s.mu.Lock()
	terminal := s.model.Status.Terminal()
	started := s.started
	s.mu.Unlock()

	if terminal {
		return fmt.Errorf("session has ended")
	}
	if !started && sig != sigCancel {
		return fmt.Errorf("session not started")
	}
	if !started && sig == sigCancel {
		s.finish(models.SessionStatusCancelled)
		return nil
	}

	select {
	case s.signals <- sig:
		return nil
	default:
		return fmt.Errorf("command already pending")
	}
}

func (s *session) setAutoAdvance(enabled bool, cooldownSeconds int) {
	s.mu.Lock()
	s.model.AutoAdvance = enabled
	if cooldownSeconds > 0 {
		s.model.CooldownSeconds = cooldownSeconds
	}
	cooldown := s.model.CooldownSeconds
	id := s.model.ID
	s.mu.Unlock()

	s.hub.Broadcast(id, map[string]interface{}{
		"type":             "auto_advance_updated",
		"enabled":          enabled,
		"cooldown_seconds": cooldown,
	})
}

// run is the question scheduler: announce, collect, close, cool down,
// advance. Host signals and the all-answered short-circuit interleave
// with the clock waits.
func (s *session) run() {
	for idx := 0; idx < len(s.quiz.Questions); idx++ {
		s.startQuestion(idx)

		outcome := s.waitQuestion(idx)
		if outcome == sigEnd {
			s.finish(models.SessionStatusCompleted)
			return
		}
		if outcome == sigCancel {
			s.finish(models.SessionStatusCancelled)
			return
		}

		s.endQuestion(idx)

		if idx == len(s.quiz.Questions)-1 {
			break
		}

		outcome = s.waitCooldown()
		if outcome == sigEnd {
			s.finish(models.SessionStatusCompleted)
			return
		}
		if outcome == sigCancel {
			s.finish(models.SessionStatusCancelled)
			return
		}
	}
	s.finish(models.SessionStatusCompleted)
}

func (s *session) startQuestion(idx int) {
	s.mu.Lock()
	s.currentIdx = idx
	s.answerCount = 0
	for _, p := range s.participants {
		p.answeredCurrent = false
	}
	cur := idx
	s.model.CurrentQuestion = &cur
	question := s.quiz.Questions[idx].runtime(s.questionIDs[idx], idx)
	total := len(s.quiz.Questions)
	id := s.model.ID
	s.mu.Unlock()

	// Drain a stale all-answered signal from the previous question.
	select {
	case <-s.allAnswered:
	default:
	}

	s.log.Info().Str("session_id", id).Int("question", idx).Msg("question started")
	s.hub.Broadcast(id, map[string]interface{}{
		"type":            "question_started",
		"question":        question,
		"question_index":  idx,
		"total_questions": total,
	})
}

// waitQuestion blocks until the question closes: time limit elapsed,
// everyone answered, or a host signal. Returns the signal that should
// shortcut the session, or sigNext for a normal close.
func (s *session) waitQuestion(idx int) hostSignal {
	limit := s.quiz.Questions[idx].TimeLimitSeconds
	var timeout <-chan time.Time
	if limit > 0 {
		timeout = s.clock.After(time.Duration(limit) * time.Second)
	} else {
		fired := make(chan time.Time, 1)
		fired <- s.clock.Now()
		timeout = fired
	}

	select {
	case <-timeout:
		return sigNext
	case <-s.allAnswered:
		return sigNext
	case sig := <-s.signals:
		return sig
	}
}

func (s *session) endQuestion(idx int) {
	s.mu.Lock()
	cooldown := s.model.CooldownSeconds
	id := s.model.ID
	board := s.leaderboardLocked()
	s.mu.Unlock()

	s.hub.Broadcast(id, map[string]interface{}{
		"type":             "question_ended",
		"question_id":      s.questionIDs[idx],
		"cooldown_seconds": cooldown,
	})
	s.hub.Broadcast(id, map[string]interface{}{
		"type":             "cooldown_started",
		"cooldown_seconds": cooldown,
	})
	s.hub.Broadcast(id, map[string]interface{}{
		"type":        "leaderboard_update",
		"leaderboard": board,
	})
}

// waitCooldown waits out the cooldown when auto-advance is on, or
// blocks for an explicit host signal when it is off.
func (s *session) waitCooldown() hostSignal {
	s.mu.Lock()
	auto := s.model.AutoAdvance
	cooldown := s.model.CooldownSeconds
	s.mu.Unlock()

	if auto {
		select {
		case <-s.clock.After(time.Duration(cooldown) * time.Second):
			return sigNext
		case sig := <-s.signals:
			return sig
		}
	}
	return <-s.signals
}

// submitAnswer grades an answer from the channel. Duplicate and late
// submissions are dropped; the server is the source of truth for
// acceptance.
func (s *session) submitAnswer(participantID, questionID string, answer []interface{}, timeTakenMs int64) {
	s.mu.Lock()
	if s.currentIdx < 0 || s.model.Status != models.SessionStatusActive ||
		questionID != s.questionIDs[s.currentIdx] {
		s.mu.Unlock()
		return
	}
	p, ok := s.participants[participantID]
	if !ok || p.answeredCurrent {
		s.mu.Unlock()
		return
	}
	p.answeredCurrent = true

	question := s.quiz.Questions[s.currentIdx]
	if question.grade(answer) {
		p.Score += award(question, timeTakenMs)
		p.CorrectCount++
	}
	p.TotalTimeMs += timeTakenMs
	s.answerCount++

	count := s.answerCount
	everyone := count >= len(s.participants)
	total := len(s.participants)
	id := s.model.ID
	s.mu.Unlock()

	s.hub.Broadcast(id, map[string]interface{}{
		"type":         "participant_answered",
		"question_id":  questionID,
		"answer_count": count,
	})
	s.hub.Broadcast(id, map[string]interface{}{
		"type":              "stats_update",
		"question_id":       questionID,
		"answer_count":      count,
		"participant_count": total,
	})

	if everyone {
		select {
		case s.allAnswered <- struct{}{}:
		default:
		}
	}
}

// award scales points by answer speed: half the points are guaranteed
// for a correct answer, the other half shrink as time runs out.
func award(q Question, timeTakenMs int64) int {
	points := q.Points
	if points == 0 {
		points = 100
	}
	if q.TimeLimitSeconds <= 0 {
		return points
	}
	limitMs := int64(q.TimeLimitSeconds) * 1000
	remaining := limitMs - timeTakenMs
	if remaining < 0 {
		remaining = 0
	}
	bonus := int(int64(points/2) * remaining / limitMs)
	return points/2 + bonus
}

func (s *session) leaderboardLocked() []models.LeaderboardEntry {
	entries := make([]models.LeaderboardEntry, 0, len(s.participants))
	for _, p := range s.participants {
		entries = append(entries, models.LeaderboardEntry{
			ParticipantID: p.ID,
			DisplayName:   p.DisplayName,
			Score:         p.Score,
			CorrectCount:  p.CorrectCount,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		pi := s.participants[entries[i].ParticipantID]
		pj := s.participants[entries[j].ParticipantID]
		if pi.TotalTimeMs != pj.TotalTimeMs {
			return pi.TotalTimeMs < pj.TotalTimeMs
		}
		return entries[i].DisplayName < entries[j].DisplayName
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

func (s *session) leaderboard() []models.LeaderboardEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leaderboardLocked()
}

// findByGuestToken resolves a guest token to its participant id.
func (s *session) findByGuestToken(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.participants {
		if p.GuestToken == token {
			return p.ID, true
		}
	}
	return "", false
}

func (s *session) rosterView() ([]models.RosterEntry, []models.OutsiderRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.RosterEntry(nil), s.roster...),
		append([]models.OutsiderRecord(nil), s.outsiders...)
}

func (s *session) finish(status models.SessionStatus) {
	s.mu.Lock()
	if s.model.Status.Terminal() {
		s.mu.Unlock()
		return
	}
	s.model.Status = status
	now := s.clock.Now()
	s.model.EndedAt = &now
	s.model.CurrentQuestion = nil
	id := s.model.ID
	s.mu.Unlock()

	s.log.Info().Str("session_id", id).Str("status", string(status)).Msg("session finished")
	s.hub.Broadcast(id, map[string]interface{}{
		"type":         "session_ended",
		"final_status": status,
	})
	s.hub.CloseSession(id)
}

// exportCSV renders the final results for download.
func (s *session) exportCSV() []byte {
	board := s.leaderboard()

	var b strings.Builder
	b.WriteString("rank,name,score,correct,total_time_ms\n")
	s.mu.Lock()
	for _, entry := range board {
		p := s.participants[entry.ParticipantID]
		fmt.Fprintf(&b, "%d,%s,%d,%d,%d\n",
			entry.Rank, csvEscape(entry.DisplayName), entry.Score, entry.CorrectCount, p.TotalTimeMs)
	}
	s.mu.Unlock()
	return []byte(b.String())
}

func csvEscape(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
