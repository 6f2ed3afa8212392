package live

import (
	"sync"

	"github.com/Mhrnqaruni/ata-live-client/internal/models"
)

// Phase is the client-side view phase of a live session.
type Phase string

const (
	PhaseJoin     Phase = "join"
	PhaseWaiting  Phase = "waiting"
	PhaseQuestion Phase = "question"
	PhaseCooldown Phase = "cooldown"
	PhaseFinished Phase = "finished"
)

// Role distinguishes the two ends of a session.
type Role string

const (
	RoleHost        Role = "host"
	RoleParticipant Role = "participant"
)

// SessionState is a snapshot of everything the reducer owns. All
// mutation flows through Apply/Tick; no other component writes to it.
type SessionState struct {
	Session         models.Session
	Phase           Phase
	CurrentQuestion *models.Question
	QuestionIndex   int
	TotalQuestions  int
	Leaderboard     []models.LeaderboardEntry
	AnswersReceived int
	ShowingResults  bool

	// AnsweredQuestionID is the question the local participant has
	// already submitted for; further input is locked until the
	// question id changes.
	AnsweredQuestionID string

	QuestionRemaining int
	CooldownRemaining int
	AutoAdvance       bool
	CooldownSeconds   int
}

// Effects is the closed set of side effects an event can request. The
// caller (Client) executes them; the reducer itself never does I/O.
type Effects struct {
	ReplyPong      bool
	RefetchSession bool
	RefetchRoster  bool
	Terminal       bool
}

// DefaultLeaderboardDisplaySeconds is how long the between-question
// results view stays up before reverting to the neutral waiting state.
const DefaultLeaderboardDisplaySeconds = 10

// Reducer is a finite state machine over the session phases, driven
// only by inbound server events. Transitions are pure functions of
// (current state, event); elapsed time drives countdown display and the
// results-view auto-return, never protocol state.
type Reducer struct {
	mu     sync.Mutex
	role   Role
	state  SessionState
	timers *Timers

	displaySeconds int
	resultsTicks   int

	// scoreFloor remembers each participant's highest seen score so a
	// stale board can never show a score going down.
	scoreFloor map[string]int
}

// NewReducer returns a reducer in the join phase.
func NewReducer(role Role) *Reducer {
	return &Reducer{
		role:           role,
		state:          SessionState{Phase: PhaseJoin},
		timers:         NewTimers(false, 0),
		displaySeconds: DefaultLeaderboardDisplaySeconds,
		scoreFloor:     make(map[string]int),
	}
}

// SetDisplayWindow overrides the results display window.
func (r *Reducer) SetDisplayWindow(seconds int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if seconds > 0 {
		r.displaySeconds = seconds
	}
}

// ApplySession replaces the cached session copy, e.g. after the initial
// join or an idempotent re-fetch. Status never moves backwards.
func (r *Reducer) ApplySession(session models.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.state.Session.Status
	if prev != "" && !session.Status.Supersedes(prev) {
		session.Status = prev
	}
	r.state.Session = session
	r.timers.SetAutoAdvance(session.AutoAdvance, session.CooldownSeconds)

	if r.state.Phase == PhaseJoin {
		r.state.Phase = PhaseWaiting
	}
	if session.Status.Terminal() {
		r.finishLocked(session.Status)
	}
}

// Apply folds one inbound event into the state and reports the side
// effects the caller should run. Unknown event types are a no-op.
func (r *Reducer) Apply(event Event) Effects {
	r.mu.Lock()
	defer r.mu.Unlock()

	var effects Effects

	if r.state.Phase == PhaseFinished && event.Type != EventPing {
		// Terminal state is absorbing; late pushes are ignored.
		return effects
	}

	payload, err := ParseEventPayload(event)
	if err != nil {
		// Malformed payload on a known type: drop, never tear down.
		return effects
	}

	switch event.Type {
	case EventQuestionStarted:
		p := payload.(QuestionStartedPayload)
		r.applyQuestionStartedLocked(p)

	case EventQuestionEnded:
		p := payload.(QuestionEndedPayload)
		r.applyCooldownLocked(p.CooldownSeconds)

	case EventCooldownStarted:
		p := payload.(CooldownStartedPayload)
		r.applyCooldownLocked(p.CooldownSeconds)

	case EventLeaderboardUpdate:
		p := payload.(LeaderboardUpdatePayload)
		// Replace wholesale, keeping the server's order. Scores are
		// floored at their highest seen value; they never go down.
		for i := range p.Leaderboard {
			entry := &p.Leaderboard[i]
			if floor, ok := r.scoreFloor[entry.ParticipantID]; ok && floor > entry.Score {
				entry.Score = floor
			} else {
				r.scoreFloor[entry.ParticipantID] = entry.Score
			}
		}
		r.state.Leaderboard = p.Leaderboard

	case EventParticipantAnswered:
		p := payload.(ParticipantAnsweredPayload)
		if r.state.CurrentQuestion != nil && p.QuestionID == r.state.CurrentQuestion.ID {
			if p.AnswerCount > 0 {
				r.state.AnswersReceived = p.AnswerCount
			} else {
				// Provisional local increment, superseded wholesale by
				// the next authoritative stats_update.
				r.state.AnswersReceived++
			}
		}

	case EventStatsUpdate:
		p := payload.(StatsUpdatePayload)
		if r.state.CurrentQuestion != nil && p.QuestionID == r.state.CurrentQuestion.ID {
			r.state.AnswersReceived = p.AnswerCount
		}
		if p.ParticipantCount > 0 {
			r.state.Session.ParticipantCount = p.ParticipantCount
		}

	case EventParticipantJoined, EventParticipantLeft:
		effects.RefetchSession = true
		if r.role == RoleHost && event.Type == EventParticipantJoined {
			effects.RefetchRoster = true
		}

	case EventRosterUpdated:
		effects.RefetchSession = true
		effects.RefetchRoster = true

	case EventOutsiderDetected:
		effects.RefetchRoster = true

	case EventAutoAdvanceUpdated:
		p := payload.(AutoAdvanceUpdatedPayload)
		r.state.Session.AutoAdvance = p.Enabled
		if p.CooldownSeconds > 0 {
			r.state.Session.CooldownSeconds = p.CooldownSeconds
		}
		r.timers.SetAutoAdvance(p.Enabled, p.CooldownSeconds)

	case EventSessionEnded:
		p := payload.(SessionEndedPayload)
		status := p.FinalStatus
		if !status.Terminal() {
			status = models.SessionStatusCompleted
		}
		r.finishLocked(status)
		effects.Terminal = true

	case EventPing:
		effects.ReplyPong = true
	}

	r.syncTimerViewLocked()
	return effects
}

// applyQuestionStartedLocked replaces the current question and reseeds
// the question countdown. A fresh question always supersedes any
// pending cooldown or results display, even if the local cooldown has
// not reached zero: the server's announcement is authoritative.
func (r *Reducer) applyQuestionStartedLocked(p QuestionStartedPayload) {
	question := p.Question
	r.state.CurrentQuestion = &question
	r.state.QuestionIndex = p.QuestionIndex
	r.state.TotalQuestions = p.TotalQuestions
	r.state.AnswersReceived = 0
	r.state.ShowingResults = false
	r.resultsTicks = 0
	r.state.Phase = PhaseQuestion

	if models.SessionStatusActive.Supersedes(r.state.Session.Status) {
		r.state.Session.Status = models.SessionStatusActive
	}
	idx := p.QuestionIndex
	r.state.Session.CurrentQuestion = &idx

	r.timers.SeedQuestion(question.TimeLimitSeconds)
}

// applyCooldownLocked zeroes the question countdown and (re)seeds the
// cooldown to the server-given duration. Showing the results view is
// gated on the session having actually started, so a participant who
// joins mid-cooldown of a not-yet-started quiz never flashes a board.
func (r *Reducer) applyCooldownLocked(cooldownSeconds int) {
	r.state.Phase = PhaseCooldown
	r.timers.SeedCooldown(cooldownSeconds)

	if r.state.Session.Status == models.SessionStatusActive {
		r.state.ShowingResults = true
		r.resultsTicks = r.displaySeconds
		if cooldownSeconds > 0 && cooldownSeconds < r.resultsTicks {
			r.resultsTicks = cooldownSeconds
		}
	}
}

// finishLocked moves the session into its terminal status: both
// countdowns stop immediately and no further ticks are observed. The
// results-view auto-return is cancelled so a late revert can never flip
// the view back to "waiting" after the quiz has ended.
func (r *Reducer) finishLocked(status models.SessionStatus) {
	r.state.Session.Status = status
	r.state.Phase = PhaseFinished
	r.state.ShowingResults = false
	r.resultsTicks = 0
	r.timers.CancelAll()
	r.syncTimerViewLocked()
}

// Tick advances the active countdown by one second and handles the
// results display window. It is called by the client's tick loop, never
// by the transport.
func (r *Reducer) Tick() TickResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Phase == PhaseFinished {
		return TickResult{}
	}

	res := r.timers.Tick()

	if r.state.ShowingResults && r.resultsTicks > 0 {
		r.resultsTicks--
		if r.resultsTicks == 0 {
			r.state.ShowingResults = false
			if r.state.Phase == PhaseCooldown {
				r.state.Phase = PhaseWaiting
			}
		}
	}

	r.syncTimerViewLocked()
	return res
}

// LockAnswer records a local submission for the given question id and
// reports whether input was still open. Submission is single-shot per
// question; the server remains the source of truth for acceptance.
func (r *Reducer) LockAnswer(questionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.CurrentQuestion == nil || r.state.CurrentQuestion.ID != questionID {
		return false
	}
	if r.state.AnsweredQuestionID == questionID {
		return false
	}
	r.state.AnsweredQuestionID = questionID
	return true
}

// Shutdown cancels both countdowns without inventing a terminal
// status, for local teardown when the user leaves the session view.
func (r *Reducer) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timers.CancelAll()
	r.state.ShowingResults = false
	r.resultsTicks = 0
	r.syncTimerViewLocked()
}

// TerminalStatus returns the session status if it is terminal, or "".
func (r *Reducer) TerminalStatus() models.SessionStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Session.Status.Terminal() {
		return r.state.Session.Status
	}
	return ""
}

// Snapshot returns a copy of the current state for display.
func (r *Reducer) Snapshot() SessionState {
	r.mu.Lock()
	defer r.mu.Unlock()

	state := r.state
	if r.state.CurrentQuestion != nil {
		question := *r.state.CurrentQuestion
		state.CurrentQuestion = &question
	}
	state.Leaderboard = append([]models.LeaderboardEntry(nil), r.state.Leaderboard...)
	return state
}

func (r *Reducer) syncTimerViewLocked() {
	r.state.QuestionRemaining = r.timers.QuestionRemaining()
	r.state.CooldownRemaining = r.timers.CooldownRemaining()
	r.state.AutoAdvance = r.timers.AutoAdvance()
	r.state.CooldownSeconds = r.timers.CooldownSeconds()
}
