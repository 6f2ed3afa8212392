// Package live implements the quiz realtime client protocol handler:
// the persistent channel, the inbound event router, the session state
// reducer, the local countdown derivation and the host-side roster
// view. The server is authoritative for all session state; this package
// only reconciles pushes and derives display timers from them.
package live

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/Mhrnqaruni/ata-live-client/internal/models"
)

// SessionFetcher is the REST collaborator used for idempotent session
// re-fetches on ambiguous events.
type SessionFetcher interface {
	GetSession(ctx context.Context, sessionID string) (models.Session, error)
}

// ClientOptions wires a Client together. Credentials are always passed
// in explicitly; nothing in this package reads ambient storage.
type ClientOptions struct {
	SessionID  string
	Role       Role
	Credential Credential
	ConnConfig ConnConfig

	API    SessionFetcher
	Roster *RosterView // nil unless hosting a class-linked session

	Clock clockwork.Clock
	Log   zerolog.Logger

	// LeaderboardDisplaySeconds overrides the results display window.
	LeaderboardDisplaySeconds int
}

// Client composes the connection manager, router, reducer and timers
// into one session handle. All shared state is owned by the reducer;
// the run loop is the single writer driving it from channel frames and
// one-second ticks.
type Client struct {
	sessionID string
	role      Role
	cred      Credential

	api     SessionFetcher
	roster  *RosterView
	conn    *Conn
	reducer *Reducer
	router  *Router
	clock   clockwork.Clock
	log     zerolog.Logger

	frames  chan []byte
	updates chan SessionState
	done    chan struct{}

	lastQuestionID  string
	questionShownAt time.Time
}

// NewClient builds a client for one session.
func NewClient(opts ClientOptions) *Client {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	reducer := NewReducer(opts.Role)
	if opts.LeaderboardDisplaySeconds > 0 {
		reducer.SetDisplayWindow(opts.LeaderboardDisplaySeconds)
	}

	c := &Client{
		sessionID: opts.SessionID,
		role:      opts.Role,
		cred:      opts.Credential,
		api:       opts.API,
		roster:    opts.Roster,
		reducer:   reducer,
		clock:     opts.Clock,
		log:       opts.Log,
		frames:    make(chan []byte, 64),
		updates:   make(chan SessionState, 8),
		done:      make(chan struct{}),
	}
	c.router = NewRouter(reducer, opts.Log)
	c.conn = NewConn(opts.ConnConfig, opts.Clock, opts.Log,
		func() bool { return reducer.TerminalStatus() != "" },
		c.enqueueFrame,
		func(connected bool) {
			if !connected {
				c.log.Info().Msg("disconnected; waiting for reconnect")
			}
		},
	)
	return c
}

// Seed primes the reducer with a session snapshot obtained out of band
// (the create or join response), moving the client out of the join
// phase before the channel opens.
func (c *Client) Seed(session models.Session) {
	c.reducer.ApplySession(session)
}

// Connect opens the realtime channel for the session.
func (c *Client) Connect(ctx context.Context) error {
	return c.conn.Connect(ctx, c.sessionID, c.cred)
}

// Run drives the client until the context is cancelled or the session
// reaches a terminal status. It is the single goroutine that mutates
// reducer state, interleaving channel frames with one-second ticks.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.done)
	defer c.conn.Close()

	ticker := c.clock.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.reducer.Shutdown()
			return ctx.Err()

		case frame := <-c.frames:
			effects := c.router.Dispatch(frame)
			c.runEffects(ctx, effects)
			c.trackQuestion()
			c.publish()
			if effects.Terminal {
				c.log.Info().
					Str("final_status", string(c.reducer.TerminalStatus())).
					Msg("session ended")
				return nil
			}

		case <-ticker.Chan():
			c.reducer.Tick()
			c.publish()
		}
	}
}

// enqueueFrame hands an inbound frame to the run loop. A full buffer
// drops the oldest frame first; re-fetch semantics make that safe.
func (c *Client) enqueueFrame(frame []byte) {
	select {
	case c.frames <- frame:
	default:
		select {
		case <-c.frames:
		default:
		}
		select {
		case c.frames <- frame:
		default:
		}
	}
}

func (c *Client) runEffects(ctx context.Context, effects Effects) {
	if effects.ReplyPong {
		if err := c.conn.Send(NewPongCommand()); err != nil {
			c.log.Warn().Err(err).Msg("pong send failed")
		}
	}
	if effects.RefetchSession && c.api != nil {
		session, err := c.api.GetSession(ctx, c.sessionID)
		if err != nil {
			c.log.Warn().Err(err).Msg("session re-fetch failed")
		} else {
			c.reducer.ApplySession(session)
		}
	}
	if effects.RefetchRoster && c.roster != nil {
		if err := c.roster.Refresh(ctx); err != nil {
			c.log.Warn().Err(err).Msg("roster re-fetch failed")
		}
	}
}

// trackQuestion records when a fresh question was shown so answer
// submissions can report time taken.
func (c *Client) trackQuestion() {
	snap := c.reducer.Snapshot()
	if snap.CurrentQuestion != nil && snap.CurrentQuestion.ID != c.lastQuestionID {
		c.lastQuestionID = snap.CurrentQuestion.ID
		c.questionShownAt = c.clock.Now()
	}
}

// publish pushes the latest snapshot to the updates channel, dropping
// the stale one when the consumer lags.
func (c *Client) publish() {
	snap := c.reducer.Snapshot()
	select {
	case c.updates <- snap:
	default:
		select {
		case <-c.updates:
		default:
		}
		select {
		case c.updates <- snap:
		default:
		}
	}
}

// Updates streams state snapshots for rendering.
func (c *Client) Updates() <-chan SessionState { return c.updates }

// Snapshot returns the current state.
func (c *Client) Snapshot() SessionState { return c.reducer.Snapshot() }

// Roster returns the host-side roster view, if any.
func (c *Client) Roster() *RosterView { return c.roster }

// Connected reports whether the realtime channel is open.
func (c *Client) Connected() bool { return c.conn.Connected() }

// SendJoin announces the participant on the channel after the guest
// join handshake issued the credential.
func (c *Client) SendJoin(roomCode, displayName, studentID string) error {
	return c.conn.Send(NewJoinCommand(roomCode, displayName, studentID))
}

// SubmitAnswer normalizes and submits an answer for the current
// question. Submission is single-shot per question: once one answer is
// in, further input is rejected locally until the question changes.
func (c *Client) SubmitAnswer(input AnswerInput) error {
	snap := c.reducer.Snapshot()
	if snap.CurrentQuestion == nil {
		return ErrNoActiveQuestion
	}
	question := *snap.CurrentQuestion

	answer, err := NormalizeAnswer(question.QuestionType, input)
	if err != nil {
		return err
	}
	if !c.reducer.LockAnswer(question.ID) {
		return ErrAlreadyAnswered
	}

	elapsed := c.clock.Since(c.questionShownAt)
	return c.conn.Send(NewAnswerCommand(question.ID, answer, elapsed.Milliseconds()))
}

// Close tears the session view down: countdowns cancelled, channel
// closed, pending reconnects abandoned. Used when the user navigates
// away before the session reaches a terminal status.
func (c *Client) Close() {
	c.reducer.Shutdown()
	c.conn.Close()
}
