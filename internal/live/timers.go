package live

// Countdown is a one-second decrementing counter seeded from a
// server-announced duration. It never invents deadlines: it is
// re-seeded, not merely started, every time a corresponding server
// message arrives, so drift is bounded by the interval between server
// corrections. It clamps at zero and waits for the next server event.
type Countdown struct {
	remaining int
	active    bool
}

// Seed resets the countdown to the given duration. A non-positive
// duration clamps to zero and leaves the countdown stopped.
func (c *Countdown) Seed(seconds int) {
	if seconds <= 0 {
		c.remaining = 0
		c.active = false
		return
	}
	c.remaining = seconds
	c.active = true
}

// Tick advances the countdown by one second. It reports true exactly
// once, on the tick that reaches zero.
func (c *Countdown) Tick() bool {
	if !c.active {
		return false
	}
	c.remaining--
	if c.remaining <= 0 {
		c.remaining = 0
		c.active = false
		return true
	}
	return false
}

// Cancel stops the countdown and zeroes it.
func (c *Countdown) Cancel() {
	c.remaining = 0
	c.active = false
}

// Remaining returns the seconds left, never negative.
func (c *Countdown) Remaining() int { return c.remaining }

// Active reports whether the countdown is still counting down.
func (c *Countdown) Active() bool { return c.active }

// TickResult reports what expired on a timer tick.
type TickResult struct {
	QuestionExpired bool
	CooldownExpired bool
}

// Timers owns the question and cooldown countdowns. At most one is
// counting at a time: seeding one cancels the other. The server remains
// authoritative for timing; these countdowns are display feedback only
// and never drive state transitions on their own.
type Timers struct {
	question Countdown
	cooldown Countdown

	autoAdvance     bool
	cooldownSeconds int
}

// NewTimers returns timers with the session's auto-advance settings.
func NewTimers(autoAdvance bool, cooldownSeconds int) *Timers {
	return &Timers{autoAdvance: autoAdvance, cooldownSeconds: cooldownSeconds}
}

// SetAutoAdvance replaces the auto-advance flag and cooldown duration.
func (t *Timers) SetAutoAdvance(enabled bool, cooldownSeconds int) {
	t.autoAdvance = enabled
	if cooldownSeconds > 0 {
		t.cooldownSeconds = cooldownSeconds
	}
}

// AutoAdvance reports the current auto-advance flag.
func (t *Timers) AutoAdvance() bool { return t.autoAdvance }

// CooldownSeconds reports the configured cooldown duration.
func (t *Timers) CooldownSeconds() int { return t.cooldownSeconds }

// SeedQuestion starts the question countdown, cancelling any running
// cooldown. A zero time limit expires immediately: the countdown clamps
// at zero and, when auto-advance is enabled, the local cooldown begins
// right away rather than stalling.
func (t *Timers) SeedQuestion(seconds int) TickResult {
	t.cooldown.Cancel()
	t.question.Seed(seconds)
	if seconds <= 0 {
		return t.expireQuestion()
	}
	return TickResult{}
}

// SeedCooldown starts the cooldown countdown at the server-given
// duration, cancelling the question countdown. Reseeding an already
// running cooldown is an authoritative correction, not additive.
func (t *Timers) SeedCooldown(seconds int) {
	t.question.Cancel()
	t.cooldown.Seed(seconds)
}

// Tick advances whichever countdown is active by one second.
func (t *Timers) Tick() TickResult {
	if t.question.Active() {
		if t.question.Tick() {
			return t.expireQuestion()
		}
		return TickResult{}
	}
	if t.cooldown.Active() && t.cooldown.Tick() {
		return TickResult{CooldownExpired: true}
	}
	return TickResult{}
}

// expireQuestion handles the question countdown reaching zero. Only
// with auto-advance enabled does the client begin a cooldown countdown
// proactively; a cooldown_started push supersedes it with the
// authoritative value.
func (t *Timers) expireQuestion() TickResult {
	res := TickResult{QuestionExpired: true}
	if t.autoAdvance && t.cooldownSeconds > 0 {
		t.cooldown.Seed(t.cooldownSeconds)
	}
	return res
}

// CancelAll stops both countdowns, e.g. on a terminal status or when
// the session view is torn down.
func (t *Timers) CancelAll() {
	t.question.Cancel()
	t.cooldown.Cancel()
}

// QuestionRemaining returns the seconds left on the question countdown.
func (t *Timers) QuestionRemaining() int { return t.question.Remaining() }

// CooldownRemaining returns the seconds left on the cooldown countdown.
func (t *Timers) CooldownRemaining() int { return t.cooldown.Remaining() }

// QuestionActive reports whether the question countdown is running.
func (t *Timers) QuestionActive() bool { return t.question.Active() }

// CooldownActive reports whether the cooldown countdown is running.
func (t *Timers) CooldownActive() bool { return t.cooldown.Active() }
