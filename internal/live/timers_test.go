package live

import "testing"

func TestCountdownSeedAndTick(t *testing.T) {
	var c Countdown
	c.Seed(3)

	if !c.Active() || c.Remaining() != 3 {
		t.Fatalf("expected active countdown at 3, got active=%v remaining=%d", c.Active(), c.Remaining())
	}

	if c.Tick() {
		t.Fatal("tick at 2 remaining should not report expiry")
	}
	if c.Tick() {
		t.Fatal("tick at 1 remaining should not report expiry")
	}
	if !c.Tick() {
		t.Fatal("tick reaching zero should report expiry")
	}
	if c.Tick() {
		t.Fatal("expiry must be reported exactly once")
	}
	if c.Remaining() != 0 {
		t.Fatalf("expected 0 remaining after expiry, got %d", c.Remaining())
	}
}

func TestCountdownClampsNonPositiveSeed(t *testing.T) {
	var c Countdown
	c.Seed(-5)

	if c.Active() {
		t.Fatal("negative seed should leave countdown stopped")
	}
	if c.Remaining() != 0 {
		t.Fatalf("negative seed should clamp to 0, got %d", c.Remaining())
	}
	if c.Tick() {
		t.Fatal("stopped countdown should never report expiry")
	}
}

func TestCountdownReseedIsAuthoritative(t *testing.T) {
	var c Countdown
	c.Seed(10)
	c.Tick()
	c.Tick()

	// A fresh server announcement replaces the remaining time, it does
	// not add to it.
	c.Seed(10)
	if c.Remaining() != 10 {
		t.Fatalf("reseed should reset to 10, got %d", c.Remaining())
	}
}

func TestTimersMutualExclusion(t *testing.T) {
	timers := NewTimers(false, 10)

	timers.SeedQuestion(30)
	if !timers.QuestionActive() || timers.CooldownActive() {
		t.Fatal("seeding question should leave only the question counting")
	}

	timers.SeedCooldown(10)
	if timers.QuestionActive() || !timers.CooldownActive() {
		t.Fatal("seeding cooldown should cancel the question countdown")
	}
	if timers.QuestionRemaining() != 0 {
		t.Fatalf("cancelled question countdown should read 0, got %d", timers.QuestionRemaining())
	}

	timers.SeedQuestion(20)
	if !timers.QuestionActive() || timers.CooldownActive() {
		t.Fatal("a new question should cancel the running cooldown")
	}
}

func TestTimersQuestionExpiryWithoutAutoAdvance(t *testing.T) {
	timers := NewTimers(false, 10)
	timers.SeedQuestion(2)

	if res := timers.Tick(); res.QuestionExpired {
		t.Fatal("expired one tick early")
	}
	res := timers.Tick()
	if !res.QuestionExpired {
		t.Fatal("expected question expiry on the second tick")
	}
	if timers.CooldownActive() {
		t.Fatal("without auto-advance no local cooldown should start")
	}
}

func TestTimersQuestionExpiryStartsProactiveCooldown(t *testing.T) {
	timers := NewTimers(true, 10)
	timers.SeedQuestion(1)

	res := timers.Tick()
	if !res.QuestionExpired {
		t.Fatal("expected question expiry")
	}
	if !timers.CooldownActive() || timers.CooldownRemaining() != 10 {
		t.Fatalf("auto-advance expiry should seed a 10s cooldown, got active=%v remaining=%d",
			timers.CooldownActive(), timers.CooldownRemaining())
	}
}

func TestTimersZeroLimitQuestionExpiresImmediately(t *testing.T) {
	timers := NewTimers(true, 5)

	res := timers.SeedQuestion(0)
	if !res.QuestionExpired {
		t.Fatal("zero time limit should expire on seed")
	}
	if !timers.CooldownActive() {
		t.Fatal("auto-advance should begin the cooldown instead of stalling")
	}
}

func TestTimersCancelAll(t *testing.T) {
	timers := NewTimers(true, 10)
	timers.SeedQuestion(30)
	timers.CancelAll()

	if timers.QuestionActive() || timers.CooldownActive() {
		t.Fatal("cancel all should stop both countdowns")
	}
	if res := timers.Tick(); res.QuestionExpired || res.CooldownExpired {
		t.Fatal("ticks after cancel should be inert")
	}
}
