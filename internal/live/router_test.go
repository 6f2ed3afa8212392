package live

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/Mhrnqaruni/ata-live-client/internal/models"
)

func newTestRouter(role Role) (*Router, *Reducer) {
	reducer := NewReducer(role)
	reducer.ApplySession(models.Session{ID: "sess-1", Status: models.SessionStatusActive})
	return NewRouter(reducer, zerolog.Nop()), reducer
}

func TestRouterDropsMalformedFrame(t *testing.T) {
	router, reducer := newTestRouter(RoleParticipant)

	effects := router.Dispatch([]byte(`{not json`))
	if effects != (Effects{}) {
		t.Fatalf("malformed frame must be a no-op, got %+v", effects)
	}
	if reducer.Snapshot().Phase != PhaseWaiting {
		t.Fatal("malformed frame must not change state")
	}
}

func TestRouterDropsUnknownEventType(t *testing.T) {
	router, reducer := newTestRouter(RoleParticipant)

	effects := router.Dispatch([]byte(`{"type":"confetti_burst","intensity":11}`))
	if effects != (Effects{}) {
		t.Fatalf("unknown event type must be a no-op, got %+v", effects)
	}
	if reducer.Snapshot().Phase != PhaseWaiting {
		t.Fatal("unknown event must not change state")
	}
}

func TestRouterDropsMalformedKnownPayload(t *testing.T) {
	router, reducer := newTestRouter(RoleParticipant)

	effects := router.Dispatch([]byte(`{"type":"question_started","question":"not an object"}`))
	if effects != (Effects{}) {
		t.Fatalf("bad payload on a known type must be dropped, got %+v", effects)
	}
	if reducer.Snapshot().CurrentQuestion != nil {
		t.Fatal("bad payload must not install a question")
	}
}

func TestRouterPingRequestsPong(t *testing.T) {
	router, _ := newTestRouter(RoleParticipant)

	effects := router.Dispatch([]byte(`{"type":"ping"}`))
	if !effects.ReplyPong {
		t.Fatal("ping frame should request a pong reply")
	}
}

func TestRouterRoutesQuestionStarted(t *testing.T) {
	router, reducer := newTestRouter(RoleParticipant)

	frame := []byte(`{
		"type": "question_started",
		"question": {
			"id": "q1",
			"question_text": "2+2?",
			"question_type": "multiple_choice",
			"options": ["3", "4"],
			"points": 100,
			"time_limit_seconds": 20
		},
		"question_index": 0,
		"total_questions": 1
	}`)
	router.Dispatch(frame)

	snap := reducer.Snapshot()
	if snap.Phase != PhaseQuestion || snap.CurrentQuestion == nil || snap.CurrentQuestion.ID != "q1" {
		t.Fatalf("expected q1 live, got %+v", snap)
	}
	if snap.QuestionRemaining != 20 {
		t.Fatalf("expected 20s countdown, got %d", snap.QuestionRemaining)
	}
}
