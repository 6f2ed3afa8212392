package live

import (
	"github.com/rs/zerolog"
)

// Router classifies inbound frames by their type tag and dispatches
// each to the reducer. It is the only place raw frames are interpreted:
// a malformed or unrecognized frame is logged and dropped, never thrown
// back at the connection.
type Router struct {
	reducer *Reducer
	log     zerolog.Logger
}

// NewRouter returns a router feeding the given reducer.
func NewRouter(reducer *Reducer, log zerolog.Logger) *Router {
	return &Router{reducer: reducer, log: log}
}

// knownEventTypes is the closed dispatch set. Anything outside it is
// ignored by construction, not by convention.
var knownEventTypes = map[EventType]struct{}{
	EventQuestionStarted:     {},
	EventQuestionEnded:       {},
	EventCooldownStarted:     {},
	EventLeaderboardUpdate:   {},
	EventParticipantAnswered: {},
	EventStatsUpdate:         {},
	EventParticipantJoined:   {},
	EventParticipantLeft:     {},
	EventRosterUpdated:       {},
	EventOutsiderDetected:    {},
	EventAutoAdvanceUpdated:  {},
	EventSessionEnded:        {},
	EventPing:                {},
}

// Dispatch routes one serialized frame. It never returns an error for
// bad input; protocol errors are absorbed here.
func (rt *Router) Dispatch(frame []byte) Effects {
	event, err := ParseEvent(frame)
	if err != nil {
		rt.log.Warn().Err(err).Msg("dropping malformed frame")
		return Effects{}
	}

	if _, ok := knownEventTypes[event.Type]; !ok {
		rt.log.Debug().Str("type", string(event.Type)).Msg("dropping unrecognized event type")
		return Effects{}
	}

	effects := rt.reducer.Apply(event)

	rt.log.Debug().
		Str("type", string(event.Type)).
		Bool("refetch_session", effects.RefetchSession).
		Bool("refetch_roster", effects.RefetchRoster).
		Msg("event applied")

	return effects
}
