// Package simserver is an in-memory stand-in for the quiz backend:
// enough of the REST and realtime contract to drive the client end to
// end during development and in tests. It keeps no durable storage and
// is not the authoritative production service.
package simserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/Mhrnqaruni/ata-live-client/internal/live"
)

// Server hosts simulated sessions for one quiz script.
type Server struct {
	quiz  Quiz
	hub   *Hub
	clock clockwork.Clock
	log   zerolog.Logger

	mu         sync.RWMutex
	sessions   map[string]*session
	byRoomCode map[string]*session
}

// New builds a simulator for the given quiz.
func New(quiz Quiz, clock clockwork.Clock, log zerolog.Logger) *Server {
	s := &Server{
		quiz:       quiz,
		clock:      clock,
		log:        log,
		sessions:   make(map[string]*session),
		byRoomCode: make(map[string]*session),
	}
	s.hub = NewHub(DefaultHubConfig(), log, s.handleCommand)
	return s
}

// Handler returns the REST + websocket surface.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /sessions", s.handleCreate)
	mux.HandleFunc("POST /sessions/join", s.handleJoin)
	mux.HandleFunc("GET /sessions/{id}", s.handleGet)
	mux.HandleFunc("POST /sessions/{id}/start", s.lifecycle(sigNext, "start"))
	mux.HandleFunc("POST /sessions/{id}/next", s.lifecycle(sigNext, "next"))
	mux.HandleFunc("POST /sessions/{id}/end", s.lifecycle(sigEnd, "end"))
	mux.HandleFunc("POST /sessions/{id}/cancel", s.lifecycle(sigCancel, "cancel"))
	mux.HandleFunc("PUT /sessions/{id}/auto-advance", s.handleAutoAdvance)
	mux.HandleFunc("GET /sessions/{id}/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("GET /sessions/{id}/roster", s.handleRoster)
	mux.HandleFunc("GET /sessions/{id}/outsiders", s.handleOutsiders)
	mux.HandleFunc("GET /sessions/{id}/export", s.handleExport)
	mux.HandleFunc("GET /ws/sessions/{id}", s.handleWS)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	return mux
}

func (s *Server) lookup(id string) (*session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QuizID          string `json:"quiz_id"`
		ClassID         string `json:"class_id"`
		AutoAdvance     bool   `json:"auto_advance"`
		CooldownSeconds int    `json:"cooldown_seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	quiz := s.quiz
	if req.ClassID != "" {
		quiz.ClassID = req.ClassID
	}
	sess := newSession(quiz, s.hub, s.clock, s.log, req.AutoAdvance, req.CooldownSeconds)

	s.mu.Lock()
	s.sessions[sess.model.ID] = sess
	s.byRoomCode[sess.model.RoomCode] = sess
	s.mu.Unlock()

	s.log.Info().
		Str("session_id", sess.model.ID).
		Str("room_code", sess.model.RoomCode).
		Msg("sim session created")
	writeJSON(w, http.StatusCreated, sess.snapshot())
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess.snapshot())
}

func (s *Server) lifecycle(sig hostSignal, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.lookup(r.PathValue("id"))
		if !ok {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}

		var err error
		if name == "start" {
			err = sess.start()
		} else {
			err = sess.signal(sig)
		}
		if err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, sess.snapshot())
	}
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomCode    string `json:"room_code"`
		DisplayName string `json:"display_name"`
		StudentID   string `json:"student_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.DisplayName) == "" {
		writeError(w, http.StatusBadRequest, "display name is required")
		return
	}

	s.mu.RLock()
	sess, ok := s.byRoomCode[strings.ToUpper(strings.TrimSpace(req.RoomCode))]
	s.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, "no session for that room code")
		return
	}

	participant, err := sess.join(strings.TrimSpace(req.DisplayName), strings.TrimSpace(req.StudentID))
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session":        sess.snapshot(),
		"participant_id": participant.ID,
		"guest_token":    participant.GuestToken,
	})
}

func (s *Server) handleAutoAdvance(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	var req struct {
		Enabled         bool `json:"enabled"`
		CooldownSeconds int  `json:"cooldown_seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess.setAutoAdvance(req.Enabled, req.CooldownSeconds)
	writeJSON(w, http.StatusOK, sess.snapshot())
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"leaderboard": sess.leaderboard()})
}

func (s *Server) handleRoster(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	roster, _ := sess.rosterView()
	writeJSON(w, http.StatusOK, map[string]interface{}{"roster": roster})
}

func (s *Server) handleOutsiders(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	_, outsiders := sess.rosterView()
	writeJSON(w, http.StatusOK, map[string]interface{}{"outsiders": outsiders})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="results.csv"`)
	w.Write(sess.exportCSV())
}

// handleWS authenticates the channel by its connect-time credential:
// host bearer token or per-session guest token, as a query parameter.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	hostToken := r.URL.Query().Get("token")
	guestToken := r.URL.Query().Get("guest_token")

	var participantID string
	switch {
	case hostToken != "":
		// Dev simulator: any non-empty host token is accepted.
	case guestToken != "":
		participantID, _ = sess.findByGuestToken(guestToken)
		if participantID == "" {
			writeError(w, http.StatusUnauthorized, "unknown guest token")
			return
		}
	default:
		writeError(w, http.StatusUnauthorized, "credential is required")
		return
	}

	if err := s.hub.Upgrade(w, r, sess.model.ID, participantID); err != nil {
		s.log.Error().Err(err).Msg("sim websocket upgrade failed")
	}
}

// handleCommand routes channel frames from clients.
func (s *Server) handleCommand(sessionID, participantID string, frame []byte) {
	var cmd struct {
		Type    live.CommandType `json:"type"`
		Payload json.RawMessage  `json:"payload"`
	}
	if err := json.Unmarshal(frame, &cmd); err != nil {
		s.log.Debug().Err(err).Msg("sim dropping malformed command")
		return
	}

	switch cmd.Type {
	case live.CommandAnswer:
		if participantID == "" {
			return
		}
		var payload live.AnswerPayload
		if err := json.Unmarshal(cmd.Payload, &payload); err != nil {
			return
		}
		sess, ok := s.lookup(sessionID)
		if !ok {
			return
		}
		sess.submitAnswer(participantID, payload.QuestionID, payload.Answer, payload.TimeTakenMs)

	case live.CommandJoin, live.CommandPong:
		// Join presence was already established via REST; pong just
		// confirms liveness, which the read deadline tracks.

	default:
		s.log.Debug().Str("type", string(cmd.Type)).Msg("sim ignoring unknown command")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
