package live

import (
	"context"
	"sync"

	"github.com/Mhrnqaruni/ata-live-client/internal/models"
	"github.com/rs/zerolog"
)

// RosterFetcher is the REST collaborator the roster view reads from.
type RosterFetcher interface {
	GetRoster(ctx context.Context, sessionID string) ([]models.RosterEntry, error)
	GetOutsiders(ctx context.Context, sessionID string) ([]models.OutsiderRecord, error)
}

// RosterSnapshot is the host-facing attendance view.
type RosterSnapshot struct {
	Entries   []models.RosterEntry
	Outsiders []models.OutsiderRecord
	Expected  int
	Joined    int
	JoinRate  float64
}

// RosterView reconciles the expected roster of a class-linked session
// with who actually joined. It is purely informational: detection of
// outsiders is server-side, and this view never blocks a join. Rather
// than patching incrementally, it re-fetches wholesale on the events
// that make counts untrustworthy (joins, roster edits, outsiders), so
// it cannot drift from the server.
type RosterView struct {
	fetcher   RosterFetcher
	sessionID string
	enabled   bool
	log       zerolog.Logger

	mu        sync.Mutex
	entries   []models.RosterEntry
	outsiders []models.OutsiderRecord
}

// NewRosterView builds the view. Reconciliation is an optional
// capability gated strictly on the session carrying a class
// association; without one the view stays empty and Refresh is a no-op.
func NewRosterView(fetcher RosterFetcher, sessionID, classID string, log zerolog.Logger) *RosterView {
	return &RosterView{
		fetcher:   fetcher,
		sessionID: sessionID,
		enabled:   classID != "",
		log:       log,
	}
}

// Enabled reports whether the session is class-linked.
func (v *RosterView) Enabled() bool { return v.enabled }

// Refresh re-fetches the roster and outsider list wholesale.
func (v *RosterView) Refresh(ctx context.Context) error {
	if !v.enabled {
		return nil
	}

	entries, err := v.fetcher.GetRoster(ctx, v.sessionID)
	if err != nil {
		return err
	}
	outsiders, err := v.fetcher.GetOutsiders(ctx, v.sessionID)
	if err != nil {
		return err
	}

	v.mu.Lock()
	v.entries = entries
	v.outsiders = outsiders
	v.mu.Unlock()

	v.log.Debug().
		Int("expected", len(entries)).
		Int("outsiders", len(outsiders)).
		Msg("roster refreshed")
	return nil
}

// Snapshot computes joined-vs-expected counts, the join rate and the
// outsider list from the last fetch.
func (v *RosterView) Snapshot() RosterSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	snap := RosterSnapshot{
		Entries:   append([]models.RosterEntry(nil), v.entries...),
		Outsiders: append([]models.OutsiderRecord(nil), v.outsiders...),
		Expected:  len(v.entries),
	}
	for _, entry := range v.entries {
		if entry.Joined {
			snap.Joined++
		}
	}
	if snap.Expected > 0 {
		snap.JoinRate = float64(snap.Joined) / float64(snap.Expected) * 100
	}
	return snap
}
