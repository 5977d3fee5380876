// Package live holds the replication-protocol pieces shared by the writer and
// the passive viewers: the canonical empty document and the popup
// deduplication gate.
package live

import (
	"sync"

	"omniquiz-service/internal/domain"
)

// EmptyState is the canonical "no game" document the reset utility writes.
func EmptyState() domain.LiveGameState {
	return domain.LiveGameState{
		Status:          domain.StatusWaiting,
		CurrentQuestion: nil,
		GridState:       []domain.GridColumn{},
		Scores:          []domain.Team{},
		BuzzedTeam:      nil,
		Timer:           0,
		LastEvent:       nil,
	}
}

// PopupGate decides whether an incoming snapshot should trigger an event
// popup. Snapshots arrive whole and may be redelivered (reconnects, repeated
// notifications); the gate compares the event timestamp against the last one
// it rendered, so each event pops at most once. Events that are overwritten
// before the viewer sees them are lost, not queued — that is the protocol's
// explicit trade-off.
type PopupGate struct {
	mu     sync.Mutex
	lastTS int64
}

// Observe reports the event to render, if this snapshot carries one the gate
// has not shown yet.
func (g *PopupGate) Observe(state domain.LiveGameState) (domain.LiveEvent, bool) {
	if state.LastEvent == nil {
		return domain.LiveEvent{}, false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if state.LastEventTimestamp == g.lastTS {
		return domain.LiveEvent{}, false
	}
	g.lastTS = state.LastEventTimestamp
	return *state.LastEvent, true
}
