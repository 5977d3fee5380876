package live

import (
	"testing"

	"omniquiz-service/internal/domain"
)

func TestEmptyStateShape(t *testing.T) {
	state := EmptyState()

	if state.Status != domain.StatusWaiting {
		t.Fatalf("expected WAITING, got %s", state.Status)
	}
	if state.CurrentQuestion != nil || state.BuzzedTeam != nil || state.LastEvent != nil {
		t.Fatalf("expected nil question, buzz and event, got %+v", state)
	}
	if state.Scores == nil || len(state.Scores) != 0 {
		t.Fatalf("expected empty (non-nil) scores, got %#v", state.Scores)
	}
	if state.GridState == nil || len(state.GridState) != 0 {
		t.Fatalf("expected empty (non-nil) grid, got %#v", state.GridState)
	}
	if state.Timer != 0 {
		t.Fatalf("expected timer 0, got %d", state.Timer)
	}
}

func TestPopupGateDeduplicatesRedelivery(t *testing.T) {
	gate := &PopupGate{}

	event := &domain.LiveEvent{Type: domain.EventCorrect, TeamID: 1, TeamName: "Red", Amount: 200}
	snapshot := domain.LiveGameState{LastEvent: event, LastEventTimestamp: 5}

	got, show := gate.Observe(snapshot)
	if !show || got.Amount != 200 {
		t.Fatalf("expected first delivery to pop, got show=%v event=%+v", show, got)
	}

	// The same snapshot redelivered (reconnect, repeated notification) must
	// not pop again.
	if _, show := gate.Observe(snapshot); show {
		t.Fatalf("expected redelivery to be suppressed")
	}

	next := domain.LiveGameState{
		LastEvent:          &domain.LiveEvent{Type: domain.EventWrong, TeamID: 2, Amount: -100},
		LastEventTimestamp: 6,
	}
	got, show = gate.Observe(next)
	if !show || got.Type != domain.EventWrong {
		t.Fatalf("expected newer event to pop, got show=%v event=%+v", show, got)
	}
}

func TestPopupGateIgnoresEventlessSnapshots(t *testing.T) {
	gate := &PopupGate{}

	if _, show := gate.Observe(domain.LiveGameState{LastEventTimestamp: 9}); show {
		t.Fatalf("expected snapshot without event to be ignored")
	}
	// An eventless snapshot must not advance the gate.
	snapshot := domain.LiveGameState{
		LastEvent:          &domain.LiveEvent{Type: domain.EventAdjust, TeamID: 1, Amount: 50},
		LastEventTimestamp: 9,
	}
	if _, show := gate.Observe(snapshot); !show {
		t.Fatalf("expected event at previously seen-but-eventless timestamp to pop")
	}
}
