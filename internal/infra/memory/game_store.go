package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"omniquiz-service/internal/domain"
)

// GameStore is an in-memory implementation of app.GameStore. Slots keep
// storage insertion order; an upsert rewrites a slot in place.
type GameStore struct {
	mu    sync.RWMutex
	now   func() time.Time
	slots []domain.SavedGame
}

func NewGameStore() *GameStore {
	return NewGameStoreWithClock(time.Now)
}

// NewGameStoreWithClock allows deterministic timestamps in tests.
func NewGameStoreWithClock(now func() time.Time) *GameStore {
	return &GameStore{now: now}
}

func (s *GameStore) SaveGame(ctx context.Context, name string, teams []domain.Team, quiz domain.QuizData) (domain.SavedGame, error) {
	saved := domain.SavedGame{
		ID:       uuid.NewString(),
		GameName: name,
		Teams:    domain.CloneTeams(teams),
		QuizData: quiz.Clone(),
		SavedAt:  s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.slots {
		if s.slots[i].GameName == name {
			s.slots[i] = saved
			return copySaved(saved), nil
		}
	}
	s.slots = append(s.slots, saved)
	return copySaved(saved), nil
}

func (s *GameStore) SavedGames(ctx context.Context) ([]domain.SavedGame, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.SavedGame, len(s.slots))
	for i, slot := range s.slots {
		out[i] = copySaved(slot)
	}
	return out, nil
}

func (s *GameStore) LoadGame(ctx context.Context, name string) (domain.SavedGame, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, slot := range s.slots {
		if slot.GameName == name {
			return copySaved(slot), nil
		}
	}
	return domain.SavedGame{}, domain.ErrGameNotFound
}

func (s *GameStore) DeleteGame(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.slots[:0]
	for _, slot := range s.slots {
		if slot.GameName != name {
			kept = append(kept, slot)
		}
	}
	s.slots = kept
	return nil
}

// copySaved deep-copies so callers can never mutate a stored slot through the
// returned value.
func copySaved(g domain.SavedGame) domain.SavedGame {
	return domain.SavedGame{
		ID:       g.ID,
		GameName: g.GameName,
		Teams:    domain.CloneTeams(g.Teams),
		QuizData: g.QuizData.Clone(),
		SavedAt:  g.SavedAt,
	}
}
