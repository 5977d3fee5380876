package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"omniquiz-service/internal/domain"
)

const savedGamesKey = "omniquiz:saved-games"

// GameStore persists named save slots as a single JSON array under one key,
// mirroring the slot-list layout the host UI expects. Persistence is a
// best-effort cache, not a ledger: a missing or corrupt payload reads as an
// empty collection.
type GameStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewGameStore(client *redis.Client) *GameStore {
	return &GameStore{client: client, now: time.Now}
}

func (s *GameStore) SaveGame(ctx context.Context, name string, teams []domain.Team, quiz domain.QuizData) (domain.SavedGame, error) {
	saved := domain.SavedGame{
		ID:       uuid.NewString(),
		GameName: name,
		Teams:    domain.CloneTeams(teams),
		QuizData: quiz.Clone(),
		SavedAt:  s.now(),
	}

	slots := s.readSlots(ctx)
	replaced := false
	for i := range slots {
		if slots[i].GameName == name {
			slots[i] = saved
			replaced = true
			break
		}
	}
	if !replaced {
		slots = append(slots, saved)
	}
	if err := s.writeSlots(ctx, slots); err != nil {
		return domain.SavedGame{}, err
	}
	return saved, nil
}

func (s *GameStore) SavedGames(ctx context.Context) ([]domain.SavedGame, error) {
	return s.readSlots(ctx), nil
}

func (s *GameStore) LoadGame(ctx context.Context, name string) (domain.SavedGame, error) {
	for _, slot := range s.readSlots(ctx) {
		if slot.GameName == name {
			return slot, nil
		}
	}
	return domain.SavedGame{}, domain.ErrGameNotFound
}

func (s *GameStore) DeleteGame(ctx context.Context, name string) error {
	slots := s.readSlots(ctx)
	kept := slots[:0]
	for _, slot := range slots {
		if slot.GameName != name {
			kept = append(kept, slot)
		}
	}
	return s.writeSlots(ctx, kept)
}

func (s *GameStore) readSlots(ctx context.Context) []domain.SavedGame {
	raw, err := s.client.Get(ctx, savedGamesKey).Bytes()
	if err != nil {
		return nil
	}
	var slots []domain.SavedGame
	if err := json.Unmarshal(raw, &slots); err != nil {
		return nil
	}
	return slots
}

func (s *GameStore) writeSlots(ctx context.Context, slots []domain.SavedGame) error {
	raw, err := json.Marshal(slots)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, savedGamesKey, raw, 0).Err()
}
