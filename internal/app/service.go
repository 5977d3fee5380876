package app

import (
	"context"
	"log"
	"sync/atomic"

	"omniquiz-service/internal/domain"
)

// GameStore abstracts how named save slots are persisted (in-memory, Redis).
type GameStore interface {
	SaveGame(ctx context.Context, name string, teams []domain.Team, quiz domain.QuizData) (domain.SavedGame, error)
	SavedGames(ctx context.Context) ([]domain.SavedGame, error)
	LoadGame(ctx context.Context, name string) (domain.SavedGame, error)
	DeleteGame(ctx context.Context, name string) error
}

// QuizLibrary holds reusable quiz packs, independent of any session.
type QuizLibrary interface {
	SaveQuiz(ctx context.Context, title string, data domain.QuizData) (domain.SavedQuiz, error)
	SavedQuizzes(ctx context.Context) ([]domain.SavedQuiz, error)
	DeleteQuiz(ctx context.Context, id string) error
	// SeedDefaults imports the given packs exactly once per store; later calls
	// are no-ops so re-seeding never duplicates entries.
	SeedDefaults(ctx context.Context, packs []domain.SavedQuiz) error
}

// LiveDocument is the single shared document replicated to viewers. The
// writer replaces it wholesale; readers subscribe for change notifications.
type LiveDocument interface {
	Publish(ctx context.Context, state domain.LiveGameState) error
	Load(ctx context.Context) (domain.LiveGameState, error)
	Subscribe(ctx context.Context) (<-chan domain.LiveGameState, func(), error)
	Reset(ctx context.Context) error
}

// BuzzChannel is the one write path viewers have: signaling a buzz-in.
type BuzzChannel interface {
	Buzz(ctx context.Context, teamID int) error
	Listen(ctx context.Context) (<-chan int, func(), error)
}

// GameService wires the engine to persistence and replication. Persistence
// and live publishes are best-effort: failures are logged and gameplay
// continues in memory.
type GameService struct {
	engine  *Engine
	games   GameStore
	library QuizLibrary
	live    LiveDocument
	buzz    BuzzChannel

	liveMode atomic.Bool
}

func NewGameService(engine *Engine, games GameStore, library QuizLibrary, live LiveDocument, buzz BuzzChannel) *GameService {
	return &GameService{
		engine:  engine,
		games:   games,
		library: library,
		live:    live,
		buzz:    buzz,
	}
}

// Engine exposes the session state machine to the transport layer.
func (s *GameService) Engine() *Engine {
	return s.engine
}

// SaveCurrentGame snapshots the in-memory session into the named slot.
func (s *GameService) SaveCurrentGame(ctx context.Context, name string) (domain.SavedGame, error) {
	quiz, ok := s.engine.QuizData()
	if !ok {
		return domain.SavedGame{}, domain.ErrNoActiveGame
	}
	saved, err := s.games.SaveGame(ctx, name, s.engine.Teams(), quiz)
	if err != nil {
		return domain.SavedGame{}, err
	}
	s.engine.SetGameName(name)
	return saved, nil
}

// LoadSavedGame replaces the session from a slot, atomically: teams, quiz
// data and game name change together or not at all.
func (s *GameService) LoadSavedGame(ctx context.Context, name string) error {
	saved, err := s.games.LoadGame(ctx, name)
	if err != nil {
		return err
	}
	s.engine.Restore(saved.GameName, saved.Teams, saved.QuizData)
	return nil
}

// SavedGames lists all slots; storage failures degrade to an empty list.
func (s *GameService) SavedGames(ctx context.Context) []domain.SavedGame {
	games, err := s.games.SavedGames(ctx)
	if err != nil {
		log.Printf("saved games unavailable: %v", err)
		return nil
	}
	return games
}

// DeleteSavedGame removes all slots with that name.
func (s *GameService) DeleteSavedGame(ctx context.Context, name string) error {
	return s.games.DeleteGame(ctx, name)
}

// SaveQuizToLibrary stores a reusable quiz pack.
func (s *GameService) SaveQuizToLibrary(ctx context.Context, title string, data domain.QuizData) (domain.SavedQuiz, error) {
	return s.library.SaveQuiz(ctx, title, data)
}

// LibraryQuizzes lists quiz packs; storage failures degrade to an empty list.
func (s *GameService) LibraryQuizzes(ctx context.Context) []domain.SavedQuiz {
	quizzes, err := s.library.SavedQuizzes(ctx)
	if err != nil {
		log.Printf("quiz library unavailable: %v", err)
		return nil
	}
	return quizzes
}

// DeleteLibraryQuiz removes one pack by id.
func (s *GameService) DeleteLibraryQuiz(ctx context.Context, id string) error {
	return s.library.DeleteQuiz(ctx, id)
}

// SaveCurrentQuizToLibrary stores the session's quiz as a reusable pack.
func (s *GameService) SaveCurrentQuizToLibrary(ctx context.Context, title string) (domain.SavedQuiz, error) {
	quiz, ok := s.engine.QuizData()
	if !ok {
		return domain.SavedQuiz{}, domain.ErrNoActiveGame
	}
	return s.library.SaveQuiz(ctx, title, quiz)
}

// UseLibraryQuiz loads a library pack into the session by id.
func (s *GameService) UseLibraryQuiz(ctx context.Context, id string) error {
	quizzes, err := s.library.SavedQuizzes(ctx)
	if err != nil {
		return err
	}
	for _, quiz := range quizzes {
		if quiz.ID == id {
			s.engine.SetQuizData(quiz.Data)
			return nil
		}
	}
	return domain.ErrQuizNotFound
}

// SeedLibrary performs the one-time bulk import of default packs.
func (s *GameService) SeedLibrary(ctx context.Context, packs []domain.SavedQuiz) error {
	return s.library.SeedDefaults(ctx, packs)
}

// SetLiveMode toggles replication. While enabled, every engine state change
// is pushed to the shared document; publishing the current snapshot
// immediately lets late-started viewers catch up.
func (s *GameService) SetLiveMode(ctx context.Context, enabled bool) {
	s.liveMode.Store(enabled)
	if enabled {
		s.publish(ctx, s.engine.LiveState())
	}
}

// LiveMode reports whether replication is on.
func (s *GameService) LiveMode() bool {
	return s.liveMode.Load()
}

// Buzz forwards a viewer buzz-in to the side channel.
func (s *GameService) Buzz(ctx context.Context, teamID int) error {
	if s.buzz == nil {
		return nil
	}
	return s.buzz.Buzz(ctx, teamID)
}

// StartLivePublisher mirrors engine snapshots into the shared document until
// ctx is done. Publishes are fire-and-forget: a replication outage must never
// block the host's input loop.
func (s *GameService) StartLivePublisher(ctx context.Context) {
	updates, cancel := s.engine.Subscribe()
	go func() {
		defer cancel()
		for {
			select {
			case state, ok := <-updates:
				if !ok {
					return
				}
				if s.liveMode.Load() {
					s.publish(ctx, state)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// StartBuzzListener feeds buzz-ins from viewers into the engine.
func (s *GameService) StartBuzzListener(ctx context.Context) {
	if s.buzz == nil {
		return
	}
	buzzes, cancel, err := s.buzz.Listen(ctx)
	if err != nil {
		log.Printf("buzz channel unavailable: %v", err)
		return
	}
	go func() {
		defer cancel()
		for {
			select {
			case teamID, ok := <-buzzes:
				if !ok {
					return
				}
				s.engine.SetBuzzed(teamID)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (s *GameService) publish(ctx context.Context, state domain.LiveGameState) {
	if s.live == nil {
		return
	}
	if err := s.live.Publish(ctx, state); err != nil {
		log.Printf("live publish failed: %v", err)
	}
}
