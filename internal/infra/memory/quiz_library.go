package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"omniquiz-service/internal/domain"
)

// PackLoader fetches durable quiz packs from a backing store (e.g. Postgres).
type PackLoader interface {
	LoadPacks(ctx context.Context) ([]domain.SavedQuiz, error)
}

// QuizLibrary is an in-memory implementation of app.QuizLibrary. An optional
// PackLoader contributes durable packs, cached with TTL to avoid repeated
// backend hits.
type QuizLibrary struct {
	loader PackLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu      sync.RWMutex
	quizzes []domain.SavedQuiz
	seeded  bool

	packs        []domain.SavedQuiz
	packsExpires time.Time
}

func NewQuizLibrary() *QuizLibrary {
	return &QuizLibrary{clock: time.Now}
}

// NewQuizLibraryWithLoader attaches a durable pack source with a cache TTL.
func NewQuizLibraryWithLoader(loader PackLoader, ttl time.Duration) *QuizLibrary {
	return &QuizLibrary{loader: loader, ttl: ttl, clock: time.Now}
}

func (l *QuizLibrary) SaveQuiz(ctx context.Context, title string, data domain.QuizData) (domain.SavedQuiz, error) {
	quiz := domain.SavedQuiz{
		ID:      uuid.NewString(),
		Title:   title,
		Data:    data.Clone(),
		SavedAt: l.clock(),
	}
	l.mu.Lock()
	l.quizzes = append(l.quizzes, quiz)
	l.mu.Unlock()
	return quiz, nil
}

func (l *QuizLibrary) SavedQuizzes(ctx context.Context) ([]domain.SavedQuiz, error) {
	packs := l.loadPacks(ctx)

	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.SavedQuiz, 0, len(packs)+len(l.quizzes))
	out = append(out, packs...)
	out = append(out, l.quizzes...)
	return out, nil
}

func (l *QuizLibrary) DeleteQuiz(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.quizzes[:0]
	for _, quiz := range l.quizzes {
		if quiz.ID != id {
			kept = append(kept, quiz)
		}
	}
	l.quizzes = kept
	return nil
}

func (l *QuizLibrary) SeedDefaults(ctx context.Context, packs []domain.SavedQuiz) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.seeded {
		return nil
	}
	l.seeded = true
	l.quizzes = append(l.quizzes, packs...)
	return nil
}

// loadPacks returns durable packs through a TTL cache; loader failures are
// treated as an empty contribution, never an error.
func (l *QuizLibrary) loadPacks(ctx context.Context) []domain.SavedQuiz {
	if l.loader == nil {
		return nil
	}
	now := l.clock()

	l.mu.RLock()
	if l.packsExpires.After(now) {
		packs := l.packs
		l.mu.RUnlock()
		return packs
	}
	l.mu.RUnlock()

	result, err, _ := l.sf.Do("packs", func() (interface{}, error) {
		packs, err := l.loader.LoadPacks(ctx)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.packs = packs
		l.packsExpires = l.clock().Add(l.ttl)
		l.mu.Unlock()
		return packs, nil
	})
	if err != nil {
		return nil
	}
	return result.([]domain.SavedQuiz)
}
