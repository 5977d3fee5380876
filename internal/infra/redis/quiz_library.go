package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"omniquiz-service/internal/domain"
	"omniquiz-service/internal/infra/memory"
)

const (
	savedQuizzesKey = "omniquiz:saved-quizzes"
	librarySeedKey  = "omniquiz:library-initialized"
)

// QuizLibrary stores reusable quiz packs as a JSON array in Redis, optionally
// merged with durable packs from a backing loader (Postgres) cached with TTL.
// A one-time flag gates the bulk import of default packs: once it is set,
// re-seeding never duplicates entries.
type QuizLibrary struct {
	client *redis.Client
	loader memory.PackLoader
	ttl    time.Duration
	sf     singleflight.Group
	now    func() time.Time
}

func NewQuizLibrary(client *redis.Client, loader memory.PackLoader, ttl time.Duration) *QuizLibrary {
	return &QuizLibrary{
		client: client,
		loader: loader,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (l *QuizLibrary) SaveQuiz(ctx context.Context, title string, data domain.QuizData) (domain.SavedQuiz, error) {
	quiz := domain.SavedQuiz{
		ID:      uuid.NewString(),
		Title:   title,
		Data:    data.Clone(),
		SavedAt: l.now(),
	}
	quizzes := l.readQuizzes(ctx)
	quizzes = append(quizzes, quiz)
	if err := l.writeQuizzes(ctx, quizzes); err != nil {
		return domain.SavedQuiz{}, err
	}
	return quiz, nil
}

func (l *QuizLibrary) SavedQuizzes(ctx context.Context) ([]domain.SavedQuiz, error) {
	packs := l.loadPacks(ctx)
	stored := l.readQuizzes(ctx)
	out := make([]domain.SavedQuiz, 0, len(packs)+len(stored))
	out = append(out, packs...)
	out = append(out, stored...)
	return out, nil
}

func (l *QuizLibrary) DeleteQuiz(ctx context.Context, id string) error {
	quizzes := l.readQuizzes(ctx)
	kept := quizzes[:0]
	for _, quiz := range quizzes {
		if quiz.ID != id {
			kept = append(kept, quiz)
		}
	}
	return l.writeQuizzes(ctx, kept)
}

func (l *QuizLibrary) SeedDefaults(ctx context.Context, packs []domain.SavedQuiz) error {
	set, err := l.client.SetNX(ctx, librarySeedKey, "1", 0).Result()
	if err != nil {
		return err
	}
	if !set {
		return nil
	}
	quizzes := l.readQuizzes(ctx)
	quizzes = append(quizzes, packs...)
	return l.writeQuizzes(ctx, quizzes)
}

// loadPacks pulls durable packs through a singleflight-guarded TTL cache held
// in Redis itself (a secondary key), so concurrent readers fill it once.
func (l *QuizLibrary) loadPacks(ctx context.Context) []domain.SavedQuiz {
	if l.loader == nil {
		return nil
	}
	const cacheKey = "omniquiz:library-packs"

	raw, err := l.client.Get(ctx, cacheKey).Bytes()
	if err == nil {
		var packs []domain.SavedQuiz
		if json.Unmarshal(raw, &packs) == nil {
			return packs
		}
	}

	result, err, _ := l.sf.Do(cacheKey, func() (interface{}, error) {
		raw, err := l.client.Get(ctx, cacheKey).Bytes()
		if err == nil {
			var packs []domain.SavedQuiz
			if json.Unmarshal(raw, &packs) == nil {
				return packs, nil
			}
		}
		packs, err := l.loader.LoadPacks(ctx)
		if err != nil {
			return nil, err
		}
		if encoded, err := json.Marshal(packs); err == nil {
			_ = l.client.Set(ctx, cacheKey, encoded, l.ttl).Err()
		}
		return packs, nil
	})
	if err != nil {
		return nil
	}
	return result.([]domain.SavedQuiz)
}

func (l *QuizLibrary) readQuizzes(ctx context.Context) []domain.SavedQuiz {
	raw, err := l.client.Get(ctx, savedQuizzesKey).Bytes()
	if err != nil {
		return nil
	}
	var quizzes []domain.SavedQuiz
	if err := json.Unmarshal(raw, &quizzes); err != nil {
		return nil
	}
	return quizzes
}

func (l *QuizLibrary) writeQuizzes(ctx context.Context, quizzes []domain.SavedQuiz) error {
	raw, err := json.Marshal(quizzes)
	if err != nil {
		return err
	}
	return l.client.Set(ctx, savedQuizzesKey, raw, 0).Err()
}

// StaticPackLoader is a loader backed by a fixed slice (tests/demos).
type StaticPackLoader struct {
	packs []domain.SavedQuiz
}

func NewStaticPackLoader(packs []domain.SavedQuiz) *StaticPackLoader {
	return &StaticPackLoader{packs: packs}
}

func (l *StaticPackLoader) LoadPacks(_ context.Context) ([]domain.SavedQuiz, error) {
	return l.packs, nil
}
