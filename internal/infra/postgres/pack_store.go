package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"omniquiz-service/internal/domain"
)

// PackStore loads and saves durable quiz packs as JSONB.
type PackStore struct {
	pool *pgxpool.Pool
}

func NewPackStore(pool *pgxpool.Pool) *PackStore {
	return &PackStore{pool: pool}
}

// LoadPacks returns all packs in insertion order.
func (s *PackStore) LoadPacks(ctx context.Context) ([]domain.SavedQuiz, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, title, data, saved_at FROM quiz_packs ORDER BY saved_at`)
	if err != nil {
		return nil, fmt.Errorf("load quiz packs: %w", err)
	}
	defer rows.Close()

	var packs []domain.SavedQuiz
	for rows.Next() {
		var pack domain.SavedQuiz
		var raw []byte
		if err := rows.Scan(&pack.ID, &pack.Title, &raw, &pack.SavedAt); err != nil {
			return nil, fmt.Errorf("scan quiz pack: %w", err)
		}
		if err := json.Unmarshal(raw, &pack.Data); err != nil {
			return nil, fmt.Errorf("unmarshal quiz pack %s: %w", pack.ID, err)
		}
		packs = append(packs, pack)
	}
	return packs, rows.Err()
}

// SavePack upserts one pack by id.
func (s *PackStore) SavePack(ctx context.Context, pack domain.SavedQuiz) error {
	raw, err := json.Marshal(pack.Data)
	if err != nil {
		return fmt.Errorf("marshal quiz pack: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO quiz_packs (id, title, data, saved_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, data=EXCLUDED.data, saved_at=EXCLUDED.saved_at`,
		pack.ID, pack.Title, raw, pack.SavedAt)
	if err != nil {
		return fmt.Errorf("save quiz pack: %w", err)
	}
	return nil
}
