package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pscheid92/streamward/internal/domain"
)

// GameRepo implements domain.GameLibraryRepository backed by PostgreSQL.
type GameRepo struct {
	q Querier
}

func NewGameRepo(q Querier) *GameRepo {
	return &GameRepo{q: q}
}

func (r *GameRepo) Get(ctx context.Context, broadcasterID, gameID string) (*domain.GameEntry, error) {
	const query = `
		SELECT broadcaster_id, game_id, game_name, labels, updated_at
		FROM game_library
		WHERE broadcaster_id = $1 AND game_id = $2`

	var entry domain.GameEntry
	err := r.q.QueryRow(ctx, query, broadcasterID, gameID).Scan(
		&entry.BroadcasterID, &entry.GameID, &entry.GameName, &entry.Labels, &entry.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game entry: %w", err)
	}
	return &entry, nil
}

func (r *GameRepo) Upsert(ctx context.Context, entry *domain.GameEntry) error {
	const query = `
		INSERT INTO game_library (broadcaster_id, game_id, game_name, labels, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (broadcaster_id, game_id) DO UPDATE SET
			game_name = EXCLUDED.game_name,
			labels = EXCLUDED.labels,
			updated_at = EXCLUDED.updated_at`

	_, err := r.q.Exec(ctx, query,
		entry.BroadcasterID, entry.GameID, entry.GameName, entry.Labels, entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert game entry: %w", err)
	}
	return nil
}
