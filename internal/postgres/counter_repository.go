package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pscheid92/streamward/internal/domain"
)

// CounterRepo implements domain.CounterRepository backed by PostgreSQL.
type CounterRepo struct {
	q Querier
}

func NewCounterRepo(q Querier) *CounterRepo {
	return &CounterRepo{q: q}
}

func (r *CounterRepo) GetByBroadcaster(ctx context.Context, broadcasterID string) (*domain.Counters, error) {
	const query = `
		SELECT broadcaster_id, game_id, game_name, follows, subs, gifted_subs,
		       bits_this_stream, bits_total, stream_started, updated_at
		FROM counters
		WHERE broadcaster_id = $1`

	var c domain.Counters
	err := r.q.QueryRow(ctx, query, broadcasterID).Scan(
		&c.BroadcasterID, &c.GameID, &c.GameName, &c.Follows, &c.Subs, &c.GiftedSubs,
		&c.BitsThisStream, &c.BitsTotal, &c.StreamStarted, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCountersNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get counters: %w", err)
	}
	return &c, nil
}

func (r *CounterRepo) Save(ctx context.Context, c *domain.Counters) error {
	const query = `
		INSERT INTO counters (broadcaster_id, game_id, game_name, follows, subs, gifted_subs,
		                      bits_this_stream, bits_total, stream_started, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (broadcaster_id) DO UPDATE SET
			game_id = EXCLUDED.game_id,
			game_name = EXCLUDED.game_name,
			follows = EXCLUDED.follows,
			subs = EXCLUDED.subs,
			gifted_subs = EXCLUDED.gifted_subs,
			bits_this_stream = EXCLUDED.bits_this_stream,
			bits_total = EXCLUDED.bits_total,
			stream_started = EXCLUDED.stream_started,
			updated_at = now()`

	_, err := r.q.Exec(ctx, query,
		c.BroadcasterID, c.GameID, c.GameName, c.Follows, c.Subs, c.GiftedSubs,
		c.BitsThisStream, c.BitsTotal, c.StreamStarted,
	)
	if err != nil {
		return fmt.Errorf("failed to save counters: %w", err)
	}
	return nil
}

func (r *CounterRepo) GetGameSnapshot(ctx context.Context, broadcasterID, gameID string) (*domain.GameSnapshot, error) {
	const query = `
		SELECT broadcaster_id, game_id, game_name, follows, subs, gifted_subs, bits_total, saved_at
		FROM game_snapshots
		WHERE broadcaster_id = $1 AND game_id = $2`

	var s domain.GameSnapshot
	err := r.q.QueryRow(ctx, query, broadcasterID, gameID).Scan(
		&s.BroadcasterID, &s.GameID, &s.GameName, &s.Follows, &s.Subs, &s.GiftedSubs,
		&s.BitsTotal, &s.SavedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game snapshot: %w", err)
	}
	return &s, nil
}

func (r *CounterRepo) SaveGameSnapshot(ctx context.Context, s *domain.GameSnapshot) error {
	const query = `
		INSERT INTO game_snapshots (broadcaster_id, game_id, game_name, follows, subs,
		                            gifted_subs, bits_total, saved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (broadcaster_id, game_id) DO UPDATE SET
			game_name = EXCLUDED.game_name,
			follows = EXCLUDED.follows,
			subs = EXCLUDED.subs,
			gifted_subs = EXCLUDED.gifted_subs,
			bits_total = EXCLUDED.bits_total,
			saved_at = EXCLUDED.saved_at`

	_, err := r.q.Exec(ctx, query,
		s.BroadcasterID, s.GameID, s.GameName, s.Follows, s.Subs, s.GiftedSubs,
		s.BitsTotal, s.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save game snapshot: %w", err)
	}
	return nil
}
