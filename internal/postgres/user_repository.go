package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pscheid92/streamward/internal/domain"
)

// UserRepo implements domain.UserRepository backed by PostgreSQL.
type UserRepo struct {
	q Querier
}

func NewUserRepo(q Querier) *UserRepo {
	return &UserRepo{q: q}
}

func (r *UserRepo) GetByID(ctx context.Context, broadcasterID string) (*domain.User, error) {
	const query = `
		SELECT id, username, access_token, refresh_token, token_expiry,
		       invite_link, fallback_labels, created_at, updated_at
		FROM users
		WHERE id = $1`

	var user domain.User
	err := r.q.QueryRow(ctx, query, broadcasterID).Scan(
		&user.ID, &user.Username, &user.AccessToken, &user.RefreshToken, &user.TokenExpiry,
		&user.InviteLink, &user.FallbackLabels, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *UserRepo) UpdateTokens(ctx context.Context, broadcasterID, accessToken, refreshToken string, tokenExpiry time.Time) error {
	const query = `
		UPDATE users
		SET access_token = $2, refresh_token = $3, token_expiry = $4, updated_at = now()
		WHERE id = $1`

	tag, err := r.q.Exec(ctx, query, broadcasterID, accessToken, refreshToken, tokenExpiry)
	if err != nil {
		return fmt.Errorf("failed to update tokens: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
