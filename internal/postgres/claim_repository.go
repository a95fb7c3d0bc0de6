package postgres

import (
	"context"
	"fmt"
)

// ClaimRepo implements domain.ClaimRepository with a conditional insert.
// The primary key makes the claim a true first-writer-wins marker across
// processes and restarts, which an in-memory map cannot give.
type ClaimRepo struct {
	q Querier
}

func NewClaimRepo(q Querier) *ClaimRepo {
	return &ClaimRepo{q: q}
}

// Claim returns true iff this call inserted the key, i.e. won the claim.
func (r *ClaimRepo) Claim(ctx context.Context, broadcasterID, key string) (bool, error) {
	const query = `
		INSERT INTO notification_claims (broadcaster_id, claim_key)
		VALUES ($1, $2)
		ON CONFLICT (broadcaster_id, claim_key) DO NOTHING`

	tag, err := r.q.Exec(ctx, query, broadcasterID, key)
	if err != nil {
		return false, fmt.Errorf("failed to claim key: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
