package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"collateral-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// IdempotencyRepo stores Idempotency-Key responses and in-flight claims in
// PostgreSQL. It backs the HTTP idempotency middleware when Redis is not
// configured. Expired rows are ignored on read and overwritten on write.
type IdempotencyRepo struct {
	pool Pool
	now  func() time.Time
}

var _ ports.IdempotencyCache = (*IdempotencyRepo)(nil)

// NewIdempotencyRepo creates a new IdempotencyRepo.
func NewIdempotencyRepo(pool Pool) *IdempotencyRepo {
	return &IdempotencyRepo{pool: pool, now: time.Now}
}

// Get returns the stored response, or nil, nil when absent or expired.
func (r *IdempotencyRepo) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT response FROM idempotency_responses WHERE key = $1 AND expires_at > $2`

	var response []byte
	err := r.pool.QueryRow(ctx, query, key, r.now()).Scan(&response)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotency response: %w", err)
	}
	return response, nil
}

// Set stores a response until ttl elapses.
func (r *IdempotencyRepo) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	query := `INSERT INTO idempotency_responses (key, response, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET response = EXCLUDED.response, expires_at = EXCLUDED.expires_at`

	if _, err := r.pool.Exec(ctx, query, key, value, r.now().Add(ttl)); err != nil {
		return fmt.Errorf("store idempotency response: %w", err)
	}
	return nil
}

// Claim takes an in-flight claim on key. An expired claim can be retaken.
func (r *IdempotencyRepo) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	query := `INSERT INTO idempotency_claims (key, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET expires_at = EXCLUDED.expires_at
		WHERE idempotency_claims.expires_at <= $3`

	now := r.now()
	tag, err := r.pool.Exec(ctx, query, key, now.Add(ttl), now)
	if err != nil {
		return false, fmt.Errorf("claim idempotency key: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Release drops a claim taken by Claim.
func (r *IdempotencyRepo) Release(ctx context.Context, key string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM idempotency_claims WHERE key = $1`, key); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
