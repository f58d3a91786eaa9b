package postgres

import (
	"context"
	"errors"
	"fmt"

	"collateral-ledger/internal/core/domain"
	"collateral-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// RegistryRepo implements ports.AssetRegistry over registry_tokens and
// registry_operators. Moves are performed on behalf of mover.
type RegistryRepo struct {
	pool  Pool
	tx    *Transactor
	mover domain.Principal
}

var _ ports.AssetRegistry = (*RegistryRepo)(nil)

// NewRegistryRepo creates a new RegistryRepo.
func NewRegistryRepo(pool Pool, mover domain.Principal) *RegistryRepo {
	return &RegistryRepo{pool: pool, tx: NewTransactor(pool), mover: mover}
}

// OwnerOf returns the token owner, or "" when the token is unknown.
func (r *RegistryRepo) OwnerOf(ctx context.Context, key domain.CollateralKey) (domain.Principal, error) {
	query := `SELECT owner FROM registry_tokens WHERE collection_id = $1 AND token_id = $2`

	var owner string
	err := r.pool.QueryRow(ctx, query, key.CollectionID, key.TokenID).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("get token owner: %w", err)
	}
	return domain.Principal(owner), nil
}

// IsApproved reports single-token approval or an operator grant from the owner.
func (r *RegistryRepo) IsApproved(ctx context.Context, key domain.CollateralKey, operator domain.Principal) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM registry_tokens t
		WHERE t.collection_id = $1 AND t.token_id = $2
		AND (t.approved = $3 OR EXISTS (
			SELECT 1 FROM registry_operators o WHERE o.owner = t.owner AND o.operator = $3)))`

	var approved bool
	if err := r.pool.QueryRow(ctx, query, key.CollectionID, key.TokenID, string(operator)).Scan(&approved); err != nil {
		return false, fmt.Errorf("get token approval: %w", err)
	}
	return approved, nil
}

// Move transfers the token under a row lock and clears its approval.
func (r *RegistryRepo) Move(ctx context.Context, key domain.CollateralKey, from, to domain.Principal) error {
	return r.tx.InTx(ctx, func(tx pgx.Tx) error {
		var owner, approved string
		err := tx.QueryRow(ctx,
			`SELECT owner, COALESCE(approved, '') FROM registry_tokens
			WHERE collection_id = $1 AND token_id = $2 FOR UPDATE`,
			key.CollectionID, key.TokenID,
		).Scan(&owner, &approved)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("move %s: %w", key, ports.ErrTokenNotFound)
			}
			return fmt.Errorf("lock token: %w", err)
		}
		if domain.Principal(owner) != from {
			return fmt.Errorf("move %s: %w", key, ports.ErrNotTokenOwner)
		}

		authorized := r.mover == from || domain.Principal(approved) == r.mover
		if !authorized {
			err := tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM registry_operators WHERE owner = $1 AND operator = $2)`,
				string(from), string(r.mover),
			).Scan(&authorized)
			if err != nil {
				return fmt.Errorf("get operator grant: %w", err)
			}
		}
		if !authorized {
			return fmt.Errorf("move %s: %w", key, ports.ErrMoveNotAuthorized)
		}

		tag, err := tx.Exec(ctx,
			`UPDATE registry_tokens SET owner = $1, approved = NULL, updated_at = NOW()
			WHERE collection_id = $2 AND token_id = $3`,
			string(to), key.CollectionID, key.TokenID,
		)
		if err != nil {
			return fmt.Errorf("update token owner: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("move %s: %w", key, ports.ErrTokenNotFound)
		}
		return nil
	})
}
