package postgres

import (
	"context"
	"errors"
	"fmt"

	"collateral-ledger/internal/core/domain"
	"collateral-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RailRepo implements ports.ValueRail over rail_accounts. Every transfer
// is recorded in rail_transfers.
type RailRepo struct {
	pool Pool
	tx   *Transactor
}

var _ ports.ValueRail = (*RailRepo)(nil)

// NewRailRepo creates a new RailRepo.
func NewRailRepo(pool Pool) *RailRepo {
	return &RailRepo{pool: pool, tx: NewTransactor(pool)}
}

// Balance returns a principal's balance, zero for an unknown account.
func (r *RailRepo) Balance(ctx context.Context, p domain.Principal) (int64, error) {
	var balance int64
	err := r.pool.QueryRow(ctx, `SELECT balance FROM rail_accounts WHERE principal = $1`, string(p)).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get rail balance: %w", err)
	}
	return balance, nil
}

// Transfer debits from and credits to in one transaction. Both accounts
// are locked in principal order so opposing transfers cannot deadlock.
func (r *RailRepo) Transfer(ctx context.Context, from, to domain.Principal, amount int64) error {
	if amount <= 0 {
		return ports.ErrNonPositiveTransfer
	}

	return r.tx.InTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT principal, balance FROM rail_accounts
			WHERE principal IN ($1, $2) ORDER BY principal FOR UPDATE`,
			string(from), string(to),
		)
		if err != nil {
			return fmt.Errorf("lock rail accounts: %w", err)
		}
		balances := make(map[domain.Principal]int64, 2)
		for rows.Next() {
			var principal string
			var balance int64
			if err := rows.Scan(&principal, &balance); err != nil {
				rows.Close()
				return fmt.Errorf("scan rail account: %w", err)
			}
			balances[domain.Principal(principal)] = balance
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate rail accounts: %w", err)
		}

		if balances[from] < amount {
			return fmt.Errorf("transfer %d from %s: %w", amount, from, ports.ErrInsufficientValue)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE rail_accounts SET balance = balance - $1, updated_at = NOW() WHERE principal = $2`,
			amount, string(from),
		); err != nil {
			return fmt.Errorf("debit rail account: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO rail_accounts (principal, balance, updated_at) VALUES ($1, $2, NOW())
			ON CONFLICT (principal) DO UPDATE SET balance = rail_accounts.balance + EXCLUDED.balance, updated_at = NOW()`,
			string(to), amount,
		); err != nil {
			return fmt.Errorf("credit rail account: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO rail_transfers (id, from_principal, to_principal, amount, created_at)
			VALUES ($1, $2, $3, $4, NOW())`,
			uuid.New(), string(from), string(to), amount,
		); err != nil {
			return fmt.Errorf("insert rail transfer: %w", err)
		}
		return nil
	})
}
