package postgres

import (
	"context"
	"fmt"

	"collateral-ledger/internal/core/domain"
	"collateral-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// JournalRepo is the durable event journal backed by ledger_events.
type JournalRepo struct {
	pool Pool
	tx   *Transactor
}

var _ ports.EventJournal = (*JournalRepo)(nil)

// NewJournalRepo creates a new JournalRepo.
func NewJournalRepo(pool Pool) *JournalRepo {
	return &JournalRepo{pool: pool, tx: NewTransactor(pool)}
}

// Name returns the sink name.
func (r *JournalRepo) Name() string {
	return "postgres-journal"
}

// Publish appends a batch of events in one transaction. Sequences already
// journaled are skipped.
func (r *JournalRepo) Publish(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	query := `INSERT INTO ledger_events (id, sequence, event_type, collection_id, token_id, principal,
		counterparty, amount, interest_rate_bps, kind, occurred_at, prev_digest, digest)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (sequence) DO NOTHING`

	return r.tx.InTx(ctx, func(tx pgx.Tx) error {
		for _, e := range events {
			_, err := tx.Exec(ctx, query,
				e.ID, int64(e.Sequence), string(e.Type), e.Key.CollectionID, e.Key.TokenID, string(e.Principal),
				string(e.Counterparty), e.Amount, e.InterestRateBasisPoints, string(e.Kind), e.OccurredAt,
				e.PrevDigest, e.Digest,
			)
			if err != nil {
				return fmt.Errorf("insert ledger event %d: %w", e.Sequence, err)
			}
		}
		return nil
	})
}

// LoadAll returns the whole journal in sequence order.
func (r *JournalRepo) LoadAll(ctx context.Context) ([]domain.Event, error) {
	query := `SELECT id, sequence, event_type, collection_id, token_id, principal,
		counterparty, amount, interest_rate_bps, kind, occurred_at, prev_digest, digest
		FROM ledger_events ORDER BY sequence ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query ledger events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		var seq int64
		var eventType, principal, counterparty, kind string
		if err := rows.Scan(
			&e.ID, &seq, &eventType, &e.Key.CollectionID, &e.Key.TokenID, &principal,
			&counterparty, &e.Amount, &e.InterestRateBasisPoints, &kind, &e.OccurredAt,
			&e.PrevDigest, &e.Digest,
		); err != nil {
			return nil, fmt.Errorf("scan ledger event: %w", err)
		}
		e.Sequence = uint64(seq)
		e.Type = domain.EventType(eventType)
		e.Principal = domain.Principal(principal)
		e.Counterparty = domain.Principal(counterparty)
		e.Kind = domain.ProceedsKind(kind)
		e.OccurredAt = e.OccurredAt.UTC()
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger events: %w", err)
	}
	return events, nil
}
