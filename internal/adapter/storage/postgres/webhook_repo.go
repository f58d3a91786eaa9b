package postgres

import (
	"context"
	"fmt"

	"collateral-ledger/internal/core/domain"
	"collateral-ledger/internal/core/ports"
)

// WebhookRepo implements ports.WebhookDeliveryRepository.
type WebhookRepo struct {
	pool Pool
}

var _ ports.WebhookDeliveryRepository = (*WebhookRepo)(nil)

// NewWebhookRepo creates a PostgreSQL-backed webhook delivery log.
func NewWebhookRepo(pool Pool) *WebhookRepo {
	return &WebhookRepo{pool: pool}
}

// Create inserts a new delivery record.
func (r *WebhookRepo) Create(ctx context.Context, d *domain.WebhookDelivery) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO webhook_deliveries
		(id, webhook_url, first_sequence, last_sequence, payload, http_status, attempt, status, next_retry_at, last_error, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		d.ID, d.WebhookURL, int64(d.FirstSequence), int64(d.LastSequence),
		d.Payload, d.HTTPStatus, d.Attempt, string(d.Status),
		d.NextRetryAt, d.LastError, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert webhook delivery: %w", err)
	}
	return nil
}

// Update records the outcome of the latest attempt.
func (r *WebhookRepo) Update(ctx context.Context, d *domain.WebhookDelivery) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE webhook_deliveries
		SET http_status=$1, attempt=$2, status=$3, next_retry_at=$4, last_error=$5, updated_at=$6
		WHERE id=$7`,
		d.HTTPStatus, d.Attempt, string(d.Status),
		d.NextRetryAt, d.LastError, d.UpdatedAt, d.ID,
	)
	if err != nil {
		return fmt.Errorf("update webhook delivery %s: %w", d.ID, err)
	}
	return nil
}

// ListPending returns the oldest deliveries still PENDING.
func (r *WebhookRepo) ListPending(ctx context.Context, limit int) ([]domain.WebhookDelivery, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, webhook_url, first_sequence, last_sequence, payload,
		http_status, attempt, status, next_retry_at, last_error,
		created_at, updated_at
		FROM webhook_deliveries
		WHERE status = $1
		ORDER BY first_sequence
		LIMIT $2`, string(domain.WebhookStatusPending), limit)
	if err != nil {
		return nil, fmt.Errorf("list pending webhook deliveries: %w", err)
	}
	defer rows.Close()

	var out []domain.WebhookDelivery
	for rows.Next() {
		var (
			d           domain.WebhookDelivery
			first, last int64
			status      string
		)
		if err := rows.Scan(
			&d.ID, &d.WebhookURL, &first, &last, &d.Payload,
			&d.HTTPStatus, &d.Attempt, &status, &d.NextRetryAt, &d.LastError,
			&d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan webhook delivery: %w", err)
		}
		d.FirstSequence = uint64(first)
		d.LastSequence = uint64(last)
		d.Status = domain.WebhookStatus(status)
		out = append(out, d)
	}
	return out, rows.Err()
}
