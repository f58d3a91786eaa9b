package ports

import (
	"context"
	"errors"
	"time"

	"collateral-ledger/internal/core/domain"
)

// Registry and rail failure causes. Adapters wrap these with context.
var (
	ErrTokenNotFound       = errors.New("token not found")
	ErrNotTokenOwner       = errors.New("from is not the current token owner")
	ErrMoveNotAuthorized   = errors.New("mover is not authorized for the token")
	ErrInsufficientValue   = errors.New("insufficient value on rail account")
	ErrNonPositiveTransfer = errors.New("transfer amount must be positive")
)

// AssetRegistry is the external custody tracker for collateral tokens.
// The ledger observes ownership and requests moves; it never mints.
type AssetRegistry interface {
	// OwnerOf returns the current owner, or "" when the token is unknown.
	OwnerOf(ctx context.Context, key domain.CollateralKey) (domain.Principal, error)
	// IsApproved reports whether operator may move the token on the owner's behalf.
	IsApproved(ctx context.Context, key domain.CollateralKey, operator domain.Principal) (bool, error)
	// Move transfers the token. Fails when from is not the owner or the
	// registry's mover lacks authorization.
	Move(ctx context.Context, key domain.CollateralKey, from, to domain.Principal) error
}

// ValueRail moves fungible value between principals.
type ValueRail interface {
	Transfer(ctx context.Context, from, to domain.Principal, amount int64) error
}

// EventSink receives committed ledger events in sequence order.
type EventSink interface {
	Publish(ctx context.Context, events []domain.Event) error
	Name() string
}

// EventJournal is a durable EventSink that can replay its history.
type EventJournal interface {
	EventSink
	LoadAll(ctx context.Context) ([]domain.Event, error)
}

// IdempotencyCache stores responses of mutating requests.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// WebhookDeliveryRepository records webhook delivery attempts.
type WebhookDeliveryRepository interface {
	Create(ctx context.Context, d *domain.WebhookDelivery) error
	Update(ctx context.Context, d *domain.WebhookDelivery) error
	ListPending(ctx context.Context, limit int) ([]domain.WebhookDelivery, error)
}
