package memory

import (
	"context"
	"fmt"
	"sync"

	"collateral-ledger/internal/core/domain"
	"collateral-ledger/internal/core/ports"
)

// Rail is an in-process value rail holding one balance per principal.
type Rail struct {
	mu       sync.Mutex
	balances map[domain.Principal]int64
}

var _ ports.ValueRail = (*Rail)(nil)

// NewRail creates a rail with no funded accounts.
func NewRail() *Rail {
	return &Rail{balances: make(map[domain.Principal]int64)}
}

// Deposit adds value to a principal's account.
func (r *Rail) Deposit(p domain.Principal, amount int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[p] += amount
}

// Balance returns a principal's account balance.
func (r *Rail) Balance(p domain.Principal) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balances[p]
}

// Transfer moves amount from one account to another.
func (r *Rail) Transfer(_ context.Context, from, to domain.Principal, amount int64) error {
	if amount <= 0 {
		return ports.ErrNonPositiveTransfer
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.balances[from] < amount {
		return fmt.Errorf("transfer %d from %s: %w", amount, from, ports.ErrInsufficientValue)
	}
	r.balances[from] -= amount
	r.balances[to] += amount
	return nil
}
