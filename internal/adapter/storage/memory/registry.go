package memory

import (
	"context"
	"fmt"
	"sync"

	"collateral-ledger/internal/core/domain"
	"collateral-ledger/internal/core/ports"
)

type token struct {
	owner    domain.Principal
	approved domain.Principal
}

type operatorGrant struct {
	owner    domain.Principal
	operator domain.Principal
}

// Registry is an in-process asset registry. Moves are performed on behalf
// of a single mover, normally the ledger's custody principal.
type Registry struct {
	mover domain.Principal

	mu        sync.RWMutex
	tokens    map[domain.CollateralKey]*token
	operators map[operatorGrant]bool
}

var _ ports.AssetRegistry = (*Registry)(nil)

// NewRegistry creates an empty registry whose Move acts as mover.
func NewRegistry(mover domain.Principal) *Registry {
	return &Registry{
		mover:     mover,
		tokens:    make(map[domain.CollateralKey]*token),
		operators: make(map[operatorGrant]bool),
	}
}

// Mint creates or reassigns a token.
func (r *Registry) Mint(key domain.CollateralKey, owner domain.Principal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[key] = &token{owner: owner}
}

// Approve lets operator move a single token. Only the owner may approve.
func (r *Registry) Approve(key domain.CollateralKey, owner, operator domain.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[key]
	if !ok {
		return fmt.Errorf("approve %s: %w", key, ports.ErrTokenNotFound)
	}
	if t.owner != owner {
		return fmt.Errorf("approve %s: %w", key, ports.ErrNotTokenOwner)
	}
	t.approved = operator
	return nil
}

// SetApprovalForAll grants or revokes operator over every token of owner.
func (r *Registry) SetApprovalForAll(owner, operator domain.Principal, approved bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g := operatorGrant{owner: owner, operator: operator}
	if approved {
		r.operators[g] = true
		return
	}
	delete(r.operators, g)
}

// OwnerOf returns the current owner, or "" for an unknown token.
func (r *Registry) OwnerOf(_ context.Context, key domain.CollateralKey) (domain.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.tokens[key]; ok {
		return t.owner, nil
	}
	return "", nil
}

// IsApproved reports single-token or operator approval.
func (r *Registry) IsApproved(_ context.Context, key domain.CollateralKey, operator domain.Principal) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tokens[key]
	if !ok {
		return false, nil
	}
	return t.approved == operator || r.operators[operatorGrant{owner: t.owner, operator: operator}], nil
}

// Move transfers the token from its current owner. The single-token
// approval is cleared on every move.
func (r *Registry) Move(_ context.Context, key domain.CollateralKey, from, to domain.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[key]
	if !ok {
		return fmt.Errorf("move %s: %w", key, ports.ErrTokenNotFound)
	}
	if t.owner != from {
		return fmt.Errorf("move %s: %w", key, ports.ErrNotTokenOwner)
	}
	authorized := r.mover == from || t.approved == r.mover || r.operators[operatorGrant{owner: from, operator: r.mover}]
	if !authorized {
		return fmt.Errorf("move %s: %w", key, ports.ErrMoveNotAuthorized)
	}
	t.owner = to
	t.approved = ""
	return nil
}
