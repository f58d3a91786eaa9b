package memory

import (
	"fmt"

	"collateral-ledger/internal/core/domain"
)

// SeedToken is a token minted at startup. ApproveMover approves the
// registry's mover for it, so it can be listed without a separate grant.
type SeedToken struct {
	Key          domain.CollateralKey
	Owner        domain.Principal
	ApproveMover bool
}

// Seed mints tokens into reg and deposits balances into rail.
func Seed(reg *Registry, rail *Rail, tokens []SeedToken, balances map[domain.Principal]int64) error {
	for _, t := range tokens {
		if !t.Key.Valid() || t.Owner == "" {
			return fmt.Errorf("seed token %s: collection, token id and owner are required", t.Key)
		}
		reg.Mint(t.Key, t.Owner)
		if t.ApproveMover {
			if err := reg.Approve(t.Key, t.Owner, reg.mover); err != nil {
				return fmt.Errorf("seed token %s: %w", t.Key, err)
			}
		}
	}
	for p, amount := range balances {
		if amount < 0 {
			return fmt.Errorf("seed balance %s: amount must not be negative", p)
		}
		rail.Deposit(p, amount)
	}
	return nil
}
