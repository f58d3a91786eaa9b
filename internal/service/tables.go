package service

import "collateral-ledger/internal/core/domain"

// listingTable holds at most one listing per collateral key.
type listingTable map[domain.CollateralKey]domain.Listing

func (t listingTable) lookup(key domain.CollateralKey) domain.Listing {
	return t[key]
}

func (t listingTable) insert(l domain.Listing) {
	t[l.Key] = l
}

func (t listingTable) remove(key domain.CollateralKey) {
	delete(t, key)
}

// loanTable holds the single active loan of each borrower.
type loanTable map[domain.Principal]domain.Loan

func (t loanTable) lookup(borrower domain.Principal) domain.Loan {
	return t[borrower]
}

// put stores the loan and returns the one it replaced, if any.
func (t loanTable) put(l domain.Loan) (domain.Loan, bool) {
	prev, ok := t[l.Borrower]
	t[l.Borrower] = l
	return prev, ok && prev.Exists()
}

func (t loanTable) remove(borrower domain.Principal) {
	delete(t, borrower)
}

// balanceBook is one account of pending withdrawable value per principal.
// Balances never go negative.
type balanceBook map[domain.Principal]int64

func (b balanceBook) balance(p domain.Principal) int64 {
	return b[p]
}

func (b balanceBook) credit(p domain.Principal, amount int64) {
	b[p] += amount
}

// take zeroes the balance and returns what it held.
func (b balanceBook) take(p domain.Principal) int64 {
	amount := b[p]
	delete(b, p)
	return amount
}

// debit removes amount, clamping at zero. Used only by replay.
func (b balanceBook) debit(p domain.Principal, amount int64) {
	left := b[p] - amount
	if left <= 0 {
		delete(b, p)
		return
	}
	b[p] = left
}
