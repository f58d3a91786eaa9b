package service

import (
	"context"
	"fmt"

	"collateral-ledger/internal/core/domain"
	"collateral-ledger/internal/core/ports"
)

// Restore rebuilds the tables from a journal history. The ledger must be
// fresh and the history must form an unbroken digest chain. Restored
// events are not re-published.
func (l *Ledger) Restore(events []domain.Event) error {
	if err := VerifyChain(events); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.events.seq != 0 {
		return fmt.Errorf("restore: ledger already holds %d events", l.events.seq)
	}

	for _, e := range events {
		if err := l.apply(e); err != nil {
			l.reset()
			return fmt.Errorf("restore: sequence %d: %w", e.Sequence, err)
		}
	}
	if n := len(events); n > 0 {
		l.events.seq = events[n-1].Sequence
		l.events.head = events[n-1].Digest
	}
	return nil
}

// ReplayJournal loads the journal and restores the ledger from it.
func (l *Ledger) ReplayJournal(ctx context.Context, journal ports.EventJournal) (int, error) {
	events, err := journal.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading journal: %w", err)
	}
	if err := l.Restore(events); err != nil {
		return 0, err
	}
	l.log.Info().Int("events", len(events)).Msg("Ledger restored from journal")
	return len(events), nil
}

// apply must be called with mu held.
func (l *Ledger) apply(e domain.Event) error {
	switch e.Type {
	case domain.EventItemListed:
		l.listings.insert(domain.Listing{
			Key:                     e.Key,
			MinimumLoanValue:        e.Amount,
			InterestRateBasisPoints: e.InterestRateBasisPoints,
			Owner:                   e.Principal,
		})
	case domain.EventItemCancelled:
		l.listings.remove(e.Key)
	case domain.EventItemLoaned:
		l.loans.put(domain.Loan{
			Key:                     e.Key,
			Borrower:                e.Counterparty,
			Lender:                  e.Principal,
			LoanAmount:              e.Amount,
			InterestRateBasisPoints: e.InterestRateBasisPoints,
		})
		l.loanProceeds.credit(e.Counterparty, e.Amount)
		l.listings.remove(e.Key)
	case domain.EventLoanPayed:
		l.repaymentProceeds.credit(e.Counterparty, e.Amount)
		l.loans.remove(e.Principal)
	case domain.EventProceedsWithdrawn:
		l.book(e.Kind).debit(e.Principal, e.Amount)
	case domain.EventProceedsRestored:
		l.book(e.Kind).credit(e.Principal, e.Amount)
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	return nil
}

func (l *Ledger) reset() {
	l.listings = make(listingTable)
	l.loans = make(loanTable)
	l.loanProceeds = make(balanceBook)
	l.repaymentProceeds = make(balanceBook)
}
