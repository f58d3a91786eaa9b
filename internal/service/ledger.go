package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"collateral-ledger/internal/core/domain"
	"collateral-ledger/internal/core/ports"
	"collateral-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// Ledger is the collateralized-loan aggregate. It owns the listing table,
// the loan table and both withdrawable-balance books.
//
// Every transition mutates the tables under mu and releases it before any
// registry or rail call. Fund holds a per-collateral lock and repay a
// per-borrower lock for their whole duration. Calls made back into the
// ledger on the context handed to a collaborator fail with ReentrantCall.
type Ledger struct {
	registry ports.AssetRegistry
	rail     ports.ValueRail
	custody  domain.Principal
	sinks    []ports.EventSink
	log      zerolog.Logger

	mu                sync.Mutex
	listings          listingTable
	loans             loanTable
	loanProceeds      balanceBook
	repaymentProceeds balanceBook
	events            *outbox

	publishMu  sync.Mutex
	backlog    map[string][]domain.Event
	fundLocks  *keyedMutex[domain.CollateralKey]
	repayLocks *keyedMutex[domain.Principal]
}

var _ ports.LedgerService = (*Ledger)(nil)

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithEventSinks adds sinks that receive every committed event in order.
func WithEventSinks(sinks ...ports.EventSink) LedgerOption {
	return func(l *Ledger) { l.sinks = append(l.sinks, sinks...) }
}

// WithClock overrides the event timestamp source.
func WithClock(clock func() time.Time) LedgerOption {
	return func(l *Ledger) { l.events.clock = clock }
}

// NewLedger creates an empty ledger. custody is the principal the ledger
// holds collateral and value under.
func NewLedger(
	registry ports.AssetRegistry,
	rail ports.ValueRail,
	custody domain.Principal,
	log zerolog.Logger,
	opts ...LedgerOption,
) *Ledger {
	l := &Ledger{
		registry:          registry,
		rail:              rail,
		custody:           custody,
		log:               log,
		listings:          make(listingTable),
		loans:             make(loanTable),
		loanProceeds:      make(balanceBook),
		repaymentProceeds: make(balanceBook),
		events:            newOutbox(time.Now),
		backlog:           make(map[string][]domain.Event),
		fundLocks:         newKeyedMutex[domain.CollateralKey](),
		repayLocks:        newKeyedMutex[domain.Principal](),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Custody returns the principal the ledger holds assets under.
func (l *Ledger) Custody() domain.Principal {
	return l.custody
}

func (l *Ledger) rejectNested(ctx context.Context, op string) error {
	running, ok := inFlight(ctx)
	if !ok {
		return nil
	}
	l.log.Warn().Str("operation", op).Str("in_flight", running).Msg("nested ledger call rejected")
	return apperror.ErrReentrantCall()
}

// ==================== Listing Table ====================

// ListCollateral offers caller's token as collateral. Checks run in the
// order AlreadyListed, NotOwner, LoanMustBeAboveZero, NotApprovedForBorrowing.
func (l *Ledger) ListCollateral(ctx context.Context, req ports.ListRequest) (*domain.Listing, error) {
	if err := l.rejectNested(ctx, "list"); err != nil {
		return nil, err
	}
	if !req.Key.Valid() {
		return nil, apperror.Validation("collection_id and token_id are required")
	}
	if req.InterestRateBasisPoints < 0 {
		return nil, apperror.Validation("interest_rate_basis_points must not be negative")
	}
	defer l.flush(ctx)

	l.mu.Lock()
	listed := l.listings.lookup(req.Key).Exists()
	l.mu.Unlock()
	if listed {
		return nil, apperror.ErrAlreadyListed()
	}

	owner, err := l.registry.OwnerOf(ctx, req.Key)
	if err != nil {
		return nil, apperror.ErrRegistryUnavailable(fmt.Errorf("owner of %s: %w", req.Key, err))
	}
	if owner != req.Caller {
		return nil, apperror.ErrNotOwner()
	}
	if req.MinimumLoanValue <= 0 {
		return nil, apperror.ErrLoanMustBeAboveZero()
	}
	approved, err := l.registry.IsApproved(ctx, req.Key, l.custody)
	if err != nil {
		return nil, apperror.ErrRegistryUnavailable(fmt.Errorf("approval of %s: %w", req.Key, err))
	}
	if !approved {
		return nil, apperror.ErrNotApprovedForBorrowing()
	}

	listing := domain.Listing{
		Key:                     req.Key,
		MinimumLoanValue:        req.MinimumLoanValue,
		InterestRateBasisPoints: req.InterestRateBasisPoints,
		Owner:                   req.Caller,
	}

	l.mu.Lock()
	if l.listings.lookup(req.Key).Exists() {
		l.mu.Unlock()
		return nil, apperror.ErrAlreadyListed()
	}
	l.listings.insert(listing)
	l.events.record(domain.Event{
		Type:                    domain.EventItemListed,
		Key:                     listing.Key,
		Principal:               listing.Owner,
		Amount:                  listing.MinimumLoanValue,
		InterestRateBasisPoints: listing.InterestRateBasisPoints,
	})
	l.mu.Unlock()

	l.log.Info().
		Str("collection_id", req.Key.CollectionID).
		Str("token_id", req.Key.TokenID).
		Str("owner", string(req.Caller)).
		Int64("minimum_loan_value", req.MinimumLoanValue).
		Int64("interest_rate_bps", req.InterestRateBasisPoints).
		Msg("Collateral listed")

	return &listing, nil
}

// CancelListing withdraws the caller's listing.
func (l *Ledger) CancelListing(ctx context.Context, caller domain.Principal, key domain.CollateralKey) error {
	if err := l.rejectNested(ctx, "cancel"); err != nil {
		return err
	}
	defer l.flush(ctx)

	owner, err := l.registry.OwnerOf(ctx, key)
	if err != nil {
		return apperror.ErrRegistryUnavailable(fmt.Errorf("owner of %s: %w", key, err))
	}
	if owner != caller {
		return apperror.ErrNotOwner()
	}

	l.mu.Lock()
	if !l.listings.lookup(key).Exists() {
		l.mu.Unlock()
		return apperror.ErrNotListed()
	}
	l.listings.remove(key)
	l.events.record(domain.Event{
		Type:      domain.EventItemCancelled,
		Key:       key,
		Principal: caller,
	})
	l.mu.Unlock()

	l.log.Info().
		Str("collection_id", key.CollectionID).
		Str("token_id", key.TokenID).
		Str("owner", string(caller)).
		Msg("Listing cancelled")
	return nil
}

// GetListing returns the listing for key, or the zero value.
func (l *Ledger) GetListing(_ context.Context, key domain.CollateralKey) domain.Listing {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.listings.lookup(key)
}

// ==================== Loan Table ====================

// FundLoan issues a loan against a listed token. The attached value is
// credited to the borrower's loan proceeds and the listing is removed
// before the token is moved into custody.
func (l *Ledger) FundLoan(ctx context.Context, req ports.AttachedValueRequest) (*domain.Loan, error) {
	if err := l.rejectNested(ctx, "fund"); err != nil {
		return nil, err
	}
	unlock := l.fundLocks.Lock(req.Key)
	defer unlock()
	ctx = withInFlight(ctx, "fund")
	defer l.flush(ctx)

	l.mu.Lock()
	listing := l.listings.lookup(req.Key)
	if !listing.Exists() {
		l.mu.Unlock()
		return nil, apperror.ErrNotListed()
	}
	if req.AttachedValue < listing.MinimumLoanValue {
		l.mu.Unlock()
		return nil, apperror.ErrLoanNotMet(listing.MinimumLoanValue)
	}

	loan := domain.Loan{
		Key:                     req.Key,
		Borrower:                listing.Owner,
		Lender:                  req.Caller,
		LoanAmount:              req.AttachedValue,
		InterestRateBasisPoints: listing.InterestRateBasisPoints,
	}
	prev, overwritten := l.loans.put(loan)
	l.loanProceeds.credit(loan.Borrower, loan.LoanAmount)
	l.listings.remove(req.Key)
	l.events.record(domain.Event{
		Type:                    domain.EventItemLoaned,
		Key:                     loan.Key,
		Principal:               loan.Lender,
		Counterparty:            loan.Borrower,
		Amount:                  loan.LoanAmount,
		InterestRateBasisPoints: loan.InterestRateBasisPoints,
	})
	l.mu.Unlock()

	log := l.log.With().
		Str("collection_id", req.Key.CollectionID).
		Str("token_id", req.Key.TokenID).
		Str("borrower", string(loan.Borrower)).
		Str("lender", string(loan.Lender)).
		Logger()

	if overwritten {
		log.Warn().
			Str("replaced_collection_id", prev.Key.CollectionID).
			Str("replaced_token_id", prev.Key.TokenID).
			Int64("replaced_amount", prev.LoanAmount).
			Msg("Borrower already had an active loan, record overwritten")
	}

	if err := l.registry.Move(ctx, req.Key, loan.Borrower, l.custody); err != nil {
		log.Error().Err(err).Msg("Collateral move into custody failed after loan was recorded")
		return &loan, apperror.ErrCustodyInconsistent(fmt.Errorf("move %s to custody: %w", req.Key, err))
	}

	log.Info().Int64("amount", loan.LoanAmount).Msg("Loan funded")
	return &loan, nil
}

// RepayLoan settles the caller's active loan. The loan is found by caller;
// key is informational and the token recorded on the loan is returned.
func (l *Ledger) RepayLoan(ctx context.Context, req ports.AttachedValueRequest) (*domain.Loan, error) {
	if err := l.rejectNested(ctx, "repay"); err != nil {
		return nil, err
	}
	unlock := l.repayLocks.Lock(req.Caller)
	defer unlock()
	ctx = withInFlight(ctx, "repay")
	defer l.flush(ctx)

	l.mu.Lock()
	loan := l.loans.lookup(req.Caller)
	debt := loan.TotalDebt()
	if req.AttachedValue < debt {
		l.mu.Unlock()
		return nil, apperror.ErrLoanNotMet(debt)
	}
	if !loan.Exists() {
		l.mu.Unlock()
		return nil, apperror.ErrNoLoan()
	}
	l.repaymentProceeds.credit(loan.Lender, req.AttachedValue)
	l.loans.remove(req.Caller)
	l.events.record(domain.Event{
		Type:         domain.EventLoanPayed,
		Key:          loan.Key,
		Principal:    loan.Borrower,
		Counterparty: loan.Lender,
		Amount:       req.AttachedValue,
	})
	l.mu.Unlock()

	log := l.log.With().
		Str("collection_id", loan.Key.CollectionID).
		Str("token_id", loan.Key.TokenID).
		Str("borrower", string(loan.Borrower)).
		Str("lender", string(loan.Lender)).
		Logger()

	if !req.Key.IsZero() && req.Key != loan.Key {
		log.Warn().
			Str("supplied_collection_id", req.Key.CollectionID).
			Str("supplied_token_id", req.Key.TokenID).
			Msg("Repay key differs from the loan's collateral, returning the loan's collateral")
	}

	if err := l.registry.Move(ctx, loan.Key, l.custody, req.Caller); err != nil {
		log.Error().Err(err).Msg("Collateral return failed after repayment was recorded")
		return &loan, apperror.ErrCustodyInconsistent(fmt.Errorf("return %s to borrower: %w", loan.Key, err))
	}

	log.Info().Int64("amount", req.AttachedValue).Int64("debt", debt).Msg("Loan repaid")
	return &loan, nil
}

// GetLoan returns the borrower's active loan, or the zero value.
func (l *Ledger) GetLoan(_ context.Context, borrower domain.Principal) domain.Loan {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loans.lookup(borrower)
}

// ==================== Withdrawable-Balance Ledger ====================

// WithdrawLoanProceeds pays out the caller's loan proceeds.
func (l *Ledger) WithdrawLoanProceeds(ctx context.Context, caller domain.Principal) (int64, error) {
	return l.withdraw(ctx, caller, domain.ProceedsLoan)
}

// WithdrawRepaymentProceeds pays out the caller's repayment proceeds.
func (l *Ledger) WithdrawRepaymentProceeds(ctx context.Context, caller domain.Principal) (int64, error) {
	return l.withdraw(ctx, caller, domain.ProceedsRepayment)
}

func (l *Ledger) book(kind domain.ProceedsKind) balanceBook {
	if kind == domain.ProceedsLoan {
		return l.loanProceeds
	}
	return l.repaymentProceeds
}

// withdraw zeroes the balance before paying out. A failed payout restores
// the amount by adding it back.
func (l *Ledger) withdraw(ctx context.Context, caller domain.Principal, kind domain.ProceedsKind) (int64, error) {
	if err := l.rejectNested(ctx, "withdraw"); err != nil {
		return 0, err
	}
	defer l.flush(ctx)

	l.mu.Lock()
	amount := l.book(kind).take(caller)
	if amount <= 0 {
		l.mu.Unlock()
		if kind == domain.ProceedsLoan {
			return 0, apperror.ErrNoLoan()
		}
		return 0, apperror.ErrNoProceeds()
	}
	l.events.record(domain.Event{
		Type:      domain.EventProceedsWithdrawn,
		Principal: caller,
		Amount:    amount,
		Kind:      kind,
	})
	l.mu.Unlock()

	if err := l.rail.Transfer(ctx, l.custody, caller, amount); err != nil {
		l.mu.Lock()
		l.book(kind).credit(caller, amount)
		l.events.record(domain.Event{
			Type:      domain.EventProceedsRestored,
			Principal: caller,
			Amount:    amount,
			Kind:      kind,
		})
		l.mu.Unlock()

		l.log.Error().Err(err).
			Str("principal", string(caller)).
			Str("kind", string(kind)).
			Int64("amount", amount).
			Msg("Proceeds payout failed, balance restored")
		return 0, apperror.ErrTransferFailed(err)
	}

	l.log.Info().
		Str("principal", string(caller)).
		Str("kind", string(kind)).
		Int64("amount", amount).
		Msg("Proceeds withdrawn")
	return amount, nil
}

// GetBalances returns both pending balances of principal.
func (l *Ledger) GetBalances(_ context.Context, principal domain.Principal) domain.Balances {
	l.mu.Lock()
	defer l.mu.Unlock()
	return domain.Balances{
		Principal:         principal,
		LoanProceeds:      l.loanProceeds.balance(principal),
		RepaymentProceeds: l.repaymentProceeds.balance(principal),
	}
}
