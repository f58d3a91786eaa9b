package ports

import (
	"context"
	"time"

	"collateral-ledger/internal/core/domain"
)

// LedgerService is the collateralized-loan ledger: six state transitions
// and the read-only lookups.
type LedgerService interface {
	ListCollateral(ctx context.Context, req ListRequest) (*domain.Listing, error)
	CancelListing(ctx context.Context, caller domain.Principal, key domain.CollateralKey) error
	FundLoan(ctx context.Context, req AttachedValueRequest) (*domain.Loan, error)
	RepayLoan(ctx context.Context, req AttachedValueRequest) (*domain.Loan, error)
	WithdrawLoanProceeds(ctx context.Context, caller domain.Principal) (int64, error)
	WithdrawRepaymentProceeds(ctx context.Context, caller domain.Principal) (int64, error)

	GetListing(ctx context.Context, key domain.CollateralKey) domain.Listing
	GetLoan(ctx context.Context, borrower domain.Principal) domain.Loan
	GetBalances(ctx context.Context, principal domain.Principal) domain.Balances
}

// ListRequest holds validated input for listing collateral.
type ListRequest struct {
	Caller                  domain.Principal
	Key                     domain.CollateralKey
	MinimumLoanValue        int64
	InterestRateBasisPoints int64
}

// AttachedValueRequest is a fund or repay request carrying attached value.
type AttachedValueRequest struct {
	Caller        domain.Principal
	Key           domain.CollateralKey
	AttachedValue int64
}

// SignatureService handles HMAC-SHA256 signing and verification.
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
	BuildCanonicalString(timestamp int64, deliveryID string, body string) string
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(principal domain.Principal) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	Principal domain.Principal
	ExpiresAt time.Time
}
