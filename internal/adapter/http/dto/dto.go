package dto

import "collateral-ledger/internal/core/domain"

// ListCollateralRequest is the request body for listing collateral.
// A non-positive minimum is reported by the ledger in its check order.
type ListCollateralRequest struct {
	CollectionID            string `json:"collection_id" binding:"required,max=128,collateral_id"`
	TokenID                 string `json:"token_id" binding:"required,max=128,collateral_id"`
	MinimumLoanValue        int64  `json:"minimum_loan_value"`
	InterestRateBasisPoints int64  `json:"interest_rate_basis_points" binding:"gte=0"`
}

// FundLoanRequest is the request body for funding a listed collateral.
type FundLoanRequest struct {
	CollectionID  string `json:"collection_id" binding:"required,max=128,collateral_id"`
	TokenID       string `json:"token_id" binding:"required,max=128,collateral_id"`
	AttachedValue int64  `json:"attached_value" binding:"gte=0"`
}

// RepayLoanRequest is the request body for repaying the caller's loan.
// The key is optional; the loan is found by caller.
type RepayLoanRequest struct {
	CollectionID  string `json:"collection_id" binding:"omitempty,max=128,collateral_id"`
	TokenID       string `json:"token_id" binding:"omitempty,max=128,collateral_id"`
	AttachedValue int64  `json:"attached_value" binding:"gte=0"`
}

// ListingResponse describes a listing. Listed is false for an empty lookup.
type ListingResponse struct {
	CollectionID            string `json:"collection_id"`
	TokenID                 string `json:"token_id"`
	Listed                  bool   `json:"listed"`
	MinimumLoanValue        int64  `json:"minimum_loan_value"`
	InterestRateBasisPoints int64  `json:"interest_rate_basis_points"`
	Owner                   string `json:"owner,omitempty"`
}

// LoanResponse describes a loan. Active is false for an empty lookup.
type LoanResponse struct {
	Borrower                string `json:"borrower"`
	Active                  bool   `json:"active"`
	CollectionID            string `json:"collection_id,omitempty"`
	TokenID                 string `json:"token_id,omitempty"`
	Lender                  string `json:"lender,omitempty"`
	LoanAmount              int64  `json:"loan_amount"`
	InterestRateBasisPoints int64  `json:"interest_rate_basis_points"`
	TotalDebt               int64  `json:"total_debt"`
}

// WithdrawResponse reports a completed payout.
type WithdrawResponse struct {
	Principal string `json:"principal"`
	Kind      string `json:"kind"`
	Amount    int64  `json:"amount"`
}

// BalancesResponse reports both pending balances of a principal.
type BalancesResponse struct {
	Principal         string `json:"principal"`
	LoanProceeds      int64  `json:"loan_proceeds"`
	RepaymentProceeds int64  `json:"repayment_proceeds"`
}

// ToListingResponse maps a domain listing looked up under key.
func ToListingResponse(key domain.CollateralKey, l domain.Listing) ListingResponse {
	return ListingResponse{
		CollectionID:            key.CollectionID,
		TokenID:                 key.TokenID,
		Listed:                  l.Exists(),
		MinimumLoanValue:        l.MinimumLoanValue,
		InterestRateBasisPoints: l.InterestRateBasisPoints,
		Owner:                   string(l.Owner),
	}
}

// ToLoanResponse maps a domain loan looked up under borrower.
func ToLoanResponse(borrower domain.Principal, l domain.Loan) LoanResponse {
	return LoanResponse{
		Borrower:                string(borrower),
		Active:                  l.Exists(),
		CollectionID:            l.Key.CollectionID,
		TokenID:                 l.Key.TokenID,
		Lender:                  string(l.Lender),
		LoanAmount:              l.LoanAmount,
		InterestRateBasisPoints: l.InterestRateBasisPoints,
		TotalDebt:               l.TotalDebt(),
	}
}
