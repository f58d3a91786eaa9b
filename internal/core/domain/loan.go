package domain

import "math"

// Loan is an active loan, keyed by its borrower. LoanAmount > 0 while it exists.
type Loan struct {
	Key                     CollateralKey `json:"key"`
	Borrower                Principal     `json:"borrower"`
	Lender                  Principal     `json:"lender"`
	LoanAmount              int64         `json:"loan_amount"`
	InterestRateBasisPoints int64         `json:"interest_rate_basis_points"`
}

// Exists reports whether this is a live loan rather than an empty lookup result.
func (l Loan) Exists() bool {
	return l.LoanAmount > 0
}

// TotalDebt is LoanAmount + (InterestRateBasisPoints/100)*LoanAmount with
// integer division applied before the multiplication, so a rate below 100
// basis points contributes nothing. An absent loan owes 0. The result
// saturates at math.MaxInt64 instead of wrapping.
func (l Loan) TotalDebt() int64 {
	multiplier := l.InterestRateBasisPoints / 100
	if multiplier <= 0 || l.LoanAmount <= 0 {
		return l.LoanAmount
	}
	if l.LoanAmount > (math.MaxInt64-l.LoanAmount)/multiplier {
		return math.MaxInt64
	}
	return l.LoanAmount + multiplier*l.LoanAmount
}

// ProceedsKind selects one of the two withdrawable balance accounts.
type ProceedsKind string

const (
	ProceedsLoan      ProceedsKind = "LOAN"
	ProceedsRepayment ProceedsKind = "REPAYMENT"
)

// Balances holds both pending withdrawable balances of a principal.
type Balances struct {
	Principal         Principal `json:"principal"`
	LoanProceeds      int64     `json:"loan_proceeds"`
	RepaymentProceeds int64     `json:"repayment_proceeds"`
}
