package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string         `json:"error_code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any *AppError carrying the same code, so callers can test
// errors.Is(err, apperror.ErrNotListed()).
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// HasCode reports whether err is, or wraps, an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Ledger error codes.
const (
	CodeNotOwner                = "LEND_001"
	CodeAlreadyListed           = "LEND_002"
	CodeLoanMustBeAboveZero     = "LEND_003"
	CodeNotApprovedForBorrowing = "LEND_004"
	CodeNotListed               = "LEND_005"
	CodeLoanNotMet              = "LEND_006"
	CodeNoProceeds              = "LEND_007"
	CodeNoLoan                  = "LEND_008"
	CodeReentrantCall           = "LEND_009"
	CodeValidation              = "LEND_010"
	CodeTransferFailed          = "LEND_011"
	CodeCustodyInconsistent     = "LEND_012"
	CodeAttachedValueRejected   = "LEND_013"
)

// ---- Loan Ledger (LEND) ----

func ErrNotOwner() *AppError {
	return New(CodeNotOwner, "Caller does not own the collateral token", http.StatusForbidden)
}

func ErrAlreadyListed() *AppError {
	return New(CodeAlreadyListed, "Collateral is already listed", http.StatusConflict)
}

func ErrLoanMustBeAboveZero() *AppError {
	return New(CodeLoanMustBeAboveZero, "Minimum loan value must be above zero", http.StatusBadRequest)
}

func ErrNotApprovedForBorrowing() *AppError {
	return New(CodeNotApprovedForBorrowing, "Ledger is not approved to move the collateral token", http.StatusPreconditionFailed)
}

func ErrNotListed() *AppError {
	return New(CodeNotListed, "Collateral is not listed", http.StatusNotFound)
}

// ErrLoanNotMet reports an attached value below the required amount.
func ErrLoanNotMet(required int64) *AppError {
	e := New(CodeLoanNotMet, fmt.Sprintf("Attached value below required amount %d", required), http.StatusPaymentRequired)
	e.Details = map[string]any{"required": required}
	return e
}

func ErrNoProceeds() *AppError {
	return New(CodeNoProceeds, "No repayment proceeds to withdraw", http.StatusNotFound)
}

func ErrNoLoan() *AppError {
	return New(CodeNoLoan, "No loan proceeds to withdraw", http.StatusNotFound)
}

func ErrReentrantCall() *AppError {
	return New(CodeReentrantCall, "Nested ledger call rejected while an operation is in flight", http.StatusConflict)
}

func ErrTransferFailed(err error) *AppError {
	return Wrap(CodeTransferFailed, "Value transfer failed, balance restored", http.StatusBadGateway, err)
}

// ErrCustodyInconsistent reports a registry move that failed after the
// ledger tables were already committed.
func ErrCustodyInconsistent(err error) *AppError {
	return Wrap(CodeCustodyInconsistent, "Collateral custody transfer failed after ledger state was committed", http.StatusInternalServerError, err)
}

// ErrAttachedValueRejected reports that the rail refused to collect the
// value attached to a fund or repay request. Nothing was recorded.
func ErrAttachedValueRejected(err error) *AppError {
	return Wrap(CodeAttachedValueRejected, "Attached value could not be collected", http.StatusPaymentRequired, err)
}

// Validation returns a LEND_010 validation error.
func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Idempotency (IDEM) ----

func ErrRequestInProgress() *AppError {
	return New("IDEM_001", "A request with this Idempotency-Key is already in progress", http.StatusConflict)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrRegistryUnavailable(err error) *AppError {
	return Wrap("SYS_004", "Asset registry unavailable", http.StatusBadGateway, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
