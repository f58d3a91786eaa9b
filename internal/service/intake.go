package service

import (
	"context"

	"collateral-ledger/internal/core/domain"
	"collateral-ledger/internal/core/ports"
	"collateral-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// ValueIntake collects the value attached to fund and repay requests from
// the caller into custody before the ledger sees the request, and refunds
// it when the ledger rejects the request without committing anything.
// All other operations pass straight through.
type ValueIntake struct {
	ports.LedgerService
	rail    ports.ValueRail
	custody domain.Principal
	log     zerolog.Logger
}

// NewValueIntake wraps ledger with attached-value collection on rail.
func NewValueIntake(ledger ports.LedgerService, rail ports.ValueRail, custody domain.Principal, log zerolog.Logger) *ValueIntake {
	return &ValueIntake{
		LedgerService: ledger,
		rail:          rail,
		custody:       custody,
		log:           log,
	}
}

// FundLoan collects the attached value then funds the loan.
func (v *ValueIntake) FundLoan(ctx context.Context, req ports.AttachedValueRequest) (*domain.Loan, error) {
	if err := v.collect(ctx, req); err != nil {
		return nil, err
	}
	loan, err := v.LedgerService.FundLoan(ctx, req)
	if err != nil {
		v.refund(ctx, req, err)
	}
	return loan, err
}

// RepayLoan collects the attached value then repays the caller's loan.
func (v *ValueIntake) RepayLoan(ctx context.Context, req ports.AttachedValueRequest) (*domain.Loan, error) {
	if err := v.collect(ctx, req); err != nil {
		return nil, err
	}
	loan, err := v.LedgerService.RepayLoan(ctx, req)
	if err != nil {
		v.refund(ctx, req, err)
	}
	return loan, err
}

func (v *ValueIntake) collect(ctx context.Context, req ports.AttachedValueRequest) error {
	if req.AttachedValue < 0 {
		return apperror.Validation("attached_value must not be negative")
	}
	if req.AttachedValue == 0 {
		return nil
	}
	if err := v.rail.Transfer(ctx, req.Caller, v.custody, req.AttachedValue); err != nil {
		v.log.Warn().Err(err).
			Str("principal", string(req.Caller)).
			Int64("amount", req.AttachedValue).
			Msg("Attached value collection failed")
		return apperror.ErrAttachedValueRejected(err)
	}
	return nil
}

// refund returns the attached value unless the ledger already committed
// the request. A custody failure after commit keeps the value.
func (v *ValueIntake) refund(ctx context.Context, req ports.AttachedValueRequest, cause error) {
	if req.AttachedValue == 0 || apperror.HasCode(cause, apperror.CodeCustodyInconsistent) {
		return
	}
	if err := v.rail.Transfer(context.WithoutCancel(ctx), v.custody, req.Caller, req.AttachedValue); err != nil {
		v.log.Error().Err(err).
			Str("principal", string(req.Caller)).
			Int64("amount", req.AttachedValue).
			AnErr("cause", cause).
			Msg("Attached value refund failed, value remains in custody")
		return
	}
	v.log.Info().
		Str("principal", string(req.Caller)).
		Int64("amount", req.AttachedValue).
		Msg("Attached value refunded")
}
