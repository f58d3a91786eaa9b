package handler

import (
	"context"

	"collateral-ledger/internal/adapter/http/dto"
	"collateral-ledger/internal/core/domain"
	"collateral-ledger/internal/core/ports"
	"collateral-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// ProceedsHandler handles withdrawal and balance endpoints.
type ProceedsHandler struct {
	ledger ports.LedgerService
}

// NewProceedsHandler creates a new ProceedsHandler.
func NewProceedsHandler(ledger ports.LedgerService) *ProceedsHandler {
	return &ProceedsHandler{ledger: ledger}
}

// WithdrawLoan handles POST /api/v1/proceeds/loan/withdraw.
func (h *ProceedsHandler) WithdrawLoan(c *gin.Context) {
	h.withdraw(c, domain.ProceedsLoan, h.ledger.WithdrawLoanProceeds)
}

// WithdrawRepayment handles POST /api/v1/proceeds/repayment/withdraw.
func (h *ProceedsHandler) WithdrawRepayment(c *gin.Context) {
	h.withdraw(c, domain.ProceedsRepayment, h.ledger.WithdrawRepaymentProceeds)
}

func (h *ProceedsHandler) withdraw(c *gin.Context, kind domain.ProceedsKind, fn func(context.Context, domain.Principal) (int64, error)) {
	caller, err := callerFrom(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	amount, err := fn(c.Request.Context(), caller)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WithdrawResponse{
		Principal: string(caller),
		Kind:      string(kind),
		Amount:    amount,
	})
}

// Balances handles GET /api/v1/proceeds/:principal.
func (h *ProceedsHandler) Balances(c *gin.Context) {
	principal, err := principalFromPath(c, "principal")
	if err != nil {
		response.Error(c, err)
		return
	}

	b := h.ledger.GetBalances(c.Request.Context(), principal)
	response.OK(c, dto.BalancesResponse{
		Principal:         string(principal),
		LoanProceeds:      b.LoanProceeds,
		RepaymentProceeds: b.RepaymentProceeds,
	})
}
