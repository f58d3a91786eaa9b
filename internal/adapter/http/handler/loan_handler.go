package handler

import (
	"collateral-ledger/internal/adapter/http/dto"
	"collateral-ledger/internal/core/domain"
	"collateral-ledger/internal/core/ports"
	"collateral-ledger/pkg/apperror"
	"collateral-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// LoanHandler handles fund, repay and loan lookup endpoints.
type LoanHandler struct {
	ledger ports.LedgerService
}

// NewLoanHandler creates a new LoanHandler.
func NewLoanHandler(ledger ports.LedgerService) *LoanHandler {
	return &LoanHandler{ledger: ledger}
}

// Fund handles POST /api/v1/loans/fund.
func (h *LoanHandler) Fund(c *gin.Context) {
	caller, err := callerFrom(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.FundLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	loan, err := h.ledger.FundLoan(c.Request.Context(), ports.AttachedValueRequest{
		Caller:        caller,
		Key:           domain.CollateralKey{CollectionID: req.CollectionID, TokenID: req.TokenID},
		AttachedValue: req.AttachedValue,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToLoanResponse(loan.Borrower, *loan))
}

// Repay handles POST /api/v1/loans/repay. The caller's own loan is repaid.
func (h *LoanHandler) Repay(c *gin.Context) {
	caller, err := callerFrom(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.RepayLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	loan, err := h.ledger.RepayLoan(c.Request.Context(), ports.AttachedValueRequest{
		Caller:        caller,
		Key:           domain.CollateralKey{CollectionID: req.CollectionID, TokenID: req.TokenID},
		AttachedValue: req.AttachedValue,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.ToLoanResponse(caller, *loan)
	resp.Active = false
	response.OK(c, resp)
}

// Get handles GET /api/v1/loans/:borrower.
func (h *LoanHandler) Get(c *gin.Context) {
	borrower, err := principalFromPath(c, "borrower")
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ToLoanResponse(borrower, h.ledger.GetLoan(c.Request.Context(), borrower)))
}
