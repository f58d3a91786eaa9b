package handler

import (
	"collateral-ledger/internal/adapter/http/dto"
	"collateral-ledger/internal/core/domain"
	"collateral-ledger/internal/core/ports"
	"collateral-ledger/pkg/apperror"
	"collateral-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// ListingHandler handles collateral listing endpoints.
type ListingHandler struct {
	ledger ports.LedgerService
}

// NewListingHandler creates a new ListingHandler.
func NewListingHandler(ledger ports.LedgerService) *ListingHandler {
	return &ListingHandler{ledger: ledger}
}

// List handles POST /api/v1/listings.
func (h *ListingHandler) List(c *gin.Context) {
	caller, err := callerFrom(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.ListCollateralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	key := domain.CollateralKey{CollectionID: req.CollectionID, TokenID: req.TokenID}
	listing, err := h.ledger.ListCollateral(c.Request.Context(), ports.ListRequest{
		Caller:                  caller,
		Key:                     key,
		MinimumLoanValue:        req.MinimumLoanValue,
		InterestRateBasisPoints: req.InterestRateBasisPoints,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToListingResponse(key, *listing))
}

// Cancel handles DELETE /api/v1/listings/:collection/:token.
func (h *ListingHandler) Cancel(c *gin.Context) {
	caller, err := callerFrom(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	key, err := keyFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.ledger.CancelListing(c.Request.Context(), caller, key); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ToListingResponse(key, domain.Listing{}))
}

// Get handles GET /api/v1/listings/:collection/:token. An unlisted key
// yields an empty listing, not an error.
func (h *ListingHandler) Get(c *gin.Context) {
	key, err := keyFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ToListingResponse(key, h.ledger.GetListing(c.Request.Context(), key)))
}
