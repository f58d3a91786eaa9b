package domain

import "strings"

// Principal is an authenticated identity invoking a ledger operation.
type Principal string

// CollateralKey identifies a single non-fungible token in the asset registry.
type CollateralKey struct {
	CollectionID string `json:"collection_id"`
	TokenID      string `json:"token_id"`
}

// String renders the key as "collection/token".
func (k CollateralKey) String() string {
	return k.CollectionID + "/" + k.TokenID
}

// IsZero returns true if neither part of the key is set.
func (k CollateralKey) IsZero() bool {
	return k.CollectionID == "" && k.TokenID == ""
}

// Valid returns true if both parts are non-blank.
func (k CollateralKey) Valid() bool {
	return strings.TrimSpace(k.CollectionID) != "" && strings.TrimSpace(k.TokenID) != ""
}

// Listing is a standing offer to borrow against a specific token.
// A Listing exists for a key iff MinimumLoanValue > 0.
type Listing struct {
	Key                     CollateralKey `json:"key"`
	MinimumLoanValue        int64         `json:"minimum_loan_value"`
	InterestRateBasisPoints int64         `json:"interest_rate_basis_points"`
	Owner                   Principal     `json:"owner"`
}

// Exists reports whether this is a live listing rather than an empty lookup result.
func (l Listing) Exists() bool {
	return l.MinimumLoanValue > 0
}
