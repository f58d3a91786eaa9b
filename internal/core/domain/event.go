package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a committed ledger state transition.
type EventType string

const (
	EventItemListed        EventType = "ItemListed"
	EventItemCancelled     EventType = "ItemCancelled"
	EventItemLoaned        EventType = "ItemLoaned"
	EventLoanPayed         EventType = "LoanPayed"
	EventProceedsWithdrawn EventType = "ProceedsWithdrawn"
	EventProceedsRestored  EventType = "ProceedsRestored"
)

// Event records one committed transition for observers and for replay.
// Field meaning per type:
//   - ItemListed:        Principal=owner, Amount=minimum loan value, InterestRateBasisPoints
//   - ItemCancelled:     Principal=owner
//   - ItemLoaned:        Principal=lender, Counterparty=borrower, Amount=loan amount, InterestRateBasisPoints
//   - LoanPayed:         Principal=borrower, Counterparty=lender, Amount=attached value
//   - ProceedsWithdrawn: Principal=recipient, Amount, Kind
//   - ProceedsRestored:  Principal=recipient, Amount, Kind
type Event struct {
	ID                      uuid.UUID     `json:"id"`
	Sequence                uint64        `json:"sequence"`
	Type                    EventType     `json:"type"`
	Key                     CollateralKey `json:"key"`
	Principal               Principal     `json:"principal"`
	Counterparty            Principal     `json:"counterparty,omitempty"`
	Amount                  int64         `json:"amount"`
	InterestRateBasisPoints int64         `json:"interest_rate_basis_points"`
	Kind                    ProceedsKind  `json:"kind,omitempty"`
	OccurredAt              time.Time     `json:"occurred_at"`
	PrevDigest              string        `json:"prev_digest"`
	Digest                  string        `json:"digest"`
}
