package service

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"collateral-ledger/internal/core/domain"

	"golang.org/x/crypto/sha3"
)

// genesisDigest precedes the first event of every journal.
var genesisDigest = strings.Repeat("0", 64)

// eventDigest is Keccak-256 over the previous digest and the canonical
// encoding of e. Timestamps are hashed at microsecond precision, the
// resolution of the Postgres journal.
func eventDigest(prev string, e domain.Event) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(prev))
	h.Write([]byte(canonicalEvent(e)))
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalEvent format: ID|SEQ|TYPE|COLLECTION|TOKEN|PRINCIPAL|COUNTERPARTY|AMOUNT|RATE|KIND|MICROS
func canonicalEvent(e domain.Event) string {
	return strings.Join([]string{
		e.ID.String(),
		strconv.FormatUint(e.Sequence, 10),
		string(e.Type),
		e.Key.CollectionID,
		e.Key.TokenID,
		string(e.Principal),
		string(e.Counterparty),
		strconv.FormatInt(e.Amount, 10),
		strconv.FormatInt(e.InterestRateBasisPoints, 10),
		string(e.Kind),
		strconv.FormatInt(e.OccurredAt.UnixMicro(), 10),
	}, "|")
}

// VerifyChain checks that events are contiguous from sequence 1 and that
// every digest links to its predecessor.
func VerifyChain(events []domain.Event) error {
	prev := genesisDigest
	for i, e := range events {
		if want := uint64(i + 1); e.Sequence != want {
			return fmt.Errorf("event chain: expected sequence %d, got %d", want, e.Sequence)
		}
		if e.PrevDigest != prev {
			return fmt.Errorf("event chain: sequence %d does not link to its predecessor", e.Sequence)
		}
		if got := eventDigest(prev, e); got != e.Digest {
			return fmt.Errorf("event chain: sequence %d digest mismatch", e.Sequence)
		}
		prev = e.Digest
	}
	return nil
}
