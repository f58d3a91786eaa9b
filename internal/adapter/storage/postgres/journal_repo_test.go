package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"collateral-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = domain.CollateralKey{CollectionID: "punks", TokenID: "7"}

func newTestEvent(seq uint64, typ domain.EventType) domain.Event {
	return domain.Event{
		ID:           uuid.New(),
		Sequence:     seq,
		Type:         typ,
		Key:          testKey,
		Principal:    "bob",
		Counterparty: "alice",
		Amount:       100,
		OccurredAt:   time.Now().UTC().Truncate(time.Microsecond),
		PrevDigest:   "prev",
		Digest:       "digest",
	}
}

func eventColumns() []string {
	return []string{"id", "sequence", "event_type", "collection_id", "token_id", "principal",
		"counterparty", "amount", "interest_rate_bps", "kind", "occurred_at", "prev_digest", "digest"}
}

func TestJournalRepo_Publish(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewJournalRepo(mock)
	e1 := newTestEvent(1, domain.EventItemListed)
	e2 := newTestEvent(2, domain.EventItemLoaned)

	mock.ExpectBegin()
	for _, e := range []domain.Event{e1, e2} {
		mock.ExpectExec("INSERT INTO ledger_events").
			WithArgs(e.ID, int64(e.Sequence), string(e.Type), "punks", "7", "bob",
				"alice", int64(100), int64(0), "", e.OccurredAt, "prev", "digest").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	err = repo.Publish(context.Background(), []domain.Event{e1, e2})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, "postgres-journal", repo.Name())
}

func TestJournalRepo_Publish_RollsBackOnError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewJournalRepo(mock)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO ledger_events").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = repo.Publish(context.Background(), []domain.Event{newTestEvent(1, domain.EventItemListed)})
	assert.ErrorContains(t, err, "insert ledger event 1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournalRepo_Publish_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	assert.NoError(t, NewJournalRepo(mock).Publish(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournalRepo_LoadAll(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewJournalRepo(mock)
	e := newTestEvent(1, domain.EventProceedsWithdrawn)
	e.Counterparty = ""
	e.Kind = domain.ProceedsLoan

	mock.ExpectQuery("SELECT .+ FROM ledger_events ORDER BY sequence").
		WillReturnRows(pgxmock.NewRows(eventColumns()).AddRow(
			e.ID, int64(1), "ProceedsWithdrawn", "punks", "7", "bob",
			"", int64(100), int64(0), "LOAN", e.OccurredAt, "prev", "digest",
		))

	events, err := repo.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, e, events[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournalRepo_LoadAll_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM ledger_events").WillReturnError(errors.New("connection reset"))

	_, err = NewJournalRepo(mock).LoadAll(context.Background())
	assert.ErrorContains(t, err, "query ledger events")
}
