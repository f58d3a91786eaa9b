package postgres

import (
	"context"
	"testing"

	"collateral-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRailRepo_Transfer(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT principal, balance FROM rail_accounts .+ FOR UPDATE").
		WithArgs("bob", "ledger-custody").
		WillReturnRows(pgxmock.NewRows([]string{"principal", "balance"}).AddRow("bob", int64(150)))
	mock.ExpectExec("UPDATE rail_accounts SET balance = balance -").
		WithArgs(int64(100), "bob").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO rail_accounts").
		WithArgs("ledger-custody", int64(100)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO rail_transfers").
		WithArgs(pgxmock.AnyArg(), "bob", "ledger-custody", int64(100)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err = NewRailRepo(mock).Transfer(context.Background(), "bob", "ledger-custody", 100)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRailRepo_Transfer_Insufficient(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT principal, balance FROM rail_accounts").
		WithArgs("bob", "ledger-custody").
		WillReturnRows(pgxmock.NewRows([]string{"principal", "balance"}).
			AddRow("bob", int64(99)).
			AddRow("ledger-custody", int64(5000)))
	mock.ExpectRollback()

	err = NewRailRepo(mock).Transfer(context.Background(), "bob", "ledger-custody", 100)
	assert.ErrorIs(t, err, ports.ErrInsufficientValue)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRailRepo_Transfer_NonPositive(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	err = NewRailRepo(mock).Transfer(context.Background(), "bob", "alice", 0)
	assert.ErrorIs(t, err, ports.ErrNonPositiveTransfer)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRailRepo_Balance(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRailRepo(mock)
	mock.ExpectQuery("SELECT balance FROM rail_accounts").
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(int64(1100)))
	mock.ExpectQuery("SELECT balance FROM rail_accounts").
		WithArgs("nobody").
		WillReturnError(pgx.ErrNoRows)

	balance, err := repo.Balance(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1100), balance)

	balance, err = repo.Balance(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Zero(t, balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthCheck_Ping(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("SELECT 1").WillReturnResult(pgxmock.NewResult("SELECT", 1))

	h := NewHealthCheck(mock)
	assert.NoError(t, h.Ping(context.Background()))
	assert.Equal(t, "postgresql", h.Name())
}
