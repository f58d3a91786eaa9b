package postgres

import (
	"context"
	"testing"

	"collateral-ledger/internal/core/domain"
	"collateral-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMover domain.Principal = "ledger-custody"

func TestRegistryRepo_OwnerOf(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRegistryRepo(mock, testMover)

	mock.ExpectQuery("SELECT owner FROM registry_tokens").
		WithArgs("punks", "7").
		WillReturnRows(pgxmock.NewRows([]string{"owner"}).AddRow("alice"))

	owner, err := repo.OwnerOf(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, domain.Principal("alice"), owner)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistryRepo_OwnerOf_Unknown(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT owner FROM registry_tokens").
		WithArgs("punks", "7").
		WillReturnError(pgx.ErrNoRows)

	owner, err := NewRegistryRepo(mock, testMover).OwnerOf(context.Background(), testKey)
	require.NoError(t, err)
	assert.Empty(t, owner)
}

func TestRegistryRepo_IsApproved(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("punks", "7", "ledger-custody").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := NewRegistryRepo(mock, testMover).IsApproved(context.Background(), testKey, testMover)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistryRepo_Move_ApprovedToken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT owner, COALESCE.+ FOR UPDATE").
		WithArgs("punks", "7").
		WillReturnRows(pgxmock.NewRows([]string{"owner", "approved"}).AddRow("alice", "ledger-custody"))
	mock.ExpectExec("UPDATE registry_tokens SET owner").
		WithArgs("ledger-custody", "punks", "7").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err = NewRegistryRepo(mock, testMover).Move(context.Background(), testKey, "alice", testMover)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistryRepo_Move_OperatorGrant(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT owner, COALESCE.+ FOR UPDATE").
		WithArgs("punks", "7").
		WillReturnRows(pgxmock.NewRows([]string{"owner", "approved"}).AddRow("alice", ""))
	mock.ExpectQuery("SELECT EXISTS .+ registry_operators").
		WithArgs("alice", "ledger-custody").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec("UPDATE registry_tokens SET owner").
		WithArgs("ledger-custody", "punks", "7").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err = NewRegistryRepo(mock, testMover).Move(context.Background(), testKey, "alice", testMover)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistryRepo_Move_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(mock pgxmock.PgxPoolIface)
		wantErr error
	}{
		{
			name: "unknown token",
			prepare: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("SELECT owner, COALESCE").
					WithArgs("punks", "7").
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr: ports.ErrTokenNotFound,
		},
		{
			name: "from is not owner",
			prepare: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("SELECT owner, COALESCE").
					WithArgs("punks", "7").
					WillReturnRows(pgxmock.NewRows([]string{"owner", "approved"}).AddRow("bob", ""))
			},
			wantErr: ports.ErrNotTokenOwner,
		},
		{
			name: "not authorized",
			prepare: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("SELECT owner, COALESCE").
					WithArgs("punks", "7").
					WillReturnRows(pgxmock.NewRows([]string{"owner", "approved"}).AddRow("alice", ""))
				mock.ExpectQuery("SELECT EXISTS").
					WithArgs("alice", "ledger-custody").
					WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
			},
			wantErr: ports.ErrMoveNotAuthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			mock.ExpectBegin()
			tt.prepare(mock)
			mock.ExpectRollback()

			err = NewRegistryRepo(mock, testMover).Move(context.Background(), testKey, "alice", testMover)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
