package account

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodbank/kodbank/internal/api"
)

func newTestRepo(t *testing.T) (*AccountRepoFactory, pgxmock.PgxPoolIface) {
	t.Helper()
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockDB.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAccountRepoFactory(mockDB, logger), mockDB
}

func TestAccountRepoGetBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		repo, mockDB := newTestRepo(t)

		mockDB.ExpectQuery(regexp.QuoteMeta(`SELECT balance FROM users WHERE username = $1`)).
			WithArgs("alice").
			WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(100000.00))

		balance, err := repo.GetBalance(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, 100000.00, balance)
		assert.NoError(t, mockDB.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		repo, mockDB := newTestRepo(t)

		mockDB.ExpectQuery(regexp.QuoteMeta(`SELECT balance FROM users WHERE username = $1`)).
			WithArgs("ghost").
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetBalance(ctx, "ghost")
		assert.ErrorIs(t, err, api.ErrNotFound)
		assert.NoError(t, mockDB.ExpectationsWereMet())
	})
}

func TestAccountRepoTransfer(t *testing.T) {
	ctx := context.Background()
	lockQuery := regexp.QuoteMeta(`SELECT username, balance FROM users WHERE username = ANY($1) ORDER BY username FOR UPDATE`)

	t.Run("Success", func(t *testing.T) {
		repo, mockDB := newTestRepo(t)

		mockDB.ExpectBegin()
		mockDB.ExpectQuery(lockQuery).
			WithArgs([]string{"alice", "bob"}).
			WillReturnRows(pgxmock.NewRows([]string{"username", "balance"}).
				AddRow("alice", 100000.00).
				AddRow("bob", 100000.00))
		mockDB.ExpectExec(regexp.QuoteMeta(`UPDATE users SET balance = balance - $1 WHERE username = $2`)).
			WithArgs(250.00, "alice").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mockDB.ExpectExec(regexp.QuoteMeta(`UPDATE users SET balance = balance + $1 WHERE username = $2`)).
			WithArgs(250.00, "bob").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mockDB.ExpectExec(regexp.QuoteMeta(`INSERT INTO transactions`)).
			WithArgs("alice", "bob", 250.00).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockDB.ExpectCommit()
		mockDB.ExpectRollback() // deferred rollback after commit is a no-op

		result, err := repo.Transfer(ctx, "alice", "bob", 250.00)
		require.NoError(t, err)
		assert.Equal(t, 99750.00, result.SenderBalance)
		assert.Equal(t, 100250.00, result.ReceiverBalance)
		assert.NoError(t, mockDB.ExpectationsWereMet())
	})

	t.Run("LocksInUsernameOrder", func(t *testing.T) {
		repo, mockDB := newTestRepo(t)

		// Sender sorts after receiver; the lock set must still be passed
		// in ascending order.
		mockDB.ExpectBegin()
		mockDB.ExpectQuery(lockQuery).
			WithArgs([]string{"alice", "bob"}).
			WillReturnRows(pgxmock.NewRows([]string{"username", "balance"}).
				AddRow("alice", 100000.00).
				AddRow("bob", 100000.00))
		mockDB.ExpectExec(regexp.QuoteMeta(`UPDATE users SET balance = balance - $1 WHERE username = $2`)).
			WithArgs(100.00, "bob").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mockDB.ExpectExec(regexp.QuoteMeta(`UPDATE users SET balance = balance + $1 WHERE username = $2`)).
			WithArgs(100.00, "alice").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mockDB.ExpectExec(regexp.QuoteMeta(`INSERT INTO transactions`)).
			WithArgs("bob", "alice", 100.00).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockDB.ExpectCommit()
		mockDB.ExpectRollback()

		_, err := repo.Transfer(ctx, "bob", "alice", 100.00)
		require.NoError(t, err)
		assert.NoError(t, mockDB.ExpectationsWereMet())
	})

	t.Run("InsufficientBalance", func(t *testing.T) {
		repo, mockDB := newTestRepo(t)

		mockDB.ExpectBegin()
		mockDB.ExpectQuery(lockQuery).
			WithArgs([]string{"alice", "bob"}).
			WillReturnRows(pgxmock.NewRows([]string{"username", "balance"}).
				AddRow("alice", 50.00).
				AddRow("bob", 100000.00))
		mockDB.ExpectRollback()

		_, err := repo.Transfer(ctx, "alice", "bob", 250.00)
		assert.ErrorIs(t, err, api.ErrInsufficientBalance)
		assert.NoError(t, mockDB.ExpectationsWereMet())
	})

	t.Run("ReceiverMissing", func(t *testing.T) {
		repo, mockDB := newTestRepo(t)

		mockDB.ExpectBegin()
		mockDB.ExpectQuery(lockQuery).
			WithArgs([]string{"alice", "ghost"}).
			WillReturnRows(pgxmock.NewRows([]string{"username", "balance"}).
				AddRow("alice", 100000.00))
		mockDB.ExpectRollback()

		_, err := repo.Transfer(ctx, "alice", "ghost", 250.00)
		assert.ErrorIs(t, err, api.ErrReceiverNotFound)
		assert.NoError(t, mockDB.ExpectationsWereMet())
	})

	t.Run("SenderMissing", func(t *testing.T) {
		repo, mockDB := newTestRepo(t)

		mockDB.ExpectBegin()
		mockDB.ExpectQuery(lockQuery).
			WithArgs([]string{"bob", "ghost"}).
			WillReturnRows(pgxmock.NewRows([]string{"username", "balance"}).
				AddRow("bob", 100000.00))
		mockDB.ExpectRollback()

		_, err := repo.Transfer(ctx, "ghost", "bob", 250.00)
		assert.ErrorIs(t, err, api.ErrSenderNotFound)
		assert.NoError(t, mockDB.ExpectationsWereMet())
	})
}

func TestAccountRepoGetTransactions(t *testing.T) {
	ctx := context.Background()

	t.Run("DirectionPerRow", func(t *testing.T) {
		repo, mockDB := newTestRepo(t)
		now := time.Now()

		rows := pgxmock.NewRows([]string{"id", "sender_username", "receiver_username", "amount",
			"transaction_type", "status", "created_at", "direction"}).
			AddRow(int64(2), "alice", "bob", 250.00, "transfer", "completed", now, "sent").
			AddRow(int64(1), "carol", "alice", 75.00, "transfer", "completed", now.Add(-time.Hour), "received")
		mockDB.ExpectQuery(regexp.QuoteMeta(`FROM transactions`)).
			WithArgs("alice", 10).
			WillReturnRows(rows)

		transactions, err := repo.GetTransactions(ctx, "alice", 10)
		require.NoError(t, err)
		require.Len(t, transactions, 2)
		assert.Equal(t, "sent", transactions[0].Direction)
		assert.Equal(t, "received", transactions[1].Direction)
		assert.NoError(t, mockDB.ExpectationsWereMet())
	})

	t.Run("Empty", func(t *testing.T) {
		repo, mockDB := newTestRepo(t)

		mockDB.ExpectQuery(regexp.QuoteMeta(`FROM transactions`)).
			WithArgs("alice", 10).
			WillReturnRows(pgxmock.NewRows([]string{"id", "sender_username", "receiver_username", "amount",
				"transaction_type", "status", "created_at", "direction"}))

		transactions, err := repo.GetTransactions(ctx, "alice", 10)
		require.NoError(t, err)
		assert.Empty(t, transactions)
		assert.NoError(t, mockDB.ExpectationsWereMet())
	})
}
