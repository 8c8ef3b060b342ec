package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kodbank/kodbank/internal/api"
)

var _ AccountRepo = (*AccountRepoFactory)(nil)

// PGXDB is the subset of pgxpool.Pool the repository needs; pgxmock
// satisfies it in tests.
type PGXDB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// AccountRepo reads balances and moves money between accounts.
type AccountRepo interface {
	GetBalance(ctx context.Context, username string) (float64, error)
	Transfer(ctx context.Context, sender, receiver string, amount float64) (*TransferResult, error)
	GetTransactions(ctx context.Context, username string, limit int) ([]Transaction, error)
}

type AccountRepoFactory struct {
	logger *slog.Logger
	db     PGXDB
}

func NewAccountRepoFactory(db PGXDB, logger *slog.Logger) *AccountRepoFactory {
	return &AccountRepoFactory{
		logger: logger,
		db:     db,
	}
}

func (r *AccountRepoFactory) GetBalance(ctx context.Context, username string) (float64, error) {
	var balance float64
	err := r.db.QueryRow(ctx,
		`SELECT balance FROM users WHERE username = $1`,
		username).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%w: user %q", api.ErrNotFound, username)
		}
		return 0, fmt.Errorf("get balance: query failed: %w", err)
	}
	return balance, nil
}

// Transfer debits the sender and credits the receiver in one transaction;
// the ledger row is written inside it too, so a failure anywhere rolls the
// whole move back. Both rows are locked in username order to avoid a
// deadlock between two opposite concurrent transfers.
func (r *AccountRepoFactory) Transfer(ctx context.Context, sender, receiver string, amount float64) (*TransferResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("transfer: begin failed: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	first, second := sender, receiver
	if second < first {
		first, second = second, first
	}

	balances := map[string]float64{}
	rows, err := tx.Query(ctx,
		`SELECT username, balance FROM users WHERE username = ANY($1) ORDER BY username FOR UPDATE`,
		[]string{first, second})
	if err != nil {
		return nil, fmt.Errorf("transfer: lock query failed: %w", err)
	}
	for rows.Next() {
		var username string
		var balance float64
		if err := rows.Scan(&username, &balance); err != nil {
			rows.Close()
			return nil, fmt.Errorf("transfer: scan failed: %w", err)
		}
		balances[username] = balance
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("transfer: row iteration failed: %w", err)
	}

	senderBalance, ok := balances[sender]
	if !ok {
		return nil, fmt.Errorf("%w: %q", api.ErrSenderNotFound, sender)
	}
	receiverBalance, ok := balances[receiver]
	if !ok {
		return nil, fmt.Errorf("%w: %q", api.ErrReceiverNotFound, receiver)
	}

	if senderBalance < amount {
		return nil, fmt.Errorf("%w: available %.2f", api.ErrInsufficientBalance, senderBalance)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE users SET balance = balance - $1 WHERE username = $2`,
		amount, sender); err != nil {
		return nil, fmt.Errorf("transfer: debit failed: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE users SET balance = balance + $1 WHERE username = $2`,
		amount, receiver); err != nil {
		return nil, fmt.Errorf("transfer: credit failed: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO transactions (sender_username, receiver_username, amount, transaction_type, status)
         VALUES ($1, $2, $3, 'transfer', 'completed')`,
		sender, receiver, amount); err != nil {
		return nil, fmt.Errorf("transfer: ledger insert failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("transfer: commit failed: %w", err)
	}

	return &TransferResult{
		SenderBalance:   senderBalance - amount,
		ReceiverBalance: receiverBalance + amount,
	}, nil
}

func (r *AccountRepoFactory) GetTransactions(ctx context.Context, username string, limit int) ([]Transaction, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, sender_username, receiver_username, amount, transaction_type, status, created_at,
                CASE WHEN sender_username = $1 THEN 'sent' ELSE 'received' END AS direction
         FROM transactions
         WHERE sender_username = $1 OR receiver_username = $1
         ORDER BY created_at DESC
         LIMIT $2`,
		username, limit)
	if err != nil {
		return nil, fmt.Errorf("get transactions: query failed: %w", err)
	}
	defer rows.Close()

	transactions := make([]Transaction, 0, limit)
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.SenderUsername, &t.ReceiverUsername, &t.Amount,
			&t.TransactionType, &t.Status, &t.CreatedAt, &t.Direction); err != nil {
			return nil, fmt.Errorf("get transactions: scan failed: %w", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get transactions: row iteration failed: %w", err)
	}

	return transactions, nil
}
