package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kodbank/kodbank/internal/api"
)

var _ AccountService = (*AccountServiceImpl)(nil)

const defaultTransactionLimit = 10

// AccountService exposes balance inquiry and money movement for an
// already-authenticated username.
type AccountService interface {
	GetBalance(ctx context.Context, username string) (float64, error)
	Transfer(ctx context.Context, sender, receiver string, amount float64) (*TransferResult, error)
	GetTransactions(ctx context.Context, username string, limit int) ([]Transaction, error)
}

type AccountServiceImpl struct {
	logger *slog.Logger
	repo   AccountRepo
}

func NewAccountService(repo AccountRepo, logger *slog.Logger) *AccountServiceImpl {
	return &AccountServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

func (s *AccountServiceImpl) GetBalance(ctx context.Context, username string) (float64, error) {
	balance, err := s.repo.GetBalance(ctx, username)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return 0, err
		}
		s.logger.ErrorContext(ctx, "Balance lookup failed", slog.String("username", username), slog.Any("error", err))
		return 0, fmt.Errorf("%w: fetching balance: %s", api.ErrInternal, err)
	}
	return balance, nil
}

func (s *AccountServiceImpl) Transfer(ctx context.Context, sender, receiver string, amount float64) (*TransferResult, error) {
	l := s.logger.With(slog.String("method", "Transfer"),
		slog.String("sender", sender), slog.String("receiver", receiver))

	if receiver == "" {
		return nil, fmt.Errorf("%w: receiver username is required", api.ErrValidation)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: transfer amount must be greater than zero", api.ErrInvalidAmount)
	}
	if sender == receiver {
		return nil, fmt.Errorf("%w: cannot transfer money to yourself", api.ErrInvalidTransfer)
	}

	result, err := s.repo.Transfer(ctx, sender, receiver, amount)
	if err != nil {
		if errors.Is(err, api.ErrSenderNotFound) || errors.Is(err, api.ErrReceiverNotFound) ||
			errors.Is(err, api.ErrInsufficientBalance) {
			l.WarnContext(ctx, "Transfer rejected", slog.Any("error", err))
			return nil, err
		}
		l.ErrorContext(ctx, "Transfer failed", slog.Any("error", err))
		return nil, fmt.Errorf("%w: executing transfer: %s", api.ErrInternal, err)
	}

	l.InfoContext(ctx, "Transfer completed", slog.Float64("amount", amount))
	return result, nil
}

func (s *AccountServiceImpl) GetTransactions(ctx context.Context, username string, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = defaultTransactionLimit
	}

	transactions, err := s.repo.GetTransactions(ctx, username, limit)
	if err != nil {
		s.logger.ErrorContext(ctx, "Transaction history lookup failed", slog.String("username", username), slog.Any("error", err))
		return nil, fmt.Errorf("%w: fetching transactions: %s", api.ErrInternal, err)
	}
	return transactions, nil
}
