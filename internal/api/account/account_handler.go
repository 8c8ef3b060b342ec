package account

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/kodbank/kodbank/app/observability/metrics"
	"github.com/kodbank/kodbank/internal/api"
	"github.com/kodbank/kodbank/internal/api/auth"
)

// AccountHandler exposes balance, transfer and transaction history over
// HTTP. All routes sit behind the auth middleware.
type AccountHandler struct {
	accountService AccountService
	logger         *slog.Logger
}

func NewAccountHandler(accountService AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

// Balance handles GET /api/balance.
func (h *AccountHandler) Balance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	username, ok := auth.GetUsernameFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, api.CodeUnauthorized, "Authentication required")
		return
	}

	balance, err := h.accountService.GetBalance(ctx, username)
	if err != nil {
		api.DomainErrorResponse(w, r, err, "User not found")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"balance": balance,
	})
}

// Transfer handles POST /api/transfer.
func (h *AccountHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	username, ok := auth.GetUsernameFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, api.CodeUnauthorized, "Authentication required")
		return
	}

	var req TransferRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "Transfer payload rejected", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, api.CodeValidationError, err.Error())
		return
	}

	result, err := h.accountService.Transfer(ctx, username, req.ReceiverUsername, req.Amount)
	if err != nil {
		api.DomainErrorResponse(w, r, err, transferFailureMessage(err))
		return
	}

	metrics.TransfersTotal.Inc()
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"status":           "success",
		"message":          "Transfer completed",
		"sender_balance":   result.SenderBalance,
		"receiver_balance": result.ReceiverBalance,
	})
}

func transferFailureMessage(err error) string {
	code, _ := api.CodeForError(err)
	switch code {
	case api.CodeInvalidAmount:
		return "Transfer amount must be greater than zero"
	case api.CodeInvalidTransfer:
		return "Cannot transfer money to yourself"
	case api.CodeInsufficientBalance:
		return "Insufficient balance"
	case api.CodeSenderNotFound:
		return "Sender account not found"
	case api.CodeReceiverNotFound:
		return "Receiver account not found"
	case api.CodeValidationError:
		return err.Error()
	default:
		return "Transfer failed"
	}
}

// Transactions handles GET /api/transactions.
func (h *AccountHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	username, ok := auth.GetUsernameFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, api.CodeUnauthorized, "Authentication required")
		return
	}

	limit := defaultTransactionLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	transactions, err := h.accountService.GetTransactions(ctx, username, limit)
	if err != nil {
		api.DomainErrorResponse(w, r, err, "Failed to fetch transactions")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"status":       "success",
		"transactions": transactions,
	})
}
