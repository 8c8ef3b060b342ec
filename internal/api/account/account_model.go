package account

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Transaction is a row in the transactions ledger, annotated with the
// direction relative to the requesting user.
type Transaction struct {
	ID               int64     `json:"id"`
	SenderUsername   string    `json:"sender_username"`
	ReceiverUsername string    `json:"receiver_username"`
	Amount           float64   `json:"amount"`
	TransactionType  string    `json:"transaction_type"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	Direction        string    `json:"direction"`
}

// TransferRequest represents the transfer request body.
type TransferRequest struct {
	ReceiverUsername string  `json:"receiver_username"`
	Amount           float64 `json:"amount"`
}

func (r TransferRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ReceiverUsername, validation.Required, validation.Length(1, 50)),
	)
}

// TransferResult carries both post-transfer balances back to the caller.
type TransferResult struct {
	SenderBalance   float64
	ReceiverBalance float64
}
