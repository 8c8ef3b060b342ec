package api

import (
	"errors"
	"net/http"
)

// Domain error sentinels. Services wrap these with fmt.Errorf("...: %w", ...)
// and handlers translate them once into the wire envelope; raw storage or
// crypto errors never cross the API boundary unmapped.
var (
	ErrValidation      = errors.New("validation failed")
	ErrConflict        = errors.New("resource already exists")
	ErrNotFound        = errors.New("resource not found")
	ErrUnauthenticated = errors.New("invalid credentials")
	ErrTokenMissing    = errors.New("no token provided")
	ErrTokenExpired    = errors.New("token expired")
	ErrTokenInvalid    = errors.New("token invalid")
	ErrInternal        = errors.New("internal error")

	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidTransfer     = errors.New("invalid transfer")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrSenderNotFound      = errors.New("sender account not found")
	ErrReceiverNotFound    = errors.New("receiver account not found")
)

// Wire error codes as the frontend expects them.
const (
	CodeValidationError     = "VALIDATION_ERROR"
	CodeDuplicateUser       = "DUPLICATE_USER"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeTokenMissing        = "TOKEN_MISSING"
	CodeTokenExpired        = "TOKEN_EXPIRED"
	CodeTokenInvalid        = "TOKEN_INVALID"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeInternalError       = "INTERNAL_ERROR"
	CodeInvalidAmount       = "INVALID_AMOUNT"
	CodeInvalidTransfer     = "INVALID_TRANSFER"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeSenderNotFound      = "SENDER_NOT_FOUND"
	CodeReceiverNotFound    = "RECEIVER_NOT_FOUND"
)

// CodeForError maps a domain error to its wire code and HTTP status.
func CodeForError(err error) (string, int) {
	switch {
	case errors.Is(err, ErrValidation):
		return CodeValidationError, http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return CodeDuplicateUser, http.StatusConflict
	case errors.Is(err, ErrUnauthenticated):
		return CodeInvalidCredentials, http.StatusUnauthorized
	case errors.Is(err, ErrTokenMissing):
		return CodeTokenMissing, http.StatusUnauthorized
	case errors.Is(err, ErrTokenExpired):
		return CodeTokenExpired, http.StatusUnauthorized
	case errors.Is(err, ErrTokenInvalid):
		return CodeTokenInvalid, http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return CodeUnauthorized, http.StatusUnauthorized
	case errors.Is(err, ErrInvalidAmount):
		return CodeInvalidAmount, http.StatusBadRequest
	case errors.Is(err, ErrInvalidTransfer):
		return CodeInvalidTransfer, http.StatusBadRequest
	case errors.Is(err, ErrInsufficientBalance):
		return CodeInsufficientBalance, http.StatusBadRequest
	case errors.Is(err, ErrSenderNotFound):
		return CodeSenderNotFound, http.StatusNotFound
	case errors.Is(err, ErrReceiverNotFound):
		return CodeReceiverNotFound, http.StatusNotFound
	default:
		return CodeInternalError, http.StatusInternalServerError
	}
}
