package domain

import "errors"

var (
	ErrValidation           = errors.New("validation error")
	ErrAccountNotFound      = errors.New("account not found")
	ErrAccountAlreadyExists = errors.New("account already exists")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrEntryAlreadyApplied  = errors.New("ledger entry already applied")
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailAlreadyTaken    = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid credentials")
)

// vbank error codes, carried on failure events and API error responses.
const (
	ErrCodeAccountNotFound      = "ET01"
	ErrCodeInsufficientBalance  = "ET02"
	ErrCodeTransactionFailed    = "ET03"
	ErrCodeExternalCreditFailed = "EXTERNAL_CREDIT_FAILED"
)

// ErrorCode maps a ledger error to its wire code. Unknown errors map to
// the generic transaction failure code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrAccountNotFound):
		return ErrCodeAccountNotFound
	case errors.Is(err, ErrInsufficientBalance):
		return ErrCodeInsufficientBalance
	default:
		return ErrCodeTransactionFailed
	}
}
