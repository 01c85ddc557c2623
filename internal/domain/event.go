package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankCode identifies this bank on the interbank network. A transfer leg
// is external when its bank code differs from this value.
const BankCode = "VBANK"

const (
	TransactionEventsTopic = "transaction.events"
	AccountCreatedTopic    = "account.created"
	AccountDeletedTopic    = "account.deleted"
	UserRegisteredTopic    = "user.registered"
)

const (
	EventInitiated               = "INITIATED"
	EventAccountDebited          = "ACCOUNT_DEBITED"
	EventAccountDebitFailed      = "ACCOUNT_DEBIT_FAILED"
	EventAccountCredited         = "ACCOUNT_CREDITED"
	EventAccountCreditFailed     = "ACCOUNT_CREDIT_FAILED"
	EventAccountDebitCompensated = "ACCOUNT_DEBIT_COMPENSATED"
)

// TransactionEvent is the single schema carried on the transaction.events
// topic, keyed by transaction id. Events are append-only: consumers never
// mutate them, only react and publish follow-ups.
type TransactionEvent struct {
	UserID                    *int64            `json:"userId,omitempty"`
	TransactionID             string            `json:"transactionId"`
	EventType                 string            `json:"eventType"`
	Status                    TransactionStatus `json:"status"`
	Amount                    decimal.Decimal   `json:"amount"`
	SourceAccountNumber       string            `json:"sourceAccountNumber"`
	DestinationAccountNumber  string            `json:"destinationAccountNumber"`
	TransactionType           TransactionType   `json:"transactionType"`
	IsInternal                bool              `json:"isInternal"`
	Timestamp                 int64             `json:"timestamp,omitempty"`
	IsSourceExternal          bool              `json:"isSourceExternal,omitempty"`
	IsDestinationExternal     bool              `json:"isDestinationExternal,omitempty"`
	SourceBankCode            string            `json:"sourceBankCode,omitempty"`
	DestinationBankCode       string            `json:"destinationBankCode,omitempty"`
	SourceAccountBalance      *decimal.Decimal  `json:"sourceAccountBalance,omitempty"`
	DestinationAccountBalance *decimal.Decimal  `json:"destinationAccountBalance,omitempty"`
	SourceDebitedAt           *time.Time        `json:"sourceDebitedAt,omitempty"`
	DestinationCreditedAt     *time.Time        `json:"destinationCreditedAt,omitempty"`
	CompensatedAt             *time.Time        `json:"compensatedAt,omitempty"`
	Note                      string            `json:"note,omitempty"`
	ReferenceID               string            `json:"referenceId,omitempty"`
	Error                     string            `json:"error,omitempty"`
	ErrorCode                 string            `json:"errorCode,omitempty"`
}

// FollowUp copies the event for the next saga step: same transaction
// context, new event type, fresh timestamp stamped at publish time.
func (e TransactionEvent) FollowUp(eventType string) TransactionEvent {
	next := e
	next.EventType = eventType
	next.Timestamp = 0
	next.Error = ""
	next.ErrorCode = ""
	return next
}
