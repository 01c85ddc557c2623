package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// Amounts go over the wire as JSON numbers, matching the public API.
	decimal.MarshalJSONWithoutQuotes = true
}

type TransactionStatus string

const (
	TransactionInitiated           TransactionStatus = "initiated"
	TransactionDebitSuccess        TransactionStatus = "debit_success"
	TransactionCreditSuccess       TransactionStatus = "credit_success"
	TransactionFailed              TransactionStatus = "failed"
	TransactionCreditFailed        TransactionStatus = "credit_failed"
	TransactionDebitCompensate     TransactionStatus = "debit_compensate"
	TransactionCompensationSuccess TransactionStatus = "compensation_success"
	TransactionCompleted           TransactionStatus = "completed"
)

// Terminal reports whether no further status transition is allowed.
// Handlers must treat events arriving for a terminal transaction as
// duplicates and ignore them.
func (s TransactionStatus) Terminal() bool {
	return s == TransactionCompleted || s == TransactionFailed
}

type TransactionType string

const (
	TransactionTypeTransfer TransactionType = "transfer"
	TransactionTypeCredit   TransactionType = "credit"
	TransactionTypeDebit    TransactionType = "debit"
)

type Transaction struct {
	ID                       int64             `json:"-"`
	UserID                   *int64            `json:"userId,omitempty"`
	TransactionID            string            `json:"transactionId"`
	SourceAccountNumber      string            `json:"sourceAccountNumber"`
	DestinationAccountNumber string            `json:"destinationAccountNumber"`
	TransactionType          TransactionType   `json:"transactionType"`
	Status                   TransactionStatus `json:"status"`
	Amount                   decimal.Decimal   `json:"amount"`
	Note                     string            `json:"note,omitempty"`
	ReferenceID              string            `json:"referenceId,omitempty"`
	IsInternal               bool              `json:"isInternal"`
	IsSourceExternal         bool              `json:"isSourceExternal"`
	IsDestinationExternal    bool              `json:"isDestinationExternal"`
	SourceBankCode           string            `json:"sourceBankCode,omitempty"`
	DestinationBankCode      string            `json:"destinationBankCode,omitempty"`
	Details                  string            `json:"details,omitempty"`
	CompletedAt              *time.Time        `json:"completedAt,omitempty"`
	SourceDebitedAt          *time.Time        `json:"sourceDebitedAt,omitempty"`
	DestinationCreditedAt    *time.Time        `json:"destinationCreditedAt,omitempty"`
	CompensatedAt            *time.Time        `json:"compensatedAt,omitempty"`
	CreatedAt                time.Time         `json:"createdAt"`
	UpdatedAt                time.Time         `json:"updatedAt"`
}

const transactionIDPrefix = "VBNK-"

// NewTransactionID returns a bank-prefixed, globally unique transaction
// identifier, e.g. VBNK-9BD1F6C0A44E4C2B8F4E1D2C3B4A5968.
func NewTransactionID() string {
	uniquePart := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return transactionIDPrefix + uniquePart
}

// NewReferenceID returns the correlation key shared with the interbank
// network for an external transfer. Stable across retries once assigned.
func NewReferenceID() string {
	return uuid.NewString()
}
