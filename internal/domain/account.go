package domain

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeSavings AccountType = "savings"
	AccountTypeCurrent AccountType = "current"
)

type AccountStatus string

const (
	AccountStatusActive AccountStatus = "active"
	AccountStatusFrozen AccountStatus = "frozen"
	AccountStatusClosed AccountStatus = "closed"
)

type Account struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"userId"`
	AccountNumber string          `json:"accountNumber"`
	AccountName   string          `json:"accountName"`
	AccountType   AccountType     `json:"accountType"`
	AccountStatus AccountStatus   `json:"accountStatus"`
	Balance       decimal.Decimal `json:"balance"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// LedgerEntryType identifies which leg of a saga a ledger mutation
// belongs to. Together with the transaction id it forms the idempotency
// key for balance updates: each leg is applied at most once.
type LedgerEntryType string

const (
	LedgerEntryDebit        LedgerEntryType = "debit"
	LedgerEntryCredit       LedgerEntryType = "credit"
	LedgerEntryCompensation LedgerEntryType = "compensation"
)

type LedgerEntry struct {
	TransactionID string
	EntryType     LedgerEntryType
	AccountNumber string
	Amount        decimal.Decimal
	CreatedAt     time.Time
}

var accountTypeDigits = map[AccountType]string{
	AccountTypeSavings: "11",
	AccountTypeCurrent: "13",
}

// NewAccountNumber returns a 15 digit numeric account number:
// two type digits, four year digits, two type digits, seven random digits.
func NewAccountNumber(accountType AccountType) string {
	typeDigits, ok := accountTypeDigits[accountType]
	if !ok {
		typeDigits = accountTypeDigits[AccountTypeSavings]
	}
	return fmt.Sprintf("%s%d%s%07d", typeDigits, time.Now().Year(), typeDigits, rand.Intn(10000000))
}

// RoundAmount truncates monetary values to two decimal places so repeated
// debit/credit cycles cannot accumulate sub-cent drift.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
