package accounts_repo

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/vivekbharatha/vbank/internal/domain"
)

type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByAccountNumber(ctx context.Context, accountNumber string) (*domain.Account, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Account, error)
	FindByUserAndType(ctx context.Context, userID int64, accountType domain.AccountType) (*domain.Account, error)
	Delete(ctx context.Context, userID int64, accountNumber string) error

	// ApplyEntry atomically mutates a balance as one leg of a saga. The
	// (transaction id, entry type) pair is unique: a redelivered event
	// yields domain.ErrEntryAlreadyApplied and leaves the ledger untouched.
	ApplyEntry(ctx context.Context, entry domain.LedgerEntry) (*domain.Account, error)

	// UpdateBalance is the direct credit/debit used by the internal
	// account transaction endpoint, outside any saga.
	UpdateBalance(ctx context.Context, accountNumber string, txType domain.TransactionType, amount decimal.Decimal) (*domain.Account, error)
}
