package transactions_repo

import (
	"context"

	"github.com/vivekbharatha/vbank/internal/domain"
)

type TransactionRepository interface {
	Create(ctx context.Context, txn *domain.Transaction) error
	GetByTransactionID(ctx context.Context, transactionID string) (*domain.Transaction, error)
	GetByReferenceID(ctx context.Context, referenceID string) (*domain.Transaction, error)
	Update(ctx context.Context, txn *domain.Transaction) error
}
