package accounts

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vivekbharatha/vbank/internal/domain"
)

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) GetByAccountNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	args := m.Called(ctx, accountNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) FindByUserAndType(ctx context.Context, userID int64, accountType domain.AccountType) (*domain.Account, error) {
	args := m.Called(ctx, userID, accountType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) Delete(ctx context.Context, userID int64, accountNumber string) error {
	args := m.Called(ctx, userID, accountNumber)
	return args.Error(0)
}

func (m *MockAccountRepository) ApplyEntry(ctx context.Context, entry domain.LedgerEntry) (*domain.Account, error) {
	args := m.Called(ctx, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) UpdateBalance(ctx context.Context, accountNumber string, txType domain.TransactionType, amount decimal.Decimal) (*domain.Account, error) {
	args := m.Called(ctx, accountNumber, txType, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, string, []byte) error { return nil }

func TestCreateAccount(t *testing.T) {
	t.Run("first account of a type is created with a fresh number", func(t *testing.T) {
		repo := &MockAccountRepository{}
		svc := NewService(repo, nopPublisher{}, zap.NewNop())

		repo.On("FindByUserAndType", mock.Anything, int64(7), domain.AccountTypeSavings).
			Return(nil, domain.ErrAccountNotFound)
		repo.On("Create", mock.Anything, mock.MatchedBy(func(a *domain.Account) bool {
			return len(a.AccountNumber) == 15 && a.AccountStatus == domain.AccountStatusActive
		})).Return(nil)

		account, err := svc.Create(context.Background(), CreateAccountParams{
			UserID:      7,
			AccountName: "Main savings",
			AccountType: domain.AccountTypeSavings,
		})
		require.NoError(t, err)
		assert.True(t, account.Balance.IsZero())
		repo.AssertExpectations(t)
	})

	t.Run("second account of the same type is rejected", func(t *testing.T) {
		repo := &MockAccountRepository{}
		svc := NewService(repo, nopPublisher{}, zap.NewNop())

		repo.On("FindByUserAndType", mock.Anything, int64(7), domain.AccountTypeSavings).
			Return(&domain.Account{AccountNumber: "112025110000001"}, nil)

		_, err := svc.Create(context.Background(), CreateAccountParams{
			UserID:      7,
			AccountType: domain.AccountTypeSavings,
		})
		assert.ErrorIs(t, err, domain.ErrAccountAlreadyExists)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("unknown account type", func(t *testing.T) {
		repo := &MockAccountRepository{}
		svc := NewService(repo, nopPublisher{}, zap.NewNop())

		_, err := svc.Create(context.Background(), CreateAccountParams{
			UserID:      7,
			AccountType: "premium",
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestGetByAccountNumber(t *testing.T) {
	t.Run("other users' accounts are hidden", func(t *testing.T) {
		repo := &MockAccountRepository{}
		svc := NewService(repo, nopPublisher{}, zap.NewNop())

		repo.On("GetByAccountNumber", mock.Anything, "112025110000001").
			Return(&domain.Account{UserID: 99, AccountNumber: "112025110000001"}, nil)

		_, err := svc.GetByAccountNumber(context.Background(), 7, "112025110000001")
		assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	})
}

func TestDeleteAccount(t *testing.T) {
	t.Run("non-zero balance blocks deletion", func(t *testing.T) {
		repo := &MockAccountRepository{}
		svc := NewService(repo, nopPublisher{}, zap.NewNop())

		repo.On("GetByAccountNumber", mock.Anything, "112025110000001").
			Return(&domain.Account{UserID: 7, AccountNumber: "112025110000001", Balance: decimal.NewFromInt(10)}, nil)

		err := svc.Delete(context.Background(), 7, "112025110000001")
		assert.ErrorIs(t, err, domain.ErrValidation)
		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestApplyInternalTransaction(t *testing.T) {
	t.Run("credit", func(t *testing.T) {
		repo := &MockAccountRepository{}
		svc := NewService(repo, nopPublisher{}, zap.NewNop())

		repo.On("UpdateBalance", mock.Anything, "112025110000001", domain.TransactionTypeCredit, mock.Anything).
			Return(&domain.Account{AccountNumber: "112025110000001", Balance: decimal.NewFromInt(500)}, nil)

		account, err := svc.ApplyInternalTransaction(context.Background(), InternalTransactionParams{
			AccountNumber:   "112025110000001",
			TransactionType: domain.TransactionTypeCredit,
			Amount:          decimal.NewFromInt(500),
		})
		require.NoError(t, err)
		assert.True(t, account.Balance.Equal(decimal.NewFromInt(500)))
	})

	t.Run("transfer type is not allowed here", func(t *testing.T) {
		repo := &MockAccountRepository{}
		svc := NewService(repo, nopPublisher{}, zap.NewNop())

		_, err := svc.ApplyInternalTransaction(context.Background(), InternalTransactionParams{
			AccountNumber:   "112025110000001",
			TransactionType: domain.TransactionTypeTransfer,
			Amount:          decimal.NewFromInt(500),
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}
