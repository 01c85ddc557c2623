package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vivekbharatha/vbank/internal/domain"
	"github.com/vivekbharatha/vbank/internal/events"
	"github.com/vivekbharatha/vbank/internal/repository/accounts_repo"
)

type CreateAccountParams struct {
	UserID      int64
	AccountName string
	AccountType domain.AccountType
}

type InternalTransactionParams struct {
	AccountNumber   string
	TransactionType domain.TransactionType
	Amount          decimal.Decimal
	Note            string
}

type Service interface {
	Create(ctx context.Context, p CreateAccountParams) (*domain.Account, error)
	GetByAccountNumber(ctx context.Context, userID int64, accountNumber string) (*domain.Account, error)
	// LookupByAccountNumber resolves an account without an ownership
	// check, for service-to-service callers holding the API key.
	LookupByAccountNumber(ctx context.Context, accountNumber string) (*domain.Account, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Account, error)
	Delete(ctx context.Context, userID int64, accountNumber string) error
	ApplyInternalTransaction(ctx context.Context, p InternalTransactionParams) (*domain.Account, error)
}

type service struct {
	accounts  accounts_repo.AccountRepository
	publisher events.Publisher
	logger    *zap.Logger
}

func NewService(accounts accounts_repo.AccountRepository, publisher events.Publisher, logger *zap.Logger) Service {
	return &service{accounts: accounts, publisher: publisher, logger: logger}
}

// Create opens an account of the given type for the user. One account
// per type per user: a second savings account is rejected rather than
// silently returned.
func (s *service) Create(ctx context.Context, p CreateAccountParams) (*domain.Account, error) {
	if p.AccountType != domain.AccountTypeSavings && p.AccountType != domain.AccountTypeCurrent {
		return nil, fmt.Errorf("%w: unknown account type %q", domain.ErrValidation, p.AccountType)
	}

	_, err := s.accounts.FindByUserAndType(ctx, p.UserID, p.AccountType)
	if err == nil {
		return nil, domain.ErrAccountAlreadyExists
	}
	if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, err
	}

	account := &domain.Account{
		UserID:        p.UserID,
		AccountNumber: domain.NewAccountNumber(p.AccountType),
		AccountName:   p.AccountName,
		AccountType:   p.AccountType,
		AccountStatus: domain.AccountStatusActive,
		Balance:       decimal.Zero,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.logger.Info("account created",
		zap.Int64("user_id", p.UserID),
		zap.String("account_number", account.AccountNumber))

	s.publish(ctx, domain.AccountCreatedTopic, account)
	return account, nil
}

func (s *service) GetByAccountNumber(ctx context.Context, userID int64, accountNumber string) (*domain.Account, error) {
	account, err := s.accounts.GetByAccountNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	if account.UserID != userID {
		// Hide other users' accounts instead of acknowledging they exist.
		return nil, domain.ErrAccountNotFound
	}
	return account, nil
}

func (s *service) LookupByAccountNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	return s.accounts.GetByAccountNumber(ctx, accountNumber)
}

func (s *service) ListByUser(ctx context.Context, userID int64) ([]domain.Account, error) {
	return s.accounts.ListByUser(ctx, userID)
}

func (s *service) Delete(ctx context.Context, userID int64, accountNumber string) error {
	account, err := s.GetByAccountNumber(ctx, userID, accountNumber)
	if err != nil {
		return err
	}
	if !account.Balance.IsZero() {
		return fmt.Errorf("%w: account balance must be zero before deletion", domain.ErrValidation)
	}

	if err := s.accounts.Delete(ctx, userID, accountNumber); err != nil {
		return err
	}

	s.logger.Info("account deleted",
		zap.Int64("user_id", userID),
		zap.String("account_number", accountNumber))

	s.publish(ctx, domain.AccountDeletedTopic, account)
	return nil
}

// ApplyInternalTransaction credits or debits an account directly,
// outside the saga flow. Used for cash deposits and withdrawals.
func (s *service) ApplyInternalTransaction(ctx context.Context, p InternalTransactionParams) (*domain.Account, error) {
	if p.TransactionType != domain.TransactionTypeCredit && p.TransactionType != domain.TransactionTypeDebit {
		return nil, fmt.Errorf("%w: transaction type must be credit or debit", domain.ErrValidation)
	}
	if !p.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be greater than zero", domain.ErrValidation)
	}

	account, err := s.accounts.UpdateBalance(ctx, p.AccountNumber, p.TransactionType, p.Amount)
	if err != nil {
		return nil, err
	}

	s.logger.Info("internal transaction applied",
		zap.String("account_number", p.AccountNumber),
		zap.String("transaction_type", string(p.TransactionType)),
		zap.String("amount", p.Amount.String()))

	return account, nil
}

// publish sends an account lifecycle notification. These are advisory
// fan-out events; a publish failure must not fail the user's request.
func (s *service) publish(ctx context.Context, topic string, account *domain.Account) {
	payload, err := json.Marshal(account)
	if err != nil {
		s.logger.Error("failed to marshal account event", zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, topic, account.AccountNumber, payload); err != nil {
		s.logger.Error("failed to publish account event",
			zap.String("topic", topic), zap.Error(err))
	}
}
