package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vivekbharatha/vbank/internal/domain"
	"github.com/vivekbharatha/vbank/internal/events"
	"github.com/vivekbharatha/vbank/internal/repository/accounts_repo"
)

// Service applies the ledger side of the transfer saga: it reacts to bus
// events by moving money on local accounts and publishing the outcome.
// Every mutation is recorded as a ledger entry, so redelivered events
// collapse into no-ops instead of double-posting.
type Service interface {
	HandleTransactionEvent(ctx context.Context, event domain.TransactionEvent) error
}

type service struct {
	accounts  accounts_repo.AccountRepository
	publisher events.Publisher
	logger    *zap.Logger
}

func NewService(accounts accounts_repo.AccountRepository, publisher events.Publisher, logger *zap.Logger) Service {
	return &service{accounts: accounts, publisher: publisher, logger: logger}
}

func (s *service) HandleTransactionEvent(ctx context.Context, event domain.TransactionEvent) error {
	switch event.EventType {
	case domain.EventInitiated:
		return s.debitSource(ctx, event)
	case domain.EventAccountDebited:
		return s.creditDestination(ctx, event)
	case domain.EventAccountCreditFailed:
		return s.compensateDebit(ctx, event)
	default:
		return nil
	}
}

func (s *service) debitSource(ctx context.Context, event domain.TransactionEvent) error {
	if event.IsSourceExternal {
		// The source leg was settled on the remote bank's ledger.
		return nil
	}

	account, err := s.accounts.ApplyEntry(ctx, domain.LedgerEntry{
		TransactionID: event.TransactionID,
		EntryType:     domain.LedgerEntryDebit,
		AccountNumber: event.SourceAccountNumber,
		Amount:        event.Amount,
	})
	if errors.Is(err, domain.ErrEntryAlreadyApplied) {
		s.logger.Info("debit already applied, skipping",
			zap.String("transaction_id", event.TransactionID))
		return nil
	}
	if err != nil {
		if !recoverable(err) {
			return fmt.Errorf("debit failed for %s: %w", event.TransactionID, err)
		}

		s.logger.Warn("debit rejected",
			zap.String("transaction_id", event.TransactionID),
			zap.String("account_number", event.SourceAccountNumber),
			zap.Error(err))

		failure := event.FollowUp(domain.EventAccountDebitFailed)
		failure.Error = err.Error()
		failure.ErrorCode = domain.ErrorCode(err)
		return events.PublishTransactionEvent(ctx, s.publisher, failure)
	}

	s.logger.Info("account debited",
		zap.String("transaction_id", event.TransactionID),
		zap.String("account_number", account.AccountNumber))

	now := time.Now()
	next := event.FollowUp(domain.EventAccountDebited)
	next.SourceDebitedAt = &now
	next.SourceAccountBalance = &account.Balance
	return events.PublishTransactionEvent(ctx, s.publisher, next)
}

func (s *service) creditDestination(ctx context.Context, event domain.TransactionEvent) error {
	if event.IsDestinationExternal {
		// Crediting happens on the remote bank; the receipt callback
		// closes this leg.
		return nil
	}

	account, err := s.accounts.ApplyEntry(ctx, domain.LedgerEntry{
		TransactionID: event.TransactionID,
		EntryType:     domain.LedgerEntryCredit,
		AccountNumber: event.DestinationAccountNumber,
		Amount:        event.Amount,
	})
	if errors.Is(err, domain.ErrEntryAlreadyApplied) {
		s.logger.Info("credit already applied, skipping",
			zap.String("transaction_id", event.TransactionID))
		return nil
	}
	if err != nil {
		if !recoverable(err) {
			return fmt.Errorf("credit failed for %s: %w", event.TransactionID, err)
		}

		s.logger.Warn("credit rejected",
			zap.String("transaction_id", event.TransactionID),
			zap.String("account_number", event.DestinationAccountNumber),
			zap.Error(err))

		failure := event.FollowUp(domain.EventAccountCreditFailed)
		failure.Error = err.Error()
		failure.ErrorCode = domain.ErrorCode(err)
		return events.PublishTransactionEvent(ctx, s.publisher, failure)
	}

	s.logger.Info("account credited",
		zap.String("transaction_id", event.TransactionID),
		zap.String("account_number", account.AccountNumber))

	now := time.Now()
	next := event.FollowUp(domain.EventAccountCredited)
	next.DestinationCreditedAt = &now
	next.DestinationAccountBalance = &account.Balance
	return events.PublishTransactionEvent(ctx, s.publisher, next)
}

func (s *service) compensateDebit(ctx context.Context, event domain.TransactionEvent) error {
	if event.IsSourceExternal {
		// No local debit was taken for an inbound external transfer.
		return nil
	}

	account, err := s.accounts.ApplyEntry(ctx, domain.LedgerEntry{
		TransactionID: event.TransactionID,
		EntryType:     domain.LedgerEntryCompensation,
		AccountNumber: event.SourceAccountNumber,
		Amount:        event.Amount,
	})
	if errors.Is(err, domain.ErrEntryAlreadyApplied) {
		s.logger.Info("compensation already applied, skipping",
			zap.String("transaction_id", event.TransactionID))
		return nil
	}
	if err != nil {
		// Money has left the source account and cannot be returned
		// automatically. This needs a human.
		s.logger.Error("money_safety_incident: compensation failed, manual intervention required",
			zap.String("transaction_id", event.TransactionID),
			zap.String("account_number", event.SourceAccountNumber),
			zap.String("amount", event.Amount.String()),
			zap.Error(err))
		return fmt.Errorf("compensation failed for %s: %w", event.TransactionID, err)
	}

	s.logger.Info("debit compensated",
		zap.String("transaction_id", event.TransactionID),
		zap.String("account_number", account.AccountNumber))

	now := time.Now()
	next := event.FollowUp(domain.EventAccountDebitCompensated)
	next.CompensatedAt = &now
	next.SourceAccountBalance = &account.Balance
	return events.PublishTransactionEvent(ctx, s.publisher, next)
}

// recoverable reports whether an error is a business rejection the saga
// can resolve with a failure event. Infrastructure errors stay errors so
// the event is redelivered.
func recoverable(err error) bool {
	return errors.Is(err, domain.ErrAccountNotFound) || errors.Is(err, domain.ErrInsufficientBalance)
}
