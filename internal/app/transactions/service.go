package transactions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vivekbharatha/vbank/internal/centralbank"
	"github.com/vivekbharatha/vbank/internal/domain"
	"github.com/vivekbharatha/vbank/internal/events"
	"github.com/vivekbharatha/vbank/internal/repository/transactions_repo"
)

const accountNumberLength = 15

// CentralBankGateway is the orchestrator's view of the interbank
// counterparty. Failures on these calls become failure events, never
// blocked sagas.
type CentralBankGateway interface {
	RequestOutboundCredit(ctx context.Context, req centralbank.OutboundCreditRequest) error
	NotifyOutcome(ctx context.Context, referenceID, status, errMsg string) error
}

type TransferParams struct {
	UserID                   int64
	SourceAccountNumber      string
	DestinationAccountNumber string
	Amount                   decimal.Decimal
	Note                     string
}

type ExternalTransferParams struct {
	TransferParams
	SourceBankCode      string
	DestinationBankCode string
	ReferenceID         string
}

type ExternalReceiptParams struct {
	ReferenceID string
	Status      string
	Error       string
	Timestamp   time.Time
}

type ExternalInboundParams struct {
	SourceAccount      string
	DestinationAccount string
	Amount             decimal.Decimal
	SourceBankCode     string
	DestinationBankCode string
	Note               string
	ReferenceID        string
	Timestamp          time.Time
}

// Service owns the Transaction record and its state machine. It initiates
// sagas, reacts to outcome events from the bus and bridges the external
// legs to the central bank. It never performs ledger mutations itself.
type Service interface {
	CreateTransfer(ctx context.Context, p TransferParams) (*domain.Transaction, error)
	CreateExternalTransfer(ctx context.Context, p ExternalTransferParams) (*domain.Transaction, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*domain.Transaction, error)
	GetByReferenceID(ctx context.Context, referenceID string) (*domain.Transaction, error)
	HandleTransactionEvent(ctx context.Context, event domain.TransactionEvent) error
	ProcessExternalReceipt(ctx context.Context, p ExternalReceiptParams) error
	ProcessExternalInbound(ctx context.Context, p ExternalInboundParams) (*domain.Transaction, error)
}

type service struct {
	transactions transactions_repo.TransactionRepository
	publisher    events.Publisher
	gateway      CentralBankGateway
	logger       *zap.Logger
}

func NewService(
	transactions transactions_repo.TransactionRepository,
	publisher events.Publisher,
	gateway CentralBankGateway,
	logger *zap.Logger,
) Service {
	return &service{
		transactions: transactions,
		publisher:    publisher,
		gateway:      gateway,
		logger:       logger,
	}
}

func validateTransfer(source, destination string, amount decimal.Decimal) error {
	if len(source) != accountNumberLength {
		return fmt.Errorf("%w: source account number must be %d digits", domain.ErrValidation, accountNumberLength)
	}
	if len(destination) != accountNumberLength {
		return fmt.Errorf("%w: destination account number must be %d digits", domain.ErrValidation, accountNumberLength)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", domain.ErrValidation)
	}
	return nil
}

func (s *service) CreateTransfer(ctx context.Context, p TransferParams) (*domain.Transaction, error) {
	if err := validateTransfer(p.SourceAccountNumber, p.DestinationAccountNumber, p.Amount); err != nil {
		return nil, err
	}

	userID := p.UserID
	txn := &domain.Transaction{
		UserID:                   &userID,
		TransactionID:            domain.NewTransactionID(),
		SourceAccountNumber:      p.SourceAccountNumber,
		DestinationAccountNumber: p.DestinationAccountNumber,
		TransactionType:          domain.TransactionTypeTransfer,
		Status:                   domain.TransactionInitiated,
		Amount:                   domain.RoundAmount(p.Amount),
		Note:                     p.Note,
		IsInternal:               true,
	}

	if err := s.transactions.Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	s.logger.Info("transaction initiated", zap.String("transaction_id", txn.TransactionID))

	if err := events.PublishTransactionEvent(ctx, s.publisher, eventFromTransaction(txn, domain.EventInitiated)); err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *service) CreateExternalTransfer(ctx context.Context, p ExternalTransferParams) (*domain.Transaction, error) {
	if err := validateTransfer(p.SourceAccountNumber, p.DestinationAccountNumber, p.Amount); err != nil {
		return nil, err
	}

	referenceID := p.ReferenceID
	if referenceID == "" {
		referenceID = domain.NewReferenceID()
	}

	userID := p.UserID
	txn := &domain.Transaction{
		UserID:                   &userID,
		TransactionID:            domain.NewTransactionID(),
		SourceAccountNumber:      p.SourceAccountNumber,
		DestinationAccountNumber: p.DestinationAccountNumber,
		TransactionType:          domain.TransactionTypeTransfer,
		Status:                   domain.TransactionInitiated,
		Amount:                   domain.RoundAmount(p.Amount),
		Note:                     p.Note,
		ReferenceID:              referenceID,
		SourceBankCode:           p.SourceBankCode,
		DestinationBankCode:      p.DestinationBankCode,
		IsSourceExternal:         p.SourceBankCode != domain.BankCode,
		IsDestinationExternal:    p.DestinationBankCode != domain.BankCode,
	}
	txn.IsInternal = !(txn.IsSourceExternal || txn.IsDestinationExternal)

	if err := s.transactions.Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to create external transaction: %w", err)
	}

	s.logger.Info("external transaction initiated",
		zap.String("transaction_id", txn.TransactionID),
		zap.String("reference_id", txn.ReferenceID))

	if err := events.PublishTransactionEvent(ctx, s.publisher, eventFromTransaction(txn, domain.EventInitiated)); err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *service) GetByTransactionID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	return s.transactions.GetByTransactionID(ctx, transactionID)
}

func (s *service) GetByReferenceID(ctx context.Context, referenceID string) (*domain.Transaction, error) {
	return s.transactions.GetByReferenceID(ctx, referenceID)
}

// HandleTransactionEvent advances the state machine for one bus event.
// Events for transactions already in a terminal state are duplicates
// under at-least-once delivery and are dropped.
func (s *service) HandleTransactionEvent(ctx context.Context, event domain.TransactionEvent) error {
	txn, err := s.transactions.GetByTransactionID(ctx, event.TransactionID)
	if err != nil {
		return fmt.Errorf("failed to load transaction %s for %s event: %w", event.TransactionID, event.EventType, err)
	}

	if txn.Status.Terminal() {
		s.logger.Info("ignoring event for terminal transaction",
			zap.String("transaction_id", txn.TransactionID),
			zap.String("event_type", event.EventType),
			zap.String("status", string(txn.Status)))
		return nil
	}

	switch event.EventType {
	case domain.EventAccountDebited:
		return s.handleAccountDebited(ctx, txn, event)
	case domain.EventAccountCredited:
		return s.handleAccountCredited(ctx, txn, event)
	case domain.EventAccountDebitFailed:
		return s.handleAccountDebitFailed(ctx, txn, event)
	case domain.EventAccountCreditFailed:
		return s.handleAccountCreditFailed(ctx, txn, event)
	case domain.EventAccountDebitCompensated:
		return s.handleAccountDebitCompensated(ctx, txn, event)
	case domain.EventInitiated:
		// Our own initiation event echoed back; the ledger side reacts to it.
		return nil
	default:
		s.logger.Warn("unhandled event type",
			zap.String("event_type", event.EventType),
			zap.String("transaction_id", event.TransactionID))
		return nil
	}
}

func (s *service) handleAccountDebited(ctx context.Context, txn *domain.Transaction, event domain.TransactionEvent) error {
	debitedAt := eventTime(event.SourceDebitedAt, event.Timestamp)

	txn.Status = domain.TransactionDebitSuccess
	txn.SourceDebitedAt = &debitedAt
	if err := s.transactions.Update(ctx, txn); err != nil {
		return err
	}

	if !event.IsDestinationExternal {
		return nil
	}

	err := s.gateway.RequestOutboundCredit(ctx, centralbank.OutboundCreditRequest{
		SourceAccount:       event.SourceAccountNumber,
		DestinationAccount:  event.DestinationAccountNumber,
		SourceBankCode:      event.SourceBankCode,
		DestinationBankCode: event.DestinationBankCode,
		Amount:              event.Amount,
		ReferenceID:         event.ReferenceID,
	})
	if err != nil {
		// Keep the saga moving: a gateway failure becomes a credit
		// failure event, which triggers compensation of the debit.
		s.logger.Error("failed to request external credit",
			zap.String("transaction_id", txn.TransactionID), zap.Error(err))

		failure := event.FollowUp(domain.EventAccountCreditFailed)
		failure.Error = err.Error()
		failure.ErrorCode = domain.ErrCodeTransactionFailed
		return events.PublishTransactionEvent(ctx, s.publisher, failure)
	}
	return nil
}

func (s *service) handleAccountCredited(ctx context.Context, txn *domain.Transaction, event domain.TransactionEvent) error {
	creditedAt := eventTime(event.DestinationCreditedAt, event.Timestamp)

	txn.Status = domain.TransactionCompleted
	txn.DestinationCreditedAt = &creditedAt
	txn.CompletedAt = &creditedAt
	if err := s.transactions.Update(ctx, txn); err != nil {
		return err
	}

	if !event.IsSourceExternal {
		return nil
	}

	// The transfer already succeeded on our ledger; a notification
	// failure must not flip the terminal status.
	if err := s.gateway.NotifyOutcome(ctx, event.ReferenceID, "SUCCESS", ""); err != nil {
		s.logger.Error("failed to notify central bank",
			zap.String("transaction_id", txn.TransactionID), zap.Error(err))
	}
	return nil
}

func (s *service) handleAccountDebitFailed(ctx context.Context, txn *domain.Transaction, event domain.TransactionEvent) error {
	failedAt := eventTime(nil, event.Timestamp)

	txn.Status = domain.TransactionFailed
	txn.CompletedAt = &failedAt
	txn.Details = fmt.Sprintf("event: %s, error: %s, errorCode: %s",
		domain.EventAccountDebitFailed, event.Error, event.ErrorCode)
	return s.transactions.Update(ctx, txn)
}

func (s *service) handleAccountCreditFailed(ctx context.Context, txn *domain.Transaction, event domain.TransactionEvent) error {
	status := domain.TransactionCreditFailed
	var completedAt *time.Time
	if event.IsSourceExternal {
		// Nothing to compensate on our ledger; the failure is terminal.
		status = domain.TransactionFailed
		now := eventTime(nil, event.Timestamp)
		completedAt = &now
	}

	txn.Status = status
	txn.CompletedAt = completedAt
	txn.Details = fmt.Sprintf("event: %s, error: %s, errorCode: %s",
		domain.EventAccountCreditFailed, event.Error, event.ErrorCode)
	if err := s.transactions.Update(ctx, txn); err != nil {
		return err
	}

	if !event.IsSourceExternal {
		return nil
	}

	if err := s.gateway.NotifyOutcome(ctx, event.ReferenceID, "FAILED", event.Error); err != nil {
		s.logger.Error("failed to notify central bank",
			zap.String("transaction_id", txn.TransactionID), zap.Error(err))
	}
	return nil
}

func (s *service) handleAccountDebitCompensated(ctx context.Context, txn *domain.Transaction, event domain.TransactionEvent) error {
	compensatedAt := eventTime(event.CompensatedAt, event.Timestamp)

	txn.Status = domain.TransactionFailed
	txn.CompensatedAt = &compensatedAt
	txn.CompletedAt = &compensatedAt
	txn.Details = fmt.Sprintf("event: %s", domain.EventAccountDebitCompensated)
	return s.transactions.Update(ctx, txn)
}

// ProcessExternalReceipt handles the central bank's callback with the
// outcome of a credit we requested on another bank.
func (s *service) ProcessExternalReceipt(ctx context.Context, p ExternalReceiptParams) error {
	txn, err := s.transactions.GetByReferenceID(ctx, p.ReferenceID)
	if err != nil {
		return err
	}

	if !txn.IsDestinationExternal {
		s.logger.Warn("receipt for a transaction without an external destination, ignoring",
			zap.String("reference_id", p.ReferenceID))
		return nil
	}
	if txn.Status.Terminal() {
		s.logger.Info("ignoring receipt for terminal transaction",
			zap.String("transaction_id", txn.TransactionID))
		return nil
	}

	event := eventFromTransaction(txn, "")

	switch p.Status {
	case "SUCCESS":
		txn.Status = domain.TransactionCreditSuccess
		txn.DestinationCreditedAt = &p.Timestamp
		if err := s.transactions.Update(ctx, txn); err != nil {
			return err
		}

		event.EventType = domain.EventAccountCredited
		event.Status = domain.TransactionCreditSuccess
		event.DestinationCreditedAt = &p.Timestamp
		return events.PublishTransactionEvent(ctx, s.publisher, event)

	case "FAILED":
		txn.Status = domain.TransactionCreditFailed
		txn.Details = p.Error
		if err := s.transactions.Update(ctx, txn); err != nil {
			return err
		}

		s.logger.Error("external credit failed",
			zap.String("transaction_id", txn.TransactionID),
			zap.String("error", p.Error))

		event.EventType = domain.EventAccountCreditFailed
		event.Status = domain.TransactionCreditFailed
		event.Error = p.Error
		event.ErrorCode = domain.ErrCodeExternalCreditFailed
		return events.PublishTransactionEvent(ctx, s.publisher, event)

	default:
		return fmt.Errorf("unknown external receipt status: %s", p.Status)
	}
}

// ProcessExternalInbound records a transfer pushed by the central bank
// whose destination lives on this bank. The source leg was already
// debited remotely, so the transaction is published straight into the
// post-debit state and the ledger proceeds to crediting.
func (s *service) ProcessExternalInbound(ctx context.Context, p ExternalInboundParams) (*domain.Transaction, error) {
	if p.ReferenceID == "" {
		return nil, fmt.Errorf("%w: referenceId is required", domain.ErrValidation)
	}
	if !p.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be greater than zero", domain.ErrValidation)
	}

	// The central bank may push the same transfer more than once. The
	// reference id identifies it, so a repeat returns the transaction we
	// already hold without restarting the credit leg.
	existing, err := s.transactions.GetByReferenceID(ctx, p.ReferenceID)
	if err == nil {
		s.logger.Info("inbound external transfer already recorded",
			zap.String("transaction_id", existing.TransactionID),
			zap.String("reference_id", p.ReferenceID))
		return existing, nil
	}
	if !errors.Is(err, domain.ErrTransactionNotFound) {
		return nil, fmt.Errorf("failed to check inbound reference: %w", err)
	}

	txn := &domain.Transaction{
		TransactionID:            domain.NewTransactionID(),
		SourceAccountNumber:      p.SourceAccount,
		DestinationAccountNumber: p.DestinationAccount,
		TransactionType:          domain.TransactionTypeTransfer,
		Status:                   domain.TransactionInitiated,
		Amount:                   domain.RoundAmount(p.Amount),
		Note:                     p.Note,
		ReferenceID:              p.ReferenceID,
		SourceBankCode:           p.SourceBankCode,
		DestinationBankCode:      p.DestinationBankCode,
		IsSourceExternal:         p.SourceBankCode != domain.BankCode,
		IsDestinationExternal:    p.DestinationBankCode != domain.BankCode,
	}
	txn.IsInternal = !(txn.IsSourceExternal || txn.IsDestinationExternal)

	if err := s.transactions.Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to create inbound external transaction: %w", err)
	}

	s.logger.Info("inbound external transaction recorded",
		zap.String("transaction_id", txn.TransactionID),
		zap.String("reference_id", txn.ReferenceID))

	debitedAt := p.Timestamp
	if debitedAt.IsZero() {
		debitedAt = time.Now()
	}

	event := eventFromTransaction(txn, domain.EventAccountDebited)
	event.SourceDebitedAt = &debitedAt
	if err := events.PublishTransactionEvent(ctx, s.publisher, event); err != nil {
		return nil, err
	}
	return txn, nil
}

func eventFromTransaction(txn *domain.Transaction, eventType string) domain.TransactionEvent {
	return domain.TransactionEvent{
		UserID:                   txn.UserID,
		TransactionID:            txn.TransactionID,
		EventType:                eventType,
		Status:                   txn.Status,
		Amount:                   txn.Amount,
		SourceAccountNumber:      txn.SourceAccountNumber,
		DestinationAccountNumber: txn.DestinationAccountNumber,
		TransactionType:          txn.TransactionType,
		IsInternal:               txn.IsInternal,
		IsSourceExternal:         txn.IsSourceExternal,
		IsDestinationExternal:    txn.IsDestinationExternal,
		SourceBankCode:           txn.SourceBankCode,
		DestinationBankCode:      txn.DestinationBankCode,
		Note:                     txn.Note,
		ReferenceID:              txn.ReferenceID,
	}
}

func eventTime(explicit *time.Time, millis int64) time.Time {
	if explicit != nil {
		return *explicit
	}
	if millis > 0 {
		return time.UnixMilli(millis)
	}
	return time.Now()
}
