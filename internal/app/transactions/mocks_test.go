package transactions

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/vivekbharatha/vbank/internal/centralbank"
	"github.com/vivekbharatha/vbank/internal/domain"
)

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, txn *domain.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByTransactionID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByReferenceID(ctx context.Context, referenceID string) (*domain.Transaction, error) {
	args := m.Called(ctx, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) Update(ctx context.Context, txn *domain.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

type MockCentralBankGateway struct {
	mock.Mock
}

func (m *MockCentralBankGateway) RequestOutboundCredit(ctx context.Context, req centralbank.OutboundCreditRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockCentralBankGateway) NotifyOutcome(ctx context.Context, referenceID, status, errMsg string) error {
	args := m.Called(ctx, referenceID, status, errMsg)
	return args.Error(0)
}

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
}

type publishedMessage struct {
	Topic string
	Key   string
	Event domain.TransactionEvent
}

func (p *recordingPublisher) Publish(_ context.Context, topic, key string, value []byte) error {
	var event domain.TransactionEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, publishedMessage{Topic: topic, Key: key, Event: event})
	return nil
}

func (p *recordingPublisher) events() []domain.TransactionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.TransactionEvent, len(p.messages))
	for i, m := range p.messages {
		out[i] = m.Event
	}
	return out
}
