package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vivekbharatha/vbank/internal/domain"
)

// Publisher is the single capability services need from the bus: put a
// value on a topic under a partition key. The Kafka producer implements
// it in production, MemoryBus in tests.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
}

// PublishTransactionEvent marshals a saga event and publishes it keyed by
// transaction id, so all events of one transaction land on the same
// partition and stay causally ordered.
func PublishTransactionEvent(ctx context.Context, p Publisher, event domain.TransactionEvent) error {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal transaction event: %w", err)
	}

	if err := p.Publish(ctx, domain.TransactionEventsTopic, event.TransactionID, value); err != nil {
		return fmt.Errorf("publish %s event for transaction %s: %w", event.EventType, event.TransactionID, err)
	}
	return nil
}
