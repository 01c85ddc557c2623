package kafka

import (
	"context"
	"encoding/json"

	segmentio "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/vivekbharatha/vbank/internal/domain"
	infrakafka "github.com/vivekbharatha/vbank/internal/infrastructure/kafka"
)

// TransactionEventHandler adapts any saga participant to the consumer's
// message loop. Malformed payloads are logged and committed: redelivering
// bytes that will never parse only wedges the partition.
type TransactionEventHandler interface {
	HandleTransactionEvent(ctx context.Context, event domain.TransactionEvent) error
}

func NewTransactionEventsHandler(h TransactionEventHandler, logger *zap.Logger) infrakafka.MessageHandler {
	return func(ctx context.Context, message segmentio.Message) error {
		var event domain.TransactionEvent
		if err := json.Unmarshal(message.Value, &event); err != nil {
			logger.Error("failed to unmarshal transaction event",
				zap.String("key", string(message.Key)),
				zap.Error(err))
			return nil
		}

		logger.Debug("processing transaction event",
			zap.String("transaction_id", event.TransactionID),
			zap.String("event_type", event.EventType))

		return h.HandleTransactionEvent(ctx, event)
	}
}
