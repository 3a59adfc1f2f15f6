package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"favorx-backend-go/pkg/messagequeue"
)

// QueueNotifier publishes notifications as JSON to a message queue. A separate
// worker (cmd/notifier) consumes the queue and performs delivery.
type QueueNotifier struct {
	queue     messagequeue.MessageQueue
	queueName string
	logger    *zap.Logger
}

func NewQueueNotifier(queue messagequeue.MessageQueue, queueName string, logger *zap.Logger) *QueueNotifier {
	return &QueueNotifier{queue: queue, queueName: queueName, logger: logger}
}

func (q *QueueNotifier) Notify(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	if err := q.queue.Publish(ctx, q.queueName, body); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

func (q *QueueNotifier) Channel() string { return "amqp" }

// DeliveryHandler returns a messagequeue.Handler that decodes queued
// notifications and hands them to next. Undecodable messages are dropped.
func DeliveryHandler(next Notifier, logger *zap.Logger) messagequeue.Handler {
	return func(ctx context.Context, body []byte) error {
		var n Notification
		if err := json.Unmarshal(body, &n); err != nil {
			logger.Warn("Dropping malformed notification", zap.Error(err))
			return nil
		}
		if err := next.Notify(ctx, n); err != nil {
			if errors.Is(err, ErrNoPushToken) {
				return nil
			}
			return err
		}
		return nil
	}
}
