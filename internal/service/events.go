package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/formation-market/internal/queue"
)

// publishTimeout bounds a single post-commit publish.
const publishTimeout = 5 * time.Second

// EventPublisher delivers notification events.  queue.Publisher and
// queue.NopPublisher satisfy it.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.NotificationEvent) error
}

// publishAll sends events after a commit.  Failures are logged and
// counted; they never affect the committed outcome, and a cancelled
// request context does not abort them.
func publishAll(ctx context.Context, pub EventPublisher, logger *zap.Logger, events ...queue.NotificationEvent) {
	if pub == nil {
		return
	}
	for _, ev := range events {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		err := pub.Publish(pctx, ev)
		cancel()
		if err != nil {
			eventsPublishFailures.WithLabelValues(string(ev.EventType)).Inc()
			logger.Warn("event publish failed",
				zap.String("event", string(ev.EventType)),
				zap.String("transaction_id", ev.TransactionID),
				zap.Error(err))
		}
	}
}
