// Package notify forwards settlement events to the external notification
// service, which owns push/e-mail delivery.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/iliyamo/formation-market/internal/queue"
)

// Dispatcher posts events to NOTIFY_URL.  With no URL configured every
// event is only logged, which keeps the notifier usable in development.
type Dispatcher struct {
	client *resty.Client
	url    string
	logger *zap.Logger
}

// NewDispatcher returns a Dispatcher posting to url with the given timeout.
// Transient failures (transport errors and 5xx) are retried twice.
func NewDispatcher(url string, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	c := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
	return &Dispatcher{client: c, url: url, logger: logger.Named("notify")}
}

// Dispatch delivers one event.  It satisfies queue.HandlerFunc.
func (d *Dispatcher) Dispatch(ctx context.Context, ev queue.NotificationEvent) error {
	fields := []zap.Field{
		zap.String("event", string(ev.EventType)),
		zap.String("transaction_id", ev.TransactionID),
		zap.String("sale_id", ev.SaleID),
		zap.Int("sellers", len(ev.SellerIDs)),
	}
	if d.url == "" {
		d.logger.Info("notification (no NOTIFY_URL configured)", fields...)
		return nil
	}
	resp, err := d.client.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", ev.TransactionID+":"+string(ev.EventType)).
		SetBody(ev).
		Post(d.url)
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("notify: status %d", resp.StatusCode())
	}
	d.logger.Info("notification delivered", fields...)
	return nil
}
