// Command notifier consumes settlement events from the queue and forwards
// them to the notification service.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/iliyamo/formation-market/internal/config"
	"github.com/iliyamo/formation-market/internal/logger"
	"github.com/iliyamo/formation-market/internal/notify"
	"github.com/iliyamo/formation-market/internal/queue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if !cfg.AMQP.Enabled {
		zl.Fatal("AMQP_ENABLED is false; nothing to consume")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := notify.NewDispatcher(cfg.Notify.URL, cfg.Notify.Timeout, zl)
	c := queue.NewConsumer(cfg.AMQP.URL, cfg.AMQP.Queue, d.Dispatch, zl)

	zl.Info("notifier started", zap.String("queue", cfg.AMQP.Queue), zap.String("target", cfg.Notify.URL))
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		zl.Fatal("consumer", zap.Error(err))
	}
	zl.Info("notifier stopped")
}
