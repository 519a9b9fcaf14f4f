package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"complaint_server/adapter/in/worker"
	"complaint_server/adapter/out/messaging"
	"complaint_server/config"
	"complaint_server/infra/database"
	"complaint_server/pkg/logger"
)

// EventWorker tails the complaint event stream and writes an audit log.
type EventWorker struct {
	consumer *messaging.Consumer
}

// NewEventWorker connects to Redis and prepares the audit consumer.
func NewEventWorker(ctx context.Context, cfg *config.Config) (*EventWorker, func(), error) {
	if cfg.RedisURL == "" {
		return nil, nil, errors.New("REDIS_URL is required in events mode")
	}

	client, err := database.NewRedis(ctx, cfg.RedisURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}

	consumer := messaging.NewConsumer(client, &messaging.ConsumerConfig{
		Group:    cfg.EventsGroup,
		Consumer: cfg.EventsWorker,
		Stream:   cfg.EventsStream,
		Handler:  worker.NewAuditHandler(logger.Default()),
	})

	return &EventWorker{consumer: consumer}, func() { client.Close() }, nil
}

// Run blocks until ctx is cancelled.
func (w *EventWorker) Run(ctx context.Context) error {
	err := w.consumer.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Migrate applies the schema and returns.
func Migrate(ctx context.Context, cfg *config.Config) error {
	pool, err := database.NewPostgres(ctx, cfg.DatabaseURL, database.DefaultPostgresConfig(2))
	if err != nil {
		return err
	}
	defer pool.Close()

	return database.Migrate(ctx, pool)
}
