package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"complaint_server/core/domain"
	"complaint_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// EventHandler processes decoded complaint events.
type EventHandler interface {
	Handle(ctx context.Context, id string, event *domain.ComplaintEvent) error
}

// ErrMalformedEntry is returned for stream entries without a decodable payload.
var ErrMalformedEntry = errors.New("malformed stream entry")

// Consumer reads complaint events from a Redis stream through a consumer group.
type Consumer struct {
	client   *redis.Client
	group    string
	consumer string
	stream   string
	handler  EventHandler
	log      *logger.Logger

	pendingCheckInterval time.Duration
	pendingIdleTime      time.Duration
	maxRetries           int
}

// ConsumerConfig holds consumer configuration.
type ConsumerConfig struct {
	Group    string
	Consumer string
	Stream   string
	Handler  EventHandler

	PendingCheckInterval time.Duration
	PendingIdleTime      time.Duration
	MaxRetries           int
}

// NewConsumer creates a new Consumer.
func NewConsumer(client *redis.Client, cfg *ConsumerConfig) *Consumer {
	pendingCheckInterval := cfg.PendingCheckInterval
	if pendingCheckInterval == 0 {
		pendingCheckInterval = 30 * time.Second
	}

	pendingIdleTime := cfg.PendingIdleTime
	if pendingIdleTime == 0 {
		pendingIdleTime = 2 * time.Minute
	}

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}

	stream := cfg.Stream
	if stream == "" {
		stream = DefaultStream
	}

	return &Consumer{
		client:               client,
		group:                cfg.Group,
		consumer:             cfg.Consumer,
		stream:               stream,
		handler:              cfg.Handler,
		log:                  logger.WithFields(map[string]any{"stream": stream, "group": cfg.Group, "consumer": cfg.Consumer}),
		pendingCheckInterval: pendingCheckInterval,
		pendingIdleTime:      pendingIdleTime,
		maxRetries:           maxRetries,
	}
}

// Run consumes events until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.Info("Starting event consumer")

	if err := c.createConsumerGroup(ctx); err != nil {
		return err
	}

	go c.processPendingMessages(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		result, err := c.readMessages(ctx)
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.WithError(err).Error("Error reading from stream")
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range result {
			for _, msg := range stream.Messages {
				c.processAndAck(ctx, msg)
			}
		}
	}
}

func (c *Consumer) processAndAck(ctx context.Context, msg redis.XMessage) {
	if err := c.processMessage(ctx, msg); err != nil {
		c.log.WithError(err).WithField("id", msg.ID).Error("Error processing event")
		if !errors.Is(err, ErrMalformedEntry) {
			return
		}
		// retrying cannot fix a malformed entry
	}

	if err := c.client.XAck(ctx, c.stream, c.group, msg.ID).Err(); err != nil {
		c.log.WithError(err).WithField("id", msg.ID).Error("Error acknowledging event")
	}
}

// processPendingMessages periodically reclaims entries another consumer left unacknowledged.
func (c *Consumer) processPendingMessages(ctx context.Context) {
	ticker := time.NewTicker(c.pendingCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.claimAndProcessPending(ctx)
		}
	}
}

func (c *Consumer) claimAndProcessPending(ctx context.Context) {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.stream,
		Group:  c.group,
		Start:  "-",
		End:    "+",
		Count:  100,
	}).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.WithError(err).Error("Error getting pending events")
		}
		return
	}

	for _, p := range pending {
		if p.Idle < c.pendingIdleTime {
			continue
		}

		if int(p.RetryCount) >= c.maxRetries {
			c.log.WithField("id", p.ID).WithField("retries", p.RetryCount).Warn("Event exceeded max retries, moving to DLQ")
			if err := c.moveToDeadLetterQueue(ctx, p.ID); err != nil {
				c.log.WithError(err).WithField("id", p.ID).Error("Error moving event to DLQ")
			}
			c.client.XAck(ctx, c.stream, c.group, p.ID)
			continue
		}

		claimed, err := c.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   c.stream,
			Group:    c.group,
			Consumer: c.consumer,
			MinIdle:  c.pendingIdleTime,
			Messages: []string{p.ID},
		}).Result()
		if err != nil {
			c.log.WithError(err).WithField("id", p.ID).Error("Error claiming event")
			continue
		}

		for _, msg := range claimed {
			c.processAndAck(ctx, msg)
		}
	}
}

func (c *Consumer) createConsumerGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group %s: %w", c.group, err)
	}
	return nil
}

func (c *Consumer) readMessages(ctx context.Context) ([]redis.XStream, error) {
	return c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{c.stream, ">"},
		Count:    10,
		Block:    5 * time.Second,
	}).Result()
}

func (c *Consumer) processMessage(ctx context.Context, msg redis.XMessage) error {
	event, err := decodeEntry(msg)
	if err != nil {
		return err
	}
	return c.handler.Handle(ctx, msg.ID, event)
}

// decodeEntry reads the payload field written by RedisEventPublisher.
func decodeEntry(msg redis.XMessage) (*domain.ComplaintEvent, error) {
	raw, ok := msg.Values[fieldPayload].(string)
	if !ok {
		return nil, fmt.Errorf("%w: missing %s field", ErrMalformedEntry, fieldPayload)
	}

	var event domain.ComplaintEvent
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEntry, err)
	}
	return &event, nil
}

// moveToDeadLetterQueue copies a failed entry to dlq:{stream}.
func (c *Consumer) moveToDeadLetterQueue(ctx context.Context, msgID string) error {
	messages, err := c.client.XRange(ctx, c.stream, msgID, msgID).Result()
	if err != nil {
		return fmt.Errorf("failed to read event for DLQ: %w", err)
	}
	if len(messages) == 0 {
		return fmt.Errorf("event %s not found in stream %s", msgID, c.stream)
	}

	values := map[string]interface{}{
		"original_stream": c.stream,
		"original_id":     msgID,
		"failed_at":       time.Now().UTC().Format(time.RFC3339),
		"consumer":        c.consumer,
		"group":           c.group,
	}
	for k, v := range messages[0].Values {
		values["original_"+k] = v
	}

	return c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: "dlq:" + c.stream,
		Values: values,
	}).Err()
}
