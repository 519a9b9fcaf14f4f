// Package messaging provides message queue adapters.
package messaging

import (
	"context"
	"fmt"

	"complaint_server/core/domain"
	"complaint_server/core/port/out"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// DefaultStream receives complaint lifecycle events.
const DefaultStream = "complaints:events"

// Stream entry fields
const (
	fieldType    = "type"
	fieldPayload = "payload"
)

// RedisEventPublisher implements out.EventPublisher using Redis Streams.
type RedisEventPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisEventPublisher creates a new RedisEventPublisher. A zero maxLen
// leaves the stream untrimmed.
func NewRedisEventPublisher(client *redis.Client, stream string, maxLen int64) *RedisEventPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisEventPublisher{client: client, stream: stream, maxLen: maxLen}
}

// Publish appends event to the stream.
func (p *RedisEventPublisher) Publish(ctx context.Context, event *domain.ComplaintEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		ID:     "*",
		Values: []interface{}{fieldType, string(event.Type), fieldPayload, string(data)},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.stream, err)
	}
	return nil
}

// Stream returns the stream name events are written to.
func (p *RedisEventPublisher) Stream() string {
	return p.stream
}

// NopEventPublisher drops every event. Used when Redis is not configured.
type NopEventPublisher struct{}

func (NopEventPublisher) Publish(context.Context, *domain.ComplaintEvent) error { return nil }

var (
	_ out.EventPublisher = (*RedisEventPublisher)(nil)
	_ out.EventPublisher = NopEventPublisher{}
)
