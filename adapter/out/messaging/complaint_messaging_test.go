package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"complaint_server/core/domain"

	"github.com/go-redis/redismock/v9"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent() *domain.ComplaintEvent {
	return &domain.ComplaintEvent{
		Type:        domain.EventComplaintCreated,
		ComplaintID: 42,
		Status:      domain.StatusOpen,
		Sentiment:   domain.SentimentNegative,
		Category:    domain.CategoryPayment,
		OccurredAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRedisEventPublisher_Publish(t *testing.T) {
	client, mock := redismock.NewClientMock()
	pub := NewRedisEventPublisher(client, "", 1000)

	event := testEvent()
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	mock.ExpectXAdd(&redis.XAddArgs{
		Stream: DefaultStream,
		ID:     "*",
		MaxLen: 1000,
		Approx: true,
		Values: []interface{}{"type", "complaint.created", "payload", string(payload)},
	}).SetVal("1700000000000-0")

	assert.NoError(t, pub.Publish(context.Background(), event))
	assert.Equal(t, DefaultStream, pub.Stream())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisEventPublisher_PublishError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	pub := NewRedisEventPublisher(client, "events", 0)

	event := testEvent()
	payload, _ := json.Marshal(event)

	mock.ExpectXAdd(&redis.XAddArgs{
		Stream: "events",
		ID:     "*",
		Values: []interface{}{"type", "complaint.created", "payload", string(payload)},
	}).SetErr(errors.New("connection refused"))

	err := pub.Publish(context.Background(), event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "events")
}

func TestNopEventPublisher(t *testing.T) {
	assert.NoError(t, NopEventPublisher{}.Publish(context.Background(), testEvent()))
}

type recordingHandler struct {
	events []*domain.ComplaintEvent
	err    error
}

func (h *recordingHandler) Handle(_ context.Context, _ string, event *domain.ComplaintEvent) error {
	h.events = append(h.events, event)
	return h.err
}

func TestDecodeEntry(t *testing.T) {
	payload, _ := json.Marshal(testEvent())

	event, err := decodeEntry(redis.XMessage{ID: "1-0", Values: map[string]interface{}{
		"type":    "complaint.created",
		"payload": string(payload),
	}})
	require.NoError(t, err)
	assert.Equal(t, int64(42), event.ComplaintID)
	assert.Equal(t, domain.CategoryPayment, event.Category)

	_, err = decodeEntry(redis.XMessage{ID: "2-0", Values: map[string]interface{}{"type": "x"}})
	assert.ErrorIs(t, err, ErrMalformedEntry)

	_, err = decodeEntry(redis.XMessage{ID: "3-0", Values: map[string]interface{}{"payload": "{"}})
	assert.ErrorIs(t, err, ErrMalformedEntry)
}

func TestConsumer_ProcessAndAck(t *testing.T) {
	client, mock := redismock.NewClientMock()
	handler := &recordingHandler{}
	c := NewConsumer(client, &ConsumerConfig{Group: "audit", Consumer: "c1", Handler: handler})

	payload, _ := json.Marshal(testEvent())
	mock.ExpectXAck(DefaultStream, "audit", "1-0").SetVal(1)

	c.processAndAck(context.Background(), redis.XMessage{ID: "1-0", Values: map[string]interface{}{"payload": string(payload)}})

	require.Len(t, handler.events, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumer_HandlerErrorLeavesEntryPending(t *testing.T) {
	client, mock := redismock.NewClientMock()
	handler := &recordingHandler{err: errors.New("downstream unavailable")}
	c := NewConsumer(client, &ConsumerConfig{Group: "audit", Consumer: "c1", Handler: handler})

	payload, _ := json.Marshal(testEvent())
	c.processAndAck(context.Background(), redis.XMessage{ID: "1-0", Values: map[string]interface{}{"payload": string(payload)}})

	assert.Len(t, handler.events, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumer_MalformedEntryIsAcked(t *testing.T) {
	client, mock := redismock.NewClientMock()
	handler := &recordingHandler{}
	c := NewConsumer(client, &ConsumerConfig{Group: "audit", Consumer: "c1", Handler: handler})

	mock.ExpectXAck(DefaultStream, "audit", "9-0").SetVal(1)
	c.processAndAck(context.Background(), redis.XMessage{ID: "9-0", Values: map[string]interface{}{"junk": "1"}})

	assert.Empty(t, handler.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumer_CreateGroupTolerantOfExisting(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewConsumer(client, &ConsumerConfig{Group: "audit", Consumer: "c1", Handler: &recordingHandler{}})

	mock.ExpectXGroupCreateMkStream(DefaultStream, "audit", "0").
		SetErr(errors.New("BUSYGROUP Consumer Group name already exists"))
	assert.NoError(t, c.createConsumerGroup(context.Background()))

	mock.ExpectXGroupCreateMkStream(DefaultStream, "audit", "0").
		SetErr(errors.New("NOAUTH Authentication required"))
	assert.Error(t, c.createConsumerGroup(context.Background()))
}
