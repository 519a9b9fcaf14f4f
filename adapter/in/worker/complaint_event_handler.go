// Package worker holds background consumers of complaint lifecycle events.
package worker

import (
	"context"

	"complaint_server/adapter/out/messaging"
	"complaint_server/core/domain"
	"complaint_server/pkg/logger"
	"complaint_server/pkg/metrics"
)

// AuditHandler writes every lifecycle event to the structured log.
type AuditHandler struct {
	log *logger.Logger
}

var _ messaging.EventHandler = (*AuditHandler)(nil)

func NewAuditHandler(log *logger.Logger) *AuditHandler {
	if log == nil {
		log = logger.Default()
	}
	return &AuditHandler{log: log.WithField("component", "audit")}
}

// Handle logs event. Unknown event types are logged and acknowledged.
func (h *AuditHandler) Handle(ctx context.Context, id string, event *domain.ComplaintEvent) error {
	metrics.EventsConsumed.WithLabelValues(string(event.Type)).Inc()

	log := h.log.WithContext(ctx).WithFields(map[string]any{
		"entry_id":     id,
		"complaint_id": event.ComplaintID,
		"status":       string(event.Status),
		"occurred_at":  event.OccurredAt,
	})

	switch event.Type {
	case domain.EventComplaintCreated:
		log.WithField("sentiment", string(event.Sentiment)).
			WithField("category", string(event.Category)).
			Info("Complaint created")
	case domain.EventComplaintClosed:
		log.Info("Complaint closed")
	default:
		log.WithField("type", string(event.Type)).Warn("Unknown complaint event type")
	}
	return nil
}
