package out

import (
	"context"

	"complaint_server/core/domain"
)

// EventPublisher announces complaint lifecycle changes to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.ComplaintEvent) error
}
