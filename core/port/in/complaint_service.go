package in

import (
	"context"

	"complaint_server/core/domain"
)

// ComplaintService is the driving port used by the HTTP adapter.
type ComplaintService interface {
	Create(ctx context.Context, text string) (*domain.ComplaintView, error)
	ListRecentOpen(ctx context.Context) ([]*domain.ComplaintView, error)
	Close(ctx context.Context, id int64) error
}
