package out

import (
	"context"
	"errors"
	"time"

	"complaint_server/core/domain"
)

// Errors wrapped by repositories.
var (
	ErrNotFound          = errors.New("not found")
	ErrConstraint        = errors.New("constraint violation")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ComplaintRepository is the complaint store. It exposes only the queries the
// service needs; there is no generic filter-by-field access.
type ComplaintRepository interface {
	// Insert persists c and returns the stored row with id and timestamp assigned.
	Insert(ctx context.Context, c *domain.Complaint) (*domain.Complaint, error)
	// FindOpenWithinWindow returns open, categorized complaints created at or after since.
	FindOpenWithinWindow(ctx context.Context, since time.Time) ([]*domain.Complaint, error)
	// UpdateStatus sets the status of the complaint with the given id. Closed is
	// the only accepted target; anything else wraps ErrInvalidTransition. It
	// returns an error wrapping ErrNotFound when no row matched.
	UpdateStatus(ctx context.Context, id int64, status domain.ComplaintStatus) error
	// GetByID returns nil, nil when the complaint does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Complaint, error)
}
