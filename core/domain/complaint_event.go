package domain

import "time"

// ComplaintEventType names lifecycle notifications emitted after a write.
type ComplaintEventType string

const (
	EventComplaintCreated ComplaintEventType = "complaint.created"
	EventComplaintClosed  ComplaintEventType = "complaint.closed"
)

// ComplaintEvent is published after a complaint is created or closed
type ComplaintEvent struct {
	Type        ComplaintEventType `json:"type"`
	ComplaintID int64              `json:"complaint_id"`
	Status      ComplaintStatus    `json:"status"`
	Sentiment   Sentiment          `json:"sentiment,omitempty"`
	Category    Category           `json:"category,omitempty"`
	OccurredAt  time.Time          `json:"occurred_at"`
}
