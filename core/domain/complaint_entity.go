package domain

import "time"

// ComplaintStatus is the lifecycle state of a complaint. Closed is terminal.
type ComplaintStatus string

const (
	StatusOpen   ComplaintStatus = "open"
	StatusClosed ComplaintStatus = "closed"
)

func (s ComplaintStatus) IsValid() bool {
	return s == StatusOpen || s == StatusClosed
}

// Sentiment is the emotional tone assigned by the sentiment API
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentUnknown  Sentiment = "unknown" // fallback when the API is unavailable
)

func (s Sentiment) IsValid() bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral, SentimentUnknown:
		return true
	}
	return false
}

// Category is the closed set of complaint topics
type Category string

const (
	CategoryTechnical Category = "Technical"
	CategoryPayment   Category = "Payment"
	CategoryOther     Category = "Other"

	DefaultCategory = CategoryOther
)

func (c Category) IsValid() bool {
	switch c {
	case CategoryTechnical, CategoryPayment, CategoryOther:
		return true
	}
	return false
}

// IsDefault reports whether c is the fallback category, which responses present as null.
func (c Category) IsDefault() bool {
	return c == DefaultCategory
}

// Complaint is the only persisted entity.
type Complaint struct {
	ID        int64           `json:"id"`
	Text      string          `json:"text"`
	Status    ComplaintStatus `json:"status"`
	Sentiment Sentiment       `json:"sentiment"`
	Category  Category        `json:"category"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewComplaint builds an open complaint. Labels outside the known sets are
// coerced to their fallbacks so they can never reach storage.
func NewComplaint(text string, sentiment Sentiment, category Category, now time.Time) *Complaint {
	if !sentiment.IsValid() {
		sentiment = SentimentUnknown
	}
	if !category.IsValid() {
		category = DefaultCategory
	}
	return &Complaint{
		Text:      text,
		Status:    StatusOpen,
		Sentiment: sentiment,
		Category:  category,
		Timestamp: now,
	}
}

// ComplaintView is the read model returned to API callers.
type ComplaintView struct {
	ID        int64           `json:"id"`
	Status    ComplaintStatus `json:"status"`
	Sentiment Sentiment       `json:"sentiment"`
	Category  *Category       `json:"category"`
	Timestamp *time.Time      `json:"timestamp,omitempty"`
}

// NewCreatedView is the creation response. The default category is shown as null.
func NewCreatedView(c *Complaint) *ComplaintView {
	return &ComplaintView{
		ID:        c.ID,
		Status:    c.Status,
		Sentiment: c.Sentiment,
		Category:  displayCategory(c.Category),
	}
}

// NewListView includes the creation timestamp.
func NewListView(c *Complaint) *ComplaintView {
	v := NewCreatedView(c)
	ts := c.Timestamp
	v.Timestamp = &ts
	return v
}

func displayCategory(c Category) *Category {
	if c.IsDefault() || !c.IsValid() {
		return nil
	}
	return &c
}
