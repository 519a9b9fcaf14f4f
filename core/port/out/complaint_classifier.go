package out

import (
	"context"

	"complaint_server/core/domain"
)

// SentimentClassifier never fails: upstream problems degrade to domain.SentimentUnknown.
type SentimentClassifier interface {
	Classify(ctx context.Context, text string) domain.Sentiment
}

// CategoryClassifier never fails: upstream problems and unrecognized replies
// degrade to domain.DefaultCategory.
type CategoryClassifier interface {
	Classify(ctx context.Context, text string) domain.Category
}
