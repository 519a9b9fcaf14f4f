package complaint

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"complaint_server/core/domain"
	"complaint_server/core/port/in"
	"complaint_server/core/port/out"
	"complaint_server/pkg/apperr"
	"complaint_server/pkg/logger"
	"complaint_server/pkg/metrics"
)

// DefaultRecentWindow bounds ListRecentOpen when no window is configured.
const DefaultRecentWindow = time.Hour

// Config holds service tunables.
type Config struct {
	RecentWindow time.Duration
	Now          func() time.Time
}

// Service implements in.ComplaintService
type Service struct {
	repo      out.ComplaintRepository
	sentiment out.SentimentClassifier
	category  out.CategoryClassifier
	events    out.EventPublisher

	window time.Duration
	now    func() time.Time
}

// NewService creates a new ComplaintService
func NewService(
	repo out.ComplaintRepository,
	sentiment out.SentimentClassifier,
	category out.CategoryClassifier,
	events out.EventPublisher,
	cfg Config,
) in.ComplaintService {
	if cfg.RecentWindow <= 0 {
		cfg.RecentWindow = DefaultRecentWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		repo:      repo,
		sentiment: sentiment,
		category:  category,
		events:    events,
		window:    cfg.RecentWindow,
		now:       cfg.Now,
	}
}

// =============================================================================
// Ingestion
// =============================================================================

// Create stores text exactly as submitted; whitespace-only text is rejected.
func (s *Service) Create(ctx context.Context, text string) (*domain.ComplaintView, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperr.Unprocessable("text", "must not be empty")
	}

	sentiment, category := s.classify(ctx, text)

	stored, err := s.repo.Insert(ctx, domain.NewComplaint(text, sentiment, category, s.now().UTC()))
	if err != nil {
		log := logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"sentiment": string(sentiment),
			"category":  string(category),
		})
		if errors.Is(err, out.ErrConstraint) {
			log.Error("Complaint rejected by store constraint")
		} else {
			log.Error("Failed to store complaint")
		}
		return nil, apperr.DatabaseError("create complaint", err)
	}

	metrics.ComplaintsCreated.WithLabelValues(string(stored.Sentiment), string(stored.Category)).Inc()
	logger.WithContext(ctx).WithFields(map[string]any{
		"complaint_id": stored.ID,
		"sentiment":    string(stored.Sentiment),
		"category":     string(stored.Category),
	}).Info("Complaint created")

	s.publish(ctx, &domain.ComplaintEvent{
		Type:        domain.EventComplaintCreated,
		ComplaintID: stored.ID,
		Status:      stored.Status,
		Sentiment:   stored.Sentiment,
		Category:    stored.Category,
		OccurredAt:  stored.Timestamp,
	})

	return domain.NewCreatedView(stored), nil
}

// classify runs both classifiers concurrently and waits for both. The derived
// context is cancelled on return so neither call outlives the request.
func (s *Service) classify(ctx context.Context, text string) (domain.Sentiment, domain.Category) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg        sync.WaitGroup
		sentiment domain.Sentiment
		category  domain.Category
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		sentiment = s.sentiment.Classify(ctx, text)
	}()
	go func() {
		defer wg.Done()
		category = s.category.Classify(ctx, text)
	}()
	wg.Wait()

	return sentiment, category
}

// =============================================================================
// Query / Close
// =============================================================================

func (s *Service) ListRecentOpen(ctx context.Context) ([]*domain.ComplaintView, error) {
	since := s.now().UTC().Add(-s.window)

	complaints, err := s.repo.FindOpenWithinWindow(ctx, since)
	if err != nil {
		return nil, apperr.DatabaseError("list complaints", err)
	}

	views := make([]*domain.ComplaintView, 0, len(complaints))
	for _, c := range complaints {
		views = append(views, domain.NewListView(c))
	}
	return views, nil
}

func (s *Service) Close(ctx context.Context, id int64) error {
	if err := s.repo.UpdateStatus(ctx, id, domain.StatusClosed); err != nil {
		if errors.Is(err, out.ErrNotFound) {
			return apperr.NotFound("complaint")
		}
		return apperr.DatabaseError("close complaint", err)
	}

	metrics.ComplaintsClosed.Inc()
	logger.WithContext(ctx).WithField("complaint_id", id).Info("Complaint closed")

	event := &domain.ComplaintEvent{
		Type:        domain.EventComplaintClosed,
		ComplaintID: id,
		Status:      domain.StatusClosed,
		OccurredAt:  s.now().UTC(),
	}
	if c, err := s.repo.GetByID(ctx, id); err == nil && c != nil {
		event.Sentiment = c.Sentiment
		event.Category = c.Category
	}
	s.publish(ctx, event)

	return nil
}

// publish never fails the caller: the write has already been committed.
func (s *Service) publish(ctx context.Context, event *domain.ComplaintEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		metrics.EventPublishFailures.WithLabelValues(string(event.Type)).Inc()
		logger.WithContext(ctx).WithError(err).
			WithField("complaint_id", event.ComplaintID).
			Warn("Failed to publish %s event", event.Type)
	}
}
