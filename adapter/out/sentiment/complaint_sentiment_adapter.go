// Package sentiment adapts the external sentiment-analysis HTTP API.
package sentiment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"complaint_server/core/domain"
	"complaint_server/core/port/out"
	"complaint_server/pkg/logger"
	"complaint_server/pkg/metrics"
	"complaint_server/pkg/resilience"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"
)

const maxResponseBytes = 1 << 20

// Config holds sentiment API settings.
type Config struct {
	URL       string
	APIKey    string
	KeyHeader string
	Timeout   time.Duration
}

// Adapter implements out.SentimentClassifier over HTTP.
type Adapter struct {
	client    *http.Client
	url       string
	apiKey    string
	keyHeader string
	timeout   time.Duration
	cb        *gobreaker.CircuitBreaker
}

var _ out.SentimentClassifier = (*Adapter)(nil)

// NewAdapter creates a sentiment adapter that sends requests through client.
func NewAdapter(client *http.Client, cfg Config) *Adapter {
	if cfg.KeyHeader == "" {
		cfg.KeyHeader = "apikey"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Adapter{
		client:    client,
		url:       cfg.URL,
		apiKey:    cfg.APIKey,
		keyHeader: cfg.KeyHeader,
		timeout:   cfg.Timeout,
		cb:        resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("sentiment-api")),
	}
}

// statusError is a non-2xx reply from the API.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

type analysisResponse struct {
	Sentiment *string `json:"sentiment"`
}

// Classify returns the sentiment of text, or SentimentUnknown when the API
// fails, times out, or answers with a label outside the known set.
func (a *Adapter) Classify(ctx context.Context, text string) domain.Sentiment {
	start := time.Now()
	log := logger.WithContext(ctx).WithField("url", a.url)

	result, err := a.cb.Execute(func() (interface{}, error) {
		return a.analyze(ctx, text)
	})
	elapsed := time.Since(start)

	if err != nil {
		var se *statusError
		switch {
		case errors.As(err, &se):
			metrics.ObserveClassifier(metrics.ClassifierSentiment, metrics.OutcomeError, elapsed)
			log.WithField("status", se.code).Error("Sentiment API returned error status")
		case resilience.IsTimeout(err):
			metrics.ObserveClassifier(metrics.ClassifierSentiment, metrics.OutcomeTimeout, elapsed)
			log.WithDuration(elapsed).Error("Sentiment API timed out: %v", err)
		case resilience.IsCircuitOpen(err):
			metrics.ObserveClassifier(metrics.ClassifierSentiment, metrics.OutcomeCircuitOpen, elapsed)
			log.Warn("Sentiment API circuit open, skipping call")
		default:
			metrics.ObserveClassifier(metrics.ClassifierSentiment, metrics.OutcomeError, elapsed)
			log.WithError(err).Error("Sentiment API request failed")
		}
		return domain.SentimentUnknown
	}

	sentiment := result.(domain.Sentiment)
	if sentiment == domain.SentimentUnknown {
		metrics.ObserveClassifier(metrics.ClassifierSentiment, metrics.OutcomeFallback, elapsed)
	} else {
		metrics.ObserveClassifier(metrics.ClassifierSentiment, metrics.OutcomeOK, elapsed)
	}
	return sentiment
}

// analyze performs a single request. Only transport failures and non-2xx
// statuses are errors; an unusable body is reported as SentimentUnknown.
func (a *Adapter) analyze(ctx context.Context, text string) (domain.Sentiment, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewBufferString(text))
	if err != nil {
		return domain.SentimentUnknown, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Accept", "application/json")
	if a.apiKey != "" {
		req.Header.Set(a.keyHeader, a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return domain.SentimentUnknown, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return domain.SentimentUnknown, &statusError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.SentimentUnknown, fmt.Errorf("read response: %w", err)
	}

	var parsed analysisResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		logger.WithContext(ctx).WithError(err).Warn("Sentiment API returned malformed body")
		return domain.SentimentUnknown, nil
	}
	if parsed.Sentiment == nil {
		logger.WithContext(ctx).Warn("Sentiment API response has no sentiment field")
		return domain.SentimentUnknown, nil
	}

	sentiment := domain.Sentiment(*parsed.Sentiment)
	if !sentiment.IsValid() {
		logger.WithContext(ctx).WithField("label", *parsed.Sentiment).Warn("Sentiment API returned unrecognized label")
		return domain.SentimentUnknown, nil
	}
	return sentiment, nil
}
