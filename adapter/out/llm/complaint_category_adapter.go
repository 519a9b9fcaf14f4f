// Package llm classifies complaints with an OpenAI-compatible chat completion API.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"complaint_server/core/domain"
	"complaint_server/core/port/out"
	"complaint_server/pkg/logger"
	"complaint_server/pkg/metrics"
	"complaint_server/pkg/resilience"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
)

const (
	DefaultModel     = "mistralai/Mistral-7B-Instruct-v0.3"
	defaultMaxTokens = 10
)

const categoryPrompt = `Determine the category of this complaint:

%s

Options: "Technical", "Payment", "Other". Answer with only one of these words.`

// Config holds LLM endpoint settings.
type Config struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// CategoryAdapter implements out.CategoryClassifier.
type CategoryAdapter struct {
	client    *openai.Client
	model     string
	maxTokens int
	timeout   time.Duration
	cb        *gobreaker.CircuitBreaker
}

var _ out.CategoryClassifier = (*CategoryAdapter)(nil)

// NewCategoryAdapter creates a category classifier sending requests through httpClient.
func NewCategoryAdapter(httpClient *http.Client, cfg Config) *CategoryAdapter {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if httpClient != nil {
		oc.HTTPClient = httpClient
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &CategoryAdapter{
		client:    openai.NewClientWithConfig(oc),
		model:     model,
		maxTokens: maxTokens,
		timeout:   timeout,
		cb:        resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("category-llm")),
	}
}

// Classify asks the model for a category. Any failure, and any reply that does
// not name a known category, yields domain.DefaultCategory.
func (a *CategoryAdapter) Classify(ctx context.Context, text string) domain.Category {
	start := time.Now()
	log := logger.WithContext(ctx).WithField("model", a.model)

	result, err := a.cb.Execute(func() (interface{}, error) {
		return a.complete(ctx, text)
	})
	elapsed := time.Since(start)

	if err != nil {
		var apiErr *openai.APIError
		switch {
		case resilience.IsTimeout(err):
			metrics.ObserveClassifier(metrics.ClassifierCategory, metrics.OutcomeTimeout, elapsed)
			log.WithDuration(elapsed).Error("Category model timed out: %v", err)
		case resilience.IsCircuitOpen(err):
			metrics.ObserveClassifier(metrics.ClassifierCategory, metrics.OutcomeCircuitOpen, elapsed)
			log.Warn("Category model circuit open, skipping call")
		case errors.As(err, &apiErr):
			metrics.ObserveClassifier(metrics.ClassifierCategory, metrics.OutcomeError, elapsed)
			log.WithField("status", apiErr.HTTPStatusCode).WithError(err).Error("Category model returned error")
		default:
			metrics.ObserveClassifier(metrics.ClassifierCategory, metrics.OutcomeError, elapsed)
			log.WithError(err).Error("Failed to classify complaint category (text_len=%d)", len(text))
		}
		return domain.DefaultCategory
	}

	reply := result.(string)
	category, matched := ParseCategory(reply)
	if !matched {
		metrics.ObserveClassifier(metrics.ClassifierCategory, metrics.OutcomeFallback, elapsed)
		log.WithField("reply", truncate(reply, 100)).Debug("Category model reply matched no category")
		return category
	}

	metrics.ObserveClassifier(metrics.ClassifierCategory, metrics.OutcomeOK, elapsed)
	return category
}

func (a *CategoryAdapter) complete(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(categoryPrompt, text),
			},
		},
		MaxTokens:   a.maxTokens,
		Temperature: 0,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// categoryStems maps lower-case stems to categories, checked in order. Russian
// stems are kept for models that answer in the language of the complaint.
var categoryStems = []struct {
	stem     string
	category domain.Category
}{
	{"techn", domain.CategoryTechnical},
	{"техн", domain.CategoryTechnical},
	{"pay", domain.CategoryPayment},
	{"опл", domain.CategoryPayment},
}

// ParseCategory maps a free-text model reply onto the closed category set.
// The second result is false when nothing matched and the default was used.
func ParseCategory(reply string) (domain.Category, bool) {
	content := strings.ToLower(reply)
	for _, s := range categoryStems {
		if strings.Contains(content, s.stem) {
			return s.category, true
		}
	}
	return domain.DefaultCategory, strings.Contains(content, "other") || strings.Contains(content, "друг")
}

// truncate keeps at most n runes of s.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
