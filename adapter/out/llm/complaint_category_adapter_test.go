package llm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"unicode/utf8"

	"complaint_server/core/domain"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionBody(content string) string {
	return `{"id":"cmpl-1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":` +
		quote(content) + `},"finish_reason":"stop"}]}`
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func newTestAdapter(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *CategoryAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewCategoryAdapter(srv.Client(), Config{
		BaseURL: srv.URL + "/v1",
		APIKey:  "hf_test",
		Timeout: timeout,
	})
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		reply   string
		want    domain.Category
		matched bool
	}{
		{"Technical", domain.CategoryTechnical, true},
		{" technical issue.", domain.CategoryTechnical, true},
		{"Payment", domain.CategoryPayment, true},
		{"Payment types apply here", domain.CategoryPayment, true},
		{"Техническая", domain.CategoryTechnical, true},
		{"Оплата", domain.CategoryPayment, true},
		{"Other", domain.CategoryOther, true},
		{"Другое", domain.CategoryOther, true},
		{"Shipping", domain.CategoryOther, false},
		{"", domain.CategoryOther, false},
	}

	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			got, matched := ParseCategory(tt.reply)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.matched, matched)
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short", "Payment", 10, "Payment"},
		{"exact", "Payment", 7, "Payment"},
		{"ascii", "Technical issue", 9, "Technical..."},
		{"cyrillic", "Техническая проблема", 3, "Тех..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.n)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestCategoryAdapter_Classify(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   domain.Category
	}{
		{"technical", http.StatusOK, completionBody("Technical"), domain.CategoryTechnical},
		{"payment inside sentence", http.StatusOK, completionBody("Payment types apply here"), domain.CategoryPayment},
		{"unrelated reply", http.StatusOK, completionBody("Logistics"), domain.CategoryOther},
		{"no choices", http.StatusOK, `{"id":"cmpl-2","choices":[]}`, domain.CategoryOther},
		{"api error", http.StatusServiceUnavailable, `{"error":{"message":"model is loading","type":"server_error"}}`, domain.CategoryOther},
		{"unauthorized", http.StatusUnauthorized, `{"error":"Invalid credentials"}`, domain.CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}, time.Second)

			assert.Equal(t, tt.want, a.Classify(context.Background(), "I was charged twice"))
		})
	}
}

func TestCategoryAdapter_SendsPrompt(t *testing.T) {
	var (
		gotPath string
		gotAuth string
		gotReq  struct {
			Model     string `json:"model"`
			MaxTokens int    `json:"max_tokens"`
			Messages  []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
	)

	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotReq)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, completionBody("Other"))
	}, time.Second)

	got := a.Classify(context.Background(), "Courier was rude")

	assert.Equal(t, domain.CategoryOther, got)
	assert.Equal(t, "/v1/chat/completions", gotPath)
	assert.Equal(t, "Bearer hf_test", gotAuth)
	assert.Equal(t, DefaultModel, gotReq.Model)
	assert.Equal(t, defaultMaxTokens, gotReq.MaxTokens)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
	assert.Contains(t, gotReq.Messages[0].Content, "Courier was rude")
	assert.Contains(t, gotReq.Messages[0].Content, `"Technical", "Payment", "Other"`)
}

func TestCategoryAdapter_TimeoutFallsBackToOther(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
		io.WriteString(w, completionBody("Technical"))
	}, 50*time.Millisecond)

	start := time.Now()
	got := a.Classify(context.Background(), "slow")

	assert.Equal(t, domain.CategoryOther, got)
	assert.Less(t, time.Since(start), time.Second)
}
