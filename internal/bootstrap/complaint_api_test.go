package bootstrap

import (
	"context"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"complaint_server/adapter/in/http"
	"complaint_server/config"
	"complaint_server/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct{}

func (stubService) Create(_ context.Context, text string) (*domain.ComplaintView, error) {
	return &domain.ComplaintView{ID: 1, Status: domain.StatusOpen, Sentiment: domain.SentimentUnknown}, nil
}

func (stubService) ListRecentOpen(context.Context) ([]*domain.ComplaintView, error) {
	return nil, nil
}

func (stubService) Close(context.Context, int64) error { return nil }

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		Environment:     "test",
		APIPrefix:       "/api/v1",
		AllowedOrigins:  []string{"*"},
		CreateRateLimit: 1,
	}
}

func TestNewApp_Routes(t *testing.T) {
	app, stop := NewApp(testConfig(), stubService{}, http.NewHealthHandler(okPinger{}, nil))
	defer stop()

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{nethttp.MethodGet, "/health", "", 200},
		{nethttp.MethodGet, "/ready", "", 200},
		{nethttp.MethodGet, "/api/v1/complaints", "", 200},
		{nethttp.MethodPost, "/api/v1/complaints", `{"text":"hi"}`, 201},
		{nethttp.MethodPost, "/api/v1/complaints/1", "", 200},
		{nethttp.MethodGet, "/api/v1/unknown", "", 404},
	}

	for _, tt := range tests {
		var body io.Reader
		if tt.body != "" {
			body = strings.NewReader(tt.body)
		}
		req := httptest.NewRequest(tt.method, tt.path, body)
		if tt.body != "" {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, tt.status, resp.StatusCode, "%s %s", tt.method, tt.path)
		assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	}
}

func TestNewApp_CreateIsRateLimited(t *testing.T) {
	app, stop := NewApp(testConfig(), stubService{}, nil)
	defer stop()

	post := func() int {
		req := httptest.NewRequest(nethttp.MethodPost, "/api/v1/complaints", strings.NewReader(`{"text":"hi"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, 201, post())
	assert.Equal(t, 429, post())

	// listing is not limited
	resp, err := app.Test(httptest.NewRequest(nethttp.MethodGet, "/api/v1/complaints", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestNewApp_RateLimitUsesProxyHeader(t *testing.T) {
	cfg := testConfig()
	cfg.ProxyHeader = "X-Forwarded-For"
	app, stop := NewApp(cfg, stubService{}, nil)
	defer stop()

	post := func(client string) int {
		req := httptest.NewRequest(nethttp.MethodPost, "/api/v1/complaints", strings.NewReader(`{"text":"hi"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", client)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, 201, post("203.0.113.10"))
	assert.Equal(t, 201, post("203.0.113.11"))
	assert.Equal(t, 429, post("203.0.113.10"))
}

func TestNewApp_RateLimitDisabledWhenZero(t *testing.T) {
	cfg := testConfig()
	cfg.CreateRateLimit = 0
	app, stop := NewApp(cfg, stubService{}, nil)
	defer stop()

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(nethttp.MethodPost, "/api/v1/complaints", strings.NewReader(`{"text":"hi"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 201, resp.StatusCode)
	}
}
