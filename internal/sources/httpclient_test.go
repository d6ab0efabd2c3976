package sources

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastClient(maxRetries int) *HTTPClient {
	return NewHTTPClient(HTTPClientConfig{
		RateLimit:  1000,
		BurstSize:  1000,
		MaxRetries: maxRetries,
		RetryDelay: time.Millisecond,
	})
}

func TestHTTPClient_RetriesOn5xx(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(server.Close)

	client := fastClient(3)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, calls)
}

func TestHTTPClient_RetryExhaustion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	client := fastClient(2)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	_, err = client.Do(req)
	require.Error(t, err)

	var exhausted *RetryExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, http.StatusTooManyRequests, exhausted.LastStatus)
	assert.Equal(t, 3, exhausted.Attempts)
}

func TestHTTPClient_RespectsRetryAfterSeconds(t *testing.T) {
	var calls int
	var gap time.Duration
	var last time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		now := time.Now()
		if calls == 2 {
			gap = now.Sub(last)
		}
		last = now
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(server.Close)

	client := fastClient(1)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.GreaterOrEqual(t, gap, time.Second)
}

func TestHTTPClient_SetsDefaultHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ScholarMap-ProfileService/1.0", r.Header.Get("User-Agent"))
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(server.Close)

	client := NewHTTPClient(HTTPClientConfig{
		RateLimit:    1000,
		BurstSize:    1000,
		APIKey:       "secret",
		APIKeyHeader: "x-api-key",
	})
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
}

func TestHTTPClient_GetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"value": 7}`))
	}))
	t.Cleanup(server.Close)

	client := fastClient(0)
	var out struct {
		Value int `json:"value"`
	}
	err := client.GetJSON(context.Background(), server.URL, &out, func(status int, body []byte) error {
		return errors.New("unexpected")
	})
	require.NoError(t, err)
	assert.Equal(t, 7, out.Value)
}

func TestHTTPClient_GetJSON_ErrorMapping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("nope"))
	}))
	t.Cleanup(server.Close)

	client := fastClient(0)
	var out map[string]any
	err := client.GetJSON(context.Background(), server.URL, &out, func(status int, body []byte) error {
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "nope", string(body))
		return errors.New("mapped")
	})
	require.EqualError(t, err, "mapped")
}

func TestHTTPClient_PostJSON_ResendsBodyOnRetry(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "value", payload["key"])
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(server.Close)

	client := fastClient(2)
	var out map[string]any
	err := client.PostJSON(context.Background(), server.URL, map[string]string{"key": "value"}, &out, func(status int, body []byte) error {
		return errors.New("unexpected")
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestHTTPClient_GetBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<xml/>"))
	}))
	t.Cleanup(server.Close)

	client := fastClient(0)
	body, err := client.GetBody(context.Background(), server.URL, func(status int, body []byte) error {
		return errors.New("unexpected")
	})
	require.NoError(t, err)
	assert.Equal(t, "<xml/>", string(body))
}

func TestHTTPClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	t.Cleanup(server.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	client := fastClient(3)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	_, err = client.Do(req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "deadline"))
}

type recordingMetrics struct {
	requests    []string
	failures    []string
	rateLimited int
}

func (r *recordingMetrics) RecordSourceRequest(source, endpoint string, _ float64) {
	r.requests = append(r.requests, source+endpoint)
}

func (r *recordingMetrics) RecordSourceRequestFailed(source, endpoint, errorType string) {
	r.failures = append(r.failures, source+endpoint+":"+errorType)
}

func (r *recordingMetrics) RecordSourceRateLimited(source string) {
	r.rateLimited++
}

func TestHTTPClient_RecordsRequestMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(server.Close)

	metrics := &recordingMetrics{}
	client := NewHTTPClient(HTTPClientConfig{
		RateLimit: 1000,
		BurstSize: 1000,
		Source:    "dblp",
		Metrics:   metrics,
	})

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL+"/search", nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, []string{"dblp/search"}, metrics.requests)
	assert.Empty(t, metrics.failures)
}

func TestHTTPClient_RecordsRateLimitMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	metrics := &recordingMetrics{}
	client := NewHTTPClient(HTTPClientConfig{
		RateLimit:  1000,
		BurstSize:  1000,
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
		Source:     "openalex",
		Metrics:    metrics,
	})

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL+"/works", nil)
	require.NoError(t, err)
	_, err = client.Do(req)
	require.Error(t, err)

	assert.Equal(t, 2, metrics.rateLimited)
	assert.Equal(t, []string{"openalex/works:rate_limited"}, metrics.failures)
	assert.Empty(t, metrics.requests)
}
