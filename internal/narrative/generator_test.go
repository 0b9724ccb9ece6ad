package narrative

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGenerator(url string) *Generator {
	return NewGenerator(Config{
		APIKey:    "test-key",
		BaseURL:   url,
		Model:     "gpt-4o-mini",
		Timeout:   5 * time.Second,
		RetryWait: 5 * time.Millisecond,
	})
}

func completionJSON(content string) string {
	body := map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30},
	}
	raw, _ := json.Marshal(body)
	return string(raw)
}

func errorJSON(message, code string) string {
	raw, _ := json.Marshal(map[string]any{
		"error": map[string]any{"message": message, "type": "invalid_request_error", "code": code},
	})
	return string(raw)
}

func TestGenerateSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionJSON("The dataset looks healthy.")))
	}))
	defer srv.Close()

	text, err := testGenerator(srv.URL).Generate(context.Background(), "profile summary")
	require.NoError(t, err)
	assert.Equal(t, "The dataset looks healthy.", text)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGenerateAuthError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(errorJSON("Incorrect API key provided", "invalid_api_key")))
	}))
	defer srv.Close()

	_, err := testGenerator(srv.URL).Generate(context.Background(), "profile summary")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 401, authErr.StatusCode)
	// Fatal errors are not retried.
	assert.Equal(t, int32(1), calls.Load())
}

func TestGenerateQuotaError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(errorJSON("You exceeded your current quota", "insufficient_quota")))
	}))
	defer srv.Close()

	_, err := testGenerator(srv.URL).Generate(context.Background(), "profile summary")
	var quotaErr *QuotaError
	require.ErrorAs(t, err, &quotaErr)
}

func TestGenerateRetriesTransientOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionJSON("Recovered on retry.")))
	}))
	defer srv.Close()

	text, err := testGenerator(srv.URL).Generate(context.Background(), "profile summary")
	require.NoError(t, err)
	assert.Equal(t, "Recovered on retry.", text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGenerateTransientExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testGenerator(srv.URL).Generate(context.Background(), "profile summary")
	var transientErr *TransientError
	require.ErrorAs(t, err, &transientErr)
	// Initial attempt plus exactly one retry.
	assert.Equal(t, int32(2), calls.Load())
}

func TestGenerateMissingCredential(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	gen := NewGenerator(Config{Model: "gpt-4o-mini"})
	_, err := gen.Generate(context.Background(), "profile summary")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
}
