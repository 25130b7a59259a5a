package expand

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		Multiplier:   1.0,
		MaxDelay:     time.Millisecond,
	}
}

func chatServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Expand_Success(t *testing.T) {
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Contains(t, req.Messages[1].Content, "warp drive")
		assert.Contains(t, req.Messages[1].Content, "supporting detail")

		json.NewEncoder(w).Encode(map[string]any{
			"model": "test-model-v2",
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "a long expansion"}, "finish_reason": "stop"},
			},
			"usage": map[string]int{"total_tokens": 42},
		})
	})

	c := NewClient(srv.URL, "test-model", WithRetryConfig(fastRetry()))
	result, err := c.Expand(context.Background(), Request{Concept: "warp drive", Body: "supporting detail"})
	require.NoError(t, err)

	assert.Equal(t, "a long expansion", result.Expansion)
	assert.Equal(t, "test-model-v2", result.Model)
	assert.Equal(t, 42, result.TokensUsed)
	assert.Equal(t, "stop", result.FinishReason)
}

func TestClient_Expand_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "eventually fine"}},
			},
		})
	})

	c := NewClient(srv.URL, "test-model", WithRetryConfig(fastRetry()))
	result, err := c.Expand(context.Background(), Request{Concept: "x"})
	require.NoError(t, err)
	assert.Equal(t, "eventually fine", result.Expansion)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_Expand_FatalErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	c := NewClient(srv.URL, "test-model", WithRetryConfig(fastRetry()))
	_, err := c.Expand(context.Background(), Request{Concept: "x"})
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Expand_ExhaustedRetriesReturnLastError(t *testing.T) {
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	c := NewClient(srv.URL, "test-model", WithRetryConfig(fastRetry()))
	_, err := c.Expand(context.Background(), Request{Concept: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestClient_Expand_EmptyConceptIsFatal(t *testing.T) {
	c := NewClient("http://unused", "test-model")
	_, err := c.Expand(context.Background(), Request{})
	require.Error(t, err)
	assert.True(t, IsFatal(err))
}

func TestClient_Expand_ContextCancellation(t *testing.T) {
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	c := NewClient(srv.URL, "test-model", WithRetryConfig(fastRetry()))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Expand(ctx, Request{Concept: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExpanderFunc(t *testing.T) {
	var got Request
	fn := ExpanderFunc(func(_ context.Context, req Request) (*Result, error) {
		got = req
		return &Result{Expansion: "ok"}, nil
	})

	result, err := fn.Expand(context.Background(), Request{Concept: "c"})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Expansion)
	assert.Equal(t, "c", got.Concept)
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsTransient(classifyHTTPError(429, nil)))
	assert.True(t, IsTransient(classifyHTTPError(503, nil)))
	assert.True(t, IsFatal(classifyHTTPError(401, nil)))
	assert.True(t, IsFatal(classifyHTTPError(400, nil)))
}

func TestFailureMarksSurviveWrapping(t *testing.T) {
	base := MarkTransient(errors.New("upstream busy"))
	wrapped := errors.Wrap(base, "expand request")

	assert.True(t, IsTransient(wrapped))
	assert.False(t, IsFatal(wrapped))

	fatal := errors.Wrapf(MarkFatal(errors.New("bad key")), "attempt %d", 1)
	assert.True(t, IsFatal(fatal))
	assert.False(t, IsTransient(fatal))

	assert.False(t, IsTransient(errors.New("unclassified")))
	assert.False(t, IsFatal(errors.New("unclassified")))
}
