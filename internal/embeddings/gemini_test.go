package embeddings

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/docqd/internal/config"
)

func geminiTestConfig(baseURL string) *config.EmbeddingsConfig {
	return &config.EmbeddingsConfig{
		Provider:   "gemini",
		Model:      "text-embedding-004",
		Dimensions: 3,
		BaseURL:    baseURL,
		APIKey:     config.Secret("test-key"),
	}
}

func TestNewGeminiProvider_RequiresAPIKey(t *testing.T) {
	cfg := geminiTestConfig("")
	cfg.APIKey = ""

	_, err := NewGeminiProvider(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestGeminiProvider_EmbedDocuments(t *testing.T) {
	var gotPath, gotKey string
	var gotReq geminiBatchEmbedRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)

		resp := geminiBatchEmbedResponse{
			Embeddings: []geminiEmbedding{
				{Values: []float32{0.1, 0.2, 0.3}},
				{Values: []float32{0.4, 0.5, 0.6}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewGeminiProvider(geminiTestConfig(server.URL))
	require.NoError(t, err)

	vectors, err := provider.EmbedDocuments(context.Background(), []string{"first chunk", "second chunk"})
	require.NoError(t, err)

	assert.Equal(t, "/v1beta/models/text-embedding-004:batchEmbedContents", gotPath)
	assert.Equal(t, "test-key", gotKey)

	require.Len(t, gotReq.Requests, 2)
	for _, req := range gotReq.Requests {
		assert.Equal(t, "models/text-embedding-004", req.Model)
		assert.Equal(t, taskTypeDocument, req.TaskType)
		require.Len(t, req.Content.Parts, 1)
	}
	assert.Equal(t, "first chunk", gotReq.Requests[0].Content.Parts[0].Text)
	assert.Equal(t, "second chunk", gotReq.Requests[1].Content.Parts[0].Text)

	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vectors[0])
	assert.Equal(t, []float32{0.4, 0.5, 0.6}, vectors[1])
}

func TestGeminiProvider_EmbedQuery(t *testing.T) {
	var gotPath string
	var gotReq geminiEmbedRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotReq)

		resp := geminiEmbedResponse{Embedding: geminiEmbedding{Values: []float32{0.7, 0.8, 0.9}}}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewGeminiProvider(geminiTestConfig(server.URL))
	require.NoError(t, err)

	vector, err := provider.EmbedQuery(context.Background(), "what is the refund policy?")
	require.NoError(t, err)

	assert.Equal(t, "/v1beta/models/text-embedding-004:embedContent", gotPath)
	assert.Equal(t, taskTypeQuery, gotReq.TaskType)
	require.Len(t, gotReq.Content.Parts, 1)
	assert.Equal(t, "what is the refund policy?", gotReq.Content.Parts[0].Text)
	assert.Equal(t, []float32{0.7, 0.8, 0.9}, vector)
}

func TestGeminiProvider_EmptyInput(t *testing.T) {
	provider, err := NewGeminiProvider(geminiTestConfig("http://127.0.0.1:1"))
	require.NoError(t, err)

	_, err = provider.EmbedDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = provider.EmbedQuery(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestGeminiProvider_RetriesOnServerError(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`)
			return
		}
		_ = json.NewEncoder(w).Encode(geminiEmbedResponse{Embedding: geminiEmbedding{Values: []float32{1, 2, 3}}})
	}))
	defer server.Close()

	provider, err := NewGeminiProvider(geminiTestConfig(server.URL))
	require.NoError(t, err)
	provider.backoff = time.Millisecond

	vector, err := provider.EmbedQuery(context.Background(), "retry me")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, vector)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestGeminiProvider_RetriesOnRateLimit(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`)
			return
		}
		_ = json.NewEncoder(w).Encode(geminiEmbedResponse{Embedding: geminiEmbedding{Values: []float32{1, 2, 3}}})
	}))
	defer server.Close()

	provider, err := NewGeminiProvider(geminiTestConfig(server.URL))
	require.NoError(t, err)
	provider.backoff = time.Millisecond

	_, err = provider.EmbedQuery(context.Background(), "rate limited once")
	require.NoError(t, err)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestGeminiProvider_BadRequestNotRetried(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":400,"message":"invalid argument","status":"INVALID_ARGUMENT"}}`)
	}))
	defer server.Close()

	provider, err := NewGeminiProvider(geminiTestConfig(server.URL))
	require.NoError(t, err)
	provider.backoff = time.Millisecond

	_, err = provider.EmbedQuery(context.Background(), "bad request")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
	assert.Contains(t, err.Error(), "invalid argument")
	assert.Equal(t, int32(1), attempts.Load())
}

func TestGeminiProvider_RetriesExhausted(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"code":500,"message":"internal","status":"INTERNAL"}}`)
	}))
	defer server.Close()

	provider, err := NewGeminiProvider(geminiTestConfig(server.URL))
	require.NoError(t, err)
	provider.backoff = time.Millisecond

	_, err = provider.EmbedQuery(context.Background(), "always failing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Equal(t, int32(provider.maxRetries+1), attempts.Load())
}

func TestGeminiProvider_EmbeddingCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := geminiBatchEmbedResponse{
			Embeddings: []geminiEmbedding{{Values: []float32{0.1, 0.2, 0.3}}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewGeminiProvider(geminiTestConfig(server.URL))
	require.NoError(t, err)

	_, err = provider.EmbedDocuments(context.Background(), []string{"one", "two"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
	assert.Contains(t, err.Error(), "got 1 embeddings for 2 texts")
}
