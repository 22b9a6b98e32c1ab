package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/docqd/internal/config"
)

var _ Client = (*GeminiClient)(nil)

func llmTestConfig(baseURL string) *config.LLMConfig {
	return &config.LLMConfig{
		Model:           "gemini-2.5-flash",
		Temperature:     0.2,
		MaxOutputTokens: 512,
		BaseURL:         baseURL,
		APIKey:          config.Secret("test-key"),
	}
}

func TestNewGeminiClient_RequiresAPIKey(t *testing.T) {
	cfg := llmTestConfig("")
	cfg.APIKey = ""

	_, err := NewGeminiClient(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewGeminiClient_RequiresModel(t *testing.T) {
	cfg := llmTestConfig("")
	cfg.Model = ""

	_, err := NewGeminiClient(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestGeminiClient_Complete(t *testing.T) {
	var gotPath, gotKey string
	var gotReq geminiGenerateRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)

		resp := geminiGenerateResponse{
			Candidates: []geminiCandidate{
				{
					Content:      geminiContent{Parts: []geminiPart{{Text: "The refund window is 30 days."}}},
					FinishReason: "STOP",
				},
			},
			UsageMetadata: geminiUsageMetadata{PromptTokenCount: 42, CandidatesTokenCount: 17},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewGeminiClient(llmTestConfig(server.URL))
	require.NoError(t, err)

	completion, err := client.Complete(context.Background(), "You are a document assistant.", "What is the refund window?")
	require.NoError(t, err)

	assert.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", gotPath)
	assert.Equal(t, "test-key", gotKey)

	require.Len(t, gotReq.Contents, 1)
	require.Len(t, gotReq.Contents[0].Parts, 1)
	assert.Equal(t, "What is the refund window?", gotReq.Contents[0].Parts[0].Text)
	require.NotNil(t, gotReq.SystemInstruction)
	require.Len(t, gotReq.SystemInstruction.Parts, 1)
	assert.Equal(t, "You are a document assistant.", gotReq.SystemInstruction.Parts[0].Text)
	assert.Equal(t, 0.2, gotReq.GenerationConfig.Temperature)
	assert.Equal(t, 512, gotReq.GenerationConfig.MaxOutputTokens)

	assert.Equal(t, "The refund window is 30 days.", completion.Text)
	assert.Equal(t, 42, completion.PromptTokens)
	assert.Equal(t, 17, completion.CompletionTokens)
}

func TestGeminiClient_JoinsMultiPartResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := geminiGenerateResponse{
			Candidates: []geminiCandidate{
				{Content: geminiContent{Parts: []geminiPart{{Text: "First half "}, {Text: "second half."}}}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewGeminiClient(llmTestConfig(server.URL))
	require.NoError(t, err)

	completion, err := client.Complete(context.Background(), "", "question")
	require.NoError(t, err)
	assert.Equal(t, "First half second half.", completion.Text)
	assert.Zero(t, completion.PromptTokens)
	assert.Zero(t, completion.CompletionTokens)
}

func TestGeminiClient_OmitsEmptySystemInstruction(t *testing.T) {
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)

		resp := geminiGenerateResponse{
			Candidates: []geminiCandidate{
				{Content: geminiContent{Parts: []geminiPart{{Text: "ok"}}}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewGeminiClient(llmTestConfig(server.URL))
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "", "question")
	require.NoError(t, err)
	assert.NotContains(t, string(gotBody), "systemInstruction")
}

func TestGeminiClient_EmptyPrompt(t *testing.T) {
	client, err := NewGeminiClient(llmTestConfig("http://127.0.0.1:1"))
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "instruction", "   ")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

func TestGeminiClient_NoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(geminiGenerateResponse{})
	}))
	defer server.Close()

	client, err := NewGeminiClient(llmTestConfig(server.URL))
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "", "question")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Contains(t, err.Error(), "no candidates")
}

func TestGeminiClient_EmptyResponseText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := geminiGenerateResponse{
			Candidates: []geminiCandidate{{FinishReason: "SAFETY"}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewGeminiClient(llmTestConfig(server.URL))
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "", "question")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Contains(t, err.Error(), "SAFETY")
}

func TestGeminiClient_RetriesOnServerError(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`)
			return
		}
		resp := geminiGenerateResponse{
			Candidates: []geminiCandidate{
				{Content: geminiContent{Parts: []geminiPart{{Text: "recovered"}}}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewGeminiClient(llmTestConfig(server.URL))
	require.NoError(t, err)
	client.backoff = time.Millisecond

	completion, err := client.Complete(context.Background(), "", "retry me")
	require.NoError(t, err)
	assert.Equal(t, "recovered", completion.Text)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestGeminiClient_RetriesOnRateLimit(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		resp := geminiGenerateResponse{
			Candidates: []geminiCandidate{
				{Content: geminiContent{Parts: []geminiPart{{Text: "after backoff"}}}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewGeminiClient(llmTestConfig(server.URL))
	require.NoError(t, err)
	client.backoff = time.Millisecond

	completion, err := client.Complete(context.Background(), "", "rate limited")
	require.NoError(t, err)
	assert.Equal(t, "after backoff", completion.Text)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestGeminiClient_BadRequestNotRetried(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":400,"message":"invalid model","status":"INVALID_ARGUMENT"}}`)
	}))
	defer server.Close()

	client, err := NewGeminiClient(llmTestConfig(server.URL))
	require.NoError(t, err)
	client.backoff = time.Millisecond

	_, err = client.Complete(context.Background(), "", "question")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Contains(t, err.Error(), "invalid model")
	assert.Equal(t, int32(1), attempts.Load())
}

func TestGeminiClient_RetriesExhausted(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewGeminiClient(llmTestConfig(server.URL))
	require.NoError(t, err)
	client.backoff = time.Millisecond

	_, err = client.Complete(context.Background(), "", "question")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Equal(t, int32(client.maxRetries+1), attempts.Load())
}

func TestGeminiClient_Model(t *testing.T) {
	client, err := NewGeminiClient(llmTestConfig(""))
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", client.Model())
}
