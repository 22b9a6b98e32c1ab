package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/docqd/internal/config"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	geminiAPIVersion     = "v1beta"

	// Gemini embedding models produce different vectors for the storage
	// and search sides of retrieval. Documents are embedded with the
	// document task type, queries with the query task type.
	taskTypeDocument = "RETRIEVAL_DOCUMENT"
	taskTypeQuery    = "RETRIEVAL_QUERY"

	defaultEmbedTimeout = 60 * time.Second
	defaultMaxRetries   = 3
	defaultBaseBackoff  = 1 * time.Second
	defaultBurst        = 5
)

// GeminiProvider generates embeddings via the Gemini REST API.
type GeminiProvider struct {
	baseURL    string
	model      string
	apiKey     string
	dimensions int
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
}

// NewGeminiProvider creates a provider for the Gemini embedContent API.
func NewGeminiProvider(cfg *config.EmbeddingsConfig) (*GeminiProvider, error) {
	if !cfg.APIKey.IsSet() {
		return nil, fmt.Errorf("%w: gemini provider requires an API key", ErrInvalidConfig)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), defaultBurst)
	}

	return &GeminiProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      cfg.Model,
		apiKey:     cfg.APIKey.Value(),
		dimensions: cfg.Dimensions,
		httpClient: &http.Client{Timeout: defaultEmbedTimeout},
		limiter:    limiter,
		maxRetries: defaultMaxRetries,
		backoff:    defaultBaseBackoff,
	}, nil
}

// geminiContent is the content payload for embedding requests.
type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

// geminiEmbedRequest is a single embedding request.
type geminiEmbedRequest struct {
	Model    string        `json:"model"`
	Content  geminiContent `json:"content"`
	TaskType string        `json:"taskType,omitempty"`
}

// geminiBatchEmbedRequest is the request body for batchEmbedContents.
type geminiBatchEmbedRequest struct {
	Requests []geminiEmbedRequest `json:"requests"`
}

type geminiEmbedding struct {
	Values []float32 `json:"values"`
}

type geminiBatchEmbedResponse struct {
	Embeddings []geminiEmbedding `json:"embeddings"`
}

type geminiEmbedResponse struct {
	Embedding geminiEmbedding `json:"embedding"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// EmbedDocuments generates embeddings for chunk texts using the document
// task type. Callers must keep batches at or below 100 texts, the limit
// enforced by the batchEmbedContents endpoint.
func (p *GeminiProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}

	reqBody := geminiBatchEmbedRequest{
		Requests: make([]geminiEmbedRequest, len(texts)),
	}
	for i, text := range texts {
		reqBody.Requests[i] = geminiEmbedRequest{
			Model:    "models/" + p.model,
			Content:  geminiContent{Parts: []geminiPart{{Text: text}}},
			TaskType: taskTypeDocument,
		}
	}

	url := fmt.Sprintf("%s/%s/models/%s:batchEmbedContents", p.baseURL, geminiAPIVersion, p.model)

	var resp geminiBatchEmbedResponse
	if err := p.post(ctx, url, reqBody, &resp); err != nil {
		return nil, err
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrEmbeddingFailed, len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		vectors[i] = e.Values
	}
	return vectors, nil
}

// EmbedQuery generates an embedding for a search query using the query
// task type.
func (p *GeminiProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}

	reqBody := geminiEmbedRequest{
		Model:    "models/" + p.model,
		Content:  geminiContent{Parts: []geminiPart{{Text: text}}},
		TaskType: taskTypeQuery,
	}

	url := fmt.Sprintf("%s/%s/models/%s:embedContent", p.baseURL, geminiAPIVersion, p.model)

	var resp geminiEmbedResponse
	if err := p.post(ctx, url, reqBody, &resp); err != nil {
		return nil, err
	}

	if len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("%w: empty embedding in response", ErrEmbeddingFailed)
	}
	return resp.Embedding.Values, nil
}

// Dimension returns the configured embedding dimension.
func (p *GeminiProvider) Dimension() int {
	return p.dimensions
}

// Close is a no-op since the provider is stateless HTTP.
func (p *GeminiProvider) Close() error {
	return nil
}

// post sends a JSON request with rate limiting and retries. Transport
// failures, 429s, and 5xx responses are retried with exponential backoff;
// other API errors are terminal.
func (p *GeminiProvider) post(ctx context.Context, url string, reqBody, out any) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter error: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			backoff := p.backoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := p.doRequest(ctx, url, payload, out)
		if err == nil {
			return nil
		}

		lastErr = err
		if !isRetryableError(err) {
			return err
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// doRequest performs a single HTTP request against the Gemini API.
func (p *GeminiProvider) doRequest(ctx context.Context, url string, payload []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return &retryableError{err: fmt.Errorf("API request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &retryableError{err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return &retryableError{err: fmt.Errorf("%w: rate limited (429)", ErrEmbeddingFailed)}
	}
	if resp.StatusCode >= 500 {
		return &retryableError{err: fmt.Errorf("%w: server error (%d): %s", ErrEmbeddingFailed, resp.StatusCode, apiErrorMessage(body))}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: API error (%d): %s", ErrEmbeddingFailed, resp.StatusCode, apiErrorMessage(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: parsing response: %v", ErrEmbeddingFailed, err)
	}
	return nil
}

// apiErrorMessage extracts the error message from a Gemini error body,
// falling back to the raw body truncated to a sane length.
func apiErrorMessage(body []byte) string {
	var errResp geminiErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	raw := strings.TrimSpace(string(body))
	if len(raw) > 200 {
		return raw[:200] + "..."
	}
	return raw
}

// retryableError wraps an error to indicate it can be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// isRetryableError checks if an error should be retried.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	for e := err; e != nil; {
		if _, ok := e.(*retryableError); ok {
			return true
		}
		if unwrapper, ok := e.(interface{ Unwrap() error }); ok {
			e = unwrapper.Unwrap()
		} else {
			break
		}
	}
	return false
}
