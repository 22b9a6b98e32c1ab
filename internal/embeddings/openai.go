package embeddings

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/fyrsmithlabs/docqd/internal/config"
)

// OpenAIProvider generates embeddings through any OpenAI-compatible API
// using langchaingo. With BaseURL set it works against self-hosted
// servers (TEI, vLLM, LocalAI) as well as OpenAI itself.
type OpenAIProvider struct {
	embedder   *embeddings.EmbedderImpl
	dimensions int
}

// NewOpenAIProvider creates a provider for OpenAI-compatible embedding
// endpoints. Self-hosted servers usually ignore the API key, so a
// placeholder token is used when none is configured.
func NewOpenAIProvider(cfg *config.EmbeddingsConfig) (*OpenAIProvider, error) {
	apiKey := cfg.APIKey.Value()
	if apiKey == "" {
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("%w: openai provider requires an API key or base_url", ErrInvalidConfig)
		}
		// langchaingo requires a token, use placeholder for self-hosted
		apiKey = "placeholder"
	}

	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(cfg.Model),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return &OpenAIProvider{
		embedder:   embedder,
		dimensions: cfg.Dimensions,
	}, nil
}

// EmbedDocuments generates embeddings for multiple texts.
func (p *OpenAIProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}

	vectors, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	return vectors, nil
}

// EmbedQuery generates an embedding for a single query.
func (p *OpenAIProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}

	vector, err := p.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	return vector, nil
}

// Dimension returns the configured embedding dimension.
func (p *OpenAIProvider) Dimension() int {
	return p.dimensions
}

// Close is a no-op since the provider is stateless HTTP.
func (p *OpenAIProvider) Close() error {
	return nil
}
