package embeddings

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/docqd/internal/config"
)

// Provider is the interface for embedding providers. Documents and queries
// are embedded through separate operations because task-typed models such
// as Gemini produce different vectors for the storage and search sides.
type Provider interface {
	// EmbedDocuments generates embeddings for chunk texts bound for storage.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQuery generates an embedding for a single search query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// Dimension returns the embedding dimension for the current model.
	Dimension() int
	// Close releases resources held by the provider.
	Close() error
}

// NewProvider creates an embedding provider based on the configuration.
func NewProvider(cfg *config.EmbeddingsConfig) (Provider, error) {
	switch cfg.Provider {
	case "gemini", "":
		return NewGeminiProvider(cfg)
	case "openai":
		return NewOpenAIProvider(cfg)
	case "local":
		// Local models have fixed dimensions; catch a conflicting
		// configuration before loading the model.
		if dim, ok := fastEmbedModelDimension(cfg.Model); ok && cfg.Dimensions != 0 && dim != cfg.Dimensions {
			return nil, fmt.Errorf("%w: model %q produces %d-dimensional vectors, configured dimensions=%d",
				ErrInvalidConfig, cfg.Model, dim, cfg.Dimensions)
		}
		return NewFastEmbedProvider(FastEmbedConfig{
			Model:    cfg.Model,
			CacheDir: cfg.CacheDir,
		})
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}
