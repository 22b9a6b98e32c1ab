package embeddings

import (
	"errors"
	"testing"

	"github.com/fyrsmithlabs/docqd/internal/config"
)

// Compile-time checks that every provider satisfies Provider.
var (
	_ Provider = (*GeminiProvider)(nil)
	_ Provider = (*OpenAIProvider)(nil)
	_ Provider = (*FastEmbedProvider)(nil)
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.EmbeddingsConfig
		wantError error
	}{
		{
			name: "gemini provider",
			cfg: config.EmbeddingsConfig{
				Provider: "gemini",
				Model:    "text-embedding-004",
				APIKey:   config.Secret("test-key"),
			},
		},
		{
			name: "empty provider defaults to gemini",
			cfg: config.EmbeddingsConfig{
				Model:  "text-embedding-004",
				APIKey: config.Secret("test-key"),
			},
		},
		{
			name: "gemini without api key",
			cfg: config.EmbeddingsConfig{
				Provider: "gemini",
				Model:    "text-embedding-004",
			},
			wantError: ErrInvalidConfig,
		},
		{
			name: "openai provider with base url",
			cfg: config.EmbeddingsConfig{
				Provider: "openai",
				Model:    "BAAI/bge-small-en-v1.5",
				BaseURL:  "http://localhost:8080/v1",
			},
		},
		{
			name: "openai provider with api key",
			cfg: config.EmbeddingsConfig{
				Provider: "openai",
				Model:    "text-embedding-3-small",
				APIKey:   config.Secret("sk-test123"),
			},
		},
		{
			name: "openai without key or base url",
			cfg: config.EmbeddingsConfig{
				Provider: "openai",
				Model:    "text-embedding-3-small",
			},
			wantError: ErrInvalidConfig,
		},
		{
			name: "local with conflicting dimensions",
			cfg: config.EmbeddingsConfig{
				Provider:   "local",
				Model:      "BAAI/bge-small-en-v1.5",
				Dimensions: 768,
			},
			wantError: ErrInvalidConfig,
		},
		{
			name: "unknown provider",
			cfg: config.EmbeddingsConfig{
				Provider: "huggingface",
			},
			wantError: ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(&tt.cfg)
			if tt.wantError != nil {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, tt.wantError) {
					t.Errorf("expected error %v, got %v", tt.wantError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if provider == nil {
				t.Fatal("expected provider, got nil")
			}
			if err := provider.Close(); err != nil {
				t.Errorf("closing provider: %v", err)
			}
		})
	}
}

func TestNewProvider_GeminiDimension(t *testing.T) {
	cfg := config.EmbeddingsConfig{
		Provider:   "gemini",
		Model:      "text-embedding-004",
		Dimensions: 768,
		APIKey:     config.Secret("test-key"),
	}

	provider, err := NewProvider(&cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer provider.Close()

	if got := provider.Dimension(); got != 768 {
		t.Errorf("expected dimension 768, got %d", got)
	}
}
