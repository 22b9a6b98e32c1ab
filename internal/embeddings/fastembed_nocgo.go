//go:build !cgo

package embeddings

import (
	"context"
	"errors"
)

// ErrFastEmbedNotAvailable is returned from every FastEmbed operation in
// builds without CGO. Local ONNX inference needs the onnxruntime binding.
var ErrFastEmbedNotAvailable = errors.New("fastembed: not available (binary built without CGO support, use the gemini or openai provider instead)")

// FastEmbedProvider is a stub in builds without CGO; every operation
// fails with ErrFastEmbedNotAvailable.
type FastEmbedProvider struct{}

func NewFastEmbedProvider(_ FastEmbedConfig) (*FastEmbedProvider, error) {
	return nil, ErrFastEmbedNotAvailable
}

func (p *FastEmbedProvider) EmbedDocuments(_ context.Context, _ []string) ([][]float32, error) {
	return nil, ErrFastEmbedNotAvailable
}

func (p *FastEmbedProvider) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	return nil, ErrFastEmbedNotAvailable
}

func (p *FastEmbedProvider) Dimension() int { return 0 }

func (p *FastEmbedProvider) Close() error { return nil }
