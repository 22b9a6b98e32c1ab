// Package llm provides the language-model client used for answer
// generation. Answers are produced by the Gemini generateContent API with
// a fixed sampling temperature and output-token cap taken from
// configuration; callers supply the prompt and a mode-specific system
// instruction per call.
package llm

import (
	"context"
	"errors"
)

var (
	// ErrInvalidConfig indicates the client configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrGenerationFailed indicates the provider call failed or returned
	// an unusable response.
	ErrGenerationFailed = errors.New("answer generation failed")
)

// Completion is a single model response.
type Completion struct {
	// Text is the generated answer.
	Text string
	// PromptTokens and CompletionTokens come from provider usage metadata.
	// Both are zero when the provider omits usage counts; callers fall
	// back to a character-count estimate in that case.
	PromptTokens     int
	CompletionTokens int
}

// Client generates answers from a language model.
type Client interface {
	// Complete generates text for the prompt under the given system
	// instruction.
	Complete(ctx context.Context, systemInstruction, prompt string) (*Completion, error)
	// Model returns the model identifier answers are generated with.
	Model() string
}
