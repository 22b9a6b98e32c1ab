package answer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqd/internal/cache"
	"github.com/fyrsmithlabs/docqd/internal/llm"
)

const defaultCacheTTL = time.Hour

// Answer is one generated answer with token accounting. Token counts come
// from provider usage metadata when available, otherwise from a
// four-characters-per-token estimate.
type Answer struct {
	Text             string
	Mode             Mode
	Model            string
	PromptTokens     int
	CompletionTokens int
	// TokensUsed is the prompt and completion totals combined.
	TokensUsed int
	// Cached reports whether the answer came from the prompt-hash cache
	// instead of a provider call.
	Cached bool
}

// Answerer generates answers through the language model with a prompt-hash
// cache in front of it. Cache failures are logged and treated as misses;
// they never abort answering.
type Answerer struct {
	llm    llm.Client
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewAnswerer creates an answerer. A nil cache disables caching and a
// non-positive ttl falls back to one hour.
func NewAnswerer(client llm.Client, answerCache cache.Cache, ttl time.Duration, logger *zap.Logger) *Answerer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if answerCache == nil {
		answerCache = cache.NewNoopCache()
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Answerer{llm: client, cache: answerCache, ttl: ttl, logger: logger}
}

// Generate answers the question from retrieved sources.
func (a *Answerer) Generate(ctx context.Context, query string, sources []Source, research string) (*Answer, error) {
	return a.GenerateFromContext(ctx, query, BuildContext(sources), research)
}

// GenerateFromContext answers the question from pre-assembled context
// text. The grounding mode is recomputed from the context length on every
// call.
func (a *Answerer) GenerateFromContext(ctx context.Context, query, contextText, research string) (*Answer, error) {
	ctx, span := tracer.Start(ctx, "answer.generate")
	defer span.End()

	mode := SelectMode(contextText)

	var prompt, systemInstruction string
	switch mode {
	case ModeStrict:
		prompt = BuildStrictPrompt(query, contextText)
		systemInstruction = strictSystemInstruction
	default:
		prompt = BuildHybridPrompt(query, contextText, research)
		systemInstruction = hybridSystemInstruction
	}

	span.SetAttributes(
		attribute.String("answer.mode", string(mode)),
		attribute.Int("answer.context_chars", len(contextText)),
	)

	key := CacheKey(prompt)
	cachedText, hit, err := a.cache.Get(ctx, key)
	if err != nil {
		a.logger.Warn("answer cache get failed", zap.Error(err))
	}
	if hit {
		span.SetAttributes(attribute.Bool("answer.cached", true))
		promptTokens := estimateTokens(prompt)
		completionTokens := estimateTokens(cachedText)
		return &Answer{
			Text:             cachedText,
			Mode:             mode,
			Model:            a.llm.Model(),
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TokensUsed:       promptTokens + completionTokens,
			Cached:           true,
		}, nil
	}

	completion, err := a.llm.Complete(ctx, systemInstruction, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	text := cleanAnswer(completion.Text)

	promptTokens := completion.PromptTokens
	if promptTokens == 0 {
		promptTokens = estimateTokens(prompt)
	}
	completionTokens := completion.CompletionTokens
	if completionTokens == 0 {
		completionTokens = estimateTokens(text)
	}

	if err := a.cache.SetWithTTL(ctx, key, text, a.ttl); err != nil {
		a.logger.Warn("answer cache set failed", zap.Error(err))
	}

	return &Answer{
		Text:             text,
		Mode:             mode,
		Model:            a.llm.Model(),
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TokensUsed:       promptTokens + completionTokens,
	}, nil
}

// cleanAnswer converts literal backslash-n sequences the model sometimes
// emits into real line breaks, then trims surrounding whitespace.
func cleanAnswer(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, `\n`, "\n"))
}

// estimateTokens approximates usage at four characters per token.
func estimateTokens(text string) int {
	return len(text) / 4
}
