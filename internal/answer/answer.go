// Package answer turns questions into grounded answers. It assembles
// retrieved chunks into a cited context, picks a grounding mode from the
// context length alone, builds the prompt, invokes the language model
// behind a prompt-hash cache, and post-processes the answer text.
//
// Two grounding modes exist. With rich context the model is held to
// strict mode: answer only from the documents, refuse with a fixed
// sentence otherwise. With thin context the model runs in hybrid mode
// and may supplement the documents with general knowledge. The mode is
// recomputed from the assembled context on every call and carries no
// state between queries.
package answer

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"

	"github.com/fyrsmithlabs/docqd/internal/chunker"
	"github.com/fyrsmithlabs/docqd/internal/vectorstore"
)

var tracer = otel.Tracer("docqd.answer")

// ErrInvalidQuery indicates the query text failed validation.
var ErrInvalidQuery = errors.New("invalid query")

// Mode is the grounding policy applied to one answer.
type Mode string

const (
	// ModeStrict confines the model to the supplied document context.
	ModeStrict Mode = "strict"
	// ModeHybrid lets the model supplement thin context with general
	// knowledge while preferring the documents.
	ModeHybrid Mode = "hybrid"
)

// minStrictContextChars is the assembled-context length, in characters,
// at which answering switches from hybrid to strict grounding.
const minStrictContextChars = 500

const (
	// RefusalSentence is the fixed sentence strict mode instructs the
	// model to emit when the context does not contain the answer.
	RefusalSentence = "The provided documents do not contain enough information to answer this question."
	// NoResultsAnswer is returned without a model call when retrieval
	// finds nothing above the similarity threshold.
	NoResultsAnswer = "I couldn't find relevant information in the documents to answer your question."
)

// Source is one retrieved chunk feeding the answer context, in retrieval
// rank order.
type Source struct {
	DocumentID string
	ChunkID    string
	Content    string
	Similarity float32
	// Page is the page number the chunk came from, empty for unpaginated
	// formats.
	Page string
}

// SelectMode chooses the grounding mode from the assembled context alone.
func SelectMode(contextText string) Mode {
	if utf8.RuneCountInString(strings.TrimSpace(contextText)) >= minStrictContextChars {
		return ModeStrict
	}
	return ModeHybrid
}

// BuildContext formats retrieved chunks as citation blocks, numbered from
// 1 in rank order and separated by blank lines. Chunks without a page
// number are cited as page N/A.
func BuildContext(sources []Source) string {
	blocks := make([]string, len(sources))
	for i, src := range sources {
		page := src.Page
		if page == "" {
			page = "N/A"
		}
		blocks[i] = fmt.Sprintf("[Source %d, Page %s, Relevance: %.2f]\n%s", i+1, page, src.Similarity, src.Content)
	}
	return strings.Join(blocks, "\n\n")
}

// CacheKey derives the answer-cache key for a prompt.
func CacheKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return "llm:" + hex.EncodeToString(sum[:])
}

// toSources converts search results to sources, pulling provenance out of
// the stored metadata.
func toSources(results []vectorstore.SearchResult) []Source {
	sources := make([]Source, len(results))
	for i, r := range results {
		sources[i] = Source{
			DocumentID: r.Metadata[vectorstore.DocumentIDKey],
			ChunkID:    r.Metadata[vectorstore.ChunkIDKey],
			Content:    r.Content,
			Similarity: r.Similarity,
			Page:       r.Metadata[chunker.PageNumberKey],
		}
	}
	return sources
}
