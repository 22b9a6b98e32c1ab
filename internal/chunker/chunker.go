package chunker

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// PageNumberKey is the metadata key carrying the 1-based page number for
// chunks produced from paginated documents.
const PageNumberKey = "page_number"

// Chunk is a contiguous span of document text sized for embedding.
type Chunk struct {
	// ID is unique within the source document and assigned sequentially
	// across all segments ("chunk_0", "chunk_1", ...).
	ID string
	// Content holds the buffered sentences joined by single spaces.
	Content string
	// Metadata carries segment-level attributes such as the page number.
	Metadata map[string]string
}

// Segment is one ordered slice of source text: a page of a paginated
// document, or the whole body of a plain-text one.
type Segment struct {
	Text     string
	Metadata map[string]string
}

// PageSegment builds the segment for a single page, tagging every chunk
// produced from it with the page number.
func PageSegment(number int, text string) Segment {
	return Segment{
		Text:     text,
		Metadata: map[string]string{PageNumberKey: strconv.Itoa(number)},
	}
}

// Splitter cuts document text into sentence-aligned overlapping chunks.
type Splitter struct {
	chunkSize int
	overlap   int
}

// NewSplitter creates a Splitter. Both sizes are measured in characters
// and must be positive. An overlap at or above the chunk size is
// tolerated but carries entire previous chunks forward, duplicating
// heavily between neighbors.
func NewSplitter(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize < 1 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 1 {
		return nil, fmt.Errorf("chunk overlap must be positive, got %d", overlap)
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}, nil
}

// Split chunks every segment in order and assigns sequential chunk IDs
// across the full result, not per segment. Segment metadata is copied
// onto each chunk produced from it.
func (s *Splitter) Split(segments []Segment) []Chunk {
	var chunks []Chunk
	for _, seg := range segments {
		for _, content := range s.chunkText(seg.Text) {
			chunks = append(chunks, Chunk{
				ID:       fmt.Sprintf("chunk_%d", len(chunks)),
				Content:  content,
				Metadata: copyMetadata(seg.Metadata),
			})
		}
	}
	return chunks
}

// SplitText chunks a single unpaginated text with no metadata.
func (s *Splitter) SplitText(text string) []Chunk {
	return s.Split([]Segment{{Text: text}})
}

// chunkText greedily packs sentences into chunks. A chunk closes when
// appending the next sentence would push its joined length past the
// chunk size; the next chunk is then seeded with trailing sentences of
// the closed one up to the overlap budget. Empty text yields no chunks.
func (s *Splitter) chunkText(text string) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var out []string
	var buf []string
	bufLen := 0

	for _, sentence := range sentences {
		cost := utf8.RuneCountInString(sentence)
		if len(buf) > 0 {
			cost++ // joining space
		}
		if len(buf) > 0 && bufLen+cost > s.chunkSize {
			out = append(out, strings.Join(buf, " "))
			buf, bufLen = s.carryOverlap(buf)
			cost = utf8.RuneCountInString(sentence)
			if len(buf) > 0 {
				cost++
			}
		}
		buf = append(buf, sentence)
		bufLen += cost
	}
	if len(buf) > 0 {
		out = append(out, strings.Join(buf, " "))
	}
	return out
}

// carryOverlap selects the longest run of trailing sentences whose
// joined length stays within the overlap budget, stopping at the first
// sentence that would exceed it. It returns a fresh slice so the next
// buffer does not share a backing array with the flushed chunk.
func (s *Splitter) carryOverlap(flushed []string) ([]string, int) {
	carried := 0
	carriedLen := 0
	for i := len(flushed) - 1; i >= 0; i-- {
		cost := utf8.RuneCountInString(flushed[i])
		if carried > 0 {
			cost++
		}
		if carriedLen+cost > s.overlap {
			break
		}
		carried++
		carriedLen += cost
	}
	if carried == 0 {
		return nil, 0
	}
	buf := make([]string, carried, carried+1)
	copy(buf, flushed[len(flushed)-carried:])
	return buf, carriedLen
}

// splitSentences cuts text at sentence boundaries. A boundary is a '.',
// '!', or '?' immediately followed by whitespace. Results are trimmed,
// empty entries are dropped, and a trailing fragment without a
// terminator is kept as its own sentence.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminator(runes[i]) {
			continue
		}
		if i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			sentences = append(sentences, s)
		}
		start = i + 1
		for start < len(runes) && unicode.IsSpace(runes[start]) {
			start++
		}
		i = start - 1
	}
	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func copyMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
