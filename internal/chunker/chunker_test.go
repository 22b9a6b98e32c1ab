package chunker

import (
	"fmt"
	"strconv"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "basic terminators",
			text: "First sentence. Second sentence! Third sentence?",
			want: []string{"First sentence.", "Second sentence!", "Third sentence?"},
		},
		{
			name: "trailing fragment without terminator",
			text: "Complete sentence. Trailing fragment",
			want: []string{"Complete sentence.", "Trailing fragment"},
		},
		{
			name: "terminator without following whitespace",
			text: "Version 2.5 shipped",
			want: []string{"Version 2.5 shipped"},
		},
		{
			name: "whitespace runs and newlines",
			text: "First.\n\nSecond.   Third.",
			want: []string{"First.", "Second.", "Third."},
		},
		{
			name: "ellipsis splits after final period",
			text: "Wait... What?",
			want: []string{"Wait...", "What?"},
		},
		{
			name: "abbreviation splits on the heuristic",
			text: "Mr. Smith arrived.",
			want: []string{"Mr.", "Smith arrived."},
		},
		{
			name: "empty text",
			text: "",
			want: nil,
		},
		{
			name: "whitespace only",
			text: "   \n\t  ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitSentences(tt.text))
		})
	}
}

func TestNewSplitter(t *testing.T) {
	s, err := NewSplitter(1000, 200)
	require.NoError(t, err)
	require.NotNil(t, s)

	_, err = NewSplitter(0, 200)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk size")

	_, err = NewSplitter(1000, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk overlap")
}

func TestSplitter_SplitText_OverlapCarry(t *testing.T) {
	s, err := NewSplitter(20, 10)
	require.NoError(t, err)

	text := "One two three. Four five. Six seven eight. Nine."
	chunks := s.SplitText(text)

	// "Four five." (10 chars) fits the overlap budget exactly, so it is
	// carried into the next chunk; the longer sentences are not.
	want := []string{
		"One two three.",
		"Four five.",
		"Four five. Six seven eight.",
		"Nine.",
	}
	require.Len(t, chunks, len(want))
	for i, c := range chunks {
		assert.Equal(t, fmt.Sprintf("chunk_%d", i), c.ID)
		assert.Equal(t, want[i], c.Content)
		assert.Nil(t, c.Metadata)
	}
}

func TestSplitter_SplitText_ChunkSizeBound(t *testing.T) {
	s, err := NewSplitter(100, 45)
	require.NoError(t, err)

	chunks := s.SplitText(numberedSentences(40))
	require.NotEmpty(t, chunks)

	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Content), 100,
			"chunk %s exceeds the configured size", c.ID)
	}
}

func TestSplitter_SplitText_OverlapBound(t *testing.T) {
	s, err := NewSplitter(100, 45)
	require.NoError(t, err)

	chunks := s.SplitText(numberedSentences(40))
	require.Greater(t, len(chunks), 1)

	var prev []string
	for _, c := range chunks {
		cs := splitSentences(c.Content)
		if prev != nil {
			n := sentenceOverlap(prev, cs)
			shared := strings.Join(cs[:n], " ")
			assert.LessOrEqual(t, utf8.RuneCountInString(shared), 45,
				"overlap carried into %s exceeds the budget", c.ID)
		}
		prev = cs
	}
}

func TestSplitter_SplitText_Reconstruction(t *testing.T) {
	s, err := NewSplitter(100, 45)
	require.NoError(t, err)

	text := numberedSentences(25)
	chunks := s.SplitText(text)
	require.NotEmpty(t, chunks)

	// Dropping each chunk's carried-over prefix must reproduce the
	// original sentence sequence with nothing lost or duplicated.
	var got []string
	var prev []string
	for _, c := range chunks {
		cs := splitSentences(c.Content)
		got = append(got, cs[sentenceOverlap(prev, cs):]...)
		prev = cs
	}
	assert.Equal(t, splitSentences(text), got)
}

func TestSplitter_SplitText_OversizedSentence(t *testing.T) {
	s, err := NewSplitter(30, 5)
	require.NoError(t, err)

	text := "Short one. This single sentence is far longer than the configured chunk size allows. Short two."
	chunks := s.SplitText(text)

	require.Len(t, chunks, 3)
	assert.Equal(t, "Short one.", chunks[0].Content)
	assert.Equal(t, "This single sentence is far longer than the configured chunk size allows.", chunks[1].Content)
	assert.Greater(t, utf8.RuneCountInString(chunks[1].Content), 30,
		"an oversized sentence stays whole as its own chunk")
	assert.Equal(t, "Short two.", chunks[2].Content)
}

func TestSplitter_SplitText_DegenerateOverlap(t *testing.T) {
	// An overlap at or above the chunk size carries each closed chunk
	// forward wholesale. The run still terminates because every step
	// consumes one source sentence.
	s, err := NewSplitter(20, 40)
	require.NoError(t, err)

	chunks := s.SplitText("One two three. Four five six. Seven eight nine.")

	want := []string{
		"One two three.",
		"One two three. Four five six.",
		"One two three. Four five six. Seven eight nine.",
	}
	require.Len(t, chunks, len(want))
	for i, c := range chunks {
		assert.Equal(t, want[i], c.Content)
	}
}

func TestSplitter_Split_PageMetadata(t *testing.T) {
	s, err := NewSplitter(1000, 200)
	require.NoError(t, err)

	segments := []Segment{
		PageSegment(1, "Content from page one."),
		PageSegment(2, "Content from page two."),
		PageSegment(3, "Content from page three."),
	}
	chunks := s.Split(segments)

	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, fmt.Sprintf("chunk_%d", i), c.ID)
		assert.Equal(t, strconv.Itoa(i+1), c.Metadata[PageNumberKey])
	}

	// Chunk metadata must not alias the segment's map.
	chunks[0].Metadata[PageNumberKey] = "99"
	assert.Equal(t, "1", segments[0].Metadata[PageNumberKey])
}

func TestSplitter_Split_SequentialIDsAcrossPages(t *testing.T) {
	s, err := NewSplitter(25, 5)
	require.NoError(t, err)

	segments := []Segment{
		PageSegment(1, "Alpha sentence here. Beta sentence here."),
		PageSegment(2, "Gamma sentence here. Delta sentence here."),
	}
	chunks := s.Split(segments)

	// IDs keep counting across the page boundary instead of resetting.
	require.Len(t, chunks, 4)
	wantPages := []string{"1", "1", "2", "2"}
	for i, c := range chunks {
		assert.Equal(t, fmt.Sprintf("chunk_%d", i), c.ID)
		assert.Equal(t, wantPages[i], c.Metadata[PageNumberKey])
	}
}

func TestSplitter_Split_EmptyInput(t *testing.T) {
	s, err := NewSplitter(1000, 200)
	require.NoError(t, err)

	assert.Empty(t, s.SplitText(""))
	assert.Empty(t, s.SplitText("   \n  "))
	assert.Empty(t, s.Split(nil))
	assert.Empty(t, s.Split([]Segment{PageSegment(1, "")}))
}

// numberedSentences produces n distinct sentences of similar length.
func numberedSentences(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "Sentence number %d has a modest length. ", i)
	}
	return b.String()
}

// sentenceOverlap returns the longest n where the last n sentences of
// prev equal the first n sentences of next.
func sentenceOverlap(prev, next []string) int {
	limit := len(prev)
	if len(next) < limit {
		limit = len(next)
	}
	for n := limit; n > 0; n-- {
		match := true
		for i := 0; i < n; i++ {
			if prev[len(prev)-n+i] != next[i] {
				match = false
				break
			}
		}
		if match {
			return n
		}
	}
	return 0
}
