package document

import (
	"fmt"
	"unicode/utf8"
)

// textParser takes plain-text files as-is after a UTF-8 check.
type textParser struct{}

var _ Parser = (*textParser)(nil)

func (p *textParser) Parse(data []byte) (*Extraction, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: text file is not valid UTF-8", ErrParsing)
	}
	return &Extraction{Content: string(data)}, nil
}
