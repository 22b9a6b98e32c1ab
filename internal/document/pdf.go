package document

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pdfParser extracts text from PDF files page by page.
type pdfParser struct{}

var _ Parser = (*pdfParser)(nil)

func (p *pdfParser) Parse(data []byte) (ext *Extraction, err error) {
	// The pdf library panics on some malformed inputs instead of
	// returning an error.
	defer func() {
		if r := recover(); r != nil {
			ext = nil
			err = fmt.Errorf("%w: pdf extraction failed: %v", ErrParsing, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: pdf extraction failed: %v", ErrParsing, err)
	}

	total := reader.NumPage()
	var pages []Page
	for num := 1; num <= total; num++ {
		page := reader.Page(num)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: pdf extraction failed on page %d: %v", ErrParsing, num, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, Page{Number: num, Content: text})
	}

	return &Extraction{Pages: pages, TotalPages: total}, nil
}
