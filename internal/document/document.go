package document

import "errors"

var (
	// ErrValidation marks uploads rejected before parsing: disallowed
	// extension or oversize payload.
	ErrValidation = errors.New("file validation failed")
	// ErrParsing marks files whose text could not be extracted.
	ErrParsing = errors.New("document parsing failed")
)

// Page is the extracted text of a single source page.
type Page struct {
	// Number is the 1-based position of the page in the source file.
	Number  int
	Content string
}

// Extraction is the text pulled out of one uploaded file.
type Extraction struct {
	// Pages holds per-page text for paginated formats, in page order.
	// Pages with no extractable text are skipped.
	Pages []Page
	// TotalPages counts source pages including skipped ones.
	TotalPages int
	// Content holds the full text for unpaginated formats.
	Content string
}

// Paginated reports whether the extraction carries page structure.
func (e *Extraction) Paginated() bool {
	return len(e.Pages) > 0
}
