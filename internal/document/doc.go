// Package document validates uploaded files and extracts their text.
//
// Uploads are checked against an extension allowlist and a size cap
// before any bytes are inspected. Extraction is per format: PDF text is
// pulled page by page with 1-based page numbers, DOCX paragraphs are
// joined by blank lines, and plain text is taken as-is after a UTF-8
// check. Validation failures and extraction failures are distinct error
// kinds so the API layer can map them to different status codes.
package document
