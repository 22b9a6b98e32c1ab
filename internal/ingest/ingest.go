// Package ingest runs the document upload pipeline: validate the
// file, extract its text, optionally redact secrets, chunk, embed,
// and index the chunks. Ingested documents are tracked in an
// in-memory registry that backs listing, lookup, deletion, and the
// health endpoint's document count.
package ingest

import (
	"errors"
	"time"
)

// ErrNotFound marks lookups of documents the registry does not hold.
var ErrNotFound = errors.New("document not found")

// Upload is one file submitted for ingestion.
type Upload struct {
	Filename string
	Data     []byte
}

// Record describes one ingested document.
type Record struct {
	// ID is the generated UUID the document is addressed by.
	ID string

	// Filename is the name the file was uploaded under.
	Filename string

	// SizeBytes is the raw upload size.
	SizeBytes int64

	// Pages counts source pages for paginated formats, zero otherwise.
	Pages int

	// ChunkCount is the number of chunks indexed for the document.
	ChunkCount int

	// UploadTime is when ingestion completed.
	UploadTime time.Time
}
