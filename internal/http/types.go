package http

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// UploadResponse is the response body for POST /api/v1/documents.
type UploadResponse struct {
	DocumentID string    `json:"document_id"`
	Filename   string    `json:"filename"`
	SizeBytes  int64     `json:"size_bytes"`
	ChunkCount int       `json:"chunk_count"`
	UploadTime time.Time `json:"upload_time"`
}

// QueryRequest is the request body for POST /api/v1/query.
type QueryRequest struct {
	Query      string `json:"query"`
	DocumentID string `json:"document_id,omitempty"`
	TopK       *int   `json:"top_k,omitempty"`
}

// Validate checks the request constraints: a trimmed query of 3 to
// 500 characters and, when present, top_k in [1, 10].
func (r *QueryRequest) Validate() error {
	r.Query = strings.TrimSpace(r.Query)
	if r.Query == "" {
		return errors.New("query cannot be empty")
	}
	if n := utf8.RuneCountInString(r.Query); n < 3 || n > 500 {
		return fmt.Errorf("query must be between 3 and 500 characters, got %d", n)
	}
	if r.TopK != nil && (*r.TopK < 1 || *r.TopK > 10) {
		return fmt.Errorf("top_k must be between 1 and 10, got %d", *r.TopK)
	}
	return nil
}

// SourceChunk is one retrieved chunk in a query response. Content is
// truncated to a preview; page_number is null for unpaginated sources.
type SourceChunk struct {
	Content    string  `json:"content"`
	Similarity float32 `json:"similarity"`
	ChunkID    string  `json:"chunk_id"`
	PageNumber *int    `json:"page_number"`
}

// QueryResponse is the response body for POST /api/v1/query.
type QueryResponse struct {
	Answer      string        `json:"answer"`
	Sources     []SourceChunk `json:"sources"`
	QueryTimeMS int64         `json:"query_time_ms"`
	ModelUsed   string        `json:"model_used"`
	TokensUsed  int           `json:"tokens_used"`
}

// DocumentInfo describes one ingested document in list and get
// responses.
type DocumentInfo struct {
	DocumentID string    `json:"document_id"`
	Filename   string    `json:"filename"`
	SizeBytes  int64     `json:"size_bytes"`
	Pages      int       `json:"pages,omitempty"`
	ChunkCount int       `json:"chunk_count"`
	UploadTime time.Time `json:"upload_time"`
}

// DocumentListResponse is the response body for GET /api/v1/documents.
type DocumentListResponse struct {
	Documents []DocumentInfo `json:"documents"`
	Total     int            `json:"total"`
}

// DeleteResponse is the response body for DELETE /api/v1/documents/:id.
type DeleteResponse struct {
	Message string `json:"message"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status          string `json:"status"`
	DocumentsStored int    `json:"documents_stored"`
	ChunksStored    int    `json:"chunks_stored"`
}
