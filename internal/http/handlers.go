package http

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqd/internal/answer"
	"github.com/fyrsmithlabs/docqd/internal/events"
	"github.com/fyrsmithlabs/docqd/internal/ingest"
)

// sourcePreviewLimit caps the chunk text echoed back in query
// responses, in characters.
const sourcePreviewLimit = 200

// handleUpload ingests one uploaded file: validate, parse, redact,
// chunk, embed, and index.
func (s *Server) handleUpload(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		s.logger.Warn("upload without file field", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:  kindInvalidRequest,
			Detail: `multipart form field "file" is required`,
		})
	}

	src, err := fileHeader.Open()
	if err != nil {
		return s.errorJSON(c, err, "upload failed")
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return s.errorJSON(c, err, "upload failed")
	}

	record, err := s.ingest.Ingest(c.Request().Context(), ingest.Upload{
		Filename: fileHeader.Filename,
		Data:     data,
	})
	if err != nil {
		return s.errorJSON(c, err, "upload failed")
	}

	return c.JSON(http.StatusOK, UploadResponse{
		DocumentID: record.ID,
		Filename:   record.Filename,
		SizeBytes:  record.SizeBytes,
		ChunkCount: record.ChunkCount,
		UploadTime: record.UploadTime,
	})
}

// handleQuery answers a question against the indexed documents.
func (s *Server) handleQuery(c echo.Context) error {
	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid query request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:  kindInvalidRequest,
			Detail: "invalid request body",
		})
	}
	if err := req.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:  kindInvalidRequest,
			Detail: err.Error(),
		})
	}

	opts := answer.QueryOptions{DocumentID: req.DocumentID}
	if req.TopK != nil {
		opts.TopK = *req.TopK
	}

	start := time.Now()
	result, err := s.answers.Query(c.Request().Context(), req.Query, opts)
	if err != nil {
		return s.errorJSON(c, err, "query failed")
	}
	elapsed := time.Since(start)

	sources := make([]SourceChunk, len(result.Sources))
	for i, source := range result.Sources {
		sources[i] = SourceChunk{
			Content:    truncateContent(source.Content),
			Similarity: source.Similarity,
			ChunkID:    source.ChunkID,
			PageNumber: pageNumber(source.Page),
		}
	}

	s.events.QueryAnswered(c.Request().Context(), events.QueryAnswered{
		Mode:        string(result.Mode),
		SourceCount: len(result.Sources),
		TokensUsed:  result.TokensUsed,
		Cached:      result.Cached,
		DurationMS:  elapsed.Milliseconds(),
		Timestamp:   time.Now().UTC(),
	})

	return c.JSON(http.StatusOK, QueryResponse{
		Answer:      result.Answer,
		Sources:     sources,
		QueryTimeMS: elapsed.Milliseconds(),
		ModelUsed:   result.ModelUsed,
		TokensUsed:  result.TokensUsed,
	})
}

// handleListDocuments returns every ingested document.
func (s *Server) handleListDocuments(c echo.Context) error {
	records := s.ingest.List()
	documents := make([]DocumentInfo, len(records))
	for i, record := range records {
		documents[i] = toDocumentInfo(record)
	}
	return c.JSON(http.StatusOK, DocumentListResponse{
		Documents: documents,
		Total:     len(documents),
	})
}

// handleGetDocument returns one ingested document by ID.
func (s *Server) handleGetDocument(c echo.Context) error {
	record, err := s.ingest.Get(c.Param("id"))
	if err != nil {
		return s.errorJSON(c, err, "lookup failed")
	}
	return c.JSON(http.StatusOK, toDocumentInfo(record))
}

// handleDeleteDocument removes a document and its indexed chunks.
func (s *Server) handleDeleteDocument(c echo.Context) error {
	documentID := c.Param("id")
	if err := s.ingest.Delete(c.Request().Context(), documentID); err != nil {
		return s.errorJSON(c, err, "delete failed")
	}
	return c.JSON(http.StatusOK, DeleteResponse{
		Message: fmt.Sprintf("Document %s deleted successfully", documentID),
	})
}

// handleHealth reports service liveness and stored document counts.
// The status is "unhealthy" when the vector store cannot be reached,
// still served with 200 so probes can read the body.
func (s *Server) handleHealth(c echo.Context) error {
	chunks, err := s.ingest.ChunkCount(c.Request().Context())
	if err != nil {
		s.logger.Error("health check failed", zap.Error(err))
		return c.JSON(http.StatusOK, HealthResponse{Status: "unhealthy"})
	}
	return c.JSON(http.StatusOK, HealthResponse{
		Status:          "healthy",
		DocumentsStored: s.ingest.Count(),
		ChunksStored:    chunks,
	})
}

func toDocumentInfo(record ingest.Record) DocumentInfo {
	return DocumentInfo{
		DocumentID: record.ID,
		Filename:   record.Filename,
		SizeBytes:  record.SizeBytes,
		Pages:      record.Pages,
		ChunkCount: record.ChunkCount,
		UploadTime: record.UploadTime,
	}
}

// truncateContent cuts chunk text at the preview limit, counted in
// characters, and marks the cut with an ellipsis.
func truncateContent(content string) string {
	runes := []rune(content)
	if len(runes) <= sourcePreviewLimit {
		return content
	}
	return string(runes[:sourcePreviewLimit]) + "..."
}

// pageNumber parses the page metadata carried on a source, nil when
// the source has none.
func pageNumber(page string) *int {
	if page == "" {
		return nil
	}
	n, err := strconv.Atoi(page)
	if err != nil {
		return nil
	}
	return &n
}
