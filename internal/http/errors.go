package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqd/internal/answer"
	"github.com/fyrsmithlabs/docqd/internal/document"
	"github.com/fyrsmithlabs/docqd/internal/embeddings"
	"github.com/fyrsmithlabs/docqd/internal/ingest"
	"github.com/fyrsmithlabs/docqd/internal/llm"
	"github.com/fyrsmithlabs/docqd/internal/vectorstore"
)

// Error kinds reported in the error envelope.
const (
	kindFileValidation  = "file_validation"
	kindDocumentParsing = "document_parsing"
	kindEmbedding       = "embedding_generation"
	kindVectorStore     = "vector_store"
	kindLLM             = "llm"
	kindInvalidRequest  = "invalid_request"
	kindNotFound        = "not_found"
	kindInternal        = "internal"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// classifyError maps an error to its HTTP status and taxonomy kind.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, document.ErrValidation):
		return http.StatusBadRequest, kindFileValidation
	case errors.Is(err, answer.ErrInvalidQuery):
		return http.StatusBadRequest, kindInvalidRequest
	case errors.Is(err, document.ErrParsing):
		return http.StatusUnprocessableEntity, kindDocumentParsing
	case errors.Is(err, ingest.ErrNotFound):
		return http.StatusNotFound, kindNotFound
	case errors.Is(err, embeddings.ErrEmbeddingFailed):
		return http.StatusInternalServerError, kindEmbedding
	case errors.Is(err, vectorstore.ErrStoreFailed), errors.Is(err, vectorstore.ErrConnectionFailed):
		return http.StatusInternalServerError, kindVectorStore
	case errors.Is(err, llm.ErrGenerationFailed):
		return http.StatusInternalServerError, kindLLM
	default:
		return http.StatusInternalServerError, kindInternal
	}
}

// errorJSON writes the error envelope for a failed operation.
// Unclassified errors carry the fallback detail so internal messages
// do not leak to clients.
func (s *Server) errorJSON(c echo.Context, err error, fallback string) error {
	status, kind := classifyError(err)

	detail := err.Error()
	if kind == kindInternal {
		detail = fallback
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("kind", kind), zap.Error(err))
	} else {
		s.logger.Warn("request rejected", zap.String("kind", kind), zap.Error(err))
	}

	return c.JSON(status, ErrorResponse{Error: kind, Detail: detail})
}
