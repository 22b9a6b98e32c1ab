package document

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/docqd/internal/config"
)

// Parser extracts text from one upload format.
type Parser interface {
	Parse(data []byte) (*Extraction, error)
}

// Service validates uploads and routes them to the parser for their
// file type.
type Service struct {
	maxBytes    int64
	allowed     map[string]bool
	allowedList string
	parsers     map[string]Parser
}

// NewService builds a Service from the ingest configuration. The
// extension allowlist is matched case-insensitively.
func NewService(cfg *config.IngestConfig) *Service {
	allowed := make(map[string]bool, len(cfg.AllowedExtensions))
	list := make([]string, 0, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		ext = strings.ToLower(ext)
		allowed[ext] = true
		list = append(list, ext)
	}
	sort.Strings(list)

	return &Service{
		maxBytes:    cfg.MaxUploadBytes,
		allowed:     allowed,
		allowedList: strings.Join(list, ", "),
		parsers: map[string]Parser{
			".pdf":  &pdfParser{},
			".docx": &docxParser{},
			".txt":  &textParser{},
		},
	}
}

// Validate checks the filename extension and declared size before any
// bytes are parsed.
func (s *Service) Validate(filename string, size int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !s.allowed[ext] {
		return fmt.Errorf("%w: invalid file type %q (allowed: %s)", ErrValidation, ext, s.allowedList)
	}
	if size > s.maxBytes {
		return fmt.Errorf("%w: file too large: %d bytes (max: %d bytes)", ErrValidation, size, s.maxBytes)
	}
	return nil
}

// Parse extracts text from the file using the parser registered for its
// extension.
func (s *Service) Parse(filename string, data []byte) (*Extraction, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	parser, ok := s.parsers[ext]
	if !ok {
		return nil, fmt.Errorf("%w: no parser for %q", ErrValidation, ext)
	}
	return parser.Parse(data)
}
