package document

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/docqd/internal/config"
)

func testService() *Service {
	return NewService(&config.IngestConfig{
		MaxUploadBytes:    1024,
		AllowedExtensions: []string{".pdf", ".txt", ".docx"},
	})
}

func TestService_Validate(t *testing.T) {
	svc := testService()

	tests := []struct {
		name     string
		filename string
		size     int64
		wantErr  string
	}{
		{name: "pdf accepted", filename: "report.pdf", size: 100},
		{name: "txt accepted", filename: "notes.txt", size: 100},
		{name: "docx accepted", filename: "contract.docx", size: 100},
		{name: "extension match is case-insensitive", filename: "REPORT.PDF", size: 100},
		{name: "size at the cap accepted", filename: "report.pdf", size: 1024},
		{
			name:     "disallowed extension",
			filename: "script.exe",
			size:     100,
			wantErr:  "invalid file type",
		},
		{
			name:     "no extension",
			filename: "README",
			size:     100,
			wantErr:  "invalid file type",
		},
		{
			name:     "only the last extension counts",
			filename: "archive.tar.gz",
			size:     100,
			wantErr:  "invalid file type",
		},
		{
			name:     "oversize rejected",
			filename: "report.pdf",
			size:     1025,
			wantErr:  "file too large",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Validate(tt.filename, tt.size)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation), "want a validation error, got %v", err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestService_Parse_Text(t *testing.T) {
	svc := testService()

	ext, err := svc.Parse("notes.txt", []byte("Plain text body."))
	require.NoError(t, err)
	assert.Equal(t, "Plain text body.", ext.Content)
	assert.False(t, ext.Paginated())
}

func TestService_Parse_TextInvalidUTF8(t *testing.T) {
	svc := testService()

	_, err := svc.Parse("notes.txt", []byte{0xff, 0xfe, 0xfd})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParsing))
	assert.Contains(t, err.Error(), "UTF-8")
}

func TestService_Parse_TextEmpty(t *testing.T) {
	// Empty extraction is not an error here; the ingest pipeline turns
	// zero chunks into a parsing failure.
	svc := testService()

	ext, err := svc.Parse("notes.txt", nil)
	require.NoError(t, err)
	assert.Empty(t, ext.Content)
}

func TestService_Parse_CorruptPDF(t *testing.T) {
	svc := testService()

	_, err := svc.Parse("broken.pdf", []byte("this is not a pdf"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParsing))
}

func TestService_Parse_UnknownExtension(t *testing.T) {
	svc := testService()

	_, err := svc.Parse("data.csv", []byte("a,b,c"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "no parser")
}
