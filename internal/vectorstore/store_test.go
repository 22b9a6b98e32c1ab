package vectorstore_test

import (
	"testing"

	"github.com/fyrsmithlabs/docqd/internal/vectorstore"
	"github.com/stretchr/testify/assert"
)

// Both backends must satisfy the Store interface.
var (
	_ vectorstore.Store = (*vectorstore.ChromemStore)(nil)
	_ vectorstore.Store = (*vectorstore.QdrantStore)(nil)
)

func TestValidateCollectionName(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantError bool
	}{
		{
			name:      "default collection",
			input:     "docqd_documents",
			wantError: false,
		},
		{
			name:      "short name",
			input:     "docs",
			wantError: false,
		},
		{
			name:      "digits and underscores",
			input:     "docs_v2",
			wantError: false,
		},
		{
			name:      "empty name",
			input:     "",
			wantError: true,
		},
		{
			name:      "uppercase letters",
			input:     "Docqd_Documents",
			wantError: true,
		},
		{
			name:      "hyphen",
			input:     "docqd-documents",
			wantError: true,
		},
		{
			name:      "spaces",
			input:     "docqd documents",
			wantError: true,
		},
		{
			name:      "path traversal attempt",
			input:     "../documents",
			wantError: true,
		},
		{
			name:      "too long",
			input:     "a123456789012345678901234567890123456789012345678901234567890123456789",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := vectorstore.ValidateCollectionName(tt.input)
			if tt.wantError {
				assert.ErrorIs(t, err, vectorstore.ErrInvalidCollectionName)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
