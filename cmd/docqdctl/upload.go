package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

// uploadCmd uploads a document for indexing
var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a document for indexing",
	Long: `Upload a document to the docqd server for parsing, chunking, and indexing.

Supported formats depend on server configuration (PDF, DOCX, and text by default).

Examples:
  # Upload a PDF
  docqdctl upload report.pdf

  # Upload to a different server
  docqdctl upload --server http://localhost:9090 notes.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

// UploadResponse matches internal/http/types.go UploadResponse
type UploadResponse struct {
	DocumentID string    `json:"document_id"`
	Filename   string    `json:"filename"`
	SizeBytes  int64     `json:"size_bytes"`
	ChunkCount int       `json:"chunk_count"`
	UploadTime time.Time `json:"upload_time"`
}

// runUpload handles the upload command
func runUpload(cmd *cobra.Command, args []string) error {
	resp, err := uploadDocument(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("%s %s\n", labelStyle.Render("Document ID:"), valueStyle.Render(resp.DocumentID))
	fmt.Printf("%s %s\n", labelStyle.Render("Filename:   "), valueStyle.Render(resp.Filename))
	fmt.Printf("%s %s\n", labelStyle.Render("Size:       "), valueStyle.Render(formatSize(resp.SizeBytes)))
	fmt.Printf("%s %s\n", labelStyle.Render("Chunks:     "), valueStyle.Render(fmt.Sprintf("%d", resp.ChunkCount)))

	return nil
}

// uploadDocument sends the file as a multipart form to the server.
func uploadDocument(path string) (*UploadResponse, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	// Build multipart request body
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, fmt.Errorf("failed to write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/documents", serverURL)
	httpReq, err := http.NewRequest("POST", url, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	// Parsing and embedding large documents can take a while
	client := &http.Client{
		Timeout: 120 * time.Second,
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpError(resp)
	}

	var uploadResp UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploadResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &uploadResp, nil
}
