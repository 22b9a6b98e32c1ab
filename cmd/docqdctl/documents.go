package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// documentsCmd lists indexed documents or shows one
var documentsCmd = &cobra.Command{
	Use:   "documents [id]",
	Short: "List indexed documents or show one",
	Long: `List the documents indexed on the server, or show details for a single
document by ID.

Examples:
  # List all documents
  docqdctl documents

  # Show one document
  docqdctl documents 4f7a1c9e-1234-5678-9abc-def012345678`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDocuments,
}

// DocumentInfo matches internal/http/types.go DocumentInfo
type DocumentInfo struct {
	DocumentID string    `json:"document_id"`
	Filename   string    `json:"filename"`
	SizeBytes  int64     `json:"size_bytes"`
	Pages      int       `json:"pages,omitempty"`
	ChunkCount int       `json:"chunk_count"`
	UploadTime time.Time `json:"upload_time"`
}

// DocumentListResponse matches internal/http/types.go DocumentListResponse
type DocumentListResponse struct {
	Documents []DocumentInfo `json:"documents"`
	Total     int            `json:"total"`
}

// runDocuments handles the documents command
func runDocuments(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		doc, err := fetchDocument(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("%s %s\n", labelStyle.Render("Document ID:"), valueStyle.Render(doc.DocumentID))
		fmt.Printf("%s %s\n", labelStyle.Render("Filename:   "), valueStyle.Render(doc.Filename))
		fmt.Printf("%s %s\n", labelStyle.Render("Size:       "), valueStyle.Render(formatSize(doc.SizeBytes)))
		if doc.Pages > 0 {
			fmt.Printf("%s %s\n", labelStyle.Render("Pages:      "), valueStyle.Render(fmt.Sprintf("%d", doc.Pages)))
		}
		fmt.Printf("%s %s\n", labelStyle.Render("Chunks:     "), valueStyle.Render(fmt.Sprintf("%d", doc.ChunkCount)))
		fmt.Printf("%s %s\n", labelStyle.Render("Uploaded:   "), valueStyle.Render(doc.UploadTime.Local().Format("2006-01-02 15:04:05")))
		return nil
	}

	list, err := fetchDocuments()
	if err != nil {
		return err
	}

	// Human-readable table output
	if list.Total == 0 {
		fmt.Println("No documents indexed")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFILENAME\tSIZE\tCHUNKS\tUPLOADED")
	for _, doc := range list.Documents {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			doc.DocumentID,
			truncate(doc.Filename, 40),
			formatSize(doc.SizeBytes),
			doc.ChunkCount,
			doc.UploadTime.Local().Format("2006-01-02 15:04"),
		)
	}
	w.Flush()

	return nil
}

// fetchDocuments retrieves the document list from the server.
func fetchDocuments() (*DocumentListResponse, error) {
	url := fmt.Sprintf("%s/api/v1/documents", serverURL)

	client := &http.Client{
		Timeout: 15 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpError(resp)
	}

	var listResp DocumentListResponse
	if err := json.NewDecoder(resp.Body).Decode(&listResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &listResp, nil
}

// fetchDocument retrieves a single document's metadata by ID.
func fetchDocument(id string) (*DocumentInfo, error) {
	url := fmt.Sprintf("%s/api/v1/documents/%s", serverURL, id)

	client := &http.Client{
		Timeout: 15 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpError(resp)
	}

	var doc DocumentInfo
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &doc, nil
}
