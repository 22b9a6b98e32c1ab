package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	// query command flags
	queryDocumentID string
	queryTopK       int
)

func init() {
	queryCmd.Flags().StringVar(&queryDocumentID, "document", "", "Restrict the search to one document ID")
	queryCmd.Flags().IntVar(&queryTopK, "top-k", 0, "Number of chunks to retrieve (1-10, server default when unset)")
}

// queryCmd asks a question about the indexed documents
var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Ask a question about the indexed documents",
	Long: `Ask a question about the indexed documents. The server retrieves the most
relevant chunks and generates a grounded answer with source attributions.

Examples:
  # Ask across all documents
  docqdctl query "What was the quarterly revenue?"

  # Restrict to a single document
  docqdctl query --document 4f7a1c9e-1234-5678-9abc-def012345678 "What are the risks?"

  # Retrieve more context chunks
  docqdctl query --top-k 8 "Summarize the conclusions"`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

// QueryRequest matches internal/http/types.go QueryRequest
type QueryRequest struct {
	Query      string `json:"query"`
	DocumentID string `json:"document_id,omitempty"`
	TopK       *int   `json:"top_k,omitempty"`
}

// SourceChunk matches internal/http/types.go SourceChunk
type SourceChunk struct {
	Content    string  `json:"content"`
	Similarity float32 `json:"similarity"`
	ChunkID    string  `json:"chunk_id"`
	PageNumber *int    `json:"page_number"`
}

// QueryResponse matches internal/http/types.go QueryResponse
type QueryResponse struct {
	Answer      string        `json:"answer"`
	Sources     []SourceChunk `json:"sources"`
	QueryTimeMS int64         `json:"query_time_ms"`
	ModelUsed   string        `json:"model_used"`
	TokensUsed  int           `json:"tokens_used"`
}

// runQuery handles the query command
func runQuery(cmd *cobra.Command, args []string) error {
	req := QueryRequest{
		Query:      args[0],
		DocumentID: queryDocumentID,
	}
	// Only send top_k when the flag was set, so the server default applies
	// otherwise.
	if cmd.Flags().Changed("top-k") {
		req.TopK = &queryTopK
	}

	resp, err := sendQuery(req)
	if err != nil {
		return err
	}

	fmt.Println(sectionStyle.Render("Answer"))
	fmt.Println(valueStyle.Render(resp.Answer))

	if len(resp.Sources) > 0 {
		fmt.Println()
		fmt.Println(sectionStyle.Render(fmt.Sprintf("Sources (%d)", len(resp.Sources))))
		for i, src := range resp.Sources {
			ref := fmt.Sprintf("%s, similarity %.2f", src.ChunkID, src.Similarity)
			if src.PageNumber != nil {
				ref += fmt.Sprintf(", page %d", *src.PageNumber)
			}
			fmt.Printf("%s %s\n", labelStyle.Render(fmt.Sprintf("[%d]", i+1)), dimStyle.Render(ref))
			fmt.Printf("    %s\n", src.Content)
		}
	}

	fmt.Println()
	fmt.Println(dimStyle.Render(fmt.Sprintf("%s, %d tokens, %dms", resp.ModelUsed, resp.TokensUsed, resp.QueryTimeMS)))

	return nil
}

// sendQuery posts the question to the server and decodes the answer.
func sendQuery(req QueryRequest) (*QueryResponse, error) {
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/query", serverURL)
	httpReq, err := http.NewRequest("POST", url, bytes.NewReader(reqJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	// Retrieval plus answer generation can take tens of seconds
	client := &http.Client{
		Timeout: 60 * time.Second,
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpError(resp)
	}

	var queryResp QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&queryResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &queryResp, nil
}
