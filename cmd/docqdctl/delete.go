package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

// deleteCmd removes a document from the index
var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a document from the index",
	Long: `Delete a document and all of its indexed chunks from the server.

Examples:
  # Delete by document ID
  docqdctl delete 4f7a1c9e-1234-5678-9abc-def012345678`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

// DeleteResponse matches internal/http/types.go DeleteResponse
type DeleteResponse struct {
	Message string `json:"message"`
}

// runDelete handles the delete command
func runDelete(cmd *cobra.Command, args []string) error {
	resp, err := deleteDocument(args[0])
	if err != nil {
		return err
	}

	fmt.Println(resp.Message)
	return nil
}

// deleteDocument removes the document with the given ID from the server.
func deleteDocument(id string) (*DeleteResponse, error) {
	url := fmt.Sprintf("%s/api/v1/documents/%s", serverURL, id)
	httpReq, err := http.NewRequest("DELETE", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	client := &http.Client{
		Timeout: 15 * time.Second,
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpError(resp)
	}

	var deleteResp DeleteResponse
	if err := json.NewDecoder(resp.Body).Decode(&deleteResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &deleteResp, nil
}
