package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

// healthCmd checks server health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check docqd server health",
	Long: `Check the health status of the docqd HTTP server and report how many
documents and chunks are indexed.

Examples:
  # Check health
  docqdctl health

  # Check health on a different server
  docqdctl health --server http://localhost:9090`,
	RunE: runHealth,
}

// HealthResponse matches internal/http/types.go HealthResponse
type HealthResponse struct {
	Status          string `json:"status"`
	DocumentsStored int    `json:"documents_stored"`
	ChunksStored    int    `json:"chunks_stored"`
}

// runHealth handles the health command
func runHealth(cmd *cobra.Command, args []string) error {
	health, err := fetchHealth()
	if err != nil {
		return err
	}

	status := healthyStyle.Render(health.Status)
	if health.Status != "healthy" {
		status = unhealthyStyle.Render(health.Status)
	}

	fmt.Printf("%s %s\n", labelStyle.Render("Status:   "), status)
	fmt.Printf("%s %s\n", labelStyle.Render("Documents:"), valueStyle.Render(fmt.Sprintf("%d", health.DocumentsStored)))
	fmt.Printf("%s %s\n", labelStyle.Render("Chunks:   "), valueStyle.Render(fmt.Sprintf("%d", health.ChunksStored)))
	fmt.Printf("%s %s\n", labelStyle.Render("Server:   "), valueStyle.Render(serverURL))

	return nil
}

// fetchHealth retrieves the health report from the server.
func fetchHealth() (*HealthResponse, error) {
	url := fmt.Sprintf("%s/health", serverURL)

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpError(resp)
	}

	var healthResp HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&healthResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &healthResp, nil
}
