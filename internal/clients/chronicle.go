package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sprintlabs/orchestrator/internal/model"
)

// HTTPChronicleClient records decisions in the chronicle (history) service.
type HTTPChronicleClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPChronicleClient constructs a chronicle-service client.
func NewHTTPChronicleClient(baseURL string, timeout time.Duration) *HTTPChronicleClient {
	return &HTTPChronicleClient{baseURL: baseURL, httpClient: newHTTPClient(timeout)}
}

type chronicleEntry struct {
	ProjectID string          `json:"project_id"`
	Decision  model.Decision  `json:"decision"`
}

// RecordDecision posts the final decision to the chronicle service.
func (c *HTTPChronicleClient) RecordDecision(ctx context.Context, projectID string, decision model.Decision) error {
	url := fmt.Sprintf("%s/chronicle/entries", c.baseURL)
	entry := chronicleEntry{ProjectID: projectID, Decision: decision}
	if err := doJSON(ctx, c.httpClient, http.MethodPost, url, entry, nil); err != nil {
		return fmt.Errorf("clients: record chronicle entry: %w", err)
	}
	return nil
}
