package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HTTPBacklogClient calls the backlog service over HTTP.
type HTTPBacklogClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPBacklogClient constructs a backlog-service client.
func NewHTTPBacklogClient(baseURL string, timeout time.Duration) *HTTPBacklogClient {
	return &HTTPBacklogClient{baseURL: baseURL, httpClient: newHTTPClient(timeout)}
}

// Summary fetches backlog counts, including unassigned_for_sprint_count
// (status='unassigned' AND sprint_id IS NULL, per spec §6.2).
func (c *HTTPBacklogClient) Summary(ctx context.Context, projectID string) (BacklogSummary, error) {
	var out BacklogSummary
	url := fmt.Sprintf("%s/projects/%s/backlog/summary", c.baseURL, projectID)
	if err := doJSON(ctx, c.httpClient, http.MethodGet, url, nil, &out); err != nil {
		return BacklogSummary{}, fmt.Errorf("clients: get backlog summary: %w", err)
	}
	return out, nil
}
