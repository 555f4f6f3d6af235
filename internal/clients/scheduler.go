package clients

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// HTTPSchedulerClient manages scheduled jobs through a scheduler-service
// facade fronting the Kubernetes CronJob API.
type HTTPSchedulerClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPSchedulerClient constructs a scheduler-service client.
func NewHTTPSchedulerClient(baseURL string, timeout time.Duration) *HTTPSchedulerClient {
	return &HTTPSchedulerClient{baseURL: baseURL, httpClient: newHTTPClient(timeout)}
}

// Exists checks whether a scheduled job with the given canonical name exists.
func (c *HTTPSchedulerClient) Exists(ctx context.Context, name string) (bool, error) {
	url := fmt.Sprintf("%s/cronjobs/%s", c.baseURL, name)
	err := doJSON(ctx, c.httpClient, http.MethodGet, url, nil, nil)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("clients: check cronjob existence: %w", err)
	}
	return true, nil
}

// Create applies a rendered CronJob manifest.
func (c *HTTPSchedulerClient) Create(ctx context.Context, manifest []byte) error {
	url := fmt.Sprintf("%s/cronjobs", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(manifest))
	if err != nil {
		return fmt.Errorf("clients: create cronjob request: %w", err)
	}
	req.Header.Set("Content-Type", "application/yaml")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("clients: create cronjob: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("clients: create cronjob: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Delete removes the scheduled job by canonical name.
func (c *HTTPSchedulerClient) Delete(ctx context.Context, name string) error {
	url := fmt.Sprintf("%s/cronjobs/%s", c.baseURL, name)
	if err := doJSON(ctx, c.httpClient, http.MethodDelete, url, nil, nil); err != nil {
		return fmt.Errorf("clients: delete cronjob: %w", err)
	}
	return nil
}
