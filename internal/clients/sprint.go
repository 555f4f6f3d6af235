package clients

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sprintlabs/orchestrator/internal/model"
)

// HTTPSprintClient calls the sprint service over HTTP.
type HTTPSprintClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPSprintClient constructs a sprint-service client.
func NewHTTPSprintClient(baseURL string, timeout time.Duration) *HTTPSprintClient {
	return &HTTPSprintClient{baseURL: baseURL, httpClient: newHTTPClient(timeout)}
}

// ActiveSprint returns the project's current active sprint, or nil if none.
func (c *HTTPSprintClient) ActiveSprint(ctx context.Context, projectID string) (*model.ActiveSprint, error) {
	var out model.ActiveSprint
	url := fmt.Sprintf("%s/projects/%s/sprints/active", c.baseURL, projectID)
	err := doJSON(ctx, c.httpClient, http.MethodGet, url, nil, &out)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("clients: get active sprint: %w", err)
	}
	return &out, nil
}

type sprintCountResponse struct {
	Count int `json:"count"`
}

// Count returns the total number of sprints the project has had.
func (c *HTTPSprintClient) Count(ctx context.Context, projectID string) (int, error) {
	var resp sprintCountResponse
	url := fmt.Sprintf("%s/projects/%s/sprints/count", c.baseURL, projectID)
	if err := doJSON(ctx, c.httpClient, http.MethodGet, url, nil, &resp); err != nil {
		return 0, fmt.Errorf("clients: get sprint count: %w", err)
	}
	return resp.Count, nil
}

// CreateSprint asks the sprint service to create a new sprint.
func (c *HTTPSprintClient) CreateSprint(ctx context.Context, req SprintCreateRequest) (SprintCreateResult, error) {
	var out SprintCreateResult
	url := fmt.Sprintf("%s/sprints", c.baseURL)
	if err := doJSON(ctx, c.httpClient, http.MethodPost, url, req, &out); err != nil {
		return SprintCreateResult{}, fmt.Errorf("clients: create sprint: %w", err)
	}
	return out, nil
}

// CloseSprint closes the sprint identified by sprintID.
func (c *HTTPSprintClient) CloseSprint(ctx context.Context, sprintID string) error {
	url := fmt.Sprintf("%s/sprints/%s/close", c.baseURL, sprintID)
	if err := doJSON(ctx, c.httpClient, http.MethodPost, url, struct{}{}, nil); err != nil {
		return fmt.Errorf("clients: close sprint: %w", err)
	}
	return nil
}

type retrospectiveRequest struct {
	Summary string `json:"summary"`
}

// CreateRetrospective emits a retrospective for the closed sprint.
func (c *HTTPSprintClient) CreateRetrospective(ctx context.Context, sprintID string, summary string) error {
	url := fmt.Sprintf("%s/sprints/%s/retrospective", c.baseURL, sprintID)
	if err := doJSON(ctx, c.httpClient, http.MethodPost, url, retrospectiveRequest{Summary: summary}, nil); err != nil {
		return fmt.Errorf("clients: create retrospective: %w", err)
	}
	return nil
}
