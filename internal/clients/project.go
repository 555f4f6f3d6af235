package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sprintlabs/orchestrator/internal/model"
)

// HTTPProjectClient calls the project service over HTTP.
type HTTPProjectClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPProjectClient constructs a project-service client.
func NewHTTPProjectClient(baseURL string, timeout time.Duration) *HTTPProjectClient {
	return &HTTPProjectClient{baseURL: baseURL, httpClient: newHTTPClient(timeout)}
}

// GetProjectDetails fetches the project's status and team size.
func (c *HTTPProjectClient) GetProjectDetails(ctx context.Context, projectID string) (ProjectDetails, error) {
	var out ProjectDetails
	url := fmt.Sprintf("%s/projects/%s", c.baseURL, projectID)
	if err := doJSON(ctx, c.httpClient, http.MethodGet, url, nil, &out); err != nil {
		return ProjectDetails{}, fmt.Errorf("clients: get project details: %w", err)
	}
	return out, nil
}

type teamAvailabilityResponse struct {
	Status    string            `json:"status"`
	Conflicts []model.Conflict  `json:"conflicts"`
}

// TeamAvailability fetches team capacity over [from, to).
func (c *HTTPProjectClient) TeamAvailability(ctx context.Context, projectID string, from, to time.Time) (model.TeamAvailability, error) {
	var resp teamAvailabilityResponse
	url := fmt.Sprintf("%s/projects/%s/team-availability?from=%s&to=%s",
		c.baseURL, projectID, from.Format(time.RFC3339), to.Format(time.RFC3339))
	if err := doJSON(ctx, c.httpClient, http.MethodGet, url, nil, &resp); err != nil {
		return model.TeamAvailability{}, fmt.Errorf("clients: get team availability: %w", err)
	}
	return model.TeamAvailability{Status: resp.Status, Conflicts: resp.Conflicts}, nil
}
