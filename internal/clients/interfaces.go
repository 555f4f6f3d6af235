// Package clients implements the thin HTTP collaborator clients the
// Project Analyzer, Orchestrator Coordinator and Cron Controller depend on:
// project, backlog, sprint, chronicle and scheduler. Each is a single
// interface with one HTTP implementation, modeled on the embedding
// provider's request/response-struct + http.Client pattern.
package clients

import (
	"context"
	"time"

	"github.com/sprintlabs/orchestrator/internal/model"
)

// ProjectDetails is the collaborator's view of a project.
type ProjectDetails struct {
	ProjectID     string `json:"project_id"`
	ProjectStatus string `json:"project_status"`
	TeamSize      int    `json:"team_size"`
}

// BacklogSummary is the backlog service's aggregate for a project.
type BacklogSummary struct {
	BacklogTasks             int `json:"backlog_tasks"`
	UnassignedForSprintCount int `json:"unassigned_for_sprint_count"`
}

// SprintCreateRequest is the payload sent to create a new sprint.
type SprintCreateRequest struct {
	ProjectID           string   `json:"project_id"`
	TasksToAssign       int      `json:"tasks_to_assign"`
	SprintDurationWeeks int      `json:"sprint_duration_weeks"`
	TaskIDs             []string `json:"task_ids,omitempty"`
}

// SprintCreateResult identifies the sprint the collaborator created.
type SprintCreateResult struct {
	SprintID string `json:"sprint_id"`
	Name     string `json:"name"`
}

// ProjectClient fetches project details.
type ProjectClient interface {
	GetProjectDetails(ctx context.Context, projectID string) (ProjectDetails, error)
	TeamAvailability(ctx context.Context, projectID string, from, to time.Time) (model.TeamAvailability, error)
}

// BacklogClient fetches backlog aggregates.
type BacklogClient interface {
	Summary(ctx context.Context, projectID string) (BacklogSummary, error)
}

// SprintClient is the sprint-service contract: active sprint lookup,
// sprint count, creation, closure and retrospective emission.
type SprintClient interface {
	ActiveSprint(ctx context.Context, projectID string) (*model.ActiveSprint, error)
	Count(ctx context.Context, projectID string) (int, error)
	CreateSprint(ctx context.Context, req SprintCreateRequest) (SprintCreateResult, error)
	CloseSprint(ctx context.Context, sprintID string) error
	CreateRetrospective(ctx context.Context, sprintID string, summary string) error
}

// ChronicleClient records orchestration history in the chronicle service.
// It is a thin, best-effort sink: callers log and continue on failure
// rather than failing the orchestration (mirrors the Decision Auditor's
// failure policy, spec §4.6).
type ChronicleClient interface {
	RecordDecision(ctx context.Context, projectID string, decision model.Decision) error
}

// SchedulerClient manages Kubernetes CronJob-backed scheduled jobs by
// canonical name (spec §4.11).
type SchedulerClient interface {
	Exists(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, manifest []byte) error
	Delete(ctx context.Context, name string) error
}
