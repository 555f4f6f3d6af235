// Package analyzer implements the Project Analyzer: fans out to the
// project, backlog and sprint collaborators and assembles a Project
// Analysis Snapshot (spec §4.1).
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sprintlabs/orchestrator/internal/apierr"
	"github.com/sprintlabs/orchestrator/internal/clients"
	"github.com/sprintlabs/orchestrator/internal/model"
)

// Analyzer builds a ProjectSnapshot from the collaborator services.
type Analyzer struct {
	project clients.ProjectClient
	backlog clients.BacklogClient
	sprint  clients.SprintClient
	logger  *slog.Logger
}

// New constructs an Analyzer.
func New(project clients.ProjectClient, backlog clients.BacklogClient, sprint clients.SprintClient, logger *slog.Logger) *Analyzer {
	return &Analyzer{project: project, backlog: backlog, sprint: sprint, logger: logger}
}

// Analyze fetches project, team availability, backlog and active-sprint
// state for the given planning window and assembles a snapshot. Any
// mandatory collaborator failure surfaces as apierr.UpstreamUnavailable
// (spec §4.1); callers map that to a 503 (an unknown project surfaces as
// apierr.NotFound, a 404).
func (a *Analyzer) Analyze(ctx context.Context, projectID string, sprintDurationWeeks int) (model.ProjectSnapshot, error) {
	details, err := a.project.GetProjectDetails(ctx, projectID)
	if err != nil {
		if errors.Is(err, clients.ErrNotFound) {
			return model.ProjectSnapshot{}, apierr.Wrap(apierr.NotFound, fmt.Sprintf("project %s not found", projectID), err)
		}
		return model.ProjectSnapshot{}, apierr.Wrap(apierr.UpstreamUnavailable, "project service unavailable", err)
	}

	from := time.Now().UTC().Truncate(24 * time.Hour)
	to := from.AddDate(0, 0, sprintDurationWeeks*7)
	availability, err := a.project.TeamAvailability(ctx, projectID, from, to)
	if err != nil {
		return model.ProjectSnapshot{}, apierr.Wrap(apierr.UpstreamUnavailable, "team availability unavailable", err)
	}

	backlog, err := a.backlog.Summary(ctx, projectID)
	if err != nil {
		return model.ProjectSnapshot{}, apierr.Wrap(apierr.UpstreamUnavailable, "backlog service unavailable", err)
	}

	active, err := a.sprint.ActiveSprint(ctx, projectID)
	if err != nil {
		return model.ProjectSnapshot{}, apierr.Wrap(apierr.UpstreamUnavailable, "sprint service unavailable", err)
	}

	count, err := a.sprint.Count(ctx, projectID)
	if err != nil {
		return model.ProjectSnapshot{}, apierr.Wrap(apierr.UpstreamUnavailable, "sprint service unavailable", err)
	}

	snapshot := model.ProjectSnapshot{
		ProjectID:           projectID,
		ProjectStatus:       details.ProjectStatus,
		TeamSize:            details.TeamSize,
		TeamAvailability:    availability,
		BacklogTasks:        backlog.BacklogTasks,
		UnassignedTasks:     backlog.UnassignedForSprintCount,
		ActiveSprintsCount:  count,
		CurrentActiveSprint: active,
		PatternAnalysis:     model.Empty(),
		DataQualityReport:   model.DataQualityReport{HistoricalDataAvailable: false},
	}
	snapshot.InsightsSummary = summarize(snapshot)

	if !snapshot.Valid() {
		return model.ProjectSnapshot{}, fmt.Errorf("analyzer: assembled snapshot for %s fails structural invariants", projectID)
	}
	return snapshot, nil
}

func summarize(s model.ProjectSnapshot) string {
	if s.CurrentActiveSprint != nil {
		return fmt.Sprintf("%s has an active sprint (%s)", s.ProjectID, s.CurrentActiveSprint.SprintID)
	}
	if s.UnassignedTasks > 0 {
		return fmt.Sprintf("%s has %d unassigned tasks and no active sprint", s.ProjectID, s.UnassignedTasks)
	}
	return fmt.Sprintf("%s has no pending work", s.ProjectID)
}
