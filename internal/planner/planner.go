// Package planner implements the Rule-Based Planner: deterministic
// baseline decisioning from a Project Analysis Snapshot (spec §4.2).
package planner

import (
	"fmt"
	"strings"

	"github.com/sprintlabs/orchestrator/internal/model"
)

// Options mirrors the orchestration request's planning options (spec
// §6.1 POST /orchestrate/project/{project_id}).
type Options struct {
	CreateSprintIfNeeded bool
	AssignTasks          bool
	CreateCronjob        bool
	SprintDurationWeeks  int
	MaxTasksPerSprint    int
}

// Plan produces the deterministic baseline decision for a snapshot.
// Cronjob creation/deletion is recorded as intent here (CronjobCreated /
// CronjobDeleted flags); the Cron Controller performs the actual
// scheduler calls driven by these flags (spec §4.11).
func Plan(snapshot model.ProjectSnapshot, opts Options) model.RuleBasedDecision {
	applied, reasoning, warnings := plan(snapshot, opts)
	applied.Warnings = warnings
	return model.RuleBasedDecision{
		TasksToAssign:       applied.TasksToAssign,
		SprintDurationWeeks: applied.SprintDurationWeeks,
		Reasoning:           reasoning,
	}
}

// PlanApplied returns the full AppliedDecision baseline (used directly
// when intelligence is disabled or degrades, per spec §4.10 step 4).
func PlanApplied(snapshot model.ProjectSnapshot, opts Options) model.AppliedDecision {
	applied, _, warnings := plan(snapshot, opts)
	applied.Warnings = warnings
	return applied
}

func plan(snapshot model.ProjectSnapshot, opts Options) (model.AppliedDecision, []string, []string) {
	var applied model.AppliedDecision
	var reasoning []string

	active := snapshot.CurrentActiveSprint
	switch {
	case active != nil && active.AllTasksComplete:
		applied.SprintClosureTriggered = true
		id := active.SprintID
		applied.SprintIDToClose = &id
		applied.CreateNewSprint = false
		reasoning = append(reasoning, fmt.Sprintf("active sprint %s has all tasks complete, triggering closure", active.SprintID))

	case active != nil:
		applied.CreateNewSprint = false
		if opts.CreateCronjob {
			applied.CronjobCreated = true
			reasoning = append(reasoning, fmt.Sprintf("active sprint %s in progress, ensuring self-heal cronjob", active.SprintID))
		} else {
			reasoning = append(reasoning, fmt.Sprintf("active sprint %s in progress, no action needed", active.SprintID))
		}

	case snapshot.UnassignedTasks > 0 && opts.CreateSprintIfNeeded:
		applied.CreateNewSprint = true
		tasks := snapshot.UnassignedTasks
		if opts.MaxTasksPerSprint > 0 && tasks > opts.MaxTasksPerSprint {
			tasks = opts.MaxTasksPerSprint
		}
		applied.TasksToAssign = tasks
		applied.SprintDurationWeeks = opts.SprintDurationWeeks
		if opts.CreateCronjob {
			applied.CronjobCreated = true
		}
		reasoning = append(reasoning, fmt.Sprintf("no active sprint, %d unassigned tasks, creating new sprint with %d tasks over %d weeks",
			snapshot.UnassignedTasks, tasks, opts.SprintDurationWeeks))

	default:
		reasoning = append(reasoning, "no active sprint and no unassigned tasks requiring action")
	}

	warnings := conflictWarnings(snapshot, opts)
	return applied, reasoning, warnings
}

// conflictWarnings appends a warning for every team-availability conflict
// intersecting the planning window; planning is never blocked by them
// (spec §4.2).
func conflictWarnings(snapshot model.ProjectSnapshot, opts Options) []string {
	if len(snapshot.TeamAvailability.Conflicts) == 0 {
		return nil
	}
	warnings := make([]string, 0, len(snapshot.TeamAvailability.Conflicts))
	for _, c := range snapshot.TeamAvailability.Conflicts {
		warnings = append(warnings, fmt.Sprintf("planning window intersects %s: %s (%s)",
			strings.ToLower(c.Type), c.Name, c.Date.Format("2006-01-02")))
	}
	return warnings
}
