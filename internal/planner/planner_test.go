package planner

import (
	"testing"
	"time"

	"github.com/sprintlabs/orchestrator/internal/model"
)

func baseOptions() Options {
	return Options{
		CreateSprintIfNeeded: true,
		AssignTasks:          true,
		CreateCronjob:         true,
		SprintDurationWeeks:  2,
		MaxTasksPerSprint:    10,
	}
}

func TestPlanActiveSprintComplete(t *testing.T) {
	snapshot := model.ProjectSnapshot{
		ProjectID:          "proj-1",
		ActiveSprintsCount: 1,
		CurrentActiveSprint: &model.ActiveSprint{
			SprintID:         "sprint-9",
			AllTasksComplete: true,
		},
	}

	applied := PlanApplied(snapshot, baseOptions())

	if !applied.SprintClosureTriggered {
		t.Fatalf("expected sprint closure to be triggered")
	}
	if applied.SprintIDToClose == nil || *applied.SprintIDToClose != "sprint-9" {
		t.Fatalf("expected sprint_id_to_close sprint-9, got %v", applied.SprintIDToClose)
	}
	if applied.CreateNewSprint {
		t.Fatalf("expected create_new_sprint false when closing")
	}
}

func TestPlanActiveSprintInProgress(t *testing.T) {
	tests := []struct {
		name          string
		createCronjob bool
		wantCronjob   bool
	}{
		{"cronjob requested", true, true},
		{"cronjob not requested", false, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := baseOptions()
			opts.CreateCronjob = tc.createCronjob

			snapshot := model.ProjectSnapshot{
				ActiveSprintsCount: 1,
				CurrentActiveSprint: &model.ActiveSprint{
					SprintID:         "sprint-5",
					AllTasksComplete: false,
				},
			}

			applied := PlanApplied(snapshot, opts)

			if applied.CreateNewSprint {
				t.Fatalf("expected no new sprint while one is active")
			}
			if applied.CronjobCreated != tc.wantCronjob {
				t.Fatalf("cronjob_created = %v, want %v", applied.CronjobCreated, tc.wantCronjob)
			}
		})
	}
}

func TestPlanNewSprintCapsAtMaxTasksPerSprint(t *testing.T) {
	opts := baseOptions()
	opts.MaxTasksPerSprint = 5

	snapshot := model.ProjectSnapshot{
		UnassignedTasks: 12,
	}

	decision := Plan(snapshot, opts)

	if decision.TasksToAssign != 5 {
		t.Fatalf("tasks_to_assign = %d, want capped at 5", decision.TasksToAssign)
	}
	if decision.SprintDurationWeeks != opts.SprintDurationWeeks {
		t.Fatalf("sprint_duration_weeks = %d, want %d", decision.SprintDurationWeeks, opts.SprintDurationWeeks)
	}
	if len(decision.Reasoning) == 0 {
		t.Fatalf("expected reasoning to be populated")
	}
}

func TestPlanNewSprintUncappedWhenUnderLimit(t *testing.T) {
	opts := baseOptions()
	opts.MaxTasksPerSprint = 20

	snapshot := model.ProjectSnapshot{
		UnassignedTasks: 7,
	}

	decision := Plan(snapshot, opts)

	if decision.TasksToAssign != 7 {
		t.Fatalf("tasks_to_assign = %d, want 7 (uncapped)", decision.TasksToAssign)
	}
}

func TestPlanNewSprintSkippedWhenNotRequested(t *testing.T) {
	opts := baseOptions()
	opts.CreateSprintIfNeeded = false

	snapshot := model.ProjectSnapshot{
		UnassignedTasks: 7,
	}

	applied := PlanApplied(snapshot, opts)

	if applied.CreateNewSprint {
		t.Fatalf("expected no new sprint when CreateSprintIfNeeded is false")
	}
}

func TestPlanNoActionNeeded(t *testing.T) {
	snapshot := model.ProjectSnapshot{
		UnassignedTasks: 0,
	}

	applied := PlanApplied(snapshot, baseOptions())

	if applied.CreateNewSprint || applied.SprintClosureTriggered || applied.CronjobCreated {
		t.Fatalf("expected a no-op decision, got %+v", applied)
	}
}

func TestPlanConflictWarnings(t *testing.T) {
	date := time.Date(2026, 12, 25, 0, 0, 0, 0, time.UTC)
	snapshot := model.ProjectSnapshot{
		UnassignedTasks: 0,
		TeamAvailability: model.TeamAvailability{
			Conflicts: []model.Conflict{
				{Type: "HOLIDAY", Date: date, Name: "Christmas"},
			},
		},
	}

	applied := PlanApplied(snapshot, baseOptions())

	if len(applied.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d: %v", len(applied.Warnings), applied.Warnings)
	}
	want := "planning window intersects holiday: Christmas (2026-12-25)"
	if applied.Warnings[0] != want {
		t.Fatalf("warning = %q, want %q", applied.Warnings[0], want)
	}
}

func TestPlanNoConflictsNoWarnings(t *testing.T) {
	snapshot := model.ProjectSnapshot{UnassignedTasks: 0}

	applied := PlanApplied(snapshot, baseOptions())

	if applied.Warnings != nil {
		t.Fatalf("expected nil warnings, got %v", applied.Warnings)
	}
}
