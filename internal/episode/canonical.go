// Package episode canonicalises an Episode into the stable text the
// Embedding Client embeds (spec §4.9). Canonicalise is a pure function:
// the same Episode must produce byte-identical text, so embedding becomes
// a pure function of that text.
package episode

import (
	"fmt"
	"strings"

	"github.com/sprintlabs/orchestrator/internal/model"
)

// Canonicalise produces the deterministic multi-line text representation
// of an episode used as embedding input.
func Canonicalise(ep model.Episode) string {
	var b strings.Builder

	fmt.Fprintf(&b, "project_id: %s\n", ep.Perception.ProjectID)
	fmt.Fprintf(&b, "project_status: %s\n", ep.Perception.ProjectStatus)
	fmt.Fprintf(&b, "team_size: %d\n", ep.Perception.TeamSize)
	fmt.Fprintf(&b, "backlog_tasks: %d\n", ep.Perception.BacklogTasks)
	fmt.Fprintf(&b, "unassigned_tasks: %d\n", ep.Perception.UnassignedTasks)
	fmt.Fprintf(&b, "active_sprints_count: %d\n", ep.Perception.ActiveSprintsCount)
	fmt.Fprintf(&b, "team_availability_status: %s\n", ep.Perception.TeamAvailabilityStatus)

	fmt.Fprintf(&b, "reasoning: %s\n", ep.Reasoning.Headline)

	action := ep.Action
	fmt.Fprintf(&b, "action: create_new_sprint=%t tasks_to_assign=%d sprint_duration_weeks=%d\n",
		action.CreateNewSprint, action.TasksToAssign, action.SprintDurationWeeks)
	fmt.Fprintf(&b, "action_closure: sprint_closure_triggered=%t cronjob_created=%t cronjob_deleted=%t\n",
		action.SprintClosureTriggered, action.CronjobCreated, action.CronjobDeleted)

	fmt.Fprintf(&b, "decision_source: %s\n", ep.DecisionSource)
	fmt.Fprintf(&b, "control_mode: %s\n", ep.ControlMode)

	return b.String()
}
