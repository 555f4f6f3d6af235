package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Perception is the snapshot subset an Episode carries forward — enough to
// reconstruct why a decision was made without re-embedding the full
// snapshot.
type Perception struct {
	ProjectID                string `json:"project_id"`
	ProjectStatus            string `json:"project_status"`
	TeamSize                 int    `json:"team_size"`
	BacklogTasks             int    `json:"backlog_tasks"`
	UnassignedTasks          int    `json:"unassigned_tasks"`
	ActiveSprintsCount       int    `json:"active_sprints_count"`
	TeamAvailabilityStatus   string `json:"team_availability_status"`
}

// Reasoning captures the pattern-engine output and pipeline state that led
// to the recorded action.
type Reasoning struct {
	PatternAnalysis       PatternAnalysis `json:"pattern_analysis"`
	DecisionPipelineState string          `json:"decision_pipeline_state"`
	Headline              string          `json:"headline"`
}

// Outcome is the observed sprint result back-filled after the fact.
type Outcome struct {
	SprintCompleted bool    `json:"sprint_completed"`
	CompletionRate  float64 `json:"completion_rate"`
	ActualVelocity  float64 `json:"actual_velocity"`
	Notes           string  `json:"notes"`
}

// Episode is the primary persisted entity: one perception→reasoning→
// action→outcome record for a project decision (spec §3).
type Episode struct {
	EpisodeID         uuid.UUID       `json:"episode_id"`
	ProjectID         string          `json:"project_id"`
	Timestamp         time.Time       `json:"timestamp"`
	Perception        Perception      `json:"perception"`
	Reasoning         Reasoning       `json:"reasoning"`
	Action            AppliedDecision `json:"action"`
	Outcome           *Outcome        `json:"outcome,omitempty"`
	OutcomeQuality    *float64        `json:"outcome_quality,omitempty"`
	OutcomeRecordedAt *time.Time      `json:"outcome_recorded_at,omitempty"`
	Embedding         *pgvector.Vector `json:"-"`
	AgentVersion      string          `json:"agent_version"`
	ControlMode       string          `json:"control_mode"`
	DecisionSource    DecisionSource  `json:"decision_source"`
	SprintID          *string         `json:"sprint_id,omitempty"`
	ExternalNoteID    *string         `json:"external_note_id,omitempty"`

	// Similarity is populated on results returned from a similarity query
	// (1 - cosine distance); it is not a stored column.
	Similarity float64 `json:"similarity,omitempty"`
}

// EligibleForBackfill reports whether this episode still needs an observed
// outcome recorded (spec §3: non-null sprint_id and no outcome yet).
func (e Episode) EligibleForBackfill() bool {
	return e.SprintID != nil && e.Outcome == nil
}
