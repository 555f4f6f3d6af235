package model

// DecisionSource records whether a decision's applied fields came straight
// from the Rule-Based Planner or were overridden by gated adjustments.
type DecisionSource string

const (
	DecisionSourceRuleBasedOnly        DecisionSource = "rule_based_only"
	DecisionSourceIntelligenceEnhanced DecisionSource = "intelligence_enhanced"
)

// RuleBasedDecision is the Rule-Based Planner's deterministic baseline.
type RuleBasedDecision struct {
	TasksToAssign       int      `json:"tasks_to_assign"`
	SprintDurationWeeks int      `json:"sprint_duration_weeks"`
	Reasoning           []string `json:"reasoning"`
}

// Adjustment is a single candidate modification the Decision Modifier
// proposes and the Confidence Gate filters. T is the field's own type (int
// for task count, int for duration weeks) so each adjustment kind stays a
// distinct, typed struct rather than an untyped map entry.
type Adjustment[T any] struct {
	Original       T       `json:"original"`
	Intelligence   T       `json:"intelligence"`
	Applied        T       `json:"applied"`
	Confidence     float64 `json:"confidence"`
	EvidenceSource string  `json:"evidence_source"`
	Rationale      string  `json:"rationale"`
}

// ActiveSprintRecommendationKind classifies an in-flight-sprint
// intervention recommendation.
type ActiveSprintRecommendationKind string

const (
	ScopeReduction   ActiveSprintRecommendationKind = "SCOPE_REDUCTION"
	RiskFlag         ActiveSprintRecommendationKind = "RISK_FLAG"
	EarlyTermination ActiveSprintRecommendationKind = "EARLY_TERMINATION"
)

// ActiveSprintRecommendation carries the classification plus evidence for
// an active-sprint intervention candidate.
type ActiveSprintRecommendation struct {
	Kind           ActiveSprintRecommendationKind `json:"kind"`
	TasksToMove    []string                       `json:"tasks_to_move,omitempty"`
	Confidence     float64                        `json:"confidence"`
	EvidenceSource string                         `json:"evidence_source"`
	Rationale      string                         `json:"rationale"`
}

// IntelligenceAdjustments holds the gated, applied adjustments for one
// orchestration. Each field is nil/empty when not proposed or not approved.
type IntelligenceAdjustments struct {
	TaskCountModification      *Adjustment[int]             `json:"task_count_modification,omitempty"`
	SprintDurationModification *Adjustment[int]              `json:"sprint_duration_modification,omitempty"`
	ActiveSprintRecommendations []ActiveSprintRecommendation `json:"active_sprint_recommendations,omitempty"`
}

// Empty reports whether no adjustment survived the Confidence Gate.
func (a IntelligenceAdjustments) Empty() bool {
	return a.TaskCountModification == nil &&
		a.SprintDurationModification == nil &&
		len(a.ActiveSprintRecommendations) == 0
}

// Count returns the number of approved adjustments, used to populate
// IntelligenceMetadata.ModificationsApplied.
func (a IntelligenceAdjustments) Count() int {
	n := len(a.ActiveSprintRecommendations)
	if a.TaskCountModification != nil {
		n++
	}
	if a.SprintDurationModification != nil {
		n++
	}
	return n
}

// AppliedDecision is the final, orchestration-visible outcome — the
// fields that actually drive collaborator calls (sprint create/close,
// cronjob apply/delete).
type AppliedDecision struct {
	CreateNewSprint        bool     `json:"create_new_sprint"`
	TasksToAssign          int      `json:"tasks_to_assign"`
	SprintDurationWeeks    int      `json:"sprint_duration_weeks"`
	SprintClosureTriggered bool     `json:"sprint_closure_triggered"`
	SprintIDToClose        *string  `json:"sprint_id_to_close,omitempty"`
	CronjobCreated         bool     `json:"cronjob_created"`
	CronjobDeleted         bool     `json:"cronjob_deleted"`
	SprintName             *string  `json:"sprint_name,omitempty"`
	Warnings               []string `json:"warnings"`
}

// ConfidenceScores records the gate's aggregate verdict.
type ConfidenceScores struct {
	OverallDecisionConfidence float64 `json:"overall_decision_confidence"`
	IntelligenceThresholdMet  bool    `json:"intelligence_threshold_met"`
	MinimumThreshold          float64 `json:"minimum_threshold"`
}

// IntelligenceMetadata is recorded regardless of whether any adjustment
// was ultimately approved (spec §4.5).
type IntelligenceMetadata struct {
	DecisionMode             string  `json:"decision_mode"`
	ModificationsApplied     int     `json:"modifications_applied"`
	FallbackAvailable        bool    `json:"fallback_available"`
	SimilarProjectsAnalyzed  int     `json:"similar_projects_analyzed"`
	HistoricalDataQuality    string  `json:"historical_data_quality"`
	PredictionConfidence     float64 `json:"prediction_confidence"`
}

// Decision is the artefact produced per orchestration request.
type Decision struct {
	RuleBased               RuleBasedDecision       `json:"rule_based"`
	IntelligenceAdjustments IntelligenceAdjustments `json:"intelligence_adjustments"`
	Applied                 AppliedDecision         `json:"applied"`
	ConfidenceScores        ConfidenceScores        `json:"confidence_scores"`
	DecisionSource          DecisionSource          `json:"decision_source"`
	IntelligenceMetadata    IntelligenceMetadata    `json:"intelligence_metadata"`
}
