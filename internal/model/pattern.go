package model

// TrendDirection classifies the sign of a velocity regression slope.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// SimilarProject is one retained candidate from the Pattern Engine's
// similarity search (spec §4.3).
type SimilarProject struct {
	ProjectID             string   `json:"project_id"`
	SimilarityScore       float64  `json:"similarity_score"`
	TeamSize              int      `json:"team_size"`
	CompletionRate        float64  `json:"completion_rate"`
	AvgSprintDurationDays float64  `json:"avg_sprint_duration_days"`
	OptimalTaskCount      *int     `json:"optimal_task_count,omitempty"`
	KeySuccessFactors     []string `json:"key_success_factors,omitempty"`
}

// VelocityTrends is the result of the linear regression over recent sprint
// velocities for the current project.
type VelocityTrends struct {
	CurrentTeamVelocity float64        `json:"current_team_velocity"`
	HistoricalRange     [2]float64     `json:"historical_range"`
	TrendDirection      TrendDirection `json:"trend_direction"`
	Confidence          float64        `json:"confidence"`
	PatternNote         string         `json:"pattern_note"`
}

// SuccessIndicators aggregates retained-similar-project statistics into
// planning recommendations.
type SuccessIndicators struct {
	OptimalTasksPerSprint    int      `json:"optimal_tasks_per_sprint"`
	RecommendedSprintDuration int     `json:"recommended_sprint_duration"`
	SuccessProbability       float64  `json:"success_probability"`
	RiskFactors              []string `json:"risk_factors,omitempty"`
}

// PatternAnalysis is the Pattern Engine's derived, read-only output. It is
// owned by the Pattern Engine and handed to downstream components by value.
type PatternAnalysis struct {
	DataAvailable     bool              `json:"data_available"`
	SimilarProjects   []SimilarProject  `json:"similar_projects"`
	VelocityTrends    VelocityTrends    `json:"velocity_trends"`
	SuccessIndicators SuccessIndicators `json:"success_indicators"`
	// OverallConfidence is the weighted sum of contributing signals
	// (similarity sample size, velocity-trend confidence, success
	// probability), each gated by its own configured minimum.
	OverallConfidence float64 `json:"overall_confidence"`
}

// Empty returns the zero-value PatternAnalysis with DataAvailable=false,
// used when historical services degrade or no similar projects are found.
func Empty() PatternAnalysis {
	return PatternAnalysis{DataAvailable: false}
}
