// Package decide implements the Decision Modifier and the Confidence
// Gate (spec §4.4, §4.5): candidate adjustments derived from pattern
// analysis, filtered by configured confidence thresholds before they can
// override the rule-based baseline.
package decide

import (
	"math"

	"github.com/sprintlabs/orchestrator/internal/config"
	"github.com/sprintlabs/orchestrator/internal/model"
)

// Modifier is the Decision Modifier.
type Modifier struct {
	cfg config.Config
}

// NewModifier constructs a Decision Modifier.
func NewModifier(cfg config.Config) *Modifier {
	return &Modifier{cfg: cfg}
}

// Toggles controls which adjustment categories Propose is allowed to
// consider; a per-project decision-mode override (spec §6.1
// POST .../decision-mode) can disable either independently of the other.
type Toggles struct {
	TaskCountAdjustment     bool
	SprintDurationAdjustment bool
}

// Propose builds candidate adjustments from the snapshot, rule-based
// decision and pattern analysis. Returns an empty IntelligenceAdjustments
// when pattern_analysis carries no data or no candidate clears its own
// per-check gate (spec §4.4).
func (m *Modifier) Propose(snapshot model.ProjectSnapshot, ruleBased model.RuleBasedDecision, pattern model.PatternAnalysis, toggles Toggles) model.IntelligenceAdjustments {
	var out model.IntelligenceAdjustments

	if !pattern.DataAvailable {
		return out
	}

	if toggles.TaskCountAdjustment {
		if adj := m.taskCountAdjustment(ruleBased, pattern); adj != nil {
			out.TaskCountModification = adj
		}
	}
	if toggles.SprintDurationAdjustment {
		if adj := m.sprintDurationAdjustment(ruleBased, pattern); adj != nil {
			out.SprintDurationModification = adj
		}
	}
	if snapshot.CurrentActiveSprint != nil {
		out.ActiveSprintRecommendations = m.activeSprintRecommendations(*snapshot.CurrentActiveSprint)
	}

	return out
}

// taskCountAdjustment proposes a new task count when at least
// min_similar_projects relevant projects are available, the candidate
// differs from the rule-based baseline by more than
// task_adjustment_difference_threshold, and the contributing projects'
// average confidence exceeds task_adjustment_min_confidence. The applied
// value is clamped to [1, max_tasks_per_sprint].
func (m *Modifier) taskCountAdjustment(ruleBased model.RuleBasedDecision, pattern model.PatternAnalysis) *model.Adjustment[int] {
	relevant := relevantProjects(pattern.SimilarProjects, m.cfg.SimilarityFloor)
	if len(relevant) < m.cfg.MinSimilarProjects {
		return nil
	}
	avgOptimal, avgConfidence, ok := averageOptimalTasks(relevant)
	if !ok {
		return nil
	}

	diff := math.Abs(float64(ruleBased.TasksToAssign) - avgOptimal)
	if diff <= m.cfg.TaskAdjustmentDifferenceThreshold {
		return nil
	}
	if avgConfidence <= m.cfg.TaskAdjustmentMinConfidence {
		return nil
	}

	applied := clampInt(int(math.Round(avgOptimal)), 1, m.cfg.MaxTasksPerSprint)
	return &model.Adjustment[int]{
		Original:       ruleBased.TasksToAssign,
		Intelligence:   int(math.Round(avgOptimal)),
		Applied:        applied,
		Confidence:     avgConfidence,
		EvidenceSource: "similar_projects",
		Rationale:      "rule-based task count differs materially from historical optimum",
	}
}

// sprintDurationAdjustment proposes a new duration when the recommended
// median differs from the requested duration by more than one week and
// the velocity-trend confidence exceeds velocity_trend_min.
func (m *Modifier) sprintDurationAdjustment(ruleBased model.RuleBasedDecision, pattern model.PatternAnalysis) *model.Adjustment[int] {
	if math.Abs(pattern.VelocityTrends.Confidence) <= m.cfg.VelocityTrendMin {
		return nil
	}
	recommended := pattern.SuccessIndicators.RecommendedSprintDuration
	if recommended <= 0 {
		return nil
	}
	if abs(recommended-ruleBased.SprintDurationWeeks) <= 1 {
		return nil
	}

	return &model.Adjustment[int]{
		Original:       ruleBased.SprintDurationWeeks,
		Intelligence:   recommended,
		Applied:        recommended,
		Confidence:     math.Abs(pattern.VelocityTrends.Confidence),
		EvidenceSource: "velocity_trend",
		Rationale:      "historical sprint duration differs from requested duration",
	}
}

// activeSprintRecommendations classifies an in-flight sprint's burndown
// delta against its forecast velocity into the spec's three kinds.
func (m *Modifier) activeSprintRecommendations(active model.ActiveSprint) []model.ActiveSprintRecommendation {
	if active.ForecastVelocity <= 0 {
		return nil
	}
	ratio := active.BurndownDelta / active.ForecastVelocity
	confidence := math.Min(1, math.Abs(ratio))

	switch {
	case ratio <= -0.5:
		return []model.ActiveSprintRecommendation{{
			Kind:           model.EarlyTermination,
			Confidence:     confidence,
			EvidenceSource: "burndown_delta",
			Rationale:      "sprint is far behind forecast velocity",
		}}
	case ratio < -0.15:
		return []model.ActiveSprintRecommendation{{
			Kind:           model.ScopeReduction,
			Confidence:     confidence,
			EvidenceSource: "burndown_delta",
			Rationale:      "sprint is behind forecast velocity, recommend reducing scope",
		}}
	case ratio > 0.15:
		return []model.ActiveSprintRecommendation{{
			Kind:           model.RiskFlag,
			Confidence:     confidence,
			EvidenceSource: "burndown_delta",
			Rationale:      "sprint is ahead of forecast velocity beyond expected variance",
		}}
	default:
		return nil
	}
}

func relevantProjects(similar []model.SimilarProject, similarityFloor float64) []model.SimilarProject {
	var out []model.SimilarProject
	for _, sp := range similar {
		if sp.SimilarityScore > similarityFloor && sp.OptimalTaskCount != nil {
			out = append(out, sp)
		}
	}
	return out
}

func averageOptimalTasks(projects []model.SimilarProject) (avgOptimal, avgConfidence float64, ok bool) {
	if len(projects) == 0 {
		return 0, 0, false
	}
	var sumOptimal, sumConfidence float64
	for _, sp := range projects {
		sumOptimal += float64(*sp.OptimalTaskCount)
		sumConfidence += sp.SimilarityScore
	}
	n := float64(len(projects))
	return sumOptimal / n, sumConfidence / n, true
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if hi > 0 && v > hi {
		return hi
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
