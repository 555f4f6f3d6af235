package decide

import (
	"testing"

	"github.com/sprintlabs/orchestrator/internal/config"
	"github.com/sprintlabs/orchestrator/internal/model"
)

func testConfig() config.Config {
	return config.Config{
		SimilarityFloor:                   0.5,
		TaskAdjustmentDifferenceThreshold: 2,
		TaskAdjustmentMinConfidence:       0.6,
		VelocityTrendMin:                  0.5,
		MaxTasksPerSprint:                 20,
	}
}

func optimalTaskCount(n int) *int { return &n }

func TestProposeNoDataAvailableReturnsEmpty(t *testing.T) {
	m := NewModifier(testConfig())
	ruleBased := model.RuleBasedDecision{TasksToAssign: 5}
	pattern := model.PatternAnalysis{DataAvailable: false}

	out := m.Propose(model.ProjectSnapshot{}, ruleBased, pattern, Toggles{TaskCountAdjustment: true, SprintDurationAdjustment: true})

	if !out.Empty() {
		t.Fatalf("expected empty adjustments when pattern data unavailable, got %+v", out)
	}
}

func TestProposeTaskCountAdjustmentWhenMaterial(t *testing.T) {
	m := NewModifier(testConfig())
	ruleBased := model.RuleBasedDecision{TasksToAssign: 5}
	pattern := model.PatternAnalysis{
		DataAvailable: true,
		SimilarProjects: []model.SimilarProject{
			{SimilarityScore: 0.8, OptimalTaskCount: optimalTaskCount(10)},
			{SimilarityScore: 0.9, OptimalTaskCount: optimalTaskCount(12)},
		},
	}

	out := m.Propose(model.ProjectSnapshot{}, ruleBased, pattern, Toggles{TaskCountAdjustment: true})

	if out.TaskCountModification == nil {
		t.Fatalf("expected a task count adjustment")
	}
	if out.TaskCountModification.Applied != 11 {
		t.Fatalf("applied = %d, want 11 (rounded average)", out.TaskCountModification.Applied)
	}
}

func TestProposeTaskCountAdjustmentSkippedBelowDifferenceThreshold(t *testing.T) {
	m := NewModifier(testConfig())
	ruleBased := model.RuleBasedDecision{TasksToAssign: 10}
	pattern := model.PatternAnalysis{
		DataAvailable: true,
		SimilarProjects: []model.SimilarProject{
			{SimilarityScore: 0.9, OptimalTaskCount: optimalTaskCount(11)},
		},
	}

	out := m.Propose(model.ProjectSnapshot{}, ruleBased, pattern, Toggles{TaskCountAdjustment: true})

	if out.TaskCountModification != nil {
		t.Fatalf("expected no adjustment when difference is within threshold")
	}
}

func TestProposeTaskCountAdjustmentSkippedBelowMinConfidence(t *testing.T) {
	m := NewModifier(testConfig())
	ruleBased := model.RuleBasedDecision{TasksToAssign: 5}
	pattern := model.PatternAnalysis{
		DataAvailable: true,
		SimilarProjects: []model.SimilarProject{
			{SimilarityScore: 0.55, OptimalTaskCount: optimalTaskCount(12)},
		},
	}

	out := m.Propose(model.ProjectSnapshot{}, ruleBased, pattern, Toggles{TaskCountAdjustment: true})

	if out.TaskCountModification != nil {
		t.Fatalf("expected no adjustment when confidence is below min threshold")
	}
}

func TestProposeTaskCountAdjustmentSkippedBelowMinSimilarProjects(t *testing.T) {
	cfg := testConfig()
	cfg.MinSimilarProjects = 3
	m := NewModifier(cfg)
	ruleBased := model.RuleBasedDecision{TasksToAssign: 5}
	pattern := model.PatternAnalysis{
		DataAvailable: true,
		SimilarProjects: []model.SimilarProject{
			{SimilarityScore: 0.9, OptimalTaskCount: optimalTaskCount(12)},
			{SimilarityScore: 0.8, OptimalTaskCount: optimalTaskCount(13)},
		},
	}

	out := m.Propose(model.ProjectSnapshot{}, ruleBased, pattern, Toggles{TaskCountAdjustment: true})

	if out.TaskCountModification != nil {
		t.Fatalf("expected no adjustment with fewer than min_similar_projects relevant projects")
	}
}

func TestProposeTaskCountAdjustmentIgnoredWhenToggleOff(t *testing.T) {
	m := NewModifier(testConfig())
	ruleBased := model.RuleBasedDecision{TasksToAssign: 5}
	pattern := model.PatternAnalysis{
		DataAvailable: true,
		SimilarProjects: []model.SimilarProject{
			{SimilarityScore: 0.9, OptimalTaskCount: optimalTaskCount(12)},
		},
	}

	out := m.Propose(model.ProjectSnapshot{}, ruleBased, pattern, Toggles{TaskCountAdjustment: false})

	if out.TaskCountModification != nil {
		t.Fatalf("expected no adjustment when TaskCountAdjustment toggle is off")
	}
}

func TestProposeTaskCountAdjustmentClampedToMax(t *testing.T) {
	cfg := testConfig()
	cfg.MaxTasksPerSprint = 8
	m := NewModifier(cfg)
	ruleBased := model.RuleBasedDecision{TasksToAssign: 1}
	pattern := model.PatternAnalysis{
		DataAvailable: true,
		SimilarProjects: []model.SimilarProject{
			{SimilarityScore: 0.9, OptimalTaskCount: optimalTaskCount(20)},
		},
	}

	out := m.Propose(model.ProjectSnapshot{}, ruleBased, pattern, Toggles{TaskCountAdjustment: true})

	if out.TaskCountModification == nil {
		t.Fatalf("expected an adjustment")
	}
	if out.TaskCountModification.Applied != 8 {
		t.Fatalf("applied = %d, want clamped to 8", out.TaskCountModification.Applied)
	}
	if out.TaskCountModification.Intelligence != 20 {
		t.Fatalf("intelligence value should remain unclamped at 20, got %d", out.TaskCountModification.Intelligence)
	}
}

func TestProposeSprintDurationAdjustment(t *testing.T) {
	m := NewModifier(testConfig())
	ruleBased := model.RuleBasedDecision{SprintDurationWeeks: 2}
	pattern := model.PatternAnalysis{
		DataAvailable:  true,
		VelocityTrends: model.VelocityTrends{Confidence: 0.8},
		SuccessIndicators: model.SuccessIndicators{
			RecommendedSprintDuration: 4,
		},
	}

	out := m.Propose(model.ProjectSnapshot{}, ruleBased, pattern, Toggles{SprintDurationAdjustment: true})

	if out.SprintDurationModification == nil {
		t.Fatalf("expected a sprint duration adjustment")
	}
	if out.SprintDurationModification.Applied != 4 {
		t.Fatalf("applied = %d, want 4", out.SprintDurationModification.Applied)
	}
}

func TestProposeSprintDurationAdjustmentSkippedWithinOneWeek(t *testing.T) {
	m := NewModifier(testConfig())
	ruleBased := model.RuleBasedDecision{SprintDurationWeeks: 2}
	pattern := model.PatternAnalysis{
		DataAvailable:  true,
		VelocityTrends: model.VelocityTrends{Confidence: 0.8},
		SuccessIndicators: model.SuccessIndicators{
			RecommendedSprintDuration: 3,
		},
	}

	out := m.Propose(model.ProjectSnapshot{}, ruleBased, pattern, Toggles{SprintDurationAdjustment: true})

	if out.SprintDurationModification != nil {
		t.Fatalf("expected no adjustment when recommended duration is within one week")
	}
}

func TestProposeActiveSprintRecommendations(t *testing.T) {
	tests := []struct {
		name             string
		burndownDelta    float64
		forecastVelocity float64
		wantKind         model.ActiveSprintRecommendationKind
		wantNil          bool
	}{
		{"far behind triggers early termination", -6, 10, model.EarlyTermination, false},
		{"behind triggers scope reduction", -2, 10, model.ScopeReduction, false},
		{"ahead beyond variance triggers risk flag", 2, 10, model.RiskFlag, false},
		{"within expected variance yields nothing", 0.5, 10, "", true},
		{"zero forecast velocity yields nothing", -6, 0, "", true},
	}

	m := NewModifier(testConfig())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			snapshot := model.ProjectSnapshot{
				CurrentActiveSprint: &model.ActiveSprint{
					BurndownDelta:    tc.burndownDelta,
					ForecastVelocity: tc.forecastVelocity,
				},
			}
			pattern := model.PatternAnalysis{DataAvailable: true}

			out := m.Propose(snapshot, model.RuleBasedDecision{}, pattern, Toggles{})

			if tc.wantNil {
				if len(out.ActiveSprintRecommendations) != 0 {
					t.Fatalf("expected no recommendations, got %+v", out.ActiveSprintRecommendations)
				}
				return
			}
			if len(out.ActiveSprintRecommendations) != 1 {
				t.Fatalf("expected 1 recommendation, got %d", len(out.ActiveSprintRecommendations))
			}
			if out.ActiveSprintRecommendations[0].Kind != tc.wantKind {
				t.Fatalf("kind = %q, want %q", out.ActiveSprintRecommendations[0].Kind, tc.wantKind)
			}
		})
	}
}
