package model

import (
	"time"

	"github.com/google/uuid"
)

// StrategyLifecycle is the state machine driven by the Strategy Evolver
// observing success_rate and contradictions (spec §4.12).
type StrategyLifecycle string

const (
	StrategyProposed   StrategyLifecycle = "PROPOSED"
	StrategyActive     StrategyLifecycle = "ACTIVE"
	StrategyDeprecated StrategyLifecycle = "DEPRECATED"
	StrategyRetired    StrategyLifecycle = "RETIRED"
)

// StrategyContent is the strategy's structured payload — a recommended
// adjustment and the conditions under which it applies. Kept as a typed
// struct (not a generic map) for the same reason Decision adjustments are
// typed: the Strategy Evolver and Decision Modifier both read specific
// fields, never walk an untyped bag.
type StrategyContent struct {
	AppliesToProjectStatus          string   `json:"applies_to_project_status"`
	RecommendedTaskAdjustmentPercent float64 `json:"recommended_task_adjustment_percent"`
	RecommendedDurationWeeks        int      `json:"recommended_duration_weeks"`
	Conditions                      []string `json:"conditions,omitempty"`
}

// Strategy is a learned rule-of-thumb derived from clustered episodes
// (spec §3 semantic memory).
type Strategy struct {
	KnowledgeID           uuid.UUID         `json:"knowledge_id"`
	KnowledgeType          string            `json:"knowledge_type"`
	Content                StrategyContent   `json:"content"`
	Description            string            `json:"description"`
	Confidence             float64           `json:"confidence"`
	SupportingEpisodes     []uuid.UUID       `json:"supporting_episodes"`
	ContradictingEpisodes  []uuid.UUID       `json:"contradicting_episodes"`
	TimesApplied           int               `json:"times_applied"`
	SuccessCount           int               `json:"success_count"`
	FailureCount           int               `json:"failure_count"`
	IsActive               bool              `json:"is_active"`
	Lifecycle              StrategyLifecycle `json:"lifecycle"`
	CreatedAt              time.Time         `json:"created_at"`
	CreatedBy              string            `json:"created_by"`
	LastValidated          *time.Time        `json:"last_validated,omitempty"`
	LastApplied            *time.Time        `json:"last_applied,omitempty"`
}

// SuccessRate returns success_count / times_applied, or (0, false) when
// times_applied is zero (spec §3 invariant).
func (s Strategy) SuccessRate() (float64, bool) {
	if s.TimesApplied <= 0 {
		return 0, false
	}
	return float64(s.SuccessCount) / float64(s.TimesApplied), true
}

// NewStrategy constructs a strategy in the PROPOSED lifecycle state.
func NewStrategy(id uuid.UUID, content StrategyContent, description string, createdBy string, createdAt time.Time) Strategy {
	return Strategy{
		KnowledgeID:  id,
		KnowledgeType: "strategy",
		Content:      content,
		Description:  description,
		Confidence:   0,
		IsActive:     false,
		Lifecycle:    StrategyProposed,
		CreatedAt:    createdAt,
		CreatedBy:    createdBy,
	}
}
