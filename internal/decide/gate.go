package decide

import (
	"github.com/sprintlabs/orchestrator/internal/model"
)

// Gate is the Confidence Gate: filters candidate adjustments in two
// stages — per-adjustment confidence, then aggregate decision confidence
// — before they are allowed to overwrite the rule-based baseline (spec
// §4.5). The confidence_threshold is always passed in explicitly by the
// caller; this routine never substitutes a hardcoded default for it.
type Gate struct{}

// NewGate constructs a Confidence Gate.
func NewGate() *Gate { return &Gate{} }

// Verdict is the outcome of filtering one candidate adjustment.
type Verdict struct {
	Field           string
	Confidence      float64
	Threshold       float64
	Approved        bool
	RejectionReason string
}

// Apply filters candidates against confidenceThreshold (per-adjustment)
// and minimumThreshold (aggregate), producing the final Decision. When no
// candidate survives, decision_source is rule_based_only and
// intelligence_adjustments is empty, per spec invariant.
func (g *Gate) Apply(ruleBased model.RuleBasedDecision, baseline model.AppliedDecision, candidates model.IntelligenceAdjustments, confidenceThreshold, minimumThreshold float64) (model.Decision, []Verdict) {
	var verdicts []Verdict
	approved := model.IntelligenceAdjustments{}

	if candidates.TaskCountModification != nil {
		v := g.filter("task_count", candidates.TaskCountModification.Confidence, confidenceThreshold)
		verdicts = append(verdicts, v)
		if v.Approved {
			approved.TaskCountModification = candidates.TaskCountModification
		}
	}
	if candidates.SprintDurationModification != nil {
		v := g.filter("sprint_duration", candidates.SprintDurationModification.Confidence, confidenceThreshold)
		verdicts = append(verdicts, v)
		if v.Approved {
			approved.SprintDurationModification = candidates.SprintDurationModification
		}
	}
	for _, rec := range candidates.ActiveSprintRecommendations {
		v := g.filter(string(rec.Kind), rec.Confidence, confidenceThreshold)
		verdicts = append(verdicts, v)
		if v.Approved {
			approved.ActiveSprintRecommendations = append(approved.ActiveSprintRecommendations, rec)
		}
	}

	overall := aggregateConfidence(approved)
	thresholdMet := overall >= minimumThreshold && !approved.Empty()

	applied := baseline
	source := model.DecisionSourceRuleBasedOnly
	if thresholdMet {
		source = model.DecisionSourceIntelligenceEnhanced
		if approved.TaskCountModification != nil {
			applied.TasksToAssign = approved.TaskCountModification.Applied
		}
		if approved.SprintDurationModification != nil {
			applied.SprintDurationWeeks = approved.SprintDurationModification.Applied
		}
	} else {
		approved = model.IntelligenceAdjustments{}
	}

	decision := model.Decision{
		RuleBased:               ruleBased,
		IntelligenceAdjustments: approved,
		Applied:                 applied,
		DecisionSource:          source,
		ConfidenceScores: model.ConfidenceScores{
			OverallDecisionConfidence: overall,
			IntelligenceThresholdMet:  thresholdMet,
			MinimumThreshold:          minimumThreshold,
		},
		IntelligenceMetadata: model.IntelligenceMetadata{
			ModificationsApplied: approved.Count(),
		},
	}
	return decision, verdicts
}

func (g *Gate) filter(field string, confidence, threshold float64) Verdict {
	if confidence >= threshold {
		return Verdict{Field: field, Confidence: confidence, Threshold: threshold, Approved: true}
	}
	return Verdict{Field: field, Confidence: confidence, Threshold: threshold, Approved: false, RejectionReason: "below confidence_threshold"}
}

// aggregateConfidence is the mean confidence across approved adjustments;
// zero when none were approved.
func aggregateConfidence(approved model.IntelligenceAdjustments) float64 {
	var sum float64
	var n int
	if approved.TaskCountModification != nil {
		sum += approved.TaskCountModification.Confidence
		n++
	}
	if approved.SprintDurationModification != nil {
		sum += approved.SprintDurationModification.Confidence
		n++
	}
	for _, rec := range approved.ActiveSprintRecommendations {
		sum += rec.Confidence
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
