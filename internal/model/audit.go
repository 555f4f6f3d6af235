package model

import (
	"time"

	"github.com/google/uuid"
)

// GateVerdict records the Confidence Gate's per-adjustment approve/reject
// decision, independent of whether the adjustment was ultimately applied
// (spec §4.5, §4.6).
type GateVerdict struct {
	Field            string  `json:"field"`
	Confidence       float64 `json:"confidence"`
	Threshold        float64 `json:"threshold"`
	Approved         bool    `json:"approved"`
	RejectionReason  string  `json:"rejection_reason,omitempty"`
}

// AuditRecord is the Decision Auditor's persisted artefact: the full
// rule-based baseline, every candidate adjustment considered, every gate
// verdict, and what was finally applied (spec §4.6).
type AuditRecord struct {
	AuditID              uuid.UUID               `json:"audit_id"`
	ProjectID            string                  `json:"project_id"`
	CreatedAt            time.Time               `json:"created_at"`
	RuleBased            RuleBasedDecision       `json:"rule_based"`
	CandidateAdjustments IntelligenceAdjustments `json:"candidate_adjustments"`
	GateVerdicts         []GateVerdict           `json:"gate_verdicts"`
	Applied              AppliedDecision         `json:"applied"`
	ConfidenceScores     ConfidenceScores        `json:"confidence_scores"`
}
