// Package audit implements the Decision Auditor: writes a persisted
// record of every orchestration's rule-based decision, candidate
// adjustments, gate verdicts and final applied decision (spec §4.6).
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/sprintlabs/orchestrator/internal/decide"
	"github.com/sprintlabs/orchestrator/internal/model"
	"github.com/sprintlabs/orchestrator/internal/storage"
)

// Auditor writes audit records. A write failure is logged and swallowed:
// auditing must never fail an orchestration.
type Auditor struct {
	db     *storage.DB
	logger *slog.Logger
}

// New constructs a Decision Auditor.
func New(db *storage.DB, logger *slog.Logger) *Auditor {
	return &Auditor{db: db, logger: logger}
}

// Record persists one orchestration's audit trail. Errors are logged,
// never returned to the orchestration caller (spec §4.6, §7
// AuditWriteFailed).
func (a *Auditor) Record(ctx context.Context, projectID string, candidates model.IntelligenceAdjustments, verdicts []decide.Verdict, decision model.Decision) {
	rec := model.AuditRecord{
		ProjectID:            projectID,
		CreatedAt:            time.Now().UTC(),
		RuleBased:            decision.RuleBased,
		CandidateAdjustments: candidates,
		GateVerdicts:         toGateVerdicts(verdicts),
		Applied:              decision.Applied,
		ConfidenceScores:     decision.ConfidenceScores,
	}
	if _, err := a.db.InsertAuditRecord(ctx, rec); err != nil {
		a.logger.Error("audit: failed to write audit record", "project_id", projectID, "error", err)
	}
}

// ListByProject returns a project's audit trail, newest first.
func (a *Auditor) ListByProject(ctx context.Context, projectID string, limit int) ([]model.AuditRecord, error) {
	return a.db.GetAuditRecordsByProject(ctx, projectID, limit)
}

func toGateVerdicts(verdicts []decide.Verdict) []model.GateVerdict {
	out := make([]model.GateVerdict, 0, len(verdicts))
	for _, v := range verdicts {
		out = append(out, model.GateVerdict{
			Field:           v.Field,
			Confidence:      v.Confidence,
			Threshold:       v.Threshold,
			Approved:        v.Approved,
			RejectionReason: v.RejectionReason,
		})
	}
	return out
}
