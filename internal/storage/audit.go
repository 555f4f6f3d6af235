package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sprintlabs/orchestrator/internal/model"
)

// InsertAuditRecord writes the Decision Auditor's record for one
// orchestration. Failures here are logged and swallowed by the caller
// (spec §4.6: audit failure never blocks the decision); this method itself
// just reports the error so the caller can decide.
func (db *DB) InsertAuditRecord(ctx context.Context, rec model.AuditRecord) (model.AuditRecord, error) {
	if rec.AuditID == uuid.Nil {
		rec.AuditID = uuid.New()
	}
	_, err := db.pool.Exec(ctx,
		`INSERT INTO audit_records (audit_id, project_id, created_at, rule_based, candidate_adjustments,
		 gate_verdicts, applied, confidence_scores)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.AuditID, rec.ProjectID, rec.CreatedAt, rec.RuleBased, rec.CandidateAdjustments,
		rec.GateVerdicts, rec.Applied, rec.ConfidenceScores,
	)
	if err != nil {
		return model.AuditRecord{}, fmt.Errorf("storage: insert audit record: %w", err)
	}
	return rec, nil
}

// GetAuditRecordsByProject returns a project's audit trail, newest first.
func (db *DB) GetAuditRecordsByProject(ctx context.Context, projectID string, limit int) ([]model.AuditRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.pool.Query(ctx,
		`SELECT audit_id, project_id, created_at, rule_based, candidate_adjustments,
		 gate_verdicts, applied, confidence_scores
		 FROM audit_records WHERE project_id = $1 ORDER BY created_at DESC LIMIT $2`,
		projectID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: get audit records: %w", err)
	}
	defer rows.Close()

	var records []model.AuditRecord
	for rows.Next() {
		var r model.AuditRecord
		if err := rows.Scan(
			&r.AuditID, &r.ProjectID, &r.CreatedAt, &r.RuleBased, &r.CandidateAdjustments,
			&r.GateVerdicts, &r.Applied, &r.ConfidenceScores,
		); err != nil {
			return nil, fmt.Errorf("storage: scan audit record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
