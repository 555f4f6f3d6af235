package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sprintlabs/orchestrator/internal/model"
)

// CreateStrategy inserts a new strategy in the PROPOSED lifecycle state.
func (db *DB) CreateStrategy(ctx context.Context, s model.Strategy) (model.Strategy, error) {
	if s.KnowledgeID == uuid.Nil {
		s.KnowledgeID = uuid.New()
	}
	_, err := db.pool.Exec(ctx,
		`INSERT INTO knowledge (knowledge_id, knowledge_type, content, description, confidence,
		 supporting_episodes, contradicting_episodes, times_applied, success_count, failure_count,
		 created_at, last_validated, last_applied, created_by, is_active, lifecycle)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		s.KnowledgeID, s.KnowledgeType, s.Content, s.Description, s.Confidence,
		s.SupportingEpisodes, s.ContradictingEpisodes, s.TimesApplied, s.SuccessCount, s.FailureCount,
		s.CreatedAt, s.LastValidated, s.LastApplied, s.CreatedBy, s.IsActive, s.Lifecycle,
	)
	if err != nil {
		return model.Strategy{}, fmt.Errorf("storage: create strategy: %w", err)
	}
	return s, nil
}

// GetActiveStrategies returns all strategies with is_active = true, optionally
// restricted to a knowledge type ("" matches any).
func (db *DB) GetActiveStrategies(ctx context.Context, knowledgeType string) ([]model.Strategy, error) {
	query := `SELECT knowledge_id, knowledge_type, content, description, confidence,
	 supporting_episodes, contradicting_episodes, times_applied, success_count, failure_count,
	 created_at, last_validated, last_applied, created_by, is_active, lifecycle
	 FROM knowledge WHERE is_active = true`
	args := []any{}
	if knowledgeType != "" {
		query += " AND knowledge_type = $1"
		args = append(args, knowledgeType)
	}
	query += " ORDER BY confidence DESC"

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: get active strategies: %w", err)
	}
	defer rows.Close()
	return scanStrategies(rows)
}

// GetStrategy fetches a single strategy by ID.
func (db *DB) GetStrategy(ctx context.Context, id uuid.UUID) (model.Strategy, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT knowledge_id, knowledge_type, content, description, confidence,
		 supporting_episodes, contradicting_episodes, times_applied, success_count, failure_count,
		 created_at, last_validated, last_applied, created_by, is_active, lifecycle
		 FROM knowledge WHERE knowledge_id = $1`, id)
	if err != nil {
		return model.Strategy{}, fmt.Errorf("storage: get strategy: %w", err)
	}
	defer rows.Close()

	strategies, err := scanStrategies(rows)
	if err != nil {
		return model.Strategy{}, err
	}
	if len(strategies) == 0 {
		return model.Strategy{}, fmt.Errorf("storage: strategy %s: %w", id, ErrNotFound)
	}
	return strategies[0], nil
}

// RecordStrategyApplication increments times_applied and, depending on
// success, success_count or failure_count, and refreshes last_applied.
func (db *DB) RecordStrategyApplication(ctx context.Context, id uuid.UUID, success bool) error {
	column := "failure_count"
	if success {
		column = "success_count"
	}
	tag, err := db.pool.Exec(ctx, fmt.Sprintf(
		`UPDATE knowledge SET times_applied = times_applied + 1, %s = %s + 1, last_applied = now()
		 WHERE knowledge_id = $1`, column, column), id)
	if err != nil {
		return fmt.Errorf("storage: record strategy application: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: strategy %s: %w", id, ErrNotFound)
	}
	return nil
}

// UpdateStrategyLifecycle transitions a strategy's lifecycle state and
// confidence, and flips is_active to match (ACTIVE => true, else false).
func (db *DB) UpdateStrategyLifecycle(ctx context.Context, id uuid.UUID, lifecycle model.StrategyLifecycle, confidence float64) error {
	isActive := lifecycle == model.StrategyActive
	tag, err := db.pool.Exec(ctx,
		`UPDATE knowledge SET lifecycle = $1, confidence = $2, is_active = $3, last_validated = now()
		 WHERE knowledge_id = $4`,
		lifecycle, confidence, isActive, id,
	)
	if err != nil {
		return fmt.Errorf("storage: update strategy lifecycle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: strategy %s: %w", id, ErrNotFound)
	}
	return nil
}

// AddContradictingEpisode appends an episode id to a strategy's
// contradicting_episodes array, used by the Strategy Evolver when an
// applied strategy's outcome is observed to be poor.
func (db *DB) AddContradictingEpisode(ctx context.Context, strategyID, episodeID uuid.UUID) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE knowledge SET contradicting_episodes = array_append(contradicting_episodes, $1)
		 WHERE knowledge_id = $2 AND NOT ($1 = ANY(contradicting_episodes))`,
		episodeID, strategyID,
	)
	if err != nil {
		return fmt.Errorf("storage: add contradicting episode: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: strategy %s: %w", strategyID, ErrNotFound)
	}
	return nil
}

func scanStrategies(rows pgx.Rows) ([]model.Strategy, error) {
	var strategies []model.Strategy
	for rows.Next() {
		var s model.Strategy
		if err := rows.Scan(
			&s.KnowledgeID, &s.KnowledgeType, &s.Content, &s.Description, &s.Confidence,
			&s.SupportingEpisodes, &s.ContradictingEpisodes, &s.TimesApplied, &s.SuccessCount, &s.FailureCount,
			&s.CreatedAt, &s.LastValidated, &s.LastApplied, &s.CreatedBy, &s.IsActive, &s.Lifecycle,
		); err != nil {
			return nil, fmt.Errorf("storage: scan strategy: %w", err)
		}
		strategies = append(strategies, s)
	}
	return strategies, rows.Err()
}
