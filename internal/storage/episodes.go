package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/sprintlabs/orchestrator/internal/model"
)

const episodeRetryBaseDelay = 50 * time.Millisecond

// StoreEpisode inserts an episode. EpisodeID is generated if unset.
func (db *DB) StoreEpisode(ctx context.Context, ep model.Episode) (model.Episode, error) {
	if ep.EpisodeID == uuid.Nil {
		ep.EpisodeID = uuid.New()
	}

	var emb *pgvector.Vector
	if ep.Embedding != nil {
		emb = ep.Embedding
	}

	err := WithRetry(ctx, 3, episodeRetryBaseDelay, func() error {
		_, err := db.pool.Exec(ctx,
			`INSERT INTO episodes (episode_id, project_id, ts, perception, reasoning, action, outcome,
			 outcome_quality, outcome_recorded_at, embedding, agent_version, control_mode, decision_source,
			 sprint_id, external_note_id)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			ep.EpisodeID, ep.ProjectID, ep.Timestamp, ep.Perception, ep.Reasoning, ep.Action, ep.Outcome,
			ep.OutcomeQuality, ep.OutcomeRecordedAt, emb, ep.AgentVersion, ep.ControlMode, ep.DecisionSource,
			ep.SprintID, ep.ExternalNoteID,
		)
		return err
	})
	if err != nil {
		return model.Episode{}, fmt.Errorf("storage: store episode: %w", err)
	}
	return ep, nil
}

// FindSimilarEpisodes returns up to limit episodes ordered by cosine
// similarity to embedding, restricted to projectID when non-empty.
// Similarity is populated as 1 - cosine_distance.
func (db *DB) FindSimilarEpisodes(ctx context.Context, projectID string, embedding []float32, limit int) ([]model.Episode, error) {
	if limit <= 0 {
		limit = 10
	}
	emb := pgvector.NewVector(embedding)

	query := `SELECT episode_id, project_id, ts, perception, reasoning, action, outcome,
	 outcome_quality, outcome_recorded_at, embedding, agent_version, control_mode, decision_source,
	 sprint_id, external_note_id, 1 - (embedding <=> $1) AS similarity
	 FROM episodes
	 WHERE embedding IS NOT NULL`
	args := []any{emb}
	if projectID != "" {
		query += " AND project_id = $2"
		args = append(args, projectID)
	}
	query += " ORDER BY embedding <=> $1 LIMIT " + fmt.Sprint(limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: find similar episodes: %w", err)
	}
	defer rows.Close()

	return scanEpisodes(rows)
}

// GetEpisodesWithoutOutcomes returns episodes whose sprint has a non-null
// sprint_id but no recorded outcome yet, oldest first, for backfill.
func (db *DB) GetEpisodesWithoutOutcomes(ctx context.Context, limit int) ([]model.Episode, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.pool.Query(ctx,
		`SELECT episode_id, project_id, ts, perception, reasoning, action, outcome,
		 outcome_quality, outcome_recorded_at, embedding, agent_version, control_mode, decision_source,
		 sprint_id, external_note_id
		 FROM episodes
		 WHERE sprint_id IS NOT NULL AND outcome IS NULL
		 ORDER BY ts ASC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: get episodes without outcomes: %w", err)
	}
	defer rows.Close()

	return scanEpisodes(rows)
}

// UpdateEpisodeOutcome records the observed outcome for an episode.
// Idempotent: once outcome_recorded_at is set, a later call is a no-op
// rather than clobbering a previously recorded (possibly manually
// corrected) outcome. Distinguishing that no-op from "episode doesn't
// exist" costs a lookup, so the first call's caller should expect
// ErrNotFound only for a genuinely unknown episode_id.
func (db *DB) UpdateEpisodeOutcome(ctx context.Context, episodeID uuid.UUID, outcome model.Outcome, quality float64, recordedAt time.Time) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE episodes SET outcome = $1, outcome_quality = $2, outcome_recorded_at = $3
		 WHERE episode_id = $4 AND outcome_recorded_at IS NULL`,
		outcome, quality, recordedAt, episodeID,
	)
	if err != nil {
		return fmt.Errorf("storage: update episode outcome: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := db.pool.QueryRow(ctx,
		`SELECT true FROM episodes WHERE episode_id = $1`, episodeID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("storage: episode %s: %w", episodeID, ErrNotFound)
	}
	return nil
}

func scanEpisodes(rows pgx.Rows) ([]model.Episode, error) {
	var episodes []model.Episode
	for rows.Next() {
		var ep model.Episode
		var emb *pgvector.Vector
		var similarity *float64

		dest := []any{
			&ep.EpisodeID, &ep.ProjectID, &ep.Timestamp, &ep.Perception, &ep.Reasoning, &ep.Action, &ep.Outcome,
			&ep.OutcomeQuality, &ep.OutcomeRecordedAt, &emb, &ep.AgentVersion, &ep.ControlMode, &ep.DecisionSource,
			&ep.SprintID, &ep.ExternalNoteID,
		}
		if len(rows.FieldDescriptions()) > 15 {
			dest = append(dest, &similarity)
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("storage: scan episode: %w", err)
		}
		ep.Embedding = emb
		if similarity != nil {
			ep.Similarity = *similarity
		}
		episodes = append(episodes, ep)
	}
	return episodes, rows.Err()
}

// GetEpisode fetches a single episode by ID.
func (db *DB) GetEpisode(ctx context.Context, episodeID uuid.UUID) (model.Episode, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT episode_id, project_id, ts, perception, reasoning, action, outcome,
		 outcome_quality, outcome_recorded_at, embedding, agent_version, control_mode, decision_source,
		 sprint_id, external_note_id
		 FROM episodes WHERE episode_id = $1`, episodeID)
	if err != nil {
		return model.Episode{}, fmt.Errorf("storage: get episode: %w", err)
	}
	defer rows.Close()

	episodes, err := scanEpisodes(rows)
	if err != nil {
		return model.Episode{}, err
	}
	if len(episodes) == 0 {
		return model.Episode{}, fmt.Errorf("storage: episode %s: %w", episodeID, ErrNotFound)
	}
	return episodes[0], nil
}
