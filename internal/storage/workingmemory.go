package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sprintlabs/orchestrator/internal/model"
)

// UpsertWorkingMemory inserts or replaces a project's working-memory
// session. One session per project: a new upsert always supersedes the
// previous payload and resets the TTL.
func (db *DB) UpsertWorkingMemory(ctx context.Context, s model.WorkingMemorySession) (model.WorkingMemorySession, error) {
	if s.SessionID == uuid.Nil {
		s.SessionID = uuid.New()
	}
	_, err := db.pool.Exec(ctx,
		`INSERT INTO working_memory (session_id, project_id, payload, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (session_id) DO UPDATE SET payload = $3, expires_at = $5`,
		s.SessionID, s.ProjectID, s.Payload, s.CreatedAt, s.ExpiresAt,
	)
	if err != nil {
		return model.WorkingMemorySession{}, fmt.Errorf("storage: upsert working memory: %w", err)
	}
	return s, nil
}

// GetWorkingMemory returns the most recent, non-expired working-memory
// session for a project, or ErrNotFound if none exists.
func (db *DB) GetWorkingMemory(ctx context.Context, projectID string) (model.WorkingMemorySession, error) {
	var s model.WorkingMemorySession
	err := db.pool.QueryRow(ctx,
		`SELECT session_id, project_id, payload, created_at, expires_at
		 FROM working_memory
		 WHERE project_id = $1 AND expires_at > now()
		 ORDER BY created_at DESC LIMIT 1`, projectID,
	).Scan(&s.SessionID, &s.ProjectID, &s.Payload, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		return model.WorkingMemorySession{}, fmt.Errorf("storage: working memory for %s: %w", projectID, ErrNotFound)
	}
	return s, nil
}

// PurgeExpiredWorkingMemory deletes sessions past their TTL and returns the
// number removed. Intended to be called periodically by a housekeeping loop.
func (db *DB) PurgeExpiredWorkingMemory(ctx context.Context) (int64, error) {
	tag, err := db.pool.Exec(ctx, `DELETE FROM working_memory WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("storage: purge expired working memory: %w", err)
	}
	return tag.RowsAffected(), nil
}
