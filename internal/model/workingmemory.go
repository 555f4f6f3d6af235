package model

import (
	"time"

	"github.com/google/uuid"
)

// WorkingMemoryPayload is the cached per-project context: the most recent
// pattern analysis and the episode ids that contributed to it.
type WorkingMemoryPayload struct {
	LatestPatternAnalysis PatternAnalysis `json:"latest_pattern_analysis"`
	RecentEpisodeIDs      []uuid.UUID     `json:"recent_episode_ids"`
}

// WorkingMemorySession is an ephemeral, TTL-bounded per-project cache
// (spec §3 Working Memory Session).
type WorkingMemorySession struct {
	SessionID uuid.UUID             `json:"session_id"`
	ProjectID string                 `json:"project_id"`
	Payload   WorkingMemoryPayload   `json:"payload"`
	CreatedAt time.Time              `json:"created_at"`
	ExpiresAt time.Time              `json:"expires_at"`
}

// Expired reports whether the session's TTL has elapsed as of now.
func (s WorkingMemorySession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
