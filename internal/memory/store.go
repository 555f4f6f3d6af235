// Package memory is the Agent Memory Store: the public contract over
// episodic storage, combining Postgres/pgvector persistence with the
// Embedding Client so callers never see the canonicalisation or
// embedding steps directly (spec §4.7).
package memory

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/sprintlabs/orchestrator/internal/config"
	"github.com/sprintlabs/orchestrator/internal/embedclient"
	"github.com/sprintlabs/orchestrator/internal/episode"
	"github.com/sprintlabs/orchestrator/internal/model"
	"github.com/sprintlabs/orchestrator/internal/storage"
)

// Store is the Agent Memory Store.
type Store struct {
	db       *storage.DB
	embedder embedclient.Provider
	policy   config.EpisodePersistencePolicy
	logger   *slog.Logger
}

// New constructs a Store. policy governs what happens to StoreEpisode
// when embedding fails (spec §9 resolved open question).
func New(db *storage.DB, embedder embedclient.Provider, policy config.EpisodePersistencePolicy, logger *slog.Logger) *Store {
	return &Store{db: db, embedder: embedder, policy: policy, logger: logger}
}

// StoreEpisode canonicalises and embeds the episode, then persists it.
// When embedding fails and the policy is EpisodePolicySkip, the episode
// is not stored at all and the embedding error is returned. When the
// policy is EpisodePolicyStoreWithoutEmbedding, the episode is persisted
// with a nil embedding and a nil error — it does not take part in
// similarity search, and no later pass re-embeds it.
func (s *Store) StoreEpisode(ctx context.Context, ep model.Episode) (model.Episode, error) {
	if ep.EpisodeID == uuid.Nil {
		ep.EpisodeID = uuid.New()
	}
	if ep.Timestamp.IsZero() {
		ep.Timestamp = time.Now().UTC()
	}

	text := episode.Canonicalise(ep)
	vec, err := s.embedder.Embed(ctx, text)
	switch {
	case err == nil:
		v := pgvector.NewVector(vec)
		ep.Embedding = &v
	case s.policy == config.EpisodePolicyStoreWithoutEmbedding:
		s.logger.Warn("memory: storing episode without embedding", "episode_id", ep.EpisodeID, "error", err)
		ep.Embedding = nil
	default:
		return model.Episode{}, err
	}

	return s.db.StoreEpisode(ctx, ep)
}

// FindSimilarEpisodes embeds queryText and returns the most similar
// episodes, optionally restricted to a project.
func (s *Store) FindSimilarEpisodes(ctx context.Context, projectID, queryText string, limit int) ([]model.Episode, error) {
	vec, err := s.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, err
	}
	return s.db.FindSimilarEpisodes(ctx, projectID, vec, limit)
}

// FindSimilarToEpisode is FindSimilarEpisodes using an already-recorded
// episode as the query, canonicalising it the same way StoreEpisode does
// so the comparison is apples-to-apples.
func (s *Store) FindSimilarToEpisode(ctx context.Context, ep model.Episode, limit int) ([]model.Episode, error) {
	return s.FindSimilarEpisodes(ctx, "", episode.Canonicalise(ep), limit)
}

// UpdateEpisodeOutcome records an observed outcome for back-filling.
func (s *Store) UpdateEpisodeOutcome(ctx context.Context, episodeID uuid.UUID, outcome model.Outcome, quality float64) error {
	return s.db.UpdateEpisodeOutcome(ctx, episodeID, outcome, quality, time.Now().UTC())
}

// GetEpisodesWithoutOutcomes returns episodes eligible for back-fill.
func (s *Store) GetEpisodesWithoutOutcomes(ctx context.Context, limit int) ([]model.Episode, error) {
	return s.db.GetEpisodesWithoutOutcomes(ctx, limit)
}

// GetEpisode fetches a single episode.
func (s *Store) GetEpisode(ctx context.Context, id uuid.UUID) (model.Episode, error) {
	return s.db.GetEpisode(ctx, id)
}

// PoolStatus reports the underlying connection pool's current statistics,
// for readiness reporting (spec §6.1 GET /health/ready).
func (s *Store) PoolStatus() storage.PoolStatus {
	return s.db.Health()
}

// Health reports whether storage and the embedding provider are reachable.
// An embedding-provider failure is reported but does not make the whole
// store unhealthy when the persistence policy tolerates missing
// embeddings — readiness should reflect what the deployment actually
// requires to keep functioning.
func (s *Store) Health(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return err
	}
	if err := s.embedder.Health(ctx); err != nil {
		if s.policy == config.EpisodePolicyStoreWithoutEmbedding {
			s.logger.Warn("memory: embedding provider unhealthy, continuing in degraded mode", "error", err)
			return nil
		}
		return err
	}
	return nil
}

// ErrBackfillNotEligible reports an episode that has no sprint_id to
// correlate an outcome against. No function in this package returns it;
// callers filter with Episode.EligibleForBackfill.
var ErrBackfillNotEligible = errors.New("memory: episode is not eligible for outcome backfill")
