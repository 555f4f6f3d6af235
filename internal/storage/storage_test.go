package storage_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sprintlabs/orchestrator/internal/model"
	"github.com/sprintlabs/orchestrator/internal/storage"
	"github.com/sprintlabs/orchestrator/internal/testutil"
)

var testDB *storage.DB

func TestMain(m *testing.M) {
	tc := testutil.MustStartPostgres()
	defer tc.Terminate()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	db, err := tc.NewTestDB(context.Background(), logger)
	if err != nil {
		os.Exit(1)
	}
	testDB = db
	defer testDB.Close()

	os.Exit(m.Run())
}

func sampleStrategy() model.Strategy {
	return model.Strategy{
		KnowledgeType: "sprint_sizing",
		Content: model.StrategyContent{
			AppliesToProjectStatus:           "active",
			RecommendedTaskAdjustmentPercent: 10,
			RecommendedDurationWeeks:         2,
		},
		Description: "derived from historical velocity",
		Confidence:  0.5,
		CreatedAt:   time.Now(),
		IsActive:    true,
		Lifecycle:   model.StrategyProposed,
	}
}

func TestCreateAndGetStrategy(t *testing.T) {
	ctx := context.Background()

	created, err := testDB.CreateStrategy(ctx, sampleStrategy())
	if err != nil {
		t.Fatalf("create strategy: %v", err)
	}
	if created.KnowledgeID == uuid.Nil {
		t.Fatalf("expected a generated knowledge id")
	}

	got, err := testDB.GetStrategy(ctx, created.KnowledgeID)
	if err != nil {
		t.Fatalf("get strategy: %v", err)
	}
	if got.Content != created.Content {
		t.Fatalf("content = %q, want %q", got.Content, created.Content)
	}
}

func TestGetStrategyNotFound(t *testing.T) {
	_, err := testDB.GetStrategy(context.Background(), uuid.New())
	if err == nil {
		t.Fatalf("expected an error for an unknown strategy id")
	}
}

func TestGetActiveStrategiesFiltersByTypeAndOrdersByConfidence(t *testing.T) {
	ctx := context.Background()

	low := sampleStrategy()
	low.KnowledgeType = "velocity-order-test"
	low.Confidence = 0.2
	if _, err := testDB.CreateStrategy(ctx, low); err != nil {
		t.Fatalf("create low: %v", err)
	}

	high := sampleStrategy()
	high.KnowledgeType = "velocity-order-test"
	high.Confidence = 0.9
	if _, err := testDB.CreateStrategy(ctx, high); err != nil {
		t.Fatalf("create high: %v", err)
	}

	inactive := sampleStrategy()
	inactive.KnowledgeType = "velocity-order-test"
	inactive.IsActive = false
	if _, err := testDB.CreateStrategy(ctx, inactive); err != nil {
		t.Fatalf("create inactive: %v", err)
	}

	strategies, err := testDB.GetActiveStrategies(ctx, "velocity-order-test")
	if err != nil {
		t.Fatalf("get active strategies: %v", err)
	}
	if len(strategies) != 2 {
		t.Fatalf("len(strategies) = %d, want 2 (inactive excluded)", len(strategies))
	}
	if strategies[0].Confidence < strategies[1].Confidence {
		t.Fatalf("expected strategies ordered by descending confidence, got %+v", strategies)
	}
}

func TestRecordStrategyApplicationIncrementsCounts(t *testing.T) {
	ctx := context.Background()

	created, err := testDB.CreateStrategy(ctx, sampleStrategy())
	if err != nil {
		t.Fatalf("create strategy: %v", err)
	}

	if err := testDB.RecordStrategyApplication(ctx, created.KnowledgeID, true); err != nil {
		t.Fatalf("record success: %v", err)
	}
	if err := testDB.RecordStrategyApplication(ctx, created.KnowledgeID, false); err != nil {
		t.Fatalf("record failure: %v", err)
	}

	got, err := testDB.GetStrategy(ctx, created.KnowledgeID)
	if err != nil {
		t.Fatalf("get strategy: %v", err)
	}
	if got.TimesApplied != 2 {
		t.Fatalf("times_applied = %d, want 2", got.TimesApplied)
	}
	if got.SuccessCount != 1 || got.FailureCount != 1 {
		t.Fatalf("success=%d failure=%d, want 1 and 1", got.SuccessCount, got.FailureCount)
	}
}

func TestRecordStrategyApplicationNotFound(t *testing.T) {
	err := testDB.RecordStrategyApplication(context.Background(), uuid.New(), true)
	if err == nil {
		t.Fatalf("expected an error for an unknown strategy id")
	}
}

func TestUpdateStrategyLifecycleFlipsIsActive(t *testing.T) {
	ctx := context.Background()

	created, err := testDB.CreateStrategy(ctx, sampleStrategy())
	if err != nil {
		t.Fatalf("create strategy: %v", err)
	}

	if err := testDB.UpdateStrategyLifecycle(ctx, created.KnowledgeID, model.StrategyRetired, 0.1); err != nil {
		t.Fatalf("update lifecycle: %v", err)
	}

	got, err := testDB.GetStrategy(ctx, created.KnowledgeID)
	if err != nil {
		t.Fatalf("get strategy: %v", err)
	}
	if got.Lifecycle != model.StrategyRetired {
		t.Fatalf("lifecycle = %q, want retired", got.Lifecycle)
	}
	if got.IsActive {
		t.Fatalf("expected is_active to flip to false once retired")
	}
	if got.Confidence != 0.1 {
		t.Fatalf("confidence = %v, want 0.1", got.Confidence)
	}
}

func TestAddContradictingEpisodeIsIdempotent(t *testing.T) {
	ctx := context.Background()

	created, err := testDB.CreateStrategy(ctx, sampleStrategy())
	if err != nil {
		t.Fatalf("create strategy: %v", err)
	}
	episodeID := uuid.New()

	if err := testDB.AddContradictingEpisode(ctx, created.KnowledgeID, episodeID); err != nil {
		t.Fatalf("add contradicting episode: %v", err)
	}
	if err := testDB.AddContradictingEpisode(ctx, created.KnowledgeID, episodeID); err != nil {
		t.Fatalf("add contradicting episode again: %v", err)
	}

	got, err := testDB.GetStrategy(ctx, created.KnowledgeID)
	if err != nil {
		t.Fatalf("get strategy: %v", err)
	}
	if len(got.ContradictingEpisodes) != 1 {
		t.Fatalf("contradicting_episodes = %v, want exactly one entry", got.ContradictingEpisodes)
	}
}

func TestUpsertAndGetWorkingMemory(t *testing.T) {
	ctx := context.Background()
	projectID := "WORKMEM-001"

	session := model.WorkingMemorySession{
		ProjectID: projectID,
		Payload: model.WorkingMemoryPayload{
			RecentEpisodeIDs: []uuid.UUID{uuid.New()},
		},
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}

	created, err := testDB.UpsertWorkingMemory(ctx, session)
	if err != nil {
		t.Fatalf("upsert working memory: %v", err)
	}

	got, err := testDB.GetWorkingMemory(ctx, projectID)
	if err != nil {
		t.Fatalf("get working memory: %v", err)
	}
	if got.SessionID != created.SessionID {
		t.Fatalf("session id = %v, want %v", got.SessionID, created.SessionID)
	}
	if len(got.Payload.RecentEpisodeIDs) != 1 {
		t.Fatalf("expected the payload round-trip through jsonb")
	}
}

func TestGetWorkingMemoryNotFoundWhenExpired(t *testing.T) {
	ctx := context.Background()
	projectID := "WORKMEM-EXPIRED"

	session := model.WorkingMemorySession{
		ProjectID: projectID,
		CreatedAt: time.Now().Add(-time.Hour),
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	if _, err := testDB.UpsertWorkingMemory(ctx, session); err != nil {
		t.Fatalf("upsert working memory: %v", err)
	}

	if _, err := testDB.GetWorkingMemory(ctx, projectID); err == nil {
		t.Fatalf("expected an expired session to be invisible")
	}
}

func TestPurgeExpiredWorkingMemory(t *testing.T) {
	ctx := context.Background()
	projectID := "WORKMEM-PURGE"

	if _, err := testDB.UpsertWorkingMemory(ctx, model.WorkingMemorySession{
		ProjectID: projectID,
		CreatedAt: time.Now().Add(-time.Hour),
		ExpiresAt: time.Now().Add(-time.Minute),
	}); err != nil {
		t.Fatalf("upsert expired working memory: %v", err)
	}

	removed, err := testDB.PurgeExpiredWorkingMemory(ctx)
	if err != nil {
		t.Fatalf("purge expired working memory: %v", err)
	}
	if removed < 1 {
		t.Fatalf("removed = %d, want at least 1", removed)
	}
}

func TestPingAndHealth(t *testing.T) {
	if err := testDB.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}

	status := testDB.Health()
	if status.Max <= 0 {
		t.Fatalf("expected a positive max pool size, got %+v", status)
	}
}
