package orchestrator_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/sprintlabs/orchestrator/internal/analyzer"
	"github.com/sprintlabs/orchestrator/internal/audit"
	"github.com/sprintlabs/orchestrator/internal/clients"
	"github.com/sprintlabs/orchestrator/internal/config"
	"github.com/sprintlabs/orchestrator/internal/cron"
	"github.com/sprintlabs/orchestrator/internal/decide"
	"github.com/sprintlabs/orchestrator/internal/memory"
	"github.com/sprintlabs/orchestrator/internal/model"
	"github.com/sprintlabs/orchestrator/internal/orchestrator"
	"github.com/sprintlabs/orchestrator/internal/patterns"
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

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

type fixedEmbedder struct{}

func (fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3, 0.4}, nil
}
func (fixedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3, 0.4}
	}
	return out, nil
}
func (fixedEmbedder) Health(ctx context.Context) error { return nil }
func (fixedEmbedder) Dimensions() int                  { return 4 }

type fakeProjectClient struct {
	details      clients.ProjectDetails
	availability model.TeamAvailability
}

func (f *fakeProjectClient) GetProjectDetails(ctx context.Context, projectID string) (clients.ProjectDetails, error) {
	return f.details, nil
}
func (f *fakeProjectClient) TeamAvailability(ctx context.Context, projectID string, from, to time.Time) (model.TeamAvailability, error) {
	if f.availability.Status == "" {
		return model.TeamAvailability{Status: "available"}, nil
	}
	return f.availability, nil
}

type fakeBacklogClient struct {
	summary clients.BacklogSummary
}

func (f *fakeBacklogClient) Summary(ctx context.Context, projectID string) (clients.BacklogSummary, error) {
	return f.summary, nil
}

type fakeSprintClient struct {
	active       *model.ActiveSprint
	count        int
	createResult clients.SprintCreateResult
}

func (f *fakeSprintClient) ActiveSprint(ctx context.Context, projectID string) (*model.ActiveSprint, error) {
	return f.active, nil
}
func (f *fakeSprintClient) Count(ctx context.Context, projectID string) (int, error) {
	return f.count, nil
}
func (f *fakeSprintClient) CreateSprint(ctx context.Context, req clients.SprintCreateRequest) (clients.SprintCreateResult, error) {
	return f.createResult, nil
}
func (f *fakeSprintClient) CloseSprint(ctx context.Context, sprintID string) error { return nil }
func (f *fakeSprintClient) CreateRetrospective(ctx context.Context, sprintID string, summary string) error {
	return nil
}

type fakeScheduler struct {
	exists bool
}

func (f *fakeScheduler) Exists(ctx context.Context, name string) (bool, error) { return f.exists, nil }
func (f *fakeScheduler) Create(ctx context.Context, manifest []byte) error     { return nil }
func (f *fakeScheduler) Delete(ctx context.Context, name string) error         { return nil }

func buildCoordinator(t *testing.T, cfg config.Config, project *fakeProjectClient, backlog *fakeBacklogClient, sprint *fakeSprintClient, scheduler *fakeScheduler) *orchestrator.Coordinator {
	t.Helper()
	mem := memory.New(testDB, fixedEmbedder{}, config.EpisodePolicySkip, testLogger())
	return orchestrator.New(
		cfg,
		analyzer.New(project, backlog, sprint, testLogger()),
		patterns.New(mem, cfg),
		decide.NewModifier(cfg),
		decide.NewGate(),
		mem,
		audit.New(testDB, testLogger()),
		cron.New(scheduler, cfg),
		sprint,
		nil,
		nil,
		testLogger(),
	)
}

func TestOrchestrateSelfHealsMissingCronjob(t *testing.T) {
	cfg := config.Config{IntelligenceMode: config.ModeRuleBasedOnly}
	coord := buildCoordinator(t, cfg,
		&fakeProjectClient{details: clients.ProjectDetails{ProjectStatus: "active", TeamSize: 6}},
		&fakeBacklogClient{summary: clients.BacklogSummary{BacklogTasks: 10}},
		&fakeSprintClient{active: &model.ActiveSprint{SprintID: "TEST-001-S12", AllTasksComplete: false}, count: 1},
		&fakeScheduler{exists: false},
	)

	resp, err := coord.Orchestrate(context.Background(), "TEST-001", orchestrator.Options{
		CreateCronjob: true,
		Schedule:      "0 9 * * *",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Decisions.Applied.CronjobCreated {
		t.Fatalf("expected cronjob_created=true")
	}

	found := false
	for _, a := range resp.ActionsTaken {
		if a == "Created cronjob run-dailyscrum-test-001-test-001-s12" {
			found = true
		}
	}
	if !found {
		t.Fatalf("actions_taken = %v, want the self-heal cronjob action", resp.ActionsTaken)
	}
}

func TestOrchestrateRuleBasedNewSprintNoHistory(t *testing.T) {
	cfg := config.Config{IntelligenceMode: config.ModeRuleBasedOnly}
	coord := buildCoordinator(t, cfg,
		&fakeProjectClient{details: clients.ProjectDetails{ProjectStatus: "active", TeamSize: 5}},
		&fakeBacklogClient{summary: clients.BacklogSummary{BacklogTasks: 10, UnassignedForSprintCount: 10}},
		&fakeSprintClient{createResult: clients.SprintCreateResult{SprintID: "sprint-new", Name: "Sprint 1"}},
		&fakeScheduler{exists: true},
	)

	resp, err := coord.Orchestrate(context.Background(), "INTTEST-001", orchestrator.Options{
		CreateSprintIfNeeded: true,
		AssignTasks:          true,
		SprintDurationWeeks:  2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Decisions.Applied.CreateNewSprint {
		t.Fatalf("expected create_new_sprint=true")
	}
	if resp.Decisions.Applied.TasksToAssign != 10 {
		t.Fatalf("tasks_to_assign = %d, want 10", resp.Decisions.Applied.TasksToAssign)
	}
	if resp.Decisions.DecisionSource != model.DecisionSourceRuleBasedOnly {
		t.Fatalf("decision_source = %q, want rule_based_only", resp.Decisions.DecisionSource)
	}
	if resp.IntelligenceMetadata.SimilarProjectsAnalyzed != 0 {
		t.Fatalf("similar_projects_analyzed = %d, want 0", resp.IntelligenceMetadata.SimilarProjectsAnalyzed)
	}
}

func TestOrchestrateHolidayWarningDoesNotBlockSprintCreation(t *testing.T) {
	cfg := config.Config{IntelligenceMode: config.ModeRuleBasedOnly}
	project := &fakeProjectClient{
		details: clients.ProjectDetails{ProjectStatus: "active", TeamSize: 5},
		availability: model.TeamAvailability{
			Status: "constrained",
			Conflicts: []model.Conflict{
				{Type: "HOLIDAY", Name: "Christmas", Date: time.Date(2026, 12, 25, 0, 0, 0, 0, time.UTC)},
			},
		},
	}
	coord := buildCoordinator(t, cfg,
		project,
		&fakeBacklogClient{summary: clients.BacklogSummary{BacklogTasks: 8, UnassignedForSprintCount: 8}},
		&fakeSprintClient{createResult: clients.SprintCreateResult{SprintID: "sprint-holiday", Name: "Sprint 2"}},
		&fakeScheduler{exists: false},
	)

	resp, err := coord.Orchestrate(context.Background(), "HOLIDAY-001", orchestrator.Options{
		CreateSprintIfNeeded: true,
		AssignTasks:          true,
		SprintDurationWeeks:  2,
		CreateCronjob:        true,
		Schedule:             "0 9 * * *",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Decisions.Applied.CreateNewSprint {
		t.Fatalf("expected the sprint to still be created despite the conflict warning")
	}
	if !resp.Decisions.Applied.CronjobCreated {
		t.Fatalf("expected the cronjob to still be ensured despite the conflict warning")
	}
	found := false
	for _, w := range resp.Decisions.Applied.Warnings {
		if w == "planning window intersects holiday: Christmas (2026-12-25)" {
			found = true
		}
	}
	if !found {
		t.Fatalf("warnings = %v, want the holiday conflict warning", resp.Decisions.Applied.Warnings)
	}
}

func TestOrchestrateIntelligenceModeWithoutHistoryFallsBackToRuleBased(t *testing.T) {
	cfg := config.Config{
		IntelligenceMode:                  config.ModeIntelligenceEnhanced,
		ConfidenceThreshold:               0.75,
		EnableTaskCountAdjustment:         true,
		SimilarityFloor:                   0.5,
		TaskAdjustmentDifferenceThreshold: 3,
		TaskAdjustmentMinConfidence:       0.6,
		MinSimilarProjects:                3,
	}
	coord := buildCoordinator(t, cfg,
		&fakeProjectClient{details: clients.ProjectDetails{ProjectStatus: "active", TeamSize: 5}},
		&fakeBacklogClient{summary: clients.BacklogSummary{BacklogTasks: 8, UnassignedForSprintCount: 8}},
		&fakeSprintClient{createResult: clients.SprintCreateResult{SprintID: "sprint-gated", Name: "Sprint 3"}},
		&fakeScheduler{exists: true},
	)

	resp, err := coord.Orchestrate(context.Background(), "GATE-001", orchestrator.Options{
		CreateSprintIfNeeded: true,
		AssignTasks:          true,
		SprintDurationWeeks:  2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Decisions.DecisionSource != model.DecisionSourceRuleBasedOnly {
		t.Fatalf("decision_source = %q, want rule_based_only when there's no historical data to adjust from", resp.Decisions.DecisionSource)
	}
	if resp.Decisions.Applied.TasksToAssign != 8 {
		t.Fatalf("tasks_to_assign = %d, want the unadjusted rule-based baseline of 8", resp.Decisions.Applied.TasksToAssign)
	}
}
