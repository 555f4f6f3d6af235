// Package orchestrator composes the Enhanced Decision Engine (spec
// §4.10): Project Analyzer, Pattern Engine, Rule-Based Planner, Decision
// Modifier, Confidence Gate, Cron/Self-Heal Controller, Agent Memory
// Store, Decision Auditor, AI Advisor and event publication, in that order,
// serialised per project_id (spec §5).
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sprintlabs/orchestrator/internal/advisor"
	"github.com/sprintlabs/orchestrator/internal/analyzer"
	"github.com/sprintlabs/orchestrator/internal/audit"
	"github.com/sprintlabs/orchestrator/internal/clients"
	"github.com/sprintlabs/orchestrator/internal/config"
	"github.com/sprintlabs/orchestrator/internal/cron"
	"github.com/sprintlabs/orchestrator/internal/decide"
	"github.com/sprintlabs/orchestrator/internal/events"
	"github.com/sprintlabs/orchestrator/internal/memory"
	"github.com/sprintlabs/orchestrator/internal/model"
	"github.com/sprintlabs/orchestrator/internal/patterns"
	"github.com/sprintlabs/orchestrator/internal/planner"
)

// agentVersion identifies the decision engine version recorded on every
// episode, independent of the running binary's build metadata.
const agentVersion = "orchestrator-decision-engine-v1"

// Options is the orchestration request's planning options (spec §6.1).
type Options struct {
	CreateSprintIfNeeded bool
	AssignTasks          bool
	CreateCronjob        bool
	Schedule             string
	SprintDurationWeeks  int
	MaxTasksPerSprint    int
}

// PerformanceMetrics records per-stage wall-clock duration for one
// orchestration (spec §6.1 response field `performance_metrics`).
type PerformanceMetrics struct {
	TotalDurationMs        int64 `json:"total_duration_ms"`
	AnalyzerDurationMs     int64 `json:"analyzer_duration_ms"`
	PatternEngineDurationMs int64 `json:"pattern_engine_duration_ms"`
	DecisionDurationMs     int64 `json:"decision_duration_ms"`
	AdvisorDurationMs      int64 `json:"advisor_duration_ms,omitempty"`
}

// Response is the composite orchestration response (spec §6.1).
type Response struct {
	Analysis             model.ProjectSnapshot      `json:"analysis"`
	Decisions            model.Decision             `json:"decisions"`
	ActionsTaken         []string                   `json:"actions_taken"`
	PerformanceMetrics   PerformanceMetrics         `json:"performance_metrics"`
	IntelligenceMetadata model.IntelligenceMetadata `json:"intelligence_metadata"`
	Advisory             *advisor.Advisory          `json:"ai_agent_advisory,omitempty"`
}

// Coordinator wires the decision-engine stages together and owns the
// per-project and per-cronjob serialisation locks (spec §5).
type Coordinator struct {
	cfg config.Config

	analyzer *analyzer.Analyzer
	patterns *patterns.Engine
	modifier *decide.Modifier
	gate     *decide.Gate
	memory   *memory.Store
	auditor  *audit.Auditor
	cronCtl  *cron.Controller
	sprints  clients.SprintClient
	events   *events.Publisher
	advisor  *advisor.Advisor

	projectLocks *keyedMutex
	cronLocks    *keyedMutex
	modeOverrides *modeOverrideStore

	logger *slog.Logger
}

// New constructs an Orchestrator Coordinator. advisorClient and
// eventsPublisher may be nil: a nil advisor leaves ai_agent_advisory out
// of the response, a nil publisher disables event publication (both degrade
// silently rather than failing orchestration).
func New(
	cfg config.Config,
	az *analyzer.Analyzer,
	pe *patterns.Engine,
	modifier *decide.Modifier,
	gate *decide.Gate,
	mem *memory.Store,
	auditor *audit.Auditor,
	cronCtl *cron.Controller,
	sprints clients.SprintClient,
	eventsPublisher *events.Publisher,
	advisorClient *advisor.Advisor,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		cfg:          cfg,
		analyzer:     az,
		patterns:     pe,
		modifier:     modifier,
		gate:         gate,
		memory:       mem,
		auditor:      auditor,
		cronCtl:      cronCtl,
		sprints:      sprints,
		events:       eventsPublisher,
		advisor:      advisorClient,
		projectLocks:  newKeyedMutex(),
		cronLocks:     newKeyedMutex(),
		modeOverrides: newModeOverrideStore(),
		logger:        logger,
	}
}

// Config returns the process-wide configuration the Coordinator was
// constructed with, for read-only use by the HTTP layer (e.g. to report
// defaults before any per-project override has been set).
func (c *Coordinator) Config() config.Config {
	return c.cfg
}

// SetModeOverride installs a per-project decision-mode override, taking
// effect starting with that project's next Orchestrate call (spec §6.1,
// §8 "reflect the new mode on subsequent orchestrations only").
func (c *Coordinator) SetModeOverride(projectID string, o ModeOverride) {
	c.modeOverrides.Set(projectID, o)
}

// effectiveSettings resolves the mode/threshold/toggles to use for one
// orchestration: a per-project override if one has been set, otherwise
// the process-wide Config.
func (c *Coordinator) effectiveSettings(projectID string) (config.IntelligenceMode, float64, decide.Toggles) {
	if o, ok := c.modeOverrides.Get(projectID); ok {
		return o.Mode, o.ConfidenceThreshold, decide.Toggles{
			TaskCountAdjustment:      o.EnableTaskCountAdjustment,
			SprintDurationAdjustment: o.EnableSprintDurationAdjustment,
		}
	}
	return c.cfg.IntelligenceMode, c.cfg.ConfidenceThreshold, decide.Toggles{
		TaskCountAdjustment:      c.cfg.EnableTaskCountAdjustment,
		SprintDurationAdjustment: c.cfg.EnableSprintDurationAdjustment,
	}
}

// Orchestrate runs the full decision pipeline for one project_id. Steps
// 1–5 of spec §4.10 run under the per-project lock; episode writes are
// not separately locked since distinct episode ids never collide across
// concurrent requests for different projects.
func (c *Coordinator) Orchestrate(ctx context.Context, projectID string, opts Options) (Response, error) {
	unlock := c.projectLocks.Lock(projectID)
	defer unlock()

	start := time.Now()
	var metrics PerformanceMetrics

	// Step 1: Project Analyzer -> snapshot.
	t0 := time.Now()
	snapshot, err := c.analyzer.Analyze(ctx, projectID, opts.SprintDurationWeeks)
	metrics.AnalyzerDurationMs = time.Since(t0).Milliseconds()
	if err != nil {
		return Response{}, fmt.Errorf("orchestrator: analyze project %s: %w", projectID, err)
	}

	// Step 2: Pattern Engine -> pattern_analysis. The engine already
	// degrades internally (DataAvailable=false) on any retrieval failure,
	// so this step never itself fails the orchestration (spec §4.10
	// fallback semantics).
	t0 = time.Now()
	snapshot.PatternAnalysis = c.patterns.Analyze(ctx, snapshot, nil)
	metrics.PatternEngineDurationMs = time.Since(t0).Milliseconds()

	// Step 3: Rule-Based Planner -> baseline.
	plannerOpts := planner.Options{
		CreateSprintIfNeeded: opts.CreateSprintIfNeeded,
		AssignTasks:          opts.AssignTasks,
		CreateCronjob:        opts.CreateCronjob,
		SprintDurationWeeks:  opts.SprintDurationWeeks,
		MaxTasksPerSprint:    opts.MaxTasksPerSprint,
	}
	ruleBased := planner.Plan(snapshot, plannerOpts)
	baseline := planner.PlanApplied(snapshot, plannerOpts)

	// Step 4: conditionally Decision Modifier -> Confidence Gate -> apply.
	mode, confidenceThreshold, toggles := c.effectiveSettings(projectID)
	t0 = time.Now()
	decision, verdicts := c.decide(snapshot, ruleBased, baseline, mode, confidenceThreshold, toggles)
	metrics.DecisionDurationMs = time.Since(t0).Milliseconds()

	// Perform the applied decision's side effects (sprint create/close,
	// cronjob ensure/delete), recording a human-readable action per
	// effect actually taken.
	var actionsTaken []string
	sprintID, actions := c.applySprintActions(ctx, projectID, snapshot, &decision)
	actionsTaken = append(actionsTaken, actions...)
	actionsTaken = append(actionsTaken, c.applyCronActions(ctx, projectID, snapshot, &decision, sprintID, opts.Schedule)...)

	// Step 5: record episode, audit record, optional advisor.
	c.recordEpisode(ctx, projectID, snapshot, decision, sprintID, mode)
	c.auditor.Record(ctx, projectID, decision.IntelligenceAdjustments, verdicts, decision)

	var adv *advisor.Advisory
	if c.advisor != nil && c.cfg.AdvisorEnabled {
		t0 = time.Now()
		a := c.advisor.Advise(ctx, snapshot, decision)
		metrics.AdvisorDurationMs = time.Since(t0).Milliseconds()
		adv = &a
	}

	// Step 6: emit response and publish ORCHESTRATION_DECISION.
	reasoning := append(append([]string{}, decision.RuleBased.Reasoning...), actionsTaken...)
	if c.events != nil {
		c.events.PublishDecision(ctx, projectID, decision, reasoning, decision.Applied.Warnings)
	}

	metrics.TotalDurationMs = time.Since(start).Milliseconds()

	return Response{
		Analysis:             snapshot,
		Decisions:            decision,
		ActionsTaken:         actionsTaken,
		PerformanceMetrics:   metrics,
		IntelligenceMetadata: decision.IntelligenceMetadata,
		Advisory:             adv,
	}, nil
}

// decide runs the conditional intelligence path (spec §4.10 step 4): the
// Decision Modifier and Confidence Gate only run when intelligence mode
// is enabled and the snapshot offers a planning or active-sprint context
// to reason about. Otherwise the rule-based baseline is returned as-is
// with decision_source=rule_based_only.
func (c *Coordinator) decide(snapshot model.ProjectSnapshot, ruleBased model.RuleBasedDecision, baseline model.AppliedDecision, mode config.IntelligenceMode, confidenceThreshold float64, toggles decide.Toggles) (model.Decision, []decide.Verdict) {
	hasContext := baseline.CreateNewSprint || snapshot.CurrentActiveSprint != nil
	if mode == config.ModeRuleBasedOnly || !hasContext {
		return model.Decision{
			RuleBased:      ruleBased,
			Applied:        baseline,
			DecisionSource: model.DecisionSourceRuleBasedOnly,
			IntelligenceMetadata: model.IntelligenceMetadata{
				DecisionMode:            string(mode),
				FallbackAvailable:       true,
				SimilarProjectsAnalyzed: len(snapshot.PatternAnalysis.SimilarProjects),
				HistoricalDataQuality:   dataQuality(snapshot),
			},
		}, nil
	}

	candidates := c.modifier.Propose(snapshot, ruleBased, snapshot.PatternAnalysis, toggles)
	decision, verdicts := c.gate.Apply(ruleBased, baseline, candidates, confidenceThreshold, confidenceThreshold)
	decision.IntelligenceMetadata.DecisionMode = string(mode)
	decision.IntelligenceMetadata.FallbackAvailable = true
	decision.IntelligenceMetadata.SimilarProjectsAnalyzed = len(snapshot.PatternAnalysis.SimilarProjects)
	decision.IntelligenceMetadata.HistoricalDataQuality = dataQuality(snapshot)
	decision.IntelligenceMetadata.PredictionConfidence = snapshot.PatternAnalysis.OverallConfidence
	return decision, verdicts
}

func dataQuality(snapshot model.ProjectSnapshot) string {
	if !snapshot.PatternAnalysis.DataAvailable {
		return "insufficient"
	}
	if len(snapshot.PatternAnalysis.SimilarProjects) >= 3 {
		return "sufficient"
	}
	return "partial"
}

// applySprintActions performs sprint creation/closure through the sprint
// collaborator and returns the resulting sprint id (empty if none) plus
// human-readable action descriptions.
func (c *Coordinator) applySprintActions(ctx context.Context, projectID string, snapshot model.ProjectSnapshot, decision *model.Decision) (string, []string) {
	var actions []string

	if decision.Applied.SprintClosureTriggered && decision.Applied.SprintIDToClose != nil {
		sprintID := *decision.Applied.SprintIDToClose
		if err := c.sprints.CloseSprint(ctx, sprintID); err != nil {
			c.logger.Error("orchestrator: failed to close sprint", "project_id", projectID, "sprint_id", sprintID, "error", err)
			decision.Applied.Warnings = append(decision.Applied.Warnings, fmt.Sprintf("sprint closure failed: %v", err))
		} else {
			actions = append(actions, fmt.Sprintf("Closed sprint %s", sprintID))
			summary := fmt.Sprintf("sprint %s closed by orchestrator", sprintID)
			if err := c.sprints.CreateRetrospective(ctx, sprintID, summary); err != nil {
				c.logger.Error("orchestrator: failed to create retrospective", "project_id", projectID, "sprint_id", sprintID, "error", err)
			} else {
				actions = append(actions, fmt.Sprintf("Created retrospective for sprint %s", sprintID))
			}
		}
		return sprintID, actions
	}

	if decision.Applied.CreateNewSprint {
		result, err := c.sprints.CreateSprint(ctx, clients.SprintCreateRequest{
			ProjectID:           projectID,
			TasksToAssign:       decision.Applied.TasksToAssign,
			SprintDurationWeeks: decision.Applied.SprintDurationWeeks,
		})
		if err != nil {
			c.logger.Error("orchestrator: failed to create sprint", "project_id", projectID, "error", err)
			decision.Applied.Warnings = append(decision.Applied.Warnings, fmt.Sprintf("sprint creation failed: %v", err))
			decision.Applied.CreateNewSprint = false
			return "", actions
		}
		decision.Applied.SprintName = &result.Name
		actions = append(actions, fmt.Sprintf("Created sprint %s with %d tasks", result.Name, decision.Applied.TasksToAssign))
		return result.SprintID, actions
	}

	if snapshot.CurrentActiveSprint != nil {
		return snapshot.CurrentActiveSprint.SprintID, actions
	}
	return "", actions
}

// applyCronActions ensures or removes the daily-scrum cronjob for the
// relevant sprint, serialised per job name so concurrent requests
// targeting the same sprint never race on the scheduler (spec §5).
func (c *Coordinator) applyCronActions(ctx context.Context, projectID string, snapshot model.ProjectSnapshot, decision *model.Decision, sprintID, schedule string) []string {
	var actions []string

	if decision.Applied.SprintClosureTriggered && decision.Applied.SprintIDToClose != nil {
		name := cron.JobName(projectID, *decision.Applied.SprintIDToClose)
		unlock := c.cronLocks.Lock(name)
		defer unlock()

		deleted, err := c.cronCtl.Remove(ctx, projectID, *decision.Applied.SprintIDToClose)
		if err != nil {
			c.logger.Error("orchestrator: cron removal failed", "project_id", projectID, "job", name, "error", err)
			decision.Applied.Warnings = append(decision.Applied.Warnings, fmt.Sprintf("cronjob removal failed: %v", err))
			return actions
		}
		decision.Applied.CronjobDeleted = deleted
		if deleted {
			actions = append(actions, fmt.Sprintf("Deleted cronjob %s", name))
		}
		return actions
	}

	if !decision.Applied.CronjobCreated || sprintID == "" {
		return actions
	}

	name := cron.JobName(projectID, sprintID)
	unlock := c.cronLocks.Lock(name)
	defer unlock()

	created, err := c.cronCtl.EnsurePresent(ctx, projectID, sprintID, schedule)
	if err != nil {
		c.logger.Error("orchestrator: cron ensure failed", "project_id", projectID, "job", name, "error", err)
		decision.Applied.Warnings = append(decision.Applied.Warnings, fmt.Sprintf("cronjob ensure failed: %v", err))
		decision.Applied.CronjobCreated = false
		return actions
	}
	decision.Applied.CronjobCreated = created
	if created {
		actions = append(actions, fmt.Sprintf("Created cronjob %s", name))
	}
	return actions
}

// recordEpisode persists the decision as an episode in the Agent Memory
// Store. A storage or embedding failure is logged, never propagated:
// episode recording is best-effort relative to the orchestration result
// already committed to the caller.
func (c *Coordinator) recordEpisode(ctx context.Context, projectID string, snapshot model.ProjectSnapshot, decision model.Decision, sprintID string, mode config.IntelligenceMode) {
	headline := "no action taken"
	if len(decision.RuleBased.Reasoning) > 0 {
		headline = strings.Join(decision.RuleBased.Reasoning, "; ")
	}

	ep := model.Episode{
		ProjectID: projectID,
		Perception: model.Perception{
			ProjectID:              snapshot.ProjectID,
			ProjectStatus:          snapshot.ProjectStatus,
			TeamSize:               snapshot.TeamSize,
			BacklogTasks:           snapshot.BacklogTasks,
			UnassignedTasks:        snapshot.UnassignedTasks,
			ActiveSprintsCount:     snapshot.ActiveSprintsCount,
			TeamAvailabilityStatus: snapshot.TeamAvailability.Status,
		},
		Reasoning: model.Reasoning{
			PatternAnalysis:       snapshot.PatternAnalysis,
			DecisionPipelineState: string(decision.DecisionSource),
			Headline:              headline,
		},
		Action:         decision.Applied,
		AgentVersion:   agentVersion,
		ControlMode:    string(mode),
		DecisionSource: decision.DecisionSource,
	}
	if sprintID != "" {
		ep.SprintID = &sprintID
	}

	if _, err := c.memory.StoreEpisode(ctx, ep); err != nil {
		c.logger.Error("orchestrator: failed to store episode", "project_id", projectID, "error", err)
	}
}
