package server

import (
	"context"
	"net/http"
	"time"

	"github.com/sprintlabs/orchestrator/internal/apierr"
	"github.com/sprintlabs/orchestrator/internal/config"
	"github.com/sprintlabs/orchestrator/internal/orchestrator"
)

// Handlers holds the dependencies every route handler needs.
type Handlers struct {
	cfg Config
}

func newHandlers(cfg Config) *Handlers {
	return &Handlers{cfg: cfg}
}

// orchestrateRequest is the POST /orchestrate/project/{project_id} body
// (spec §6.1).
type orchestrateRequest struct {
	Action  string            `json:"action"`
	Options orchestrateOptions `json:"options"`
}

type orchestrateOptions struct {
	CreateSprintIfNeeded bool   `json:"create_sprint_if_needed"`
	AssignTasks          bool   `json:"assign_tasks"`
	CreateCronjob        bool   `json:"create_cronjob"`
	Schedule             string `json:"schedule"`
	SprintDurationWeeks  int    `json:"sprint_duration_weeks"`
	MaxTasksPerSprint    int    `json:"max_tasks_per_sprint"`
}

func (h *Handlers) handleOrchestrate(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project_id")
	if projectID == "" {
		writeError(w, r, http.StatusBadRequest, apierr.BadRequest, "project_id is required")
		return
	}

	var req orchestrateRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req, h.cfg.Cfg.MaxRequestBodyBytes); err != nil {
			writeError(w, r, http.StatusBadRequest, apierr.BadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	opts := orchestrator.Options{
		CreateSprintIfNeeded: req.Options.CreateSprintIfNeeded,
		AssignTasks:          req.Options.AssignTasks,
		CreateCronjob:        req.Options.CreateCronjob,
		Schedule:             req.Options.Schedule,
		SprintDurationWeeks:  req.Options.SprintDurationWeeks,
		MaxTasksPerSprint:    req.Options.MaxTasksPerSprint,
	}
	if opts.SprintDurationWeeks <= 0 {
		opts.SprintDurationWeeks = defaultSprintDurationWeeks
	}
	if opts.MaxTasksPerSprint <= 0 {
		opts.MaxTasksPerSprint = h.cfg.Cfg.MaxTasksPerSprint
	}
	if opts.Schedule == "" {
		opts.Schedule = h.cfg.Cfg.CronDefaultSchedule
	}
	if opts.MaxTasksPerSprint <= 0 {
		writeError(w, r, http.StatusBadRequest, apierr.BadRequest, "max_tasks_per_sprint must be positive")
		return
	}

	resp, err := h.cfg.Coordinator.Orchestrate(r.Context(), projectID, opts)
	if err != nil {
		kind := apierr.KindOf(err)
		status := apierr.HTTPStatus(kind)
		h.cfg.Logger.Error("orchestrate failed", "project_id", projectID, "error", err, "kind", kind)
		writeError(w, r, status, kind, err.Error())
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}

const defaultSprintDurationWeeks = 2

// decisionImpactResponse reports aggregate rule-based vs
// intelligence-enhanced outcomes for a project (spec §6.1).
type decisionImpactResponse struct {
	ProjectID                     string           `json:"project_id"`
	RecordsAnalyzed               int              `json:"records_analyzed"`
	RuleBasedCount                int              `json:"rule_based_count"`
	IntelligenceCount             int              `json:"intelligence_enhanced_count"`
	AdjustmentsApplied            int              `json:"adjustments_applied"`
	AdjustmentAdoptionRatePercent float64          `json:"adjustment_adoption_rate_percent"`
	AverageConfidence             float64          `json:"average_confidence"`
	ComparisonReport              comparisonReport `json:"comparison_report"`
}

type comparisonReport struct {
	Message string `json:"message,omitempty"`
}

func (h *Handlers) handleDecisionImpact(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project_id")
	records, err := h.cfg.Auditor.ListByProject(r.Context(), projectID, 200)
	if err != nil {
		kind := apierr.KindOf(err)
		writeError(w, r, apierr.HTTPStatus(kind), kind, err.Error())
		return
	}

	if len(records) == 0 {
		writeJSON(w, r, http.StatusOK, decisionImpactResponse{
			ProjectID: projectID,
			ComparisonReport: comparisonReport{
				Message: "insufficient decision history to compare rule-based and intelligence-enhanced outcomes",
			},
		})
		return
	}

	var ruleBased, intelligenceEnhanced, adjustmentsApplied int
	var confidenceSum float64
	for _, rec := range records {
		if rec.ConfidenceScores.OverallDecisionConfidence > 0 {
			confidenceSum += rec.ConfidenceScores.OverallDecisionConfidence
		}
		if rec.CandidateAdjustments.Empty() {
			ruleBased++
			continue
		}
		intelligenceEnhanced++
		adjustmentsApplied += rec.CandidateAdjustments.Count()
	}

	adoptionRate := 0.0
	if len(records) > 0 {
		adoptionRate = 100 * float64(intelligenceEnhanced) / float64(len(records))
	}
	avgConfidence := 0.0
	if len(records) > 0 {
		avgConfidence = confidenceSum / float64(len(records))
	}

	writeJSON(w, r, http.StatusOK, decisionImpactResponse{
		ProjectID:                     projectID,
		RecordsAnalyzed:               len(records),
		RuleBasedCount:                ruleBased,
		IntelligenceCount:             intelligenceEnhanced,
		AdjustmentsApplied:            adjustmentsApplied,
		AdjustmentAdoptionRatePercent: adoptionRate,
		AverageConfidence:             avgConfidence,
	})
}

// decisionModeRequest is the POST .../decision-mode body (spec §6.1).
type decisionModeRequest struct {
	Mode                           string  `json:"mode"`
	ConfidenceThreshold            float64 `json:"confidence_threshold"`
	EnableTaskCountAdjustment      *bool   `json:"enable_task_count_adjustment"`
	EnableSprintDurationAdjustment *bool   `json:"enable_sprint_duration_adjustment"`
}

type decisionModeResponse struct {
	ProjectID                      string  `json:"project_id"`
	Mode                           string  `json:"mode"`
	ConfidenceThreshold            float64 `json:"confidence_threshold"`
	EnableTaskCountAdjustment      bool    `json:"enable_task_count_adjustment"`
	EnableSprintDurationAdjustment bool    `json:"enable_sprint_duration_adjustment"`
}

func (h *Handlers) handleDecisionMode(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project_id")

	var req decisionModeRequest
	if err := decodeJSON(r, &req, h.cfg.Cfg.MaxRequestBodyBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, apierr.BadRequest, "invalid request body: "+err.Error())
		return
	}

	mode := config.IntelligenceMode(req.Mode)
	switch mode {
	case config.ModeRuleBasedOnly, config.ModeIntelligenceEnhanced, config.ModeHybrid:
	default:
		writeError(w, r, http.StatusBadRequest, apierr.BadRequest, "mode must be one of rule_based_only, intelligence_enhanced, hybrid")
		return
	}

	defaults := h.cfg.Coordinator.Config()
	threshold := req.ConfidenceThreshold
	if threshold <= 0 {
		threshold = defaults.ConfidenceThreshold
	}
	enableTaskCount := defaults.EnableTaskCountAdjustment
	if req.EnableTaskCountAdjustment != nil {
		enableTaskCount = *req.EnableTaskCountAdjustment
	}
	enableSprintDuration := defaults.EnableSprintDurationAdjustment
	if req.EnableSprintDurationAdjustment != nil {
		enableSprintDuration = *req.EnableSprintDurationAdjustment
	}

	h.cfg.Coordinator.SetModeOverride(projectID, orchestrator.ModeOverride{
		Mode:                           mode,
		ConfidenceThreshold:            threshold,
		EnableTaskCountAdjustment:      enableTaskCount,
		EnableSprintDurationAdjustment: enableSprintDuration,
	})

	writeJSON(w, r, http.StatusOK, decisionModeResponse{
		ProjectID:                      projectID,
		Mode:                           string(mode),
		ConfidenceThreshold:            threshold,
		EnableTaskCountAdjustment:      enableTaskCount,
		EnableSprintDurationAdjustment: enableSprintDuration,
	})
}

func (h *Handlers) handleDecisionAudit(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project_id")
	records, err := h.cfg.Auditor.ListByProject(r.Context(), projectID, 100)
	if err != nil {
		kind := apierr.KindOf(err)
		writeError(w, r, apierr.HTTPStatus(kind), kind, err.Error())
		return
	}
	if len(records) == 0 {
		writeJSON(w, r, http.StatusOK, map[string]string{"detail": "No decision audit records found"})
		return
	}
	writeJSON(w, r, http.StatusOK, records)
}

// performanceMetricsResponse reports component latency and intelligence
// adoption metrics for a project (spec §6.1).
type performanceMetricsResponse struct {
	ProjectID       string          `json:"project_id"`
	ComponentMetrics componentMetrics `json:"component_metrics"`
	AdoptionMetrics adoptionMetrics  `json:"adoption_metrics"`
	ConfidenceThreshold float64      `json:"confidence_threshold"`
}

type componentMetrics struct {
	RecordsAnalyzed int `json:"records_analyzed"`
}

type adoptionMetrics struct {
	IntelligenceInvocations   int     `json:"intelligence_invocations"`
	RecommendationsGenerated int     `json:"recommendations_generated"`
	AdjustmentsApplied       int     `json:"adjustments_applied"`
	ApplicationRatePercent   float64 `json:"application_rate_percent"`
}

func (h *Handlers) handlePerformanceMetrics(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project_id")
	records, err := h.cfg.Auditor.ListByProject(r.Context(), projectID, 500)
	if err != nil {
		kind := apierr.KindOf(err)
		writeError(w, r, apierr.HTTPStatus(kind), kind, err.Error())
		return
	}

	var invocations, recommended, applied int
	for _, rec := range records {
		if rec.CandidateAdjustments.Empty() {
			continue
		}
		invocations++
		recommended += len(rec.GateVerdicts)
		applied += rec.CandidateAdjustments.Count()
	}
	rate := 0.0
	if recommended > 0 {
		rate = 100 * float64(applied) / float64(recommended)
	}

	writeJSON(w, r, http.StatusOK, performanceMetricsResponse{
		ProjectID:           projectID,
		ComponentMetrics:    componentMetrics{RecordsAnalyzed: len(records)},
		ConfidenceThreshold: h.cfg.Coordinator.Config().ConfidenceThreshold,
		AdoptionMetrics: adoptionMetrics{
			IntelligenceInvocations:   invocations,
			RecommendationsGenerated:  recommended,
			AdjustmentsApplied:        applied,
			ApplicationRatePercent:    rate,
		},
	})
}

type readyResponse struct {
	Status            string            `json:"status"`
	Pool              poolStatusView    `json:"pool"`
	ExternalServices   map[string]string `json:"external_services"`
}

type poolStatusView struct {
	Size int32 `json:"size"`
	Idle int32 `json:"idle"`
	Busy int32 `json:"busy"`
	Max  int32 `json:"max"`
}

func (h *Handlers) handleHealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	external := map[string]string{}
	healthy := true

	if err := h.cfg.Memory.Health(ctx); err != nil {
		external["embedding"] = "unhealthy: " + err.Error()
		healthy = false
	} else {
		external["embedding"] = "ok"
	}

	if h.cfg.Cfg.AdvisorEnabled {
		if h.cfg.Advisor == nil {
			external["llm"] = "disabled"
		} else {
			external["llm"] = "configured"
		}
	}

	pool := h.cfg.Memory.PoolStatus()
	status := "ready"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, r, code, readyResponse{
		Status: status,
		Pool: poolStatusView{
			Size: pool.Size,
			Idle: pool.Idle,
			Busy: pool.Busy,
			Max:  pool.Max,
		},
		ExternalServices: external,
	})
}
