// Package advisor implements the AI Advisor: an optional, non-blocking
// post-decision call to an LLM endpoint that produces a narrative
// summary and risk assessment (spec §4.12). A timeout or error always
// degrades to a disabled advisory rather than failing the orchestration.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sprintlabs/orchestrator/internal/model"
)

const maxResponseBody = 1 << 20 // 1MB

// RiskLevel is the advisor's qualitative risk assessment.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Advisory is the AI Advisor's output, always present in the
// orchestration response (possibly disabled).
type Advisory struct {
	Enabled          bool      `json:"enabled"`
	Summary          string    `json:"summary,omitempty"`
	Recommendations  []string  `json:"recommendations,omitempty"`
	RiskAssessment   RiskLevel `json:"risk_assessment,omitempty"`
	GenerationTimeMs int64     `json:"generation_time_ms,omitempty"`
	Error            string    `json:"error,omitempty"`
}

// Advisor calls the configured LLM endpoint.
type Advisor struct {
	httpClient *http.Client
	serviceURL string
	model      string
	timeout    time.Duration
}

// New constructs an AI Advisor. Pass enabled=false at the call site (not
// here) when the feature flag is off — this type always attempts the
// call it's asked to make.
func New(serviceURL, modelName string, timeout time.Duration) *Advisor {
	return &Advisor{
		httpClient: &http.Client{Timeout: timeout},
		serviceURL: serviceURL,
		model:      modelName,
		timeout:    timeout,
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// Advise calls the LLM endpoint with a structured prompt built from the
// decision and snapshot, bounded by the configured timeout. On any
// failure it returns a disabled Advisory with the error recorded, never
// an error the caller must handle specially.
func (a *Advisor) Advise(ctx context.Context, snapshot model.ProjectSnapshot, decision model.Decision) Advisory {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	prompt := buildPrompt(snapshot, decision)
	body, err := json.Marshal(generateRequest{Model: a.model, Prompt: prompt})
	if err != nil {
		return Advisory{Enabled: false, Error: fmt.Sprintf("advisor: marshal request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.serviceURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return Advisory{Enabled: false, Error: fmt.Sprintf("advisor: build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return Advisory{Enabled: false, Error: fmt.Sprintf("advisor: request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Advisory{Enabled: false, Error: fmt.Sprintf("advisor: upstream status %d", resp.StatusCode)}
	}

	text, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return Advisory{Enabled: false, Error: fmt.Sprintf("advisor: read response: %v", err)}
	}

	advisory := parseResponse(string(text))
	advisory.Enabled = true
	advisory.GenerationTimeMs = time.Since(start).Milliseconds()
	return advisory
}

func buildPrompt(snapshot model.ProjectSnapshot, decision model.Decision) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project %s: %s\n", snapshot.ProjectID, snapshot.InsightsSummary)
	fmt.Fprintf(&b, "Decision source: %s\n", decision.DecisionSource)
	fmt.Fprintf(&b, "Tasks to assign: %d, sprint duration weeks: %d\n",
		decision.Applied.TasksToAssign, decision.Applied.SprintDurationWeeks)
	if len(decision.RuleBased.Reasoning) > 0 {
		fmt.Fprintf(&b, "Reasoning: %s\n", strings.Join(decision.RuleBased.Reasoning, "; "))
	}
	b.WriteString("Summarize this decision, list any recommendations, and assess risk as Low, Medium, or High.\n")
	return b.String()
}

// parseResponse extracts a summary, recommendations and risk level from
// the LLM's free-text response. The expected shape is loosely
// structured: a summary paragraph, a "Recommendations:" bullet list and
// a line naming the risk level; anything not recognised is folded into
// the summary rather than discarded.
func parseResponse(text string) Advisory {
	lines := strings.Split(text, "\n")
	var summary []string
	var recs []string
	risk := RiskLow

	inRecs := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		switch {
		case strings.HasPrefix(lower, "recommendation"):
			inRecs = true
		case strings.Contains(lower, "risk"):
			inRecs = false
			switch {
			case strings.Contains(lower, "high"):
				risk = RiskHigh
			case strings.Contains(lower, "medium"):
				risk = RiskMedium
			default:
				risk = RiskLow
			}
		case inRecs && (strings.HasPrefix(trimmed, "-") || strings.HasPrefix(trimmed, "*")):
			recs = append(recs, strings.TrimSpace(strings.TrimLeft(trimmed, "-* ")))
		case trimmed != "":
			summary = append(summary, trimmed)
		}
	}

	return Advisory{
		Summary:         strings.Join(summary, " "),
		Recommendations: recs,
		RiskAssessment:  risk,
	}
}
