// Package patterns implements the Pattern Engine: similarity search over
// historical episodes, velocity-trend regression and success-indicator
// aggregation (spec §4.3). All thresholds are read from config.Config —
// none are hardcoded.
package patterns

import (
	"context"
	"math"
	"sort"

	"github.com/sprintlabs/orchestrator/internal/config"
	"github.com/sprintlabs/orchestrator/internal/memory"
	"github.com/sprintlabs/orchestrator/internal/model"
)

// slopeEpsilon is the slope magnitude below which a velocity trend
// is considered stable rather than increasing/decreasing. It is a
// numerical-stability constant (distinguishing "no measurable slope" from
// floating point noise), not a business threshold, so unlike
// config.Config's thresholds it is not configurable.
const slopeEpsilon = 1e-6

// Engine is the Pattern Engine.
type Engine struct {
	store *memory.Store
	cfg   config.Config
}

// New constructs a Pattern Engine over the Agent Memory Store.
func New(store *memory.Store, cfg config.Config) *Engine {
	return &Engine{store: store, cfg: cfg}
}

// Analyze builds a PatternAnalysis for the given snapshot and the
// project's recent sprint velocities (oldest first). On any error from
// the Agent Memory Store, or when no similar project is found, Analyze
// returns a PatternAnalysis with DataAvailable=false that carries only
// the velocity trend, rather than failing the orchestration (spec §4.10:
// Pattern Engine failures degrade to rule_based_only).
func (e *Engine) Analyze(ctx context.Context, snapshot model.ProjectSnapshot, recentVelocities []float64) model.PatternAnalysis {
	similar, err := e.similarProjects(ctx, snapshot)
	if err != nil || len(similar) == 0 {
		return model.PatternAnalysis{
			DataAvailable:  false,
			VelocityTrends: e.velocityTrend(recentVelocities),
		}
	}

	trend := e.velocityTrend(recentVelocities)
	indicators := successIndicators(similar)

	return model.PatternAnalysis{
		DataAvailable:     true,
		SimilarProjects:   similar,
		VelocityTrends:    trend,
		SuccessIndicators: indicators,
		OverallConfidence: e.overallConfidence(similar, trend, indicators),
	}
}

// similarProjects retrieves candidate historical episodes via vector
// search and retains those at or above the configured similarity floor.
func (e *Engine) similarProjects(ctx context.Context, snapshot model.ProjectSnapshot) ([]model.SimilarProject, error) {
	episodes, err := e.store.FindSimilarEpisodes(ctx, "", summaryText(snapshot), e.cfg.MinSimilarProjects*3+5)
	if err != nil {
		return nil, err
	}

	var out []model.SimilarProject
	for _, ep := range episodes {
		if ep.Similarity < e.cfg.SimilarityFloor {
			continue
		}
		if ep.Outcome == nil {
			continue
		}
		sp := model.SimilarProject{
			ProjectID:       ep.ProjectID,
			SimilarityScore: ep.Similarity,
			TeamSize:        ep.Perception.TeamSize,
			CompletionRate:  ep.Outcome.CompletionRate,
		}
		if ep.Action.TasksToAssign > 0 {
			optimal := ep.Action.TasksToAssign
			sp.OptimalTaskCount = &optimal
		}
		out = append(out, sp)
	}
	return out, nil
}

// velocityTrend performs a linear regression over velocities (index as
// x), classifying the slope sign against slopeEpsilon. Confidence is the
// signed R²: positive when the trend is increasing, negative when
// decreasing. With fewer than 3 data points there isn't enough signal for
// a meaningful regression, so the trend is reported stable with low
// confidence instead of extrapolating from noise.
func (e *Engine) velocityTrend(velocities []float64) model.VelocityTrends {
	if len(velocities) < 3 {
		return model.VelocityTrends{
			TrendDirection: model.TrendStable,
			Confidence:     0.2,
			PatternNote:    "insufficient velocity history for regression",
		}
	}

	slope, r2 := linearRegression(velocities)

	direction := model.TrendStable
	switch {
	case slope > slopeEpsilon:
		direction = model.TrendIncreasing
	case slope < -slopeEpsilon:
		direction = model.TrendDecreasing
	}

	confidence := r2
	if slope < 0 {
		confidence = -r2
	}

	lo, hi := velocities[0], velocities[0]
	for _, v := range velocities {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	return model.VelocityTrends{
		CurrentTeamVelocity: velocities[len(velocities)-1],
		HistoricalRange:     [2]float64{lo, hi},
		TrendDirection:      direction,
		Confidence:          confidence,
	}
}

// successIndicators derives planning recommendations from retained
// similar projects: optimal task count and sprint duration are medians,
// success probability is a similarity-weighted mean of completion rate.
func successIndicators(similar []model.SimilarProject) model.SuccessIndicators {
	var tasks []int
	var durations []float64
	var weightedSum, weightTotal float64

	for _, sp := range similar {
		if sp.OptimalTaskCount != nil {
			tasks = append(tasks, *sp.OptimalTaskCount)
		}
		if sp.AvgSprintDurationDays > 0 {
			durations = append(durations, sp.AvgSprintDurationDays/7)
		}
		weightedSum += sp.CompletionRate * sp.SimilarityScore
		weightTotal += sp.SimilarityScore
	}

	var successProbability float64
	if weightTotal > 0 {
		successProbability = weightedSum / weightTotal
	}

	return model.SuccessIndicators{
		OptimalTasksPerSprint:     medianInt(tasks),
		RecommendedSprintDuration: int(math.Round(medianFloat(durations))),
		SuccessProbability:        successProbability,
	}
}

// overallConfidence is a weighted sum of contributing signals, each
// gated by its own configured minimum (spec §4.3).
func (e *Engine) overallConfidence(similar []model.SimilarProject, trend model.VelocityTrends, indicators model.SuccessIndicators) float64 {
	var total, weight float64

	if len(similar) >= e.cfg.MinSimilarProjects {
		sampleSignal := math.Min(1, float64(len(similar))/float64(e.cfg.MinSimilarProjects*2))
		total += sampleSignal * 0.4
		weight += 0.4
	}

	if math.Abs(trend.Confidence) > e.cfg.VelocityTrendMin {
		total += math.Abs(trend.Confidence) * 0.3
		weight += 0.3
	}

	if indicators.SuccessProbability > 0 {
		total += indicators.SuccessProbability * 0.3
		weight += 0.3
	}

	if weight == 0 {
		return 0
	}
	return total / weight
}

func linearRegression(ys []float64) (slope, r2 float64) {
	n := float64(len(ys))
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, 0
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n

	meanY := sumY / n
	var ssTot, ssRes float64
	for i, y := range ys {
		x := float64(i)
		pred := slope*x + intercept
		ssRes += (y - pred) * (y - pred)
		ssTot += (y - meanY) * (y - meanY)
	}
	if ssTot == 0 {
		return slope, 0
	}
	r2 = 1 - ssRes/ssTot
	if r2 < 0 {
		r2 = 0
	}
	return slope, r2
}

func medianInt(vals []int) int {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]int(nil), vals...)
	sort.Ints(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func medianFloat(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func summaryText(snapshot model.ProjectSnapshot) string {
	return snapshot.InsightsSummary
}
