package patterns

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sprintlabs/orchestrator/internal/config"
	"github.com/sprintlabs/orchestrator/internal/model"
	"github.com/sprintlabs/orchestrator/internal/storage"
)

// Evolver is the Strategy Evolver: a periodic, read-only-of-episodes job
// that promotes, deprecates or retires strategies based on observed
// success_rate and contradictions. It never writes episodes and is never
// called inline from the decision path — this breaks the cyclic
// dependency between learning and decisioning that a direct
// strategy-update-on-decide call would introduce (spec §9).
type Evolver struct {
	db     *storage.DB
	cfg    config.Config
	logger *slog.Logger
}

// NewEvolver constructs a Strategy Evolver.
func NewEvolver(db *storage.DB, cfg config.Config, logger *slog.Logger) *Evolver {
	return &Evolver{db: db, cfg: cfg, logger: logger}
}

// RecordOutcome is called after an applied strategy's outcome becomes
// known (via episode outcome back-fill): it updates the strategy's
// application counters and, if the outcome was poor, records the episode
// as contradicting.
func (v *Evolver) RecordOutcome(ctx context.Context, strategyID, episodeID uuid.UUID, success bool) error {
	if err := v.db.RecordStrategyApplication(ctx, strategyID, success); err != nil {
		return fmt.Errorf("evolver: record application: %w", err)
	}
	if !success {
		if err := v.db.AddContradictingEpisode(ctx, strategyID, episodeID); err != nil {
			return fmt.Errorf("evolver: record contradiction: %w", err)
		}
	}
	return nil
}

// Run evaluates the lifecycle state of every strategy that
// strategiesToEvaluate returns against the configured retirement
// thresholds and transitions it if warranted. Intended to be invoked on a periodic schedule (spec §5:
// "periodic evolver that only reads episodes and writes strategies").
func (v *Evolver) Run(ctx context.Context) error {
	for _, knowledgeType := range []string{"strategy"} {
		strategies, err := v.strategiesToEvaluate(ctx, knowledgeType)
		if err != nil {
			return err
		}
		for _, s := range strategies {
			next, confidence := v.evaluate(s)
			if next == s.Lifecycle {
				continue
			}
			if err := v.db.UpdateStrategyLifecycle(ctx, s.KnowledgeID, next, confidence); err != nil {
				v.logger.Error("evolver: failed to transition strategy lifecycle",
					"knowledge_id", s.KnowledgeID, "from", s.Lifecycle, "to", next, "error", err)
			}
		}
	}
	return nil
}

// strategiesToEvaluate returns the strategies with is_active = true, that
// is the ACTIVE ones. PROPOSED, DEPRECATED and RETIRED strategies are
// stored with is_active = false and are not returned, so Run does not
// move them.
func (v *Evolver) strategiesToEvaluate(ctx context.Context, knowledgeType string) ([]model.Strategy, error) {
	active, err := v.db.GetActiveStrategies(ctx, knowledgeType)
	if err != nil {
		return nil, fmt.Errorf("evolver: list strategies: %w", err)
	}
	return active, nil
}

// evaluate applies the configured retirement thresholds (spec §9
// resolved open question): a strategy accumulating
// StrategyRetireContradictionCount contradictions, or whose success rate
// falls below StrategyRetireThreshold after being applied at least once,
// is retired. A PROPOSED strategy with a high enough success rate and
// enough applications graduates to ACTIVE.
func (v *Evolver) evaluate(s model.Strategy) (model.StrategyLifecycle, float64) {
	if len(s.ContradictingEpisodes) >= v.cfg.StrategyRetireContradictionCount {
		return model.StrategyRetired, 0
	}

	rate, hasRate := s.SuccessRate()
	if hasRate && rate < v.cfg.StrategyRetireThreshold {
		return model.StrategyRetired, rate
	}

	switch s.Lifecycle {
	case model.StrategyProposed:
		if hasRate && rate >= v.cfg.ConfidenceThreshold && s.TimesApplied >= v.cfg.MinSimilarProjects {
			return model.StrategyActive, rate
		}
		return model.StrategyProposed, s.Confidence
	case model.StrategyActive:
		if hasRate && rate < v.cfg.ConfidenceThreshold {
			return model.StrategyDeprecated, rate
		}
		return model.StrategyActive, rate
	case model.StrategyDeprecated:
		if hasRate && rate >= v.cfg.ConfidenceThreshold {
			return model.StrategyActive, rate
		}
		return model.StrategyDeprecated, s.Confidence
	default:
		return s.Lifecycle, s.Confidence
	}
}
