package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sprintlabs/orchestrator/internal/advisor"
	"github.com/sprintlabs/orchestrator/internal/analyzer"
	"github.com/sprintlabs/orchestrator/internal/audit"
	"github.com/sprintlabs/orchestrator/internal/clients"
	"github.com/sprintlabs/orchestrator/internal/config"
	"github.com/sprintlabs/orchestrator/internal/cron"
	"github.com/sprintlabs/orchestrator/internal/decide"
	"github.com/sprintlabs/orchestrator/internal/embedclient"
	"github.com/sprintlabs/orchestrator/internal/events"
	"github.com/sprintlabs/orchestrator/internal/memory"
	"github.com/sprintlabs/orchestrator/internal/orchestrator"
	"github.com/sprintlabs/orchestrator/internal/patterns"
	"github.com/sprintlabs/orchestrator/internal/ratelimit"
	"github.com/sprintlabs/orchestrator/internal/server"
	"github.com/sprintlabs/orchestrator/internal/storage"
	"github.com/sprintlabs/orchestrator/internal/telemetry"
	"github.com/sprintlabs/orchestrator/migrations"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := parseLogLevel(os.Getenv("ORCH_LOG_LEVEL"))
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Info("orchestrator starting", "version", version, "port", cfg.Port, "intelligence_mode", cfg.IntelligenceMode)

	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	db, err := storage.New(ctx, storage.Config{
		DSN:        cfg.DatabaseURL,
		MinConns:   int32(cfg.MemPoolMin),
		MaxConns:   int32(cfg.MemPoolMax),
		RecycleAge: int64(cfg.MemRecycleS),
	}, logger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	embedder := newEmbeddingProvider(cfg, logger)

	mem := memory.New(db, embedder, cfg.EpisodePersistenceOnEmbedFail, logger)
	az := analyzer.New(
		clients.NewHTTPProjectClient(cfg.ProjectServiceURL, 10*time.Second),
		clients.NewHTTPBacklogClient(cfg.BacklogServiceURL, 10*time.Second),
		clients.NewHTTPSprintClient(cfg.SprintServiceURL, 10*time.Second),
		logger,
	)
	sprintClient := clients.NewHTTPSprintClient(cfg.SprintServiceURL, 10*time.Second)
	schedulerClient := clients.NewHTTPSchedulerClient(cfg.SchedulerServiceURL, 10*time.Second)

	patternEngine := patterns.New(mem, cfg)
	evolver := patterns.NewEvolver(db, cfg, logger)
	if cfg.EnableStrategyEvolution {
		go strategyEvolutionLoop(ctx, evolver, logger)
	}

	modifier := decide.NewModifier(cfg)
	gate := decide.NewGate()
	auditor := audit.New(db, logger)
	cronCtl := cron.New(schedulerClient, cfg)

	var eventsPublisher *events.Publisher
	if cfg.NATSURL != "" {
		eventsPublisher, err = events.New(cfg.NATSURL, cfg.EventSubject, logger)
		if err != nil {
			logger.Warn("events: failed to connect to NATS, event publication disabled", "error", err)
			eventsPublisher = nil
		} else {
			defer eventsPublisher.Close()
		}
	}

	var advisorClient *advisor.Advisor
	if cfg.AdvisorEnabled {
		advisorClient = advisor.New(cfg.AdvisorServiceURL, cfg.AdvisorModel, cfg.AdvisorTimeout)
	}

	coordinator := orchestrator.New(
		cfg,
		az,
		patternEngine,
		modifier,
		gate,
		mem,
		auditor,
		cronCtl,
		sprintClient,
		eventsPublisher,
		advisorClient,
		logger,
	)

	var limiter *ratelimit.MemoryLimiter
	if cfg.RequestRateLimit > 0 {
		limiter = ratelimit.NewMemoryLimiter(float64(cfg.RequestRateLimit), cfg.RequestRateBurst)
		defer func() { _ = limiter.Close() }()
	}

	srv := server.New(server.Config{
		Coordinator: coordinator,
		Auditor:     auditor,
		Memory:      mem,
		Embedder:    embedder,
		Advisor:     advisorClient,
		Cfg:         cfg,
		Logger:      logger,
		RateLimiter: limiter,
	})

	go backfillLoop(ctx, mem, cfg, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	logger.Info("orchestrator shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}

	logger.Info("orchestrator stopped")
	return nil
}

func parseLogLevel(raw string) slog.Level {
	switch raw {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newEmbeddingProvider builds the production embedding provider: an
// HTTP-backed Embedding Client wrapped in a circuit breaker (spec §4.8).
// A missing base URL degrades to a noop provider rather than failing
// startup, matching the episode persistence policy's tolerance for
// missing embeddings.
func newEmbeddingProvider(cfg config.Config, logger *slog.Logger) embedclient.Provider {
	if cfg.EmbeddingBaseURL == "" {
		logger.Warn("embedding: no base URL configured, using noop provider")
		return embedclient.NewNoopProvider(cfg.EmbeddingDimensions)
	}
	return embedclient.New(embedclient.Config{
		BaseURL:          cfg.EmbeddingBaseURL,
		Dimensions:       cfg.EmbeddingDimensions,
		Timeout:          cfg.EmbeddingTimeout,
		MaxRetries:       cfg.EmbeddingMaxRetries,
		FailureThreshold: cfg.EmbeddingCircuitFailureThresh,
		CoolDown:         cfg.EmbeddingCircuitCoolDown,
	}, logger)
}

// strategyEvolutionLoop periodically runs the Strategy Evolver outside
// the decision path (spec §9: running it inline would create a cyclic
// learning/decisioning dependency).
func strategyEvolutionLoop(ctx context.Context, evolver *patterns.Evolver, logger *slog.Logger) {
	const interval = 1 * time.Hour
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			opCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			if err := evolver.Run(opCtx); err != nil {
				logger.Warn("strategy evolution run failed", "error", err)
			}
			cancel()
		}
	}
}

// backfillLoop periodically scans episodes that carry a sprint_id but
// have no recorded outcome, logging the backlog so an
// external sprint-closure webhook (out of scope here) has something to
// drive UpdateEpisodeOutcome against (spec §4.9, §9 async-learning open
// question).
func backfillLoop(ctx context.Context, mem *memory.Store, cfg config.Config, logger *slog.Logger) {
	if !cfg.EnableAsyncLearning {
		logger.Info("async learning: disabled")
		return
	}

	const interval = 15 * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			opCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
			episodes, err := mem.GetEpisodesWithoutOutcomes(opCtx, 100)
			cancel()
			if err != nil {
				logger.Warn("backfill: list episodes without outcomes failed", "error", err)
				continue
			}
			var eligible int
			for _, ep := range episodes {
				if ep.EligibleForBackfill() {
					eligible++
				}
			}
			if eligible > 0 {
				logger.Info("backfill: episodes awaiting outcome", "count", eligible)
			}
		}
	}
}
