// Package embedclient is the Embedding Client: an HTTP client to the
// external embedding service with retry, timeout and circuit-breaker
// resilience (spec §4.8).
//
// The circuit breaker (sony/gobreaker) is shared, atomically-guarded state
// per Client. Both "decorator" and "scoped acquisition" usage are the same
// breaker object: Embed/EmbedBatch apply it as a decorator around the HTTP
// call; Breaker() exposes the underlying *gobreaker.CircuitBreaker so a
// caller that wants scoped acquisition semantics (check-then-record) can
// drive it directly — both paths observe identical state transitions.
package embedclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/sony/gobreaker"

	"github.com/sprintlabs/orchestrator/internal/apierr"
)

// Provider generates vector embeddings from text and reports health.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Health(ctx context.Context) error
	Dimensions() int
}

// Config controls retry and circuit-breaker behaviour (spec §6.5
// embedding.*).
type Config struct {
	BaseURL          string
	Model            string
	Dimensions       int
	Timeout          time.Duration
	MaxRetries       int
	FailureThreshold int
	CoolDown         time.Duration
}

// Client wraps an HTTPProvider with bounded retry and a circuit breaker.
type Client struct {
	inner      *HTTPProvider
	breaker    *gobreaker.CircuitBreaker
	maxRetries int
	logger     *slog.Logger
}

// New constructs a circuit-breaker-protected embedding client.
func New(cfg Config, logger *slog.Logger) *Client {
	inner := NewHTTPProvider(cfg.BaseURL, cfg.Model, cfg.Dimensions, cfg.Timeout)

	settings := gobreaker.Settings{
		Name:        "embedclient",
		MaxRequests: 1,
		Timeout:     cfg.CoolDown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.FailureThreshold)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("embedclient: circuit breaker state change", "from", from, "to", to)
		},
	}

	return &Client{
		inner:      inner,
		breaker:    gobreaker.NewCircuitBreaker(settings),
		maxRetries: cfg.MaxRetries,
		logger:     logger,
	}
}

// Breaker exposes the underlying circuit breaker for scoped-acquisition
// style usage.
func (c *Client) Breaker() *gobreaker.CircuitBreaker { return c.breaker }

// Dimensions returns the configured embedding dimensionality.
func (c *Client) Dimensions() int { return c.inner.Dimensions() }

// Embed generates a single embedding, retrying transient failures within
// the circuit breaker.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts, retrying transient
// failures with bounded exponential backoff, all within the circuit
// breaker's accounting.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return withRetry(ctx, c.maxRetries, func() ([][]float32, error) {
			return c.inner.EmbedBatch(ctx, texts)
		})
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apierr.Wrap(apierr.CircuitOpen, "embedding circuit open", err)
		}
		return nil, err
	}
	return result.([][]float32), nil
}

// Health checks the embedding service's health endpoint, bypassing the
// circuit breaker (readiness probes must reflect live upstream state).
func (c *Client) Health(ctx context.Context) error {
	return c.inner.Health(ctx)
}

// withRetry retries fn up to maxRetries times with jittered exponential
// backoff, honoring ctx cancellation.
func withRetry(ctx context.Context, maxRetries int, fn func() ([][]float32, error)) ([][]float32, error) {
	var lastErr error
	backoff := 100 * time.Millisecond
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			jitter := time.Duration(rand.Int64N(int64(backoff)))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff + jitter):
			}
			backoff *= 2
		}
		vecs, err := fn()
		if err == nil {
			return vecs, nil
		}
		lastErr = err
		if !isRetriable(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("embedclient: exhausted %d retries: %w", maxRetries, lastErr)
}

func isRetriable(err error) bool {
	if errors.Is(err, ErrUpstream) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr)
}
