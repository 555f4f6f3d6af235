package embedclient

import (
	"context"
	"errors"
)

// ErrNoProvider is returned by NoopProvider to signal that no real
// embedding provider is configured. Callers treat this as "no embedding
// available" rather than a transient failure (compare
// embedclient.Client's circuit-open path).
var ErrNoProvider = errors.New("embedclient: no provider configured (noop)")

// NoopProvider always fails; used when embedding is intentionally disabled
// (e.g. in tests or a degraded deployment mode).
type NoopProvider struct {
	dims int
}

// NewNoopProvider constructs a NoopProvider with the given dimensionality.
func NewNoopProvider(dims int) *NoopProvider {
	return &NoopProvider{dims: dims}
}

func (p *NoopProvider) Dimensions() int { return p.dims }

func (p *NoopProvider) Embed(_ context.Context, _ string) ([]float32, error) {
	return nil, ErrNoProvider
}

func (p *NoopProvider) EmbedBatch(_ context.Context, _ []string) ([][]float32, error) {
	return nil, ErrNoProvider
}

func (p *NoopProvider) Health(_ context.Context) error {
	return ErrNoProvider
}
