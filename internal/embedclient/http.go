package embedclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxResponseBody bounds how much of an embedding-service response we'll read (10 MB).
const maxResponseBody = 10 * 1024 * 1024

// ErrUpstream wraps a non-2xx response from the embedding service; treated
// as retriable by the resilience layer.
var ErrUpstream = errors.New("embedclient: upstream error")

// HTTPProvider talks to the embedding service's HTTP contract (spec §6.2):
// POST /embed, POST /embed/batch, GET /health.
type HTTPProvider struct {
	baseURL    string
	model      string
	dimensions int
	httpClient *http.Client
}

// NewHTTPProvider constructs a raw (non-breaker-wrapped) embedding provider.
func NewHTTPProvider(baseURL, model string, dimensions int, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if dimensions <= 0 {
		dimensions = 1024
	}
	return &HTTPProvider{
		baseURL:    baseURL,
		model:      model,
		dimensions: dimensions,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Dimensions returns the configured embedding vector size.
func (p *HTTPProvider) Dimensions() int { return p.dimensions }

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding      []float32 `json:"embedding"`
	Dimensions     int       `json:"dimensions"`
	Model          string    `json:"model"`
	GenerationTimeMs int64   `json:"generation_time_ms"`
}

// Embed generates a single embedding.
func (p *HTTPProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp embedResponse
	if err := p.post(ctx, "/embed", embedRequest{Text: text}, &resp); err != nil {
		return nil, fmt.Errorf("embedclient: embed: %w", err)
	}
	return resp.Embedding, nil
}

type embedBatchRequest struct {
	Texts []string `json:"texts"`
}

type embedBatchResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Count      int         `json:"count"`
}

// EmbedBatch generates embeddings for multiple texts in a single call.
func (p *HTTPProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var resp embedBatchResponse
	if err := p.post(ctx, "/embed/batch", embedBatchRequest{Texts: texts}, &resp); err != nil {
		return nil, fmt.Errorf("embedclient: embed batch: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedclient: expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}
	return resp.Embeddings, nil
}

type healthResponse struct {
	Status         string `json:"status"`
	OllamaAvailable bool  `json:"ollama_available"`
	ModelName      string `json:"model_name"`
}

// Health checks the embedding service's /health endpoint.
func (p *HTTPProvider) Health(ctx context.Context) error {
	var resp healthResponse
	if err := p.get(ctx, "/health", &resp); err != nil {
		return fmt.Errorf("embedclient: health: %w", err)
	}
	if resp.Status != "ok" && resp.Status != "healthy" {
		return fmt.Errorf("%w: status %q", ErrUpstream, resp.Status)
	}
	return nil
}

func (p *HTTPProvider) post(ctx context.Context, path string, reqBody, respBody any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return p.do(req, respBody)
}

func (p *HTTPProvider) get(ctx context.Context, path string, respBody any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return p.do(req, respBody)
}

func (p *HTTPProvider) do(req *http.Request, respBody any) error {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, string(respBytes))
	}

	if err := json.Unmarshal(respBytes, respBody); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
