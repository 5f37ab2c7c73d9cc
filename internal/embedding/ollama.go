package embedding

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

// OllamaConfig holds Ollama encoder configuration.
type OllamaConfig struct {
	// BaseURL is the base URL for the Ollama API (default: http://localhost:11434).
	BaseURL string

	// Model is the embedding model name (default: nomic-embed-text).
	Model string

	// Dimension is the expected vector length; 0 accepts whatever the
	// model returns.
	Dimension int

	// Timeout is the per-request timeout (default: 30s).
	Timeout time.Duration
}

// OllamaEncoder generates embeddings via a local Ollama instance. All HTTP
// calls go through a circuit breaker so a dead Ollama does not stall every
// resolve call behind connection timeouts.
type OllamaEncoder struct {
	cfg            OllamaConfig
	client         *http.Client
	circuitBreaker *CircuitBreaker
}

// NewOllamaEncoder creates an Ollama-backed encoder.
func NewOllamaEncoder(cfg OllamaConfig) *OllamaEncoder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "nomic-embed-text"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &OllamaEncoder{
		cfg:            cfg,
		client:         &http.Client{Timeout: cfg.Timeout},
		circuitBreaker: NewCircuitBreaker(),
	}
}

// embedRequest is the request body for POST /api/embed.
type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// embedResponse is the response from POST /api/embed. The embeddings field
// is a 2D array; single-input requests use the first entry.
type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Encode generates an embedding vector for the given text.
func (e *OllamaEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	result, err := e.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return e.encode(ctx, text)
	})
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return nil, fmt.Errorf("ollama: %w", err)
		}
		return nil, err
	}
	return result.([]float32), nil
}

func (e *OllamaEncoder) encode(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(embedRequest{Model: e.cfg.Model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("ollama: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.cfg.BaseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ollama: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama: send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama: status %d: %s", resp.StatusCode, string(respBody))
	}

	var respData embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return nil, fmt.Errorf("ollama: decode response: %w", err)
	}
	if len(respData.Embeddings) == 0 || len(respData.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("ollama: empty embedding for model %s", e.cfg.Model)
	}

	vec := respData.Embeddings[0]
	if e.cfg.Dimension > 0 && len(vec) != e.cfg.Dimension {
		return nil, fmt.Errorf("ollama: model %s returned dimension %d, configured %d",
			e.cfg.Model, len(vec), e.cfg.Dimension)
	}
	return vec, nil
}

// Dimension returns the configured vector length.
func (e *OllamaEncoder) Dimension() int {
	return e.cfg.Dimension
}

// Model returns the configured model name.
func (e *OllamaEncoder) Model() string {
	return e.cfg.Model
}

// Compile-time assertion.
var _ Encoder = (*OllamaEncoder)(nil)
