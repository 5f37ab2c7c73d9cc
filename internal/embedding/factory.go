package embedding

import "fmt"

// Config selects and tunes the encoder stack.
type Config struct {
	// Provider is one of "ollama", "openai" or "hash".
	Provider string

	// BaseURL overrides the provider's default endpoint.
	BaseURL string

	// APIKey authenticates against hosted providers (OpenAI).
	APIKey string

	// Model is the embedding model name; empty uses the provider default.
	Model string

	// Dimension is the expected vector length; 0 accepts the model's.
	Dimension int

	// CacheSize enables the LRU encode cache when > 0.
	CacheSize int

	// RateLimit enables request throttling (requests/second) when > 0.
	RateLimit float64

	// RateBurst is the limiter burst size (default 1).
	RateBurst int
}

// NewEncoder builds the encoder for cfg: the provider client, wrapped with
// a rate limiter and an LRU cache when configured. The cache sits
// outermost so cache hits skip the limiter entirely.
func NewEncoder(cfg Config) (Encoder, error) {
	var enc Encoder
	switch cfg.Provider {
	case "openai":
		enc = NewOpenAIEncoder(OpenAIConfig{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			BaseURL:   cfg.BaseURL,
			Dimension: cfg.Dimension,
		})
	case "ollama", "":
		enc = NewOllamaEncoder(OllamaConfig{
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
		})
	case "hash":
		enc = NewHashEncoder(cfg.Dimension)
	default:
		return nil, fmt.Errorf("embedding: unsupported provider %q", cfg.Provider)
	}

	if cfg.RateLimit > 0 {
		enc = NewRateLimitedEncoder(enc, cfg.RateLimit, cfg.RateBurst)
	}
	if cfg.CacheSize > 0 {
		cached, err := NewCachedEncoder(enc, cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("embedding: encode cache: %w", err)
		}
		enc = cached
	}
	return enc, nil
}
