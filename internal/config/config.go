// Package config provides configuration management for entitylink.
// It loads settings from environment variables with the ENTITYLINK_ prefix
// and provides sensible defaults for all configuration options.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration settings for the entitylink application.
type Config struct {
	Storage   StorageConfig
	Embedding EmbeddingConfig
	Linking   LinkingConfig
}

// StorageConfig contains vector-table backend configuration.
type StorageConfig struct {
	StorageEngine string // Storage engine: memory, sqlite, postgres (default: sqlite)
	DataPath      string // Path to data directory for sqlite (default: ./data)
	PostgresDSN   string // Postgres connection string, required for the postgres engine
	EntityTable   string // Table name for entity rows (default: entities)
	AliasTable    string // Table name for alias rows (default: aliases)
}

// EmbeddingConfig contains encoder configuration.
type EmbeddingConfig struct {
	Provider     string  // Embedding provider: ollama, openai, hash (default: ollama)
	OllamaURL    string  // Ollama API URL (default: http://localhost:11434)
	Model        string  // Embedding model name (default: nomic-embed-text)
	OpenAIAPIKey string  // OpenAI API key
	Dimension    int     // Expected embedding dimension, 0 accepts whatever the provider returns
	CacheSize    int     // LRU cache entries for encoded texts, 0 disables (default: 4096)
	RateLimit    float64 // Encoder requests per second, 0 disables rate limiting
	RateBurst    int     // Rate limiter burst size (default: 1 when rate limiting is on)
}

// LinkingConfig contains candidate generation and resolution settings.
type LinkingConfig struct {
	TopK                int     // Alias matches requested per mention (default: 10)
	MaxDistance         float64 // Cosine distance bound on alias matches (default: 0.5, negative disables)
	AcceptanceThreshold float64 // Minimum combined score to accept a link (default: 0)
}

// LoadConfig loads configuration from environment variables with sensible
// defaults. All environment variables use the ENTITYLINK_ prefix.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Storage: StorageConfig{
			StorageEngine: getEnv("ENTITYLINK_STORAGE_ENGINE", "sqlite"),
			DataPath:      getEnv("ENTITYLINK_DATA_PATH", "./data"),
			PostgresDSN:   getEnv("ENTITYLINK_POSTGRES_DSN", ""),
			EntityTable:   getEnv("ENTITYLINK_ENTITY_TABLE", "entities"),
			AliasTable:    getEnv("ENTITYLINK_ALIAS_TABLE", "aliases"),
		},
		Embedding: EmbeddingConfig{
			Provider:     getEnv("ENTITYLINK_EMBEDDING_PROVIDER", "ollama"),
			OllamaURL:    getEnv("ENTITYLINK_OLLAMA_URL", "http://localhost:11434"),
			Model:        getEnv("ENTITYLINK_EMBEDDING_MODEL", "nomic-embed-text"),
			OpenAIAPIKey: getEnv("ENTITYLINK_OPENAI_API_KEY", ""),
			Dimension:    getEnvInt("ENTITYLINK_EMBEDDING_DIMENSION", 0),
			CacheSize:    getEnvInt("ENTITYLINK_ENCODE_CACHE_SIZE", 4096),
			RateLimit:    getEnvFloat("ENTITYLINK_ENCODE_RATE_LIMIT", 0),
			RateBurst:    getEnvInt("ENTITYLINK_ENCODE_RATE_BURST", 1),
		},
		Linking: LinkingConfig{
			TopK:                getEnvInt("ENTITYLINK_TOP_K", 10),
			MaxDistance:         getEnvFloat("ENTITYLINK_MAX_DISTANCE", 0.5),
			AcceptanceThreshold: getEnvFloat("ENTITYLINK_ACCEPTANCE_THRESHOLD", 0),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate rejects configurations that cannot be wired into a running
// knowledge base rather than letting them fail deep in a backend.
func (c *Config) validate() error {
	switch c.Storage.StorageEngine {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unknown storage engine %q", c.Storage.StorageEngine)
	}
	if c.Storage.StorageEngine == "postgres" && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("config: ENTITYLINK_POSTGRES_DSN is required for the postgres engine")
	}

	switch c.Embedding.Provider {
	case "ollama", "openai", "hash":
	default:
		return fmt.Errorf("config: unknown embedding provider %q", c.Embedding.Provider)
	}
	if c.Embedding.Provider == "openai" && c.Embedding.OpenAIAPIKey == "" {
		return fmt.Errorf("config: ENTITYLINK_OPENAI_API_KEY is required for the openai provider")
	}

	if c.Linking.TopK <= 0 {
		return fmt.Errorf("config: ENTITYLINK_TOP_K must be positive, got %d", c.Linking.TopK)
	}
	return nil
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as an integer,
// it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as a float,
// it returns the default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
