package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/entitylink/internal/config"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{
		"ENTITYLINK_STORAGE_ENGINE",
		"ENTITYLINK_EMBEDDING_PROVIDER",
		"ENTITYLINK_TOP_K",
		"ENTITYLINK_MAX_DISTANCE",
		"ENTITYLINK_ACCEPTANCE_THRESHOLD",
	} {
		_ = os.Unsetenv(key)
	}

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Storage.StorageEngine)
	assert.Equal(t, "./data", cfg.Storage.DataPath)
	assert.Equal(t, "entities", cfg.Storage.EntityTable)
	assert.Equal(t, "aliases", cfg.Storage.AliasTable)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, "http://localhost:11434", cfg.Embedding.OllamaURL)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	assert.Equal(t, 10, cfg.Linking.TopK)
	assert.Equal(t, 0.5, cfg.Linking.MaxDistance)
	assert.Equal(t, 0.0, cfg.Linking.AcceptanceThreshold)
}

func TestLoadConfig_CanOverrideStorageEngine(t *testing.T) {
	t.Setenv("ENTITYLINK_STORAGE_ENGINE", "memory")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.StorageEngine)
}

func TestLoadConfig_LinkingOverrides(t *testing.T) {
	t.Setenv("ENTITYLINK_TOP_K", "25")
	t.Setenv("ENTITYLINK_MAX_DISTANCE", "-1")
	t.Setenv("ENTITYLINK_ACCEPTANCE_THRESHOLD", "0.35")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Linking.TopK)
	assert.Equal(t, -1.0, cfg.Linking.MaxDistance)
	assert.Equal(t, 0.35, cfg.Linking.AcceptanceThreshold)
}

func TestLoadConfig_MalformedNumberFallsBackToDefault(t *testing.T) {
	t.Setenv("ENTITYLINK_TOP_K", "not-a-number")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Linking.TopK,
		"Malformed integer must fall back to the default")
}

func TestLoadConfig_RejectsUnknownStorageEngine(t *testing.T) {
	t.Setenv("ENTITYLINK_STORAGE_ENGINE", "cassandra")

	_, err := config.LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_PostgresRequiresDSN(t *testing.T) {
	t.Setenv("ENTITYLINK_STORAGE_ENGINE", "postgres")
	_ = os.Unsetenv("ENTITYLINK_POSTGRES_DSN")

	_, err := config.LoadConfig()
	assert.Error(t, err, "postgres engine without a DSN must be rejected")

	t.Setenv("ENTITYLINK_POSTGRES_DSN", "postgres://localhost/entitylink")
	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/entitylink", cfg.Storage.PostgresDSN)
}

func TestLoadConfig_OpenAIRequiresAPIKey(t *testing.T) {
	t.Setenv("ENTITYLINK_EMBEDDING_PROVIDER", "openai")
	_ = os.Unsetenv("ENTITYLINK_OPENAI_API_KEY")

	_, err := config.LoadConfig()
	assert.Error(t, err, "openai provider without an API key must be rejected")

	t.Setenv("ENTITYLINK_OPENAI_API_KEY", "sk-test")
	_, err = config.LoadConfig()
	assert.NoError(t, err)
}

func TestLoadConfig_RejectsNonPositiveTopK(t *testing.T) {
	t.Setenv("ENTITYLINK_TOP_K", "0")
	_, err := config.LoadConfig()
	assert.Error(t, err)

	t.Setenv("ENTITYLINK_TOP_K", "-3")
	_, err = config.LoadConfig()
	assert.Error(t, err)
}
