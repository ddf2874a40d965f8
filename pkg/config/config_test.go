package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
server:
  addr: ":9090"
  max_upload_mb: 8

llm:
  base_url: "https://generativelanguage.googleapis.com/v1beta/openai/"
  model: "gemini-2.0-flash-exp"
  embedding_model: "text-embedding-004"
  max_tokens: 1000
  temperature: 0.5

database:
  url: "postgres://localhost:5432/test"
  table_name: "test_chunks"
  vector_dim: 768
  batch_size: 50

processor:
  chunk_size: 500
  chunk_overlap: 100
  remove_stopwords: true

scraper:
  max_depth: 5
  rate_limit: 1.5
  ignore_patterns:
    - "/test/"
  allowed_extensions:
    - ".html"
    - "/"

ui:
  streaming: true

logging:
  level: "debug"
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	// Keep ambient env vars from overriding file values
	t.Setenv("LLM_BASE_URL", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DOCCHAT_ADDR", "")

	// Test loading config
	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	// Verify loaded values
	assert.Equal(t, ":9090", config.Server.Addr)
	assert.Equal(t, 8, config.Server.MaxUploadMB)
	assert.Equal(t, "gemini-2.0-flash-exp", config.LLM.Model)
	assert.Equal(t, "text-embedding-004", config.LLM.EmbeddingModel)
	assert.Equal(t, 1000, config.LLM.MaxTokens)
	assert.Equal(t, 0.5, config.LLM.Temperature)
	assert.Equal(t, "postgres://localhost:5432/test", config.Database.URL)
	assert.Equal(t, 5, config.Scraper.MaxDepth)
	assert.Equal(t, 500, config.Processor.ChunkSize)
	assert.True(t, config.UI.Streaming)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestDefaults(t *testing.T) {
	config := &Config{}
	applyDefaults(config)

	assert.Equal(t, ":8080", config.Server.Addr)
	assert.Equal(t, "docchat_session", config.Server.SessionCookie)
	assert.Equal(t, "gemini-2.0-flash-exp", config.LLM.Model)
	assert.Equal(t, "chunks", config.Database.TableName)
	assert.Equal(t, 768, config.Database.VectorDim)
	assert.Equal(t, 1000, config.Processor.ChunkSize)
	assert.Equal(t, "info", config.Logging.Level)
}

func TestConfigValidation(t *testing.T) {
	valid := &Config{}
	applyDefaults(valid)
	assert.Empty(t, valid.Validate())

	invalid := &Config{}
	applyDefaults(invalid)
	invalid.LLM.BaseURL = ""
	invalid.LLM.MaxTokens = 50000
	invalid.LLM.Temperature = 3.0
	invalid.Database.VectorDim = -1

	errors := invalid.Validate()
	require.Len(t, errors, 4)
	assert.Contains(t, errors[0].Error(), "llm.base_url: LLM base URL is required")
	assert.Contains(t, errors[1].Error(), "max_tokens must be between 1 and 8192")
	assert.Contains(t, errors[2].Error(), "temperature must be between 0 and 2")
	assert.Contains(t, errors[3].Error(), "vector_dim must be positive")
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("LLM_BASE_URL", "http://env-llm:8000/v1")
	t.Setenv("LLM_API_KEY", "env-key")
	t.Setenv("DATABASE_URL", "postgres://env-db:5432/test")
	t.Setenv("DOCCHAT_ADDR", ":7070")

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "http://env-llm:8000/v1", config.LLM.BaseURL)
	assert.Equal(t, "env-key", config.LLM.APIKey)
	assert.Equal(t, "postgres://env-db:5432/test", config.Database.URL)
	assert.Equal(t, ":7070", config.Server.Addr)
}

func TestGeminiKeyFallback(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "gemini-key")

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "gemini-key", config.LLM.APIKey)
}
