package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 9090
  host: "0.0.0.0"
  allowed_origins: ["https://dash.example.com"]

logging:
  level: debug
  redact_pii: false

source:
  type: supabase
  limit: 250
  sessionize: true

supabase:
  url: "https://abc.supabase.co"
  key: "anon-key"

snapshot:
  interval_seconds: 60

assistant:
  provider: anthropic
  model: claude-3-5-haiku-latest
  max_tokens: 800
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, []string{"https://dash.example.com"}, cfg.Server.AllowedOrigins)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Redact())

	assert.Equal(t, "supabase", cfg.Source.Type)
	assert.Equal(t, 250, cfg.Source.Limit)
	assert.True(t, cfg.Source.Sessionize)
	assert.Equal(t, "https://abc.supabase.co", cfg.Supabase.URL)
	assert.Equal(t, "visitors", cfg.Supabase.Table)

	assert.Equal(t, time.Minute, cfg.Snapshot.Interval())
	assert.Equal(t, 2*time.Minute, cfg.Snapshot.LockTTL())

	assert.Equal(t, "anthropic", cfg.Assistant.Provider)
	assert.Equal(t, "claude-3-5-haiku-latest", cfg.Assistant.Model)
	assert.Equal(t, 800, cfg.Assistant.MaxTokens)
	assert.Equal(t, 0.7, cfg.Assistant.Temperature)
}

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	err := os.WriteFile(configPath, []byte("{}"), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Redact())
	assert.Equal(t, "static", cfg.Source.Type)
	assert.Equal(t, 4, cfg.DataNorm.Workers)
	assert.Equal(t, 1, cfg.DataNorm.DefaultPageViews)
	assert.Equal(t, 24*time.Hour, cfg.Companies.CacheTTL())
	assert.Equal(t, 5*time.Minute, cfg.Snapshot.Interval())
	assert.Equal(t, "openai", cfg.Assistant.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Assistant.Model)
	assert.Equal(t, 0.7, cfg.Assistant.Temperature)
	assert.Equal(t, 500, cfg.Assistant.MaxTokens)
}

func TestLoadNonExistent(t *testing.T) {
	_, err := Load("/non/existent/path/config.yaml")
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	err := os.WriteFile(configPath, []byte("invalid: yaml: content:"), 0644)
	require.NoError(t, err)

	_, err = Load(configPath)
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/visitors")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("VISITOR_SOURCE", "postgres")
	t.Setenv("PORT", "7070")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := LoadFromEnv("")
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/visitors", cfg.Database.URL)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, "sk-test", cfg.Assistant.OpenAI.APIKey)
	assert.Equal(t, "postgres", cfg.Source.Type)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestServerGetHost(t *testing.T) {
	t.Setenv("ECS_CONTAINER_METADATA_URI", "")
	t.Setenv("AWS_EXECUTION_ENV", "")
	t.Setenv("SERVER_HOST", "")

	c := ServerConfig{Host: "localhost", Port: 8080}
	assert.Equal(t, "localhost:8080", c.Addr())

	t.Setenv("ECS_CONTAINER_METADATA_URI", "http://169.254.170.2/v4")
	assert.Equal(t, "0.0.0.0", c.GetHost())
}

func TestStorageGetAWSProfile(t *testing.T) {
	t.Setenv("ECS_CONTAINER_METADATA_URI", "")
	t.Setenv("AWS_EXECUTION_ENV", "")

	c := StorageConfig{AWSProfile: "analytics"}
	t.Setenv("AWS_PROFILE_OVERRIDE", "")
	assert.Equal(t, "analytics", c.GetAWSProfile())

	t.Setenv("AWS_PROFILE_OVERRIDE", "iam")
	assert.Equal(t, "", c.GetAWSProfile())
}
