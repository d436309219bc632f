package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LUMEN_DB", "LUMEN_ADDR", "LUMEN_LOG_LEVEL", "LUMEN_LOG_FORMAT", "LUMEN_LLM_PROVIDER",
		"GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENROUTER_API_KEY",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad(t *testing.T) {
	clearProviderEnv(t)
	path := writeConfig(t, `
server:
  addr: ":9000"
database:
  path: /tmp/lumen-test.db
llm:
  provider: mock
  retry:
    max_retries: 5
    base_delay: 1s
queue:
  enabled: true
  poll_interval: 2s
study:
  deck_size: 20
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "/tmp/lumen-test.db", cfg.Database.Path)
	assert.Equal(t, "mock", cfg.LLM.Provider)
	assert.Equal(t, 5, cfg.LLM.Retry.MaxRetries)
	assert.Equal(t, time.Second, cfg.LLM.Retry.BaseDelay)
	assert.True(t, cfg.Queue.Enabled)
	assert.Equal(t, 2*time.Second, cfg.Queue.PollInterval)
	assert.Equal(t, 20, cfg.Study.DeckSize)
	assert.Equal(t, 5, cfg.Study.BatchSize, "unset values take defaults")
}

func TestLoad_Defaults(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err, "missing default file is fine")

	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.Equal(t, 3, cfg.LLM.Retry.MaxRetries)
	assert.Equal(t, 3*time.Second, cfg.LLM.Retry.BaseDelay)
	assert.Equal(t, 10, cfg.Study.DeckSize)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_ZeroRetriesDisablesBackoff(t *testing.T) {
	clearProviderEnv(t)
	path := writeConfig(t, `
llm:
  provider: mock
  retry:
    max_retries: 0
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.LLM.Retry.MaxRetries)
	assert.Equal(t, 3*time.Second, cfg.LLM.Retry.BaseDelay)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearProviderEnv(t)
	path := writeConfig(t, "database:\n  path: from-file.db\n")
	t.Setenv("LUMEN_DB", "from-env.db")
	t.Setenv("LUMEN_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", cfg.Database.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_DiscoversProviderKey(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.OpenAI.APIKey)
	assert.NoError(t, cfg.LLM.Validate())
}
