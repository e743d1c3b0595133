package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Agent.Provider)
	assert.Equal(t, 8002, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NotEmpty(t, cfg.DataDir)
	assert.False(t, cfg.Agent.Resolved())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("MODEL_API_KEY", "sk-test")
	t.Setenv("MODEL_BASE_URL", "https://api.example.com/v1")
	t.Setenv("AGENT_MODEL", "gpt-4o")
	t.Setenv("AGENT_MODEL_PROVIDER", "deepseek")
	t.Setenv("TITLE_MODEL", "gpt-4o-mini")
	t.Setenv("CHATTUTOR_PORT", "9100")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.Agent.Resolved())
	assert.Equal(t, "deepseek", cfg.Agent.Provider)
	assert.Equal(t, 9100, cfg.Port)

	// Title falls back to agent config for unset fields.
	title := cfg.TitleConfig()
	assert.Equal(t, "gpt-4o-mini", title.Model)
	assert.Equal(t, "sk-test", title.APIKey)
}

func TestLoadProjectFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()

	content := `{
  // project config
  "agent": {"provider": "anthropic", "model": "claude-sonnet-4"},
  "port": 9000
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chattutor.jsonc"), []byte(content), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.Agent.Provider)
	assert.Equal(t, "claude-sonnet-4", cfg.Agent.Model)
	assert.Equal(t, 9000, cfg.Port)
}

func TestLoadInterpolation(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("TEST_TUTOR_KEY", "sk-env")
	dir := t.TempDir()

	content := `{"agent": {"apiKey": "{env:TEST_TUTOR_KEY}"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chattutor.json"), []byte(content), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "sk-env", cfg.Agent.APIKey)
}

func TestEnvBeatsFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("AGENT_MODEL", "env-model")
	dir := t.TempDir()

	content := `{"agent": {"model": "file-model"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chattutor.json"), []byte(content), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "env-model", cfg.Agent.Model)
}
