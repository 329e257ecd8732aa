package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoader_DefaultsOnly(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 3*time.Second, cfg.Room.SequentialDelay)
	assert.Equal(t, 5*time.Second, cfg.Room.Quiescence)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, DefaultLMStudioURL, cfg.Credentials.LMStudioURL)
	assert.True(t, cfg.Bots.Gemini)
	assert.False(t, cfg.Bots.LMStudio)
	assert.Empty(t, cfg.Bots.OpenRouterModels)

	require.NoError(t, cfg.Validate())
}

func TestLoader_FromYAMLFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  http_port: 9000
room:
  sequential_delay: 500ms
  quiescence: 2s
credentials:
  gemini_api_key: yaml-gemini-key
bots:
  gemini: false
  lmstudio: true
  openrouter_models:
    - anthropic/claude-3-haiku
    - openai/gpt-4o-mini
`)

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.HTTPPort)
	assert.Equal(t, 500*time.Millisecond, cfg.Room.SequentialDelay)
	assert.Equal(t, 2*time.Second, cfg.Room.Quiescence)
	assert.Equal(t, "yaml-gemini-key", cfg.Credentials.GeminiAPIKey)
	assert.False(t, cfg.Bots.Gemini)
	assert.True(t, cfg.Bots.LMStudio)
	assert.Equal(t, []string{"anthropic/claude-3-haiku", "openai/gpt-4o-mini"}, cfg.Bots.OpenRouterModels)
}

func TestLoader_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := NewLoader().
		WithConfigPath(filepath.Join(t.TempDir(), "nope.yaml")).
		Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
}

func TestLoader_MalformedFile(t *testing.T) {
	path := writeConfigFile(t, "server: [not a mapping")

	_, err := NewLoader().WithConfigPath(path).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config from file")
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("BOTROOM_SERVER_HTTP_PORT", "7070")
	t.Setenv("BOTROOM_ROOM_SEQUENTIAL_DELAY", "250ms")
	t.Setenv("BOTROOM_CREDENTIALS_OPENROUTER_API_KEY", "env-or-key")
	t.Setenv("BOTROOM_BOTS_LMSTUDIO", "true")
	t.Setenv("BOTROOM_BOTS_OPENROUTER_MODELS", "a/b, c/d")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.HTTPPort)
	assert.Equal(t, 250*time.Millisecond, cfg.Room.SequentialDelay)
	assert.Equal(t, "env-or-key", cfg.Credentials.OpenRouterAPIKey)
	assert.True(t, cfg.Bots.LMStudio)
	assert.Equal(t, []string{"a/b", "c/d"}, cfg.Bots.OpenRouterModels)
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "server:\n  http_port: 9000\n")
	t.Setenv("BOTROOM_SERVER_HTTP_PORT", "7070")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.HTTPPort, "environment wins over file")
}

func TestLoader_Validators(t *testing.T) {
	path := writeConfigFile(t, "server:\n  http_port: -1\n")

	_, err := NewLoader().
		WithConfigPath(path).
		WithValidator(func(c *Config) error { return c.Validate() }).
		Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
}

func TestConfig_InitialSettings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Credentials.GeminiAPIKey = "g-key"
	cfg.Bots.OpenRouterModels = []string{"a/b", "a/b", "c/d"}

	s := cfg.InitialSettings()
	assert.Equal(t, "g-key", s.GeminiAPIKey)
	assert.Equal(t, DefaultLMStudioURL, s.LMStudioURL)
	assert.True(t, s.ActiveBots.Gemini)
	assert.Equal(t, []string{"a/b", "c/d"}, s.ActiveBots.OpenRouterModels,
		"duplicate model ids collapse on conversion")

	// The settings are a copy; mutating them must not touch the config.
	s.ActiveBots.OpenRouterModels[0] = "tampered"
	assert.Equal(t, "a/b", cfg.Bots.OpenRouterModels[0])
}

func TestMustLoad_PanicsOnBadFile(t *testing.T) {
	path := writeConfigFile(t, "server: [broken")
	assert.Panics(t, func() { MustLoad(path) })
}
