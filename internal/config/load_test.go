package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setRequiredEnv sets the environment variables without which Load must fail.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("REELCHEF_MEALIE_BASE_URL", "http://mealie:9000")
	t.Setenv("REELCHEF_MEALIE_TOKEN", "secret-token")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "llamacpp", cfg.LLM.Provider)
	assert.Equal(t, "http://llm:6998", cfg.LLM.ServerURL)
	assert.Equal(t, 600, cfg.LLM.ResponseTimeoutSeconds)
	assert.Equal(t, 100, cfg.Scheduler.QueueSize)
	assert.Equal(t, 50, cfg.Scheduler.RecentTasks)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REELCHEF_SERVER_PORT", "9999")
	t.Setenv("REELCHEF_SERVER_LOG_LEVEL", "debug")
	t.Setenv("REELCHEF_LLM_RESPONSE_TIMEOUT_SECONDS", "30")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 30, cfg.LLM.ResponseTimeoutSeconds)
	assert.Equal(t, "http://mealie:9000", cfg.Mealie.BaseURL)
	assert.Equal(t, "secret-token", cfg.Mealie.Token)
}

func TestLoadMissingMealieConfigFails(t *testing.T) {
	// Neither base URL nor token set: startup must fail before any task is
	// accepted.
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad log level", "REELCHEF_SERVER_LOG_LEVEL", "verbose"},
		{"bad provider", "REELCHEF_LLM_PROVIDER", "carrier-pigeon"},
		{"bad mealie URL", "REELCHEF_MEALIE_BASE_URL", "not a url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadGeminiProviderRequiresCredentials(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REELCHEF_LLM_PROVIDER", "gemini")

	_, err := Load()
	assert.Error(t, err, "gemini provider without API key and model must fail validation")

	t.Setenv("REELCHEF_LLM_GEMINI_API_KEY", "key")
	t.Setenv("REELCHEF_LLM_MODEL_NAME", "gemini-2.0-flash")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
}
