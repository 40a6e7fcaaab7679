package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teilomillet/ipometa/config"
	"github.com/teilomillet/ipometa/internal/logging"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "or-key")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "openrouter", cfg.Provider)
	assert.Equal(t, "x-ai/grok-4-fast", cfg.Model)
	assert.InDelta(t, 0.7, cfg.Temperature, 1e-9)
	assert.Equal(t, 2048, cfg.MaxTokens)
	assert.Equal(t, time.Duration(0), cfg.Timeout)
	assert.Equal(t, 0, cfg.MaxRetries)
	assert.Equal(t, "data/master_prompt.json", cfg.MasterPromptPath)
	assert.Equal(t, "data/feedback_log.json", cfg.FeedbackLogPath)
	assert.Equal(t, logging.LogLevelWarn, cfg.LogLevel)
	assert.Equal(t, "or-key", cfg.APIKey)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("IPO_PROVIDER", "openai")
	t.Setenv("IPO_MODEL", "gpt-4o-mini")
	t.Setenv("IPO_TEMPERATURE", "0.2")
	t.Setenv("IPO_MAX_TOKENS", "512")
	t.Setenv("IPO_TIMEOUT", "45s")
	t.Setenv("IPO_LOG_LEVEL", "debug")
	t.Setenv("IPO_FEEDBACK_LOG_PATH", "/tmp/fb.json")
	t.Setenv("OPENAI_API_KEY", "sk-openai")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.InDelta(t, 0.2, cfg.Temperature, 1e-9)
	assert.Equal(t, 512, cfg.MaxTokens)
	assert.Equal(t, 45*time.Second, cfg.Timeout)
	assert.Equal(t, logging.LogLevelDebug, cfg.LogLevel)
	assert.Equal(t, "/tmp/fb.json", cfg.FeedbackLogPath)
	assert.Equal(t, "sk-openai", cfg.APIKey)
}

func TestLoadConfigExplicitKeyWins(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "or-key")
	t.Setenv("IPO_API_KEY", "explicit")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "explicit", cfg.APIKey)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"IPO_TEMPERATURE": "warm",
		"IPO_MAX_TOKENS":  "many",
		"IPO_TIMEOUT":     "soon",
		"IPO_LOG_LEVEL":   "loud",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := config.LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestApplyOptions(t *testing.T) {
	logger := logging.NewMockLogger()
	cfg := config.NewConfig()
	config.ApplyOptions(cfg,
		config.SetModel("anthropic/claude-3.5-sonnet"),
		config.SetTemperature(1.1),
		config.SetMaxTokens(0),
		config.SetRateLimit(2, 0),
		config.SetExtraHeaders(map[string]string{"X-Test": "1"}),
		config.SetLogger(logger),
	)

	assert.Equal(t, "anthropic/claude-3.5-sonnet", cfg.Model)
	assert.InDelta(t, 1.1, cfg.Temperature, 1e-9)
	assert.Equal(t, 1, cfg.MaxTokens)
	assert.InDelta(t, 2.0, cfg.RateLimit, 1e-9)
	assert.Equal(t, 1, cfg.RateBurst)
	assert.Equal(t, "1", cfg.ExtraHeaders["X-Test"])
	assert.Same(t, logger, cfg.GetLogger())
}

func TestGetLoggerDefault(t *testing.T) {
	cfg := config.NewConfig()
	assert.NotNil(t, cfg.GetLogger())
	assert.Same(t, cfg.GetLogger(), cfg.GetLogger())
}

func TestLoadConfigRouting(t *testing.T) {
	t.Setenv("IPO_FALLBACK_MODELS", "anthropic/claude-3.5-sonnet,openai/gpt-4o")
	t.Setenv("IPO_AUTO_ROUTE", "true")
	t.Setenv("IPO_EXTRA_HEADERS", "X-Team:prompts,X-Env:dev")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"anthropic/claude-3.5-sonnet", "openai/gpt-4o"}, cfg.FallbackModels)
	assert.True(t, cfg.AutoRoute)
	assert.Equal(t, map[string]string{"X-Team": "prompts", "X-Env": "dev"}, cfg.ExtraHeaders)
}

func TestSetProviderSwapsProviderKey(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "or-key")
	t.Setenv("OPENAI_API_KEY", "sk-openai")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "or-key", cfg.APIKey)

	config.ApplyOptions(cfg, config.SetProvider("openai"))
	assert.Equal(t, "sk-openai", cfg.APIKey)
}

func TestSetProviderWithoutItsKeyClearsKey(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "or-key")
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	config.ApplyOptions(cfg, config.SetProvider("openai"))
	assert.Empty(t, cfg.APIKey)
}

func TestSetProviderKeepsExplicitKey(t *testing.T) {
	t.Setenv("IPO_API_KEY", "explicit")
	t.Setenv("OPENAI_API_KEY", "sk-openai")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	config.ApplyOptions(cfg, config.SetProvider("openai"))
	assert.Equal(t, "explicit", cfg.APIKey)

	cfg = config.NewConfig()
	config.ApplyOptions(cfg, config.SetAPIKey("set-in-code"), config.SetProvider("openai"))
	assert.Equal(t, "set-in-code", cfg.APIKey)
}
