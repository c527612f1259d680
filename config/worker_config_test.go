package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intake_server/pkg/apperr"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", cfg.LLMModel)
	assert.Equal(t, 500, cfg.LLMMaxTokens)
	assert.InDelta(t, 0.1, cfg.LLMTemperature, 1e-9)
	assert.Equal(t, 30*time.Second, cfg.LLMTimeout())
	assert.True(t, cfg.HybridModeEnabled)
	assert.True(t, cfg.AIFallbackEnabled)
	assert.InDelta(t, 0.7, cfg.ConfidenceThreshold, 1e-9)
	assert.Equal(t, "inbound:emails", cfg.IntakeStream)
	assert.Equal(t, 30*time.Minute, cfg.CustomerCacheTTL)
	assert.Equal(t, time.Minute, cfg.ReclaimInterval)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("HYBRID_MODE_ENABLED", "false")
	t.Setenv("CONFIDENCE_THRESHOLD", "0.85")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("LLM_MAX_TOKENS", "not-a-number")
	t.Setenv("RECLAIM_INTERVAL_SEC", "15")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.HybridModeEnabled)
	assert.InDelta(t, 0.85, cfg.ConfidenceThreshold, 1e-9)
	assert.True(t, cfg.AIConfigured())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 500, cfg.LLMMaxTokens)
	assert.Equal(t, 15*time.Second, cfg.ReclaimInterval)
}

func TestLoad_InvalidRanges(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"CONFIDENCE_THRESHOLD", "1.5"},
		{"CUSTOMER_CONFIDENCE_THRESHOLD", "-0.1"},
		{"LLM_TEMPERATURE", "3"},
		{"LLM_TIMEOUT_SEC", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()

			require.Error(t, err)
			assert.Equal(t, apperr.CodeConfigError, apperr.AsAppError(err).Code)
		})
	}
}
