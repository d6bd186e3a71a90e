package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, 5, cfg.Engine.MaxConcurrentUnits)
	assert.Equal(t, 400, cfg.Analyzer.MaxChunkLines)
	assert.Equal(t, 50, cfg.Analyzer.OverlapLines)
	assert.Equal(t, 3, cfg.Analyzer.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Analyzer.Retry.InitialInterval)
	assert.Equal(t, 0.2, cfg.Merger.AgreementBonus)
	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, int64(1<<20), cfg.Acquire.MaxFileSize)

	require.NoError(t, cfg.Validate())
}

func TestNewFromViperOverrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("engine.max_concurrent_units", 2)
	v.Set("analyzer.overlap_lines", 10)
	v.Set("logger.level", "debug")

	cfg, err := NewFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Engine.MaxConcurrentUnits)
	assert.Equal(t, 10, cfg.Analyzer.OverlapLines)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestNewFromViperRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{"zero concurrency", "engine.max_concurrent_units", 0},
		{"negative provider rate", "engine.provider_rate", -1.0},
		{"zero chunk lines", "analyzer.max_chunk_lines", 0},
		{"overlap at chunk size", "analyzer.overlap_lines", 400},
		{"zero retry attempts", "analyzer.retry.max_attempts", 0},
		{"bonus above one", "merger.agreement_bonus", 1.5},
		{"confidence above one", "screener.default_confidence", 2.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			SetDefaults(v)
			v.Set(tt.key, tt.value)

			_, err := NewFromViper(v)
			assert.Error(t, err)
		})
	}
}

func TestAPIKeyEnvBinding(t *testing.T) {
	t.Setenv("VULNDETECTIVE_LLM_API_KEY", "test-key-123")

	v := viper.New()
	SetDefaults(v)
	cfg, err := NewFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "test-key-123", cfg.LLM.APIKey)
}

func TestDatabaseURLEnvBinding(t *testing.T) {
	t.Setenv("VULNDETECTIVE_DATABASE_URL", "postgres://localhost/vd")

	v := viper.New()
	SetDefaults(v)
	cfg, err := NewFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/vd", cfg.Database.URL)
}
