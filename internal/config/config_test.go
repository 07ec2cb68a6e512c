package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	cfg, err := FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, AuthModeNone, cfg.AuthMode)
	assert.False(t, cfg.AuthEnabled())
	assert.Equal(t, AIModeMock, cfg.AIMode)
	assert.Equal(t, 0.05, cfg.Plan.Tolerance)
	assert.Equal(t, 3, cfg.Plan.MaxAttempts)
	assert.Equal(t, 10, cfg.Plan.RecipesPerSlot)
	assert.Equal(t, BlobModeLocal, cfg.Blob.EffectiveReportsMode())
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:8081"}, cfg.CORSAllowedOrigins)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	v.Set("APP_ENV", "prod")
	v.Set("PORT", 9090)
	v.Set("DATABASE_URL", "postgres://db/app")
	v.Set("DATABASE_URL_POOLED", "postgres://pool/app")
	v.Set("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	v.Set("AUTH_MODE", "JWT")
	v.Set("AUTH_REQUIRED", "1")
	v.Set("JWT_SECRET", "s3cret")
	v.Set("REPORTS_MODE", "auto")
	v.Set("PLAN_MAX_ATTEMPTS", 5)
	v.Set("AI_TEMPERATURE", 7)

	cfg, err := FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "postgres://pool/app", cfg.DatabaseURL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.AuthRequired)
	assert.Equal(t, BlobModeAuto, cfg.Blob.EffectiveReportsMode())
	assert.Equal(t, 5, cfg.Plan.MaxAttempts)
	assert.Equal(t, 2.0, cfg.AITemperature)
}

func TestFromViperRejects(t *testing.T) {
	tests := map[string]map[string]any{
		"unknown ai mode":     {"AI_MODE": "magic"},
		"openai without key":  {"AI_MODE": "openai"},
		"default jwt in prod": {"APP_ENV": "prod", "AUTH_MODE": "jwt"},
		"bad tolerance":       {"PLAN_TOLERANCE": 1.5},
		"s3 without config":   {"BLOB_MODE": "s3"},
		"bad port":            {"PORT": 70000},
	}
	for name, values := range tests {
		t.Run(name, func(t *testing.T) {
			v := viper.New()
			for k, val := range values {
				v.Set(k, val)
			}
			_, err := FromViper(v)
			assert.Error(t, err)
		})
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nutriplan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("PORT: 7070\nPLAN_RECIPES_PER_SLOT: 4\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, 4, cfg.Plan.RecipesPerSlot)
}
