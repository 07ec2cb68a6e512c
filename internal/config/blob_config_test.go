package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func readyS3() S3Config {
	return S3Config{
		Endpoint:        "https://storage.yandexcloud.net",
		Region:          "ru-central1",
		Bucket:          "nutriplan-reports",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		PublicBaseURL:   "https://storage.yandexcloud.net/nutriplan-reports",
	}
}

func TestS3ConfigMissingRequired(t *testing.T) {
	assert.False(t, S3Config{}.IsConfigured())
	assert.True(t, readyS3().IsConfigured())

	missing := S3Config{Endpoint: "https://storage.yandexcloud.net", Bucket: "b"}.MissingRequired()
	assert.Equal(t, []string{"S3_REGION", "S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY", "S3_PUBLIC_BASE_URL"}, missing)
}

func TestS3ConfigDiagnostics(t *testing.T) {
	tests := []struct {
		name      string
		cfg       S3Config
		wantLevel string
		wantCode  string
	}{
		{"not configured", S3Config{}, "INFO", "s3_not_configured"},
		{"partial", S3Config{Endpoint: "https://storage.yandexcloud.net"}, "WARN", "s3_partial_config"},
		{"ready", readyS3(), "INFO", "s3_ready"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, code, _ := tt.cfg.Diagnostics()
			assert.Equal(t, tt.wantLevel, level)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestS3DiagnosticsSummaryHidesSecrets(t *testing.T) {
	summary := readyS3().DiagnosticsSummary()
	assert.Contains(t, summary, "bucket=nutriplan-reports")
	assert.Contains(t, summary, "secret_access_key=set")
	assert.NotContains(t, summary, "=secret ")
}

func TestEffectiveReportsMode(t *testing.T) {
	assert.Equal(t, BlobModeS3, BlobConfig{Mode: BlobModeS3}.EffectiveReportsMode())
	assert.Equal(t, BlobModeLocal, BlobConfig{Mode: BlobModeS3, ReportsMode: BlobModeLocal, ReportsModeSet: true}.EffectiveReportsMode())
}
