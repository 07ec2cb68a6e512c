package blob

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	appcfg "github.com/fdg312/nutriplan/internal/config"
)

// NewBlobStore builds a blob store using mode local|s3|auto and returns the mode actually used.
func NewBlobStore(ctx context.Context, cfg appcfg.BlobConfig, logger zerolog.Logger) (Store, string, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = appcfg.BlobModeLocal
	}

	switch mode {
	case appcfg.BlobModeLocal:
		logger.Info().Str("dir", cfg.LocalDir).Msg("blob: mode=local (forced)")
		return localStore(cfg)

	case appcfg.BlobModeAuto:
		if !cfg.S3.IsConfigured() {
			level, code, msg := cfg.S3.Diagnostics()
			logger.WithLevel(diagLevel(level)).Str("code", code).Str("summary", cfg.S3.DiagnosticsSummary()).Msg("blob.s3: " + msg)
			logger.Info().Msg("blob: mode=local (auto, S3 not configured)")
			return localStore(cfg)
		}

		store, err := newS3(ctx, cfg)
		if err != nil {
			logger.Warn().Err(err).Msg("blob.s3: init failed, fallback=local")
			return localStore(cfg)
		}

		logger.Info().Str("summary", cfg.S3.DiagnosticsSummary()).Msg("blob: mode=s3 (auto, configured)")
		return store, appcfg.BlobModeS3, nil

	case appcfg.BlobModeS3:
		if !cfg.S3.IsConfigured() {
			missing := cfg.S3.MissingRequired()
			logger.Error().Strs("missing", missing).Str("code", "s3_config_incomplete").Msg("blob.s3: " + cfg.S3.DiagnosticsSummary())
			return nil, "", fmt.Errorf("BLOB_MODE=s3 requested but missing required config: %s", strings.Join(missing, ", "))
		}

		store, err := newS3(ctx, cfg)
		if err != nil {
			return nil, "", fmt.Errorf("BLOB_MODE=s3 init failed: %w", err)
		}

		logger.Info().Str("summary", cfg.S3.DiagnosticsSummary()).Msg("blob: mode=s3 (forced)")
		return store, appcfg.BlobModeS3, nil

	default:
		return nil, "", fmt.Errorf("unsupported blob mode: %s", mode)
	}
}

func newS3(ctx context.Context, cfg appcfg.BlobConfig) (*S3Store, error) {
	return NewS3Store(ctx, cfg.S3)
}

func localStore(cfg appcfg.BlobConfig) (Store, string, error) {
	store, err := NewLocalStore(cfg.LocalDir)
	if err != nil {
		return nil, "", err
	}
	return store, appcfg.BlobModeLocal, nil
}

func diagLevel(level string) zerolog.Level {
	if level == "WARN" {
		return zerolog.WarnLevel
	}
	return zerolog.InfoLevel
}
