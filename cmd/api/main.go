package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"

	"github.com/fdg312/nutriplan/internal/config"
	"github.com/fdg312/nutriplan/internal/dbmigrate"
	"github.com/fdg312/nutriplan/internal/httpserver"
	"github.com/fdg312/nutriplan/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.Bootstrap()
		boot.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := logging.New(cfg)

	logStartupBanner(logger, cfg)

	if (cfg.Env == "prod" || cfg.Env == "staging") && cfg.DatabaseURL == "" {
		logger.Fatal().Str("env", cfg.Env).Msg("db: no DATABASE_URL configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RunMigrationsOnStartup {
		target, err := dbmigrate.SelectTarget(cfg, true)
		if err != nil {
			logger.Fatal().Err(err).Msg("startup migrations")
		}
		if target.Warning != "" {
			logger.Warn().Msg("startup migrations: " + target.Warning)
		}
		logger.Info().Str("using", target.Source).Msg("startup migrations: up")
		if err := dbmigrate.Run(ctx, "up", target.URL); err != nil {
			logger.Fatal().Err(err).Msg("startup migrations failed")
		}
	}

	server, err := httpserver.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("server init failed")
	}
	defer server.Close()

	if err := server.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server stopped")
		server.Close()
		os.Exit(1)
	}
}

// logStartupBanner logs the resolved configuration once. Secrets are reported as set / not set.
func logStartupBanner(logger zerolog.Logger, cfg *config.Config) {
	logger.Info().
		Str("env", cfg.Env).
		Int("port", cfg.Port).
		Str("database", describeDBURL(cfg.DatabaseURL, cfg.DatabaseURLPooled)).
		Str("database_direct", setOrNot(cfg.DatabaseURLDirect)).
		Bool("migrations_on_startup", cfg.RunMigrationsOnStartup).
		Msg("nutriplan api")

	logger.Info().
		Str("auth_mode", cfg.AuthMode).
		Bool("auth_required", cfg.AuthRequired).
		Str("jwt_secret", secretStatus(cfg.JWTSecret, "change_me")).
		Msg("auth")

	ev := logger.Info().
		Str("blob_mode", cfg.Blob.Mode).
		Str("reports_mode", cfg.Blob.EffectiveReportsMode()).
		Bool("prefer_public_url", cfg.Blob.S3.PreferPublicURL)
	if cfg.Blob.EffectiveReportsMode() != config.BlobModeLocal {
		ev = ev.Str("s3", cfg.Blob.S3.DiagnosticsSummary())
	}
	ev.Msg("blob")

	ai := logger.Info().
		Str("ai_mode", cfg.AIMode).
		Int("max_output_tokens", cfg.AIMaxOutputTokens).
		Float64("plan_tolerance", cfg.Plan.Tolerance).
		Int("plan_max_attempts", cfg.Plan.MaxAttempts)
	if cfg.AIMode == config.AIModeOpenAI {
		ai = ai.Str("openai_model", cfg.OpenAIModel).Str("openai_api_key", setOrNot(cfg.OpenAIAPIKey))
	}
	if cfg.RecipesFile != "" {
		ai = ai.Str("recipes_file", cfg.RecipesFile)
	}
	ai.Msg("planning")
}

func setOrNot(v string) string {
	if strings.TrimSpace(v) == "" {
		return "not set"
	}
	return "set"
}

func secretStatus(v, insecureDefault string) string {
	switch strings.TrimSpace(v) {
	case "":
		return "not set"
	case insecureDefault:
		return "set (insecure default)"
	default:
		return "set (custom)"
	}
}

func describeDBURL(runtime, pooled string) string {
	if runtime == "" {
		return "not set (in-memory storage)"
	}
	if pooled != "" && runtime == pooled {
		return "set (via DATABASE_URL_POOLED)"
	}
	return "set"
}
