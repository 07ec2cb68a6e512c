package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	BlobModeLocal = "local"
	BlobModeS3    = "s3"
	BlobModeAuto  = "auto"
)

const (
	AuthModeNone = "none"
	AuthModeJWT  = "jwt"
)

const (
	AIModeMock   = "mock"
	AIModeOpenAI = "openai"
)

const defaultJWTSecret = "change_me"

type S3Config struct {
	Endpoint          string
	Region            string
	Bucket            string
	AccessKeyID       string
	SecretAccessKey   string
	PublicBaseURL     string
	PresignTTLSeconds int
	PreferPublicURL   bool
}

func (c S3Config) MissingRequired() []string {
	missing := make([]string, 0, 6)
	if strings.TrimSpace(c.Endpoint) == "" {
		missing = append(missing, "S3_ENDPOINT")
	}
	if strings.TrimSpace(c.Region) == "" {
		missing = append(missing, "S3_REGION")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		missing = append(missing, "S3_BUCKET")
	}
	if strings.TrimSpace(c.AccessKeyID) == "" {
		missing = append(missing, "S3_ACCESS_KEY_ID")
	}
	if strings.TrimSpace(c.SecretAccessKey) == "" {
		missing = append(missing, "S3_SECRET_ACCESS_KEY")
	}
	if strings.TrimSpace(c.PublicBaseURL) == "" {
		missing = append(missing, "S3_PUBLIC_BASE_URL")
	}
	return missing
}

func (c S3Config) IsConfigured() bool {
	return len(c.MissingRequired()) == 0
}

func (c S3Config) Diagnostics() (level string, code string, msg string) {
	allEmpty := strings.TrimSpace(c.Endpoint) == "" &&
		strings.TrimSpace(c.Region) == "" &&
		strings.TrimSpace(c.Bucket) == "" &&
		strings.TrimSpace(c.AccessKeyID) == "" &&
		strings.TrimSpace(c.SecretAccessKey) == "" &&
		strings.TrimSpace(c.PublicBaseURL) == ""

	if allEmpty {
		return "INFO", "s3_not_configured", "not configured (all empty)"
	}

	missing := c.MissingRequired()
	if len(missing) > 0 {
		return "WARN", "s3_partial_config", fmt.Sprintf("partial config, missing=%v", missing)
	}

	return "INFO", "s3_ready", "ready"
}

// DiagnosticsSummary returns a detailed summary for logging (no secrets)
func (c S3Config) DiagnosticsSummary() string {
	accessKeyStatus := "not set"
	if strings.TrimSpace(c.AccessKeyID) != "" {
		accessKeyStatus = "set"
	}
	secretKeyStatus := "not set"
	if strings.TrimSpace(c.SecretAccessKey) != "" {
		secretKeyStatus = "set"
	}

	return fmt.Sprintf("endpoint=%s region=%s bucket=%s public_base_url=%s presign_ttl=%ds prefer_public_url=%t access_key_id=%s secret_access_key=%s",
		nonEmptyOrDash(c.Endpoint),
		nonEmptyOrDash(c.Region),
		nonEmptyOrDash(c.Bucket),
		nonEmptyOrDash(c.PublicBaseURL),
		c.PresignTTLSeconds,
		c.PreferPublicURL,
		accessKeyStatus,
		secretKeyStatus,
	)
}

func nonEmptyOrDash(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "-"
	}
	return v
}

type BlobConfig struct {
	Mode           string // local|s3|auto
	ReportsMode    string // local|s3|auto (override)
	ReportsModeSet bool
	LocalDir       string
	S3             S3Config
}

func (c BlobConfig) EffectiveReportsMode() string {
	if c.ReportsModeSet {
		return c.ReportsMode
	}
	return c.Mode
}

// PlanConfig controls meal plan generation.
type PlanConfig struct {
	Tolerance      float64
	MaxAttempts    int
	RecipesPerSlot int
}

// Config содержит конфигурацию приложения
type Config struct {
	Env       string // local | staging | prod
	Port      int
	LogLevel  string
	LogFormat string // json | console

	// Database
	DatabaseURL       string // runtime connection (resolved: pooled > url > direct)
	DatabaseURLRaw    string
	DatabaseURLPooled string
	DatabaseURLDirect string // for migrations / DDL (may be empty)

	// CORS
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	// Rate Limiting
	RateLimitRPS   int
	RateLimitBurst int

	Blob                   BlobConfig
	ReportsDefaultTTLHours int

	// Authentication
	AuthMode      string // none | jwt
	AuthRequired  bool
	JWTSecret     string
	JWTIssuer     string
	JWTTTLMinutes int

	// AI
	AIMode            string // mock | openai
	AIMaxOutputTokens int
	AITemperature     float64
	AITimeoutSeconds  int
	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAIBaseURL     string

	Plan        PlanConfig
	RecipesFile string

	RunMigrationsOnStartup bool
}

func (c *Config) IsLocal() bool {
	return c.Env == "local"
}

func (c *Config) AuthEnabled() bool {
	return c.AuthMode != AuthModeNone
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "local")
	v.SetDefault("PORT", 8080)
	v.SetDefault("LOG_LEVEL", "debug")
	v.SetDefault("LOG_FORMAT", "")

	v.SetDefault("RATE_LIMIT_RPS", 0)
	v.SetDefault("RATE_LIMIT_BURST", 0)

	v.SetDefault("BLOB_MODE", BlobModeLocal)
	v.SetDefault("BLOB_LOCAL_DIR", "./data/blobs")
	v.SetDefault("S3_PRESIGN_TTL_SECONDS", 900)
	v.SetDefault("REPORTS_DEFAULT_TTL_HOURS", 168)

	v.SetDefault("AUTH_MODE", AuthModeNone)
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_ISSUER", "nutriplan")
	v.SetDefault("JWT_TTL_MINUTES", 10080)

	v.SetDefault("AI_MODE", AIModeMock)
	v.SetDefault("AI_MAX_OUTPUT_TOKENS", 4000)
	v.SetDefault("AI_TEMPERATURE", 0.3)
	v.SetDefault("AI_TIMEOUT_SECONDS", 60)
	v.SetDefault("OPENAI_MODEL", "gpt-4.1-mini")
	v.SetDefault("OPENAI_BASE_URL", "https://api.openai.com/v1")

	v.SetDefault("PLAN_TOLERANCE", 0.05)
	v.SetDefault("PLAN_MAX_ATTEMPTS", 3)
	v.SetDefault("PLAN_RECIPES_PER_SLOT", 10)
}

// Load загружает конфигурацию из переменных окружения и, если задан CONFIG_FILE, из yaml.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	if file := strings.TrimSpace(v.GetString("CONFIG_FILE")); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	env := strings.ToLower(strings.TrimSpace(v.GetString("APP_ENV")))
	if env == "" {
		env = "local"
	}

	// Priority: DATABASE_URL_POOLED > DATABASE_URL > DATABASE_URL_DIRECT
	dbPooled := strings.TrimSpace(v.GetString("DATABASE_URL_POOLED"))
	dbURL := strings.TrimSpace(v.GetString("DATABASE_URL"))
	dbDirect := strings.TrimSpace(v.GetString("DATABASE_URL_DIRECT"))
	runtimeDB := dbPooled
	if runtimeDB == "" {
		runtimeDB = dbURL
	}
	if runtimeDB == "" {
		runtimeDB = dbDirect
	}

	blobMode, err := parseMode("BLOB_MODE", v.GetString("BLOB_MODE"), BlobModeLocal, BlobModeLocal, BlobModeS3, BlobModeAuto)
	if err != nil {
		return nil, err
	}
	reportsRaw := strings.TrimSpace(v.GetString("REPORTS_MODE"))
	reportsMode, err := parseMode("REPORTS_MODE", reportsRaw, BlobModeLocal, BlobModeLocal, BlobModeS3, BlobModeAuto)
	if err != nil {
		return nil, err
	}

	presignTTL := v.GetInt("S3_PRESIGN_TTL_SECONDS")
	if presignTTL <= 0 {
		presignTTL = 900
	}

	authMode, err := parseMode("AUTH_MODE", v.GetString("AUTH_MODE"), AuthModeNone, AuthModeNone, AuthModeJWT)
	if err != nil {
		return nil, err
	}
	aiMode, err := parseMode("AI_MODE", v.GetString("AI_MODE"), AIModeMock, AIModeMock, AIModeOpenAI)
	if err != nil {
		return nil, err
	}

	logFormat := strings.ToLower(strings.TrimSpace(v.GetString("LOG_FORMAT")))
	if logFormat == "" {
		logFormat = "json"
		if env == "local" {
			logFormat = "console"
		}
	}

	cfg := &Config{
		Env:       env,
		Port:      v.GetInt("PORT"),
		LogLevel:  strings.ToLower(strings.TrimSpace(v.GetString("LOG_LEVEL"))),
		LogFormat: logFormat,

		DatabaseURL:       runtimeDB,
		DatabaseURLRaw:    dbURL,
		DatabaseURLPooled: dbPooled,
		DatabaseURLDirect: dbDirect,

		CORSAllowedOrigins:   parseCORSOrigins(v.GetString("CORS_ALLOWED_ORIGINS"), env),
		CORSAllowCredentials: v.GetBool("CORS_ALLOW_CREDENTIALS"),

		RateLimitRPS:   v.GetInt("RATE_LIMIT_RPS"),
		RateLimitBurst: v.GetInt("RATE_LIMIT_BURST"),

		Blob: BlobConfig{
			Mode:           blobMode,
			ReportsMode:    reportsMode,
			ReportsModeSet: reportsRaw != "",
			LocalDir:       strings.TrimSpace(v.GetString("BLOB_LOCAL_DIR")),
			S3: S3Config{
				Endpoint:          strings.TrimSpace(v.GetString("S3_ENDPOINT")),
				Region:            strings.TrimSpace(v.GetString("S3_REGION")),
				Bucket:            strings.TrimSpace(v.GetString("S3_BUCKET")),
				AccessKeyID:       strings.TrimSpace(v.GetString("S3_ACCESS_KEY_ID")),
				SecretAccessKey:   strings.TrimSpace(v.GetString("S3_SECRET_ACCESS_KEY")),
				PublicBaseURL:     strings.TrimSpace(v.GetString("S3_PUBLIC_BASE_URL")),
				PresignTTLSeconds: presignTTL,
				PreferPublicURL:   v.GetBool("S3_PREFER_PUBLIC_URL"),
			},
		},
		ReportsDefaultTTLHours: v.GetInt("REPORTS_DEFAULT_TTL_HOURS"),

		AuthMode:      authMode,
		AuthRequired:  authMode != AuthModeNone && v.GetBool("AUTH_REQUIRED"),
		JWTSecret:     v.GetString("JWT_SECRET"),
		JWTIssuer:     v.GetString("JWT_ISSUER"),
		JWTTTLMinutes: v.GetInt("JWT_TTL_MINUTES"),

		AIMode:            aiMode,
		AIMaxOutputTokens: positiveInt(v.GetInt("AI_MAX_OUTPUT_TOKENS"), 4000),
		AITemperature:     clamp(v.GetFloat64("AI_TEMPERATURE"), 0, 2),
		AITimeoutSeconds:  positiveInt(v.GetInt("AI_TIMEOUT_SECONDS"), 60),
		OpenAIAPIKey:      strings.TrimSpace(v.GetString("OPENAI_API_KEY")),
		OpenAIModel:       strings.TrimSpace(v.GetString("OPENAI_MODEL")),
		OpenAIBaseURL:     strings.TrimRight(strings.TrimSpace(v.GetString("OPENAI_BASE_URL")), "/"),

		Plan: PlanConfig{
			Tolerance:      v.GetFloat64("PLAN_TOLERANCE"),
			MaxAttempts:    positiveInt(v.GetInt("PLAN_MAX_ATTEMPTS"), 3),
			RecipesPerSlot: positiveInt(v.GetInt("PLAN_RECIPES_PER_SLOT"), 10),
		},
		RecipesFile: strings.TrimSpace(v.GetString("RECIPES_FILE")),

		RunMigrationsOnStartup: v.GetBool("RUN_MIGRATIONS_ON_STARTUP"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that must not start.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be in 1..65535, got %d", c.Port))
	}
	if c.AIMode == AIModeOpenAI && c.OpenAIAPIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is required when AI_MODE=openai"))
	}
	if c.AuthMode == AuthModeJWT && !c.IsLocal() && (c.JWTSecret == "" || c.JWTSecret == defaultJWTSecret) {
		errs = append(errs, errors.New("JWT_SECRET must be set outside local when AUTH_MODE=jwt"))
	}
	if c.Plan.Tolerance <= 0 || c.Plan.Tolerance >= 1 {
		errs = append(errs, fmt.Errorf("PLAN_TOLERANCE must be in (0,1), got %v", c.Plan.Tolerance))
	}
	if c.Blob.Mode == BlobModeS3 && !c.Blob.S3.IsConfigured() {
		errs = append(errs, fmt.Errorf("BLOB_MODE=s3 requires %v", c.Blob.S3.MissingRequired()))
	}
	return errors.Join(errs...)
}

// parseCORSOrigins parses CORS_ALLOWED_ORIGINS.
// In local mode, defaults to localhost origins if empty.
func parseCORSOrigins(raw, env string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if env == "local" {
			return []string{"http://localhost:3000", "http://localhost:8081"}
		}
		return nil // prod: deny by default
	}

	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

func parseMode(key, raw, defaultVal string, allowed ...string) (string, error) {
	mode := strings.ToLower(strings.TrimSpace(raw))
	if mode == "" {
		return defaultVal, nil
	}
	for _, a := range allowed {
		if mode == a {
			return mode, nil
		}
	}
	return "", fmt.Errorf("unknown %s=%q, expected one of %v", key, raw, allowed)
}

func positiveInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
