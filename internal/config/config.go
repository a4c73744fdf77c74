package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	APIPort   string `validate:"required,numeric"`
	LogLevel  string `validate:"oneof=debug info warn warning error"`
	LogFormat string `validate:"oneof=json text"`

	GeminiAPIKey        string `validate:"required"`
	GeminiBaseURL       string `validate:"omitempty,url"`
	GeminiClassifyModel string `validate:"required"`
	GeminiExtractModel  string `validate:"required"`
	GeminiDecisionModel string `validate:"required"`
	GeminiJSONMode      bool

	UploadMIMEType    string `validate:"required"`
	MaxUploadMB       int    `validate:"min=1"`
	RequirePDF        bool
	DeleteRemoteFiles bool

	ClassifyMultiType    bool
	ExtractConcurrency   int    `validate:"min=1,max=64"`
	ExtractFailurePolicy string `validate:"oneof=fail skip"`
	PromptsFile          string `validate:"omitempty,file"`

	LLMCallTimeoutSeconds int `validate:"min=1"`
	LLMRetryMaxAttempts   int `validate:"min=1,max=10"`
	LLMBreakerEnabled     bool

	APIRateLimitRPS   float64 `validate:"gte=0"`
	APIRateLimitBurst int     `validate:"gte=0"`
	APIMaxInFlight    int     `validate:"gte=0"`

	NATSURL     string
	NATSSubject string `validate:"required"`

	WorkerMetricsPort string `validate:"required,numeric"`
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over .env entries.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "config: ignoring .env: %v\n", err)
	}

	return Config{
		APIPort:   mustEnv("API_PORT", "8080"),
		LogLevel:  strings.ToLower(mustEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(mustEnv("LOG_FORMAT", "json")),

		GeminiAPIKey:        mustEnv("GEMINI_API_KEY", os.Getenv("GOOGLE_API_KEY")),
		GeminiBaseURL:       mustEnv("GEMINI_BASE_URL", ""),
		GeminiClassifyModel: mustEnv("GEMINI_CLASSIFY_MODEL", "gemini-1.5-flash"),
		GeminiExtractModel:  mustEnv("GEMINI_EXTRACT_MODEL", "gemini-1.5-flash"),
		GeminiDecisionModel: mustEnv("GEMINI_DECISION_MODEL", "gemini-2.5-pro"),
		GeminiJSONMode:      mustEnvBool("GEMINI_JSON_MODE", false),

		UploadMIMEType:    mustEnv("UPLOAD_MIME_TYPE", "application/pdf"),
		MaxUploadMB:       mustEnvInt("MAX_UPLOAD_MB", 50),
		RequirePDF:        mustEnvBool("REQUIRE_PDF", false),
		DeleteRemoteFiles: mustEnvBool("DELETE_REMOTE_FILES", false),

		ClassifyMultiType:    mustEnvBool("CLASSIFY_MULTI_TYPE", true),
		ExtractConcurrency:   mustEnvInt("EXTRACT_CONCURRENCY", 4),
		ExtractFailurePolicy: strings.ToLower(mustEnv("EXTRACT_FAILURE_POLICY", "fail")),
		PromptsFile:          mustEnv("PROMPTS_FILE", ""),

		LLMCallTimeoutSeconds: mustEnvInt("LLM_CALL_TIMEOUT_SECONDS", 120),
		LLMRetryMaxAttempts:   mustEnvInt("LLM_RETRY_MAX_ATTEMPTS", 1),
		LLMBreakerEnabled:     mustEnvBool("LLM_BREAKER_ENABLED", true),

		APIRateLimitRPS:   mustEnvFloat("API_RATE_LIMIT_RPS", 0),
		APIRateLimitBurst: mustEnvInt("API_RATE_LIMIT_BURST", 5),
		APIMaxInFlight:    mustEnvInt("API_MAX_IN_FLIGHT", 0),

		NATSURL:     mustEnv("NATS_URL", ""),
		NATSSubject: mustEnv("NATS_SUBJECT", "claims.decided"),

		WorkerMetricsPort: mustEnv("WORKER_METRICS_PORT", "9090"),
	}
}

// Validate checks field constraints. Commands that never call the model can
// skip it and only read what they need.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

func (c Config) LLMCallTimeout() time.Duration {
	return time.Duration(c.LLMCallTimeoutSeconds) * time.Second
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
