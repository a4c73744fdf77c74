package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/kirillkom/claim-assistant/internal/config"
)

func validConfig() config.Config {
	return config.Config{
		APIPort:               "8080",
		LogLevel:              "info",
		LogFormat:             "json",
		GeminiAPIKey:          "test-key",
		GeminiClassifyModel:   "gemini-1.5-flash",
		GeminiExtractModel:    "gemini-1.5-flash",
		GeminiDecisionModel:   "gemini-2.5-pro",
		UploadMIMEType:        "application/pdf",
		MaxUploadMB:           10,
		ExtractConcurrency:    2,
		ExtractFailurePolicy:  "skip",
		LLMCallTimeoutSeconds: 30,
		LLMRetryMaxAttempts:   1,
		NATSSubject:           "claims.decided",
		WorkerMetricsPort:     "9090",
	}
}

func TestNewWiresPipelineWithoutEvents(t *testing.T) {
	app, err := New(context.Background(), validConfig(), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	if app.Claims == nil {
		t.Fatalf("expected claim pipeline")
	}
	if app.Queue != nil {
		t.Fatalf("expected events disabled without NATS_URL")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := validConfig()
	cfg.GeminiAPIKey = ""
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected config error")
	}
}

func TestResilienceConfigFollowsSettings(t *testing.T) {
	cfg := validConfig()
	cfg.LLMRetryMaxAttempts = 3
	cfg.LLMBreakerEnabled = false

	rc := resilienceConfig(cfg, nil)
	if rc.RetryMaxAttempts != 3 || rc.BreakerEnabled || rc.AttemptTimeout != 30*time.Second {
		t.Fatalf("unexpected resilience config: %+v", rc)
	}
}

func TestNewAuditQueueRequiresURL(t *testing.T) {
	if _, err := NewAuditQueue(validConfig()); err == nil {
		t.Fatalf("expected error without NATS_URL")
	}
}
