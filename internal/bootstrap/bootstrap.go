package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/claim-assistant/internal/config"
	"github.com/kirillkom/claim-assistant/internal/core/usecase"
	"github.com/kirillkom/claim-assistant/internal/infrastructure/llm/gemini"
	"github.com/kirillkom/claim-assistant/internal/infrastructure/pdfinspect"
	"github.com/kirillkom/claim-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/claim-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/claim-assistant/internal/observability/metrics"
)

type App struct {
	Config config.Config

	// Claims is the full pipeline; every entry point drives it.
	Claims *usecase.ProcessClaimUseCase
	// Queue is nil when NATS_URL is empty.
	Queue *nats.Queue

	closeFn func()
}

// New wires the pipeline. metrics may be nil for processes without a
// metrics endpoint.
func New(ctx context.Context, cfg config.Config, m *metrics.HTTPServerMetrics) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	executor := resilience.NewExecutor(resilienceConfig(cfg, m))

	client, err := gemini.New(ctx, gemini.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
	}, executor)
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}

	prompts, err := gemini.LoadPrompts(cfg.PromptsFile)
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}

	settings := gemini.Settings{
		ClassifyModel: cfg.GeminiClassifyModel,
		ExtractModel:  cfg.GeminiExtractModel,
		DecisionModel: cfg.GeminiDecisionModel,
		MultiType:     cfg.ClassifyMultiType,
		JSONMode:      cfg.GeminiJSONMode,
	}
	if m != nil {
		client.WithObserver(m)
		settings.Fallbacks = m
	}

	claims := usecase.NewProcessClaimUseCase(
		client,
		gemini.NewClassifier(client, prompts, settings),
		gemini.NewExtractor(client, prompts, settings),
		gemini.NewDecider(client, prompts, settings),
		usecase.Options{
			MIMEType:           cfg.UploadMIMEType,
			RequirePDF:         cfg.RequirePDF,
			DeleteRemoteFiles:  cfg.DeleteRemoteFiles,
			ExtractConcurrency: cfg.ExtractConcurrency,
			FailurePolicy:      usecase.FailurePolicy(cfg.ExtractFailurePolicy),
		},
	).WithInspector(pdfinspect.NewInspector())
	if m != nil {
		claims.WithMetrics(m)
	}

	app := &App{Config: cfg, Claims: claims}

	if cfg.NATSURL != "" {
		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{ResilienceExecutor: executor})
		if err != nil {
			return nil, fmt.Errorf("init decision events: %w", err)
		}
		claims.WithPublisher(queue)
		app.Queue = queue
		app.closeFn = queue.Close
		slog.Info("decision_events_enabled", "subject", cfg.NATSSubject)
	}

	return app, nil
}

// NewAuditQueue connects only the event transport; the audit worker never
// calls the model.
func NewAuditQueue(cfg config.Config) (*nats.Queue, error) {
	if cfg.NATSURL == "" {
		return nil, fmt.Errorf("NATS_URL is required for the audit worker")
	}
	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}
	return queue, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func resilienceConfig(cfg config.Config, m *metrics.HTTPServerMetrics) resilience.Config {
	rc := resilience.DefaultConfig()
	rc.RetryMaxAttempts = cfg.LLMRetryMaxAttempts
	rc.BreakerEnabled = cfg.LLMBreakerEnabled
	rc.AttemptTimeout = cfg.LLMCallTimeout()
	if m != nil {
		rc.OnStateChange = m.RecordBreakerState
	}
	return rc
}
