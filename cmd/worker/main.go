package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/claim-assistant/internal/bootstrap"
	"github.com/kirillkom/claim-assistant/internal/config"
	"github.com/kirillkom/claim-assistant/internal/core/domain"
	"github.com/kirillkom/claim-assistant/internal/observability/logging"
	"github.com/kirillkom/claim-assistant/internal/observability/metrics"
)

const serviceName = "claim-worker"

// The worker consumes claim decision events and turns them into audit log
// records and metrics.
func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewLogger(serviceName, cfg.LogLevel, cfg.LogFormat))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue, err := bootstrap.NewAuditQueue(cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer queue.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = queue.SubscribeClaimDecided(ctx, func(_ context.Context, event domain.ClaimDecidedEvent) error {
		auditDecision(workerMetrics, event, time.Now())
		return nil
	})
	if err != nil {
		slog.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}

func auditDecision(m *metrics.WorkerMetrics, event domain.ClaimDecidedEvent, now time.Time) {
	lag := now.Sub(event.DecidedAt)
	if event.DecidedAt.IsZero() {
		lag = -1
	}
	m.RecordDecision(string(event.Status), event.DocumentCount, event.FailedCount, lag)

	attrs := []any{
		"claim_id", event.ClaimID,
		"status", string(event.Status),
		"reason", event.Reason,
		"documents", event.DocumentCount,
		"failed_extractions", event.FailedCount,
		"decided_at", event.DecidedAt,
	}
	if event.Status == domain.DecisionRejected && event.Reason == domain.FallbackDecisionReason {
		slog.Warn("claim_decision_audited", append(attrs, "fallback", true)...)
		return
	}
	slog.Info("claim_decision_audited", attrs...)
}
