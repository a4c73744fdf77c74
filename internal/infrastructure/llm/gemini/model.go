package gemini

import (
	"context"
	"time"

	"github.com/kirillkom/claim-assistant/internal/core/domain"
)

// Request is one multimodal generation call: file parts first, then the prompt.
type Request struct {
	Step   string
	Model  string
	Files  []domain.RemoteFile
	Prompt string
	JSON   bool
}

// Model is the generation surface the pipeline steps depend on.
type Model interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Observer receives per-call telemetry from the client.
type Observer interface {
	ObserveLLMCall(step, model string, duration time.Duration, err error)
	ObserveTokenUsage(step, model string, promptTokens, completionTokens int)
}

// FallbackRecorder counts responses that had to be replaced by a fallback record.
type FallbackRecorder interface {
	RecordParseFallback(step string)
}

// Settings configure the classification, extraction and decision steps.
type Settings struct {
	ClassifyModel string
	ExtractModel  string
	DecisionModel string
	MultiType     bool
	JSONMode      bool
	Fallbacks     FallbackRecorder
}

func (s Settings) recordFallback(step string) {
	if s.Fallbacks != nil {
		s.Fallbacks.RecordParseFallback(step)
	}
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
