package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/claim-assistant/internal/core/domain"
	"github.com/kirillkom/claim-assistant/internal/infrastructure/llm/jsonextract"
)

type Decider struct {
	model    Model
	prompts  *Prompts
	settings Settings
}

func NewDecider(model Model, prompts *Prompts, settings Settings) *Decider {
	return &Decider{model: model, prompts: prompts, settings: settings}
}

type decisionReply struct {
	Validation    json.RawMessage       `json:"validation"`
	ClaimDecision *domain.ClaimDecision `json:"claim_decision"`
}

// Decide asks for the verdict. Documents in the result are always the ones
// passed in; validation is replaced only when the model returns a usable one.
func (d *Decider) Decide(ctx context.Context, documents []domain.ExtractedDocument, validation domain.ValidationResult) (domain.DecisionEnvelope, error) {
	if documents == nil {
		documents = []domain.ExtractedDocument{}
	}
	prompt, err := d.prompts.Decision(documents)
	if err != nil {
		return domain.DecisionEnvelope{}, fmt.Errorf("build decision prompt: %w", err)
	}

	text, err := d.model.Generate(ctx, Request{
		Step:   "decision",
		Model:  d.settings.DecisionModel,
		Prompt: prompt,
		JSON:   d.settings.JSONMode,
	})
	if err != nil {
		return domain.DecisionEnvelope{}, err
	}

	envelope := domain.DecisionEnvelope{Documents: documents, Validation: validation}

	var reply decisionReply
	parseErr := jsonextract.DecodeObject(text, &reply)
	if parseErr == nil {
		parseErr = normalizeDecision(reply.ClaimDecision)
	}
	if parseErr != nil {
		d.settings.recordFallback("decision")
		slog.Warn("decision_parse_fallback",
			"error", parseErr,
			"response", truncate(text, 512),
		)
		envelope.ClaimDecision = domain.ClaimDecision{
			Status: domain.DecisionRejected,
			Reason: domain.FallbackDecisionReason,
		}
		return envelope, nil
	}

	envelope.ClaimDecision = *reply.ClaimDecision
	if modelValidation, ok := decodeValidation(reply.Validation); ok {
		envelope.Validation = modelValidation
	}
	return envelope, nil
}

// normalizeDecision lowercases the status in place and rejects anything
// outside approved, rejected and pending.
func normalizeDecision(decision *domain.ClaimDecision) error {
	if decision == nil {
		return fmt.Errorf("claim_decision missing from reply")
	}
	decision.Status = domain.DecisionStatus(strings.ToLower(strings.TrimSpace(string(decision.Status))))
	if decision.Status == "" {
		return fmt.Errorf("claim_decision status missing from reply")
	}
	if !decision.Status.Valid() {
		return fmt.Errorf("unknown claim_decision status %q", decision.Status)
	}
	return nil
}

func decodeValidation(raw json.RawMessage) (domain.ValidationResult, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return domain.ValidationResult{}, false
	}
	var v domain.ValidationResult
	if err := json.Unmarshal(raw, &v); err != nil {
		return domain.ValidationResult{}, false
	}
	if v.MissingDocuments == nil {
		v.MissingDocuments = []any{}
	}
	if v.Discrepancies == nil {
		v.Discrepancies = []any{}
	}
	return v, true
}
