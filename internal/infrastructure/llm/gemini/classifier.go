package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/claim-assistant/internal/core/domain"
	"github.com/kirillkom/claim-assistant/internal/infrastructure/llm/jsonextract"
)

const (
	reasonNoJSON          = "No JSON found in response"
	reasonInvalidJSON     = "Invalid JSON response: "
	reasonMissingFilename = "Filename not found in model's JSON output"

	classificationFailureDetail = "Internal server error during PDF classification"
)

type Classifier struct {
	model    Model
	prompts  *Prompts
	settings Settings
}

func NewClassifier(model Model, prompts *Prompts, settings Settings) *Classifier {
	return &Classifier{model: model, prompts: prompts, settings: settings}
}

// Classify labels every file in one call. The result covers exactly the input
// filenames, in input order; unusable model output degrades to "other".
func (c *Classifier) Classify(ctx context.Context, files *domain.RemoteFiles) ([]domain.ClassificationRecord, error) {
	if files.Len() == 0 {
		return []domain.ClassificationRecord{}, nil
	}
	filenames := files.Filenames()

	prompt, err := c.prompts.Classification(filenames, c.settings.MultiType)
	if err != nil {
		return nil, fmt.Errorf("build classification prompt: %w", err)
	}
	text, err := c.model.Generate(ctx, Request{
		Step:   "classify",
		Model:  c.settings.ClassifyModel,
		Files:  files.Files(),
		Prompt: prompt,
		JSON:   c.settings.JSONMode,
	})
	if err != nil {
		return nil, domain.WithDetail(domain.ErrUpstream, classificationFailureDetail, err)
	}

	var items []map[string]any
	if err := jsonextract.DecodeArray(text, &items); err != nil {
		reason := reasonNoJSON
		if !errors.Is(err, jsonextract.ErrNotFound) {
			reason = reasonInvalidJSON + err.Error()
		}
		c.settings.recordFallback("classify")
		slog.Warn("classification_parse_fallback",
			"reason", reason,
			"response", truncate(text, 512),
		)
		return uniform(filenames, reason), nil
	}

	return reconcile(filenames, items, c.settings.MultiType), nil
}

func uniform(filenames []string, reason string) []domain.ClassificationRecord {
	records := make([]domain.ClassificationRecord, 0, len(filenames))
	for _, name := range filenames {
		records = append(records, domain.ClassificationRecord{
			Filename: name,
			Type:     domain.DocumentTypeOther,
			Reason:   reason,
		})
	}
	return records
}

// reconcile orders model records by input filename, drops records naming
// unknown files and backfills files the model skipped.
func reconcile(filenames []string, items []map[string]any, multiType bool) []domain.ClassificationRecord {
	byName := make(map[string][]domain.ClassificationRecord, len(filenames))
	for _, name := range filenames {
		byName[name] = nil
	}

	for _, item := range items {
		name := stringField(item, "filename")
		existing, known := byName[name]
		if !known {
			slog.Warn("classification_unknown_filename", "filename", name)
			continue
		}
		if !multiType && len(existing) > 0 {
			continue
		}
		byName[name] = append(existing, domain.ClassificationRecord{
			Filename: name,
			Type:     normalizeType(stringField(item, "type")),
			Reason:   stringField(item, "reason"),
		})
	}

	records := make([]domain.ClassificationRecord, 0, len(filenames))
	for _, name := range filenames {
		found := byName[name]
		if len(found) == 0 {
			records = append(records, domain.ClassificationRecord{
				Filename: name,
				Type:     domain.DocumentTypeOther,
				Reason:   reasonMissingFilename,
			})
			continue
		}
		records = append(records, found...)
	}
	return records
}

func normalizeType(raw string) domain.DocumentType {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return domain.DocumentTypeOther
	}
	return domain.DocumentType(value)
}

func stringField(item map[string]any, key string) string {
	switch v := item[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
