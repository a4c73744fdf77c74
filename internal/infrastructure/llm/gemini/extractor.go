package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/claim-assistant/internal/core/domain"
	"github.com/kirillkom/claim-assistant/internal/infrastructure/llm/jsonextract"
)

var extractionFields = map[domain.DocumentType][]string{
	domain.DocumentTypeBill:             {"hospital_name", "total_amount", "date_of_service"},
	domain.DocumentTypeDischargeSummary: {"patient_name", "diagnosis", "admission_date", "discharge_date"},
}

// FieldsFor lists the fields extracted for a document type, without "type".
func FieldsFor(docType domain.DocumentType) []string {
	fields := extractionFields[docType]
	out := make([]string, len(fields))
	copy(out, fields)
	return out
}

type Extractor struct {
	model    Model
	prompts  *Prompts
	settings Settings
}

func NewExtractor(model Model, prompts *Prompts, settings Settings) *Extractor {
	return &Extractor{model: model, prompts: prompts, settings: settings}
}

// Extract returns the type's record for one file. Unparseable output yields
// the all-null record; transport errors are returned.
func (e *Extractor) Extract(ctx context.Context, file domain.RemoteFile, docType domain.DocumentType) (domain.ExtractedDocument, error) {
	fields, ok := extractionFields[docType]
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "extract", fmt.Errorf("type %q has no extraction", docType))
	}
	prompt, err := e.prompts.Extraction(docType, fields)
	if err != nil {
		return nil, fmt.Errorf("build extraction prompt: %w", err)
	}

	step := "extract_" + string(docType)
	text, err := e.model.Generate(ctx, Request{
		Step:   step,
		Model:  e.settings.ExtractModel,
		Files:  []domain.RemoteFile{file},
		Prompt: prompt,
		JSON:   e.settings.JSONMode,
	})
	if err != nil {
		return nil, err
	}

	var parsed map[string]any
	if err := jsonextract.DecodeObject(text, &parsed); err != nil {
		e.settings.recordFallback(step)
		slog.Warn("extraction_parse_fallback",
			"filename", file.Filename,
			"type", string(docType),
			"error", err,
			"response", truncate(text, 512),
		)
		return FallbackDocument(docType), nil
	}

	doc := domain.ExtractedDocument(parsed)
	if doc == nil {
		doc = domain.ExtractedDocument{}
	}
	if _, ok := doc["type"]; !ok {
		doc["type"] = string(docType)
	}
	for _, field := range fields {
		if _, ok := doc[field]; !ok {
			doc[field] = nil
		}
	}
	return doc, nil
}

// FallbackDocument is the record used when extraction output is unusable.
func FallbackDocument(docType domain.DocumentType) domain.ExtractedDocument {
	doc := domain.ExtractedDocument{"type": string(docType)}
	for _, field := range extractionFields[docType] {
		doc[field] = nil
	}
	return doc
}
