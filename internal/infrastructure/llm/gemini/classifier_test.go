package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/claim-assistant/internal/core/domain"
)

func TestClassifierEmptyInputMakesNoCall(t *testing.T) {
	model := &fakeModel{}
	classifier := NewClassifier(model, DefaultPrompts(), Settings{})

	records, err := classifier.Classify(context.Background(), domain.NewRemoteFiles())
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if len(records) != 0 || len(model.requests) != 0 {
		t.Fatalf("expected no records and no calls, got %v / %d calls", records, len(model.requests))
	}
}

func TestClassifierParsesArrayInsideProse(t *testing.T) {
	model := &fakeModel{replies: map[string]string{
		"classify": "Sure!\n```json\n[{\"filename\":\"a.pdf\",\"type\":\"Bill\"},{\"filename\":\"b.pdf\",\"type\":\"discharge_summary\"}]\n```",
	}}
	classifier := NewClassifier(model, DefaultPrompts(), Settings{ClassifyModel: "classify-model", MultiType: true})

	records, err := classifier.Classify(context.Background(), remoteSet("a.pdf", "b.pdf"))
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %+v", records)
	}
	if records[0].Type != domain.DocumentTypeBill || records[1].Type != domain.DocumentTypeDischargeSummary {
		t.Fatalf("unexpected types: %+v", records)
	}

	req := model.requests[0]
	if req.Model != "classify-model" || len(req.Files) != 2 {
		t.Fatalf("unexpected request: %+v", req)
	}
	if !strings.Contains(req.Prompt, `"a.pdf"`) || !strings.Contains(req.Prompt, `"b.pdf"`) {
		t.Fatalf("prompt does not list filenames: %s", req.Prompt)
	}
}

func TestClassifierNoJSONFallsBackForEveryFile(t *testing.T) {
	model := &fakeModel{replies: map[string]string{"classify": "I cannot read these files."}}
	fallbacks := &countingFallbacks{}
	classifier := NewClassifier(model, DefaultPrompts(), Settings{Fallbacks: fallbacks})

	records, err := classifier.Classify(context.Background(), remoteSet("a.pdf", "b.pdf"))
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %+v", records)
	}
	for _, rec := range records {
		if rec.Type != domain.DocumentTypeOther || rec.Reason != "No JSON found in response" {
			t.Fatalf("unexpected fallback record: %+v", rec)
		}
	}
	if len(fallbacks.steps) != 1 || fallbacks.steps[0] != "classify" {
		t.Fatalf("expected one classify fallback, got %v", fallbacks.steps)
	}
}

func TestClassifierInvalidJSONFallsBack(t *testing.T) {
	model := &fakeModel{replies: map[string]string{"classify": `[{"filename": "a.pdf", "type": }]`}}
	classifier := NewClassifier(model, DefaultPrompts(), Settings{})

	records, err := classifier.Classify(context.Background(), remoteSet("a.pdf"))
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if len(records) != 1 || !strings.HasPrefix(records[0].Reason, "Invalid JSON response: ") {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestClassifierBackfillsAndDropsUnknown(t *testing.T) {
	model := &fakeModel{replies: map[string]string{
		"classify": `[{"filename":"ghost.pdf","type":"bill"},{"filename":"b.pdf","type":"bill"}]`,
	}}
	classifier := NewClassifier(model, DefaultPrompts(), Settings{MultiType: true})

	records, err := classifier.Classify(context.Background(), remoteSet("a.pdf", "b.pdf"))
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %+v", records)
	}
	if records[0].Filename != "a.pdf" || records[0].Type != domain.DocumentTypeOther || records[0].Reason != "Filename not found in model's JSON output" {
		t.Fatalf("expected backfilled a.pdf, got %+v", records[0])
	}
	if records[1].Filename != "b.pdf" || records[1].Type != domain.DocumentTypeBill {
		t.Fatalf("unexpected b.pdf record: %+v", records[1])
	}
}

func TestClassifierMultiTypeKeepsAllRecords(t *testing.T) {
	reply := `[{"filename":"a.pdf","type":"bill"},{"filename":"a.pdf","type":"discharge_summary"}]`

	multi := NewClassifier(&fakeModel{replies: map[string]string{"classify": reply}}, DefaultPrompts(), Settings{MultiType: true})
	records, err := multi.Classify(context.Background(), remoteSet("a.pdf"))
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if len(records) != 2 || records[1].Type != domain.DocumentTypeDischargeSummary {
		t.Fatalf("expected both records, got %+v", records)
	}

	single := NewClassifier(&fakeModel{replies: map[string]string{"classify": reply}}, DefaultPrompts(), Settings{MultiType: false})
	records, err = single.Classify(context.Background(), remoteSet("a.pdf"))
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if len(records) != 1 || records[0].Type != domain.DocumentTypeBill {
		t.Fatalf("expected first record only, got %+v", records)
	}
}

func TestClassifierWrapsTransportError(t *testing.T) {
	model := &fakeModel{err: errors.New("connection reset")}
	classifier := NewClassifier(model, DefaultPrompts(), Settings{})

	_, err := classifier.Classify(context.Background(), remoteSet("a.pdf"))
	if !domain.IsKind(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if domain.ClientDetail(err) != "Internal server error during PDF classification: connection reset" {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestClassifierWrapsTemporaryErrorAsUpstream(t *testing.T) {
	model := &fakeModel{err: domain.WrapError(domain.ErrTemporary, "gemini.generate.classify", errors.New("503"))}
	classifier := NewClassifier(model, DefaultPrompts(), Settings{})

	_, err := classifier.Classify(context.Background(), remoteSet("a.pdf"))
	if !domain.IsKind(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("temporary cause must stay reachable, got %v", err)
	}
	want := "Internal server error during PDF classification: gemini.generate.classify: temporary failure: 503"
	if got := domain.ClientDetail(err); got != want {
		t.Fatalf("ClientDetail() = %q, want %q", got, want)
	}
}
