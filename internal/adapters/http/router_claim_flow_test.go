package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/kirillkom/claim-assistant/internal/core/domain"
	"github.com/kirillkom/claim-assistant/internal/core/usecase"
	"github.com/kirillkom/claim-assistant/internal/infrastructure/llm/gemini"
)

type uploaderFake struct {
	mu       sync.Mutex
	uploaded []string
}

func (u *uploaderFake) UploadFile(_ context.Context, file domain.UploadedFile, mimeType string) (domain.RemoteFile, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.uploaded = append(u.uploaded, file.Filename)
	return domain.RemoteFile{Filename: file.Filename, Name: "files/" + file.Filename, URI: "https://files/" + file.Filename, MIMEType: mimeType}, nil
}

func (u *uploaderFake) DeleteFile(context.Context, domain.RemoteFile) error { return nil }

type scriptedModel struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	steps   []string
}

func (m *scriptedModel) Generate(_ context.Context, req gemini.Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, req.Step)
	if err := m.errs[req.Step]; err != nil {
		return "", err
	}
	return m.replies[req.Step], nil
}

func newClaimFlowHandler(model *scriptedModel, uploader *uploaderFake) http.Handler {
	prompts := gemini.DefaultPrompts()
	settings := gemini.Settings{ClassifyModel: "c", ExtractModel: "e", DecisionModel: "d", MultiType: true}
	uc := usecase.NewProcessClaimUseCase(
		uploader,
		gemini.NewClassifier(model, prompts, settings),
		gemini.NewExtractor(model, prompts, settings),
		gemini.NewDecider(model, prompts, settings),
		usecase.Options{ExtractConcurrency: 2},
	)
	return NewRouter(testConfig(), uc).Handler()
}

func TestProcessClaimEndToEndApproved(t *testing.T) {
	model := &scriptedModel{replies: map[string]string{
		"classify":                  `[{"filename":"bill.pdf","type":"bill"},{"filename":"discharge.pdf","type":"discharge_summary"}]`,
		"extract_bill":              `{"type":"bill","hospital_name":"City Hospital","total_amount":1250,"date_of_service":"2024-04-10"}`,
		"extract_discharge_summary": `{"type":"discharge_summary","patient_name":"J. Doe","diagnosis":"Fracture","admission_date":"2024-04-09","discharge_date":"2024-04-10"}`,
		"decision":                  `{"claim_decision":{"status":"approved","reason":"complete"}}`,
	}}
	uploader := &uploaderFake{}
	handler := newClaimFlowHandler(model, uploader)

	body, contentType := multipartBody(t, map[string]string{"bill.pdf": "%PDF-bill", "discharge.pdf": "%PDF-discharge"})
	req := httptest.NewRequest(http.MethodPost, "/process-claim", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var envelope struct {
		Documents  []map[string]any `json:"documents"`
		Validation struct {
			MissingDocuments []any `json:"missing_documents"`
			Discrepancies    []any `json:"discrepancies"`
		} `json:"validation"`
		ClaimDecision domain.ClaimDecision `json:"claim_decision"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.ClaimDecision.Status != domain.DecisionApproved || envelope.ClaimDecision.Reason != "complete" {
		t.Fatalf("unexpected decision: %+v", envelope.ClaimDecision)
	}
	if len(envelope.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %+v", envelope.Documents)
	}
	types := map[any]bool{envelope.Documents[0]["type"]: true, envelope.Documents[1]["type"]: true}
	if !types["bill"] || !types["discharge_summary"] {
		t.Fatalf("expected bill and discharge summary, got %+v", envelope.Documents)
	}
	if envelope.Validation.MissingDocuments == nil || envelope.Validation.Discrepancies == nil {
		t.Fatalf("validation lists must be present: %+v", envelope.Validation)
	}
	if len(uploader.uploaded) != 2 {
		t.Fatalf("expected 2 uploads, got %v", uploader.uploaded)
	}
	if len(model.steps) != 4 {
		t.Fatalf("expected 4 model calls, got %v", model.steps)
	}
}

func TestProcessClaimWithoutFilesMakesNoRemoteCall(t *testing.T) {
	model := &scriptedModel{}
	uploader := &uploaderFake{}
	handler := newClaimFlowHandler(model, uploader)

	body, contentType := multipartBody(t, map[string]string{})
	req := httptest.NewRequest(http.MethodPost, "/process-claim", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", res.Code)
	}
	if detail := decodeDetail(t, res); detail == "" {
		t.Fatalf("expected detail message")
	}
	if len(uploader.uploaded) != 0 || len(model.steps) != 0 {
		t.Fatalf("expected no remote calls, got uploads=%v steps=%v", uploader.uploaded, model.steps)
	}
}

func TestProcessClaimNonMultipartIsNoFiles(t *testing.T) {
	handler := newClaimFlowHandler(&scriptedModel{}, &uploaderFake{})
	req := httptest.NewRequest(http.MethodPost, "/process-claim", nil)
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", res.Code)
	}
}

func TestProcessClaimClassificationOutageIsInternalError(t *testing.T) {
	dialErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("context deadline exceeded")}
	model := &scriptedModel{errs: map[string]error{
		"classify": domain.WrapError(domain.ErrTemporary, "gemini.generate.classify", dialErr),
	}}
	handler := newClaimFlowHandler(model, &uploaderFake{})

	body, contentType := multipartBody(t, map[string]string{"bill.pdf": "%PDF-bill"})
	req := httptest.NewRequest(http.MethodPost, "/process-claim", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", res.Code, res.Body.String())
	}
	want := "Internal server error during PDF classification: gemini.generate.classify: temporary failure: " + dialErr.Error()
	if detail := decodeDetail(t, res); detail != want {
		t.Fatalf("detail = %q, want %q", detail, want)
	}
}

func TestProcessClaimUnknownDecisionStatusIsRejected(t *testing.T) {
	model := &scriptedModel{replies: map[string]string{
		"classify":     `[{"filename":"bill.pdf","type":"bill"}]`,
		"extract_bill": `{"hospital_name":"City Hospital","total_amount":1250,"date_of_service":"2024-04-10"}`,
		"decision":     `{"claim_decision":{"status":"maybe later","reason":"x"}}`,
	}}
	handler := newClaimFlowHandler(model, &uploaderFake{})

	body, contentType := multipartBody(t, map[string]string{"bill.pdf": "%PDF-bill"})
	req := httptest.NewRequest(http.MethodPost, "/process-claim", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var envelope domain.DecisionEnvelope
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.ClaimDecision.Status != domain.DecisionRejected || envelope.ClaimDecision.Reason != domain.FallbackDecisionReason {
		t.Fatalf("expected fallback rejection, got %+v", envelope.ClaimDecision)
	}
	if len(envelope.Documents) != 1 {
		t.Fatalf("documents must pass through, got %+v", envelope.Documents)
	}
}
