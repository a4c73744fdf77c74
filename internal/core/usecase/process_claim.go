package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/claim-assistant/internal/core/domain"
	"github.com/kirillkom/claim-assistant/internal/core/ports"
)

// FailurePolicy decides what a failed extraction does to the whole claim.
type FailurePolicy string

const (
	FailurePolicyFail FailurePolicy = "fail"
	FailurePolicySkip FailurePolicy = "skip"
)

type Options struct {
	MIMEType           string
	RequirePDF         bool
	DeleteRemoteFiles  bool
	ExtractConcurrency int
	FailurePolicy      FailurePolicy
}

type ProcessClaimUseCase struct {
	uploader   ports.FileUploader
	classifier ports.DocumentClassifier
	extractor  ports.DocumentExtractor
	decider    ports.ClaimDecider

	inspector ports.DocumentInspector
	publisher ports.DecisionPublisher
	metrics   ports.PipelineMetrics

	opts Options
}

func NewProcessClaimUseCase(
	uploader ports.FileUploader,
	classifier ports.DocumentClassifier,
	extractor ports.DocumentExtractor,
	decider ports.ClaimDecider,
	opts Options,
) *ProcessClaimUseCase {
	if opts.MIMEType == "" {
		opts.MIMEType = "application/pdf"
	}
	if opts.FailurePolicy == "" {
		opts.FailurePolicy = FailurePolicyFail
	}
	return &ProcessClaimUseCase{
		uploader:   uploader,
		classifier: classifier,
		extractor:  extractor,
		decider:    decider,
		opts:       opts,
	}
}

func (uc *ProcessClaimUseCase) WithInspector(inspector ports.DocumentInspector) *ProcessClaimUseCase {
	uc.inspector = inspector
	return uc
}

func (uc *ProcessClaimUseCase) WithPublisher(publisher ports.DecisionPublisher) *ProcessClaimUseCase {
	uc.publisher = publisher
	return uc
}

func (uc *ProcessClaimUseCase) WithMetrics(metrics ports.PipelineMetrics) *ProcessClaimUseCase {
	uc.metrics = metrics
	return uc
}

func (uc *ProcessClaimUseCase) ProcessClaim(ctx context.Context, files []domain.UploadedFile) (*domain.ClaimResult, error) {
	if len(files) == 0 {
		return nil, domain.WrapError(domain.ErrNoFiles, "process claim", errors.New("at least one file is required"))
	}
	claimID := uuid.NewString()

	batch, err := uc.upload(ctx, files)
	defer uc.cleanup(ctx, batch)
	if err != nil {
		return nil, err
	}
	remote := batch.remote

	classifications, err := uc.classify(ctx, remote)
	if err != nil {
		return nil, err
	}

	tasks := planExtractions(classifications, remote)
	results := runExtractions(ctx, uc.extractor, tasks, uc.opts.ExtractConcurrency)
	documents, failures, err := uc.collect(claimID, results)
	if err != nil {
		return nil, err
	}

	envelope, err := uc.decide(ctx, documents)
	if err != nil {
		return nil, err
	}

	result := &domain.ClaimResult{
		ClaimID:         claimID,
		Envelope:        envelope,
		Classifications: classifications,
		Failures:        failures,
	}
	uc.announce(ctx, result)
	return result, nil
}

func (uc *ProcessClaimUseCase) ClassifyDocuments(ctx context.Context, files []domain.UploadedFile) ([]domain.ClassificationRecord, error) {
	if len(files) == 0 {
		return []domain.ClassificationRecord{}, nil
	}

	batch, err := uc.upload(ctx, files)
	defer uc.cleanup(ctx, batch)
	if err != nil {
		return nil, err
	}
	return uc.classify(ctx, batch.remote)
}

// uploadBatch keeps every handle created for a request. A later file with the
// same name replaces the earlier one in remote, but both stay in handles.
type uploadBatch struct {
	remote  *domain.RemoteFiles
	handles []domain.RemoteFile
}

// upload returns whatever was uploaded so far together with any error so the
// caller can still release remote handles.
func (uc *ProcessClaimUseCase) upload(ctx context.Context, files []domain.UploadedFile) (*uploadBatch, error) {
	batch := &uploadBatch{remote: domain.NewRemoteFiles()}
	if err := uc.inspect(files); err != nil {
		return batch, err
	}

	for _, file := range files {
		handle, err := uc.uploader.UploadFile(ctx, file, uc.opts.MIMEType)
		if err != nil {
			return batch, fmt.Errorf("upload %s: %w", file.Filename, err)
		}
		handle.Filename = file.Filename
		if previous, ok := batch.remote.Get(file.Filename); ok {
			slog.WarnContext(ctx, "duplicate_filename_replaced",
				"filename", file.Filename,
				"previous_remote_name", previous.Name,
			)
		}
		batch.handles = append(batch.handles, handle)
		batch.remote.Put(handle)
		slog.InfoContext(ctx, "file_uploaded",
			"filename", file.Filename,
			"remote_name", handle.Name,
			"uri", handle.URI,
			"bytes", len(file.Data),
		)
	}
	return batch, nil
}

func (uc *ProcessClaimUseCase) inspect(files []domain.UploadedFile) error {
	if uc.inspector == nil {
		return nil
	}
	for _, file := range files {
		info, err := uc.inspector.Inspect(file)
		if err == nil && info.IsPDF {
			slog.Debug("file_inspected", "filename", file.Filename, "pages", info.Pages)
			continue
		}
		if uc.opts.RequirePDF {
			if err == nil {
				err = errors.New("not a pdf document")
			}
			return domain.WrapError(domain.ErrInvalidInput, "inspect "+file.Filename, err)
		}
		slog.Warn("file_not_readable_as_pdf", "filename", file.Filename, "error", err)
	}
	return nil
}

func (uc *ProcessClaimUseCase) classify(ctx context.Context, remote *domain.RemoteFiles) ([]domain.ClassificationRecord, error) {
	classifications, err := uc.classifier.Classify(ctx, remote)
	if err != nil {
		return nil, fmt.Errorf("classify documents: %w", err)
	}
	for _, record := range classifications {
		if uc.metrics != nil {
			uc.metrics.RecordClassification(string(record.Type))
		}
		slog.InfoContext(ctx, "claim_classified",
			"filename", record.Filename,
			"type", string(record.Type),
			"reason", record.Reason,
		)
	}
	return classifications, nil
}

func (uc *ProcessClaimUseCase) collect(claimID string, results []extractionResult) ([]domain.ExtractedDocument, []domain.ExtractionFailure, error) {
	documents := make([]domain.ExtractedDocument, 0, len(results))
	var failures []domain.ExtractionFailure

	for _, res := range results {
		docType := string(res.task.docType)
		if res.err == nil {
			documents = append(documents, res.document)
			uc.recordExtraction(docType, "success")
			continue
		}

		uc.recordExtraction(docType, "error")
		if uc.opts.FailurePolicy != FailurePolicySkip {
			return nil, nil, fmt.Errorf("extract %s as %s: %w", res.task.file.Filename, docType, res.err)
		}
		slog.Warn("extraction_failed",
			"claim_id", claimID,
			"filename", res.task.file.Filename,
			"type", docType,
			"error", res.err,
		)
		failures = append(failures, domain.ExtractionFailure{
			Filename: res.task.file.Filename,
			Type:     res.task.docType,
			Error:    res.err.Error(),
		})
	}
	return documents, failures, nil
}

func (uc *ProcessClaimUseCase) decide(ctx context.Context, documents []domain.ExtractedDocument) (domain.DecisionEnvelope, error) {
	envelope, err := uc.decider.Decide(ctx, documents, domain.NewValidationResult())
	if err != nil {
		return domain.DecisionEnvelope{}, fmt.Errorf("decide claim: %w", err)
	}
	if uc.metrics != nil {
		uc.metrics.RecordClaimDecision(string(envelope.ClaimDecision.Status), len(documents))
	}
	return envelope, nil
}

func (uc *ProcessClaimUseCase) announce(ctx context.Context, result *domain.ClaimResult) {
	slog.InfoContext(ctx, "claim_decided",
		"claim_id", result.ClaimID,
		"status", string(result.Envelope.ClaimDecision.Status),
		"documents", len(result.Envelope.Documents),
		"failed_extractions", len(result.Failures),
	)
	if uc.publisher == nil {
		return
	}

	event := domain.ClaimDecidedEvent{
		ClaimID:       result.ClaimID,
		Status:        result.Envelope.ClaimDecision.Status,
		Reason:        result.Envelope.ClaimDecision.Reason,
		DocumentCount: len(result.Envelope.Documents),
		FailedCount:   len(result.Failures),
		DecidedAt:     time.Now().UTC(),
	}
	if err := uc.publisher.PublishClaimDecided(ctx, event); err != nil {
		slog.Warn("claim_decision_publish_failed", "claim_id", result.ClaimID, "error", err)
	}
}

func (uc *ProcessClaimUseCase) cleanup(ctx context.Context, batch *uploadBatch) {
	if !uc.opts.DeleteRemoteFiles || batch == nil || len(batch.handles) == 0 {
		return
	}
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	for _, file := range batch.handles {
		if err := uc.uploader.DeleteFile(cleanupCtx, file); err != nil {
			slog.Warn("remote_file_delete_failed", "filename", file.Filename, "remote_name", file.Name, "error", err)
		}
	}
}

func (uc *ProcessClaimUseCase) recordExtraction(docType, outcome string) {
	if uc.metrics != nil {
		uc.metrics.RecordExtraction(docType, outcome)
	}
}
