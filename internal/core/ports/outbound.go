package ports

import (
	"context"

	"github.com/kirillkom/claim-assistant/internal/core/domain"
)

// FileUploader stores blobs with the remote model provider.
type FileUploader interface {
	UploadFile(ctx context.Context, file domain.UploadedFile, mimeType string) (domain.RemoteFile, error)
	DeleteFile(ctx context.Context, file domain.RemoteFile) error
}

// DocumentClassifier labels every uploaded file in one remote call.
type DocumentClassifier interface {
	Classify(ctx context.Context, files *domain.RemoteFiles) ([]domain.ClassificationRecord, error)
}

// DocumentExtractor pulls type-specific fields from a single remote file.
type DocumentExtractor interface {
	Extract(ctx context.Context, file domain.RemoteFile, docType domain.DocumentType) (domain.ExtractedDocument, error)
}

// ClaimDecider asks the model for the final verdict over extracted records.
type ClaimDecider interface {
	Decide(ctx context.Context, documents []domain.ExtractedDocument, validation domain.ValidationResult) (domain.DecisionEnvelope, error)
}

// DocumentInspector looks at an uploaded blob before it leaves the process.
type DocumentInspector interface {
	Inspect(file domain.UploadedFile) (domain.DocumentInfo, error)
}

// DecisionPublisher announces decided claims.
type DecisionPublisher interface {
	PublishClaimDecided(ctx context.Context, event domain.ClaimDecidedEvent) error
}

// PipelineMetrics records per-claim pipeline outcomes.
type PipelineMetrics interface {
	RecordClassification(docType string)
	RecordExtraction(docType, outcome string)
	RecordClaimDecision(status string, documents int)
}
