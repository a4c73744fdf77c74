package ports

import (
	"context"

	"github.com/kirillkom/claim-assistant/internal/core/domain"
)

// ClaimProcessor is the inbound contract for claim document orchestration.
type ClaimProcessor interface {
	ProcessClaim(ctx context.Context, files []domain.UploadedFile) (*domain.ClaimResult, error)
	ClassifyDocuments(ctx context.Context, files []domain.UploadedFile) ([]domain.ClassificationRecord, error)
}
