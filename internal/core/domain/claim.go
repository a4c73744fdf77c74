package domain

// DocumentType is the classification label assigned to one uploaded file.
type DocumentType string

const (
	DocumentTypeBill             DocumentType = "bill"
	DocumentTypeDischargeSummary DocumentType = "discharge_summary"
	DocumentTypeOther            DocumentType = "other"
)

// Extractable reports whether the pipeline runs a field extraction for the type.
func (t DocumentType) Extractable() bool {
	return t == DocumentTypeBill || t == DocumentTypeDischargeSummary
}

type DecisionStatus string

const (
	DecisionApproved DecisionStatus = "approved"
	DecisionRejected DecisionStatus = "rejected"
	DecisionPending  DecisionStatus = "pending"
)

func (s DecisionStatus) Valid() bool {
	switch s {
	case DecisionApproved, DecisionRejected, DecisionPending:
		return true
	}
	return false
}

// FallbackDecisionReason is returned when the decision model output cannot be parsed.
const FallbackDecisionReason = "Claim could not be evaluated: the decision model did not return a parseable result"

type UploadedFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// RemoteFile is the handle returned by the remote files API for one upload.
type RemoteFile struct {
	Filename string `json:"filename"`
	Name     string `json:"name"`
	URI      string `json:"uri"`
	MIMEType string `json:"mime_type"`
}

type ClassificationRecord struct {
	Filename string       `json:"filename"`
	Type     DocumentType `json:"type"`
	Reason   string       `json:"reason,omitempty"`
}

// ExtractedDocument holds type-dependent fields; missing values are nil, never absent.
type ExtractedDocument map[string]any

// ValidationResult lists are untyped: the decision model fills them with
// whatever shape it judges useful.
type ValidationResult struct {
	MissingDocuments []any `json:"missing_documents"`
	Discrepancies    []any `json:"discrepancies"`
}

// NewValidationResult returns the empty placeholder handed to the decision step.
func NewValidationResult() ValidationResult {
	return ValidationResult{
		MissingDocuments: []any{},
		Discrepancies:    []any{},
	}
}

type ClaimDecision struct {
	Status DecisionStatus `json:"status"`
	Reason string         `json:"reason"`
}

type DecisionEnvelope struct {
	Documents     []ExtractedDocument `json:"documents"`
	Validation    ValidationResult    `json:"validation"`
	ClaimDecision ClaimDecision       `json:"claim_decision"`
}

type ExtractionFailure struct {
	Filename string       `json:"filename"`
	Type     DocumentType `json:"type"`
	Error    string       `json:"error"`
}

// ClaimResult is the pipeline output; the envelope is what callers receive.
type ClaimResult struct {
	ClaimID         string
	Envelope        DecisionEnvelope
	Classifications []ClassificationRecord
	Failures        []ExtractionFailure
}

// DocumentInfo is what local inspection learned about an uploaded blob.
type DocumentInfo struct {
	IsPDF bool
	Pages int
}
