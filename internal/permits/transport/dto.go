package transport

import (
	"time"

	"zoning_portal_backend/platform/apperr"

	"github.com/shopspring/decimal"
)

// Request DTOs

// SubmitRequest is an applicant's land use certification submission.
type SubmitRequest struct {
	ApplicantName           string          `json:"applicantName" validate:"required,notblank,max=255"`
	ApplicantAddress        string          `json:"applicantAddress" validate:"required,notblank,max=500"`
	ContactNumber           string          `json:"contactNumber" validate:"required,notblank,max=32"`
	CorporationName         *string         `json:"corporationName,omitempty" validate:"omitempty,max=255"`
	ProjectType             string          `json:"projectType" validate:"required,notblank,max=100"`
	ProjectNature           string          `json:"projectNature" validate:"required,notblank,max=100"`
	ProjectLocation         string          `json:"projectLocation" validate:"required,notblank,max=500"`
	LotAreaSqm              decimal.Decimal `json:"lotAreaSqm"`
	ProjectCost             decimal.Decimal `json:"projectCost"`
	AuthorizationLetterPath *string         `json:"authorizationLetterPath,omitempty" validate:"omitempty,max=500"`
}

// EvaluateRequest sets a report's evaluation directly. Moving a decided
// report back to pending is only possible through this request.
type EvaluateRequest struct {
	Evaluation    string           `json:"evaluation" validate:"required,oneof=pending approved rejected"`
	Description   *string          `json:"description,omitempty" validate:"omitempty,max=1000"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	DateCertified *time.Time       `json:"dateCertified,omitempty"`
}

// ApproveRequest approves a report, optionally setting the assessed fee.
type ApproveRequest struct {
	Description   *string          `json:"description,omitempty" validate:"omitempty,max=1000"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	DateCertified *time.Time       `json:"dateCertified,omitempty"`
}

// RejectRequest rejects a report or a payment.
type RejectRequest struct {
	Reason string `json:"reason" validate:"required,notblank,max=1000"`
}

// BulkRequest lists the request ids a bulk operation applies to.
type BulkRequest struct {
	RequestIDs []int64 `json:"requestIds" validate:"required,min=1,max=500,dive,gt=0"`
}

// BulkRejectRequest lists request ids and the shared rejection reason.
type BulkRejectRequest struct {
	RequestIDs []int64 `json:"requestIds" validate:"required,min=1,max=500,dive,gt=0"`
	Reason     string  `json:"reason" validate:"required,notblank,max=1000"`
}

// SubmitPaymentRequest carries the form fields of a payment upload.
type SubmitPaymentRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"paymentMethod" validate:"required,notblank,max=50"`
	PaymentDate   *time.Time      `json:"paymentDate,omitempty"`
}

// Receipt is the uploaded proof of payment.
type Receipt struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ListRequestsRequest filters and pages the request list. Status applies to
// the effective status.
type ListRequestsRequest struct {
	Status   string `form:"status" validate:"omitempty,oneof=pending approved rejected"`
	Search   string `form:"search" validate:"max=100"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// ListHistoryRequest selects the audit trail of one entity.
type ListHistoryRequest struct {
	EntityType string `form:"entityType" validate:"required,oneof=request report payment certificate"`
	EntityID   int64  `form:"entityId" validate:"required,gt=0"`
}

// Response DTOs

// RequestResponse is a request with its effective status.
type RequestResponse struct {
	ID               int64           `json:"id"`
	UserID           int64           `json:"userId"`
	ApplicationID    *int64          `json:"applicationId,omitempty"`
	ReportID         *int64          `json:"reportId,omitempty"`
	ApplicantName    string          `json:"applicantName"`
	ApplicantAddress string          `json:"applicantAddress"`
	ContactNumber    string          `json:"contactNumber"`
	CorporationName  *string         `json:"corporationName,omitempty"`
	ProjectType      string          `json:"projectType"`
	ProjectNature    string          `json:"projectNature"`
	ProjectLocation  string          `json:"projectLocation"`
	LotAreaSqm       decimal.Decimal `json:"lotAreaSqm"`
	ProjectCost      decimal.Decimal `json:"projectCost"`
	Status           string          `json:"status"`
	EffectiveStatus  string          `json:"effectiveStatus"`
	WorkflowStatus   string          `json:"workflowStatus,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// RequestListResponse is one page of requests.
type RequestListResponse struct {
	Items      []RequestResponse `json:"items"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
}

// ApplicationResponse is the application behind a request.
type ApplicationResponse struct {
	ID                      int64     `json:"id"`
	ApplicantName           string    `json:"applicantName"`
	ApplicantAddress        string    `json:"applicantAddress"`
	AuthorizationLetterPath *string   `json:"authorizationLetterPath,omitempty"`
	CreatedAt               time.Time `json:"createdAt"`
}

// ReportResponse is an evaluation report.
type ReportResponse struct {
	ID             int64            `json:"id"`
	ApplicationID  int64            `json:"applicationId"`
	Evaluation     string           `json:"evaluation"`
	Description    *string          `json:"description,omitempty"`
	Amount         *decimal.Decimal `json:"amount,omitempty"`
	DateCertified  *time.Time       `json:"dateCertified,omitempty"`
	DateReported   *time.Time       `json:"dateReported,omitempty"`
	IssuedBy       *string          `json:"issuedBy,omitempty"`
	WorkflowStatus string           `json:"workflowStatus,omitempty"`
}

// PaymentResponse is one payment attempt.
type PaymentResponse struct {
	ID              int64           `json:"id"`
	RequestID       int64           `json:"requestId"`
	ApplicationID   int64           `json:"applicationId"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentMethod   string          `json:"paymentMethod"`
	PaymentDate     time.Time       `json:"paymentDate"`
	PaymentStatus   string          `json:"paymentStatus"`
	VerifiedBy      *string         `json:"verifiedBy,omitempty"`
	VerifiedAt      *time.Time      `json:"verifiedAt,omitempty"`
	RejectionReason *string         `json:"rejectionReason,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// CertificateResponse is an issued certificate.
type CertificateResponse struct {
	ID                int64     `json:"id"`
	RequestID         int64     `json:"requestId"`
	PaymentID         int64     `json:"paymentId"`
	CertificateNumber string    `json:"certificateNumber"`
	Status            string    `json:"status"`
	IssuedAt          time.Time `json:"issuedAt"`
	ValidUntil        time.Time `json:"validUntil"`
}

// RequestDetailResponse is a request with every linked record.
type RequestDetailResponse struct {
	Request     RequestResponse      `json:"request"`
	Application *ApplicationResponse `json:"application,omitempty"`
	Report      *ReportResponse      `json:"report,omitempty"`
	Payments    []PaymentResponse    `json:"payments"`
	Certificate *CertificateResponse `json:"certificate,omitempty"`
}

// SubmitResponse is the outcome of a submission.
type SubmitResponse struct {
	Request     RequestResponse          `json:"request"`
	SideEffects []apperr.SideEffectError `json:"sideEffects,omitempty"`
}

// EvaluationResponse is the outcome of an evaluation decision. Changed is
// false when the report already carried the requested evaluation.
type EvaluationResponse struct {
	Report      ReportResponse           `json:"report"`
	Changed     bool                     `json:"changed"`
	SideEffects []apperr.SideEffectError `json:"sideEffects,omitempty"`
}

// BulkError is one failed item of a bulk operation.
type BulkError struct {
	RequestID int64  `json:"requestId"`
	Message   string `json:"message"`
}

// BulkResult reports a best-effort bulk operation. Items are processed
// independently; a failure never rolls back the others.
type BulkResult struct {
	Succeeded   int                      `json:"succeeded"`
	Errors      []BulkError              `json:"errors"`
	SideEffects []apperr.SideEffectError `json:"sideEffects,omitempty"`
}

// PaymentDecisionResponse is the outcome of verifying or rejecting a payment.
type PaymentDecisionResponse struct {
	Payment     PaymentResponse          `json:"payment"`
	Certificate *CertificateResponse     `json:"certificate,omitempty"`
	SideEffects []apperr.SideEffectError `json:"sideEffects,omitempty"`
}

// PaymentSubmissionResponse is the outcome of a payment upload.
type PaymentSubmissionResponse struct {
	Payment     PaymentResponse          `json:"payment"`
	SideEffects []apperr.SideEffectError `json:"sideEffects,omitempty"`
}

// StatsResponse counts requests by effective status.
type StatsResponse struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// ExportRow is one flat row of the request export.
type ExportRow struct {
	RequestID        int64            `json:"requestId"`
	ApplicantName    string           `json:"applicantName"`
	ApplicantAddress string           `json:"applicantAddress"`
	ContactNumber    string           `json:"contactNumber"`
	CorporationName  string           `json:"corporationName"`
	ProjectType      string           `json:"projectType"`
	ProjectNature    string           `json:"projectNature"`
	ProjectLocation  string           `json:"projectLocation"`
	LotAreaSqm       decimal.Decimal  `json:"lotAreaSqm"`
	ProjectCost      decimal.Decimal  `json:"projectCost"`
	EffectiveStatus  string           `json:"effectiveStatus"`
	WorkflowStatus   string           `json:"workflowStatus"`
	AssessedAmount   *decimal.Decimal `json:"assessedAmount,omitempty"`
	SubmittedAt      time.Time        `json:"submittedAt"`
}

// HistoryResponse is one audit row.
type HistoryResponse struct {
	ID         int64     `json:"id"`
	EntityType string    `json:"entityType"`
	EntityID   int64     `json:"entityId"`
	OldStatus  string    `json:"oldStatus"`
	NewStatus  string    `json:"newStatus"`
	ChangedBy  string    `json:"changedBy"`
	Notes      *string   `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// HistoryListResponse is the audit trail of one entity, oldest first.
type HistoryListResponse struct {
	Items []HistoryResponse `json:"items"`
}

// PresignedDownloadResponse is a short-lived link to a stored file.
type PresignedDownloadResponse struct {
	DownloadURL string `json:"downloadUrl"`
	ExpiresAt   int64  `json:"expiresAt"` // Unix timestamp
}

// ReissueRequest queues a certificate re-issue for a payment.
type ReissueRequest struct {
	PaymentID int64 `json:"paymentId" validate:"required,gt=0"`
}

// ReissueQueuedResponse acknowledges a queued re-issue.
type ReissueQueuedResponse struct {
	TaskID    string `json:"taskId"`
	PaymentID int64  `json:"paymentId"`
}
