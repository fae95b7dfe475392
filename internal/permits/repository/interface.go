package repository

import (
	"context"
	"time"

	"zoning_portal_backend/internal/permits/workflow"

	"github.com/shopspring/decimal"
)

// CreateRequestParams contains parameters for creating a request.
type CreateRequestParams struct {
	UserID           int64
	ApplicationID    *int64
	ApplicantName    string
	ApplicantAddress string
	ContactNumber    string
	CorporationName  *string
	ProjectType      string
	ProjectNature    string
	ProjectLocation  string
	LotAreaSqm       decimal.Decimal
	ProjectCost      decimal.Decimal
}

// RequestFilter narrows request listings. Status filtering happens after
// reconciliation because it applies to the effective status.
type RequestFilter struct {
	UserID *int64
	Search string
}

// CreateProjectParams contains parameters for creating a project.
type CreateProjectParams struct {
	ProjectType     string
	ProjectNature   string
	ProjectLocation string
	LotAreaSqm      decimal.Decimal
	ProjectCost     decimal.Decimal
}

// CreateApplicationParams contains parameters for creating an application.
type CreateApplicationParams struct {
	CorpID                  *int64
	ProjectID               int64
	ApplicantName           string
	ApplicantAddress        string
	AuthorizationLetterPath *string
}

// UpdateEvaluationParams carries a staff decision on a report.
type UpdateEvaluationParams struct {
	ReportID      int64
	Evaluation    workflow.Evaluation
	DateReported  time.Time
	IssuedBy      string
	Description   *string
	Amount        *decimal.Decimal
	DateCertified *time.Time
}

// CreatePaymentParams contains parameters for recording an uploaded payment.
type CreatePaymentParams struct {
	RequestID       int64
	ApplicationID   int64
	Amount          decimal.Decimal
	PaymentMethod   string
	ReceiptFilePath string
	PaymentDate     time.Time
}

// DecidePaymentParams carries a verify or reject decision.
type DecidePaymentParams struct {
	PaymentID       int64
	Status          workflow.PaymentStatus
	DecidedBy       string
	DecidedAt       time.Time
	RejectionReason *string
}

// CreateCertificateParams contains parameters for recording an issued certificate.
type CreateCertificateParams struct {
	RequestID           int64
	ApplicationID       int64
	PaymentID           int64
	CertificateNumber   string
	CertificateFilePath string
	IssuedAt            time.Time
	ValidUntil          time.Time
}

// AppendHistoryParams describes one observed transition.
type AppendHistoryParams struct {
	EntityType workflow.EntityType
	EntityID   int64
	OldStatus  string
	NewStatus  string
	ChangedBy  string
	Notes      *string
	CreatedAt  time.Time
}

// RequestStore provides access to requests and the submission records
// created alongside them.
type RequestStore interface {
	CreateRequest(ctx context.Context, params CreateRequestParams) (Request, error)
	GetRequest(ctx context.Context, id int64) (Request, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]Request, error)
	ListRequestsByIDs(ctx context.Context, ids []int64) ([]Request, error)
	ListRequestsByApplicant(ctx context.Context, applicantName, applicantAddress string) ([]Request, error)
	DeleteRequest(ctx context.Context, id int64) error

	FindOrCreateCorporation(ctx context.Context, name string) (Corporation, error)
	CreateProject(ctx context.Context, params CreateProjectParams) (Project, error)
	GetProject(ctx context.Context, id int64) (Project, error)
}

// ApplicationStore provides access to applications.
type ApplicationStore interface {
	CreateApplication(ctx context.Context, params CreateApplicationParams) (Application, error)
	GetApplication(ctx context.Context, id int64) (Application, error)
	// ListApplicationsByKeys returns applications whose composite key is in keys, ordered by id.
	ListApplicationsByKeys(ctx context.Context, keys []string) ([]Application, error)
	ListApplicationsByIDs(ctx context.Context, ids []int64) ([]Application, error)
	// ListApplications returns every application ordered by id.
	ListApplications(ctx context.Context) ([]Application, error)
	DeleteApplication(ctx context.Context, id int64) error
}

// ReportStore provides access to evaluation reports.
type ReportStore interface {
	CreateReport(ctx context.Context, appID int64) (Report, error)
	GetReport(ctx context.Context, id int64) (Report, error)
	// GetReportForUpdate locks the row when called inside a transaction.
	GetReportForUpdate(ctx context.Context, id int64) (Report, error)
	GetReportByApplication(ctx context.Context, appID int64) (Report, error)
	ListReportsByApplicationIDs(ctx context.Context, appIDs []int64) ([]Report, error)
	UpdateEvaluation(ctx context.Context, params UpdateEvaluationParams) (Report, error)
	SetWorkflowStatus(ctx context.Context, reportID int64, status workflow.WorkflowStatus) error
}

// PaymentStore provides access to payments.
type PaymentStore interface {
	CreatePayment(ctx context.Context, params CreatePaymentParams) (Payment, error)
	GetPayment(ctx context.Context, id int64) (Payment, error)
	ListPaymentsByRequest(ctx context.Context, requestID int64) ([]Payment, error)
	// DecidePayment moves a pending payment to a terminal status. It returns a
	// conflict error when the payment is no longer pending.
	DecidePayment(ctx context.Context, params DecidePaymentParams) (Payment, error)
}

// CertificateStore provides access to certificates and their numbering.
type CertificateStore interface {
	// NextCertificateSequence atomically increments and returns the counter for year.
	NextCertificateSequence(ctx context.Context, year int) (int, error)
	// CreateCertificate returns a conflict error when the payment already has a certificate.
	CreateCertificate(ctx context.Context, params CreateCertificateParams) (Certificate, error)
	GetCertificate(ctx context.Context, id int64) (Certificate, error)
	// GetCertificateForUpdate locks the row when called inside a transaction.
	GetCertificateForUpdate(ctx context.Context, id int64) (Certificate, error)
	GetCertificateByPayment(ctx context.Context, paymentID int64) (Certificate, error)
	GetCertificateByRequest(ctx context.Context, requestID int64) (Certificate, error)
	UpdateCertificateStatus(ctx context.Context, id int64, status workflow.CertificateStatus) error
}

// HistoryStore appends and lists audit rows.
type HistoryStore interface {
	AppendHistory(ctx context.Context, params AppendHistoryParams) (StatusHistory, error)
	ListHistory(ctx context.Context, entityType workflow.EntityType, entityID int64) ([]StatusHistory, error)
}

// UserStore reads account details needed for notifications.
type UserStore interface {
	GetUser(ctx context.Context, id int64) (User, error)
}

// Repository combines all permit repository operations.
type Repository interface {
	RequestStore
	ApplicationStore
	ReportStore
	PaymentStore
	CertificateStore
	HistoryStore
	UserStore
}
