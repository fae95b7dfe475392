package repository

import (
	"time"

	"zoning_portal_backend/internal/permits/workflow"

	"github.com/shopspring/decimal"
)

// Request is the applicant's submission record. ApplicationID is set for
// submissions made since the explicit link was introduced; older rows are
// matched to their application by applicant name and address.
type Request struct {
	ID               int64               `db:"id"`
	UserID           int64               `db:"user_id"`
	ApplicationID    *int64              `db:"application_id"`
	ApplicantName    string              `db:"applicant_name"`
	ApplicantAddress string              `db:"applicant_address"`
	ContactNumber    string              `db:"contact_number"`
	CorporationName  *string             `db:"corporation_name"`
	ProjectType      string              `db:"project_type"`
	ProjectNature    string              `db:"project_nature"`
	ProjectLocation  string              `db:"project_location"`
	LotAreaSqm       decimal.Decimal     `db:"lot_area_sqm"`
	ProjectCost      decimal.Decimal     `db:"project_cost"`
	Status           workflow.Evaluation `db:"status"`
	CreatedAt        time.Time           `db:"created_at"`
}

// Application is the project application record evaluated by staff.
type Application struct {
	ID                      int64     `db:"id"`
	CorpID                  *int64    `db:"corp_id"`
	ProjectID               int64     `db:"project_id"`
	ApplicantName           string    `db:"applicant_name"`
	ApplicantAddress        string    `db:"applicant_address"`
	AuthorizationLetterPath *string   `db:"authorization_letter_path"`
	CreatedAt               time.Time `db:"created_at"`
}

// Project holds the land use details of an application.
type Project struct {
	ID              int64           `db:"id"`
	ProjectType     string          `db:"project_type"`
	ProjectNature   string          `db:"project_nature"`
	ProjectLocation string          `db:"project_location"`
	LotAreaSqm      decimal.Decimal `db:"lot_area_sqm"`
	ProjectCost     decimal.Decimal `db:"project_cost"`
}

// Corporation is an optional applicant organisation.
type Corporation struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

// Report is the evaluation record of an application.
type Report struct {
	ID             int64                   `db:"id"`
	AppID          int64                   `db:"app_id"`
	Evaluation     workflow.Evaluation     `db:"evaluation"`
	Description    *string                 `db:"description"`
	Amount         *decimal.Decimal        `db:"amount"`
	DateCertified  *time.Time              `db:"date_certified"`
	DateReported   *time.Time              `db:"date_reported"`
	IssuedBy       *string                 `db:"issued_by"`
	WorkflowStatus workflow.WorkflowStatus `db:"workflow_status"`
}

// Payment is one fee payment attempt. A rejected payment is never reopened;
// the applicant uploads a new one.
type Payment struct {
	ID              int64                  `db:"id"`
	RequestID       int64                  `db:"request_id"`
	ApplicationID   int64                  `db:"application_id"`
	Amount          decimal.Decimal        `db:"amount"`
	PaymentMethod   string                 `db:"payment_method"`
	ReceiptFilePath string                 `db:"receipt_file_path"`
	PaymentDate     time.Time              `db:"payment_date"`
	PaymentStatus   workflow.PaymentStatus `db:"payment_status"`
	VerifiedBy      *string                `db:"verified_by"`
	VerifiedAt      *time.Time             `db:"verified_at"`
	RejectionReason *string                `db:"rejection_reason"`
	CreatedAt       time.Time              `db:"created_at"`
}

// Certificate is the issued land use certificate.
type Certificate struct {
	ID                  int64                      `db:"id"`
	RequestID           int64                      `db:"request_id"`
	ApplicationID       int64                      `db:"application_id"`
	PaymentID           int64                      `db:"payment_id"`
	CertificateNumber   string                     `db:"certificate_number"`
	CertificateFilePath string                     `db:"certificate_file_path"`
	Status              workflow.CertificateStatus `db:"status"`
	IssuedAt            time.Time                  `db:"issued_at"`
	ValidUntil          time.Time                  `db:"valid_until"`
}

// StatusHistory is an append-only audit row.
type StatusHistory struct {
	ID         int64               `db:"id"`
	EntityType workflow.EntityType `db:"entity_type"`
	EntityID   int64               `db:"entity_id"`
	OldStatus  string              `db:"old_status"`
	NewStatus  string              `db:"new_status"`
	ChangedBy  string              `db:"changed_by"`
	Notes      *string             `db:"notes"`
	CreatedAt  time.Time           `db:"created_at"`
}

// User is an account that owns requests or acts as staff.
type User struct {
	ID    int64  `db:"id"`
	Name  string `db:"name"`
	Email string `db:"email"`
	Role  string `db:"role"`
}
