// Package certificate issues land use certificates for verified payments and
// serves them back to their owners.
package certificate

import (
	"context"
	"strings"

	"zoning_portal_backend/internal/events"
	"zoning_portal_backend/internal/permits/repository"
	"zoning_portal_backend/internal/permits/workflow"
	"zoning_portal_backend/platform/clock"
	"zoning_portal_backend/platform/config"
	"zoning_portal_backend/platform/db"
	"zoning_portal_backend/platform/logger"
)

const pdfContentType = "application/pdf"

// Snapshot is the display-ready data printed on a certificate.
type Snapshot struct {
	CertificateNumber string

	Office         string
	Municipality   string
	SignatoryName  string
	SignatoryTitle string

	ApplicantName    string
	ApplicantAddress string
	CorporationName  string
	ProjectType      string
	ProjectNature    string
	ProjectLocation  string
	LotArea          string
	ProjectCost      string

	IssuedOn        string
	ValidUntil      string
	VerificationURL string
}

// Renderer turns a snapshot into a PDF document.
type Renderer interface {
	Render(ctx context.Context, templateID string, snapshot Snapshot) ([]byte, error)
}

// Storage keeps rendered certificate files.
type Storage interface {
	Put(ctx context.Context, fileName, contentType string, data []byte) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Read(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Store is the persistence the issuer needs.
type Store interface {
	GetRequest(ctx context.Context, id int64) (repository.Request, error)
	GetReportByApplication(ctx context.Context, appID int64) (repository.Report, error)
	SetWorkflowStatus(ctx context.Context, reportID int64, status workflow.WorkflowStatus) error
	GetPayment(ctx context.Context, id int64) (repository.Payment, error)
	repository.CertificateStore
	repository.HistoryStore
	repository.UserStore
}

// Issuer allocates numbers, renders, stores and records certificates.
type Issuer struct {
	repo     Store
	tx       db.TxManager
	renderer Renderer
	storage  Storage
	bus      events.Bus
	clock    clock.Clock
	profile  config.CertificateProfile
	baseURL  string
	log      *logger.Logger
}

// NewIssuer creates an Issuer.
func NewIssuer(
	repo Store,
	tx db.TxManager,
	renderer Renderer,
	storage Storage,
	bus events.Bus,
	clk clock.Clock,
	cfg config.CertificateConfig,
	log *logger.Logger,
) *Issuer {
	return &Issuer{
		repo:     repo,
		tx:       tx,
		renderer: renderer,
		storage:  storage,
		bus:      bus,
		clock:    clk,
		profile:  cfg.GetCertificateProfile(),
		baseURL:  strings.TrimRight(cfg.GetAppBaseURL(), "/"),
		log:      log,
	}
}

func (i *Issuer) verificationURL(number string) string {
	if i.baseURL == "" {
		return ""
	}
	return i.baseURL + "/verify/" + number
}
