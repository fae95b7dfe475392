// Package service implements the permit workflow operations: submission,
// evaluation, payment decisions and the read paths. Every state change and
// its history rows commit in one transaction; notifications and certificate
// issuance run after commit and are reported as side effects.
package service

import (
	"context"
	"time"

	"zoning_portal_backend/internal/events"
	"zoning_portal_backend/internal/permits/certificate"
	"zoning_portal_backend/internal/permits/reconcile"
	"zoning_portal_backend/internal/permits/repository"
	"zoning_portal_backend/internal/permits/workflow"
	"zoning_portal_backend/platform/apperr"
	"zoning_portal_backend/platform/clock"
	"zoning_portal_backend/platform/config"
	"zoning_portal_backend/platform/db"
	"zoning_portal_backend/platform/logger"
	"zoning_portal_backend/platform/validator"
)

// SideEffectError is a post-commit step that failed without undoing the transition.
type SideEffectError = apperr.SideEffectError

// Side effect steps reported by the workflow operations.
const (
	StepNotifySubmitted        = "notify_request_submitted"
	StepNotifyApproved         = "notify_application_approved"
	StepNotifyRejected         = "notify_application_rejected"
	StepNotifyPaymentSubmitted = "notify_payment_submitted"
	StepNotifyPaymentVerified  = "notify_payment_verified"
	StepNotifyPaymentRejected  = "notify_payment_rejected"
	StepResolveOwner           = "resolve_owner"
	StepIssueCertificate       = "issue_certificate"
)

// CertificateIssuer issues the certificate of a verified payment.
type CertificateIssuer interface {
	Issue(ctx context.Context, paymentID int64, actor string) (certificate.Result, error)
}

// ReceiptStorage keeps uploaded payment receipts.
type ReceiptStorage interface {
	Put(ctx context.Context, fileName, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
	DownloadURL(ctx context.Context, key string) (string, time.Time, error)
}

// Service runs the permit workflow.
type Service struct {
	repo     repository.Repository
	tx       db.TxManager
	bus      events.Bus
	issuer   CertificateIssuer
	receipts ReceiptStorage
	clock    clock.Clock
	val      *validator.Validator
	currency string
	log      *logger.Logger
}

// New creates the workflow service.
func New(
	repo repository.Repository,
	tx db.TxManager,
	bus events.Bus,
	issuer CertificateIssuer,
	receipts ReceiptStorage,
	clk clock.Clock,
	val *validator.Validator,
	cfg config.CertificateConfig,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:     repo,
		tx:       tx,
		bus:      bus,
		issuer:   issuer,
		receipts: receipts,
		clock:    clk,
		val:      val,
		currency: cfg.GetCertificateProfile().CurrencySymbol,
		log:      log,
	}
}

func (s *Service) appendHistory(ctx context.Context, entity workflow.EntityType, id int64, oldStatus, newStatus, actor string, notes *string) error {
	_, err := s.repo.AppendHistory(ctx, repository.AppendHistoryParams{
		EntityType: entity,
		EntityID:   id,
		OldStatus:  oldStatus,
		NewStatus:  newStatus,
		ChangedBy:  actor,
		Notes:      notes,
		CreatedAt:  s.clock.Now(),
	})
	if err != nil {
		return err
	}
	s.log.WithContext(ctx).StatusChanged(string(entity), id, oldStatus, newStatus, actor)
	return nil
}

// advanceReport moves the report's workflow marker forward and records the
// change. Requests without a report are left alone.
func (s *Service) advanceReport(ctx context.Context, appID int64, next workflow.WorkflowStatus, actor string) error {
	report, err := s.repo.GetReportByApplication(ctx, appID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil
		}
		return err
	}
	status, changed := workflow.Advance(report.WorkflowStatus, next)
	if !changed {
		return nil
	}
	if err := s.repo.SetWorkflowStatus(ctx, report.ID, status); err != nil {
		return err
	}
	return s.appendHistory(ctx, workflow.EntityReport, report.ID, string(report.WorkflowStatus), string(status), actor, nil)
}

func (s *Service) sideEffect(ctx context.Context, step string, err error, attrs ...any) SideEffectError {
	se := apperr.SideEffect(step, err, attrs...)
	s.log.WithContext(ctx).SideEffectFailed(se.Step, se.Err, se.Attrs...)
	return se
}

// publish delivers event synchronously. A handler failure becomes a side effect.
func (s *Service) publish(ctx context.Context, step string, event events.Event, attrs ...any) []SideEffectError {
	if err := s.bus.PublishSync(ctx, event); err != nil {
		return []SideEffectError{s.sideEffect(ctx, step, err, attrs...)}
	}
	return nil
}

func (s *Service) recipient(ctx context.Context, userID int64) (events.Recipient, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return events.Recipient{}, err
	}
	return events.Recipient{UserID: user.ID, Email: user.Email, Name: user.Name}, nil
}

// ownerOfApplication follows the second reconciliation hop from an
// application back to the request that owns it.
func (s *Service) ownerOfApplication(ctx context.Context, appID int64) (repository.Request, error) {
	app, err := s.repo.GetApplication(ctx, appID)
	if err != nil {
		return repository.Request{}, err
	}
	candidates, err := s.repo.ListRequestsByApplicant(ctx, app.ApplicantName, app.ApplicantAddress)
	if err != nil {
		return repository.Request{}, err
	}
	req, ok := reconcile.OwnerOf(app, candidates)
	if !ok {
		return repository.Request{}, apperr.NotFound("no request owns the application")
	}
	return req, nil
}

// index loads the reconciliation index for requests and logs shared keys.
func (s *Service) index(ctx context.Context, requests []repository.Request) (*reconcile.Index, error) {
	idx, err := reconcile.Load(ctx, s.repo, requests)
	if err != nil {
		return nil, err
	}
	for _, amb := range idx.Ambiguities() {
		s.log.WithContext(ctx).ReconciliationAmbiguity(amb.Key, amb.ApplicationIDs, amb.Chosen)
	}
	return idx, nil
}
