package certificate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zoning_portal_backend/internal/events"
	"zoning_portal_backend/internal/permits/repository"
	"zoning_portal_backend/internal/permits/workflow"
	"zoning_portal_backend/platform/apperr"
)

// Issuance side effect steps.
const (
	StepNotifyCertificate = "notify_certificate_issued"
	StepMarkSent          = "mark_certificate_sent"
	StepLoadOwner         = "load_certificate_owner"
	StepReadDocument      = "read_certificate_document"
)

// ErrNoDelivery is reported when no handler delivers certificate emails.
var ErrNoDelivery = errors.New("no handler delivers certificate emails")

// Result is the outcome of an issuance attempt.
type Result struct {
	Certificate repository.Certificate
	// Created is false when the payment already had a certificate.
	Created     bool
	SideEffects []apperr.SideEffectError
}

// Issue creates the certificate for a verified payment. Calling it again for
// the same payment returns the recorded certificate without side effects.
func (i *Issuer) Issue(ctx context.Context, paymentID int64, actor string) (Result, error) {
	payment, err := i.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return Result{}, err
	}
	if payment.PaymentStatus != workflow.PaymentVerified {
		return Result{}, apperr.Conflict("payment is not verified")
	}

	if existing, found, err := i.existing(ctx, paymentID); err != nil || found {
		return Result{Certificate: existing}, err
	}

	req, err := i.repo.GetRequest(ctx, payment.RequestID)
	if err != nil {
		return Result{}, err
	}

	issuedAt := i.clock.Now()
	validUntil := workflow.ValidUntil(issuedAt)

	seq, err := i.repo.NextCertificateSequence(ctx, issuedAt.Year())
	if err != nil {
		return Result{}, err
	}
	number := FormatNumber(issuedAt.Year(), seq)

	snapshot := i.buildSnapshot(req, number, issuedAt, validUntil)
	doc, err := i.renderer.Render(ctx, i.profile.TemplateID, snapshot)
	if err != nil {
		return Result{}, fmt.Errorf("render certificate %s: %w", number, err)
	}

	key, err := i.storage.Put(ctx, number+".pdf", pdfContentType, doc)
	if err != nil {
		return Result{}, fmt.Errorf("store certificate %s: %w", number, err)
	}

	var cert repository.Certificate
	err = i.tx.RunInTx(ctx, func(txCtx context.Context) error {
		cert, err = i.repo.CreateCertificate(txCtx, repository.CreateCertificateParams{
			RequestID:           payment.RequestID,
			ApplicationID:       payment.ApplicationID,
			PaymentID:           payment.ID,
			CertificateNumber:   number,
			CertificateFilePath: key,
			IssuedAt:            issuedAt,
			ValidUntil:          validUntil,
		})
		if err != nil {
			return err
		}
		if err := i.appendHistory(txCtx, workflow.EntityCertificate, cert.ID, "", string(workflow.CertificateGenerated), actor, nil); err != nil {
			return err
		}
		return i.advanceReport(txCtx, payment.ApplicationID, actor)
	})
	if err != nil {
		i.discard(ctx, key)
		if apperr.Is(err, apperr.KindConflict) {
			// A concurrent issuer recorded the certificate first.
			if existing, found, lookupErr := i.existing(ctx, paymentID); lookupErr == nil && found {
				return Result{Certificate: existing}, nil
			}
		}
		return Result{}, err
	}

	i.log.WithContext(ctx).Info("certificate issued",
		"certificateId", cert.ID,
		"certificateNumber", cert.CertificateNumber,
		"paymentId", payment.ID,
	)

	result := Result{Certificate: cert, Created: true}
	result.SideEffects = i.deliver(ctx, &result.Certificate, req, doc, actor)
	return result, nil
}

// Reissue is the operator trigger for a payment. It issues when no certificate
// exists and resends the email when the recorded one is still generated.
func (i *Issuer) Reissue(ctx context.Context, paymentID int64, actor string) (Result, error) {
	existing, found, err := i.existing(ctx, paymentID)
	if err != nil {
		return Result{}, err
	}
	if !found {
		return i.Issue(ctx, paymentID, actor)
	}

	result := Result{Certificate: existing}
	if existing.Status != workflow.CertificateGenerated {
		return result, nil
	}

	req, err := i.repo.GetRequest(ctx, existing.RequestID)
	if err != nil {
		return Result{}, err
	}
	doc, err := i.storage.Read(ctx, existing.CertificateFilePath)
	if err != nil {
		se := apperr.SideEffect(StepReadDocument, err, "certificateId", existing.ID)
		i.log.WithContext(ctx).SideEffectFailed(se.Step, se.Err, se.Attrs...)
		result.SideEffects = append(result.SideEffects, se)
		return result, nil
	}
	result.SideEffects = i.deliver(ctx, &result.Certificate, req, doc, actor)
	return result, nil
}

func (i *Issuer) existing(ctx context.Context, paymentID int64) (repository.Certificate, bool, error) {
	cert, err := i.repo.GetCertificateByPayment(ctx, paymentID)
	if err == nil {
		return cert, true, nil
	}
	if apperr.Is(err, apperr.KindNotFound) {
		return repository.Certificate{}, false, nil
	}
	return repository.Certificate{}, false, err
}

func (i *Issuer) advanceReport(ctx context.Context, appID int64, actor string) error {
	report, err := i.repo.GetReportByApplication(ctx, appID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil
		}
		return err
	}
	next, changed := workflow.Advance(report.WorkflowStatus, workflow.WorkflowCertificateIssued)
	if !changed {
		return nil
	}
	if err := i.repo.SetWorkflowStatus(ctx, report.ID, next); err != nil {
		return err
	}
	return i.appendHistory(ctx, workflow.EntityReport, report.ID, string(report.WorkflowStatus), string(next), actor, nil)
}

// deliver emails the certificate to its owner and marks it sent on success.
// A certificate nobody could be emailed stays generated for a later re-issue.
func (i *Issuer) deliver(ctx context.Context, cert *repository.Certificate, req repository.Request, doc []byte, actor string) []apperr.SideEffectError {
	var sideEffects []apperr.SideEffectError
	fail := func(step string, err error) {
		se := apperr.SideEffect(step, err, "certificateId", cert.ID, "requestId", req.ID)
		i.log.WithContext(ctx).SideEffectFailed(se.Step, se.Err, se.Attrs...)
		sideEffects = append(sideEffects, se)
	}

	owner, err := i.repo.GetUser(ctx, req.UserID)
	if err != nil {
		fail(StepLoadOwner, err)
		return sideEffects
	}

	issued := events.CertificateIssued{
		BaseEvent:         events.NewBaseEventAt(i.clock.Now()),
		CertificateID:     cert.ID,
		CertificateNumber: cert.CertificateNumber,
		RequestID:         req.ID,
		Recipient:         events.Recipient{UserID: owner.ID, Email: owner.Email, Name: owner.Name},
		ApplicantName:     TitleName(req.ApplicantName),
		ValidUntil:        cert.ValidUntil,
		FileName:          cert.CertificateNumber + ".pdf",
		Document:          doc,
	}
	if !i.bus.HasHandlers(issued.EventName()) {
		fail(StepNotifyCertificate, ErrNoDelivery)
		return sideEffects
	}
	if err := i.bus.PublishSync(ctx, issued); err != nil {
		fail(StepNotifyCertificate, err)
		return sideEffects
	}

	next, changed := workflow.SendTransition(cert.Status)
	if !changed {
		return sideEffects
	}
	err = i.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := i.repo.UpdateCertificateStatus(txCtx, cert.ID, next); err != nil {
			return err
		}
		return i.appendHistory(txCtx, workflow.EntityCertificate, cert.ID, string(cert.Status), string(next), actor, nil)
	})
	if err != nil {
		fail(StepMarkSent, err)
		return sideEffects
	}
	cert.Status = next
	return sideEffects
}

func (i *Issuer) appendHistory(ctx context.Context, entity workflow.EntityType, id int64, oldStatus, newStatus, actor string, notes *string) error {
	_, err := i.repo.AppendHistory(ctx, repository.AppendHistoryParams{
		EntityType: entity,
		EntityID:   id,
		OldStatus:  oldStatus,
		NewStatus:  newStatus,
		ChangedBy:  actor,
		Notes:      notes,
		CreatedAt:  i.clock.Now(),
	})
	if err != nil {
		return err
	}
	i.log.WithContext(ctx).StatusChanged(string(entity), id, oldStatus, newStatus, actor)
	return nil
}

// discard removes a stored file that no certificate row will reference.
func (i *Issuer) discard(ctx context.Context, key string) {
	if err := i.storage.Delete(context.WithoutCancel(ctx), key); err != nil {
		i.log.WithContext(ctx).Warn("failed to remove orphaned certificate file", "key", key, "error", err)
	}
}

func (i *Issuer) buildSnapshot(req repository.Request, number string, issuedAt, validUntil time.Time) Snapshot {
	corporation := ""
	if req.CorporationName != nil {
		corporation = *req.CorporationName
	}
	return Snapshot{
		CertificateNumber: number,
		Office:            i.profile.Office,
		Municipality:      i.profile.Municipality,
		SignatoryName:     i.profile.SignatoryName,
		SignatoryTitle:    i.profile.SignatoryTitle,
		ApplicantName:     TitleName(req.ApplicantName),
		ApplicantAddress:  req.ApplicantAddress,
		CorporationName:   corporation,
		ProjectType:       req.ProjectType,
		ProjectNature:     req.ProjectNature,
		ProjectLocation:   req.ProjectLocation,
		LotArea:           FormatArea(req.LotAreaSqm),
		ProjectCost:       FormatAmount(i.profile.CurrencySymbol, req.ProjectCost),
		IssuedOn:          FormatDate(issuedAt),
		ValidUntil:        FormatDate(validUntil),
		VerificationURL:   i.verificationURL(number),
	}
}
