package service

import (
	"context"

	"zoning_portal_backend/internal/events"
	"zoning_portal_backend/internal/permits/certificate"
	"zoning_portal_backend/internal/permits/repository"
	"zoning_portal_backend/internal/permits/transport"
	"zoning_portal_backend/internal/permits/workflow"
	"zoning_portal_backend/platform/apperr"
	"zoning_portal_backend/platform/sanitize"
)

// SubmitPayment stores the receipt and records a pending payment for an
// approved request. A rejected payment is never reopened; the applicant
// submits a new one.
func (s *Service) SubmitPayment(ctx context.Context, requestID int64, actor workflow.Actor, req transport.SubmitPaymentRequest, receipt transport.Receipt) (transport.PaymentSubmissionResponse, error) {
	if err := s.val.Struct(req); err != nil {
		return transport.PaymentSubmissionResponse{}, err
	}
	if !req.Amount.IsPositive() {
		return transport.PaymentSubmissionResponse{}, apperr.FieldInvalid("amount", "must be greater than zero")
	}
	if len(receipt.Data) == 0 {
		return transport.PaymentSubmissionResponse{}, apperr.FieldInvalid("receipt", "is required")
	}

	request, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return transport.PaymentSubmissionResponse{}, err
	}
	if !actor.CanAccess(request.UserID) {
		return transport.PaymentSubmissionResponse{}, apperr.Forbidden("request belongs to another applicant")
	}

	idx, err := s.index(ctx, []repository.Request{request})
	if err != nil {
		return transport.PaymentSubmissionResponse{}, err
	}
	match := idx.Resolve(request)
	if match.Application == nil || match.Report == nil {
		return transport.PaymentSubmissionResponse{}, apperr.Conflict("request has no evaluation report")
	}
	if match.EffectiveStatus(request) != workflow.EvaluationApproved {
		return transport.PaymentSubmissionResponse{}, apperr.Conflict("request is not approved")
	}

	existing, err := s.repo.ListPaymentsByRequest(ctx, requestID)
	if err != nil {
		return transport.PaymentSubmissionResponse{}, err
	}
	for _, p := range existing {
		switch p.PaymentStatus {
		case workflow.PaymentPending:
			return transport.PaymentSubmissionResponse{}, apperr.Conflict("a payment is already awaiting verification")
		case workflow.PaymentVerified:
			return transport.PaymentSubmissionResponse{}, apperr.Conflict("payment already verified")
		}
	}

	key, err := s.receipts.Put(ctx, receipt.FileName, receipt.ContentType, receipt.Data)
	if err != nil {
		return transport.PaymentSubmissionResponse{}, apperr.Wrap(apperr.KindBadRequest, "receipt upload failed", err)
	}

	paymentDate := s.clock.Now()
	if req.PaymentDate != nil {
		paymentDate = *req.PaymentDate
	}

	var payment repository.Payment
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		payment, err = s.repo.CreatePayment(txCtx, repository.CreatePaymentParams{
			RequestID:       request.ID,
			ApplicationID:   match.Application.ID,
			Amount:          req.Amount,
			PaymentMethod:   sanitize.Text(req.PaymentMethod),
			ReceiptFilePath: key,
			PaymentDate:     paymentDate,
		})
		if err != nil {
			return err
		}
		if err := s.appendHistory(txCtx, workflow.EntityPayment, payment.ID, "", string(payment.PaymentStatus), actor.Label(), nil); err != nil {
			return err
		}
		return s.advanceReport(txCtx, match.Application.ID, workflow.WorkflowPaymentSubmitted, actor.Label())
	})
	if err != nil {
		if delErr := s.receipts.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.log.WithContext(ctx).Warn("failed to remove orphaned receipt", "key", key, "error", delErr)
		}
		return transport.PaymentSubmissionResponse{}, err
	}

	resp := transport.PaymentSubmissionResponse{Payment: toPaymentResponse(payment)}
	to, err := s.recipient(ctx, request.UserID)
	if err != nil {
		resp.SideEffects = append(resp.SideEffects, s.sideEffect(ctx, StepResolveOwner, err, "paymentId", payment.ID))
		return resp, nil
	}
	resp.SideEffects = append(resp.SideEffects, s.publish(ctx, StepNotifyPaymentSubmitted, events.PaymentSubmitted{
		BaseEvent:     events.NewBaseEventAt(s.clock.Now()),
		PaymentID:     payment.ID,
		RequestID:     request.ID,
		Recipient:     to,
		ApplicantName: request.ApplicantName,
		Amount:        certificate.FormatAmount(s.currency, payment.Amount),
		PaymentMethod: payment.PaymentMethod,
	}, "paymentId", payment.ID)...)
	return resp, nil
}

// VerifyPayment verifies a pending payment and issues its certificate. The
// pending guard on the update makes a concurrent second verify fail with a
// conflict, so at most one caller reaches issuance.
func (s *Service) VerifyPayment(ctx context.Context, paymentID int64, actor workflow.Actor) (transport.PaymentDecisionResponse, error) {
	payment, err := s.decidePayment(ctx, paymentID, actor, workflow.PaymentVerified, nil)
	if err != nil {
		return transport.PaymentDecisionResponse{}, err
	}

	resp := transport.PaymentDecisionResponse{Payment: toPaymentResponse(payment)}
	resp.SideEffects = append(resp.SideEffects, s.notifyPayment(ctx, payment, "")...)

	result, err := s.issuer.Issue(ctx, payment.ID, actor.Label())
	if err != nil {
		resp.SideEffects = append(resp.SideEffects, s.sideEffect(ctx, StepIssueCertificate, err, "paymentId", payment.ID))
		return resp, nil
	}
	cert := ToCertificateResponse(result.Certificate)
	resp.Certificate = &cert
	resp.SideEffects = append(resp.SideEffects, result.SideEffects...)
	return resp, nil
}

// RejectPayment rejects a pending payment with a reason.
func (s *Service) RejectPayment(ctx context.Context, paymentID int64, actor workflow.Actor, req transport.RejectRequest) (transport.PaymentDecisionResponse, error) {
	reason, err := validReason(req.Reason)
	if err != nil {
		return transport.PaymentDecisionResponse{}, err
	}
	payment, err := s.decidePayment(ctx, paymentID, actor, workflow.PaymentRejected, &reason)
	if err != nil {
		return transport.PaymentDecisionResponse{}, err
	}
	resp := transport.PaymentDecisionResponse{Payment: toPaymentResponse(payment)}
	resp.SideEffects = s.notifyPayment(ctx, payment, reason)
	return resp, nil
}

func (s *Service) decidePayment(ctx context.Context, paymentID int64, actor workflow.Actor, status workflow.PaymentStatus, reason *string) (repository.Payment, error) {
	current, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return repository.Payment{}, err
	}
	if !workflow.CanDecidePayment(current.PaymentStatus) {
		return repository.Payment{}, apperr.Conflict("payment is no longer pending")
	}

	var payment repository.Payment
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		payment, err = s.repo.DecidePayment(txCtx, repository.DecidePaymentParams{
			PaymentID:       paymentID,
			Status:          status,
			DecidedBy:       actor.Label(),
			DecidedAt:       s.clock.Now(),
			RejectionReason: reason,
		})
		if err != nil {
			return err
		}
		if err := s.appendHistory(txCtx, workflow.EntityPayment, paymentID, string(current.PaymentStatus), string(status), actor.Label(), reason); err != nil {
			return err
		}
		if status != workflow.PaymentVerified {
			return nil
		}
		return s.advanceReport(txCtx, payment.ApplicationID, workflow.WorkflowPaymentVerified, actor.Label())
	})
	return payment, err
}

func (s *Service) notifyPayment(ctx context.Context, payment repository.Payment, reason string) []SideEffectError {
	request, err := s.repo.GetRequest(ctx, payment.RequestID)
	if err != nil {
		return []SideEffectError{s.sideEffect(ctx, StepResolveOwner, err, "paymentId", payment.ID)}
	}
	to, err := s.recipient(ctx, request.UserID)
	if err != nil {
		return []SideEffectError{s.sideEffect(ctx, StepResolveOwner, err, "paymentId", payment.ID, "requestId", request.ID)}
	}

	amount := certificate.FormatAmount(s.currency, payment.Amount)
	base := events.NewBaseEventAt(s.clock.Now())
	if payment.PaymentStatus == workflow.PaymentVerified {
		return s.publish(ctx, StepNotifyPaymentVerified, events.PaymentVerified{
			BaseEvent:     base,
			PaymentID:     payment.ID,
			RequestID:     request.ID,
			Recipient:     to,
			ApplicantName: request.ApplicantName,
			Amount:        amount,
		}, "paymentId", payment.ID)
	}
	return s.publish(ctx, StepNotifyPaymentRejected, events.PaymentRejected{
		BaseEvent:     base,
		PaymentID:     payment.ID,
		RequestID:     request.ID,
		Recipient:     to,
		ApplicantName: request.ApplicantName,
		Amount:        amount,
		Reason:        reason,
	}, "paymentId", payment.ID)
}

// ReceiptURL returns a short-lived link to a payment's receipt.
func (s *Service) ReceiptURL(ctx context.Context, paymentID int64, actor workflow.Actor) (transport.PresignedDownloadResponse, error) {
	payment, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return transport.PresignedDownloadResponse{}, err
	}
	request, err := s.repo.GetRequest(ctx, payment.RequestID)
	if err != nil {
		return transport.PresignedDownloadResponse{}, err
	}
	if !actor.CanAccess(request.UserID) {
		return transport.PresignedDownloadResponse{}, apperr.Forbidden("payment belongs to another applicant")
	}
	url, expiresAt, err := s.receipts.DownloadURL(ctx, payment.ReceiptFilePath)
	if err != nil {
		return transport.PresignedDownloadResponse{}, err
	}
	return transport.PresignedDownloadResponse{DownloadURL: url, ExpiresAt: expiresAt.Unix()}, nil
}
