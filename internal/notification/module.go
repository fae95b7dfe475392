// Package notification provides event handlers for sending applicant emails
// in response to permit workflow events.
// This module subscribes to events and inverts the dependency: the permit
// services do not know about email providers or templates.
package notification

import (
	"context"
	"fmt"
	"strings"

	"zoning_portal_backend/internal/email"
	"zoning_portal_backend/internal/events"
	"zoning_portal_backend/platform/logger"
)

const validUntilLayout = "January 2, 2006"

// Module handles notification events.
type Module struct {
	sender email.Sender
	log    *logger.Logger
}

// New creates a new notification module.
func New(sender email.Sender, log *logger.Logger) *Module {
	return &Module{
		sender: sender,
		log:    log,
	}
}

// RegisterHandlers subscribes the module to every workflow event.
func (m *Module) RegisterHandlers(bus events.Bus) {
	events.SubscribeAll(bus, m)
	m.log.Info("notification module registered event handlers", "events", len(events.WorkflowEvents()))
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.RequestSubmitted:
		return m.handleRequestSubmitted(ctx, e)
	case events.ApplicationApproved:
		return m.handleApplicationApproved(ctx, e)
	case events.ApplicationRejected:
		return m.handleApplicationRejected(ctx, e)
	case events.PaymentSubmitted:
		return m.handlePaymentSubmitted(ctx, e)
	case events.PaymentVerified:
		return m.handlePaymentVerified(ctx, e)
	case events.PaymentRejected:
		return m.handlePaymentRejected(ctx, e)
	case events.CertificateIssued:
		return m.handleCertificateIssued(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

// ErrNoRecipient is returned when an event carries no deliverable address.
var ErrNoRecipient = fmt.Errorf("notification recipient has no email address")

func recipientEmail(r events.Recipient) (string, error) {
	addr := strings.TrimSpace(r.Email)
	if addr == "" {
		return "", ErrNoRecipient
	}
	return addr, nil
}

func (m *Module) handleRequestSubmitted(ctx context.Context, e events.RequestSubmitted) error {
	to, err := recipientEmail(e.Recipient)
	if err != nil {
		return m.failed(ctx, e, err, "requestId", e.RequestID)
	}
	if err := m.sender.SendSubmissionReceivedEmail(ctx, to, e.ApplicantName, e.RequestID, e.ProjectLocation); err != nil {
		return m.failed(ctx, e, err, "requestId", e.RequestID)
	}
	m.log.WithContext(ctx).Info("submission email sent", "requestId", e.RequestID)
	return nil
}

func (m *Module) handleApplicationApproved(ctx context.Context, e events.ApplicationApproved) error {
	to, err := recipientEmail(e.Recipient)
	if err != nil {
		return m.failed(ctx, e, err, "reportId", e.ReportID)
	}
	if err := m.sender.SendApplicationApprovedEmail(ctx, to, e.ApplicantName, e.RequestID, e.Amount); err != nil {
		return m.failed(ctx, e, err, "reportId", e.ReportID)
	}
	m.log.WithContext(ctx).Info("approval email sent", "reportId", e.ReportID, "requestId", e.RequestID)
	return nil
}

func (m *Module) handleApplicationRejected(ctx context.Context, e events.ApplicationRejected) error {
	to, err := recipientEmail(e.Recipient)
	if err != nil {
		return m.failed(ctx, e, err, "reportId", e.ReportID)
	}
	if err := m.sender.SendApplicationRejectedEmail(ctx, to, e.ApplicantName, e.RequestID, e.Reason); err != nil {
		return m.failed(ctx, e, err, "reportId", e.ReportID)
	}
	m.log.WithContext(ctx).Info("rejection email sent", "reportId", e.ReportID, "requestId", e.RequestID)
	return nil
}

func (m *Module) handlePaymentSubmitted(ctx context.Context, e events.PaymentSubmitted) error {
	to, err := recipientEmail(e.Recipient)
	if err != nil {
		return m.failed(ctx, e, err, "paymentId", e.PaymentID)
	}
	if err := m.sender.SendPaymentSubmittedEmail(ctx, to, e.ApplicantName, e.RequestID, e.Amount, e.PaymentMethod); err != nil {
		return m.failed(ctx, e, err, "paymentId", e.PaymentID)
	}
	m.log.WithContext(ctx).Info("payment submitted email sent", "paymentId", e.PaymentID)
	return nil
}

func (m *Module) handlePaymentVerified(ctx context.Context, e events.PaymentVerified) error {
	to, err := recipientEmail(e.Recipient)
	if err != nil {
		return m.failed(ctx, e, err, "paymentId", e.PaymentID)
	}
	if err := m.sender.SendPaymentVerifiedEmail(ctx, to, e.ApplicantName, e.RequestID, e.Amount); err != nil {
		return m.failed(ctx, e, err, "paymentId", e.PaymentID)
	}
	m.log.WithContext(ctx).Info("payment verified email sent", "paymentId", e.PaymentID)
	return nil
}

func (m *Module) handlePaymentRejected(ctx context.Context, e events.PaymentRejected) error {
	to, err := recipientEmail(e.Recipient)
	if err != nil {
		return m.failed(ctx, e, err, "paymentId", e.PaymentID)
	}
	if err := m.sender.SendPaymentRejectedEmail(ctx, to, e.ApplicantName, e.RequestID, e.Amount, e.Reason); err != nil {
		return m.failed(ctx, e, err, "paymentId", e.PaymentID)
	}
	m.log.WithContext(ctx).Info("payment rejected email sent", "paymentId", e.PaymentID)
	return nil
}

func (m *Module) handleCertificateIssued(ctx context.Context, e events.CertificateIssued) error {
	to, err := recipientEmail(e.Recipient)
	if err != nil {
		return m.failed(ctx, e, err, "certificateId", e.CertificateID)
	}

	var attachments []email.Attachment
	if len(e.Document) > 0 {
		fileName := e.FileName
		if fileName == "" {
			fileName = e.CertificateNumber + ".pdf"
		}
		attachments = append(attachments, email.Attachment{
			Content:  e.Document,
			FileName: fileName,
			MIMEType: "application/pdf",
		})
	}

	validUntil := e.ValidUntil.Format(validUntilLayout)
	if err := m.sender.SendCertificateIssuedEmail(ctx, to, e.ApplicantName, e.CertificateNumber, validUntil, attachments...); err != nil {
		return m.failed(ctx, e, err, "certificateId", e.CertificateID)
	}
	m.log.WithContext(ctx).Info("certificate email sent",
		"certificateId", e.CertificateID,
		"certificateNumber", e.CertificateNumber,
	)
	return nil
}

func (m *Module) failed(ctx context.Context, event events.Event, err error, attrs ...any) error {
	args := append([]any{"event", event.EventName(), "error", err}, attrs...)
	m.log.WithContext(ctx).Error("failed to send notification email", args...)
	return fmt.Errorf("%s: %w", event.EventName(), err)
}
