package email

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"zoning_portal_backend/platform/config"
)

// Attachment represents a file attachment for an email.
type Attachment struct {
	Content  []byte // raw file bytes
	FileName string // e.g. "CERT-2026-00042.pdf"
	MIMEType string // e.g. "application/pdf"
}

// Sender delivers the applicant notifications of the certification workflow.
type Sender interface {
	SendSubmissionReceivedEmail(ctx context.Context, toEmail, applicantName string, requestID int64, projectLocation string) error
	SendApplicationApprovedEmail(ctx context.Context, toEmail, applicantName string, requestID int64, amount string) error
	SendApplicationRejectedEmail(ctx context.Context, toEmail, applicantName string, requestID int64, reason string) error
	SendPaymentSubmittedEmail(ctx context.Context, toEmail, applicantName string, requestID int64, amount, method string) error
	SendPaymentVerifiedEmail(ctx context.Context, toEmail, applicantName string, requestID int64, amount string) error
	SendPaymentRejectedEmail(ctx context.Context, toEmail, applicantName string, requestID int64, amount, reason string) error
	SendCertificateIssuedEmail(ctx context.Context, toEmail, applicantName, certificateNumber, validUntil string, attachments ...Attachment) error
}

// ErrDisabled is returned by NoopSender for the certificate notice, whose
// delivery moves the certificate to sent.
var ErrDisabled = errors.New("email delivery is disabled")

// NoopSender drops every message. Used when email is disabled.
type NoopSender struct{}

func (NoopSender) SendSubmissionReceivedEmail(context.Context, string, string, int64, string) error {
	return nil
}

func (NoopSender) SendApplicationApprovedEmail(context.Context, string, string, int64, string) error {
	return nil
}

func (NoopSender) SendApplicationRejectedEmail(context.Context, string, string, int64, string) error {
	return nil
}

func (NoopSender) SendPaymentSubmittedEmail(context.Context, string, string, int64, string, string) error {
	return nil
}

func (NoopSender) SendPaymentVerifiedEmail(context.Context, string, string, int64, string) error {
	return nil
}

func (NoopSender) SendPaymentRejectedEmail(context.Context, string, string, int64, string, string) error {
	return nil
}

func (NoopSender) SendCertificateIssuedEmail(context.Context, string, string, string, string, ...Attachment) error {
	return ErrDisabled
}

// message is one rendered notice ready for delivery.
type message struct {
	to          string
	subject     string
	html        string
	tag         string
	attachments []Attachment
}

type transport interface {
	deliver(ctx context.Context, m message) error
}

// TemplateSender renders the embedded HTML templates and hands them to a transport.
type TemplateSender struct {
	transport transport
	portalURL string
}

// NewSender builds the configured Sender. Disabled email yields a NoopSender.
func NewSender(cfg config.EmailConfig, portalURL string) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}

	var t transport
	switch strings.ToLower(cfg.GetEmailProvider()) {
	case "brevo":
		t = newBrevoTransport(cfg.GetBrevoAPIKey(), cfg.GetEmailFromName(), cfg.GetEmailFromAddress(), brevoEndpoint)
	case "smtp", "":
		t = newSMTPTransport(smtpConfig{
			host:      cfg.GetSMTPHost(),
			port:      cfg.GetSMTPPort(),
			username:  cfg.GetSMTPUsername(),
			password:  cfg.GetSMTPPassword(),
			fromName:  cfg.GetEmailFromName(),
			fromEmail: cfg.GetEmailFromAddress(),
		})
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.GetEmailProvider())
	}

	return &TemplateSender{transport: t, portalURL: strings.TrimRight(portalURL, "/")}, nil
}

func (s *TemplateSender) requestURL(requestID int64) string {
	return fmt.Sprintf("%s/requests/%d", s.portalURL, requestID)
}

// send renders n with data and delivers it. ref fills the subject line.
func (s *TemplateSender) send(ctx context.Context, n notice, toEmail string, ref, data any, attachments ...Attachment) error {
	content, err := renderEmailTemplate(n.template(), data)
	if err != nil {
		return err
	}
	return s.transport.deliver(ctx, message{
		to:          toEmail,
		subject:     n.subject(ref),
		html:        content,
		tag:         string(n),
		attachments: attachments,
	})
}

func (s *TemplateSender) SendSubmissionReceivedEmail(ctx context.Context, toEmail, applicantName string, requestID int64, projectLocation string) error {
	return s.send(ctx, noticeSubmissionReceived, toEmail, requestID, submissionEmailData{
		baseEmailData: baseEmailData{
			Title:    "Application received",
			Heading:  "We received your application",
			CTALabel: "View your request",
			CTAURL:   s.requestURL(requestID),
		},
		ApplicantName:   applicantName,
		RequestID:       requestID,
		ProjectLocation: projectLocation,
	})
}

func (s *TemplateSender) SendApplicationApprovedEmail(ctx context.Context, toEmail, applicantName string, requestID int64, amount string) error {
	return s.send(ctx, noticeApplicationApproved, toEmail, requestID, decisionEmailData{
		baseEmailData: baseEmailData{
			Title:    "Application approved",
			Heading:  "Your application was approved",
			CTALabel: "Continue to payment",
			CTAURL:   s.requestURL(requestID),
		},
		ApplicantName: applicantName,
		RequestID:     requestID,
		Amount:        amount,
	})
}

func (s *TemplateSender) SendApplicationRejectedEmail(ctx context.Context, toEmail, applicantName string, requestID int64, reason string) error {
	return s.send(ctx, noticeApplicationRejected, toEmail, requestID, decisionEmailData{
		baseEmailData: baseEmailData{
			Title:   "Application not approved",
			Heading: "Your application was not approved",
		},
		ApplicantName: applicantName,
		RequestID:     requestID,
		Reason:        reason,
	})
}

func (s *TemplateSender) SendPaymentSubmittedEmail(ctx context.Context, toEmail, applicantName string, requestID int64, amount, method string) error {
	return s.send(ctx, noticePaymentSubmitted, toEmail, requestID, paymentEmailData{
		baseEmailData: baseEmailData{
			Title:   "Payment received",
			Heading: "We received your payment",
		},
		ApplicantName: applicantName,
		RequestID:     requestID,
		Amount:        amount,
		Method:        method,
	})
}

func (s *TemplateSender) SendPaymentVerifiedEmail(ctx context.Context, toEmail, applicantName string, requestID int64, amount string) error {
	return s.send(ctx, noticePaymentVerified, toEmail, requestID, paymentEmailData{
		baseEmailData: baseEmailData{
			Title:   "Payment verified",
			Heading: "Your payment was verified",
		},
		ApplicantName: applicantName,
		RequestID:     requestID,
		Amount:        amount,
	})
}

func (s *TemplateSender) SendPaymentRejectedEmail(ctx context.Context, toEmail, applicantName string, requestID int64, amount, reason string) error {
	return s.send(ctx, noticePaymentRejected, toEmail, requestID, paymentEmailData{
		baseEmailData: baseEmailData{
			Title:    "Payment not accepted",
			Heading:  "Your payment could not be verified",
			CTALabel: "Submit a new payment",
			CTAURL:   s.requestURL(requestID),
		},
		ApplicantName: applicantName,
		RequestID:     requestID,
		Amount:        amount,
		Reason:        reason,
	})
}

func (s *TemplateSender) SendCertificateIssuedEmail(ctx context.Context, toEmail, applicantName, certificateNumber, validUntil string, attachments ...Attachment) error {
	return s.send(ctx, noticeCertificateIssued, toEmail, certificateNumber, certificateEmailData{
		baseEmailData: baseEmailData{
			Title:   "Certificate issued",
			Heading: "Your land use certificate is ready",
		},
		ApplicantName:     applicantName,
		CertificateNumber: certificateNumber,
		ValidUntil:        validUntil,
		HasAttachments:    len(attachments) > 0,
	}, attachments...)
}
