package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"zoning_portal_backend/internal/email"
	"zoning_portal_backend/internal/events"
	"zoning_portal_backend/platform/logger"
)

type testSender struct {
	submitted       int
	approved        int
	rejected        int
	paymentVerified int
	certificates    int
	lastTo          string
	lastReason      string
	lastValidUntil  string
	lastAttachments []email.Attachment
	err             error
}

func (s *testSender) SendSubmissionReceivedEmail(_ context.Context, to, _ string, _ int64, _ string) error {
	s.submitted++
	s.lastTo = to
	return s.err
}

func (s *testSender) SendApplicationApprovedEmail(_ context.Context, to, _ string, _ int64, _ string) error {
	s.approved++
	s.lastTo = to
	return s.err
}

func (s *testSender) SendApplicationRejectedEmail(_ context.Context, to, _ string, _ int64, reason string) error {
	s.rejected++
	s.lastTo = to
	s.lastReason = reason
	return s.err
}

func (s *testSender) SendPaymentSubmittedEmail(context.Context, string, string, int64, string, string) error {
	return s.err
}

func (s *testSender) SendPaymentVerifiedEmail(_ context.Context, to, _ string, _ int64, _ string) error {
	s.paymentVerified++
	s.lastTo = to
	return s.err
}

func (s *testSender) SendPaymentRejectedEmail(_ context.Context, _, _ string, _ int64, _, reason string) error {
	s.lastReason = reason
	return s.err
}

func (s *testSender) SendCertificateIssuedEmail(_ context.Context, to, _, _, validUntil string, attachments ...email.Attachment) error {
	s.certificates++
	s.lastTo = to
	s.lastValidUntil = validUntil
	s.lastAttachments = attachments
	return s.err
}

const testApplicantEmail = "jane.cruz@example.com"

func newTestModule(sender *testSender) *Module {
	return New(sender, logger.Discard())
}

func TestRegisteredHandlersReceiveApprovalThroughBus(t *testing.T) {
	sender := &testSender{}
	m := newTestModule(sender)
	bus := events.NewInMemoryBus(logger.Discard())
	m.RegisterHandlers(bus)

	err := bus.PublishSync(context.Background(), events.ApplicationApproved{
		BaseEvent:     events.NewBaseEvent(),
		ReportID:      3,
		RequestID:     12,
		Recipient:     events.Recipient{UserID: 5, Email: testApplicantEmail, Name: "Jane Cruz"},
		ApplicantName: "Jane Cruz",
		IssuedBy:      "Staff A",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sender.approved != 1 {
		t.Fatalf("expected one approval email, got %d", sender.approved)
	}
	if sender.lastTo != testApplicantEmail {
		t.Fatalf("expected email to %s, got %s", testApplicantEmail, sender.lastTo)
	}
}

func TestHandleRejectedPassesReason(t *testing.T) {
	sender := &testSender{}
	m := newTestModule(sender)

	err := m.Handle(context.Background(), events.ApplicationRejected{
		BaseEvent: events.NewBaseEvent(),
		ReportID:  3,
		Recipient: events.Recipient{Email: testApplicantEmail},
		Reason:    "Incomplete lot plan",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sender.lastReason != "Incomplete lot plan" {
		t.Fatalf("expected reason to be forwarded, got %q", sender.lastReason)
	}
}

func TestHandleReturnsSenderError(t *testing.T) {
	sendErr := errors.New("smtp unavailable")
	sender := &testSender{err: sendErr}
	m := newTestModule(sender)

	err := m.Handle(context.Background(), events.PaymentVerified{
		BaseEvent: events.NewBaseEvent(),
		PaymentID: 7,
		Recipient: events.Recipient{Email: testApplicantEmail},
	})
	if !errors.Is(err, sendErr) {
		t.Fatalf("expected sender error to propagate, got %v", err)
	}
}

func TestHandleWithoutRecipientEmailFails(t *testing.T) {
	sender := &testSender{}
	m := newTestModule(sender)

	err := m.Handle(context.Background(), events.RequestSubmitted{
		BaseEvent: events.NewBaseEvent(),
		RequestID: 1,
		Recipient: events.Recipient{UserID: 5},
	})
	if !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("expected ErrNoRecipient, got %v", err)
	}
	if sender.submitted != 0 {
		t.Fatal("expected no email without a recipient address")
	}
}

func TestHandleCertificateIssuedAttachesDocument(t *testing.T) {
	sender := &testSender{}
	m := newTestModule(sender)

	err := m.Handle(context.Background(), events.CertificateIssued{
		BaseEvent:         events.NewBaseEvent(),
		CertificateID:     1,
		CertificateNumber: "CERT-2026-00001",
		Recipient:         events.Recipient{Email: testApplicantEmail},
		ValidUntil:        time.Date(2031, time.October, 19, 0, 0, 0, 0, time.UTC),
		Document:          []byte("%PDF-1.7"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.lastAttachments) != 1 {
		t.Fatalf("expected one attachment, got %d", len(sender.lastAttachments))
	}
	if sender.lastAttachments[0].FileName != "CERT-2026-00001.pdf" {
		t.Fatalf("unexpected attachment name %q", sender.lastAttachments[0].FileName)
	}
	if sender.lastValidUntil != "October 19, 2031" {
		t.Fatalf("unexpected valid until %q", sender.lastValidUntil)
	}
}

func TestHandleUnknownEventIsIgnored(t *testing.T) {
	m := newTestModule(&testSender{})
	if err := m.Handle(context.Background(), unknownEvent{}); err != nil {
		t.Fatalf("expected nil for unknown event, got %v", err)
	}
}

type unknownEvent struct{ events.BaseEvent }

func (unknownEvent) EventName() string { return "unknown" }
