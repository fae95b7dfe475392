// Package workflow holds the pure state rules of the certification pipeline:
// evaluation decisions, the forward-only report progress marker, payment and
// certificate lifecycles, and the effective status shown to users.
package workflow

import (
	"strings"
	"unicode/utf8"
)

// Evaluation is a decision value. Requests and Reports share the same set.
type Evaluation string

const (
	EvaluationPending  Evaluation = "pending"
	EvaluationApproved Evaluation = "approved"
	EvaluationRejected Evaluation = "rejected"
)

// Valid reports whether e is a known evaluation.
func (e Evaluation) Valid() bool {
	switch e {
	case EvaluationPending, EvaluationApproved, EvaluationRejected:
		return true
	}
	return false
}

// CanEvaluate reports whether a report evaluated as from may be set to to.
// Approved and rejected are final except for an explicit reset to pending.
func CanEvaluate(from, to Evaluation) bool {
	return from == to || from == EvaluationPending || to == EvaluationPending
}

// WorkflowStatus is the report's progress marker after a decision.
// The zero value means no payment has been submitted yet.
type WorkflowStatus string

const (
	WorkflowNone              WorkflowStatus = ""
	WorkflowPaymentSubmitted  WorkflowStatus = "payment_submitted"
	WorkflowPaymentVerified   WorkflowStatus = "payment_verified"
	WorkflowCertificateIssued WorkflowStatus = "certificate_issued"
)

func (w WorkflowStatus) rank() int {
	switch w {
	case WorkflowPaymentSubmitted:
		return 1
	case WorkflowPaymentVerified:
		return 2
	case WorkflowCertificateIssued:
		return 3
	default:
		return 0
	}
}

// Advance returns the later of current and next. The bool is true when the
// marker actually moves.
func Advance(current, next WorkflowStatus) (WorkflowStatus, bool) {
	if next.rank() > current.rank() {
		return next, true
	}
	return current, false
}

// PaymentStatus is the per-row payment lifecycle.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentVerified PaymentStatus = "verified"
	PaymentRejected PaymentStatus = "rejected"
)

// CertificateStatus is the issued document lifecycle.
type CertificateStatus string

const (
	CertificateGenerated CertificateStatus = "generated"
	CertificateSent      CertificateStatus = "sent"
	CertificateCollected CertificateStatus = "collected"
)

// EntityType names the record a StatusHistory row refers to.
type EntityType string

const (
	EntityRequest     EntityType = "request"
	EntityReport      EntityType = "report"
	EntityPayment     EntityType = "payment"
	EntityCertificate EntityType = "certificate"
)

// MaxReasonLength bounds rejection reasons for reports and payments.
const MaxReasonLength = 1000

// ValidateReason checks a rejection reason. It returns a human readable
// message, or "" when the reason is acceptable.
func ValidateReason(reason string) string {
	trimmed := strings.TrimSpace(reason)
	if trimmed == "" {
		return "reason is required"
	}
	if utf8.RuneCountInString(trimmed) > MaxReasonLength {
		return "reason must be at most 1000 characters"
	}
	return ""
}

// CanDecidePayment reports whether a payment in status s may be verified or rejected.
func CanDecidePayment(s PaymentStatus) bool {
	return s == PaymentPending
}

// CollectTransition returns the status after a download. Changed is false for
// repeat downloads of an already collected certificate.
func CollectTransition(current CertificateStatus) (next CertificateStatus, changed bool) {
	if current == CertificateCollected {
		return CertificateCollected, false
	}
	return CertificateCollected, true
}

// SendTransition returns the status after the issuance email was delivered.
// Only a freshly generated certificate moves to sent.
func SendTransition(current CertificateStatus) (CertificateStatus, bool) {
	if current == CertificateGenerated {
		return CertificateSent, true
	}
	return current, false
}
