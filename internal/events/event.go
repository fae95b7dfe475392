// Package events defines the permit workflow events. Services publish them
// after commit and the notification module turns them into email.
package events

import (
	"time"

	"zoning_portal_backend/platform/events"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

var (
	NewBaseEvent   = events.NewBaseEvent
	NewBaseEventAt = events.NewBaseEventAt
)

// Recipient identifies the applicant a notification goes to.
type Recipient struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

// =============================================================================
// Submission Events
// =============================================================================

// RequestSubmitted is published after an applicant's submission is committed.
type RequestSubmitted struct {
	BaseEvent
	RequestID       int64     `json:"requestId"`
	ApplicationID   int64     `json:"applicationId"`
	Recipient       Recipient `json:"recipient"`
	ApplicantName   string    `json:"applicantName"`
	ProjectLocation string    `json:"projectLocation"`
}

func (e RequestSubmitted) EventName() string { return "permits.request.submitted" }

// =============================================================================
// Evaluation Events
// =============================================================================

// ApplicationApproved is published when a report's evaluation changes to approved.
type ApplicationApproved struct {
	BaseEvent
	ReportID      int64     `json:"reportId"`
	RequestID     int64     `json:"requestId"`
	Recipient     Recipient `json:"recipient"`
	ApplicantName string    `json:"applicantName"`
	IssuedBy      string    `json:"issuedBy"`
	Amount        string    `json:"amount,omitempty"`
}

func (e ApplicationApproved) EventName() string { return "permits.application.approved" }

// ApplicationRejected is published when a report's evaluation changes to rejected.
type ApplicationRejected struct {
	BaseEvent
	ReportID      int64     `json:"reportId"`
	RequestID     int64     `json:"requestId"`
	Recipient     Recipient `json:"recipient"`
	ApplicantName string    `json:"applicantName"`
	Reason        string    `json:"reason"`
}

func (e ApplicationRejected) EventName() string { return "permits.application.rejected" }

// =============================================================================
// Payment Events
// =============================================================================

// PaymentSubmitted is published after an applicant uploads a payment.
type PaymentSubmitted struct {
	BaseEvent
	PaymentID     int64     `json:"paymentId"`
	RequestID     int64     `json:"requestId"`
	Recipient     Recipient `json:"recipient"`
	ApplicantName string    `json:"applicantName"`
	Amount        string    `json:"amount"`
	PaymentMethod string    `json:"paymentMethod"`
}

func (e PaymentSubmitted) EventName() string { return "permits.payment.submitted" }

// PaymentVerified is published after staff verify a payment.
type PaymentVerified struct {
	BaseEvent
	PaymentID     int64     `json:"paymentId"`
	RequestID     int64     `json:"requestId"`
	Recipient     Recipient `json:"recipient"`
	ApplicantName string    `json:"applicantName"`
	Amount        string    `json:"amount"`
}

func (e PaymentVerified) EventName() string { return "permits.payment.verified" }

// PaymentRejected is published after staff reject a payment.
type PaymentRejected struct {
	BaseEvent
	PaymentID     int64     `json:"paymentId"`
	RequestID     int64     `json:"requestId"`
	Recipient     Recipient `json:"recipient"`
	ApplicantName string    `json:"applicantName"`
	Amount        string    `json:"amount"`
	Reason        string    `json:"reason"`
}

func (e PaymentRejected) EventName() string { return "permits.payment.rejected" }

// =============================================================================
// Certificate Events
// =============================================================================

// CertificateIssued is published once the certificate document is stored and
// recorded. Document carries the rendered PDF for the email attachment.
type CertificateIssued struct {
	BaseEvent
	CertificateID     int64     `json:"certificateId"`
	CertificateNumber string    `json:"certificateNumber"`
	RequestID         int64     `json:"requestId"`
	Recipient         Recipient `json:"recipient"`
	ApplicantName     string    `json:"applicantName"`
	ValidUntil        time.Time `json:"validUntil"`
	FileName          string    `json:"fileName"`
	Document          []byte    `json:"-"`
}

func (e CertificateIssued) EventName() string { return "permits.certificate.issued" }
