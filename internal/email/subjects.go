package email

import "fmt"

// notice identifies one applicant notification. Its value names the template
// and is sent to the provider as a tag.
type notice string

const (
	noticeSubmissionReceived  notice = "submission_received"
	noticeApplicationApproved notice = "application_approved"
	noticeApplicationRejected notice = "application_rejected"
	noticePaymentSubmitted    notice = "payment_submitted"
	noticePaymentVerified     notice = "payment_verified"
	noticePaymentRejected     notice = "payment_rejected"
	noticeCertificateIssued   notice = "certificate_issued"
)

var subjectFormats = map[notice]string{
	noticeSubmissionReceived:  "Application received (request #%v)",
	noticeApplicationApproved: "Your application was approved (request #%v)",
	noticeApplicationRejected: "Your application was not approved (request #%v)",
	noticePaymentSubmitted:    "Payment received (request #%v)",
	noticePaymentVerified:     "Payment verified (request #%v)",
	noticePaymentRejected:     "Payment not accepted (request #%v)",
	noticeCertificateIssued:   "Land use certificate %v",
}

func (n notice) template() string { return string(n) + ".html" }

// subject formats the notice subject around ref, a request id or certificate number.
func (n notice) subject(ref any) string {
	return fmt.Sprintf(subjectFormats[n], ref)
}
