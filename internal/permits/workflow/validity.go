package workflow

import "time"

// CertificateValidityYears is the fixed validity period of an issued certificate.
const CertificateValidityYears = 5

// ValidUntil adds the validity period in calendar years. A certificate issued
// on 29 February expires on 1 March when the target year has no leap day,
// following time.AddDate normalisation.
func ValidUntil(issuedAt time.Time) time.Time {
	return issuedAt.AddDate(CertificateValidityYears, 0, 0)
}
