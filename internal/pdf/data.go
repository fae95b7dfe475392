package pdf

// CertificatePDFData is the display-ready snapshot printed on a land use certificate.
// Every field is preformatted; the renderers do no number or date formatting.
type CertificatePDFData struct {
	CertificateNumber string

	// Issuing office
	Office         string
	Municipality   string
	SignatoryName  string
	SignatoryTitle string

	// Applicant and project
	ApplicantName    string
	ApplicantAddress string
	CorporationName  string
	ProjectType      string
	ProjectNature    string
	ProjectLocation  string
	LotArea          string
	ProjectCost      string

	// Validity
	IssuedOn   string
	ValidUntil string

	VerificationURL string
}
