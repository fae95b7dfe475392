// Package adapters connects the permits domain to infrastructure packages it
// must not import directly.
package adapters

import (
	"context"

	"zoning_portal_backend/internal/pdf"
	"zoning_portal_backend/internal/permits/certificate"
	"zoning_portal_backend/platform/logger"
)

// CertificateRenderer renders certificates through Gotenberg when a client is
// configured and falls back to the in-process maroto layout otherwise.
type CertificateRenderer struct {
	gotenberg *pdf.GotenbergClient
	log       *logger.Logger
}

// NewCertificateRenderer creates the renderer. gotenberg may be nil.
func NewCertificateRenderer(gotenberg *pdf.GotenbergClient, log *logger.Logger) *CertificateRenderer {
	return &CertificateRenderer{gotenberg: gotenberg, log: log}
}

// Render implements certificate.Renderer. The template id is recorded by the
// issuer; both layouts render the single land use certificate template.
func (r *CertificateRenderer) Render(ctx context.Context, templateID string, snapshot certificate.Snapshot) ([]byte, error) {
	data := toPDFData(snapshot)
	if r.gotenberg == nil {
		return pdf.GenerateCertificatePDF(data)
	}

	doc, err := pdf.GenerateCertificatePDFViaGotenberg(ctx, r.gotenberg, data)
	if err == nil {
		return doc, nil
	}
	r.log.WithContext(ctx).Warn("gotenberg render failed, using built-in layout",
		"certificateNumber", snapshot.CertificateNumber, "templateId", templateID, "error", err)
	return pdf.GenerateCertificatePDF(data)
}

func toPDFData(s certificate.Snapshot) pdf.CertificatePDFData {
	return pdf.CertificatePDFData{
		CertificateNumber: s.CertificateNumber,
		Office:            s.Office,
		Municipality:      s.Municipality,
		SignatoryName:     s.SignatoryName,
		SignatoryTitle:    s.SignatoryTitle,
		ApplicantName:     s.ApplicantName,
		ApplicantAddress:  s.ApplicantAddress,
		CorporationName:   s.CorporationName,
		ProjectType:       s.ProjectType,
		ProjectNature:     s.ProjectNature,
		ProjectLocation:   s.ProjectLocation,
		LotArea:           s.LotArea,
		ProjectCost:       s.ProjectCost,
		IssuedOn:          s.IssuedOn,
		ValidUntil:        s.ValidUntil,
		VerificationURL:   s.VerificationURL,
	}
}

var _ certificate.Renderer = (*CertificateRenderer)(nil)
