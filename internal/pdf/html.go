package pdf

import (
	"bytes"
	"context"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"

	qrcode "github.com/skip2/go-qrcode"
)

//go:embed templates/certificate.html
var templateFS embed.FS

var certificateTemplate = template.Must(template.ParseFS(templateFS, "templates/certificate.html"))

type certificateHTMLData struct {
	CertificatePDFData
	QRCodeDataURI template.URL
}

// RenderCertificateHTML renders the certificate page with an embedded verification QR code.
func RenderCertificateHTML(data CertificatePDFData) ([]byte, error) {
	view := certificateHTMLData{CertificatePDFData: data}
	if data.VerificationURL != "" {
		png, err := qrcode.Encode(data.VerificationURL, qrcode.Medium, 256)
		if err != nil {
			return nil, fmt.Errorf("encode verification qr: %w", err)
		}
		view.QRCodeDataURI = template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
	}

	var buf bytes.Buffer
	if err := certificateTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("execute certificate template: %w", err)
	}
	return buf.Bytes(), nil
}

// GenerateCertificatePDFViaGotenberg renders the HTML certificate and converts it through Gotenberg.
func GenerateCertificatePDFViaGotenberg(ctx context.Context, client *GotenbergClient, data CertificatePDFData) ([]byte, error) {
	html, err := RenderCertificateHTML(data)
	if err != nil {
		return nil, err
	}
	return client.ConvertHTML(ctx, html, CertificateOpts(data.CertificateNumber))
}
