package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title    string
	Heading  string
	CTALabel string
	CTAURL   string
}

type submissionEmailData struct {
	baseEmailData
	ApplicantName   string
	RequestID       int64
	ProjectLocation string
}

type decisionEmailData struct {
	baseEmailData
	ApplicantName string
	RequestID     int64
	Amount        string
	Reason        string
}

type paymentEmailData struct {
	baseEmailData
	ApplicantName string
	RequestID     int64
	Amount        string
	Method        string
	Reason        string
}

type certificateEmailData struct {
	baseEmailData
	ApplicantName     string
	CertificateNumber string
	ValidUntil        string
	HasAttachments    bool
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}
