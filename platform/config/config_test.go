package config

import "testing"

func TestParseCertificateProfileOverridesDefaults(t *testing.T) {
	profile, err := ParseCertificateProfile([]byte(`
office: City Planning and Development Office
municipality: Antipolo
signatory_name: Maria Santos
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if profile.Office != "City Planning and Development Office" {
		t.Fatalf("expected office override, got %q", profile.Office)
	}
	if profile.SignatoryName != "Maria Santos" {
		t.Fatalf("expected signatory override, got %q", profile.SignatoryName)
	}
	if profile.TemplateID != "land_use_certificate" {
		t.Fatalf("expected default template id, got %q", profile.TemplateID)
	}
	if profile.CurrencySymbol != "PHP" {
		t.Fatalf("expected default currency symbol, got %q", profile.CurrencySymbol)
	}
}

func TestParseCertificateProfileRejectsInvalidYAML(t *testing.T) {
	if _, err := ParseCertificateProfile([]byte("office: [unterminated")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadCertificateProfileEmptyPathUsesDefaults(t *testing.T) {
	profile, err := loadCertificateProfile("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile != DefaultCertificateProfile() {
		t.Fatalf("expected defaults, got %+v", profile)
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("CERTIFICATE_PROFILE_PATH", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is empty")
	}
}

func TestLoadEmailDisabledWithoutSMTPHost(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/zoning")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("EMAIL_PROVIDER", "smtp")
	t.Setenv("SMTP_HOST", "")
	t.Setenv("CORS_ALLOW_ALL", "false")
	t.Setenv("CORS_ORIGINS", "http://localhost:4200")
	t.Setenv("CERTIFICATE_PROFILE_PATH", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GetEmailEnabled() {
		t.Fatal("expected email to be disabled without SMTP host")
	}
}
