package certificate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"zoning_portal_backend/internal/email"
	"zoning_portal_backend/internal/events"
	"zoning_portal_backend/internal/notification"
	"zoning_portal_backend/internal/permits/repository"
	"zoning_portal_backend/internal/permits/repository/repositorytest"
	"zoning_portal_backend/internal/permits/workflow"
	"zoning_portal_backend/platform/apperr"
	"zoning_portal_backend/platform/clock"
	"zoning_portal_backend/platform/config"
	"zoning_portal_backend/platform/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testCertificateConfig struct{}

func (testCertificateConfig) GetCertificateProfile() config.CertificateProfile {
	return config.DefaultCertificateProfile()
}

func (testCertificateConfig) GetAppBaseURL() string { return "https://permits.example.gov/" }

type fakeRenderer struct {
	mu       sync.Mutex
	calls    int
	snapshot Snapshot
	err      error
}

func (r *fakeRenderer) Render(_ context.Context, _ string, s Snapshot) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.snapshot = s
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF " + s.CertificateNumber), nil
}

type memoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: map[string][]byte{}}
}

func (s *memoryStorage) Put(_ context.Context, fileName, _ string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("certificates/%d_%s", len(s.objects)+len(s.deleted), fileName)
	s.objects[key] = data
	return key, nil
}

func (s *memoryStorage) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *memoryStorage) Read(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, errors.New("missing")
	}
	return data, nil
}

func (s *memoryStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

type fixture struct {
	repo     *repositorytest.Memory
	renderer *fakeRenderer
	storage  *memoryStorage
	bus      *events.InMemoryBus
	mu       sync.Mutex
	issued   []events.CertificateIssued
	issuer   *Issuer
	owner    repository.User
	request  repository.Request
	report   repository.Report
	payment  repository.Payment
	mailErr  error
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     repositorytest.New(),
		renderer: &fakeRenderer{},
		storage:  newMemoryStorage(),
		bus:      events.NewInMemoryBus(logger.Discard()),
	}
	f.bus.Subscribe(events.CertificateIssued{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.issued = append(f.issued, e.(events.CertificateIssued))
		return f.mailErr
	}))

	clk := clock.NewFixed(time.Date(2026, time.October, 19, 10, 0, 0, 0, time.UTC))
	f.issuer = NewIssuer(f.repo, f.repo, f.renderer, f.storage, f.bus, clk, testCertificateConfig{}, logger.Discard())

	f.owner = f.repo.AddUser(repository.User{Name: "Jane Cruz", Email: "jane.cruz@example.com", Role: "applicant"})
	app := f.repo.AddApplication(repository.Application{ApplicantName: "jane cruz", ApplicantAddress: "12 Rizal St"})
	appID := app.ID
	f.request = f.repo.AddRequest(repository.Request{
		UserID:           f.owner.ID,
		ApplicationID:    &appID,
		ApplicantName:    "jane cruz",
		ApplicantAddress: "12 Rizal St",
		ProjectType:      "Residential",
		ProjectNature:    "New construction",
		ProjectLocation:  "Lot 4, Barangay San Isidro",
		LotAreaSqm:       decimal.RequireFromString("250"),
		ProjectCost:      decimal.RequireFromString("1250000"),
	})
	f.report = f.repo.AddReport(repository.Report{
		AppID:          app.ID,
		Evaluation:     workflow.EvaluationApproved,
		WorkflowStatus: workflow.WorkflowPaymentVerified,
	})
	f.payment = f.repo.AddPayment(repository.Payment{
		RequestID:     f.request.ID,
		ApplicationID: app.ID,
		Amount:        decimal.RequireFromString("2500"),
		PaymentStatus: workflow.PaymentVerified,
	})
	return f
}

func TestIssueCreatesSentCertificate(t *testing.T) {
	f := newFixture(t)

	res, err := f.issuer.Issue(context.Background(), f.payment.ID, "Staff B")
	require.NoError(t, err)
	require.True(t, res.Created)
	assert.Empty(t, res.SideEffects)

	cert := res.Certificate
	assert.Equal(t, "CERT-2026-00001", cert.CertificateNumber)
	assert.Equal(t, workflow.CertificateSent, cert.Status)
	assert.Equal(t, time.Date(2031, time.October, 19, 10, 0, 0, 0, time.UTC), cert.ValidUntil)

	report, err := f.repo.GetReport(context.Background(), f.report.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.WorkflowCertificateIssued, report.WorkflowStatus)

	require.Len(t, f.issued, 1)
	assert.Equal(t, "jane.cruz@example.com", f.issued[0].Recipient.Email)
	assert.Equal(t, "CERT-2026-00001.pdf", f.issued[0].FileName)
	assert.NotEmpty(t, f.issued[0].Document)

	assert.Equal(t, "Jane Cruz", f.renderer.snapshot.ApplicantName)
	assert.Equal(t, "PHP 1,250,000.00", f.renderer.snapshot.ProjectCost)
	assert.Equal(t, "250.00 sq m", f.renderer.snapshot.LotArea)
	assert.Equal(t, "https://permits.example.gov/verify/CERT-2026-00001", f.renderer.snapshot.VerificationURL)

	history, err := f.repo.ListHistory(context.Background(), workflow.EntityCertificate, cert.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, string(workflow.CertificateGenerated), history[0].NewStatus)
	assert.Equal(t, string(workflow.CertificateSent), history[1].NewStatus)
}

func TestIssueTwiceReturnsSameCertificate(t *testing.T) {
	f := newFixture(t)

	first, err := f.issuer.Issue(context.Background(), f.payment.ID, "Staff B")
	require.NoError(t, err)
	second, err := f.issuer.Issue(context.Background(), f.payment.ID, "Staff B")
	require.NoError(t, err)

	assert.False(t, second.Created)
	assert.Equal(t, first.Certificate.ID, second.Certificate.ID)
	assert.Len(t, f.repo.Certificates(), 1)
	assert.Equal(t, 1, f.renderer.calls)
	assert.Len(t, f.issued, 1)
}

func TestIssueRequiresVerifiedPayment(t *testing.T) {
	f := newFixture(t)
	pending := f.repo.AddPayment(repository.Payment{RequestID: f.request.ID, ApplicationID: f.report.AppID})

	_, err := f.issuer.Issue(context.Background(), pending.ID, "Staff B")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Empty(t, f.repo.Certificates())
}

func TestIssueRenderFailureAbortsWithoutRecord(t *testing.T) {
	f := newFixture(t)
	f.renderer.err = errors.New("gotenberg unavailable")

	_, err := f.issuer.Issue(context.Background(), f.payment.ID, "Staff B")
	require.Error(t, err)
	assert.Empty(t, f.repo.Certificates())
	assert.Empty(t, f.storage.objects)
}

func TestIssueRemovesStoredFileWhenRecordFails(t *testing.T) {
	f := newFixture(t)
	f.repo.Fail["CreateCertificate"] = errors.New("connection reset")

	_, err := f.issuer.Issue(context.Background(), f.payment.ID, "Staff B")
	require.Error(t, err)
	assert.Empty(t, f.storage.objects)
	assert.Len(t, f.storage.deleted, 1)

	report, err := f.repo.GetReport(context.Background(), f.report.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.WorkflowPaymentVerified, report.WorkflowStatus)
}

func TestIssueEmailFailureKeepsGeneratedStatus(t *testing.T) {
	f := newFixture(t)
	f.mailErr = errors.New("smtp down")

	res, err := f.issuer.Issue(context.Background(), f.payment.ID, "Staff B")
	require.NoError(t, err)
	require.Len(t, res.SideEffects, 1)
	assert.Equal(t, StepNotifyCertificate, res.SideEffects[0].Step)
	assert.Equal(t, workflow.CertificateGenerated, res.Certificate.Status)
}

func TestIssueWithoutDeliveryStaysGenerated(t *testing.T) {
	tests := map[string]func(bus *events.InMemoryBus){
		"no subscriber": func(*events.InMemoryBus) {},
		"email disabled": func(bus *events.InMemoryBus) {
			notification.New(email.NoopSender{}, logger.Discard()).RegisterHandlers(bus)
		},
	}
	for name, wire := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			bus := events.NewInMemoryBus(logger.Discard())
			wire(bus)
			clk := clock.NewFixed(time.Date(2026, time.October, 19, 10, 0, 0, 0, time.UTC))
			issuer := NewIssuer(f.repo, f.repo, f.renderer, f.storage, bus, clk, testCertificateConfig{}, logger.Discard())

			res, err := issuer.Issue(context.Background(), f.payment.ID, "Staff B")
			require.NoError(t, err)
			require.Len(t, res.SideEffects, 1)
			assert.Equal(t, StepNotifyCertificate, res.SideEffects[0].Step)
			assert.Equal(t, workflow.CertificateGenerated, res.Certificate.Status)

			history, err := f.repo.ListHistory(context.Background(), workflow.EntityCertificate, res.Certificate.ID)
			require.NoError(t, err)
			assert.Len(t, history, 1)
		})
	}
}

func TestReissueResendsGeneratedCertificate(t *testing.T) {
	f := newFixture(t)
	f.mailErr = errors.New("smtp down")
	first, err := f.issuer.Issue(context.Background(), f.payment.ID, "Staff B")
	require.NoError(t, err)
	require.Equal(t, workflow.CertificateGenerated, first.Certificate.Status)

	f.mailErr = nil
	res, err := f.issuer.Reissue(context.Background(), f.payment.ID, "operator")
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, first.Certificate.ID, res.Certificate.ID)
	assert.Equal(t, workflow.CertificateSent, res.Certificate.Status)
	assert.Len(t, f.issued, 2)
}

func TestConcurrentIssueCreatesOneCertificate(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	results := make([]Result, 4)
	errs := make([]error, 4)
	for n := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[n], errs[n] = f.issuer.Issue(context.Background(), f.payment.ID, "Staff B")
		}()
	}
	wg.Wait()

	for n := range 4 {
		require.NoError(t, errs[n])
		assert.Equal(t, results[0].Certificate.ID, results[n].Certificate.ID)
	}
	assert.Len(t, f.repo.Certificates(), 1)
}

func TestConcurrentIssueAllocatesDistinctNumbers(t *testing.T) {
	f := newFixture(t)
	payments := []repository.Payment{f.payment}
	for range 4 {
		payments = append(payments, f.repo.AddPayment(repository.Payment{
			RequestID:     f.request.ID,
			ApplicationID: f.report.AppID,
			Amount:        decimal.RequireFromString("2500"),
			PaymentStatus: workflow.PaymentVerified,
		}))
	}

	var wg sync.WaitGroup
	errs := make([]error, len(payments))
	for n, p := range payments {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[n] = f.issuer.Issue(context.Background(), p.ID, "Staff B")
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	certs := f.repo.Certificates()
	require.Len(t, certs, len(payments))
	numbers := map[string]bool{}
	for _, c := range certs {
		assert.False(t, numbers[c.CertificateNumber], "duplicate number %s", c.CertificateNumber)
		numbers[c.CertificateNumber] = true
	}
}

func TestConcurrentDownloadsCollectOnce(t *testing.T) {
	f := newFixture(t)
	res, err := f.issuer.Issue(context.Background(), f.payment.ID, "Staff B")
	require.NoError(t, err)
	applicant := workflow.Actor{ID: f.owner.ID, Name: f.owner.Name}

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.issuer.Download(context.Background(), res.Certificate.ID, applicant)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	history, err := f.repo.ListHistory(context.Background(), workflow.EntityCertificate, res.Certificate.ID)
	require.NoError(t, err)
	collected := 0
	for _, h := range history {
		if h.OldStatus != h.NewStatus && h.NewStatus == string(workflow.CertificateCollected) {
			collected++
		}
	}
	assert.Equal(t, 1, collected)
	assert.Len(t, history, 2+4)
}

func TestDownloadFirstAndRepeat(t *testing.T) {
	f := newFixture(t)
	res, err := f.issuer.Issue(context.Background(), f.payment.ID, "Staff B")
	require.NoError(t, err)
	applicant := workflow.Actor{ID: f.owner.ID, Name: f.owner.Name}

	first, err := f.issuer.Download(context.Background(), res.Certificate.ID, applicant)
	require.NoError(t, err)
	assert.Equal(t, workflow.CertificateCollected, first.Certificate.Status)
	assert.Equal(t, "CERT-2026-00001.pdf", first.FileName)
	assert.NotEmpty(t, first.Content)

	second, err := f.issuer.Download(context.Background(), res.Certificate.ID, applicant)
	require.NoError(t, err)
	assert.Equal(t, workflow.CertificateCollected, second.Certificate.Status)

	history, err := f.repo.ListHistory(context.Background(), workflow.EntityCertificate, res.Certificate.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, string(workflow.CertificateSent), history[2].OldStatus)
	assert.Equal(t, string(workflow.CertificateCollected), history[2].NewStatus)
	assert.Equal(t, string(workflow.CertificateCollected), history[3].OldStatus)
	assert.Equal(t, string(workflow.CertificateCollected), history[3].NewStatus)
	require.NotNil(t, history[3].Notes)
	assert.Equal(t, "repeat download", *history[3].Notes)
}

func TestDownloadRejectsOtherApplicant(t *testing.T) {
	f := newFixture(t)
	res, err := f.issuer.Issue(context.Background(), f.payment.ID, "Staff B")
	require.NoError(t, err)

	_, err = f.issuer.Download(context.Background(), res.Certificate.ID, workflow.Actor{ID: f.owner.ID + 100})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = f.issuer.Download(context.Background(), res.Certificate.ID, workflow.Actor{ID: 999, IsAdmin: true})
	assert.NoError(t, err)
}

func TestDownloadMissingFileIsNotFound(t *testing.T) {
	f := newFixture(t)
	res, err := f.issuer.Issue(context.Background(), f.payment.ID, "Staff B")
	require.NoError(t, err)
	require.NoError(t, f.storage.Delete(context.Background(), res.Certificate.CertificateFilePath))

	_, err = f.issuer.Download(context.Background(), res.Certificate.ID, workflow.Actor{ID: f.owner.ID})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	cert, err := f.repo.GetCertificate(context.Background(), res.Certificate.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.CertificateSent, cert.Status)
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "CERT-2026-00042", FormatNumber(2026, 42))
	assert.Equal(t, "CERT-2026-123456", FormatNumber(2026, 123456))
	assert.Equal(t, "PHP 2,500.50", FormatAmount("PHP", decimal.RequireFromString("2500.5")))
	assert.Equal(t, "0.00", FormatAmount("", decimal.Zero))
	assert.Equal(t, "Jane Dela Cruz", TitleName("  JANE   dela cruz "))
}
