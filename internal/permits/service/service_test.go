package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"zoning_portal_backend/internal/events"
	"zoning_portal_backend/internal/permits/certificate"
	"zoning_portal_backend/internal/permits/repository"
	"zoning_portal_backend/internal/permits/repository/repositorytest"
	"zoning_portal_backend/internal/permits/transport"
	"zoning_portal_backend/internal/permits/workflow"
	"zoning_portal_backend/platform/apperr"
	"zoning_portal_backend/platform/clock"
	"zoning_portal_backend/platform/config"
	"zoning_portal_backend/platform/logger"
	"zoning_portal_backend/platform/validator"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	now   = time.Date(2026, time.October, 19, 10, 0, 0, 0, time.UTC)
	admin = workflow.Actor{ID: 1, Name: "Admin", IsAdmin: true}
)

type testCertificateConfig struct{}

func (testCertificateConfig) GetCertificateProfile() config.CertificateProfile {
	return config.DefaultCertificateProfile()
}

func (testCertificateConfig) GetAppBaseURL() string { return "https://permits.example.gov" }

type stubRenderer struct{}

func (stubRenderer) Render(_ context.Context, _ string, s certificate.Snapshot) ([]byte, error) {
	return []byte("%PDF " + s.CertificateNumber), nil
}

type memoryFiles struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMemoryFiles() *memoryFiles {
	return &memoryFiles{objects: map[string][]byte{}}
}

func (f *memoryFiles) Put(_ context.Context, fileName, _ string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return "", f.putErr
	}
	key := fmt.Sprintf("files/%d_%s", len(f.objects), fileName)
	f.objects[key] = data
	return key, nil
}

func (f *memoryFiles) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok, nil
}

func (f *memoryFiles) Read(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("missing")
	}
	return data, nil
}

func (f *memoryFiles) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *memoryFiles) DownloadURL(_ context.Context, key string) (string, time.Time, error) {
	return "https://files.local/" + key, now.Add(15 * time.Minute), nil
}

// recorder captures every published event and can fail delivery.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (r *recorder) Handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recorder) named(name string) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	repo     *repositorytest.Memory
	files    *memoryFiles
	receipts *memoryFiles
	rec      *recorder
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     repositorytest.New(),
		files:    newMemoryFiles(),
		receipts: newMemoryFiles(),
		rec:      &recorder{},
	}
	bus := events.NewInMemoryBus(logger.Discard())
	for _, name := range []string{
		events.RequestSubmitted{}.EventName(),
		events.ApplicationApproved{}.EventName(),
		events.ApplicationRejected{}.EventName(),
		events.PaymentSubmitted{}.EventName(),
		events.PaymentVerified{}.EventName(),
		events.PaymentRejected{}.EventName(),
		events.CertificateIssued{}.EventName(),
	} {
		bus.Subscribe(name, f.rec)
	}

	clk := clock.NewFixed(now)
	issuer := certificate.NewIssuer(f.repo, f.repo, stubRenderer{}, f.files, bus, clk, testCertificateConfig{}, logger.Discard())
	f.svc = New(f.repo, f.repo, bus, issuer, f.receipts, clk, validator.New(), testCertificateConfig{}, logger.Discard())
	return f
}

// seed stores a user, a legacy request and, when evaluation is non-empty,
// an application and report sharing the request's composite key.
func (f *fixture) seed(name, address string, evaluation workflow.Evaluation) (repository.User, repository.Request, *repository.Report) {
	user := f.repo.AddUser(repository.User{Name: name, Email: strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com", Role: "applicant"})
	req := f.repo.AddRequest(repository.Request{
		UserID:           user.ID,
		ApplicantName:    name,
		ApplicantAddress: address,
		ProjectType:      "Residential",
		ProjectNature:    "New construction",
		ProjectLocation:  "Barangay San Isidro",
		LotAreaSqm:       decimal.RequireFromString("250"),
		ProjectCost:      decimal.RequireFromString("1250000"),
	})
	if evaluation == "" {
		return user, req, nil
	}
	app := f.repo.AddApplication(repository.Application{ApplicantName: name, ApplicantAddress: address})
	rep := f.repo.AddReport(repository.Report{AppID: app.ID, Evaluation: evaluation})
	return user, req, &rep
}

func TestApproveJaneCruzScenario(t *testing.T) {
	f := newFixture(t)
	jane := f.repo.AddUser(repository.User{Name: "Jane Cruz", Email: "jane@example.com", Role: "applicant"})
	f.repo.AddRequest(repository.Request{ID: 42, UserID: jane.ID, ApplicantName: "Jane Cruz", ApplicantAddress: "123 Rizal St"})
	app := f.repo.AddApplication(repository.Application{ApplicantName: "Jane Cruz", ApplicantAddress: "123 Rizal St"})
	report := f.repo.AddReport(repository.Report{AppID: app.ID, Evaluation: workflow.EvaluationPending})

	resp, err := f.svc.Approve(context.Background(), report.ID, admin, transport.ApproveRequest{})
	require.NoError(t, err)
	assert.True(t, resp.Changed)
	assert.Empty(t, resp.SideEffects)
	assert.Equal(t, "approved", resp.Report.Evaluation)
	require.NotNil(t, resp.Report.DateReported)
	assert.True(t, resp.Report.DateReported.Equal(now))
	require.NotNil(t, resp.Report.IssuedBy)
	assert.Equal(t, "Admin", *resp.Report.IssuedBy)

	history := f.repo.History()
	require.Len(t, history, 1)
	assert.Equal(t, workflow.EntityReport, history[0].EntityType)
	assert.Equal(t, "pending", history[0].OldStatus)
	assert.Equal(t, "approved", history[0].NewStatus)

	approved := f.rec.named(events.ApplicationApproved{}.EventName())
	require.Len(t, approved, 1)
	event := approved[0].(events.ApplicationApproved)
	assert.Equal(t, "jane@example.com", event.Recipient.Email)
	assert.Equal(t, int64(42), event.RequestID)

	stored, err := f.repo.GetRequest(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, workflow.EvaluationPending, stored.Status)

	detail, err := f.svc.GetRequest(context.Background(), 42, admin)
	require.NoError(t, err)
	assert.Equal(t, "pending", detail.Request.Status)
	assert.Equal(t, "approved", detail.Request.EffectiveStatus)
}

func TestApproveUnchangedEvaluationSendsNothing(t *testing.T) {
	f := newFixture(t)
	_, _, report := f.seed("Ana Reyes", "5 Mabini Ave", workflow.EvaluationApproved)

	resp, err := f.svc.Approve(context.Background(), report.ID, admin, transport.ApproveRequest{})
	require.NoError(t, err)
	assert.False(t, resp.Changed)
	assert.Empty(t, f.repo.History())
	assert.Empty(t, f.rec.named(events.ApplicationApproved{}.EventName()))
}

func TestApproveMissingReportIsNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Approve(context.Background(), 999, admin, transport.ApproveRequest{})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestRejectValidatesReasonBeforeAnyMutation(t *testing.T) {
	f := newFixture(t)
	_, _, report := f.seed("Ana Reyes", "5 Mabini Ave", workflow.EvaluationPending)

	for name, reason := range map[string]string{
		"empty":    "",
		"blank":    "   ",
		"too long": strings.Repeat("x", workflow.MaxReasonLength+1),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Reject(context.Background(), report.ID, admin, transport.RejectRequest{Reason: reason})
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindValidation))
			assert.Zero(t, f.repo.Mutations())
		})
	}
	assert.Empty(t, f.rec.events)
}

func TestRejectStoresReasonAndNotifies(t *testing.T) {
	f := newFixture(t)
	_, _, report := f.seed("Ana Reyes", "5 Mabini Ave", workflow.EvaluationPending)

	resp, err := f.svc.Reject(context.Background(), report.ID, admin, transport.RejectRequest{Reason: "Lot is inside a <b>protected</b> zone"})
	require.NoError(t, err)
	require.NotNil(t, resp.Report.Description)
	assert.Equal(t, "Lot is inside a protected zone", *resp.Report.Description)

	rejected := f.rec.named(events.ApplicationRejected{}.EventName())
	require.Len(t, rejected, 1)
	assert.Equal(t, "Lot is inside a protected zone", rejected[0].(events.ApplicationRejected).Reason)
}

func TestNotificationFailureKeepsCommittedDecision(t *testing.T) {
	f := newFixture(t)
	f.rec.err = errors.New("smtp unavailable")
	_, _, report := f.seed("Ana Reyes", "5 Mabini Ave", workflow.EvaluationPending)

	resp, err := f.svc.Approve(context.Background(), report.ID, admin, transport.ApproveRequest{})
	require.NoError(t, err)
	require.Len(t, resp.SideEffects, 1)
	assert.Equal(t, StepNotifyApproved, resp.SideEffects[0].Step)

	stored, err := f.repo.GetReport(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.EvaluationApproved, stored.Evaluation)
}

func TestEvaluateBackToPendingIsRecorded(t *testing.T) {
	f := newFixture(t)
	_, _, report := f.seed("Ana Reyes", "5 Mabini Ave", workflow.EvaluationApproved)

	resp, err := f.svc.Evaluate(context.Background(), report.ID, admin, transport.EvaluateRequest{Evaluation: "pending"})
	require.NoError(t, err)
	assert.True(t, resp.Changed)
	assert.Empty(t, f.rec.events)
	require.Len(t, f.repo.History(), 1)
}

func TestDecidedReportCannotFlip(t *testing.T) {
	f := newFixture(t)
	_, req, report := f.seed("Jane Cruz", "123 Rizal St", workflow.EvaluationApproved)
	payment := f.repo.AddPayment(repository.Payment{RequestID: req.ID, ApplicationID: report.AppID, Amount: decimal.NewFromInt(5000)})
	_, err := f.svc.VerifyPayment(context.Background(), payment.ID, admin)
	require.NoError(t, err)
	historyBefore := len(f.repo.History())

	_, err = f.svc.Reject(context.Background(), report.ID, admin, transport.RejectRequest{Reason: "Late objection"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	stored, err := f.repo.GetReport(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.EvaluationApproved, stored.Evaluation)
	assert.Len(t, f.repo.History(), historyBefore)
	assert.Empty(t, f.rec.named(events.ApplicationRejected{}.EventName()))

	_, _, rejected := f.seed("Ben Santos", "9 Luna St", workflow.EvaluationRejected)
	_, err = f.svc.Approve(context.Background(), rejected.ID, admin, transport.ApproveRequest{})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Empty(t, f.rec.named(events.ApplicationApproved{}.EventName()))
}

func TestVerifyPaymentScenario(t *testing.T) {
	f := newFixture(t)
	_, req, report := f.seed("Jane Cruz", "123 Rizal St", workflow.EvaluationApproved)
	payment := f.repo.AddPayment(repository.Payment{
		ID:            7,
		RequestID:     req.ID,
		ApplicationID: report.AppID,
		Amount:        decimal.NewFromInt(5000),
		PaymentMethod: "GCash",
		PaymentStatus: workflow.PaymentPending,
	})

	resp, err := f.svc.VerifyPayment(context.Background(), payment.ID, admin)
	require.NoError(t, err)
	assert.Empty(t, resp.SideEffects)
	assert.Equal(t, "verified", resp.Payment.PaymentStatus)

	certs := f.repo.Certificates()
	require.Len(t, certs, 1)
	assert.Regexp(t, regexp.MustCompile(`^CERT-2026-\d{5}$`), certs[0].CertificateNumber)
	require.NotNil(t, resp.Certificate)
	assert.Equal(t, certs[0].CertificateNumber, resp.Certificate.CertificateNumber)

	stored, err := f.repo.GetReport(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.WorkflowCertificateIssued, stored.WorkflowStatus)

	assert.Len(t, f.rec.named(events.PaymentVerified{}.EventName()), 1)
	assert.Len(t, f.rec.named(events.CertificateIssued{}.EventName()), 1)
}

func TestVerifyPaymentTwiceIssuesOneCertificate(t *testing.T) {
	f := newFixture(t)
	_, req, report := f.seed("Jane Cruz", "123 Rizal St", workflow.EvaluationApproved)
	payment := f.repo.AddPayment(repository.Payment{RequestID: req.ID, ApplicationID: report.AppID, Amount: decimal.NewFromInt(5000)})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.VerifyPayment(context.Background(), payment.ID, admin)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, apperr.Is(err, apperr.KindConflict), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, f.repo.Certificates(), 1)
}

func TestRejectPaymentRequiresReasonAndNotifies(t *testing.T) {
	f := newFixture(t)
	_, req, report := f.seed("Jane Cruz", "123 Rizal St", workflow.EvaluationApproved)
	payment := f.repo.AddPayment(repository.Payment{RequestID: req.ID, ApplicationID: report.AppID, Amount: decimal.NewFromInt(5000)})

	_, err := f.svc.RejectPayment(context.Background(), payment.ID, admin, transport.RejectRequest{Reason: " "})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Zero(t, f.repo.Mutations())

	resp, err := f.svc.RejectPayment(context.Background(), payment.ID, admin, transport.RejectRequest{Reason: "Receipt is unreadable"})
	require.NoError(t, err)
	assert.Equal(t, "rejected", resp.Payment.PaymentStatus)
	assert.Nil(t, resp.Certificate)
	assert.Empty(t, f.repo.Certificates())

	rejected := f.rec.named(events.PaymentRejected{}.EventName())
	require.Len(t, rejected, 1)
	assert.Equal(t, "Receipt is unreadable", rejected[0].(events.PaymentRejected).Reason)
	assert.Equal(t, "PHP 5,000.00", rejected[0].(events.PaymentRejected).Amount)

	_, err = f.svc.VerifyPayment(context.Background(), payment.ID, admin)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestBulkApproveContinuesPastMissingReport(t *testing.T) {
	f := newFixture(t)
	_, first, _ := f.seed("Ana Reyes", "5 Mabini Ave", workflow.EvaluationPending)
	_, orphan, _ := f.seed("Ben Santos", "9 Luna St", "")
	_, last, _ := f.seed("Cora Lim", "1 Bonifacio Rd", workflow.EvaluationPending)

	result, err := f.svc.BulkApprove(context.Background(), admin, transport.BulkRequest{RequestIDs: []int64{first.ID, orphan.ID, last.ID}})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Succeeded)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, orphan.ID, result.Errors[0].RequestID)
	assert.Equal(t, errNoReport.Error(), result.Errors[0].Message)

	assert.Len(t, f.rec.named(events.ApplicationApproved{}.EventName()), 2)
}

func TestBulkRejectReportsUnknownIDs(t *testing.T) {
	f := newFixture(t)
	_, req, _ := f.seed("Ana Reyes", "5 Mabini Ave", workflow.EvaluationPending)

	result, err := f.svc.BulkReject(context.Background(), admin, transport.BulkRejectRequest{
		RequestIDs: []int64{req.ID, 9999},
		Reason:     "Incomplete documents",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, int64(9999), result.Errors[0].RequestID)
}

func TestBulkDeleteRemovesRequests(t *testing.T) {
	f := newFixture(t)
	_, a, _ := f.seed("Ana Reyes", "5 Mabini Ave", workflow.EvaluationPending)
	_, b, _ := f.seed("Ben Santos", "9 Luna St", "")

	result, err := f.svc.BulkDelete(context.Background(), admin, transport.BulkRequest{RequestIDs: []int64{a.ID, b.ID}})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Succeeded)

	_, err = f.repo.GetRequest(context.Background(), a.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	history := f.repo.History()
	require.Len(t, history, 2)
	assert.Equal(t, statusDeleted, history[0].NewStatus)
}

func TestEffectiveStatusConsistentAcrossReadPaths(t *testing.T) {
	f := newFixture(t)
	f.seed("Ana Reyes", "5 Mabini Ave", workflow.EvaluationApproved)
	f.seed("Ben Santos", "9 Luna St", workflow.EvaluationRejected)
	f.seed("Cora Lim", "1 Bonifacio Rd", "")
	_, stale, _ := f.seed("Dan Tan", "3 Quezon Blvd", workflow.EvaluationPending)
	f.repo.AddRequest(repository.Request{ID: stale.ID, UserID: stale.UserID, ApplicantName: stale.ApplicantName, ApplicantAddress: stale.ApplicantAddress, Status: workflow.EvaluationApproved})

	ctx := context.Background()
	list, err := f.svc.ListRequests(ctx, admin, transport.ListRequestsRequest{})
	require.NoError(t, err)

	fromList := map[int64]string{}
	for _, item := range list.Items {
		fromList[item.ID] = item.EffectiveStatus
	}

	fromDetail := map[int64]string{}
	for id := range fromList {
		detail, err := f.svc.GetRequest(ctx, id, admin)
		require.NoError(t, err)
		fromDetail[id] = detail.Request.EffectiveStatus
	}

	rows, err := f.svc.ExportRows(ctx, admin, transport.ListRequestsRequest{})
	require.NoError(t, err)
	fromExport := map[int64]string{}
	for _, row := range rows {
		fromExport[row.RequestID] = row.EffectiveStatus
	}

	if diff := cmp.Diff(fromList, fromDetail); diff != "" {
		t.Fatalf("detail disagrees with list (-list +detail):\n%s", diff)
	}
	if diff := cmp.Diff(fromList, fromExport); diff != "" {
		t.Fatalf("export disagrees with list (-list +export):\n%s", diff)
	}
	assert.Equal(t, "pending", fromList[stale.ID])

	counts := map[string]int{}
	for _, status := range fromList {
		counts[status]++
	}
	stats, err := f.svc.Stats(ctx, admin)
	require.NoError(t, err)
	want := transport.StatsResponse{Total: 4, Pending: counts["pending"], Approved: counts["approved"], Rejected: counts["rejected"]}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Fatalf("stats mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, stats.Pending)

	approvedOnly, err := f.svc.ListRequests(ctx, admin, transport.ListRequestsRequest{Status: "approved"})
	require.NoError(t, err)
	assert.Equal(t, stats.Approved, approvedOnly.Total)
}

func TestListRequestsScopesApplicantsAndPages(t *testing.T) {
	f := newFixture(t)
	ana, _, _ := f.seed("Ana Reyes", "5 Mabini Ave", workflow.EvaluationPending)
	f.seed("Ben Santos", "9 Luna St", workflow.EvaluationPending)

	own, err := f.svc.ListRequests(context.Background(), workflow.Actor{ID: ana.ID}, transport.ListRequestsRequest{})
	require.NoError(t, err)
	require.Len(t, own.Items, 1)
	assert.Equal(t, "Ana Reyes", own.Items[0].ApplicantName)

	paged, err := f.svc.ListRequests(context.Background(), admin, transport.ListRequestsRequest{Page: 2, PageSize: 1})
	require.NoError(t, err)
	assert.Len(t, paged.Items, 1)
	assert.Equal(t, 2, paged.Total)
	assert.Equal(t, 2, paged.TotalPages)
}

func TestGetRequestForbidsOtherApplicants(t *testing.T) {
	f := newFixture(t)
	_, req, _ := f.seed("Ana Reyes", "5 Mabini Ave", workflow.EvaluationPending)

	_, err := f.svc.GetRequest(context.Background(), req.ID, workflow.Actor{ID: 12345})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestSubmitCreatesLinkedRecords(t *testing.T) {
	f := newFixture(t)
	user := f.repo.AddUser(repository.User{Name: "Jane Cruz", Email: "jane@example.com", Role: "applicant"})
	corp := "  Cruz   Holdings "

	resp, err := f.svc.Submit(context.Background(), workflow.Actor{ID: user.ID, Name: "Jane Cruz"}, transport.SubmitRequest{
		ApplicantName:    "  Jane   Cruz ",
		ApplicantAddress: "123 Rizal St",
		ContactNumber:    "0917 123 4567",
		CorporationName:  &corp,
		ProjectType:      "Commercial",
		ProjectNature:    "Renovation",
		ProjectLocation:  "Lot 4, Barangay San Isidro",
		LotAreaSqm:       decimal.RequireFromString("120.5"),
		ProjectCost:      decimal.RequireFromString("800000"),
	})
	require.NoError(t, err)
	assert.Empty(t, resp.SideEffects)

	got := resp.Request
	assert.Equal(t, "Jane Cruz", got.ApplicantName)
	assert.Equal(t, "+639171234567", got.ContactNumber)
	require.NotNil(t, got.CorporationName)
	assert.Equal(t, "Cruz Holdings", *got.CorporationName)
	require.NotNil(t, got.ApplicationID)
	require.NotNil(t, got.ReportID)
	assert.Equal(t, "pending", got.EffectiveStatus)

	report, err := f.repo.GetReportByApplication(context.Background(), *got.ApplicationID)
	require.NoError(t, err)
	assert.Equal(t, *got.ReportID, report.ID)

	submitted := f.rec.named(events.RequestSubmitted{}.EventName())
	require.Len(t, submitted, 1)
	assert.Equal(t, "jane@example.com", submitted[0].(events.RequestSubmitted).Recipient.Email)
}

func TestSubmitRejectsInvalidInputWithoutWrites(t *testing.T) {
	f := newFixture(t)
	valid := transport.SubmitRequest{
		ApplicantName:    "Jane Cruz",
		ApplicantAddress: "123 Rizal St",
		ContactNumber:    "0917 123 4567",
		ProjectType:      "Commercial",
		ProjectNature:    "Renovation",
		ProjectLocation:  "Lot 4",
		LotAreaSqm:       decimal.NewFromInt(100),
		ProjectCost:      decimal.NewFromInt(1000),
	}

	cases := map[string]func(r *transport.SubmitRequest){
		"missing name":  func(r *transport.SubmitRequest) { r.ApplicantName = "" },
		"zero area":     func(r *transport.SubmitRequest) { r.LotAreaSqm = decimal.Zero },
		"negative cost": func(r *transport.SubmitRequest) { r.ProjectCost = decimal.NewFromInt(-1) },
		"bad phone":     func(r *transport.SubmitRequest) { r.ContactNumber = "12" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := valid
			mutate(&req)
			_, err := f.svc.Submit(context.Background(), workflow.Actor{ID: 1}, req)
			assert.True(t, apperr.Is(err, apperr.KindValidation), "unexpected error: %v", err)
			assert.Zero(t, f.repo.Mutations())
		})
	}
}

func TestSubmitPaymentAdvancesWorkflow(t *testing.T) {
	f := newFixture(t)
	user, req, report := f.seed("Jane Cruz", "123 Rizal St", workflow.EvaluationApproved)
	applicant := workflow.Actor{ID: user.ID, Name: user.Name}

	resp, err := f.svc.SubmitPayment(context.Background(), req.ID, applicant, transport.SubmitPaymentRequest{
		Amount:        decimal.NewFromInt(5000),
		PaymentMethod: "GCash",
	}, transport.Receipt{FileName: "receipt.png", ContentType: "image/png", Data: []byte("png")})
	require.NoError(t, err)
	assert.Equal(t, "pending", resp.Payment.PaymentStatus)
	assert.True(t, resp.Payment.PaymentDate.Equal(now))

	stored, err := f.repo.GetReport(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.WorkflowPaymentSubmitted, stored.WorkflowStatus)
	assert.Len(t, f.rec.named(events.PaymentSubmitted{}.EventName()), 1)

	_, err = f.svc.SubmitPayment(context.Background(), req.ID, applicant, transport.SubmitPaymentRequest{
		Amount:        decimal.NewFromInt(5000),
		PaymentMethod: "GCash",
	}, transport.Receipt{FileName: "again.png", ContentType: "image/png", Data: []byte("png")})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	link, err := f.svc.ReceiptURL(context.Background(), resp.Payment.ID, applicant)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link.DownloadURL, "https://files.local/files/"))
}

func TestSubmitPaymentRequiresApprovedRequest(t *testing.T) {
	f := newFixture(t)
	user, req, _ := f.seed("Jane Cruz", "123 Rizal St", workflow.EvaluationPending)

	_, err := f.svc.SubmitPayment(context.Background(), req.ID, workflow.Actor{ID: user.ID}, transport.SubmitPaymentRequest{
		Amount:        decimal.NewFromInt(5000),
		PaymentMethod: "Cash",
	}, transport.Receipt{FileName: "receipt.png", ContentType: "image/png", Data: []byte("png")})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Empty(t, f.receipts.objects)
}

func TestSubmitPaymentRemovesReceiptWhenRecordFails(t *testing.T) {
	f := newFixture(t)
	user, req, _ := f.seed("Jane Cruz", "123 Rizal St", workflow.EvaluationApproved)
	f.repo.Fail["CreatePayment"] = errors.New("db down")

	_, err := f.svc.SubmitPayment(context.Background(), req.ID, workflow.Actor{ID: user.ID}, transport.SubmitPaymentRequest{
		Amount:        decimal.NewFromInt(5000),
		PaymentMethod: "Cash",
	}, transport.Receipt{FileName: "receipt.png", ContentType: "image/png", Data: []byte("png")})
	require.Error(t, err)
	assert.Empty(t, f.receipts.objects)
}

func TestListHistoryAndAmbiguities(t *testing.T) {
	f := newFixture(t)
	_, _, report := f.seed("Ana Reyes", "5 Mabini Ave", workflow.EvaluationPending)
	f.repo.AddApplication(repository.Application{ApplicantName: "Ana Reyes", ApplicantAddress: "5 Mabini Ave"})

	_, err := f.svc.Approve(context.Background(), report.ID, admin, transport.ApproveRequest{})
	require.NoError(t, err)

	history, err := f.svc.ListHistory(context.Background(), transport.ListHistoryRequest{EntityType: "report", EntityID: report.ID})
	require.NoError(t, err)
	require.Len(t, history.Items, 1)
	assert.Equal(t, "Admin", history.Items[0].ChangedBy)

	ambiguities, err := f.svc.Ambiguities(context.Background())
	require.NoError(t, err)
	require.Len(t, ambiguities, 1)
	assert.Equal(t, "Ana Reyes|5 Mabini Ave", ambiguities[0].Key)
	assert.Len(t, ambiguities[0].ApplicationIDs, 2)
}
