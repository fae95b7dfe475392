package handler

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"zoning_portal_backend/internal/events"
	"zoning_portal_backend/internal/permits/certificate"
	"zoning_portal_backend/internal/permits/repository"
	"zoning_portal_backend/internal/permits/repository/repositorytest"
	"zoning_portal_backend/internal/permits/service"
	"zoning_portal_backend/internal/permits/workflow"
	"zoning_portal_backend/platform/clock"
	"zoning_portal_backend/platform/config"
	"zoning_portal_backend/platform/httpkit"
	"zoning_portal_backend/platform/logger"
	"zoning_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, time.October, 19, 10, 0, 0, 0, time.UTC)

type certConfig struct{}

func (certConfig) GetCertificateProfile() config.CertificateProfile {
	return config.DefaultCertificateProfile()
}
func (certConfig) GetAppBaseURL() string { return "" }

type stubRenderer struct{}

func (stubRenderer) Render(_ context.Context, _ string, s certificate.Snapshot) ([]byte, error) {
	return []byte("%PDF " + s.CertificateNumber), nil
}

type files struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *files) Put(_ context.Context, fileName, _ string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fmt.Sprintf("%d_%s", len(f.objects), fileName)
	f.objects[key] = data
	return key, nil
}

func (f *files) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok, nil
}

func (f *files) Read(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects[key], nil
}

func (f *files) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *files) DownloadURL(_ context.Context, key string) (string, time.Time, error) {
	return "https://files.local/" + key, now.Add(time.Hour), nil
}

type fakeQueue struct {
	paymentID int64
	actor     string
}

func (q *fakeQueue) EnqueueReissue(_ context.Context, paymentID int64, actor string) (string, error) {
	q.paymentID = paymentID
	q.actor = actor
	return "task-1", nil
}

type testEnv struct {
	repo    *repositorytest.Memory
	handler *Handler
	router  *gin.Engine
}

// newEnv mounts the handler behind a fake auth middleware that reads the
// caller from the X-Test-User and X-Test-Role headers.
func newEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repositorytest.New()
	bus := events.NewInMemoryBus(logger.Discard())
	clk := clock.NewFixed(now)
	issuer := certificate.NewIssuer(repo, repo, stubRenderer{}, &files{objects: map[string][]byte{}}, bus, clk, certConfig{}, logger.Discard())
	svc := service.New(repo, repo, bus, issuer, &files{objects: map[string][]byte{}}, clk, validator.New(), certConfig{}, logger.Discard())
	h := New(svc, issuer)

	r := gin.New()
	auth := func(c *gin.Context) {
		var id int64
		if _, err := fmt.Sscan(c.GetHeader("X-Test-User"), &id); err != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		httpkit.SetIdentity(c, httpkit.Identity{
			UserID: id,
			Name:   "User " + c.GetHeader("X-Test-User"),
			Roles:  []string{c.GetHeader("X-Test-Role")},
		})
		c.Next()
	}
	v1 := r.Group("/api/v1", auth)
	h.RegisterRoutes(v1)
	h.RegisterAdminRoutes(v1.Group("/admin", httpkit.RequireRole(httpkit.RoleAdmin)))

	return &testEnv{repo: repo, handler: h, router: r}
}

func (e *testEnv) do(req *http.Request, userID int64, role string) *httptest.ResponseRecorder {
	req.Header.Set("X-Test-User", fmt.Sprint(userID))
	req.Header.Set("X-Test-Role", role)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) doJSON(method, path string, body any, userID int64, role string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return e.do(req, userID, role)
}

// seedApproved stores an applicant with a legacy request whose matching
// report is already approved.
func (e *testEnv) seedApproved() (repository.User, repository.Request) {
	user := e.repo.AddUser(repository.User{Name: "Jane Cruz", Email: "jane@example.com", Role: "applicant"})
	req := e.repo.AddRequest(repository.Request{
		UserID:           user.ID,
		ApplicantName:    "Jane Cruz",
		ApplicantAddress: "123 Rizal St",
		ProjectType:      "Residential",
		ProjectNature:    "New construction",
		ProjectLocation:  "Barangay San Isidro",
		LotAreaSqm:       decimal.RequireFromString("250"),
		ProjectCost:      decimal.RequireFromString("1250000"),
	})
	app := e.repo.AddApplication(repository.Application{ApplicantName: "Jane Cruz", ApplicantAddress: "123 Rizal St"})
	e.repo.AddReport(repository.Report{AppID: app.ID, Evaluation: workflow.EvaluationApproved})
	return user, req
}

func paymentForm(t *testing.T, fields map[string]string, receipt []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if receipt != nil {
		part, err := w.CreateFormFile(formReceipt, "receipt.pdf")
		require.NoError(t, err)
		_, err = part.Write(receipt)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func TestPaymentToCertificateDownloadFlow(t *testing.T) {
	env := newEnv(t)
	user, req := env.seedApproved()
	const adminID = 900

	body, contentType := paymentForm(t, map[string]string{
		formAmount:        "5000",
		formPaymentMethod: "GCash",
		formPaymentDate:   "2026-10-18",
	}, []byte("%PDF receipt"))
	httpReq := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/requests/%d/payments", req.ID), body)
	httpReq.Header.Set("Content-Type", contentType)
	w := env.do(httpReq, user.ID, "applicant")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var submitted struct {
		Payment struct {
			ID int64 `json:"id"`
		} `json:"payment"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &submitted))
	require.NotZero(t, submitted.Payment.ID)

	w = env.doJSON(http.MethodPost, fmt.Sprintf("/api/v1/admin/payments/%d/verify", submitted.Payment.ID), nil, adminID, httpkit.RoleAdmin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var verified struct {
		Certificate *struct {
			ID                int64  `json:"id"`
			CertificateNumber string `json:"certificateNumber"`
		} `json:"certificate"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verified))
	require.NotNil(t, verified.Certificate)
	assert.Regexp(t, `^CERT-2026-\d{5}$`, verified.Certificate.CertificateNumber)

	path := fmt.Sprintf("/api/v1/certificates/%d/download", verified.Certificate.ID)
	w = env.do(httptest.NewRequest(http.MethodGet, path, nil), user.ID, "applicant")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), verified.Certificate.CertificateNumber)
	assert.Equal(t, "%PDF "+verified.Certificate.CertificateNumber, w.Body.String())

	w = env.do(httptest.NewRequest(http.MethodGet, path, nil), user.ID+1000, "applicant")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSubmitPaymentRejectsBadForm(t *testing.T) {
	env := newEnv(t)
	user, req := env.seedApproved()
	path := fmt.Sprintf("/api/v1/requests/%d/payments", req.ID)

	tests := []struct {
		name    string
		fields  map[string]string
		receipt []byte
	}{
		{name: "amount not a number", fields: map[string]string{formAmount: "five", formPaymentMethod: "Cash"}, receipt: []byte("x")},
		{name: "bad date", fields: map[string]string{formAmount: "10", formPaymentMethod: "Cash", formPaymentDate: "18/10/2026"}, receipt: []byte("x")},
		{name: "missing receipt", fields: map[string]string{formAmount: "10", formPaymentMethod: "Cash"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, contentType := paymentForm(t, tt.fields, tt.receipt)
			httpReq := httptest.NewRequest(http.MethodPost, path, body)
			httpReq.Header.Set("Content-Type", contentType)
			w := env.do(httpReq, user.ID, "applicant")
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
	assert.Zero(t, env.repo.Mutations())
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	env := newEnv(t)
	user, _ := env.seedApproved()

	w := env.doJSON(http.MethodPost, "/api/v1/admin/requests/bulk-approve", map[string]any{"requestIds": []int64{1}}, user.ID, "applicant")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRejectWithoutReasonIsBadRequest(t *testing.T) {
	env := newEnv(t)
	env.seedApproved()

	w := env.doJSON(http.MethodPost, "/api/v1/admin/reports/1/reject", map[string]string{"reason": "   "}, 900, httpkit.RoleAdmin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, env.repo.Mutations())
}

func TestInvalidIDIsBadRequest(t *testing.T) {
	env := newEnv(t)
	w := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/requests/abc", nil), 1, "applicant")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRequestOfAnotherApplicantIsForbidden(t *testing.T) {
	env := newEnv(t)
	user, req := env.seedApproved()

	w := env.do(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/requests/%d", req.ID), nil), user.ID+1000, "applicant")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/requests/%d", req.ID), nil), user.ID, "applicant")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"effectiveStatus":"approved"`)
}

func TestExportWritesCSV(t *testing.T) {
	env := newEnv(t)
	_, req := env.seedApproved()

	w := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/admin/requests/export?status=approved", nil), 900, httpkit.RoleAdmin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))

	records, err := csv.NewReader(strings.NewReader(w.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, exportHeaders, records[0])
	assert.Equal(t, fmt.Sprint(req.ID), records[1][0])
	assert.Equal(t, "approved", records[1][10])
	assert.Equal(t, "1250000.00", records[1][9])
}

func TestReissueUsesQueueWhenConfigured(t *testing.T) {
	env := newEnv(t)
	queue := &fakeQueue{}
	env.handler.SetReissueQueue(queue)

	w := env.doJSON(http.MethodPost, "/api/v1/admin/certificates/reissue", map[string]int64{"paymentId": 7}, 900, httpkit.RoleAdmin)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, int64(7), queue.paymentID)
	assert.Contains(t, w.Body.String(), "task-1")
}

func TestReissueInlineWithoutQueue(t *testing.T) {
	env := newEnv(t)

	w := env.doJSON(http.MethodPost, "/api/v1/admin/certificates/reissue", map[string]int64{"paymentId": 404}, 900, httpkit.RoleAdmin)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAmbiguitiesListsSharedKeys(t *testing.T) {
	env := newEnv(t)
	env.repo.AddApplication(repository.Application{ApplicantName: "Ana Reyes", ApplicantAddress: "1 Mabini St"})
	env.repo.AddApplication(repository.Application{ApplicantName: "Ana Reyes", ApplicantAddress: "1 Mabini St"})

	w := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/admin/reconciliation/ambiguities", nil), 900, httpkit.RoleAdmin)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Items []struct {
			ApplicationIDs []int64 `json:"applicationIds"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Len(t, resp.Items[0].ApplicationIDs, 2)
}
