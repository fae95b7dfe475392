// Package repositorytest provides an in-memory permits repository for tests.
// It follows the PostgreSQL implementation's ordering, uniqueness and
// not-found behaviour, and rolls back on RunInTx failures.
package repositorytest

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"zoning_portal_backend/internal/permits/reconcile"
	"zoning_portal_backend/internal/permits/repository"
	"zoning_portal_backend/internal/permits/workflow"
	"zoning_portal_backend/platform/apperr"
)

type state struct {
	users        map[int64]repository.User
	corporations map[int64]repository.Corporation
	projects     map[int64]repository.Project
	applications map[int64]repository.Application
	requests     map[int64]repository.Request
	reports      map[int64]repository.Report
	payments     map[int64]repository.Payment
	certificates map[int64]repository.Certificate
	history      []repository.StatusHistory
	counters     map[int]int
	nextID       int64
	mutations    int
}

func (s *state) clone() *state {
	c := *s
	c.users = maps.Clone(s.users)
	c.corporations = maps.Clone(s.corporations)
	c.projects = maps.Clone(s.projects)
	c.applications = maps.Clone(s.applications)
	c.requests = maps.Clone(s.requests)
	c.reports = maps.Clone(s.reports)
	c.payments = maps.Clone(s.payments)
	c.certificates = maps.Clone(s.certificates)
	c.history = slices.Clone(s.history)
	c.counters = maps.Clone(s.counters)
	return &c
}

type txKey struct{}

// Memory implements repository.Repository and db.TxManager.
type Memory struct {
	mu   sync.Mutex
	txMu sync.Mutex
	s    *state

	// Now stamps created_at columns. Defaults to a fixed instant.
	Now func() time.Time

	// Fail maps a method name to an error it returns before touching state.
	Fail map[string]error
}

var _ repository.Repository = (*Memory)(nil)

// New returns an empty repository.
func New() *Memory {
	return &Memory{
		s: &state{
			users:        map[int64]repository.User{},
			corporations: map[int64]repository.Corporation{},
			projects:     map[int64]repository.Project{},
			applications: map[int64]repository.Application{},
			requests:     map[int64]repository.Request{},
			reports:      map[int64]repository.Report{},
			payments:     map[int64]repository.Payment{},
			certificates: map[int64]repository.Certificate{},
			counters:     map[int]int{},
		},
		Now:  func() time.Time { return time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC) },
		Fail: map[string]error{},
	}
}

// RunInTx runs fn and restores the previous state when it fails. Transactions
// are serialised; nested calls join the outer one.
func (m *Memory) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshot := m.s.clone()
	m.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		m.mu.Lock()
		m.s = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

// Mutations counts committed or pending writes.
func (m *Memory) Mutations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.mutations
}

// History returns every history row in insertion order.
func (m *Memory) History() []repository.StatusHistory {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.s.history)
}

func (m *Memory) fail(method string) error {
	if err, ok := m.Fail[method]; ok {
		return err
	}
	return nil
}

func (m *Memory) id() int64 {
	m.s.nextID++
	return m.s.nextID
}

func (m *Memory) write() {
	m.s.mutations++
}

// =============================================================================
// Seeding helpers
// =============================================================================

// AddUser stores u as is.
func (m *Memory) AddUser(u repository.User) repository.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		u.ID = m.id()
	}
	m.s.users[u.ID] = u
	return u
}

// AddApplication stores a legacy application without touching the mutation counter.
func (m *Memory) AddApplication(a repository.Application) repository.Application {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == 0 {
		a.ID = m.id()
	}
	m.s.applications[a.ID] = a
	return a
}

// AddRequest stores r as is.
func (m *Memory) AddRequest(r repository.Request) repository.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == 0 {
		r.ID = m.id()
	}
	if r.Status == "" {
		r.Status = workflow.EvaluationPending
	}
	m.s.requests[r.ID] = r
	return r
}

// AddReport stores r as is.
func (m *Memory) AddReport(r repository.Report) repository.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == 0 {
		r.ID = m.id()
	}
	if r.Evaluation == "" {
		r.Evaluation = workflow.EvaluationPending
	}
	m.s.reports[r.ID] = r
	return r
}

// AddPayment stores p as is.
func (m *Memory) AddPayment(p repository.Payment) repository.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == 0 {
		p.ID = m.id()
	}
	if p.PaymentStatus == "" {
		p.PaymentStatus = workflow.PaymentPending
	}
	m.s.payments[p.ID] = p
	return p
}

// Certificates returns every stored certificate ordered by id.
func (m *Memory) Certificates() []repository.Certificate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedValues(m.s.certificates, func(c repository.Certificate) int64 { return c.ID })
}

func sortedValues[T any](in map[int64]T, id func(T) int64) []T {
	out := slices.Collect(maps.Values(in))
	slices.SortFunc(out, func(a, b T) int {
		switch {
		case id(a) < id(b):
			return -1
		case id(a) > id(b):
			return 1
		}
		return 0
	})
	return out
}

// =============================================================================
// RequestStore
// =============================================================================

func (m *Memory) CreateRequest(_ context.Context, p repository.CreateRequestParams) (repository.Request, error) {
	if err := m.fail("CreateRequest"); err != nil {
		return repository.Request{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.write()
	r := repository.Request{
		ID:               m.id(),
		UserID:           p.UserID,
		ApplicationID:    p.ApplicationID,
		ApplicantName:    p.ApplicantName,
		ApplicantAddress: p.ApplicantAddress,
		ContactNumber:    p.ContactNumber,
		CorporationName:  p.CorporationName,
		ProjectType:      p.ProjectType,
		ProjectNature:    p.ProjectNature,
		ProjectLocation:  p.ProjectLocation,
		LotAreaSqm:       p.LotAreaSqm,
		ProjectCost:      p.ProjectCost,
		Status:           workflow.EvaluationPending,
		CreatedAt:        m.Now(),
	}
	m.s.requests[r.ID] = r
	return r, nil
}

func (m *Memory) GetRequest(_ context.Context, id int64) (repository.Request, error) {
	if err := m.fail("GetRequest"); err != nil {
		return repository.Request{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.s.requests[id]
	if !ok {
		return repository.Request{}, apperr.NotFound("request not found")
	}
	return r, nil
}

func (m *Memory) ListRequests(_ context.Context, filter repository.RequestFilter) ([]repository.Request, error) {
	if err := m.fail("ListRequests"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	term := strings.ToLower(strings.TrimSpace(filter.Search))
	var out []repository.Request
	for _, r := range m.s.requests {
		if filter.UserID != nil && r.UserID != *filter.UserID {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(r.ApplicantName), term) &&
			!strings.Contains(strings.ToLower(r.ApplicantAddress), term) &&
			!strings.Contains(strings.ToLower(r.ProjectLocation), term) {
			continue
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b repository.Request) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return int(b.ID - a.ID)
	})
	return out, nil
}

func (m *Memory) ListRequestsByIDs(_ context.Context, ids []int64) ([]repository.Request, error) {
	if err := m.fail("ListRequestsByIDs"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.Request
	for _, r := range sortedValues(m.s.requests, func(r repository.Request) int64 { return r.ID }) {
		if slices.Contains(ids, r.ID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) ListRequestsByApplicant(_ context.Context, name, address string) ([]repository.Request, error) {
	if err := m.fail("ListRequestsByApplicant"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.Request
	for _, r := range sortedValues(m.s.requests, func(r repository.Request) int64 { return r.ID }) {
		if r.ApplicantName == name && r.ApplicantAddress == address {
			out = append(out, r)
		}
	}
	slices.Reverse(out)
	return out, nil
}

func (m *Memory) DeleteRequest(_ context.Context, id int64) error {
	if err := m.fail("DeleteRequest"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.s.requests[id]; !ok {
		return apperr.NotFound("request not found")
	}
	m.write()
	delete(m.s.requests, id)
	for pid, p := range m.s.payments {
		if p.RequestID == id {
			delete(m.s.payments, pid)
		}
	}
	for cid, c := range m.s.certificates {
		if c.RequestID == id {
			delete(m.s.certificates, cid)
		}
	}
	return nil
}

func (m *Memory) FindOrCreateCorporation(_ context.Context, name string) (repository.Corporation, error) {
	if err := m.fail("FindOrCreateCorporation"); err != nil {
		return repository.Corporation{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.s.corporations {
		if c.Name == name {
			return c, nil
		}
	}
	m.write()
	c := repository.Corporation{ID: m.id(), Name: name}
	m.s.corporations[c.ID] = c
	return c, nil
}

func (m *Memory) CreateProject(_ context.Context, p repository.CreateProjectParams) (repository.Project, error) {
	if err := m.fail("CreateProject"); err != nil {
		return repository.Project{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.write()
	proj := repository.Project{
		ID:              m.id(),
		ProjectType:     p.ProjectType,
		ProjectNature:   p.ProjectNature,
		ProjectLocation: p.ProjectLocation,
		LotAreaSqm:      p.LotAreaSqm,
		ProjectCost:     p.ProjectCost,
	}
	m.s.projects[proj.ID] = proj
	return proj, nil
}

func (m *Memory) GetProject(_ context.Context, id int64) (repository.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.s.projects[id]
	if !ok {
		return repository.Project{}, apperr.NotFound("project not found")
	}
	return p, nil
}

// =============================================================================
// ApplicationStore
// =============================================================================

func (m *Memory) CreateApplication(_ context.Context, p repository.CreateApplicationParams) (repository.Application, error) {
	if err := m.fail("CreateApplication"); err != nil {
		return repository.Application{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.write()
	a := repository.Application{
		ID:                      m.id(),
		CorpID:                  p.CorpID,
		ProjectID:               p.ProjectID,
		ApplicantName:           p.ApplicantName,
		ApplicantAddress:        p.ApplicantAddress,
		AuthorizationLetterPath: p.AuthorizationLetterPath,
		CreatedAt:               m.Now(),
	}
	m.s.applications[a.ID] = a
	return a, nil
}

func (m *Memory) GetApplication(_ context.Context, id int64) (repository.Application, error) {
	if err := m.fail("GetApplication"); err != nil {
		return repository.Application{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.s.applications[id]
	if !ok {
		return repository.Application{}, apperr.NotFound("application not found")
	}
	return a, nil
}

func (m *Memory) ListApplicationsByKeys(_ context.Context, keys []string) ([]repository.Application, error) {
	if err := m.fail("ListApplicationsByKeys"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.Application
	for _, a := range sortedValues(m.s.applications, func(a repository.Application) int64 { return a.ID }) {
		if slices.Contains(keys, reconcile.Key(a.ApplicantName, a.ApplicantAddress)) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *Memory) ListApplicationsByIDs(_ context.Context, ids []int64) ([]repository.Application, error) {
	if err := m.fail("ListApplicationsByIDs"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.Application
	for _, a := range sortedValues(m.s.applications, func(a repository.Application) int64 { return a.ID }) {
		if slices.Contains(ids, a.ID) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *Memory) ListApplications(context.Context) ([]repository.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedValues(m.s.applications, func(a repository.Application) int64 { return a.ID }), nil
}

func (m *Memory) DeleteApplication(_ context.Context, id int64) error {
	if err := m.fail("DeleteApplication"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.s.applications[id]; !ok {
		return apperr.NotFound("application not found")
	}
	m.write()
	delete(m.s.applications, id)
	for rid, r := range m.s.reports {
		if r.AppID == id {
			delete(m.s.reports, rid)
		}
	}
	for rid, r := range m.s.requests {
		if r.ApplicationID != nil && *r.ApplicationID == id {
			r.ApplicationID = nil
			m.s.requests[rid] = r
		}
	}
	return nil
}

// =============================================================================
// ReportStore
// =============================================================================

func (m *Memory) CreateReport(_ context.Context, appID int64) (repository.Report, error) {
	if err := m.fail("CreateReport"); err != nil {
		return repository.Report{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.write()
	r := repository.Report{ID: m.id(), AppID: appID, Evaluation: workflow.EvaluationPending}
	m.s.reports[r.ID] = r
	return r, nil
}

func (m *Memory) GetReport(_ context.Context, id int64) (repository.Report, error) {
	if err := m.fail("GetReport"); err != nil {
		return repository.Report{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.s.reports[id]
	if !ok {
		return repository.Report{}, apperr.NotFound("report not found")
	}
	return r, nil
}

func (m *Memory) GetReportForUpdate(ctx context.Context, id int64) (repository.Report, error) {
	return m.GetReport(ctx, id)
}

func (m *Memory) GetReportByApplication(_ context.Context, appID int64) (repository.Report, error) {
	if err := m.fail("GetReportByApplication"); err != nil {
		return repository.Report{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var found *repository.Report
	for _, r := range sortedValues(m.s.reports, func(r repository.Report) int64 { return r.ID }) {
		if r.AppID == appID {
			found = &r
		}
	}
	if found == nil {
		return repository.Report{}, apperr.NotFound("report not found")
	}
	return *found, nil
}

func (m *Memory) ListReportsByApplicationIDs(_ context.Context, appIDs []int64) ([]repository.Report, error) {
	if err := m.fail("ListReportsByApplicationIDs"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.Report
	for _, r := range sortedValues(m.s.reports, func(r repository.Report) int64 { return r.ID }) {
		if slices.Contains(appIDs, r.AppID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) UpdateEvaluation(_ context.Context, p repository.UpdateEvaluationParams) (repository.Report, error) {
	if err := m.fail("UpdateEvaluation"); err != nil {
		return repository.Report{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.s.reports[p.ReportID]
	if !ok {
		return repository.Report{}, apperr.NotFound("report not found")
	}
	m.write()
	reported := p.DateReported
	issuedBy := p.IssuedBy
	r.Evaluation = p.Evaluation
	r.DateReported = &reported
	r.IssuedBy = &issuedBy
	if p.Description != nil {
		r.Description = p.Description
	}
	if p.Amount != nil {
		r.Amount = p.Amount
	}
	if p.DateCertified != nil {
		r.DateCertified = p.DateCertified
	}
	m.s.reports[r.ID] = r
	return r, nil
}

func (m *Memory) SetWorkflowStatus(_ context.Context, reportID int64, status workflow.WorkflowStatus) error {
	if err := m.fail("SetWorkflowStatus"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.s.reports[reportID]
	if !ok {
		return apperr.NotFound("report not found")
	}
	m.write()
	r.WorkflowStatus = status
	m.s.reports[reportID] = r
	return nil
}

// =============================================================================
// PaymentStore
// =============================================================================

func (m *Memory) CreatePayment(_ context.Context, p repository.CreatePaymentParams) (repository.Payment, error) {
	if err := m.fail("CreatePayment"); err != nil {
		return repository.Payment{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.write()
	pay := repository.Payment{
		ID:              m.id(),
		RequestID:       p.RequestID,
		ApplicationID:   p.ApplicationID,
		Amount:          p.Amount,
		PaymentMethod:   p.PaymentMethod,
		ReceiptFilePath: p.ReceiptFilePath,
		PaymentDate:     p.PaymentDate,
		PaymentStatus:   workflow.PaymentPending,
		CreatedAt:       m.Now(),
	}
	m.s.payments[pay.ID] = pay
	return pay, nil
}

func (m *Memory) GetPayment(_ context.Context, id int64) (repository.Payment, error) {
	if err := m.fail("GetPayment"); err != nil {
		return repository.Payment{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.s.payments[id]
	if !ok {
		return repository.Payment{}, apperr.NotFound("payment not found")
	}
	return p, nil
}

func (m *Memory) ListPaymentsByRequest(_ context.Context, requestID int64) ([]repository.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.Payment
	for _, p := range sortedValues(m.s.payments, func(p repository.Payment) int64 { return p.ID }) {
		if p.RequestID == requestID {
			out = append(out, p)
		}
	}
	slices.Reverse(out)
	return out, nil
}

func (m *Memory) DecidePayment(_ context.Context, p repository.DecidePaymentParams) (repository.Payment, error) {
	if err := m.fail("DecidePayment"); err != nil {
		return repository.Payment{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	pay, ok := m.s.payments[p.PaymentID]
	if !ok {
		return repository.Payment{}, apperr.NotFound("payment not found")
	}
	if pay.PaymentStatus != workflow.PaymentPending {
		return repository.Payment{}, apperr.Conflict("payment is no longer pending")
	}
	m.write()
	decidedBy := p.DecidedBy
	decidedAt := p.DecidedAt
	pay.PaymentStatus = p.Status
	pay.VerifiedBy = &decidedBy
	pay.VerifiedAt = &decidedAt
	pay.RejectionReason = p.RejectionReason
	m.s.payments[pay.ID] = pay
	return pay, nil
}

// =============================================================================
// CertificateStore
// =============================================================================

func (m *Memory) NextCertificateSequence(_ context.Context, year int) (int, error) {
	if err := m.fail("NextCertificateSequence"); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s.counters[year]++
	return m.s.counters[year], nil
}

func (m *Memory) CreateCertificate(_ context.Context, p repository.CreateCertificateParams) (repository.Certificate, error) {
	if err := m.fail("CreateCertificate"); err != nil {
		return repository.Certificate{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.s.certificates {
		if c.PaymentID == p.PaymentID {
			return repository.Certificate{}, apperr.Conflict("certificate already issued for this payment")
		}
		if c.CertificateNumber == p.CertificateNumber {
			return repository.Certificate{}, apperr.Conflict("certificate number already in use")
		}
	}
	m.write()
	c := repository.Certificate{
		ID:                  m.id(),
		RequestID:           p.RequestID,
		ApplicationID:       p.ApplicationID,
		PaymentID:           p.PaymentID,
		CertificateNumber:   p.CertificateNumber,
		CertificateFilePath: p.CertificateFilePath,
		Status:              workflow.CertificateGenerated,
		IssuedAt:            p.IssuedAt,
		ValidUntil:          p.ValidUntil,
	}
	m.s.certificates[c.ID] = c
	return c, nil
}

func (m *Memory) GetCertificate(_ context.Context, id int64) (repository.Certificate, error) {
	if err := m.fail("GetCertificate"); err != nil {
		return repository.Certificate{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.s.certificates[id]
	if !ok {
		return repository.Certificate{}, apperr.NotFound("certificate not found")
	}
	return c, nil
}

// GetCertificateForUpdate relies on RunInTx serialising transactions.
func (m *Memory) GetCertificateForUpdate(ctx context.Context, id int64) (repository.Certificate, error) {
	return m.GetCertificate(ctx, id)
}

func (m *Memory) GetCertificateByPayment(_ context.Context, paymentID int64) (repository.Certificate, error) {
	if err := m.fail("GetCertificateByPayment"); err != nil {
		return repository.Certificate{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.s.certificates {
		if c.PaymentID == paymentID {
			return c, nil
		}
	}
	return repository.Certificate{}, apperr.NotFound("certificate not found")
}

func (m *Memory) GetCertificateByRequest(_ context.Context, requestID int64) (repository.Certificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found *repository.Certificate
	for _, c := range sortedValues(m.s.certificates, func(c repository.Certificate) int64 { return c.ID }) {
		if c.RequestID == requestID {
			found = &c
		}
	}
	if found == nil {
		return repository.Certificate{}, apperr.NotFound("certificate not found")
	}
	return *found, nil
}

func (m *Memory) UpdateCertificateStatus(_ context.Context, id int64, status workflow.CertificateStatus) error {
	if err := m.fail("UpdateCertificateStatus"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.s.certificates[id]
	if !ok {
		return apperr.NotFound("certificate not found")
	}
	m.write()
	c.Status = status
	m.s.certificates[id] = c
	return nil
}

// =============================================================================
// HistoryStore / UserStore
// =============================================================================

func (m *Memory) AppendHistory(_ context.Context, p repository.AppendHistoryParams) (repository.StatusHistory, error) {
	if err := m.fail("AppendHistory"); err != nil {
		return repository.StatusHistory{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.write()
	created := p.CreatedAt
	if created.IsZero() {
		created = m.Now()
	}
	h := repository.StatusHistory{
		ID:         m.id(),
		EntityType: p.EntityType,
		EntityID:   p.EntityID,
		OldStatus:  p.OldStatus,
		NewStatus:  p.NewStatus,
		ChangedBy:  p.ChangedBy,
		Notes:      p.Notes,
		CreatedAt:  created,
	}
	m.s.history = append(m.s.history, h)
	return h, nil
}

func (m *Memory) ListHistory(_ context.Context, entityType workflow.EntityType, entityID int64) ([]repository.StatusHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.StatusHistory
	for _, h := range m.s.history {
		if h.EntityType == entityType && h.EntityID == entityID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *Memory) GetUser(_ context.Context, id int64) (repository.User, error) {
	if err := m.fail("GetUser"); err != nil {
		return repository.User{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.s.users[id]
	if !ok {
		return repository.User{}, apperr.NotFound("user not found")
	}
	return u, nil
}
