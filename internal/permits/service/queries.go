package service

import (
	"context"

	"zoning_portal_backend/internal/permits/reconcile"
	"zoning_portal_backend/internal/permits/repository"
	"zoning_portal_backend/internal/permits/transport"
	"zoning_portal_backend/internal/permits/workflow"
	"zoning_portal_backend/platform/apperr"
)

const (
	defaultPage     = 1
	defaultPageSize = 20
)

// visibleRequests loads the requests the actor may see, matching search.
func (s *Service) visibleRequests(ctx context.Context, actor workflow.Actor, search string) ([]repository.Request, *reconcile.Index, error) {
	filter := repository.RequestFilter{Search: search}
	if !actor.IsAdmin {
		userID := actor.ID
		filter.UserID = &userID
	}
	requests, err := s.repo.ListRequests(ctx, filter)
	if err != nil {
		return nil, nil, err
	}
	idx, err := s.index(ctx, requests)
	if err != nil {
		return nil, nil, err
	}
	return requests, idx, nil
}

// ListRequests pages through requests, filtering on the effective status.
// Applicants only see their own requests.
func (s *Service) ListRequests(ctx context.Context, actor workflow.Actor, req transport.ListRequestsRequest) (transport.RequestListResponse, error) {
	if err := s.val.Struct(req); err != nil {
		return transport.RequestListResponse{}, err
	}
	page := req.Page
	if page == 0 {
		page = defaultPage
	}
	pageSize := req.PageSize
	if pageSize == 0 {
		pageSize = defaultPageSize
	}

	requests, idx, err := s.visibleRequests(ctx, actor, req.Search)
	if err != nil {
		return transport.RequestListResponse{}, err
	}

	items := make([]transport.RequestResponse, 0, len(requests))
	for _, r := range requests {
		match := idx.Resolve(r)
		if req.Status != "" && string(match.EffectiveStatus(r)) != req.Status {
			continue
		}
		items = append(items, toRequestResponse(r, match))
	}

	total := len(items)
	start := min((page-1)*pageSize, total)
	end := min(start+pageSize, total)
	totalPages := (total + pageSize - 1) / pageSize

	return transport.RequestListResponse{
		Items:      items[start:end],
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// GetRequest returns a request with its application, report, payments and certificate.
func (s *Service) GetRequest(ctx context.Context, id int64, actor workflow.Actor) (transport.RequestDetailResponse, error) {
	request, err := s.repo.GetRequest(ctx, id)
	if err != nil {
		return transport.RequestDetailResponse{}, err
	}
	if !actor.CanAccess(request.UserID) {
		return transport.RequestDetailResponse{}, apperr.Forbidden("request belongs to another applicant")
	}

	idx, err := s.index(ctx, []repository.Request{request})
	if err != nil {
		return transport.RequestDetailResponse{}, err
	}
	match := idx.Resolve(request)

	resp := transport.RequestDetailResponse{
		Request:  toRequestResponse(request, match),
		Payments: []transport.PaymentResponse{},
	}
	if match.Application != nil {
		app := toApplicationResponse(*match.Application)
		resp.Application = &app
	}
	if match.Report != nil {
		rep := toReportResponse(*match.Report)
		resp.Report = &rep
	}

	payments, err := s.repo.ListPaymentsByRequest(ctx, id)
	if err != nil {
		return transport.RequestDetailResponse{}, err
	}
	for _, p := range payments {
		resp.Payments = append(resp.Payments, toPaymentResponse(p))
	}

	cert, err := s.repo.GetCertificateByRequest(ctx, id)
	switch {
	case err == nil:
		c := ToCertificateResponse(cert)
		resp.Certificate = &c
	case !apperr.Is(err, apperr.KindNotFound):
		return transport.RequestDetailResponse{}, err
	}
	return resp, nil
}

// Stats counts the actor's visible requests by effective status.
func (s *Service) Stats(ctx context.Context, actor workflow.Actor) (transport.StatsResponse, error) {
	requests, idx, err := s.visibleRequests(ctx, actor, "")
	if err != nil {
		return transport.StatsResponse{}, err
	}

	stats := transport.StatsResponse{Total: len(requests)}
	for _, r := range requests {
		switch idx.EffectiveStatus(r) {
		case workflow.EvaluationPending:
			stats.Pending++
		case workflow.EvaluationApproved:
			stats.Approved++
		case workflow.EvaluationRejected:
			stats.Rejected++
		}
	}
	return stats, nil
}

// ExportRows returns every matching request as a flat row, newest first.
func (s *Service) ExportRows(ctx context.Context, actor workflow.Actor, req transport.ListRequestsRequest) ([]transport.ExportRow, error) {
	if err := s.val.Struct(req); err != nil {
		return nil, err
	}
	requests, idx, err := s.visibleRequests(ctx, actor, req.Search)
	if err != nil {
		return nil, err
	}

	rows := make([]transport.ExportRow, 0, len(requests))
	for _, r := range requests {
		match := idx.Resolve(r)
		status := match.EffectiveStatus(r)
		if req.Status != "" && string(status) != req.Status {
			continue
		}
		row := transport.ExportRow{
			RequestID:        r.ID,
			ApplicantName:    r.ApplicantName,
			ApplicantAddress: r.ApplicantAddress,
			ContactNumber:    r.ContactNumber,
			ProjectType:      r.ProjectType,
			ProjectNature:    r.ProjectNature,
			ProjectLocation:  r.ProjectLocation,
			LotAreaSqm:       r.LotAreaSqm,
			ProjectCost:      r.ProjectCost,
			EffectiveStatus:  string(status),
			SubmittedAt:      r.CreatedAt,
		}
		if r.CorporationName != nil {
			row.CorporationName = *r.CorporationName
		}
		if match.Report != nil {
			row.WorkflowStatus = string(match.Report.WorkflowStatus)
			row.AssessedAmount = match.Report.Amount
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ListHistory returns the audit trail of one entity.
func (s *Service) ListHistory(ctx context.Context, req transport.ListHistoryRequest) (transport.HistoryListResponse, error) {
	if err := s.val.Struct(req); err != nil {
		return transport.HistoryListResponse{}, err
	}
	rows, err := s.repo.ListHistory(ctx, workflow.EntityType(req.EntityType), req.EntityID)
	if err != nil {
		return transport.HistoryListResponse{}, err
	}
	items := make([]transport.HistoryResponse, 0, len(rows))
	for _, h := range rows {
		items = append(items, toHistoryResponse(h))
	}
	return transport.HistoryListResponse{Items: items}, nil
}

// Ambiguities reports every composite key shared by more than one application.
func (s *Service) Ambiguities(ctx context.Context) ([]reconcile.Ambiguity, error) {
	apps, err := s.repo.ListApplications(ctx)
	if err != nil {
		return nil, err
	}
	return reconcile.NewIndex(apps, nil).Ambiguities(), nil
}
