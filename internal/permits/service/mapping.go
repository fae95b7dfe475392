package service

import (
	"zoning_portal_backend/internal/permits/reconcile"
	"zoning_portal_backend/internal/permits/repository"
	"zoning_portal_backend/internal/permits/transport"
)

func toRequestResponse(req repository.Request, match reconcile.Match) transport.RequestResponse {
	resp := transport.RequestResponse{
		ID:               req.ID,
		UserID:           req.UserID,
		ApplicationID:    req.ApplicationID,
		ApplicantName:    req.ApplicantName,
		ApplicantAddress: req.ApplicantAddress,
		ContactNumber:    req.ContactNumber,
		CorporationName:  req.CorporationName,
		ProjectType:      req.ProjectType,
		ProjectNature:    req.ProjectNature,
		ProjectLocation:  req.ProjectLocation,
		LotAreaSqm:       req.LotAreaSqm,
		ProjectCost:      req.ProjectCost,
		Status:           string(req.Status),
		EffectiveStatus:  string(match.EffectiveStatus(req)),
		CreatedAt:        req.CreatedAt,
	}
	if match.Application != nil && resp.ApplicationID == nil {
		appID := match.Application.ID
		resp.ApplicationID = &appID
	}
	if match.Report != nil {
		reportID := match.Report.ID
		resp.ReportID = &reportID
		resp.WorkflowStatus = string(match.Report.WorkflowStatus)
	}
	return resp
}

func toApplicationResponse(app repository.Application) transport.ApplicationResponse {
	return transport.ApplicationResponse{
		ID:                      app.ID,
		ApplicantName:           app.ApplicantName,
		ApplicantAddress:        app.ApplicantAddress,
		AuthorizationLetterPath: app.AuthorizationLetterPath,
		CreatedAt:               app.CreatedAt,
	}
}

func toReportResponse(rep repository.Report) transport.ReportResponse {
	return transport.ReportResponse{
		ID:             rep.ID,
		ApplicationID:  rep.AppID,
		Evaluation:     string(rep.Evaluation),
		Description:    rep.Description,
		Amount:         rep.Amount,
		DateCertified:  rep.DateCertified,
		DateReported:   rep.DateReported,
		IssuedBy:       rep.IssuedBy,
		WorkflowStatus: string(rep.WorkflowStatus),
	}
}

func toPaymentResponse(p repository.Payment) transport.PaymentResponse {
	return transport.PaymentResponse{
		ID:              p.ID,
		RequestID:       p.RequestID,
		ApplicationID:   p.ApplicationID,
		Amount:          p.Amount,
		PaymentMethod:   p.PaymentMethod,
		PaymentDate:     p.PaymentDate,
		PaymentStatus:   string(p.PaymentStatus),
		VerifiedBy:      p.VerifiedBy,
		VerifiedAt:      p.VerifiedAt,
		RejectionReason: p.RejectionReason,
		CreatedAt:       p.CreatedAt,
	}
}

// ToCertificateResponse maps a certificate record for HTTP responses.
func ToCertificateResponse(c repository.Certificate) transport.CertificateResponse {
	return transport.CertificateResponse{
		ID:                c.ID,
		RequestID:         c.RequestID,
		PaymentID:         c.PaymentID,
		CertificateNumber: c.CertificateNumber,
		Status:            string(c.Status),
		IssuedAt:          c.IssuedAt,
		ValidUntil:        c.ValidUntil,
	}
}

func toHistoryResponse(h repository.StatusHistory) transport.HistoryResponse {
	return transport.HistoryResponse{
		ID:         h.ID,
		EntityType: string(h.EntityType),
		EntityID:   h.EntityID,
		OldStatus:  h.OldStatus,
		NewStatus:  h.NewStatus,
		ChangedBy:  h.ChangedBy,
		Notes:      h.Notes,
		CreatedAt:  h.CreatedAt,
	}
}
