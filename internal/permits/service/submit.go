package service

import (
	"context"

	"zoning_portal_backend/internal/events"
	"zoning_portal_backend/internal/permits/reconcile"
	"zoning_portal_backend/internal/permits/repository"
	"zoning_portal_backend/internal/permits/transport"
	"zoning_portal_backend/internal/permits/workflow"
	"zoning_portal_backend/platform/apperr"
	"zoning_portal_backend/platform/phone"
	"zoning_portal_backend/platform/sanitize"
)

// Submit records a new certification request. The corporation, project,
// application, pending report and request are created together, and the
// request carries an explicit link to its application.
func (s *Service) Submit(ctx context.Context, actor workflow.Actor, req transport.SubmitRequest) (transport.SubmitResponse, error) {
	if err := s.val.Struct(req); err != nil {
		return transport.SubmitResponse{}, err
	}
	if !req.LotAreaSqm.IsPositive() {
		return transport.SubmitResponse{}, apperr.FieldInvalid("lotAreaSqm", "must be greater than zero")
	}
	if req.ProjectCost.IsNegative() {
		return transport.SubmitResponse{}, apperr.FieldInvalid("projectCost", "must not be negative")
	}
	contact, ok := phone.Normalize(req.ContactNumber)
	if !ok {
		return transport.SubmitResponse{}, apperr.FieldInvalid("contactNumber", "must be a valid phone number")
	}

	name := sanitize.Name(req.ApplicantName)
	address := sanitize.Name(req.ApplicantAddress)
	if name == "" || address == "" {
		return transport.SubmitResponse{}, apperr.Validation("applicant name and address are required")
	}
	var corporation *string
	if req.CorporationName != nil {
		if corp := sanitize.Name(*req.CorporationName); corp != "" {
			corporation = &corp
		}
	}

	var created repository.Request
	var app repository.Application
	var report repository.Report
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var corpID *int64
		if corporation != nil {
			corp, err := s.repo.FindOrCreateCorporation(txCtx, *corporation)
			if err != nil {
				return err
			}
			corpID = &corp.ID
		}

		project, err := s.repo.CreateProject(txCtx, repository.CreateProjectParams{
			ProjectType:     sanitize.Text(req.ProjectType),
			ProjectNature:   sanitize.Text(req.ProjectNature),
			ProjectLocation: sanitize.Text(req.ProjectLocation),
			LotAreaSqm:      req.LotAreaSqm,
			ProjectCost:     req.ProjectCost,
		})
		if err != nil {
			return err
		}

		app, err = s.repo.CreateApplication(txCtx, repository.CreateApplicationParams{
			CorpID:                  corpID,
			ProjectID:               project.ID,
			ApplicantName:           name,
			ApplicantAddress:        address,
			AuthorizationLetterPath: req.AuthorizationLetterPath,
		})
		if err != nil {
			return err
		}

		report, err = s.repo.CreateReport(txCtx, app.ID)
		if err != nil {
			return err
		}

		appID := app.ID
		created, err = s.repo.CreateRequest(txCtx, repository.CreateRequestParams{
			UserID:           actor.ID,
			ApplicationID:    &appID,
			ApplicantName:    name,
			ApplicantAddress: address,
			ContactNumber:    contact,
			CorporationName:  corporation,
			ProjectType:      project.ProjectType,
			ProjectNature:    project.ProjectNature,
			ProjectLocation:  project.ProjectLocation,
			LotAreaSqm:       project.LotAreaSqm,
			ProjectCost:      project.ProjectCost,
		})
		if err != nil {
			return err
		}

		return s.appendHistory(txCtx, workflow.EntityRequest, created.ID, "", string(created.Status), actor.Label(), nil)
	})
	if err != nil {
		return transport.SubmitResponse{}, err
	}

	resp := transport.SubmitResponse{
		Request: toRequestResponse(created, reconcile.Match{Application: &app, Report: &report}),
	}

	to, err := s.recipient(ctx, created.UserID)
	if err != nil {
		resp.SideEffects = append(resp.SideEffects, s.sideEffect(ctx, StepResolveOwner, err, "requestId", created.ID))
		return resp, nil
	}
	resp.SideEffects = append(resp.SideEffects, s.publish(ctx, StepNotifySubmitted, events.RequestSubmitted{
		BaseEvent:       events.NewBaseEventAt(s.clock.Now()),
		RequestID:       created.ID,
		ApplicationID:   app.ID,
		Recipient:       to,
		ApplicantName:   created.ApplicantName,
		ProjectLocation: created.ProjectLocation,
	}, "requestId", created.ID)...)

	return resp, nil
}
