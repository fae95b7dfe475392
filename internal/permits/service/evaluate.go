package service

import (
	"context"
	"fmt"
	"time"

	"zoning_portal_backend/internal/events"
	"zoning_portal_backend/internal/permits/certificate"
	"zoning_portal_backend/internal/permits/repository"
	"zoning_portal_backend/internal/permits/transport"
	"zoning_portal_backend/internal/permits/workflow"
	"zoning_portal_backend/platform/apperr"
	"zoning_portal_backend/platform/sanitize"

	"github.com/shopspring/decimal"
)

type decision struct {
	evaluation    workflow.Evaluation
	description   *string
	amount        *decimal.Decimal
	dateCertified *time.Time
	reason        string
}

// Evaluate sets a report's evaluation. A decided report can only be reset to
// pending; see workflow.CanEvaluate.
func (s *Service) Evaluate(ctx context.Context, reportID int64, actor workflow.Actor, req transport.EvaluateRequest) (transport.EvaluationResponse, error) {
	if err := s.val.Struct(req); err != nil {
		return transport.EvaluationResponse{}, err
	}
	d := decision{
		evaluation:    workflow.Evaluation(req.Evaluation),
		description:   sanitize.TextPtr(req.Description),
		amount:        req.Amount,
		dateCertified: req.DateCertified,
	}
	if d.evaluation == workflow.EvaluationRejected {
		reason := ""
		if d.description != nil {
			reason = *d.description
		}
		if msg := workflow.ValidateReason(reason); msg != "" {
			return transport.EvaluationResponse{}, apperr.FieldInvalid("description", msg)
		}
		d.reason = reason
	}
	if err := validateAmount(d.amount); err != nil {
		return transport.EvaluationResponse{}, err
	}
	return s.decide(ctx, reportID, actor, d)
}

// Approve marks a report approved.
func (s *Service) Approve(ctx context.Context, reportID int64, actor workflow.Actor, req transport.ApproveRequest) (transport.EvaluationResponse, error) {
	if err := s.val.Struct(req); err != nil {
		return transport.EvaluationResponse{}, err
	}
	if err := validateAmount(req.Amount); err != nil {
		return transport.EvaluationResponse{}, err
	}
	return s.decide(ctx, reportID, actor, decision{
		evaluation:    workflow.EvaluationApproved,
		description:   sanitize.TextPtr(req.Description),
		amount:        req.Amount,
		dateCertified: req.DateCertified,
	})
}

// Reject marks a report rejected. The reason is stored as the report description.
func (s *Service) Reject(ctx context.Context, reportID int64, actor workflow.Actor, req transport.RejectRequest) (transport.EvaluationResponse, error) {
	reason, err := validReason(req.Reason)
	if err != nil {
		return transport.EvaluationResponse{}, err
	}
	return s.decide(ctx, reportID, actor, decision{
		evaluation:  workflow.EvaluationRejected,
		description: &reason,
		reason:      reason,
	})
}

func validReason(reason string) (string, error) {
	if msg := workflow.ValidateReason(reason); msg != "" {
		return "", apperr.FieldInvalid("reason", msg)
	}
	cleaned := sanitize.Text(reason)
	if msg := workflow.ValidateReason(cleaned); msg != "" {
		return "", apperr.FieldInvalid("reason", msg)
	}
	return cleaned, nil
}

func validateAmount(amount *decimal.Decimal) error {
	if amount != nil && amount.IsNegative() {
		return apperr.FieldInvalid("amount", "must not be negative")
	}
	return nil
}

// decide writes the evaluation. History and the notification only happen
// when the stored evaluation actually changes.
func (s *Service) decide(ctx context.Context, reportID int64, actor workflow.Actor, d decision) (transport.EvaluationResponse, error) {
	var before, after repository.Report
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		before, err = s.repo.GetReportForUpdate(txCtx, reportID)
		if err != nil {
			return err
		}
		if !workflow.CanEvaluate(before.Evaluation, d.evaluation) {
			return apperr.Conflict(fmt.Sprintf("report %d is already %s", reportID, before.Evaluation))
		}
		after, err = s.repo.UpdateEvaluation(txCtx, repository.UpdateEvaluationParams{
			ReportID:      reportID,
			Evaluation:    d.evaluation,
			DateReported:  s.clock.Now(),
			IssuedBy:      actor.Label(),
			Description:   d.description,
			Amount:        d.amount,
			DateCertified: d.dateCertified,
		})
		if err != nil {
			return err
		}
		if before.Evaluation == after.Evaluation {
			return nil
		}
		var notes *string
		if d.reason != "" {
			notes = &d.reason
		}
		return s.appendHistory(txCtx, workflow.EntityReport, reportID, string(before.Evaluation), string(after.Evaluation), actor.Label(), notes)
	})
	if err != nil {
		return transport.EvaluationResponse{}, err
	}

	resp := transport.EvaluationResponse{
		Report:  toReportResponse(after),
		Changed: before.Evaluation != after.Evaluation,
	}
	if resp.Changed {
		resp.SideEffects = s.notifyEvaluation(ctx, after, d)
	}
	return resp, nil
}

func (s *Service) notifyEvaluation(ctx context.Context, report repository.Report, d decision) []SideEffectError {
	var step string
	switch report.Evaluation {
	case workflow.EvaluationApproved:
		step = StepNotifyApproved
	case workflow.EvaluationRejected:
		step = StepNotifyRejected
	default:
		return nil
	}

	owner, err := s.ownerOfApplication(ctx, report.AppID)
	if err != nil {
		return []SideEffectError{s.sideEffect(ctx, StepResolveOwner, err, "reportId", report.ID)}
	}
	to, err := s.recipient(ctx, owner.UserID)
	if err != nil {
		return []SideEffectError{s.sideEffect(ctx, StepResolveOwner, err, "reportId", report.ID, "requestId", owner.ID)}
	}

	base := events.NewBaseEventAt(s.clock.Now())
	var event events.Event
	if report.Evaluation == workflow.EvaluationApproved {
		approved := events.ApplicationApproved{
			BaseEvent:     base,
			ReportID:      report.ID,
			RequestID:     owner.ID,
			Recipient:     to,
			ApplicantName: owner.ApplicantName,
		}
		if report.IssuedBy != nil {
			approved.IssuedBy = *report.IssuedBy
		}
		if report.Amount != nil {
			approved.Amount = certificate.FormatAmount(s.currency, *report.Amount)
		}
		event = approved
	} else {
		event = events.ApplicationRejected{
			BaseEvent:     base,
			ReportID:      report.ID,
			RequestID:     owner.ID,
			Recipient:     to,
			ApplicantName: owner.ApplicantName,
			Reason:        d.reason,
		}
	}
	return s.publish(ctx, step, event, "reportId", report.ID, "requestId", owner.ID)
}
