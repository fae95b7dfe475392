package service

import (
	"context"
	"errors"

	"zoning_portal_backend/internal/permits/reconcile"
	"zoning_portal_backend/internal/permits/repository"
	"zoning_portal_backend/internal/permits/transport"
	"zoning_portal_backend/internal/permits/workflow"
	"zoning_portal_backend/platform/apperr"
)

const statusDeleted = "deleted"

var (
	errRequestNotFound = errors.New("request not found")
	errNoReport        = errors.New("request has no linked evaluation report")
)

// BulkApprove approves the report linked to each request. Items are
// independent: each runs in its own transaction and failures are collected.
func (s *Service) BulkApprove(ctx context.Context, actor workflow.Actor, req transport.BulkRequest) (transport.BulkResult, error) {
	if err := s.val.Struct(req); err != nil {
		return transport.BulkResult{}, err
	}
	return s.bulk(ctx, req.RequestIDs, func(ctx context.Context, _ repository.Request, match reconcile.Match) ([]SideEffectError, error) {
		if match.Report == nil {
			return nil, errNoReport
		}
		resp, err := s.decide(ctx, match.Report.ID, actor, decision{evaluation: workflow.EvaluationApproved})
		return resp.SideEffects, err
	})
}

// BulkReject rejects the report linked to each request with one shared reason.
func (s *Service) BulkReject(ctx context.Context, actor workflow.Actor, req transport.BulkRejectRequest) (transport.BulkResult, error) {
	if err := s.val.Struct(req); err != nil {
		return transport.BulkResult{}, err
	}
	reason, err := validReason(req.Reason)
	if err != nil {
		return transport.BulkResult{}, err
	}
	return s.bulk(ctx, req.RequestIDs, func(ctx context.Context, _ repository.Request, match reconcile.Match) ([]SideEffectError, error) {
		if match.Report == nil {
			return nil, errNoReport
		}
		resp, err := s.decide(ctx, match.Report.ID, actor, decision{
			evaluation:  workflow.EvaluationRejected,
			description: &reason,
			reason:      reason,
		})
		return resp.SideEffects, err
	})
}

// BulkDelete removes each request. An application explicitly linked to the
// request is removed with it; legacy applications matched by key are kept.
func (s *Service) BulkDelete(ctx context.Context, actor workflow.Actor, req transport.BulkRequest) (transport.BulkResult, error) {
	if err := s.val.Struct(req); err != nil {
		return transport.BulkResult{}, err
	}
	return s.bulk(ctx, req.RequestIDs, func(ctx context.Context, r repository.Request, match reconcile.Match) ([]SideEffectError, error) {
		return nil, s.tx.RunInTx(ctx, func(txCtx context.Context) error {
			if err := s.repo.DeleteRequest(txCtx, r.ID); err != nil {
				return err
			}
			if r.ApplicationID != nil && match.Application != nil && match.Application.ID == *r.ApplicationID {
				if err := s.repo.DeleteApplication(txCtx, match.Application.ID); err != nil && !apperr.Is(err, apperr.KindNotFound) {
					return err
				}
			}
			return s.appendHistory(txCtx, workflow.EntityRequest, r.ID, string(match.EffectiveStatus(r)), statusDeleted, actor.Label(), nil)
		})
	})
}

type bulkItemFunc func(ctx context.Context, req repository.Request, match reconcile.Match) ([]SideEffectError, error)

// bulk resolves every id with one batch lookup and applies fn per item.
func (s *Service) bulk(ctx context.Context, ids []int64, fn bulkItemFunc) (transport.BulkResult, error) {
	requests, err := s.repo.ListRequestsByIDs(ctx, ids)
	if err != nil {
		return transport.BulkResult{}, err
	}
	idx, err := s.index(ctx, requests)
	if err != nil {
		return transport.BulkResult{}, err
	}
	byID := make(map[int64]repository.Request, len(requests))
	for _, r := range requests {
		byID[r.ID] = r
	}

	result := transport.BulkResult{Errors: []transport.BulkError{}}
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		r, ok := byID[id]
		if !ok {
			result.Errors = append(result.Errors, transport.BulkError{RequestID: id, Message: errRequestNotFound.Error()})
			continue
		}
		sideEffects, err := fn(ctx, r, idx.Resolve(r))
		if err != nil {
			s.log.WithContext(ctx).Warn("bulk item failed", "requestId", id, "error", err)
			result.Errors = append(result.Errors, transport.BulkError{RequestID: id, Message: bulkMessage(err)})
			continue
		}
		result.Succeeded++
		result.SideEffects = append(result.SideEffects, sideEffects...)
	}
	return result, nil
}

// bulkMessage keeps typed messages and hides store internals.
func bulkMessage(err error) string {
	var domainErr *apperr.Error
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	if errors.Is(err, errNoReport) || errors.Is(err, errRequestNotFound) {
		return err.Error()
	}
	return "internal error"
}
