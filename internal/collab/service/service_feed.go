package service

import (
	"context"

	"collabcore/internal/collab/model"
)

func (s *Service) GetFeed(ctx context.Context, callerID string, req model.GetFeedReq) (*model.FeedPage, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	caller, err := s.caller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	return s.Feed.GetFeed(ctx, caller, req.ToQuery())
}

// ListAuditRecords retrieves raw audit records with pagination. Administrators only.
func (s *Service) ListAuditRecords(ctx context.Context, callerID string, req model.GetAuditRecordsReq) (*model.AuditPage, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	caller, err := s.caller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if err := s.Access.AssertGlobalRole(caller, model.GlobalRoleAdmin); err != nil {
		return nil, model.NewAccessError(model.CodeForbidden, "audit log is restricted to administrators")
	}

	data, total, err := s.History.FindAuditRecords(ctx, req.ToQuery())
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = []*model.AuditRecord{}
	}

	return &model.AuditPage{
		Data:       data,
		Page:       req.Page,
		Size:       req.Size,
		TotalCount: total,
	}, nil
}
