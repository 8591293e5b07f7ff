package service

import (
	"context"

	"collabcore/internal/collab/audit"
	"collabcore/internal/collab/model"
	"collabcore/internal/collab/policy"
)

// CreateTicket opens a support ticket. The requester joins as MEMBER and the
// ticket stays ownerless until an administrator is assigned.
func (s *Service) CreateTicket(ctx context.Context, callerID string, req model.CreateTicketReq) (ticket *model.Room, err error) {
	defer func() { s.observe(opCreateTicket, callerID, err) }()
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	caller, err := s.caller(ctx, callerID)
	if err != nil {
		return nil, err
	}

	ticket = &model.Room{
		Name:      req.Subject,
		Type:      model.RoomTypeTicket,
		Status:    model.TicketStatusOpen,
		CreatedBy: caller.ID,
	}
	dept := req.Department
	if dept == "" {
		dept = caller.DepartmentName()
	}
	if dept != "" {
		ticket.Department = &dept
	}

	err = s.Store.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.Store.CreateRoom(ctx, ticket); err != nil {
			return err
		}
		return s.Store.UpsertMembership(ctx, &model.Membership{
			UserID:    caller.ID,
			RoomID:    ticket.ID,
			RoomType:  model.RoomTypeTicket,
			Role:      model.MemberRoleMember,
			CreatedBy: caller.ID,
			UpdatedBy: caller.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("ticket created", "room_id", ticket.ID, "department", dept, "caller_id", caller.ID)
	return ticket, nil
}

// AssignTicket makes an administrator the ticket's OWNER. The previous owner,
// if any, is demoted to MODERATOR in the same transaction. Assigning the
// current owner again succeeds without changes.
func (s *Service) AssignTicket(ctx context.Context, callerID string, req model.AssignTicketReq) (result *model.AssignmentResult, err error) {
	defer func() { s.observe(string(policy.OpAssignTicket), callerID, err) }()
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	caller, err := s.caller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if err := s.Access.AssertGlobalRole(caller, model.GlobalRoleAdmin); err != nil {
		return nil, model.NewAccessError(model.CodeForbidden, "only administrators may assign tickets")
	}

	assignee, err := s.findUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if !assignee.IsAdmin() {
		return nil, model.NewValidationError("user_id", "tickets can only be assigned to administrators")
	}

	result = &model.AssignmentResult{RoomID: req.RoomID, NewOwnerID: assignee.ID}
	err = s.Store.WithTransaction(ctx, func(ctx context.Context) error {
		_, mut, err := s.loadMutation(ctx, policy.OpAssignTicket, caller, req.RoomID, assignee.ID, model.MemberRoleOwner)
		if err != nil {
			return err
		}
		if err := s.Policy.ValidateMutation(mut); err != nil {
			return err
		}

		if mut.Target != nil && mut.Target.Role == model.MemberRoleOwner {
			result.PreviousOwnerID = assignee.ID
			return nil
		}
		previous, err := s.swapOwner(ctx, caller.ID, mut.Target, req.RoomID, assignee.ID, mut.RoomType)
		if err != nil {
			return err
		}
		result.PreviousOwnerID = previous
		result.Changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Changed {
		s.Recorder.Record(ctx, audit.Entry{
			Action:     model.ActionTicketAssign,
			ActorID:    caller.ID,
			TargetType: model.TargetTypeTicket,
			TargetID:   req.RoomID,
			RoomID:     req.RoomID,
			Metadata:   map[string]any{"previousOwnerId": result.PreviousOwnerID, "assigneeId": assignee.ID},
		})
	}
	return result, nil
}

// ChangeTicketStatus moves a ticket between OPEN, WAITING and RESOLVED.
func (s *Service) ChangeTicketStatus(ctx context.Context, callerID string, req model.ChangeTicketStatusReq) (ticket *model.Room, err error) {
	defer func() { s.observe(string(policy.OpChangeTicketStatus), callerID, err) }()
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	caller, err := s.caller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	status := model.TicketStatus(req.Status)

	var from model.TicketStatus
	err = s.Store.WithTransaction(ctx, func(ctx context.Context) error {
		room, err := s.findRoom(ctx, req.RoomID)
		if err != nil {
			return err
		}
		if _, err := s.Access.Authorize(ctx, policy.OpChangeTicketStatus, caller, room); err != nil {
			return err
		}
		from = room.Status
		if from == status {
			ticket = room
			return nil
		}
		if err := s.Store.UpdateRoomStatus(ctx, room.ID, status); err != nil {
			return err
		}
		ticket, err = s.findRoom(ctx, room.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if from != status {
		s.Recorder.Record(ctx, audit.Entry{
			Action:     model.ActionTicketStatus,
			ActorID:    caller.ID,
			TargetType: model.TargetTypeTicket,
			TargetID:   ticket.ID,
			RoomID:     ticket.ID,
			Metadata:   map[string]any{"from": string(from), "to": string(status)},
		})
	}
	return ticket, nil
}
