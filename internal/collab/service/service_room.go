package service

import (
	"context"

	"collabcore/internal/collab/audit"
	"collabcore/internal/collab/model"
	"collabcore/internal/collab/policy"
)

const (
	opCreateRoom   = "create_room"
	opCreateTicket = "create_ticket"
	opPostMessage  = "post_message"
)

// CreateRoom opens a PUBLIC, PRIVATE or DM room owned by the caller.
// External customers only ever talk through tickets.
func (s *Service) CreateRoom(ctx context.Context, callerID string, req model.CreateRoomReq) (room *model.Room, err error) {
	defer func() { s.observe(opCreateRoom, callerID, err) }()
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	caller, err := s.caller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	internal, err := s.Access.IsInternal(ctx, caller)
	if err != nil {
		return nil, err
	}
	if !internal {
		return nil, model.NewAccessError(model.CodeForbidden, "external users cannot create rooms")
	}

	roomType := model.RoomType(req.Type)
	if roomType == model.RoomTypeDM {
		if req.MemberID == caller.ID {
			return nil, model.NewValidationError("member_id", "cannot open a direct message with yourself")
		}
		if _, err := s.findUser(ctx, req.MemberID); err != nil {
			return nil, err
		}
	}

	room = &model.Room{
		Name:      req.Name,
		Type:      roomType,
		CreatedBy: caller.ID,
	}
	if req.Department != "" {
		dept := req.Department
		room.Department = &dept
	}

	err = s.Store.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.Store.CreateRoom(ctx, room); err != nil {
			return err
		}
		owner := &model.Membership{
			UserID:    caller.ID,
			RoomID:    room.ID,
			RoomType:  room.Type,
			Role:      model.MemberRoleOwner,
			CreatedBy: caller.ID,
			UpdatedBy: caller.ID,
		}
		if err := s.Store.UpsertMembership(ctx, owner); err != nil {
			return err
		}
		if roomType != model.RoomTypeDM {
			return nil
		}
		return s.Store.UpsertMembership(ctx, &model.Membership{
			UserID:    req.MemberID,
			RoomID:    room.ID,
			RoomType:  room.Type,
			Role:      model.MemberRoleMember,
			CreatedBy: caller.ID,
			UpdatedBy: caller.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("room created", "room_id", room.ID, "type", room.Type, "caller_id", caller.ID)
	return room, nil
}

// RenameRoom changes a room's display name.
func (s *Service) RenameRoom(ctx context.Context, callerID string, req model.RenameRoomReq) (room *model.Room, err error) {
	defer func() { s.observe(string(policy.OpEditRoom), callerID, err) }()
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	caller, err := s.caller(ctx, callerID)
	if err != nil {
		return nil, err
	}

	var previous string
	err = s.Store.WithTransaction(ctx, func(ctx context.Context) error {
		found, err := s.findRoom(ctx, req.RoomID)
		if err != nil {
			return err
		}
		if _, err := s.Access.Authorize(ctx, policy.OpEditRoom, caller, found); err != nil {
			return err
		}
		previous = found.Name
		if previous == req.Name {
			room = found
			return nil
		}
		if err := s.Store.RenameRoom(ctx, found.ID, req.Name); err != nil {
			return err
		}
		room, err = s.findRoom(ctx, found.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if previous != req.Name {
		s.Recorder.Record(ctx, audit.Entry{
			Action:     model.ActionRoomEdit,
			ActorID:    caller.ID,
			TargetType: roomTargetType(room),
			TargetID:   room.ID,
			RoomID:     room.ID,
			Metadata:   map[string]any{"field": "name", "from": previous, "to": req.Name},
		})
	}
	return room, nil
}

// DeleteRoom removes a room together with its memberships and messages.
func (s *Service) DeleteRoom(ctx context.Context, callerID string, req model.RoomPathReq) (err error) {
	defer func() { s.observe(string(policy.OpDeleteRoom), callerID, err) }()
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	caller, err := s.caller(ctx, callerID)
	if err != nil {
		return err
	}

	var deleted *model.Room
	err = s.Store.WithTransaction(ctx, func(ctx context.Context) error {
		room, err := s.findRoom(ctx, req.RoomID)
		if err != nil {
			return err
		}
		if _, err := s.Access.Authorize(ctx, policy.OpDeleteRoom, caller, room); err != nil {
			return err
		}
		if err := s.Store.DeleteRoomMessages(ctx, room.ID); err != nil {
			return err
		}
		if err := s.Store.DeleteRoomMemberships(ctx, room.ID); err != nil {
			return err
		}
		if err := s.Store.DeleteRoom(ctx, room.ID); err != nil {
			return err
		}
		deleted = room
		return nil
	})
	if err != nil {
		return err
	}

	s.Recorder.Record(ctx, audit.Entry{
		Action:     model.ActionRoomDelete,
		ActorID:    caller.ID,
		TargetType: roomTargetType(deleted),
		TargetID:   deleted.ID,
		RoomID:     deleted.ID,
		Metadata:   map[string]any{"name": deleted.Name, "roomType": string(deleted.Type)},
	})
	return nil
}

func roomTargetType(room *model.Room) string {
	if room.IsTicket() {
		return model.TargetTypeTicket
	}
	return model.TargetTypeRoom
}
