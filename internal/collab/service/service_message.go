package service

import (
	"context"

	"collabcore/internal/collab/audit"
	"collabcore/internal/collab/model"
	"collabcore/internal/collab/policy"
)

// PostMessage appends a message to a room the caller can access. Internal
// users posting to a PUBLIC room they have not joined become members.
func (s *Service) PostMessage(ctx context.Context, callerID string, req model.PostMessageReq) (msg *model.Message, err error) {
	defer func() { s.observe(opPostMessage, callerID, err) }()
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	caller, err := s.caller(ctx, callerID)
	if err != nil {
		return nil, err
	}

	err = s.Store.WithTransaction(ctx, func(ctx context.Context) error {
		room, err := s.findRoom(ctx, req.RoomID)
		if err != nil {
			return err
		}
		if err := s.Access.AssertAccess(ctx, caller, room); err != nil {
			return err
		}
		if req.ParentMessageID != "" {
			parent, err := s.Store.FindMessage(ctx, req.ParentMessageID)
			if err != nil {
				return err
			}
			if parent == nil || parent.DeletedAt != nil || parent.RoomID != room.ID {
				return model.NewValidationError("parent_message_id", "must reference a message in this room")
			}
		}
		if room.Type == model.RoomTypePublic {
			if err := s.autoJoin(ctx, caller, room); err != nil {
				return err
			}
		}

		msg = &model.Message{
			RoomID:          room.ID,
			AuthorID:        caller.ID,
			Content:         req.Content,
			ParentMessageID: req.ParentMessageID,
		}
		return s.Store.CreateMessage(ctx, msg)
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *Service) autoJoin(ctx context.Context, caller *model.User, room *model.Room) error {
	existing, err := s.Store.FindMembership(ctx, caller.ID, room.ID)
	if err != nil || existing != nil {
		return err
	}
	s.Logger.Debug("auto-joining public room", "room_id", room.ID, "user_id", caller.ID)
	return s.Store.UpsertMembership(ctx, &model.Membership{
		UserID:    caller.ID,
		RoomID:    room.ID,
		RoomType:  room.Type,
		Role:      model.MemberRoleMember,
		CreatedBy: caller.ID,
		UpdatedBy: caller.ID,
	})
}

// DeleteMessage soft-deletes a message. Authors may delete their own
// messages; anyone else needs moderation rights in the room.
func (s *Service) DeleteMessage(ctx context.Context, callerID string, req model.DeleteMessageReq) (err error) {
	defer func() { s.observe(string(policy.OpModerateMessage), callerID, err) }()
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	caller, err := s.caller(ctx, callerID)
	if err != nil {
		return err
	}

	var authorID string
	err = s.Store.WithTransaction(ctx, func(ctx context.Context) error {
		room, err := s.findRoom(ctx, req.RoomID)
		if err != nil {
			return err
		}
		msg, err := s.Store.FindMessage(ctx, req.MessageID)
		if err != nil {
			return err
		}
		if msg == nil || msg.DeletedAt != nil || msg.RoomID != room.ID {
			return model.NotFound("message", req.MessageID)
		}

		if msg.AuthorID == caller.ID {
			if err := s.Access.AssertAccess(ctx, caller, room); err != nil {
				return err
			}
		} else if _, err := s.Access.Authorize(ctx, policy.OpModerateMessage, caller, room); err != nil {
			return err
		}
		authorID = msg.AuthorID
		return s.Store.SoftDeleteMessage(ctx, msg.ID, caller.ID)
	})
	if err != nil {
		return err
	}

	s.Recorder.Record(ctx, audit.Entry{
		Action:     model.ActionMessageDelete,
		ActorID:    caller.ID,
		TargetType: model.TargetTypeMessage,
		TargetID:   req.MessageID,
		RoomID:     req.RoomID,
		Metadata:   map[string]any{"authorId": authorID},
	})
	return nil
}
