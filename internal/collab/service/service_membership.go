package service

import (
	"context"

	"collabcore/internal/collab/audit"
	"collabcore/internal/collab/model"
	"collabcore/internal/collab/policy"

	"github.com/cenkalti/backoff/v5"
)

const inviteMaxTries = 3

// loadMutation reads the room and memberships a role check needs and locks
// the room's membership set. Callers run it inside a transaction.
func (s *Service) loadMutation(ctx context.Context, op policy.Operation, caller *model.User, roomID, targetID string, newRole model.MemberRole) (*model.Room, policy.Mutation, error) {
	room, err := s.findRoom(ctx, roomID)
	if err != nil {
		return nil, policy.Mutation{}, err
	}
	if err := s.Store.LockRoom(ctx, roomID); err != nil {
		return nil, policy.Mutation{}, err
	}

	callerMembership, err := s.Store.FindMembership(ctx, caller.ID, roomID)
	if err != nil {
		return nil, policy.Mutation{}, err
	}
	var target *model.Membership
	if targetID != "" {
		if target, err = s.Store.FindMembership(ctx, targetID, roomID); err != nil {
			return nil, policy.Mutation{}, err
		}
	}
	owners, err := s.Store.CountOwners(ctx, roomID)
	if err != nil {
		return nil, policy.Mutation{}, err
	}
	members, err := s.Store.CountMembers(ctx, roomID)
	if err != nil {
		return nil, policy.Mutation{}, err
	}

	return room, policy.Mutation{
		Op:               op,
		Caller:           caller,
		CallerMembership: callerMembership,
		RoomType:         room.Type,
		TargetUserID:     targetID,
		Target:           target,
		NewRole:          newRole,
		OwnersBefore:     owners,
		MembersBefore:    members,
	}, nil
}

func (s *Service) ListMembers(ctx context.Context, callerID string, req model.RoomPathReq) ([]*model.Membership, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	caller, err := s.caller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	room, err := s.findRoom(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	if err := s.Access.AssertAccess(ctx, caller, room); err != nil {
		return nil, err
	}
	return s.Store.ListMemberships(ctx, room.ID)
}

// InviteMember adds a user to a PRIVATE or TICKET room. Inviting an existing
// member returns their membership unchanged, which makes the whole operation
// safe to retry on transient store failures.
func (s *Service) InviteMember(ctx context.Context, callerID string, req model.InviteMemberReq) (result *model.Membership, err error) {
	defer func() { s.observe(string(policy.OpInviteMember), callerID, err) }()
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	caller, err := s.caller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	role := model.MemberRole(req.Role)

	var created bool
	attempt := func() (*model.Membership, error) {
		var m *model.Membership
		created = false
		txErr := s.Store.WithTransaction(ctx, func(ctx context.Context) error {
			room, mut, err := s.loadMutation(ctx, policy.OpInviteMember, caller, req.RoomID, req.UserID, role)
			if err != nil {
				return err
			}
			if err := s.Policy.ValidateMutation(mut); err != nil {
				return err
			}
			if mut.Target != nil {
				m = mut.Target
				return nil
			}
			if _, err := s.findUser(ctx, req.UserID); err != nil {
				return err
			}

			m = &model.Membership{
				UserID:    req.UserID,
				RoomID:    room.ID,
				RoomType:  room.Type,
				Role:      role,
				CreatedBy: caller.ID,
				UpdatedBy: caller.ID,
			}
			if err := s.Store.UpsertMembership(ctx, m); err != nil {
				return err
			}
			created = true
			return nil
		})
		if txErr != nil && !model.IsRetryable(txErr) {
			return nil, backoff.Permanent(txErr)
		}
		return m, txErr
	}

	result, err = backoff.Retry(ctx, attempt,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(inviteMaxTries),
	)
	if err != nil {
		return nil, err
	}

	if created {
		s.Recorder.Record(ctx, audit.Entry{
			Action:     model.ActionMemberInvite,
			ActorID:    caller.ID,
			TargetType: model.TargetTypeUser,
			TargetID:   req.UserID,
			RoomID:     req.RoomID,
			Metadata:   map[string]any{"role": string(role)},
		})
	}
	return result, nil
}

func (s *Service) RemoveMember(ctx context.Context, callerID string, req model.RemoveMemberReq) (err error) {
	defer func() { s.observe(string(policy.OpRemoveMember), callerID, err) }()
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	caller, err := s.caller(ctx, callerID)
	if err != nil {
		return err
	}

	var removed model.MemberRole
	err = s.Store.WithTransaction(ctx, func(ctx context.Context) error {
		_, mut, err := s.loadMutation(ctx, policy.OpRemoveMember, caller, req.RoomID, req.UserID, "")
		if err != nil {
			return err
		}
		if err := s.Policy.ValidateMutation(mut); err != nil {
			return err
		}
		removed = mut.Target.Role
		return s.Store.DeleteMembership(ctx, req.UserID, req.RoomID)
	})
	if err != nil {
		return err
	}

	s.Recorder.Record(ctx, audit.Entry{
		Action:     model.ActionMemberRemove,
		ActorID:    caller.ID,
		TargetType: model.TargetTypeUser,
		TargetID:   req.UserID,
		RoomID:     req.RoomID,
		Metadata:   map[string]any{"role": string(removed)},
	})
	return nil
}

// UpdateMemberRole moves a member between MODERATOR and MEMBER. OWNER is
// only reachable through TransferOwnership.
func (s *Service) UpdateMemberRole(ctx context.Context, callerID string, req model.UpdateMemberRoleReq) (result *model.Membership, err error) {
	defer func() { s.observe(string(policy.OpUpdateRole), callerID, err) }()
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	caller, err := s.caller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	role := model.MemberRole(req.Role)

	var from model.MemberRole
	err = s.Store.WithTransaction(ctx, func(ctx context.Context) error {
		_, mut, err := s.loadMutation(ctx, policy.OpUpdateRole, caller, req.RoomID, req.UserID, role)
		if err != nil {
			return err
		}
		if err := s.Policy.ValidateMutation(mut); err != nil {
			return err
		}
		from = mut.Target.Role
		if from == role {
			result = mut.Target
			return nil
		}

		updated := *mut.Target
		updated.Role = role
		updated.UpdatedBy = caller.ID
		if err := s.Store.UpsertMembership(ctx, &updated); err != nil {
			return err
		}
		result = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	if from != role {
		s.Recorder.Record(ctx, audit.Entry{
			Action:     model.ActionMemberRoleChange,
			ActorID:    caller.ID,
			TargetType: model.TargetTypeUser,
			TargetID:   req.UserID,
			RoomID:     req.RoomID,
			Metadata:   map[string]any{"from": string(from), "to": string(role)},
		})
	}
	return result, nil
}

// TransferOwnership hands OWNER to another member. The previous owner stays
// in the room as MODERATOR.
func (s *Service) TransferOwnership(ctx context.Context, callerID string, req model.TransferOwnershipReq) (err error) {
	defer func() { s.observe(string(policy.OpTransferOwnership), callerID, err) }()
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	caller, err := s.caller(ctx, callerID)
	if err != nil {
		return err
	}

	var previousOwner string
	err = s.Store.WithTransaction(ctx, func(ctx context.Context) error {
		_, mut, err := s.loadMutation(ctx, policy.OpTransferOwnership, caller, req.RoomID, req.UserID, model.MemberRoleOwner)
		if err != nil {
			return err
		}
		if err := s.Policy.ValidateMutation(mut); err != nil {
			return err
		}

		owner, err := s.swapOwner(ctx, caller.ID, mut.Target, req.RoomID, req.UserID, mut.RoomType)
		if err != nil {
			return err
		}
		previousOwner = owner
		return nil
	})
	if err != nil {
		return err
	}

	s.Recorder.Record(ctx, audit.Entry{
		Action:     model.ActionOwnershipTransfer,
		ActorID:    caller.ID,
		TargetType: model.TargetTypeRoom,
		TargetID:   req.RoomID,
		RoomID:     req.RoomID,
		Metadata:   map[string]any{"previousOwnerId": previousOwner, "newOwnerId": req.UserID},
	})
	return nil
}

// swapOwner demotes the current OWNER, if any, to MODERATOR and then makes
// newOwnerID the OWNER, creating the membership when target is nil. It
// returns the previous owner's id. Callers run it inside a transaction.
func (s *Service) swapOwner(ctx context.Context, actorID string, target *model.Membership, roomID, newOwnerID string, roomType model.RoomType) (string, error) {
	current, err := s.Store.FindOwner(ctx, roomID)
	if err != nil {
		return "", err
	}

	previous := ""
	if current != nil {
		previous = current.UserID
		demoted := *current
		demoted.Role = model.MemberRoleModerator
		demoted.UpdatedBy = actorID
		if err := s.Store.UpsertMembership(ctx, &demoted); err != nil {
			return "", err
		}
	}

	promoted := &model.Membership{
		UserID:    newOwnerID,
		RoomID:    roomID,
		RoomType:  roomType,
		CreatedBy: actorID,
	}
	if target != nil {
		cp := *target
		promoted = &cp
	}
	promoted.Role = model.MemberRoleOwner
	promoted.UpdatedBy = actorID
	if err := s.Store.UpsertMembership(ctx, promoted); err != nil {
		return "", err
	}
	return previous, nil
}

// LeaveRoom removes the caller's own membership. A sole OWNER must hand the
// room over first unless they are its last member.
func (s *Service) LeaveRoom(ctx context.Context, callerID string, req model.RoomPathReq) (err error) {
	defer func() { s.observe(string(policy.OpLeaveRoom), callerID, err) }()
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	caller, err := s.caller(ctx, callerID)
	if err != nil {
		return err
	}

	var role model.MemberRole
	err = s.Store.WithTransaction(ctx, func(ctx context.Context) error {
		_, mut, err := s.loadMutation(ctx, policy.OpLeaveRoom, caller, req.RoomID, caller.ID, "")
		if err != nil {
			return err
		}
		if mut.Target == nil {
			return model.NewAccessError(model.CodeNotMember, "caller is not a member of this room")
		}
		if err := s.Policy.ValidateMutation(mut); err != nil {
			return err
		}
		role = mut.Target.Role
		return s.Store.DeleteMembership(ctx, caller.ID, req.RoomID)
	})
	if err != nil {
		return err
	}

	s.Recorder.Record(ctx, audit.Entry{
		Action:     model.ActionMemberLeave,
		ActorID:    caller.ID,
		TargetType: model.TargetTypeUser,
		TargetID:   caller.ID,
		RoomID:     req.RoomID,
		Metadata:   map[string]any{"role": string(role)},
	})
	return nil
}
