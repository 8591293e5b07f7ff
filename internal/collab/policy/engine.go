package policy

import (
	"fmt"

	"collabcore/internal/collab/model"
)

// Engine is the table-driven validator for room role rules
type Engine struct {
	policy *RolePolicy
}

// NewEngine creates an Engine from the embedded role table
func NewEngine() (*Engine, error) {
	rp, err := NewLoader().LoadRolePolicy()
	if err != nil {
		return nil, fmt.Errorf("failed to load role policy: %w", err)
	}
	return NewEngineWithPolicy(rp), nil
}

func NewEngineWithPolicy(rp *RolePolicy) *Engine {
	return &Engine{policy: rp}
}

// GetOperationPolicy returns the policy for a room operation
func (e *Engine) GetOperationPolicy(op Operation) (*OperationPolicy, error) {
	p, ok := e.policy.Operations[op]
	if !ok {
		return nil, fmt.Errorf("unknown operation: %s", op)
	}
	return p, nil
}

// CheckRoomType rejects operations on room types they do not apply to.
func (e *Engine) CheckRoomType(op Operation, roomType model.RoomType) error {
	p, err := e.GetOperationPolicy(op)
	if err != nil {
		return err
	}
	if len(p.RoomTypes) == 0 || containsRoomType(p.RoomTypes, roomType) {
		return nil
	}
	return model.NewValidationError("room_type", "%s is not allowed on %s rooms", op, roomType)
}

// CheckCaller decides whether the caller may perform op given their membership.
// Administrators pass every room-level check.
func (e *Engine) CheckCaller(op Operation, caller *model.User, membership *model.Membership) error {
	p, err := e.GetOperationPolicy(op)
	if err != nil {
		return err
	}

	if p.GlobalRole != "" {
		if caller.IsAdmin() || (caller != nil && caller.Role == p.GlobalRole) {
			return nil
		}
		return model.NewAccessError(p.DenyCode, "%s requires global role %s", op, p.GlobalRole)
	}

	if caller.IsAdmin() {
		return nil
	}
	if membership == nil {
		return model.NewAccessError(model.CodeNotMember, "caller is not a member of this room")
	}
	if !containsRole(p.AllowedRoles, membership.Role) {
		return model.NewAccessError(p.DenyCode, "role %s may not %s", membership.Role, op)
	}
	return nil
}

// ValidateMutation runs every check for a membership change before any write:
// self-targeting, room type, caller role, target existence, the role
// transition table, and the rule that a room with members keeps an owner.
func (e *Engine) ValidateMutation(m Mutation) error {
	p, err := e.GetOperationPolicy(m.Op)
	if err != nil {
		return err
	}

	callerID := ""
	if m.Caller != nil {
		callerID = m.Caller.ID
	}
	switch p.Self {
	case SelfForbidden:
		if m.TargetUserID == callerID {
			return &model.InvariantViolation{Invariant: "self_mutation", Message: "cannot change your own membership"}
		}
	case SelfRequired:
		if m.TargetUserID != callerID {
			return model.NewValidationError("user_id", "%s applies only to the caller", m.Op)
		}
	}

	if err := e.CheckRoomType(m.Op, m.RoomType); err != nil {
		return err
	}
	if err := e.CheckCaller(m.Op, m.Caller, m.CallerMembership); err != nil {
		return err
	}

	if m.Target == nil && p.TargetRequired {
		return model.NotFound("membership", m.TargetUserID)
	}
	if m.Target != nil && p.Idempotent {
		return nil
	}

	from, to := RoleNone, m.NewRole
	if m.Target != nil {
		from = m.Target.Role
	}
	if to == "" {
		to = RoleNone
	}
	if !e.allowsTransition(m.Op, from, to) {
		return &model.InvariantViolation{
			Invariant: "role_transition",
			Message:   fmt.Sprintf("%s cannot move a member from %s to %s", m.Op, from, to),
		}
	}

	owners, members := e.after(p, from, to, m.OwnersBefore, m.MembersBefore)
	if m.OwnersBefore > 0 && owners == 0 && members > 0 {
		return &model.InvariantViolation{
			Invariant: "owner_required",
			Message:   "room would be left without an owner; transfer ownership first",
		}
	}
	return nil
}

func (e *Engine) allowsTransition(op Operation, from, to model.MemberRole) bool {
	table, ok := e.policy.Transitions[op]
	if !ok {
		return false
	}
	return containsRole(table[from], to)
}

// after projects owner and member counts once the transition is applied.
func (e *Engine) after(p *OperationPolicy, from, to model.MemberRole, owners, members int64) (int64, int64) {
	if from == RoleNone && to != RoleNone {
		members++
	}
	if from != RoleNone && to == RoleNone {
		members--
	}

	switch {
	case from == model.MemberRoleOwner && to == model.MemberRoleOwner:
	case p.SwapsOwner && to == model.MemberRoleOwner:
		owners = 1
	case from == model.MemberRoleOwner:
		owners--
	case to == model.MemberRoleOwner:
		owners++
	}
	return owners, members
}

func containsRole(roles []model.MemberRole, role model.MemberRole) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func containsRoomType(types []model.RoomType, t model.RoomType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}
