package policy

import (
	"context"

	"collabcore/internal/collab/model"
)

// MembershipReader is the slice of the store the access controller reads.
type MembershipReader interface {
	FindMembership(ctx context.Context, userID, roomID string) (*model.Membership, error)
	ListUserMemberships(ctx context.Context, userID string) ([]*model.Membership, error)
	ListRoomIDs(ctx context.Context, q model.RoomQuery) ([]string, error)
}

// Controller answers access questions for a user against a room.
type Controller struct {
	store  MembershipReader
	engine *Engine
}

func NewController(store MembershipReader, engine *Engine) *Controller {
	return &Controller{store: store, engine: engine}
}

func (c *Controller) Engine() *Engine {
	return c.engine
}

// IsInternal reports whether user is staff rather than an external customer:
// an administrator, a user with a department, or a holder of any PUBLIC or
// PRIVATE membership.
func (c *Controller) IsInternal(ctx context.Context, user *model.User) (bool, error) {
	if user.IsAdmin() || user.DepartmentName() != "" {
		return true, nil
	}
	memberships, err := c.store.ListUserMemberships(ctx, user.ID)
	if err != nil {
		return false, err
	}
	return hasInternalMembership(memberships), nil
}

func hasInternalMembership(memberships []*model.Membership) bool {
	for _, m := range memberships {
		if m.RoomType == model.RoomTypePublic || m.RoomType == model.RoomTypePrivate {
			return true
		}
	}
	return false
}

// Decide is the pure access rule. membership is the user's membership in
// room, or nil.
func Decide(user *model.User, room *model.Room, membership *model.Membership, internal bool) bool {
	if user == nil || room == nil {
		return false
	}
	if user.IsAdmin() {
		return true
	}
	if !internal {
		return room.Type == model.RoomTypeTicket && membership != nil
	}

	switch room.Type {
	case model.RoomTypePublic:
		return true
	case model.RoomTypePrivate, model.RoomTypeDM:
		return membership != nil
	case model.RoomTypeTicket:
		if membership != nil {
			return true
		}
		dept := user.DepartmentName()
		return dept != "" && dept == room.DepartmentName()
	}
	return false
}

func (c *Controller) CanAccessRoom(ctx context.Context, user *model.User, room *model.Room) (bool, error) {
	if user == nil || room == nil {
		return false, nil
	}
	if user.IsAdmin() {
		return true, nil
	}
	membership, err := c.store.FindMembership(ctx, user.ID, room.ID)
	if err != nil {
		return false, err
	}
	internal, err := c.IsInternal(ctx, user)
	if err != nil {
		return false, err
	}
	return Decide(user, room, membership, internal), nil
}

// AssertAccess is CanAccessRoom returning a FORBIDDEN AccessError on denial.
func (c *Controller) AssertAccess(ctx context.Context, user *model.User, room *model.Room) error {
	ok, err := c.CanAccessRoom(ctx, user, room)
	if err != nil {
		return err
	}
	if !ok {
		return model.NewAccessError(model.CodeForbidden, "no access to room %s", room.ID)
	}
	return nil
}

// AssertRole requires the user to hold one of the allowed roles in room.
// It returns the caller's membership, which is nil for administrators
// without one.
func (c *Controller) AssertRole(ctx context.Context, user *model.User, room *model.Room, allowed ...model.MemberRole) (*model.Membership, error) {
	membership, err := c.store.FindMembership(ctx, user.ID, room.ID)
	if err != nil {
		return nil, err
	}
	if user.IsAdmin() {
		return membership, nil
	}
	if membership == nil {
		return nil, model.NewAccessError(model.CodeNotMember, "caller is not a member of this room")
	}
	if !containsRole(allowed, membership.Role) {
		return nil, model.NewAccessError(model.CodeInsufficientRole, "role %s is not sufficient", membership.Role)
	}
	return membership, nil
}

// Authorize runs the role-table caller check for op.
func (c *Controller) Authorize(ctx context.Context, op Operation, user *model.User, room *model.Room) (*model.Membership, error) {
	if err := c.engine.CheckRoomType(op, room.Type); err != nil {
		return nil, err
	}
	membership, err := c.store.FindMembership(ctx, user.ID, room.ID)
	if err != nil {
		return nil, err
	}
	if err := c.engine.CheckCaller(op, user, membership); err != nil {
		return nil, err
	}
	return membership, nil
}

func (c *Controller) AssertGlobalRole(user *model.User, required model.GlobalRole) error {
	if user.IsAdmin() || (user != nil && user.Role == required) {
		return nil
	}
	return model.NewAccessError(model.CodeInsufficientRole, "global role %s required", required)
}
