package policy

import (
	"context"
	"sort"

	"collabcore/internal/collab/model"
)

// Scope is the set of rooms whose activity a user may see.
type Scope struct {
	All    bool
	UserID string
	rooms  map[string]struct{}
}

func (s *Scope) Contains(roomID string) bool {
	if s.All {
		return true
	}
	if roomID == "" {
		return false
	}
	_, ok := s.rooms[roomID]
	return ok
}

// RoomIDs returns the sorted room ids in scope, or nil when the scope is unrestricted.
func (s *Scope) RoomIDs() []string {
	if s.All {
		return nil
	}
	ids := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Scope) add(ids ...string) {
	for _, id := range ids {
		s.rooms[id] = struct{}{}
	}
}

// ResolveScope computes the feed visibility scope:
// administrators see everything; external customers see their own ticket
// rooms; internal users see their memberships, every PUBLIC room and the
// tickets of their department.
func (c *Controller) ResolveScope(ctx context.Context, user *model.User) (*Scope, error) {
	scope := &Scope{UserID: user.ID, rooms: make(map[string]struct{})}
	if user.IsAdmin() {
		scope.All = true
		return scope, nil
	}

	memberships, err := c.store.ListUserMemberships(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	dept := user.DepartmentName()
	if dept == "" && !hasInternalMembership(memberships) {
		for _, m := range memberships {
			if m.RoomType == model.RoomTypeTicket {
				scope.add(m.RoomID)
			}
		}
		return scope, nil
	}

	for _, m := range memberships {
		scope.add(m.RoomID)
	}

	public, err := c.store.ListRoomIDs(ctx, model.RoomQuery{Types: []model.RoomType{model.RoomTypePublic}})
	if err != nil {
		return nil, err
	}
	scope.add(public...)

	if dept != "" {
		tickets, err := c.store.ListRoomIDs(ctx, model.RoomQuery{Types: []model.RoomType{model.RoomTypeTicket}, Department: dept})
		if err != nil {
			return nil, err
		}
		scope.add(tickets...)
	}
	return scope, nil
}
