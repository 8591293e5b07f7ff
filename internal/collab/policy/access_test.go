package policy

import (
	"context"
	"testing"

	"collabcore/internal/collab/model"
	"collabcore/internal/collab/repository/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

type fixture struct {
	store      *memstore.Store
	controller *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	return &fixture{store: store, controller: NewController(store, newTestEngine(t))}
}

func (f *fixture) room(t *testing.T, id string, typ model.RoomType, dept *string) *model.Room {
	t.Helper()
	room := &model.Room{ID: id, Name: id, Type: typ, Department: dept}
	require.NoError(t, f.store.CreateRoom(context.Background(), room))
	return room
}

func (f *fixture) join(t *testing.T, userID string, room *model.Room, role model.MemberRole) {
	t.Helper()
	require.NoError(t, f.store.UpsertMembership(context.Background(), &model.Membership{
		UserID: userID, RoomID: room.ID, RoomType: room.Type, Role: role,
	}))
}

func TestDecide(t *testing.T) {
	sales := strPtr("sales")
	staff := &model.User{ID: "staff", Role: model.GlobalRoleUser, Department: sales}
	customer := &model.User{ID: "cust", Role: model.GlobalRoleUser}
	member := &model.Membership{Role: model.MemberRoleMember}

	public := &model.Room{ID: "pub", Type: model.RoomTypePublic}
	private := &model.Room{ID: "priv", Type: model.RoomTypePrivate}
	dm := &model.Room{ID: "dm", Type: model.RoomTypeDM}
	salesTicket := &model.Room{ID: "t1", Type: model.RoomTypeTicket, Department: sales}
	otherTicket := &model.Room{ID: "t2", Type: model.RoomTypeTicket, Department: strPtr("support")}

	tests := []struct {
		name       string
		user       *model.User
		room       *model.Room
		membership *model.Membership
		internal   bool
		want       bool
	}{
		{"admin sees private room", admin, private, nil, true, true},
		{"staff sees public room", staff, public, nil, true, true},
		{"staff without membership blocked from private room", staff, private, nil, true, false},
		{"staff member of private room", staff, private, member, true, true},
		{"staff blocked from dm", staff, dm, nil, true, false},
		{"staff sees own department ticket", staff, salesTicket, nil, true, true},
		{"staff blocked from other department ticket", staff, otherTicket, nil, true, false},
		{"staff member of other department ticket", staff, otherTicket, member, true, true},
		{"customer blocked from public room", customer, public, nil, false, false},
		{"customer blocked from private room even as member", customer, private, member, false, false},
		{"customer on own ticket", customer, salesTicket, member, false, true},
		{"customer on foreign ticket", customer, otherTicket, nil, false, false},
		{"nil room", staff, nil, nil, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.user, tt.room, tt.membership, tt.internal))
		})
	}
}

func TestController_IsInternal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pub := f.room(t, "pub", model.RoomTypePublic, nil)
	ticket := f.room(t, "ticket", model.RoomTypeTicket, nil)

	f.join(t, "joined", pub, model.MemberRoleMember)
	f.join(t, "cust", ticket, model.MemberRoleMember)

	internal, err := f.controller.IsInternal(ctx, &model.User{ID: "joined"})
	require.NoError(t, err)
	assert.True(t, internal)

	internal, err = f.controller.IsInternal(ctx, &model.User{ID: "cust"})
	require.NoError(t, err)
	assert.False(t, internal)

	internal, err = f.controller.IsInternal(ctx, &model.User{ID: "dept", Department: strPtr("ops")})
	require.NoError(t, err)
	assert.True(t, internal)
}

func TestController_AssertRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	room := f.room(t, "r", model.RoomTypePrivate, nil)
	f.join(t, "alice", room, model.MemberRoleOwner)
	f.join(t, "bob", room, model.MemberRoleMember)

	m, err := f.controller.AssertRole(ctx, alice, room, model.MemberRoleOwner)
	require.NoError(t, err)
	assert.Equal(t, model.MemberRoleOwner, m.Role)

	_, err = f.controller.AssertRole(ctx, bob, room, model.MemberRoleOwner, model.MemberRoleModerator)
	assert.Equal(t, model.CodeInsufficientRole, model.CodeOf(err))

	_, err = f.controller.AssertRole(ctx, &model.User{ID: "carol"}, room, model.MemberRoleMember)
	assert.Equal(t, model.CodeNotMember, model.CodeOf(err))

	m, err = f.controller.AssertRole(ctx, admin, room, model.MemberRoleOwner)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestController_AssertGlobalRole(t *testing.T) {
	f := newFixture(t)
	assert.NoError(t, f.controller.AssertGlobalRole(admin, model.GlobalRoleAdmin))
	assert.NoError(t, f.controller.AssertGlobalRole(alice, model.GlobalRoleUser))
	err := f.controller.AssertGlobalRole(alice, model.GlobalRoleAdmin)
	assert.Equal(t, model.CodeInsufficientRole, model.CodeOf(err))
}

func TestController_ResolveScope(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sales := strPtr("sales")

	pub := f.room(t, "pub", model.RoomTypePublic, nil)
	priv := f.room(t, "priv", model.RoomTypePrivate, nil)
	f.room(t, "hidden", model.RoomTypePrivate, nil)
	f.room(t, "t-sales", model.RoomTypeTicket, sales)
	f.room(t, "t-support", model.RoomTypeTicket, strPtr("support"))
	custTicket := f.room(t, "t-cust", model.RoomTypeTicket, strPtr("support"))

	f.join(t, "staff", priv, model.MemberRoleMember)
	f.join(t, "cust", custTicket, model.MemberRoleMember)
	f.join(t, "cust", pub, model.MemberRoleMember)

	t.Run("admin sees everything", func(t *testing.T) {
		scope, err := f.controller.ResolveScope(ctx, admin)
		require.NoError(t, err)
		assert.True(t, scope.All)
		assert.Nil(t, scope.RoomIDs())
		assert.True(t, scope.Contains("anything"))
	})

	t.Run("internal staff", func(t *testing.T) {
		staff := &model.User{ID: "staff", Department: sales}
		scope, err := f.controller.ResolveScope(ctx, staff)
		require.NoError(t, err)
		assert.Equal(t, []string{"priv", "pub", "t-sales"}, scope.RoomIDs())
	})

	t.Run("external customer", func(t *testing.T) {
		// A PUBLIC membership makes the user internal, so use a fresh customer.
		ticket := f.room(t, "t-only", model.RoomTypeTicket, nil)
		f.join(t, "cust2", ticket, model.MemberRoleMember)
		scope, err := f.controller.ResolveScope(ctx, &model.User{ID: "cust2"})
		require.NoError(t, err)
		assert.Equal(t, []string{"t-only"}, scope.RoomIDs())
		assert.False(t, scope.Contains("pub"))
		assert.False(t, scope.Contains(""))
	})
}
