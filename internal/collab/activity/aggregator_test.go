package activity

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"collabcore/internal/collab/metrics"
	"collabcore/internal/collab/model"
	"collabcore/internal/collab/policy"
	"collabcore/internal/collab/repository/memstore"
	"collabcore/internal/collab/repository/mocks"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	adminUser = &model.User{ID: "admin", Role: model.GlobalRoleAdmin}
	customer  = &model.User{ID: "cust", Role: model.GlobalRoleUser}
	staffUser = &model.User{ID: "staff", Role: model.GlobalRoleUser}
)

func minute(n int) time.Time { return at.Add(time.Duration(n) * time.Minute) }

func newController(t *testing.T, store *memstore.Store) *policy.Controller {
	t.Helper()
	engine, err := policy.NewEngine()
	require.NoError(t, err)
	return policy.NewController(store, engine)
}

// seedFeed builds:
//
//	rooms:    pub(1) priv(2) t1(3) t2(4)
//	messages: m1@pub(5) m2@priv(6) m3@t1(7) m4@t2(8) m5@t1 reply(9)
//	audit:    a4 status t1(9) a1 status t1(10) a2 assign t2(11) a3 member.remove priv(12)
func seedFeed(t *testing.T) *memstore.Store {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	support := "support"

	rooms := []*model.Room{
		{ID: "pub", Name: "general", Type: model.RoomTypePublic, CreatedBy: "staff", CreatedAt: minute(1)},
		{ID: "priv", Name: "ops", Type: model.RoomTypePrivate, CreatedBy: "staff", CreatedAt: minute(2)},
		{ID: "t1", Name: "printer", Type: model.RoomTypeTicket, Status: model.TicketStatusOpen, Department: &support, CreatedBy: "cust", CreatedAt: minute(3)},
		{ID: "t2", Name: "vpn", Type: model.RoomTypeTicket, Status: model.TicketStatusOpen, Department: &support, CreatedBy: "other", CreatedAt: minute(4)},
	}
	for _, r := range rooms {
		require.NoError(t, store.CreateRoom(ctx, r))
	}

	for _, m := range []*model.Membership{
		{UserID: "staff", RoomID: "priv", RoomType: model.RoomTypePrivate, Role: model.MemberRoleOwner},
		{UserID: "cust", RoomID: "t1", RoomType: model.RoomTypeTicket, Role: model.MemberRoleMember},
		{UserID: "other", RoomID: "t2", RoomType: model.RoomTypeTicket, Role: model.MemberRoleMember},
	} {
		require.NoError(t, store.UpsertMembership(ctx, m))
	}

	for _, m := range []*model.Message{
		{ID: "m1", RoomID: "pub", AuthorID: "staff", Content: "hello", CreatedAt: minute(5)},
		{ID: "m2", RoomID: "priv", AuthorID: "staff", Content: "ops", CreatedAt: minute(6)},
		{ID: "m3", RoomID: "t1", AuthorID: "cust", Content: "printer broken", CreatedAt: minute(7)},
		{ID: "m4", RoomID: "t2", AuthorID: "other", Content: "vpn down", CreatedAt: minute(8)},
		{ID: "m5", RoomID: "t1", AuthorID: "admin", Content: "on it", ParentMessageID: "m3", CreatedAt: minute(9)},
	} {
		require.NoError(t, store.CreateMessage(ctx, m))
	}

	for _, a := range []*model.AuditRecord{
		{ID: "a4", Action: model.ActionTicketStatus, ActorID: "admin", TargetType: model.TargetTypeTicket, TargetID: "t1", RoomID: "t1", CreatedAt: minute(9)},
		{ID: "a1", Action: model.ActionTicketStatus, ActorID: "admin", TargetType: model.TargetTypeTicket, TargetID: "t1", RoomID: "t1", CreatedAt: minute(10)},
		{ID: "a2", Action: model.ActionTicketAssign, ActorID: "admin", TargetType: model.TargetTypeTicket, TargetID: "t2", RoomID: "t2", CreatedAt: minute(11)},
		{ID: "a3", Action: model.ActionMemberRemove, ActorID: "staff", TargetType: model.TargetTypeUser, TargetID: "x", RoomID: "priv", CreatedAt: minute(12)},
	} {
		require.NoError(t, store.Append(ctx, a))
	}
	return store
}

var fullAdminFeed = []string{
	"audit-a2", "audit-a1", "message-m5", "audit-a4", "message-m4", "message-m3",
	"message-m2", "message-m1", "room-t2", "room-t1", "room-priv", "room-pub",
}

func TestGetFeed_AdminOrdering(t *testing.T) {
	store := seedFeed(t)
	agg := NewAggregator(store, newController(t, store), nil, nil)

	page, err := agg.GetFeed(context.Background(), adminUser, model.FeedQuery{Limit: 50})
	require.NoError(t, err)

	assert.Equal(t, fullAdminFeed, ids(page.Events))
	assert.False(t, page.HasMore)
	assert.Nil(t, page.NextCursor)

	for i := 1; i < len(page.Events); i++ {
		assert.False(t, Before(page.Events[i], page.Events[i-1]))
	}
}

func TestGetFeed_CursorRoundTrip(t *testing.T) {
	for _, limit := range []int{1, 2, 3, 5, 11} {
		store := seedFeed(t)
		agg := NewAggregator(store, newController(t, store), nil, nil)

		var collected []string
		cursor := ""
		for i := 0; i < 20; i++ {
			page, err := agg.GetFeed(context.Background(), adminUser, model.FeedQuery{Limit: limit, Cursor: cursor})
			require.NoError(t, err)
			assert.LessOrEqual(t, len(page.Events), limit)
			collected = append(collected, ids(page.Events)...)
			if !page.HasMore {
				assert.Nil(t, page.NextCursor)
				break
			}
			require.NotNil(t, page.NextCursor)
			cursor = *page.NextCursor
		}
		assert.Equal(t, fullAdminFeed, collected, "limit %d", limit)
	}
}

func TestGetFeed_StaleCursorFailsClosed(t *testing.T) {
	ctx := context.Background()
	store := seedFeed(t)
	agg := NewAggregator(store, newController(t, store), nil, nil)

	page, err := agg.GetFeed(ctx, adminUser, model.FeedQuery{Limit: 5})
	require.NoError(t, err)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, "message-m4", *page.NextCursor)

	require.NoError(t, store.SoftDeleteMessage(ctx, "m4", "admin"))

	page, err = agg.GetFeed(ctx, adminUser, model.FeedQuery{Limit: 5, Cursor: "message-m4"})
	require.NoError(t, err)
	assert.Empty(t, page.Events)
	assert.False(t, page.HasMore)
	assert.Nil(t, page.NextCursor)

	page, err = agg.GetFeed(ctx, adminUser, model.FeedQuery{Limit: 5, Cursor: "room-gone"})
	require.NoError(t, err)
	assert.Empty(t, page.Events)
}

func TestGetFeed_MalformedCursor(t *testing.T) {
	store := seedFeed(t)
	agg := NewAggregator(store, newController(t, store), nil, nil)

	for _, cursor := range []string{"nodash", "widget-1", "audit-"} {
		_, err := agg.GetFeed(context.Background(), adminUser, model.FeedQuery{Cursor: cursor})
		assert.Equal(t, model.CodeInvalidRequest, model.CodeOf(err), cursor)
	}
}

func TestGetFeed_ExternalCustomer(t *testing.T) {
	store := seedFeed(t)
	agg := NewAggregator(store, newController(t, store), nil, nil)

	page, err := agg.GetFeed(context.Background(), customer, model.FeedQuery{Limit: 50})
	require.NoError(t, err)

	assert.Equal(t, []string{"audit-a1", "message-m5", "audit-a4", "message-m3", "room-t1"}, ids(page.Events))
	for _, e := range page.Events {
		assert.NotEqual(t, "audit-a2", e.ID, "audit record about another ticket leaked")
	}
}

func TestGetFeed_InternalStaff(t *testing.T) {
	store := seedFeed(t)
	agg := NewAggregator(store, newController(t, store), nil, nil)

	page, err := agg.GetFeed(context.Background(), staffUser, model.FeedQuery{Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, []string{"message-m2", "message-m1", "room-priv", "room-pub"}, ids(page.Events))

	support := "support"
	agent := &model.User{ID: "agent", Role: model.GlobalRoleUser, Department: &support}
	page, err = agg.GetFeed(context.Background(), agent, model.FeedQuery{Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"audit-a2", "audit-a1", "message-m5", "audit-a4", "message-m4", "message-m3",
		"message-m1", "room-t2", "room-t1", "room-pub",
	}, ids(page.Events))
}

func TestGetFeed_TypeFilter(t *testing.T) {
	store := seedFeed(t)
	agg := NewAggregator(store, newController(t, store), nil, nil)

	page, err := agg.GetFeed(context.Background(), adminUser, model.FeedQuery{
		Limit: 50,
		Types: []model.ActivityType{model.ActivityTicketCreated, model.ActivityTicketAssigned},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"audit-a2", "room-t2", "room-t1"}, ids(page.Events))

	_, err = agg.GetFeed(context.Background(), adminUser, model.FeedQuery{Types: []model.ActivityType{"bogus"}})
	assert.Equal(t, model.CodeInvalidRequest, model.CodeOf(err))
}

func TestGetFeed_LimitBounds(t *testing.T) {
	store := seedFeed(t)
	agg := NewAggregator(store, newController(t, store), nil, nil)

	page, err := agg.GetFeed(context.Background(), adminUser, model.FeedQuery{})
	require.NoError(t, err)
	assert.Len(t, page.Events, len(fullAdminFeed))
}

func fastRetry(agg *Aggregator) *Aggregator {
	return agg.WithRetry(RetryConfig{MaxTries: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond})
}

func TestGetFeed_RetriesRetryableReads(t *testing.T) {
	source := new(mocks.MockEventSource)
	transient := &model.InfrastructureError{Op: "query_messages", Retryable: true, Err: errors.New("timeout")}
	msgs := []*model.Message{{ID: "m1", RoomID: "r1", AuthorID: "u", Content: "x", CreatedAt: at}}

	source.On("QueryMessages", mock.Anything, mock.Anything, 20).Return(nil, transient).Once()
	source.On("QueryMessages", mock.Anything, mock.Anything, 20).Return(msgs, nil).Once()

	agg := fastRetry(NewAggregator(source, newController(t, memstore.New()), nil, nil))
	page, err := agg.GetFeed(context.Background(), adminUser, model.FeedQuery{
		Limit: 10, Types: []model.ActivityType{model.ActivityMessagePosted},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"message-m1"}, ids(page.Events))
	source.AssertExpectations(t)
}

func TestGetFeed_PermanentErrorsPropagate(t *testing.T) {
	source := new(mocks.MockEventSource)
	permanent := &model.InfrastructureError{Op: "query_messages", Retryable: false, Err: errors.New("auth failed")}
	source.On("QueryMessages", mock.Anything, mock.Anything, 20).Return(nil, permanent).Once()

	agg := fastRetry(NewAggregator(source, newController(t, memstore.New()), nil, nil))
	_, err := agg.GetFeed(context.Background(), adminUser, model.FeedQuery{
		Limit: 10, Types: []model.ActivityType{model.ActivityMessagePosted},
	})
	require.Error(t, err)
	assert.Equal(t, model.CodeUnavailable, model.CodeOf(err))
	source.AssertNumberOfCalls(t, "QueryMessages", 1)
}

// seedHiddenAudit builds a feed for an "eng" staff member whose newest
// candidate rows are audit records she acted on in a ticket outside her scope:
//
//	rooms:    pub(1) tin eng(2) tout support(3)
//	audit:    h1..h4 status tout by alice(100..97), vis status tin(50)
//	messages: m1@pub(60) m2@pub(40), plus m0@pub(200) when withNewest
func seedHiddenAudit(t *testing.T, withNewest bool) (*memstore.Store, *model.User) {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	eng, support := "eng", "support"

	for _, r := range []*model.Room{
		{ID: "pub", Name: "general", Type: model.RoomTypePublic, CreatedBy: "staff", CreatedAt: minute(1)},
		{ID: "tin", Name: "laptop", Type: model.RoomTypeTicket, Status: model.TicketStatusOpen, Department: &eng, CreatedBy: "cust", CreatedAt: minute(2)},
		{ID: "tout", Name: "payroll", Type: model.RoomTypeTicket, Status: model.TicketStatusOpen, Department: &support, CreatedBy: "cust", CreatedAt: minute(3)},
	} {
		require.NoError(t, store.CreateRoom(ctx, r))
	}

	for i, id := range []string{"h1", "h2", "h3", "h4"} {
		require.NoError(t, store.Append(ctx, &model.AuditRecord{
			ID: id, Action: model.ActionTicketStatus, ActorID: "alice",
			TargetType: model.TargetTypeTicket, TargetID: "tout", RoomID: "tout", CreatedAt: minute(100 - i),
		}))
	}
	require.NoError(t, store.Append(ctx, &model.AuditRecord{
		ID: "vis", Action: model.ActionTicketStatus, ActorID: "admin",
		TargetType: model.TargetTypeTicket, TargetID: "tin", RoomID: "tin", CreatedAt: minute(50),
	}))

	msgs := []*model.Message{
		{ID: "m1", RoomID: "pub", AuthorID: "staff", Content: "standup", CreatedAt: minute(60)},
		{ID: "m2", RoomID: "pub", AuthorID: "staff", Content: "lunch", CreatedAt: minute(40)},
	}
	if withNewest {
		msgs = append(msgs, &model.Message{ID: "m0", RoomID: "pub", AuthorID: "staff", Content: "deploy", CreatedAt: minute(200)})
	}
	for _, m := range msgs {
		require.NoError(t, store.CreateMessage(ctx, m))
	}

	return store, &model.User{ID: "alice", Role: model.GlobalRoleUser, Department: &eng}
}

func walkFeed(t *testing.T, agg *Aggregator, user *model.User, limit int) []string {
	t.Helper()
	var collected []string
	cursor := ""
	for i := 0; i < 50; i++ {
		page, err := agg.GetFeed(context.Background(), user, model.FeedQuery{Limit: limit, Cursor: cursor})
		require.NoError(t, err)
		require.LessOrEqual(t, len(page.Events), limit)
		collected = append(collected, ids(page.Events)...)
		if !page.HasMore {
			assert.Nil(t, page.NextCursor)
			return collected
		}
		require.NotNil(t, page.NextCursor, "limit %d page %d", limit, i)
		cursor = *page.NextCursor
	}
	t.Fatalf("feed walk with limit %d did not terminate", limit)
	return nil
}

func TestGetFeed_TruncatedSourceWalk(t *testing.T) {
	tests := []struct {
		name       string
		withNewest bool
		want       []string
	}{
		{
			name: "hidden rows on top",
			want: []string{"message-m1", "audit-vis", "message-m2", "room-tin", "room-pub"},
		},
		{
			name:       "visible event above hidden rows",
			withNewest: true,
			want:       []string{"message-m0", "message-m1", "audit-vis", "message-m2", "room-tin", "room-pub"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, limit := range []int{1, 2, 3, 4, 10} {
				store, alice := seedHiddenAudit(t, tt.withNewest)
				agg := NewAggregator(store, newController(t, store), nil, nil)
				assert.Equal(t, tt.want, walkFeed(t, agg, alice, limit), "limit %d", limit)
			}
		})
	}
}

func TestGetFeed_RefetchesPastHiddenWindow(t *testing.T) {
	store, alice := seedHiddenAudit(t, false)
	m := metrics.NewMetrics(prometheus.NewRegistry())
	agg := NewAggregator(store, newController(t, store), m, nil)

	page, err := agg.GetFeed(context.Background(), alice, model.FeedQuery{Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, []string{"message-m1", "audit-vis"}, ids(page.Events))
	assert.True(t, page.HasMore)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, "audit-vis", *page.NextCursor)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FeedRefetchesTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.FeedShortPagesTotal))
}

func TestGetFeed_ShortPageStopsAtCutoff(t *testing.T) {
	store, alice := seedHiddenAudit(t, true)
	m := metrics.NewMetrics(prometheus.NewRegistry())
	agg := NewAggregator(store, newController(t, store), m, nil)

	// The audit stream fills its fetch at h4; only m0 is known to precede it.
	page, err := agg.GetFeed(context.Background(), alice, model.FeedQuery{Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, []string{"message-m0"}, ids(page.Events))
	assert.True(t, page.HasMore)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, "message-m0", *page.NextCursor)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FeedShortPagesTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.FeedRefetchesTotal))

	page, err = agg.GetFeed(context.Background(), alice, model.FeedQuery{Limit: 2, Cursor: *page.NextCursor})
	require.NoError(t, err)
	assert.Equal(t, []string{"message-m1", "audit-vis"}, ids(page.Events))
	assert.True(t, page.HasMore)
}

func TestGetFeed_EverythingHiddenEndsFeed(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	support := "support"
	require.NoError(t, store.CreateRoom(ctx, &model.Room{ID: "tout", Type: model.RoomTypeTicket, Department: &support, CreatedAt: minute(1)}))
	for i := 0; i < 7; i++ {
		require.NoError(t, store.Append(ctx, &model.AuditRecord{
			ID: fmt.Sprintf("h%d", i), Action: model.ActionTicketAssign, ActorID: "cust",
			TargetType: model.TargetTypeTicket, TargetID: "tout", RoomID: "tout", CreatedAt: minute(10 + i),
		}))
	}
	agg := NewAggregator(store, newController(t, store), nil, nil)

	page, err := agg.GetFeed(ctx, customer, model.FeedQuery{Limit: 1})
	require.NoError(t, err)
	assert.Empty(t, page.Events)
	assert.False(t, page.HasMore)
	assert.Nil(t, page.NextCursor)
}
