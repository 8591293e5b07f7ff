package activity

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"collabcore/internal/collab/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNormalizeAuditRecord(t *testing.T) {
	t.Run("status change", func(t *testing.T) {
		rec := &model.AuditRecord{
			ID: "a1", Action: model.ActionTicketStatus, ActorID: "u1",
			TargetType: model.TargetTypeTicket, TargetID: "t1",
			Metadata: map[string]any{"from": "OPEN", "to": "RESOLVED"}, CreatedAt: at,
		}
		e := NormalizeAuditRecord(rec)
		require.NotNil(t, e)
		assert.Equal(t, "audit-a1", e.ID)
		assert.Equal(t, model.ActivityTicketStatusChanged, e.Type)
		assert.Equal(t, "u1", e.Actor.ID)
		assert.Equal(t, &model.EventTarget{Type: model.TargetTypeTicket, ID: "t1"}, e.Target)
		assert.Equal(t, "RESOLVED", e.Metadata["to"])
		assert.Equal(t, model.SourceAudit, e.Source)

		// The record's own metadata is left untouched.
		_, leaked := rec.Metadata["action"]
		assert.False(t, leaked)
	})

	t.Run("assignment", func(t *testing.T) {
		e := NormalizeAuditRecord(&model.AuditRecord{ID: "a2", Action: model.ActionTicketAssign, CreatedAt: at})
		require.NotNil(t, e)
		assert.Equal(t, model.ActivityTicketAssigned, e.Type)
		assert.Nil(t, e.Actor)
		assert.Nil(t, e.Target)
	})

	t.Run("unmapped actions are dropped", func(t *testing.T) {
		for _, action := range []string{model.ActionMemberRemove, model.ActionRoomEdit, model.ActionRoomDelete, "something.else"} {
			assert.Nil(t, NormalizeAuditRecord(&model.AuditRecord{ID: "x", Action: action, CreatedAt: at}), action)
		}
		assert.Nil(t, NormalizeAuditRecord(nil))
	})
}

func TestNormalizeRoom(t *testing.T) {
	dept := "support"
	ticket := &model.Room{ID: "t1", Name: "Printer", Type: model.RoomTypeTicket, Status: model.TicketStatusOpen,
		Department: &dept, CreatedBy: "cust", CreatedAt: at}

	e := NormalizeRoom(ticket, model.ActivityTicketCreated)
	require.NotNil(t, e)
	assert.Equal(t, "room-t1", e.ID)
	assert.Equal(t, model.ActivityTicketCreated, e.Type)
	assert.Equal(t, "cust", e.Actor.ID)
	assert.Equal(t, "support", e.Metadata["department"])
	assert.Equal(t, "OPEN", e.Metadata["status"])
	assert.Equal(t, model.TargetTypeTicket, e.Target.Type)

	private := &model.Room{ID: "r1", Name: "ops", Type: model.RoomTypePrivate, CreatedAt: at}
	e = NormalizeRoom(private, model.ActivityRoomCreated)
	require.NotNil(t, e)
	assert.Nil(t, e.Actor)
	assert.Equal(t, true, e.Metadata["isPrivate"])
	assert.Equal(t, "PRIVATE", e.Metadata["roomType"])

	public := &model.Room{ID: "r2", Type: model.RoomTypePublic, CreatedAt: at}
	assert.Equal(t, false, NormalizeRoom(public, model.ActivityRoomCreated).Metadata["isPrivate"])

	assert.Nil(t, NormalizeRoom(public, model.ActivityMessagePosted))
	assert.Nil(t, NormalizeRoom(nil, model.ActivityRoomCreated))
}

func TestNormalizeMessage(t *testing.T) {
	long := strings.Repeat("é", 150)
	msg := &model.Message{ID: "m1", RoomID: "r1", AuthorID: "u1", Content: long, CreatedAt: at}

	e := NormalizeMessage(msg)
	require.NotNil(t, e)
	assert.Equal(t, "message-m1", e.ID)
	assert.Equal(t, model.ActivityMessagePosted, e.Type)
	content := e.Metadata["content"].(string)
	assert.Equal(t, 100, len([]rune(content)))
	assert.Equal(t, false, e.Metadata["isThreadReply"])
	assert.Equal(t, long, msg.Content)

	reply := &model.Message{ID: "m2", RoomID: "r1", AuthorID: "u1", Content: "ok", ParentMessageID: "m1", CreatedAt: at}
	e = NormalizeMessage(reply)
	assert.Equal(t, true, e.Metadata["isThreadReply"])
	assert.Equal(t, "ok", e.Metadata["content"])

	deletedAt := at.Add(time.Minute)
	assert.Nil(t, NormalizeMessage(&model.Message{ID: "m3", DeletedAt: &deletedAt}))
}

func TestNormalize_Deterministic(t *testing.T) {
	rec := &model.AuditRecord{ID: "a1", Action: model.ActionTicketStatus, ActorID: "u1", TargetID: "t1",
		Metadata: map[string]any{"b": 2, "a": 1, "c": "x"}, CreatedAt: at.In(time.FixedZone("X", 3600))}
	msg := &model.Message{ID: "m1", RoomID: "r1", AuthorID: "u1", Content: "hello", CreatedAt: at}
	room := &model.Room{ID: "r1", Type: model.RoomTypePublic, CreatedAt: at}

	marshal := func(e *model.ActivityEvent) string {
		b, err := json.Marshal(e)
		require.NoError(t, err)
		return string(b)
	}

	for i := 0; i < 5; i++ {
		assert.Equal(t, marshal(NormalizeAuditRecord(rec)), marshal(NormalizeAuditRecord(rec)))
		assert.Equal(t, marshal(NormalizeMessage(msg)), marshal(NormalizeMessage(msg)))
		assert.Equal(t, marshal(NormalizeRoom(room, model.ActivityRoomCreated)), marshal(NormalizeRoom(room, model.ActivityRoomCreated)))
	}
	assert.Equal(t, time.UTC, NormalizeAuditRecord(rec).Timestamp.Location())
}
