package audit

import (
	"context"
	"errors"
	"testing"

	"collabcore/internal/collab/metrics"
	"collabcore/internal/collab/model"
	"collabcore/internal/collab/repository/memstore"
	"collabcore/internal/collab/repository/mocks"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Record(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	rec := NewRecorder(store, nil, nil)

	rec.Record(ctx, Entry{
		Action:     model.ActionTicketAssign,
		ActorID:    "admin",
		TargetType: model.TargetTypeTicket,
		TargetID:   "t1",
		RoomID:     "t1",
		Metadata:   map[string]any{"new_owner_id": "a2"},
	})

	records, total, err := store.FindAuditRecords(ctx, model.AuditQuery{Page: 1, Size: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, model.ActionTicketAssign, records[0].Action)
	assert.Equal(t, "t1", records[0].TargetID)
	assert.NotEmpty(t, records[0].ID)
	assert.False(t, records[0].CreatedAt.IsZero())
}

func TestRecorder_SwallowsFailures(t *testing.T) {
	sink := new(mocks.MockAuditSink)
	sink.On("Append", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	m := metrics.NewMetrics(prometheus.NewRegistry())
	rec := NewRecorder(sink, nil, m)

	assert.NotPanics(t, func() {
		rec.Record(context.Background(), Entry{Action: model.ActionMemberRemove, ActorID: "a"})
	})
	sink.AssertExpectations(t)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditWriteFailuresTotal.WithLabelValues(model.ActionMemberRemove)))
}

func TestRecorder_IgnoresCallerCancellation(t *testing.T) {
	sink := new(mocks.MockAuditSink)
	sink.On("Append", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil }), mock.Anything).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	NewRecorder(sink, nil, nil).Record(ctx, Entry{Action: model.ActionRoomDelete, ActorID: "a"})
	sink.AssertExpectations(t)
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var rec *Recorder
	assert.NotPanics(t, func() {
		rec.Record(context.Background(), Entry{Action: model.ActionRoomDelete})
	})
}
