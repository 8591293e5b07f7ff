package audit

import (
	"context"
	"log/slog"
	"time"

	"collabcore/internal/collab/metrics"
	"collabcore/internal/collab/model"
	"collabcore/internal/collab/repository"
)

const writeTimeout = 5 * time.Second

// Entry describes one audited action.
type Entry struct {
	Action     string
	ActorID    string
	TargetType string
	TargetID   string
	RoomID     string
	Metadata   map[string]any
}

// Recorder appends audit records on behalf of mutating operations.
// Write failures are logged and counted, never returned.
type Recorder struct {
	sink    repository.AuditSink
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewRecorder(sink repository.AuditSink, logger *slog.Logger, m *metrics.Metrics) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		sink:    sink,
		logger:  logger,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Record writes the entry. It runs detached from ctx cancellation so that a
// caller hanging up after a committed mutation still leaves a trail.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	if r == nil || r.sink == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	record := &model.AuditRecord{
		Action:     e.Action,
		ActorID:    e.ActorID,
		TargetType: e.TargetType,
		TargetID:   e.TargetID,
		RoomID:     e.RoomID,
		Metadata:   e.Metadata,
		CreatedAt:  r.now(),
	}

	err := r.sink.Append(ctx, record)
	r.metrics.ObserveAuditWrite(e.Action, err)
	if err != nil {
		r.logger.Error("audit write failed",
			"action", e.Action,
			"actor_id", e.ActorID,
			"target_id", e.TargetID,
			"error", err,
		)
	}
}
