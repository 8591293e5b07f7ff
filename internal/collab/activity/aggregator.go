package activity

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"collabcore/internal/collab/metrics"
	"collabcore/internal/collab/model"
	"collabcore/internal/collab/policy"
	"collabcore/internal/collab/repository"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/errgroup"
)

// Stream names, used as metric labels.
const (
	streamAudit   = "audit"
	streamRooms   = "rooms"
	streamTickets = "tickets"
	streamMessage = "messages"
)

// RetryConfig bounds retries of retryable source reads.
type RetryConfig struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// maxFetchLimit caps per-source rows fetched in one round.
const maxFetchLimit = 50 * model.MaxFeedLimit

var DefaultRetryConfig = RetryConfig{
	MaxTries:        3,
	InitialInterval: 50 * time.Millisecond,
	MaxInterval:     500 * time.Millisecond,
}

// Aggregator builds the permission-filtered, cursor-paginated activity feed.
type Aggregator struct {
	source  repository.EventSource
	access  *policy.Controller
	metrics *metrics.Metrics
	logger  *slog.Logger
	retry   RetryConfig
}

func NewAggregator(source repository.EventSource, access *policy.Controller, m *metrics.Metrics, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		source:  source,
		access:  access,
		metrics: m,
		logger:  logger,
		retry:   DefaultRetryConfig,
	}
}

func (a *Aggregator) WithRetry(cfg RetryConfig) *Aggregator {
	a.retry = cfg
	return a
}

// stream is one fetched source after filtering and normalization. oldest is
// the last raw row fetched, set only when the fetch hit its limit and older
// rows may exist.
type stream struct {
	events []*model.ActivityEvent
	oldest *model.ActivityEvent
}

// GetFeed returns one page of the caller's activity feed.
func (a *Aggregator) GetFeed(ctx context.Context, user *model.User, q model.FeedQuery) (*model.FeedPage, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = model.DefaultFeedLimit
	}
	if limit > model.MaxFeedLimit {
		limit = model.MaxFeedLimit
	}

	var types map[model.ActivityType]bool
	if len(q.Types) > 0 {
		types = make(map[model.ActivityType]bool, len(q.Types))
		for _, t := range q.Types {
			if !t.Valid() {
				return nil, model.NewValidationError("types", "unknown activity type %q", t)
			}
			types[t] = true
		}
	}

	// 1. Visibility scope
	scope, err := a.access.ResolveScope(ctx, user)
	if err != nil {
		return nil, err
	}

	// 2. Anchor the fetch window at the cursor
	fetchLimit := limit * 2
	var before *time.Time
	if q.Cursor != "" {
		fetchLimit = limit * 3
		anchor, err := a.anchor(ctx, q.Cursor)
		if err != nil {
			return nil, err
		}
		if anchor == nil {
			a.metrics.ObserveFeed("stale_cursor")
			return emptyPage(), nil
		}
		before = anchor
	}

	// 3-6. Fetch, merge and position the window. When a truncated stream hides
	// every remaining candidate, step below its oldest fetched row and fetch again.
	var (
		rest     []*model.ActivityEvent
		complete int
		cutoff   *model.ActivityEvent
		resume   *model.ActivityEvent
		pos      *model.ActivityEvent // key the window reads strictly after
	)
	for {
		streams, err := a.fetch(ctx, user, scope, types, fetchLimit, before)
		if err != nil {
			a.metrics.ObserveFeed("error")
			return nil, err
		}

		lists := make([][]*model.ActivityEvent, 0, len(streams))
		for _, s := range streams {
			lists = append(lists, s.events)
		}
		merged := Merge(lists...)

		switch {
		case resume != nil:
			rest = after(merged, resume)
		case q.Cursor != "":
			idx := indexOf(merged, q.Cursor)
			if idx < 0 {
				a.metrics.ObserveFeed("stale_cursor")
				return emptyPage(), nil
			}
			pos = merged[idx]
			rest = merged[idx+1:]
		default:
			rest = merged
		}

		// Events past the cutoff may have unfetched rows ahead of them; hold them back.
		cutoff = nearestCutoff(streams)
		complete = len(rest)
		if cutoff != nil {
			complete -= len(after(rest, cutoff))
		}
		if complete > 0 || cutoff == nil {
			break
		}

		if pos != nil && !Before(pos, cutoff) {
			// The window did not move: more rows than fetchLimit share one timestamp.
			if fetchLimit >= maxFetchLimit {
				complete = len(rest)
				break
			}
		} else {
			resume, pos = cutoff, cutoff
			ts := cutoff.Timestamp
			before = &ts
		}
		fetchLimit = min(fetchLimit*2, maxFetchLimit)
		a.metrics.ObserveRefetch()
		a.logger.Debug("feed window hidden by truncated source, fetching further",
			"user", user.ID, "cutoff", cutoff.ID, "fetch_limit", fetchLimit)
	}

	// 7. Page
	page := rest[:min(limit, complete)]
	hasMore := len(rest) > len(page) || cutoff != nil

	result := &model.FeedPage{Events: page, HasMore: hasMore}
	if result.Events == nil {
		result.Events = []*model.ActivityEvent{}
	}
	if hasMore && len(page) > 0 {
		next := page[len(page)-1].ID
		result.NextCursor = &next
	}
	if hasMore && len(page) < limit {
		a.metrics.ObserveShortPage()
	}
	a.metrics.ObserveFeed("ok")
	return result, nil
}

func emptyPage() *model.FeedPage {
	return &model.FeedPage{Events: []*model.ActivityEvent{}}
}

func indexOf(events []*model.ActivityEvent, id string) int {
	for i, e := range events {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// nearestCutoff returns the newest oldest-fetched row among truncated
// streams, or nil when every stream was read to its end.
func nearestCutoff(streams []stream) *model.ActivityEvent {
	var cutoff *model.ActivityEvent
	for _, s := range streams {
		if s.oldest != nil && (cutoff == nil || Before(s.oldest, cutoff)) {
			cutoff = s.oldest
		}
	}
	return cutoff
}

// after returns the suffix of a feed-ordered list that sorts strictly after key.
func after(events []*model.ActivityEvent, key *model.ActivityEvent) []*model.ActivityEvent {
	for i, e := range events {
		if Before(key, e) {
			return events[i:]
		}
	}
	return nil
}

// anchor resolves a cursor to the creation time of the record it names.
// A nil time with a nil error means the record no longer exists.
func (a *Aggregator) anchor(ctx context.Context, cursor string) (*time.Time, error) {
	source, id, ok := strings.Cut(cursor, "-")
	if !ok || id == "" {
		return nil, model.NewValidationError("cursor", "malformed cursor")
	}

	var (
		at    time.Time
		found bool
		err   error
	)
	switch source {
	case model.SourceAudit:
		at, found, err = lookup(ctx, a, streamAudit, func() (*model.AuditRecord, error) { return a.source.FindAuditRecord(ctx, id) },
			func(r *model.AuditRecord) time.Time { return r.CreatedAt })
	case model.SourceRoom:
		at, found, err = lookup(ctx, a, streamRooms, func() (*model.Room, error) { return a.source.FindRoom(ctx, id) },
			func(r *model.Room) time.Time { return r.CreatedAt })
	case model.SourceMessage:
		at, found, err = lookup(ctx, a, streamMessage, func() (*model.Message, error) { return a.source.FindMessage(ctx, id) },
			func(m *model.Message) time.Time { return m.CreatedAt })
	default:
		return nil, model.NewValidationError("cursor", "unknown cursor source %q", source)
	}
	if err != nil || !found {
		return nil, err
	}
	return &at, nil
}

func lookup[T any](ctx context.Context, a *Aggregator, label string, find func() (*T, error), createdAt func(*T) time.Time) (time.Time, bool, error) {
	row, err := retryRead(ctx, a, label, find)
	if err != nil {
		return time.Time{}, false, err
	}
	if row == nil {
		return time.Time{}, false, nil
	}
	return createdAt(row), true, nil
}

func (a *Aggregator) fetch(
	ctx context.Context,
	user *model.User,
	scope *policy.Scope,
	types map[model.ActivityType]bool,
	fetchLimit int,
	before *time.Time,
) ([]stream, error) {
	wants := func(t model.ActivityType) bool { return types == nil || types[t] }
	roomIDs := scope.RoomIDs()

	streams := make([]stream, 4)
	g, gctx := errgroup.WithContext(ctx)

	if actions := AuditActionsFor(types); len(actions) > 0 {
		g.Go(func() error {
			filter := model.SourceFilter{RoomIDs: roomIDs, ActorID: user.ID, Actions: actions, Before: before}
			rows, err := timed(gctx, a, streamAudit, func() ([]*model.AuditRecord, error) {
				return a.source.QueryAuditRecords(gctx, filter, fetchLimit)
			})
			if err != nil {
				return err
			}
			streams[0] = buildStream(rows, fetchLimit,
				func(r *model.AuditRecord) bool { return auditVisible(r, user, scope) },
				NormalizeAuditRecord,
				func(r *model.AuditRecord) *model.ActivityEvent {
					return &model.ActivityEvent{ID: EventID(model.SourceAudit, r.ID), Timestamp: r.CreatedAt.UTC()}
				},
				types,
			)
			return nil
		})
	}

	if wants(model.ActivityRoomCreated) {
		g.Go(func() error {
			filter := model.SourceFilter{
				RoomIDs:   roomIDs,
				RoomTypes: []model.RoomType{model.RoomTypePublic, model.RoomTypePrivate, model.RoomTypeDM},
				Before:    before,
			}
			rows, err := timed(gctx, a, streamRooms, func() ([]*model.Room, error) {
				return a.source.QueryRooms(gctx, filter, fetchLimit)
			})
			if err != nil {
				return err
			}
			streams[1] = buildStream(rows, fetchLimit,
				func(r *model.Room) bool { return scope.Contains(r.ID) },
				func(r *model.Room) *model.ActivityEvent { return NormalizeRoom(r, model.ActivityRoomCreated) },
				roomKey,
				types,
			)
			return nil
		})
	}

	if wants(model.ActivityTicketCreated) {
		g.Go(func() error {
			filter := model.SourceFilter{
				RoomIDs:   roomIDs,
				RoomTypes: []model.RoomType{model.RoomTypeTicket},
				Before:    before,
			}
			rows, err := timed(gctx, a, streamTickets, func() ([]*model.Room, error) {
				return a.source.QueryRooms(gctx, filter, fetchLimit)
			})
			if err != nil {
				return err
			}
			streams[2] = buildStream(rows, fetchLimit,
				func(r *model.Room) bool { return scope.Contains(r.ID) },
				func(r *model.Room) *model.ActivityEvent { return NormalizeRoom(r, model.ActivityTicketCreated) },
				roomKey,
				types,
			)
			return nil
		})
	}

	if wants(model.ActivityMessagePosted) {
		g.Go(func() error {
			filter := model.SourceFilter{RoomIDs: roomIDs, Before: before}
			rows, err := timed(gctx, a, streamMessage, func() ([]*model.Message, error) {
				return a.source.QueryMessages(gctx, filter, fetchLimit)
			})
			if err != nil {
				return err
			}
			streams[3] = buildStream(rows, fetchLimit,
				func(m *model.Message) bool { return m.DeletedAt == nil && scope.Contains(m.RoomID) },
				NormalizeMessage,
				func(m *model.Message) *model.ActivityEvent {
					return &model.ActivityEvent{ID: EventID(model.SourceMessage, m.ID), Timestamp: m.CreatedAt.UTC()}
				},
				types,
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return streams, nil
}

func roomKey(r *model.Room) *model.ActivityEvent {
	return &model.ActivityEvent{ID: EventID(model.SourceRoom, r.ID), Timestamp: r.CreatedAt.UTC()}
}

// auditVisible keeps records about rooms in scope. Records tied to no room
// are visible to administrators and to their own actor.
func auditVisible(rec *model.AuditRecord, user *model.User, scope *policy.Scope) bool {
	if roomID := rec.ScopeRoomID(); roomID != "" {
		return scope.Contains(roomID)
	}
	return scope.All || rec.ActorID == user.ID
}

func buildStream[T any](
	rows []*T,
	fetchLimit int,
	visible func(*T) bool,
	normalize func(*T) *model.ActivityEvent,
	key func(*T) *model.ActivityEvent,
	types map[model.ActivityType]bool,
) stream {
	var s stream
	for _, row := range rows {
		if !visible(row) {
			continue
		}
		event := normalize(row)
		if event == nil {
			continue
		}
		if types != nil && !types[event.Type] {
			continue
		}
		s.events = append(s.events, event)
	}
	if len(rows) >= fetchLimit && len(rows) > 0 {
		s.oldest = key(rows[len(rows)-1])
	}
	return s
}

func timed[T any](ctx context.Context, a *Aggregator, label string, query func() (T, error)) (T, error) {
	start := time.Now()
	defer func() { a.metrics.ObserveSource(label, time.Since(start)) }()
	return retryRead(ctx, a, label, query)
}

// retryRead retries retryable infrastructure errors with exponential backoff.
func retryRead[T any](ctx context.Context, a *Aggregator, label string, op func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = a.retry.InitialInterval
	b.MaxInterval = a.retry.MaxInterval

	attempt := 0
	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		if attempt > 1 {
			a.metrics.ObserveSourceRetry(label)
			a.logger.Warn("retrying feed source read", "source", label, "attempt", attempt)
		}
		v, err := op()
		if err != nil && !model.IsRetryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(a.retry.MaxTries))
}
