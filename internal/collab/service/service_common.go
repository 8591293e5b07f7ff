package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"collabcore/internal/collab/activity"
	"collabcore/internal/collab/audit"
	"collabcore/internal/collab/metrics"
	"collabcore/internal/collab/model"
	"collabcore/internal/collab/policy"
	"collabcore/internal/collab/repository"
)

type CollabService interface {
	// Rooms
	CreateRoom(ctx context.Context, callerID string, req model.CreateRoomReq) (*model.Room, error)
	RenameRoom(ctx context.Context, callerID string, req model.RenameRoomReq) (*model.Room, error)
	DeleteRoom(ctx context.Context, callerID string, req model.RoomPathReq) error
	// Memberships
	ListMembers(ctx context.Context, callerID string, req model.RoomPathReq) ([]*model.Membership, error)
	InviteMember(ctx context.Context, callerID string, req model.InviteMemberReq) (*model.Membership, error)
	RemoveMember(ctx context.Context, callerID string, req model.RemoveMemberReq) error
	UpdateMemberRole(ctx context.Context, callerID string, req model.UpdateMemberRoleReq) (*model.Membership, error)
	TransferOwnership(ctx context.Context, callerID string, req model.TransferOwnershipReq) error
	LeaveRoom(ctx context.Context, callerID string, req model.RoomPathReq) error
	// Tickets
	CreateTicket(ctx context.Context, callerID string, req model.CreateTicketReq) (*model.Room, error)
	AssignTicket(ctx context.Context, callerID string, req model.AssignTicketReq) (*model.AssignmentResult, error)
	ChangeTicketStatus(ctx context.Context, callerID string, req model.ChangeTicketStatusReq) (*model.Room, error)
	// Messages
	PostMessage(ctx context.Context, callerID string, req model.PostMessageReq) (*model.Message, error)
	DeleteMessage(ctx context.Context, callerID string, req model.DeleteMessageReq) error
	// Activity
	GetFeed(ctx context.Context, callerID string, req model.GetFeedReq) (*model.FeedPage, error)
	ListAuditRecords(ctx context.Context, callerID string, req model.GetAuditRecordsReq) (*model.AuditPage, error)
}

// Options carries the collaborators NewService wires together.
type Options struct {
	Store    repository.Store
	Events   repository.EventSource
	AuditLog repository.AuditSink
	History  repository.AuditReader
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	// StoreTimeout bounds every service call against the store. Zero disables it.
	StoreTimeout time.Duration
}

type Service struct {
	Store    repository.Store
	Access   *policy.Controller
	Policy   *policy.Engine
	Recorder *audit.Recorder
	Feed     *activity.Aggregator
	History  repository.AuditReader
	Metrics  *metrics.Metrics
	Logger   *slog.Logger

	timeout time.Duration
	now     func() time.Time
}

func NewService(opts Options) (*Service, error) {
	engine, err := policy.NewEngine()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize policy engine: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	access := policy.NewController(opts.Store, engine)
	return &Service{
		Store:    opts.Store,
		Access:   access,
		Policy:   engine,
		Recorder: audit.NewRecorder(opts.AuditLog, logger, opts.Metrics),
		Feed:     activity.NewAggregator(opts.Events, access, opts.Metrics, logger),
		History:  opts.History,
		Metrics:  opts.Metrics,
		Logger:   logger,
		timeout:  opts.StoreTimeout,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// caller resolves the authenticated user. Unknown ids are rejected as unauthenticated.
func (s *Service) caller(ctx context.Context, callerID string) (*model.User, error) {
	if callerID == "" {
		return nil, model.ErrUnauthorized
	}
	user, err := s.Store.FindUser(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.ErrUnauthorized
	}
	return user, nil
}

func (s *Service) findRoom(ctx context.Context, roomID string) (*model.Room, error) {
	room, err := s.Store.FindRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, model.NotFound("room", roomID)
	}
	return room, nil
}

func (s *Service) findUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.Store.FindUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.NotFound("user", userID)
	}
	return user, nil
}

// observe counts a finished mutation and logs rejections at debug level.
func (s *Service) observe(op string, callerID string, err error) {
	s.Metrics.ObserveMutation(op, string(model.CodeOf(err)))
	if err != nil {
		s.Logger.Debug("mutation rejected",
			"operation", op,
			"caller_id", callerID,
			"code", model.CodeOf(err),
			"error", err,
		)
	}
}
