package repository

import (
	"context"
	"errors"

	"collabcore/internal/collab/model"
)

var ErrDuplicate = errors.New("duplicate record")

// MembershipStore holds (user, room, role) records. Lookups return nil, nil when absent.
type MembershipStore interface {
	FindMembership(ctx context.Context, userID, roomID string) (*model.Membership, error)
	ListMemberships(ctx context.Context, roomID string) ([]*model.Membership, error)
	ListUserMemberships(ctx context.Context, userID string) ([]*model.Membership, error)
	FindOwner(ctx context.Context, roomID string) (*model.Membership, error)
	CountOwners(ctx context.Context, roomID string) (int64, error)
	CountMembers(ctx context.Context, roomID string) (int64, error)
	// Create or update the (user, room) membership
	UpsertMembership(ctx context.Context, m *model.Membership) error
	DeleteMembership(ctx context.Context, userID, roomID string) error
	DeleteRoomMemberships(ctx context.Context, roomID string) error
}

type RoomStore interface {
	FindRoom(ctx context.Context, roomID string) (*model.Room, error)
	CreateRoom(ctx context.Context, room *model.Room) error
	UpdateRoomStatus(ctx context.Context, roomID string, status model.TicketStatus) error
	RenameRoom(ctx context.Context, roomID, name string) error
	DeleteRoom(ctx context.Context, roomID string) error
	ListRoomIDs(ctx context.Context, q model.RoomQuery) ([]string, error)
	// LockRoom bumps the room's membership version inside a transaction so
	// concurrent membership mutations on the same room conflict.
	LockRoom(ctx context.Context, roomID string) error
}

type MessageStore interface {
	CreateMessage(ctx context.Context, msg *model.Message) error
	FindMessage(ctx context.Context, messageID string) (*model.Message, error)
	SoftDeleteMessage(ctx context.Context, messageID, deletedBy string) error
	DeleteRoomMessages(ctx context.Context, roomID string) error
}

type UserStore interface {
	FindUser(ctx context.Context, userID string) (*model.User, error)
}

// Store is the persisted state the core mutates.
type Store interface {
	MembershipStore
	RoomStore
	MessageStore
	UserStore
	// WithTransaction runs fn as one atomic unit of work. Store calls made
	// with the ctx passed to fn join the transaction.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	EnsureIndexes(ctx context.Context) error
}

// EventSource serves the raw rows the activity feed is built from.
// Every query returns rows ordered descending by creation time.
type EventSource interface {
	QueryAuditRecords(ctx context.Context, filter model.SourceFilter, limit int) ([]*model.AuditRecord, error)
	QueryRooms(ctx context.Context, filter model.SourceFilter, limit int) ([]*model.Room, error)
	QueryMessages(ctx context.Context, filter model.SourceFilter, limit int) ([]*model.Message, error)

	// Point lookups used to anchor feed cursors
	FindAuditRecord(ctx context.Context, recordID string) (*model.AuditRecord, error)
	FindRoom(ctx context.Context, roomID string) (*model.Room, error)
	FindMessage(ctx context.Context, messageID string) (*model.Message, error)
}

// AuditSink is the append-only writer behind the audit recorder.
type AuditSink interface {
	Append(ctx context.Context, record *model.AuditRecord) error
}

// AuditReader pages through the raw audit log.
type AuditReader interface {
	FindAuditRecords(ctx context.Context, q model.AuditQuery) ([]*model.AuditRecord, int64, error)
}
