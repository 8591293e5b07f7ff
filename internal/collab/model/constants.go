package model

// Global user roles
type GlobalRole string

const (
	GlobalRoleUser  GlobalRole = "user"
	GlobalRoleAdmin GlobalRole = "admin"
)

// Room types
type RoomType string

const (
	RoomTypePublic  RoomType = "PUBLIC"
	RoomTypePrivate RoomType = "PRIVATE"
	RoomTypeDM      RoomType = "DM"
	RoomTypeTicket  RoomType = "TICKET"
)

// Ticket statuses (only meaningful for TICKET rooms)
type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "OPEN"
	TicketStatusWaiting  TicketStatus = "WAITING"
	TicketStatusResolved TicketStatus = "RESOLVED"
)

// Membership roles
type MemberRole string

const (
	MemberRoleOwner     MemberRole = "OWNER"
	MemberRoleModerator MemberRole = "MODERATOR"
	MemberRoleMember    MemberRole = "MEMBER"
)

// Audit actions. The audit log accumulates more kinds than the feed surfaces.
const (
	ActionMemberInvite      = "member.invite"
	ActionMemberRemove      = "member.remove"
	ActionMemberRoleChange  = "member.role.change"
	ActionMemberLeave       = "member.leave"
	ActionOwnershipTransfer = "room.ownership.transfer"
	ActionRoomEdit          = "room.edit"
	ActionRoomDelete        = "room.delete"
	ActionTicketAssign      = "ticket.assign"
	ActionTicketStatus      = "ticket.status.change"
	ActionMessageDelete     = "message.delete"
)

// Audit target types
const (
	TargetTypeRoom    = "room"
	TargetTypeTicket  = "ticket"
	TargetTypeUser    = "user"
	TargetTypeMessage = "message"
)

// Activity event types
type ActivityType string

const (
	ActivityTicketStatusChanged ActivityType = "ticket.status.changed"
	ActivityTicketAssigned      ActivityType = "ticket.assigned"
	ActivityTicketCreated       ActivityType = "ticket.created"
	ActivityRoomCreated         ActivityType = "room.created"
	ActivityMessagePosted       ActivityType = "message.posted"
)

// AllActivityTypes lists every type the feed can emit.
var AllActivityTypes = []ActivityType{
	ActivityTicketStatusChanged,
	ActivityTicketAssigned,
	ActivityTicketCreated,
	ActivityRoomCreated,
	ActivityMessagePosted,
}

// Activity sources, also used as event id prefixes
const (
	SourceAudit   = "audit"
	SourceRoom    = "room"
	SourceMessage = "message"
)

// Feed paging
const (
	DefaultFeedLimit = 20
	MaxFeedLimit     = 100

	// MessagePreviewLength bounds message content carried in feed metadata.
	MessagePreviewLength = 100
)

func (r RoomType) Valid() bool {
	switch r {
	case RoomTypePublic, RoomTypePrivate, RoomTypeDM, RoomTypeTicket:
		return true
	}
	return false
}

func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusWaiting, TicketStatusResolved:
		return true
	}
	return false
}

func (r MemberRole) Valid() bool {
	switch r {
	case MemberRoleOwner, MemberRoleModerator, MemberRoleMember:
		return true
	}
	return false
}

func (t ActivityType) Valid() bool {
	for _, known := range AllActivityTypes {
		if t == known {
			return true
		}
	}
	return false
}
