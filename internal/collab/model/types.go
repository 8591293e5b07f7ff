package model

import "time"

type User struct {
	ID         string     `json:"id" bson:"_id"`
	Name       string     `json:"name" bson:"name"`
	Role       GlobalRole `json:"role" bson:"role"`
	Department *string    `json:"department,omitempty" bson:"department,omitempty"`
	CreatedAt  time.Time  `json:"created_at" bson:"created_at"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == GlobalRoleAdmin
}

// DepartmentName returns the department or "" for users without one.
func (u *User) DepartmentName() string {
	if u == nil || u.Department == nil {
		return ""
	}
	return *u.Department
}

type Room struct {
	ID         string       `json:"id" bson:"_id"`
	Name       string       `json:"name" bson:"name"`
	Type       RoomType     `json:"type" bson:"type"`
	Status     TicketStatus `json:"status,omitempty" bson:"status,omitempty"`
	Department *string      `json:"department,omitempty" bson:"department,omitempty"`
	CreatedBy  string       `json:"created_by,omitempty" bson:"created_by,omitempty"`
	CreatedAt  time.Time    `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at" bson:"updated_at"`

	// Bumped inside every membership-mutating transaction.
	MembershipVersion int64 `json:"-" bson:"membership_version"`
}

func (r *Room) IsTicket() bool {
	return r != nil && r.Type == RoomTypeTicket
}

func (r *Room) DepartmentName() string {
	if r == nil || r.Department == nil {
		return ""
	}
	return *r.Department
}

// Internal Representation for Repo
type Membership struct {
	ID       string     `json:"id" bson:"_id,omitempty"`
	UserID   string     `json:"user_id" bson:"user_id"`
	RoomID   string     `json:"room_id" bson:"room_id"`
	RoomType RoomType   `json:"room_type" bson:"room_type"`
	Role     MemberRole `json:"role" bson:"role"`

	// Audit Fields
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
	CreatedBy string    `json:"created_by,omitempty" bson:"created_by,omitempty"`
	UpdatedBy string    `json:"updated_by,omitempty" bson:"updated_by,omitempty"`
}

// AuditRecord is an append-only log entry, never mutated after creation.
type AuditRecord struct {
	ID         string         `json:"id" bson:"_id,omitempty"`
	Action     string         `json:"action" bson:"action"`
	ActorID    string         `json:"actor_id" bson:"actor_id"`
	TargetType string         `json:"target_type,omitempty" bson:"target_type,omitempty"`
	TargetID   string         `json:"target_id,omitempty" bson:"target_id,omitempty"`
	RoomID     string         `json:"room_id,omitempty" bson:"room_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at" bson:"created_at"`
}

// ScopeRoomID returns the room an audit record belongs to for visibility purposes.
func (a *AuditRecord) ScopeRoomID() string {
	if a.RoomID != "" {
		return a.RoomID
	}
	if a.TargetType == TargetTypeRoom || a.TargetType == TargetTypeTicket {
		return a.TargetID
	}
	return ""
}

type Message struct {
	ID              string     `json:"id" bson:"_id"`
	RoomID          string     `json:"room_id" bson:"room_id"`
	AuthorID        string     `json:"author_id" bson:"author_id"`
	Content         string     `json:"content" bson:"content"`
	ParentMessageID string     `json:"parent_message_id,omitempty" bson:"parent_message_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at" bson:"created_at"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty" bson:"deleted_at,omitempty"`
	DeletedBy       string     `json:"deleted_by,omitempty" bson:"deleted_by,omitempty"`
}

// SourceFilter narrows an event source query. A nil RoomIDs means unrestricted.
type SourceFilter struct {
	RoomIDs   []string
	ActorID   string // audit only: records by this actor are kept even outside RoomIDs
	RoomTypes []RoomType
	Actions   []string
	Before    *time.Time // inclusive upper bound on created_at
}

// RoomQuery selects room ids for scope resolution.
type RoomQuery struct {
	Types      []RoomType
	Department string
}

// AuditQuery pages through the raw audit log.
type AuditQuery struct {
	Action  string
	ActorID string
	RoomID  string
	Page    int
	Size    int
}

// ErrorResponse for consistent error handling
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func (e *ErrorDetail) Error() string {
	return e.Message
}
