package model

import "time"

// ActivityEvent is the canonical, derived feed entry. Not persisted.
type ActivityEvent struct {
	ID        string         `json:"id"`
	Type      ActivityType   `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Actor     *EventActor    `json:"actor,omitempty"`
	Target    *EventTarget   `json:"target,omitempty"`
	Metadata  map[string]any `json:"metadata"`
	Source    string         `json:"source"`
}

type EventActor struct {
	ID string `json:"id"`
}

type EventTarget struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type FeedQuery struct {
	Limit  int
	Cursor string
	Types  []ActivityType
}

type FeedPage struct {
	Events     []*ActivityEvent `json:"events"`
	NextCursor *string          `json:"next_cursor"`
	HasMore    bool             `json:"has_more"`
}

// AssignmentResult reports the outcome of a ticket assignment.
type AssignmentResult struct {
	RoomID          string `json:"room_id"`
	PreviousOwnerID string `json:"previous_owner_id,omitempty"`
	NewOwnerID      string `json:"new_owner_id"`
	Changed         bool   `json:"changed"`
}

type AuditPage struct {
	Data       []*AuditRecord `json:"data"`
	Page       int            `json:"page"`
	Size       int            `json:"size"`
	TotalCount int64          `json:"total_count"`
}
