package model

import "strings"

// GetAuditRecordsReq pages through the raw audit log (admins only).
type GetAuditRecordsReq struct {
	Action  string `query:"action" validate:"omitempty,max=50"`
	ActorID string `query:"actor_id" validate:"omitempty,max=50"`
	RoomID  string `query:"room_id" validate:"omitempty,max=50"`

	// Pagination
	Page int `query:"page" validate:"omitempty,min=1"`
	Size int `query:"size" validate:"omitempty,min=1,max=1000"`
}

func (r *GetAuditRecordsReq) Validate() error {
	r.Action = strings.ToLower(strings.TrimSpace(r.Action))
	r.ActorID = strings.TrimSpace(r.ActorID)
	r.RoomID = strings.TrimSpace(r.RoomID)

	// Set default pagination
	if r.Page <= 0 {
		r.Page = 1
	}
	if r.Size <= 0 {
		r.Size = 100
	}

	if err := GetValidator().Struct(r); err != nil {
		return FormatValidationError(err)
	}
	return nil
}

func (r *GetAuditRecordsReq) ToQuery() AuditQuery {
	return AuditQuery{Action: r.Action, ActorID: r.ActorID, RoomID: r.RoomID, Page: r.Page, Size: r.Size}
}
