package model

import "strings"

type UpdateMemberRoleReq struct {
	RoomID string `param:"room_id" validate:"required,max=50"`
	UserID string `param:"user_id" validate:"required,max=50"`
	Role   string `json:"role" validate:"required,oneof=OWNER MODERATOR MEMBER"`
}

func (r *UpdateMemberRoleReq) Validate() error {
	r.RoomID = strings.TrimSpace(r.RoomID)
	r.UserID = strings.TrimSpace(r.UserID)
	r.Role = strings.ToUpper(strings.TrimSpace(r.Role))

	if err := GetValidator().Struct(r); err != nil {
		return FormatValidationError(err)
	}
	return nil
}
