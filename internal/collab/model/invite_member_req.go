package model

import "strings"

type InviteMemberReq struct {
	RoomID string `param:"room_id" validate:"required,max=50"`
	UserID string `json:"user_id" validate:"required,min=1,max=50"`
	// Optional, defaults to MEMBER. OWNER is never grantable here.
	Role string `json:"role" validate:"omitempty,oneof=MODERATOR MEMBER"`
}

func (r *InviteMemberReq) Validate() error {
	r.RoomID = strings.TrimSpace(r.RoomID)
	r.UserID = strings.TrimSpace(r.UserID)
	r.Role = strings.ToUpper(strings.TrimSpace(r.Role))
	if r.Role == "" {
		r.Role = string(MemberRoleMember)
	}

	if err := GetValidator().Struct(r); err != nil {
		return FormatValidationError(err)
	}
	return nil
}
