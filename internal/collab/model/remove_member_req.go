package model

import "strings"

type RemoveMemberReq struct {
	RoomID string `param:"room_id" validate:"required,max=50"`
	UserID string `param:"user_id" validate:"required,max=50"`
}

func (r *RemoveMemberReq) Validate() error {
	r.RoomID = strings.TrimSpace(r.RoomID)
	r.UserID = strings.TrimSpace(r.UserID)

	if err := GetValidator().Struct(r); err != nil {
		return FormatValidationError(err)
	}
	return nil
}
