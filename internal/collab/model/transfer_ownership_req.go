package model

import "strings"

type TransferOwnershipReq struct {
	RoomID string `param:"room_id" validate:"required,max=50"`
	UserID string `json:"user_id" validate:"required,min=1,max=50"`
}

func (r *TransferOwnershipReq) Validate() error {
	r.RoomID = strings.TrimSpace(r.RoomID)
	r.UserID = strings.TrimSpace(r.UserID)

	if err := GetValidator().Struct(r); err != nil {
		return FormatValidationError(err)
	}
	return nil
}
