package model

import "strings"

type RenameRoomReq struct {
	RoomID string `param:"room_id" validate:"required,max=50"`
	Name   string `json:"name" validate:"required,min=1,max=100"`
}

func (r *RenameRoomReq) Validate() error {
	r.RoomID = strings.TrimSpace(r.RoomID)
	r.Name = strings.TrimSpace(r.Name)

	if err := GetValidator().Struct(r); err != nil {
		return FormatValidationError(err)
	}
	return nil
}
