package model

import "strings"

// RoomPathReq binds the room id of routes that take no other input.
type RoomPathReq struct {
	RoomID string `param:"room_id" validate:"required,max=50"`
}

func (r *RoomPathReq) Validate() error {
	r.RoomID = strings.TrimSpace(r.RoomID)

	if err := GetValidator().Struct(r); err != nil {
		return FormatValidationError(err)
	}
	return nil
}
