package model

import "strings"

type DeleteMessageReq struct {
	RoomID    string `param:"room_id" validate:"required,max=50"`
	MessageID string `param:"message_id" validate:"required,max=50"`
}

func (r *DeleteMessageReq) Validate() error {
	r.RoomID = strings.TrimSpace(r.RoomID)
	r.MessageID = strings.TrimSpace(r.MessageID)

	if err := GetValidator().Struct(r); err != nil {
		return FormatValidationError(err)
	}
	return nil
}
