package model

import "strings"

type PostMessageReq struct {
	RoomID          string `param:"room_id" validate:"required,max=50"`
	Content         string `json:"content" validate:"required,min=1,max=4000"`
	ParentMessageID string `json:"parent_message_id" validate:"omitempty,max=50"`
}

func (r *PostMessageReq) Validate() error {
	r.RoomID = strings.TrimSpace(r.RoomID)
	r.Content = strings.TrimSpace(r.Content)
	r.ParentMessageID = strings.TrimSpace(r.ParentMessageID)

	if err := GetValidator().Struct(r); err != nil {
		return FormatValidationError(err)
	}
	return nil
}
