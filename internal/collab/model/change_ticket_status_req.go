package model

import "strings"

type ChangeTicketStatusReq struct {
	RoomID string `param:"room_id" validate:"required,max=50"`
	Status string `json:"status" validate:"required,oneof=OPEN WAITING RESOLVED"`
}

func (r *ChangeTicketStatusReq) Validate() error {
	r.RoomID = strings.TrimSpace(r.RoomID)
	r.Status = strings.ToUpper(strings.TrimSpace(r.Status))

	if err := GetValidator().Struct(r); err != nil {
		return FormatValidationError(err)
	}
	return nil
}
