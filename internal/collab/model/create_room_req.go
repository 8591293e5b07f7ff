package model

import "strings"

type CreateRoomReq struct {
	Name       string `json:"name" validate:"required,min=1,max=100"`
	Type       string `json:"type" validate:"required,oneof=PUBLIC PRIVATE DM"`
	Department string `json:"department" validate:"omitempty,max=50"`
	// DM counterpart; required when Type is DM
	MemberID string `json:"member_id" validate:"omitempty,max=50"`
}

func (r *CreateRoomReq) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Type = strings.ToUpper(strings.TrimSpace(r.Type))
	r.Department = strings.TrimSpace(r.Department)
	r.MemberID = strings.TrimSpace(r.MemberID)

	if err := GetValidator().Struct(r); err != nil {
		return FormatValidationError(err)
	}
	if RoomType(r.Type) == RoomTypeDM && r.MemberID == "" {
		return NewValidationError("member_id", "is required for DM rooms")
	}
	return nil
}
