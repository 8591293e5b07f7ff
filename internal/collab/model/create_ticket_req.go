package model

import "strings"

type CreateTicketReq struct {
	Subject    string `json:"subject" validate:"required,min=1,max=200"`
	Department string `json:"department" validate:"omitempty,max=50"`
}

func (r *CreateTicketReq) Validate() error {
	r.Subject = strings.TrimSpace(r.Subject)
	r.Department = strings.TrimSpace(r.Department)

	if err := GetValidator().Struct(r); err != nil {
		return FormatValidationError(err)
	}
	return nil
}
