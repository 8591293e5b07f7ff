package model

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	once     sync.Once
)

func GetValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
	})
	return validate
}

// FormatValidationError converts validator errors to a ValidationError.
// Only the first failing field is reported.
func FormatValidationError(err error) error {
	if err == nil {
		return nil
	}

	if validationErrors, ok := err.(validator.ValidationErrors); ok && len(validationErrors) > 0 {
		e := validationErrors[0]
		return &ValidationError{
			Field:   e.Field(),
			Message: "failed on the '" + e.Tag() + "' tag",
		}
	}

	return &ValidationError{Message: err.Error()}
}
