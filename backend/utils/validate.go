package utils

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct проверяет структуру и возвращает ошибки по полям
func ValidateStruct(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errs := make(map[string]string)
	for _, fieldErr := range err.(validator.ValidationErrors) {
		field := strings.ToLower(fieldErr.Field())
		switch fieldErr.Tag() {
		case "required":
			errs[field] = "This field is required"
		case "e164":
			errs[field] = "Enter a valid phone number (e.g. +998901234567)"
		case "min":
			errs[field] = "Value is too short"
		case "max":
			errs[field] = "Value is too long"
		case "eqfield":
			errs[field] = "Fields do not match"
		case "oneof":
			errs[field] = "Invalid choice"
		default:
			errs[field] = "Invalid value"
		}
	}
	return errs
}
