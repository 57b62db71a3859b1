package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validationDetails flattens validator errors into human-readable per-field
// messages suitable for the error envelope's details list.
func validationDetails(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}

	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			details = append(details, fmt.Sprintf("%s is required", field))
		case "email":
			details = append(details, fmt.Sprintf("%s must be a valid email address", field))
		case "url":
			details = append(details, fmt.Sprintf("%s must be a valid URL", field))
		case "gte":
			details = append(details, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		case "lte":
			details = append(details, fmt.Sprintf("%s must be at most %s", field, fe.Param()))
		case "oneof":
			details = append(details, fmt.Sprintf("%s must be one of [%s]", field, fe.Param()))
		default:
			details = append(details, fmt.Sprintf("%s is invalid", field))
		}
	}
	return details
}
