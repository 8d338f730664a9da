package handler

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// formatValidationErrors flattens validator errors into field:reason pairs.
func formatValidationErrors(err error) map[string]string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		out[fe.Field()] = fmt.Sprintf("failed %s validation", fe.Tag())
	}
	return out
}
