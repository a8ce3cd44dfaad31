package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	haberrors "github.com/tmacro/habitat/pkg/errors"
)

// convertValidationError normalizes validator errors into hab validation errors.
func convertValidationError(err error) error {
	if err == nil {
		return nil
	}

	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		ve := ves[0]
		field := yamlishFieldName(ve)
		msg := fmt.Sprintf("%s failed validation for tag '%s'", field, ve.Tag())
		return haberrors.NewValidationError(field, msg, err)
	}

	return haberrors.NewValidationError("habfile", err.Error(), err)
}

func yamlishFieldName(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	parts := strings.Split(ns, ".")
	var lowered []string
	for _, part := range parts {
		lowered = append(lowered, strings.ToLower(part))
	}
	return strings.Join(lowered, ".")
}

func fieldFor(section string, index int, field string) string {
	if field == "" {
		return fmt.Sprintf("%s[%d]", section, index)
	}
	return fmt.Sprintf("%s[%d].%s", section, index, field)
}
