package config

import (
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	semverPattern = regexp.MustCompile(`^\d+(?:\.\d+){0,2}(?:-[0-9A-Za-z-.]+)?(?:\+[0-9A-Za-z-.]+)?$`)
	namePattern   = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
)

// validatorInstance configures and returns the shared validator instance used across the config package.
func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("semver", func(fl validator.FieldLevel) bool {
			return semverPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("hab_name", func(fl validator.FieldLevel) bool {
			return namePattern.MatchString(fl.Field().String())
		})

		validateInst = v
	})

	return validateInst
}

// GetValidator returns a configured validator instance for use outside the config package.
func GetValidator() *validator.Validate {
	return validatorInstance()
}
