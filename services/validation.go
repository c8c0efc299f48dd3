package services

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names so messages match the request body
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs the struct tags and reports the first failure as a ValidationError
func validateStruct(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return validationError("invalid input: %v", err)
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return validationError("%s is required", fe.Field())
	case "oneof":
		return validationError("%s must be one of: %s", fe.Field(), fe.Param())
	case "datetime":
		return validationError("%s must be a date in the form %s", fe.Field(), fe.Param())
	case "min", "gte":
		return validationError("%s must be at least %s", fe.Field(), fe.Param())
	case "max", "lte":
		return validationError("%s must be at most %s", fe.Field(), fe.Param())
	case "email":
		return validationError("%s must be a valid email address", fe.Field())
	}
	return validationError("%s is invalid", fe.Field())
}

// trimmed returns the trimmed value of s, or nil when s is nil or blank
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
