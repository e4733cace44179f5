package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/sumologic-mcp/internal/errors"
)

// Validator checks tool arguments against their `validate` tags
type Validator struct {
	validator *validator.Validate
}

// NewValidator creates a validator that reports fields by their JSON names
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(useJSONFieldNames)
	return &Validator{validator: v}
}

// Validate returns a validation error naming the first offending argument
func (v *Validator) Validate(tool string, args any) error {
	err := v.validator.Struct(args)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		first := validationErrs[0]
		switch first.Tag() {
		case "required":
			return apperrors.NewValidationError(tool, fmt.Errorf("missing required argument '%s'", first.Field()))
		case "min":
			return apperrors.NewValidationError(tool, fmt.Errorf("argument '%s' must be at least %s, got %v", first.Field(), first.Param(), first.Value()))
		case "max":
			return apperrors.NewValidationError(tool, fmt.Errorf("argument '%s' must be at most %s, got %v", first.Field(), first.Param(), first.Value()))
		}
	}
	return apperrors.NewValidationError(tool, err)
}

func useJSONFieldNames(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}
