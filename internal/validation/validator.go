// Package validation validates loaded configuration using go-playground/validator.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// mapstructureTagParts is the number of parts to split a mapstructure tag into.
const mapstructureTagParts = 2

// ErrValidation is the base error for validation failures.
var ErrValidation = errors.New("validation error")

var validationMessages = map[string]string{
	"required": "is required",
	"url":      "must be a valid URL",
	"oneof":    "",
}

var parameterizedMessages = map[string]string{
	"min":   "must be at least %s",
	"max":   "must be at most %s",
	"oneof": "must be one of: %s",
}

// Validator wraps go-playground/validator with ClientConfig-shaped error
// formatting: field names come from mapstructure tags, not json, since config
// structs are mapstructure-tagged rather than json-tagged.
type Validator struct {
	validate *validator.Validate
}

// FieldError represents one failed validation on a single field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors is a collection of FieldError, satisfying error.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	if len(fe) == 0 {
		return "validation failed"
	}

	msgs := make([]string, len(fe))
	for i, e := range fe {
		msgs[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}

	return strings.Join(msgs, "; ")
}

// New creates a Validator with mapstructure-aware field naming.
func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", mapstructureTagParts)[0]
		if name == "-" || name == "" {
			return fld.Name
		}

		return name
	})

	return &Validator{validate: v}
}

// Validate validates s and returns FieldErrors (or a wrapped ErrValidation
// for a non-field-level failure such as a non-struct argument).
func (v *Validator) Validate(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors

	if !errors.As(err, &validationErrs) {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	errs := make(FieldErrors, 0, len(validationErrs))
	for _, e := range validationErrs {
		errs = append(errs, FieldError{Field: e.Field(), Message: formatMessage(e)})
	}

	return errs
}

func formatMessage(e validator.FieldError) string {
	tag := e.Tag()

	if format, ok := parameterizedMessages[tag]; ok && e.Param() != "" {
		return fmt.Sprintf(format, e.Param())
	}

	if msg, ok := validationMessages[tag]; ok && msg != "" {
		return msg
	}

	return fmt.Sprintf("failed %s validation", tag)
}
